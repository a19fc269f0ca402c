package video

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"lucidify/internal/domain"
	"lucidify/internal/infra"
)

// Protocol selects how a generation is started and observed.
type Protocol string

const (
	ProtocolImmediate Protocol = "immediate"
	ProtocolAsync     Protocol = "async"
)

// Result is the normalized answer of one round-trip.
type Result struct {
	Ready    bool
	VideoRef string
	Progress string
}

// Session drives one generation. The first Next starts it; later calls poll
// the upstream operation until Ready.
type Session interface {
	Next(ctx context.Context) (Result, error)
}

// Backend starts generation sessions.
type Backend interface {
	Begin(prompt string) Session
}

// Options configures the Veo backend.
type Options struct {
	Protocol    Protocol
	Endpoint    Endpoint
	APIKey      string
	AccessToken string
	StorageURI  string
	AspectRatio string
	HTTPClient  *http.Client
	Logger      *infra.Logger
}

// Veo talks to Google's Veo video models over REST.
type Veo struct {
	protocol    Protocol
	endpoint    Endpoint
	storageURI  string
	aspectRatio string
	transport   *transport
	logger      *infra.Logger
}

type predictInstance struct {
	Prompt string `json:"prompt"`
}

type predictParameters struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
	SampleCount int    `json:"sampleCount,omitempty"`
	StorageURI  string `json:"storageUri,omitempty"`
}

type predictRequest struct {
	Instances  []predictInstance `json:"instances"`
	Parameters predictParameters `json:"parameters"`
}

type fetchOperationRequest struct {
	OperationName string `json:"operationName"`
}

// NewVeo validates credentials and the endpoint. A missing credential is
// reported here so it surfaces at startup.
func NewVeo(opts Options) (*Veo, error) {
	protocol := Protocol(strings.ToLower(strings.TrimSpace(string(opts.Protocol))))
	if protocol == "" {
		protocol = ProtocolAsync
	}
	if protocol != ProtocolAsync && protocol != ProtocolImmediate {
		return nil, fmt.Errorf("video: unsupported protocol %q", opts.Protocol)
	}
	endpoint, err := opts.Endpoint.Normalize()
	if err != nil {
		return nil, err
	}
	apiKey := strings.TrimSpace(opts.APIKey)
	token := strings.TrimSpace(opts.AccessToken)
	switch endpoint.Flavor {
	case FlavorGemini:
		if apiKey == "" {
			return nil, fmt.Errorf("video: gemini api key: %w", domain.ErrMissingCredential)
		}
	case FlavorVertex:
		if token == "" {
			return nil, fmt.Errorf("video: vertex access token: %w", domain.ErrMissingCredential)
		}
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	aspect := strings.TrimSpace(opts.AspectRatio)
	if aspect == "" {
		aspect = "16:9"
	}
	return &Veo{
		protocol:    protocol,
		endpoint:    endpoint,
		storageURI:  strings.TrimSpace(opts.StorageURI),
		aspectRatio: aspect,
		transport:   &transport{httpClient: client, apiKey: apiKey, accessToken: token},
		logger:      logger,
	}, nil
}

// Protocol reports the configured protocol.
func (v *Veo) Protocol() Protocol {
	return v.protocol
}

func (v *Veo) Begin(prompt string) Session {
	return &veoSession{veo: v, prompt: prompt}
}

type veoSession struct {
	veo       *Veo
	prompt    string
	started   bool
	operation string
}

func (s *veoSession) Next(ctx context.Context) (Result, error) {
	if !s.started {
		s.started = true
		return s.kickoff(ctx)
	}
	if s.operation == "" {
		return Result{}, fmt.Errorf("%w: no operation to poll", domain.ErrPoll)
	}
	return s.poll(ctx)
}

func (s *veoSession) kickoff(ctx context.Context) (Result, error) {
	v := s.veo
	payload := predictRequest{
		Instances: []predictInstance{{Prompt: s.prompt}},
		Parameters: predictParameters{
			AspectRatio: v.aspectRatio,
			SampleCount: 1,
		},
	}
	if v.endpoint.Flavor == FlavorVertex {
		payload.Parameters.StorageURI = v.storageURI
	}
	url := v.endpoint.KickoffURL()
	if v.protocol == ProtocolImmediate {
		url = v.endpoint.PredictURL()
	}
	raw, err := v.transport.do(ctx, http.MethodPost, url, payload)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", domain.ErrKickoff, err)
	}
	doc, err := decodeDocument(raw)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", domain.ErrKickoff, err)
	}
	if ref, via, err := extractReference(doc); err == nil {
		v.logger.Debug().Str("via", via).Str("protocol", string(v.protocol)).Msg("video: reference returned by kickoff")
		return Result{Ready: true, VideoRef: ref}, nil
	} else if v.protocol == ProtocolImmediate {
		return Result{}, err
	}
	name, _ := doc["name"].(string)
	if strings.TrimSpace(name) == "" {
		return Result{}, &domain.ReferenceNotFoundError{Fields: topLevelFields(doc)}
	}
	s.operation = strings.TrimSpace(name)
	v.logger.Debug().Str("operation", s.operation).Msg("video: operation started")
	return Result{Progress: "Video generation queued..."}, nil
}

func (s *veoSession) poll(ctx context.Context) (Result, error) {
	v := s.veo
	var payload any
	if v.endpoint.Flavor == FlavorVertex {
		payload = fetchOperationRequest{OperationName: s.operation}
	}
	raw, err := v.transport.do(ctx, v.endpoint.PollMethod(), v.endpoint.PollURL(s.operation), payload)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", domain.ErrPoll, err)
	}
	doc, err := decodeDocument(raw)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", domain.ErrPoll, err)
	}
	if msg := operationError(doc); msg != "" {
		return Result{}, fmt.Errorf("%w: %s", domain.ErrUpstreamReported, msg)
	}
	if done, _ := doc["done"].(bool); !done {
		return Result{Progress: progressText(doc)}, nil
	}
	if reasons := filteredReasons(doc); reasons != "" {
		return Result{}, fmt.Errorf("%w: %s", domain.ErrUpstreamReported, reasons)
	}
	ref, via, err := extractReference(doc)
	if err != nil {
		return Result{}, err
	}
	v.logger.Debug().Str("operation", s.operation).Str("via", via).Msg("video: operation finished")
	return Result{Ready: true, VideoRef: ref}, nil
}

func operationError(doc map[string]any) string {
	errObj, ok := doc["error"].(map[string]any)
	if !ok {
		return ""
	}
	if msg, _ := errObj["message"].(string); strings.TrimSpace(msg) != "" {
		return msg
	}
	return "operation reported an error"
}

// filteredReasons reports safety-filter rejections that come back as a
// finished operation without samples.
func filteredReasons(doc map[string]any) string {
	reasons, ok := lookup(expandResponse(doc), "response", "generateVideoResponse", "raiMediaFilteredReasons").([]any)
	if !ok || len(reasons) == 0 {
		return ""
	}
	parts := make([]string, 0, len(reasons))
	for _, r := range reasons {
		if s, ok := r.(string); ok && s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "; ")
}

func progressText(doc map[string]any) string {
	switch p := lookup(doc, "metadata", "progressPercent").(type) {
	case float64:
		return fmt.Sprintf("Rendering dream... %.0f%%", p)
	case string:
		if p != "" {
			return "Rendering dream... " + strings.TrimSuffix(p, "%") + "%"
		}
	}
	return ""
}

var _ Backend = (*Veo)(nil)
