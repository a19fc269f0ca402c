package director

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"lucidify/internal/domain"
)

// Tuning mirrors the generation config knobs the director calls use.
type Tuning struct {
	Temperature     float32
	TopP            float32
	TopK            int32
	MaxOutputTokens int32
}

// Request is one text-model call.
type Request struct {
	Model  string
	System string
	Input  string
	JSON   bool
	Tuning *Tuning
	// Guarded enables medium-and-above blocking for the four harm categories.
	Guarded bool
}

// Model is the text model behind the director.
type Model interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// GeminiModel calls Gemini through the generative-ai SDK.
type GeminiModel struct {
	client *genai.Client
}

func NewGeminiModel(ctx context.Context, apiKey string, opts ...option.ClientOption) (*GeminiModel, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("director: gemini api key: %w", domain.ErrMissingCredential)
	}
	client, err := genai.NewClient(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("director: create genai client: %w", err)
	}
	return &GeminiModel{client: client}, nil
}

func (m *GeminiModel) Generate(ctx context.Context, req Request) (string, error) {
	gm := m.client.GenerativeModel(req.Model)
	if req.System != "" {
		gm.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}
	if req.JSON {
		gm.ResponseMIMEType = "application/json"
	}
	if t := req.Tuning; t != nil {
		gm.SetTemperature(t.Temperature)
		gm.SetTopP(t.TopP)
		gm.SetTopK(t.TopK)
		gm.SetMaxOutputTokens(t.MaxOutputTokens)
	}
	if req.Guarded {
		gm.SafetySettings = guardSettings()
	}
	resp, err := gm.GenerateContent(ctx, genai.Text(req.Input))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return responseText(resp)
}

func (m *GeminiModel) Close() error {
	return m.client.Close()
}

func guardSettings() []*genai.SafetySetting {
	categories := []genai.HarmCategory{
		genai.HarmCategoryHateSpeech,
		genai.HarmCategorySexuallyExplicit,
		genai.HarmCategoryHarassment,
		genai.HarmCategoryDangerousContent,
	}
	settings := make([]*genai.SafetySetting, 0, len(categories))
	for _, c := range categories {
		settings = append(settings, &genai.SafetySetting{Category: c, Threshold: genai.HarmBlockMediumAndAbove})
	}
	return settings
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", errors.New("empty model response")
	}
	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != genai.BlockReasonUnspecified {
		return "", fmt.Errorf("prompt blocked: %v", fb.BlockReason)
	}
	sb := &strings.Builder{}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
		if sb.Len() > 0 {
			break
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", errors.New("model returned no text")
	}
	return sb.String(), nil
}

var _ Model = (*GeminiModel)(nil)
