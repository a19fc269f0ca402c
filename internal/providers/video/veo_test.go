package video

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"lucidify/internal/domain"
)

func newTestVeo(t *testing.T, srv *httptest.Server, opts Options) *Veo {
	t.Helper()
	opts.Endpoint.Host = srv.URL
	if opts.APIKey == "" && opts.AccessToken == "" {
		opts.APIKey = "test-key"
	}
	veo, err := NewVeo(opts)
	if err != nil {
		t.Fatalf("NewVeo returned error: %v", err)
	}
	return veo
}

func TestVeoAsyncGeminiLifecycle(t *testing.T) {
	var polls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-goog-api-key"); got != "test-key" {
			t.Errorf("api key header = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":predictLongRunning"):
			var req predictRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decode kickoff: %v", err)
			}
			if len(req.Instances) != 1 || req.Instances[0].Prompt != "a glass whale" {
				t.Errorf("instances = %#v", req.Instances)
			}
			_, _ = io.WriteString(w, `{"name":"models/veo-2.0-generate-001/operations/op1"}`)
		case r.Method == http.MethodGet && r.URL.Path == "/v1beta/models/veo-2.0-generate-001/operations/op1":
			n := atomic.AddInt32(&polls, 1)
			if n < 3 {
				_, _ = io.WriteString(w, `{"name":"op1","metadata":{"progressPercent":40}}`)
				return
			}
			_, _ = io.WriteString(w, `{"name":"op1","done":true,"response":{"generateVideoResponse":{"generatedSamples":[{"video":{"uri":"https://files/v.mp4"}}]}}}`)
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	sess := newTestVeo(t, srv, Options{Protocol: ProtocolAsync}).Begin("a glass whale")
	ctx := context.Background()

	res, err := sess.Next(ctx)
	if err != nil || res.Ready {
		t.Fatalf("kickoff = %#v, %v", res, err)
	}
	res, err = sess.Next(ctx)
	if err != nil || res.Ready {
		t.Fatalf("poll 1 = %#v, %v", res, err)
	}
	if res.Progress != "Rendering dream... 40%" {
		t.Fatalf("progress = %q", res.Progress)
	}
	if _, err = sess.Next(ctx); err != nil {
		t.Fatalf("poll 2 error: %v", err)
	}
	res, err = sess.Next(ctx)
	if err != nil {
		t.Fatalf("poll 3 error: %v", err)
	}
	if !res.Ready || res.VideoRef != "https://files/v.mp4" {
		t.Fatalf("final = %#v", res)
	}
}

func TestVeoVertexPollsWithOperationName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("authorization = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, ":predictLongRunning"):
			var req predictRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req.Parameters.StorageURI != "gs://dreams/out/" {
				t.Errorf("storageUri = %q", req.Parameters.StorageURI)
			}
			_, _ = io.WriteString(w, `{"name":"projects/p/locations/us-central1/operations/9"}`)
		case strings.HasSuffix(r.URL.Path, ":fetchPredictOperation"):
			if r.Method != http.MethodPost {
				t.Errorf("poll method = %s", r.Method)
			}
			var req fetchOperationRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req.OperationName != "projects/p/locations/us-central1/operations/9" {
				t.Errorf("operationName = %q", req.OperationName)
			}
			_, _ = io.WriteString(w, `{"done":true,"response":{"videos":[{"gcsUri":"gs://dreams/out/1.mp4"}]}}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	veo := newTestVeo(t, srv, Options{
		Endpoint:    Endpoint{Flavor: FlavorVertex, Project: "p"},
		AccessToken: "tok",
		StorageURI:  "gs://dreams/out/",
	})
	sess := veo.Begin("prompt")
	if _, err := sess.Next(context.Background()); err != nil {
		t.Fatalf("kickoff error: %v", err)
	}
	res, err := sess.Next(context.Background())
	if err != nil {
		t.Fatalf("poll error: %v", err)
	}
	if res.VideoRef != "gs://dreams/out/1.mp4" {
		t.Fatalf("ref = %q", res.VideoRef)
	}
}

func TestVeoImmediateProtocol(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ":predict") {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"predictions":["gs://b/now.mp4"]}`)
	}))
	defer srv.Close()

	res, err := newTestVeo(t, srv, Options{Protocol: ProtocolImmediate}).Begin("p").Next(context.Background())
	if err != nil {
		t.Fatalf("Next returned error: %v", err)
	}
	if !res.Ready || res.VideoRef != "gs://b/now.mp4" {
		t.Fatalf("result = %#v", res)
	}
}

func TestVeoImmediateWithoutReference(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"name":"operations/1","metadata":{}}`)
	}))
	defer srv.Close()

	_, err := newTestVeo(t, srv, Options{Protocol: ProtocolImmediate}).Begin("p").Next(context.Background())
	if !errors.Is(err, domain.ErrReferenceNotFound) {
		t.Fatalf("err = %v, want ErrReferenceNotFound", err)
	}
}

func TestVeoErrorClassification(t *testing.T) {
	tests := []struct {
		name        string
		kickStatus  int
		kickBody    string
		pollStatus  int
		pollBody    string
		wantErr     error
		wantMessage string
	}{
		{
			name:        "kickoff json error",
			kickStatus:  http.StatusBadRequest,
			kickBody:    `{"error":{"code":400,"message":"Prompt violates policy"}}`,
			wantErr:     domain.ErrKickoff,
			wantMessage: "Prompt violates policy",
		},
		{
			name:       "poll failure",
			kickStatus: http.StatusOK,
			kickBody:   `{"name":"operations/1"}`,
			pollStatus: http.StatusBadGateway,
			pollBody:   `{"error":{"message":"upstream hiccup"}}`,
			wantErr:    domain.ErrPoll,
		},
		{
			name:        "operation error",
			kickStatus:  http.StatusOK,
			kickBody:    `{"name":"operations/1"}`,
			pollStatus:  http.StatusOK,
			pollBody:    `{"done":true,"error":{"code":3,"message":"quota exhausted"}}`,
			wantErr:     domain.ErrUpstreamReported,
			wantMessage: "quota exhausted",
		},
		{
			name:        "safety filtered",
			kickStatus:  http.StatusOK,
			kickBody:    `{"name":"operations/1"}`,
			pollStatus:  http.StatusOK,
			pollBody:    `{"done":true,"response":{"generateVideoResponse":{"raiMediaFilteredReasons":["unsafe content"]}}}`,
			wantErr:     domain.ErrUpstreamReported,
			wantMessage: "unsafe content",
		},
		{
			name:       "done without reference",
			kickStatus: http.StatusOK,
			kickBody:   `{"name":"operations/1"}`,
			pollStatus: http.StatusOK,
			pollBody:   `{"done":true,"response":{}}`,
			wantErr:    domain.ErrReferenceNotFound,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				if r.Method == http.MethodPost {
					w.WriteHeader(tc.kickStatus)
					_, _ = io.WriteString(w, tc.kickBody)
					return
				}
				w.WriteHeader(tc.pollStatus)
				_, _ = io.WriteString(w, tc.pollBody)
			}))
			defer srv.Close()

			sess := newTestVeo(t, srv, Options{}).Begin("p")
			_, err := sess.Next(context.Background())
			if err == nil {
				_, err = sess.Next(context.Background())
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
			if tc.wantMessage != "" && !strings.Contains(domain.UpstreamMessage(err), tc.wantMessage) {
				t.Fatalf("message = %q, want it to contain %q", domain.UpstreamMessage(err), tc.wantMessage)
			}
		})
	}
}

func TestVeoRoundTripHonorsDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := newTestVeo(t, srv, Options{}).Begin("p").Next(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if !errors.Is(err, domain.ErrKickoff) {
		t.Fatalf("err = %v, want ErrKickoff", err)
	}
}

func TestNewVeoDefaultsToAsync(t *testing.T) {
	veo, err := NewVeo(Options{APIKey: "k"})
	if err != nil {
		t.Fatalf("NewVeo returned error: %v", err)
	}
	if veo.Protocol() != ProtocolAsync {
		t.Fatalf("Protocol() = %q, want async", veo.Protocol())
	}
	veo, err = NewVeo(Options{APIKey: "k", Protocol: " Immediate "})
	if err != nil {
		t.Fatalf("NewVeo returned error: %v", err)
	}
	if veo.Protocol() != ProtocolImmediate {
		t.Fatalf("Protocol() = %q, want immediate", veo.Protocol())
	}
}

func TestNewVeoRequiresCredential(t *testing.T) {
	_, err := NewVeo(Options{})
	if !errors.Is(err, domain.ErrMissingCredential) {
		t.Fatalf("err = %v, want ErrMissingCredential", err)
	}
	_, err = NewVeo(Options{Endpoint: Endpoint{Flavor: FlavorVertex, Project: "p"}, APIKey: "k"})
	if !errors.Is(err, domain.ErrMissingCredential) {
		t.Fatalf("vertex err = %v, want ErrMissingCredential", err)
	}
	if _, err := NewVeo(Options{APIKey: "k", Protocol: "carrier-pigeon"}); err == nil {
		t.Fatal("expected protocol error")
	}
}
