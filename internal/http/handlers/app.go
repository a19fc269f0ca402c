package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"lucidify/internal/domain"
	"lucidify/internal/infra"
	"lucidify/internal/providers/director"
	"lucidify/internal/stream"
)

const maxBodyBytes = 64 << 10

// Orchestrator creates and runs dream-video jobs.
type Orchestrator interface {
	NewJob(requestID, prompt, action string) (*domain.Job, error)
	Run(ctx context.Context, job *domain.Job, emit stream.Emitter)
}

// Director serves the analysis and chat endpoints.
type Director interface {
	Analyze(ctx context.Context, dream string) (*director.DreamAnalysis, error)
	Chat(ctx context.Context, message string) (string, error)
}

type AppOptions struct {
	Orchestrator Orchestrator
	Director     Director
	Pool         stream.Submitter
	Logger       *infra.Logger
	// EventBuffer is the pipe capacity between a job and its stream.
	EventBuffer int
}

type App struct {
	Orchestrator Orchestrator
	Director     Director
	Pool         stream.Submitter
	Logger       *infra.Logger
	EventBuffer  int
}

func NewApp(opts AppOptions) *App {
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	buffer := opts.EventBuffer
	if buffer <= 0 {
		buffer = 8
	}
	return &App{
		Orchestrator: opts.Orchestrator,
		Director:     opts.Director,
		Pool:         opts.Pool,
		Logger:       logger,
		EventBuffer:  buffer,
	}
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

func (a *App) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	return a.decodeStatus(w, r, dst, http.StatusBadRequest)
}

// decodeStatus answers an unparsable body with status.
func (a *App) decodeStatus(w http.ResponseWriter, r *http.Request, dst any, status int) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		code := "bad_request"
		if status >= http.StatusInternalServerError {
			code = "internal"
		}
		a.error(w, status, code, "invalid payload")
		return false
	}
	return true
}
