package handlers

import (
	"context"
	"errors"
	"net/http"

	"lucidify/internal/domain"
	"lucidify/internal/middleware"
	"lucidify/internal/stream"
)

type dreamVideoRequest struct {
	Prompt string `json:"prompt"`
	Action string `json:"action"`
}

type dreamVideoResponse struct {
	VideoURL       string `json:"videoUrl"`
	EnhancedPrompt string `json:"enhancedPrompt"`
}

// DreamVideoStream runs a job and streams its events as SSE.
func (a *App) DreamVideoStream(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		a.error(w, http.StatusInternalServerError, "internal", "streaming unsupported")
		return
	}
	job, ok := a.newJob(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	pipe, ok := a.start(w, job, func(emit stream.Emitter) {
		a.Orchestrator.Run(ctx, job, emit)
	})
	if !ok {
		return
	}
	sse, err := stream.NewSSEWriter(w)
	if err != nil {
		cancel()
		for range pipe.Events() {
		}
		return
	}
	if err := stream.Drain(pipe, sse); err != nil {
		a.Logger.Debug().Err(err).Str("job_id", job.ID).Msg("stream consumer left early")
	}
}

// DreamVideoSync runs a job to completion and answers with its result.
func (a *App) DreamVideoSync(w http.ResponseWriter, r *http.Request) {
	job, ok := a.newJob(w, r)
	if !ok {
		return
	}
	collector := &stream.Collector{}
	pipe, ok := a.start(w, job, func(stream.Emitter) {
		a.Orchestrator.Run(r.Context(), job, collector)
	})
	if !ok {
		return
	}
	for range pipe.Events() {
	}

	ev, found := collector.Terminal()
	if !found || ev.Kind != domain.EventComplete {
		msg, _ := ev.Payload["message"].(string)
		if msg == "" {
			msg = "The Cinematic Director is unavailable"
		}
		a.error(w, http.StatusInternalServerError, "generation_failed", msg)
		return
	}
	url, _ := ev.Payload["videoUrl"].(string)
	prompt, _ := ev.Payload["enhancedPrompt"].(string)
	a.json(w, http.StatusOK, dreamVideoResponse{VideoURL: url, EnhancedPrompt: prompt})
}

func (a *App) newJob(w http.ResponseWriter, r *http.Request) (*domain.Job, bool) {
	var req dreamVideoRequest
	// Only a parsed body missing both fields is a client error here.
	if !a.decodeStatus(w, r, &req, http.StatusInternalServerError) {
		return nil, false
	}
	job, err := a.Orchestrator.NewJob(middleware.RequestIDFromContext(r.Context()), req.Prompt, req.Action)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			a.error(w, http.StatusBadRequest, "bad_request", "Prompt or action is required")
			return nil, false
		}
		a.error(w, http.StatusInternalServerError, "internal", err.Error())
		return nil, false
	}
	return job, true
}

func (a *App) start(w http.ResponseWriter, job *domain.Job, produce func(stream.Emitter)) (*stream.Pipe, bool) {
	pipe, err := stream.Start(a.Pool, a.EventBuffer, produce)
	if err != nil {
		if errors.Is(err, domain.ErrPoolSaturated) {
			a.Logger.Warn().Str("job_id", job.ID).Msg("job pool saturated")
			a.error(w, http.StatusServiceUnavailable, "busy", "too many dreams in flight, try again shortly")
			return nil, false
		}
		a.Logger.Error().Err(err).Str("job_id", job.ID).Msg("submit job")
		a.error(w, http.StatusInternalServerError, "internal", "failed to start job")
		return nil, false
	}
	return pipe, true
}
