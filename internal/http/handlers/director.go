package handlers

import (
	"errors"
	"net/http"
	"strings"

	"lucidify/internal/domain"
)

type dreamAnalyzeRequest struct {
	Dream string `json:"dream"`
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Text string `json:"text"`
}

// DreamAnalyze turns a dream description into title, insight and video prompt.
func (a *App) DreamAnalyze(w http.ResponseWriter, r *http.Request) {
	var req dreamAnalyzeRequest
	if !a.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Dream) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "Dream description is required")
		return
	}
	if a.Director == nil {
		a.error(w, http.StatusInternalServerError, "internal", "GEMINI_API_KEY is not set")
		return
	}
	analysis, err := a.Director.Analyze(r.Context(), req.Dream)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("dream analysis failed")
		a.error(w, http.StatusInternalServerError, "internal", messageOr(err, "Connection to the dream world failed"))
		return
	}
	a.json(w, http.StatusOK, analysis)
}

func (a *App) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !a.decode(w, r, &req) {
		return
	}
	if a.Director == nil {
		a.error(w, http.StatusInternalServerError, "internal", "GEMINI_API_KEY is not set")
		return
	}
	text, err := a.Director.Chat(r.Context(), req.Message)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			a.error(w, http.StatusBadRequest, "bad_request", "message is required")
			return
		}
		a.Logger.Warn().Err(err).Msg("chat failed")
		a.error(w, http.StatusInternalServerError, "internal", messageOr(err, "chat failed"))
		return
	}
	a.json(w, http.StatusOK, chatResponse{Text: text})
}

func messageOr(err error, fallback string) string {
	if msg := domain.UpstreamMessage(err); strings.TrimSpace(msg) != "" {
		return msg
	}
	return fallback
}
