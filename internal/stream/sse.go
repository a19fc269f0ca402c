package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/donovanhide/eventsource"

	"lucidify/internal/domain"
)

// ErrStreamingUnsupported is returned when the ResponseWriter cannot flush.
var ErrStreamingUnsupported = errors.New("stream: response writer does not support flushing")

type sseEvent struct {
	kind string
	data string
}

func (e sseEvent) Id() string    { return "" }
func (e sseEvent) Event() string { return e.kind }
func (e sseEvent) Data() string  { return e.data }

// SSEWriter encodes job events as server-sent events and flushes each one.
type SSEWriter struct {
	flusher http.Flusher
	enc     *eventsource.Encoder
}

// NewSSEWriter writes the streaming headers and a 200 status.
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &SSEWriter{flusher: flusher, enc: eventsource.NewEncoder(w, false)}, nil
}

func (s *SSEWriter) Write(ev domain.Event) error {
	payload := ev.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("stream: encode %s payload: %w", ev.Kind, err)
	}
	if err := s.enc.Encode(sseEvent{kind: string(ev.Kind), data: string(data)}); err != nil {
		return fmt.Errorf("stream: write %s: %w", ev.Kind, err)
	}
	s.flusher.Flush()
	return nil
}
