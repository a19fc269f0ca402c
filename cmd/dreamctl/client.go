package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/donovanhide/eventsource"

	"lucidify/internal/providers/director"
)

type client struct {
	base string
	http *http.Client
}

func newClient(base string, timeout time.Duration) *client {
	return &client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

// streamEvent is one decoded server-sent event.
type streamEvent struct {
	Kind    string
	Payload map[string]any
}

func (e streamEvent) Message() string {
	s, _ := e.Payload["message"].(string)
	return s
}

func (e streamEvent) Terminal() bool {
	return e.Kind == "COMPLETE" || e.Kind == "ERROR"
}

// StreamVideo posts the job and calls onEvent for every event until the
// terminal one, which is also returned.
func (c *client) StreamVideo(ctx context.Context, prompt, action string, onEvent func(streamEvent)) (streamEvent, error) {
	body := map[string]string{"prompt": prompt, "action": action}
	resp, err := c.post(ctx, "/api/dream/generate-video", body, "text/event-stream")
	if err != nil {
		return streamEvent{}, err
	}
	defer resp.Body.Close()

	dec := eventsource.NewDecoder(resp.Body)
	for {
		raw, err := dec.Decode()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return streamEvent{}, errors.New("stream ended without a result")
			}
			return streamEvent{}, fmt.Errorf("read stream: %w", err)
		}
		ev := streamEvent{Kind: raw.Event()}
		if err := json.Unmarshal([]byte(raw.Data()), &ev.Payload); err != nil {
			return streamEvent{}, fmt.Errorf("decode %s event: %w", ev.Kind, err)
		}
		if onEvent != nil {
			onEvent(ev)
		}
		if ev.Terminal() {
			return ev, nil
		}
	}
}

func (c *client) Analyze(ctx context.Context, dream string) (*director.DreamAnalysis, error) {
	resp, err := c.post(ctx, "/api/dream", map[string]string{"dream": dream}, "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var out director.DreamAnalysis
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode analysis: %w", err)
	}
	return &out, nil
}

func (c *client) Chat(ctx context.Context, message string) (string, error) {
	resp, err := c.post(ctx, "/api/chat", map[string]string{"message": message}, "application/json")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	var out struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode chat reply: %w", err)
	}
	return out.Text, nil
}

// post sends a JSON body and turns non-2xx answers into errors carrying the
// server's message.
func (c *client) post(ctx context.Context, path string, body any, accept string) (*http.Response, error) {
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", accept)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", path, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	var apiErr struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&apiErr)
	if apiErr.Error.Message != "" {
		return nil, fmt.Errorf("%s: %s (%d)", path, apiErr.Error.Message, resp.StatusCode)
	}
	return nil, fmt.Errorf("%s: unexpected status %d", path, resp.StatusCode)
}
