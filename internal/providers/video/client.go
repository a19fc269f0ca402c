package video

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"unicode/utf8"

	"lucidify/internal/domain"
)

const maxErrorExcerpt = 256

type apiErrorBody struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
		Status  string `json:"status,omitempty"`
	} `json:"error"`
}

// transport performs authenticated JSON calls against the video API.
type transport struct {
	httpClient  *http.Client
	apiKey      string
	accessToken string
}

func (t *transport) do(ctx context.Context, method, endpoint string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if t.apiKey != "" {
		req.Header.Set("x-goog-api-key", t.apiKey)
	}
	if t.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+t.accessToken)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("invoke video api: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read video api response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &domain.StatusError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.Header.Get("Content-Type"), data),
		}
	}
	return data, nil
}

// errorMessage prefers the structured `error.message` of JSON bodies and falls
// back to a truncated excerpt of anything else.
func errorMessage(contentType string, body []byte) string {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil && strings.HasSuffix(mediaType, "json") {
		var apiErr apiErrorBody
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
			return apiErr.Error.Message
		}
	}
	return truncate(strings.TrimSpace(string(body)), maxErrorExcerpt)
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
