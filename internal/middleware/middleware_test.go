package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestRequestIDPropagatesOrMints(t *testing.T) {
	tests := []struct {
		name   string
		header string
		keep   bool
	}{
		{name: "caller id", header: "abc-123", keep: true},
		{name: "missing", header: ""},
		{name: "control characters", header: "abc\x01"},
		{name: "too long", header: strings.Repeat("a", maxRequestIDLength+1)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var seen string
			h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = RequestIDFromContext(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("X-Request-ID", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if seen == "" || rec.Header().Get("X-Request-ID") != seen {
				t.Fatalf("context id = %q, header = %q", seen, rec.Header().Get("X-Request-ID"))
			}
			if tc.keep != (seen == tc.header) {
				t.Fatalf("id = %q, keep caller id = %v", seen, tc.keep)
			}
		})
	}
}

func TestLoggerKeepsFlusherAndLogsStatus(t *testing.T) {
	var buf bytes.Buffer
	h := RequestID(Logger(zerolog.New(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, ok := w.(http.Flusher)
		if !ok {
			t.Fatal("wrapped writer lost http.Flusher")
		}
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("hi"))
		f.Flush()
	})))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/chat", nil))
	if !rec.Flushed {
		t.Fatal("expected flush to reach the recorder")
	}
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log entry: %v", err)
	}
	if entry["status"] != float64(http.StatusTeapot) || entry["path"] != "/api/chat" || entry["bytes"] != float64(2) {
		t.Fatalf("entry = %v", entry)
	}
	if entry["request_id"] == "" {
		t.Fatal("expected request id in log entry")
	}
}

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	tests := []struct {
		name    string
		allowed []string
		origin  string
		method  string
		want    string
		status  int
	}{
		{name: "listed", allowed: []string{"https://app.example"}, origin: "https://app.example", method: http.MethodPost, want: "https://app.example", status: http.StatusOK},
		{name: "unlisted", allowed: []string{"https://app.example"}, origin: "https://evil.example", method: http.MethodPost, want: "", status: http.StatusOK},
		{name: "wildcard", allowed: []string{"*"}, origin: "https://any.example", method: http.MethodPost, want: "*", status: http.StatusOK},
		{name: "preflight", allowed: []string{"*"}, origin: "https://any.example", method: http.MethodOptions, want: "*", status: http.StatusNoContent},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/api/dream", nil)
			req.Header.Set("Origin", tc.origin)
			rec := httptest.NewRecorder()
			CORS(tc.allowed)(next).ServeHTTP(rec, req)
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tc.want {
				t.Fatalf("allow origin = %q, want %q", got, tc.want)
			}
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d", rec.Code, tc.status)
			}
		})
	}
}
