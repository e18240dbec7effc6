package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yungbote/painlens-backend/internal/platform/logger"
)

func responseBody(text string) string {
	payload := map[string]any{
		"id":         "resp_1",
		"object":     "response",
		"created_at": 0,
		"model":      "gpt-4.1-mini",
		"status":     "completed",
		"output": []any{map[string]any{
			"type":   "message",
			"id":     "msg_1",
			"role":   "assistant",
			"status": "completed",
			"content": []any{map[string]any{
				"type":        "output_text",
				"text":        text,
				"annotations": []any{},
			}},
		}},
	}
	raw, _ := json.Marshal(payload)
	return string(raw)
}

// newTestClient points the client at srv with near-zero backoff.
func newTestClient(t *testing.T, srv *httptest.Server) *client {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_BASE_URL", srv.URL)
	t.Setenv("OPENAI_MAX_RETRIES", "2")
	c, err := NewClient(logger.Nop())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	impl := c.(*client)
	impl.backoff = []time.Duration{time.Millisecond}
	return impl
}

func TestNewClientRequiresKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := NewClient(logger.Nop()); err == nil {
		t.Fatalf("missing key should fail")
	}
}

func TestGenerateJSONRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/responses") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			return
		}
		_, _ = w.Write([]byte(responseBody("```json\n{\"summary\":\"ok\"}\n```")))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	out, err := c.GenerateJSON(context.Background(), "sys", "user", "probe", map[string]any{"type": "object"})
	if err != nil {
		t.Fatalf("GenerateJSON: %v", err)
	}
	if out["summary"] != "ok" {
		t.Fatalf("unexpected output %v", out)
	}
	if calls.Load() != 2 {
		t.Fatalf("want 2 calls (one retry), got %d", calls.Load())
	}
}

func TestGenerateJSONDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad schema","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	if _, err := c.GenerateJSON(context.Background(), "sys", "user", "probe", map[string]any{"type": "object"}); err == nil {
		t.Fatalf("400 should fail")
	}
	if calls.Load() != 1 {
		t.Fatalf("400 must not be retried, got %d calls", calls.Load())
	}
}

func TestGenerateJSONValidatesArgs(t *testing.T) {
	c := &client{}
	if _, err := c.GenerateJSON(context.Background(), "", "", "", map[string]any{}); err == nil {
		t.Fatalf("empty schema name should fail")
	}
	if _, err := c.GenerateJSON(context.Background(), "", "", "x", nil); err == nil {
		t.Fatalf("nil schema should fail")
	}
}
