package groq

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mindkeep-ai/mindkeep/engine/domain"
	"github.com/mindkeep-ai/mindkeep/pkg/fn"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(Config{APIKey: "k", Model: "llama-3.3-70b-versatile", Temperature: 0.3, MaxTokens: 1024, BaseURL: srv.URL})
	c.retry = fn.RetryOpts{MaxAttempts: 3, InitialWait: time.Millisecond, MaxWait: 5 * time.Millisecond}
	return c
}

func replyWith(content string, capture *chatRequest) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if capture != nil {
			json.NewDecoder(r.Body).Decode(capture)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{
				map[string]any{"message": map[string]any{"content": content}},
			},
		})
	}
}

func TestGenerate(t *testing.T) {
	var got chatRequest
	c := testClient(t, replyWith("a tidy note", &got))

	out, err := c.Generate(context.Background(), "refine notes", "messy thought")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "a tidy note" {
		t.Errorf("out = %q", out)
	}
	if got.Temperature != 0.3 {
		t.Errorf("temperature = %v", got.Temperature)
	}
	if got.ResponseFormat != nil {
		t.Error("response_format should be absent")
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Role != "user" {
		t.Errorf("messages = %+v", got.Messages)
	}
}

func TestGenerateJSON(t *testing.T) {
	var got chatRequest
	c := testClient(t, replyWith(`{"tasks":[]}`, &got))

	if _, err := c.GenerateJSON(context.Background(), "extract", "thought"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ResponseFormat == nil || got.ResponseFormat.Type != "json_object" {
		t.Errorf("response_format = %+v", got.ResponseFormat)
	}
	if got.Temperature != jsonModeTemperature {
		t.Errorf("temperature = %v, want %v", got.Temperature, jsonModeTemperature)
	}
}

func TestGenerateWithContext(t *testing.T) {
	var got chatRequest
	c := testClient(t, replyWith("ok", &got))

	_, err := c.GenerateWithContext(context.Background(), "base prompt", "input",
		[]string{"old idea one", "old idea two"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	system := got.Messages[0].Content
	if !strings.HasPrefix(system, "base prompt") {
		t.Errorf("system prompt lost base: %q", system)
	}
	if !strings.Contains(system, "- old idea one\n- old idea two\n") {
		t.Errorf("context block malformed:\n%s", system)
	}
}

func TestGenerateWithContext_EmptyContext(t *testing.T) {
	var got chatRequest
	c := testClient(t, replyWith("ok", &got))

	if _, err := c.GenerateWithContext(context.Background(), "base prompt", "input", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Messages[0].Content != "base prompt" {
		t.Errorf("system prompt = %q", got.Messages[0].Content)
	}
}

func TestGenerate_RetriesThenFails(t *testing.T) {
	var calls atomic.Int32
	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	})

	_, err := c.Generate(context.Background(), "s", "u")
	if err == nil {
		t.Fatal("expected error")
	}
	pe, ok := domain.AsProviderError(err)
	if !ok || pe.Kind != domain.KindLLM {
		t.Fatalf("expected llm_error, got %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestGenerate_EmptyChoices(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	})
	if _, err := c.Generate(context.Background(), "s", "u"); err == nil {
		t.Fatal("expected error on empty choices")
	}
}
