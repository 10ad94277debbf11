package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAsk_SendsContextAndQuestion(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotReq)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"model": "gpt-4o-mini",
			"choices": [{"message": {"role": "assistant", "content": "You post mostly about Go."}}],
			"usage": {"total_tokens": 321}
		}`))
	}))
	defer srv.Close()

	c := NewClient("sk-test", Options{BaseURL: srv.URL, Model: "gpt-4o-mini"})
	ans, err := c.Ask(context.Background(), "POSTS:\n- a Go post", "What do I post about?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}

	if gotAuth != "Bearer sk-test" {
		t.Errorf("Authorization = %q, want Bearer sk-test", gotAuth)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" {
		t.Fatalf("messages = %+v, want system + user", gotReq.Messages)
	}
	userMsg := gotReq.Messages[1].Content
	if !strings.Contains(userMsg, "a Go post") || !strings.Contains(userMsg, "What do I post about?") {
		t.Errorf("user message missing context or question: %q", userMsg)
	}
	if ans.Text != "You post mostly about Go." || ans.TokensUsed != 321 {
		t.Errorf("answer = %+v", ans)
	}
}

func TestAsk_ProviderErrorIsTyped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"message": "maximum context length exceeded"}}`))
	}))
	defer srv.Close()

	c := NewClient("sk-test", Options{BaseURL: srv.URL})
	_, err := c.Ask(context.Background(), "huge context", "q")

	var llmErr *Error
	if !errors.As(err, &llmErr) {
		t.Fatalf("Ask = %v, want *Error", err)
	}
	if llmErr.Status != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400", llmErr.Status)
	}
	if !strings.Contains(llmErr.Message, "maximum context length") {
		t.Errorf("Message = %q", llmErr.Message)
	}
}

func TestAsk_RateLimitNotRetried(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"message": "rate limit exceeded"}}`))
	}))
	defer srv.Close()

	c := NewClient("sk-test", Options{BaseURL: srv.URL})
	_, err := c.Ask(context.Background(), "ctx", "q")

	var llmErr *Error
	if !errors.As(err, &llmErr) || llmErr.Status != http.StatusTooManyRequests {
		t.Fatalf("Ask = %v, want *Error with 429", err)
	}
	if calls != 1 {
		t.Errorf("provider called %d times, want exactly 1 (no retry)", calls)
	}
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.MaxTokens != 10 {
			t.Errorf("ping max_tokens = %d, want 10", req.MaxTokens)
		}
		w.Write([]byte(`{"choices": [{"message": {"content": "Hi"}}]}`))
	}))
	defer srv.Close()

	c := NewClient("sk-test", Options{BaseURL: srv.URL})
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
