package llmclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCompleteReturnsAssistantText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hello"}}]}`))
	}))
	defer srv.Close()

	c := New(Config{APIKey: "test", Model: "test-model", BaseURL: srv.URL})
	got, err := c.Complete(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "hello" {
		t.Errorf("Complete() = %q, want %q", got, "hello")
	}
}

func TestComplete4xxIsNotRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"bad request"}}`))
	}))
	defer srv.Close()

	c := New(Config{APIKey: "test", Model: "test-model", BaseURL: srv.URL, MaxRetries: 3})
	_, err := c.Complete(context.Background(), "sys", "user")
	if err == nil {
		t.Fatal("expected error for 4xx response")
	}
	if calls != 1 {
		t.Errorf("expected exactly 1 call for a non-retryable 4xx, got %d", calls)
	}
}

func TestCompleteEmptyChoicesIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := New(Config{APIKey: "test", Model: "test-model", BaseURL: srv.URL})
	_, err := c.Complete(context.Background(), "sys", "user")
	if err != ErrEmptyResponse {
		t.Errorf("Complete() error = %v, want ErrEmptyResponse", err)
	}
}
