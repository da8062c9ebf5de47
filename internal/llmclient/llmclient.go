// Package llmclient is the shared LLM completion client used by the
// Content Curator, Research Orchestrator, Judging Engine, and
// Synthesizer. It wraps a single OpenAI-compatible chat-completions
// endpoint (OpenRouter by default, per the model name's
// "openrouter/auto" default in internal/config) with bounded retries,
// following the teacher's internal/bitcoin/client.go wrapped-transport
// shape.
package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/clanktank/judge-engine/internal/metrics"
)

// Config configures the Client.
type Config struct {
	APIKey string
	Model  string
	// BaseURL defaults to OpenRouter's OpenAI-compatible endpoint.
	BaseURL string
	// HTTPClient defaults to a client with a 30s timeout — the default
	// per-call deadline §4.6/§4.7 assume for LLM calls.
	HTTPClient *http.Client
	// MaxRetries bounds the backoff retry loop; defaults to 3.
	MaxRetries int
}

// Client issues chat-completion requests with bounded retry.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	http       *http.Client
	maxRetries int
}

func New(cfg Config) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = "https://openrouter.ai/api/v1/chat/completions"
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 3
	}
	return &Client{apiKey: cfg.APIKey, model: cfg.Model, baseURL: base, http: hc, maxRetries: retries}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// ErrEmptyResponse is returned when the upstream call succeeds but
// returns no choices — callers treat this the same as a parse failure
// downstream (preserve nothing, fall back to raw_response="").
var ErrEmptyResponse = fmt.Errorf("llmclient: upstream returned no choices")

// Complete sends one system+user prompt pair and returns the assistant's
// raw text. Transient failures (5xx, network errors) are retried with
// exponential backoff up to MaxRetries; a 4xx is never retried.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	start := time.Now()
	reqBody, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("llmclient: failed to marshal request: %w", err)
	}

	var result string
	operation := func() error {
		out, retryable, err := c.doOnce(ctx, reqBody)
		if err != nil {
			if retryable {
				return err
			}
			return backoff.Permanent(err)
		}
		result = out
		return nil
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(c.maxRetries))
	err = backoff.Retry(operation, backoff.WithContext(policy, ctx))
	metrics.RecordLLMCall("complete", time.Since(start), err != nil)
	if err != nil {
		return "", err
	}
	return result, nil
}

func (c *Client) doOnce(ctx context.Context, body []byte) (text string, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", true, fmt.Errorf("llmclient: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, fmt.Errorf("llmclient: failed to read response: %w", err)
	}

	if resp.StatusCode >= 500 {
		return "", true, fmt.Errorf("llmclient: upstream returned %d: %s", resp.StatusCode, string(raw))
	}
	if resp.StatusCode >= 400 {
		return "", false, fmt.Errorf("llmclient: upstream rejected request with %d: %s", resp.StatusCode, string(raw))
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", false, fmt.Errorf("llmclient: failed to decode response: %w", err)
	}
	if parsed.Error != nil {
		return "", false, fmt.Errorf("llmclient: upstream error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", false, ErrEmptyResponse
	}
	return parsed.Choices[0].Message.Content, false, nil
}
