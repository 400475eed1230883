package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"ideaforge/domain/core"
	"ideaforge/ports"
)

const (
	// maxAttempts is the fixed retry ceiling for transient API failures
	maxAttempts = 4
	// backoffBase is the delay before the first retry; doubles per attempt
	backoffBase = 500 * time.Millisecond
)

// Config holds live client settings
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// DeepSeekClient implements ports.LLMClient against an OpenAI-compatible
// chat completions endpoint. Transient failures (timeout, 5xx, 429) are
// retried with exponential backoff up to a fixed attempt ceiling.
type DeepSeekClient struct {
	config Config
	http   *http.Client

	// sleep is swapped in tests to avoid real backoff delays
	sleep func(time.Duration)
}

// NewDeepSeekClient creates a live API-backed client
func NewDeepSeekClient(config Config) (*DeepSeekClient, error) {
	if config.APIKey == "" {
		return nil, core.NewValidationError("llm.api_key", "cannot be empty")
	}
	baseURL := strings.TrimSpace(config.BaseURL)
	if baseURL == "" {
		baseURL = "https://api.deepseek.com"
	}
	config.BaseURL = baseURL
	if config.Model == "" {
		config.Model = "deepseek-chat"
	}
	if config.Timeout <= 0 {
		config.Timeout = 120 * time.Second
	}

	return &DeepSeekClient{
		config: config,
		http:   &http.Client{Timeout: config.Timeout},
		sleep:  time.Sleep,
	}, nil
}

// Provider identifies the live strategy
func (c *DeepSeekClient) Provider() string { return "deepseek" }

// Complete sends one chat completion request. The returned usage belongs to
// the attempt that succeeded; failed attempts are never charged.
func (c *DeepSeekClient) Complete(ctx context.Context, req ports.CompletionRequest) (*ports.CompletionResponse, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, retryable, err := c.doRequest(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !retryable || attempt == maxAttempts {
			break
		}

		delay := backoffBase * (1 << (attempt - 1))
		log.Printf("[DeepSeekClient] attempt %d/%d failed (%v), retrying in %v", attempt, maxAttempts, err, delay)
		select {
		case <-ctx.Done():
			return nil, core.NewAPIError(attempt, ctx.Err())
		default:
		}
		c.sleep(delay)
	}
	return nil, core.NewAPIError(maxAttempts, lastErr)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// doRequest issues one attempt. The second return value reports whether the
// failure is transient and worth retrying.
func (c *DeepSeekClient) doRequest(ctx context.Context, req ports.CompletionRequest) (*ports.CompletionResponse, bool, error) {
	body := chatRequest{
		Model: c.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.Prompt},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, false, fmt.Errorf("marshal request: %w", err)
	}

	url := strings.TrimRight(c.config.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return nil, false, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		// Network errors and client timeouts are transient
		return nil, true, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respRaw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, true, fmt.Errorf("api status %d: %s", resp.StatusCode, truncate(string(respRaw), 200))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("api status %d: %s", resp.StatusCode, truncate(string(respRaw), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respRaw, &parsed); err != nil {
		return nil, false, fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, false, fmt.Errorf("empty choices in response")
	}

	return &ports.CompletionResponse{
		Text: strings.TrimSpace(parsed.Choices[0].Message.Content),
		Usage: ports.UsageData{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
			Model:            c.config.Model,
			Provider:         c.Provider(),
		},
	}, false, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
