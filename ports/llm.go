package ports

import "context"

// UsageData represents raw usage data from LLM provider APIs
type UsageData struct {
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
	Model            string `json:"model"`
	Provider         string `json:"provider"`
}

// CompletionRequest is one prompt sent to a strategy
type CompletionRequest struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// CompletionResponse carries the generated text together with the usage
// the call consumed, so every caller can commit cost exactly once.
type CompletionResponse struct {
	Text  string
	Usage UsageData
}

// LLMClient is an interchangeable completion strategy: live API-backed or
// deterministic offline simulation. Selected once at run start, never
// branched on per-call.
type LLMClient interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// Provider identifies the strategy ("deepseek" or "simulation")
	Provider() string
}
