package app

import (
	"context"
	"time"

	"ideaforge/internal/budget"
	"ideaforge/ports"
)

// defaultMaxTokens caps a single completion when the request does not say otherwise
const defaultMaxTokens = 4096

// llmCaller wraps every LLM invocation with budget enforcement: reserve
// before the call is issued, commit the actual usage of the successful
// attempt, release on failure. Retries happen inside the client, so a
// retried call is still committed exactly once.
type llmCaller struct {
	client  ports.LLMClient
	tracker *budget.Tracker
}

func newLLMCaller(client ports.LLMClient, tracker *budget.Tracker) *llmCaller {
	return &llmCaller{client: client, tracker: tracker}
}

func (c *llmCaller) call(ctx context.Context, stage string, req ports.CompletionRequest) (*ports.CompletionResponse, error) {
	if req.MaxTokens <= 0 {
		req.MaxTokens = defaultMaxTokens
	}

	estimate := (len(req.System)+len(req.Prompt))/4 + req.MaxTokens
	reservation, err := c.tracker.Reserve(stage, estimate)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.client.Complete(ctx, req)
	if err != nil {
		c.tracker.Release(reservation)
		return nil, err
	}

	if err := c.tracker.Commit(ctx, reservation, resp.Usage, time.Since(start)); err != nil {
		return nil, err
	}
	return resp, nil
}
