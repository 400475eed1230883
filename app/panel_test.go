package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"ideaforge/domain/core"
	"ideaforge/domain/hypothesis"
	"ideaforge/domain/run"
	"ideaforge/internal/budget"
	"ideaforge/ports"
)

// stubClient scripts completion responses per call, keyed on the system
// prompt, and records every request for assertions.
type stubClient struct {
	mu       sync.Mutex
	requests []ports.CompletionRequest
	respond  func(n int, req ports.CompletionRequest) (string, error)
}

func (s *stubClient) Complete(ctx context.Context, req ports.CompletionRequest) (*ports.CompletionResponse, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	n := len(s.requests)
	s.mu.Unlock()

	text, err := s.respond(n, req)
	if err != nil {
		return nil, err
	}
	tokens := (len(req.System) + len(req.Prompt) + len(text)) / 4
	return &ports.CompletionResponse{
		Text:  text,
		Usage: ports.UsageData{TotalTokens: tokens, Model: "stub", Provider: "stub"},
	}, nil
}

func (s *stubClient) Provider() string { return "stub" }

func (s *stubClient) callsMatching(substr string) []ports.CompletionRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ports.CompletionRequest
	for _, r := range s.requests {
		if strings.Contains(r.System, substr) {
			out = append(out, r)
		}
	}
	return out
}

func scoreJSON(overall float64, rationale string) string {
	return fmt.Sprintf(`{
  "scores": {"novelty": %.1f, "feasibility": %.1f, "significance": %.1f, "clarity": %.1f, "relevance": %.1f},
  "overall": %.2f,
  "rationale": %q
}`, overall, overall, overall, overall, overall, overall, rationale)
}

func testTracker() *budget.Tracker {
	return budget.NewTracker("test-run", run.BudgetCaps{
		MaxTokens: 1000000, MaxComputeHours: 10, MaxWallClock: time.Hour,
	})
}

func reviewerResponder(t *testing.T) func(int, ports.CompletionRequest) (string, error) {
	return func(n int, req ports.CompletionRequest) (string, error) {
		switch {
		case strings.Contains(req.System, "Reviewer A"):
			return scoreJSON(7.2, "critic concerns"), nil
		case strings.Contains(req.System, "Reviewer B"):
			return scoreJSON(9.1, "innovator enthusiasm"), nil
		case strings.Contains(req.System, "Meta Reviewer"):
			if !strings.Contains(req.Prompt, "critic concerns") || !strings.Contains(req.Prompt, "innovator enthusiasm") {
				t.Errorf("meta prompt missing reviewer assessments:\n%s", req.Prompt)
			}
			return scoreJSON(8.3, "balanced judgement"), nil
		default:
			return "", fmt.Errorf("unexpected system prompt: %s", req.System)
		}
	}
}

func TestPanelReviewCollectsAllThreeRoles(t *testing.T) {
	stub := &stubClient{respond: reviewerResponder(t)}
	panel := NewPanel(newLLMCaller(stub, testTracker()))

	h := hypothesis.New("### Idea 1: a testable idea")
	result, err := panel.Review(context.Background(), "topic", "", h)
	if err != nil {
		t.Fatal(err)
	}

	if result.Critic == nil || result.Innovator == nil || result.Meta == nil {
		t.Fatalf("incomplete panel result: %+v", result)
	}
	if result.Critic.Overall != 7.2 || result.Innovator.Overall != 9.1 || result.Meta.Overall != 8.3 {
		t.Errorf("scores misrouted: critic=%.1f innovator=%.1f meta=%.1f",
			result.Critic.Overall, result.Innovator.Overall, result.Meta.Overall)
	}

	// Meta must be asked exactly once, after both reviewers
	if metaCalls := stub.callsMatching("Meta Reviewer"); len(metaCalls) != 1 {
		t.Errorf("expected 1 meta call, got %d", len(metaCalls))
	}
}

func TestPanelMetaPromptCarriesReviewerScores(t *testing.T) {
	stub := &stubClient{respond: reviewerResponder(t)}
	panel := NewPanel(newLLMCaller(stub, testTracker()))

	if _, err := panel.Review(context.Background(), "topic", "", hypothesis.New("idea")); err != nil {
		t.Fatal(err)
	}

	metaCalls := stub.callsMatching("Meta Reviewer")
	if len(metaCalls) != 1 {
		t.Fatalf("expected 1 meta call, got %d", len(metaCalls))
	}
	prompt := metaCalls[0].Prompt

	// The chair adjudicates on the numbers, not just the prose: both overall
	// scores and every per-dimension line must reach it.
	for _, want := range []string{
		"Overall: 7.2/10",
		"Overall: 9.1/10",
		"- novelty: 7.2/10",
		"- novelty: 9.1/10",
		"- feasibility: 7.2/10",
		"- relevance: 9.1/10",
		"critic concerns",
		"innovator enthusiasm",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("meta prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestPanelReRequestsUnparseableScoreOnce(t *testing.T) {
	criticCalls := 0
	stub := &stubClient{}
	stub.respond = func(n int, req ports.CompletionRequest) (string, error) {
		switch {
		case strings.Contains(req.System, "Reviewer A"):
			criticCalls++
			if criticCalls == 1 {
				return "I refuse to emit JSON today.", nil
			}
			return scoreJSON(7.0, "second attempt"), nil
		case strings.Contains(req.System, "Reviewer B"):
			return scoreJSON(8.8, "fine"), nil
		case strings.Contains(req.System, "Meta Reviewer"):
			return scoreJSON(8.0, "fine"), nil
		}
		return "", fmt.Errorf("unexpected system prompt")
	}

	panel := NewPanel(newLLMCaller(stub, testTracker()))
	result, err := panel.Review(context.Background(), "topic", "", hypothesis.New("idea"))
	if err != nil {
		t.Fatal(err)
	}
	if criticCalls != 2 {
		t.Errorf("expected exactly one re-request, critic was called %d times", criticCalls)
	}
	if result.Critic.Rationale != "second attempt" {
		t.Errorf("re-requested score not used: %q", result.Critic.Rationale)
	}
}

func TestPanelFailsAfterSecondUnparseableScore(t *testing.T) {
	stub := &stubClient{}
	stub.respond = func(n int, req ports.CompletionRequest) (string, error) {
		if strings.Contains(req.System, "Reviewer A") {
			return "still not JSON", nil
		}
		return scoreJSON(8.0, "fine"), nil
	}

	panel := NewPanel(newLLMCaller(stub, testTracker()))
	_, err := panel.Review(context.Background(), "topic", "", hypothesis.New("idea"))
	if !errors.Is(err, core.ErrReviewFailed) {
		t.Fatalf("expected ErrReviewFailed, got %v", err)
	}
}

func TestPanelPropagatesBudgetDenial(t *testing.T) {
	stub := &stubClient{respond: reviewerResponder(t)}
	tracker := budget.NewTracker("test-run", run.BudgetCaps{
		MaxTokens: 10, MaxComputeHours: 10, MaxWallClock: time.Hour,
	})

	panel := NewPanel(newLLMCaller(stub, tracker))
	_, err := panel.Review(context.Background(), "topic", "", hypothesis.New("idea"))
	if !core.IsBudgetError(err) {
		t.Fatalf("budget denial must propagate unwrapped, got %v", err)
	}
}
