package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"ideaforge/domain/core"
	"ideaforge/domain/hypothesis"
	"ideaforge/domain/run"
	"ideaforge/models"
	"ideaforge/ports"
)

// Planner drafts an experiment plan for the accepted hypothesis and
// validates it against the execution policy before it is persisted.
type Planner struct {
	caller *llmCaller
}

// NewPlanner creates the planning service
func NewPlanner(caller *llmCaller) *Planner {
	return &Planner{caller: caller}
}

// Plan drafts and validates an experiment plan for the accepted hypothesis
func (p *Planner) Plan(ctx context.Context, h *hypothesis.Hypothesis) (*models.Plan, error) {
	summary, err := json.MarshalIndent(map[string]any{
		"id":    h.ID,
		"text":  h.Text,
		"round": h.Round,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: marshal hypothesis: %v", core.ErrGenerationFailed, err)
	}

	resp, err := p.caller.call(ctx, string(run.StagePlanning), ports.CompletionRequest{
		System:      planningAgentSystem,
		Prompt:      planningPrompt(string(summary)),
		Temperature: tempEvaluation,
	})
	if err != nil {
		if core.IsBudgetError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: planning: %v", core.ErrGenerationFailed, err)
	}

	var plan models.Plan
	if err := json.Unmarshal([]byte(extractJSON(resp.Text)), &plan); err != nil {
		return nil, core.NewValidationError("plan", fmt.Sprintf("response is not valid plan JSON: %v", err))
	}
	if plan.HypothesisID == "" {
		plan.HypothesisID = string(h.ID)
	}

	if err := ValidatePlan(&plan, h.ID); err != nil {
		return nil, err
	}
	log.Printf("[Planner] validated plan %s for hypothesis %s (%d datasets, %d metrics)",
		plan.ID, h.ID, len(plan.Datasets), len(plan.Metrics))
	return &plan, nil
}

// ValidatePlan enforces the execution policy: every structural section must
// be present, the plan must point at the hypothesis it was drafted for, and
// execution stays inference-only with training disallowed.
func ValidatePlan(plan *models.Plan, hypothesisID core.HypothesisID) error {
	if plan.ID == "" {
		return core.NewValidationError("id", "plan id is required")
	}
	if plan.HypothesisID == "" {
		return core.NewValidationError("hypothesis_id", "plan must reference a hypothesis")
	}
	if plan.HypothesisID != string(hypothesisID) {
		return core.NewValidationError("hypothesis_id",
			fmt.Sprintf("plan references %s, expected %s", plan.HypothesisID, hypothesisID))
	}
	if len(plan.Datasets) == 0 {
		return core.NewValidationError("datasets", "at least one dataset is required")
	}
	if len(plan.Models) == 0 {
		return core.NewValidationError("models", "at least one model is required")
	}
	if len(plan.Variables) == 0 {
		return core.NewValidationError("variables", "at least one variable is required")
	}
	for _, v := range plan.Variables {
		if v.Name == "" || len(v.Values) == 0 {
			return core.NewValidationError("variables", "each variable needs a name and values")
		}
	}
	if len(plan.Controls) == 0 {
		return core.NewValidationError("controls", "at least one control is required")
	}
	if len(plan.Metrics) == 0 {
		return core.NewValidationError("metrics", "at least one metric is required")
	}
	for _, m := range plan.Metrics {
		if m.Name == "" {
			return core.NewValidationError("metrics", "each metric needs a name")
		}
	}
	if plan.Budget.MaxRuns < 1 {
		return core.NewValidationError("budget.max_runs", "must be at least 1")
	}
	if plan.RetryPolicy.MaxRetries < 0 {
		return core.NewValidationError("retry_policy.max_retries", "must not be negative")
	}
	if plan.Execution.LLMMode != "api_inference" {
		return core.NewValidationError("execution.llm_mode",
			fmt.Sprintf("only api_inference is allowed, got %q", plan.Execution.LLMMode))
	}
	if plan.Execution.AllowTraining {
		return core.NewValidationError("execution.allow_training", "training is not allowed")
	}
	return nil
}

// extractJSON strips a markdown code fence if the model wrapped its JSON in one
func extractJSON(raw string) string {
	start := -1
	depth := 0
	for i, r := range raw {
		switch r {
		case '{':
			if start < 0 {
				start = i
			}
			depth++
		case '}':
			if start >= 0 {
				depth--
				if depth == 0 {
					return raw[start : i+1]
				}
			}
		}
	}
	return raw
}
