package app

import (
	"testing"

	"ideaforge/domain/core"
	"ideaforge/models"
)

func validPlan() *models.Plan {
	return &models.Plan{
		ID:           "plan-1",
		HypothesisID: "hyp-1",
		Datasets:     []string{"gsm8k_tiny"},
		Models:       []string{"deepseek-chat"},
		Variables:    []models.PlanVariable{{Name: "prompt_variant", Values: []string{"baseline", "normalized"}}},
		Controls:     []string{"fixed_seed"},
		Metrics:      []models.PlanMetric{{Name: "accuracy", Aggregation: "mean"}},
		Budget:       models.PlanBudget{MaxRuns: 3, MaxComputeHours: 1.5, MaxTokenUsage: 150000},
		RetryPolicy:  models.RetryPolicy{MaxRetries: 2},
		Execution:    models.PlanExecution{LLMMode: "api_inference", AllowTraining: false},
	}
}

func TestValidatePlanAccepts(t *testing.T) {
	if err := ValidatePlan(validPlan(), core.HypothesisID("hyp-1")); err != nil {
		t.Fatalf("valid plan rejected: %v", err)
	}
}

func TestValidatePlanRejections(t *testing.T) {
	cases := map[string]func(*models.Plan){
		"missing id":            func(p *models.Plan) { p.ID = "" },
		"wrong hypothesis":      func(p *models.Plan) { p.HypothesisID = "other" },
		"no datasets":           func(p *models.Plan) { p.Datasets = nil },
		"no models":             func(p *models.Plan) { p.Models = nil },
		"no variables":          func(p *models.Plan) { p.Variables = nil },
		"unnamed variable":      func(p *models.Plan) { p.Variables = []models.PlanVariable{{Values: []string{"a"}}} },
		"variable without vals": func(p *models.Plan) { p.Variables = []models.PlanVariable{{Name: "v"}} },
		"no controls":           func(p *models.Plan) { p.Controls = nil },
		"no metrics":            func(p *models.Plan) { p.Metrics = nil },
		"unnamed metric":        func(p *models.Plan) { p.Metrics = []models.PlanMetric{{Aggregation: "mean"}} },
		"zero max runs":         func(p *models.Plan) { p.Budget.MaxRuns = 0 },
		"negative retries":      func(p *models.Plan) { p.RetryPolicy.MaxRetries = -1 },
		"training enabled":      func(p *models.Plan) { p.Execution.AllowTraining = true },
		"wrong llm mode":        func(p *models.Plan) { p.Execution.LLMMode = "local_training" },
	}

	for name, mutate := range cases {
		p := validPlan()
		mutate(p)
		err := ValidatePlan(p, core.HypothesisID("hyp-1"))
		if !core.IsValidationError(err) {
			t.Errorf("%s: expected validation error, got %v", name, err)
		}
	}
}
