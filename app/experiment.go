package app

import (
	"context"
	"fmt"
	"log"
	"math/rand"

	"ideaforge/domain/core"
	"ideaforge/domain/run"
	"ideaforge/models"
)

// Simulated experiment cost. The experiment stage issues no completion
// calls, so these are recorded on the result only, not committed against
// the run budget.
const (
	simExperimentTokens       = 120000
	simExperimentComputeHours = 1.2
)

// Experimenter executes the validated plan. Execution is simulated:
// metrics are synthesized deterministically from the run seed so repeated
// runs with the same configuration produce identical result records.
type Experimenter struct {
	seed int64
}

// NewExperimenter creates the experiment runner
func NewExperimenter(seed int64) *Experimenter {
	return &Experimenter{seed: seed}
}

// Run executes the plan and returns the structured result record plus the
// execution log lines for the run artifact directory.
func (e *Experimenter) Run(ctx context.Context, runID core.RunID, plan *models.Plan) (*models.ExperimentResult, []string, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	rng := rand.New(rand.NewSource(e.seed ^ int64(len(plan.ID))))

	baseline := round3(0.70 + rng.Float64()*0.06)
	treated := round3(baseline + 0.015 + rng.Float64()*0.02)
	biasGap := round3(0.04 + rng.Float64()*0.03)

	metrics := map[string]float64{
		"baseline_accuracy": baseline,
		"treated_accuracy":  treated,
		"improvement":       round3(treated - baseline),
		"bias_gap":          biasGap,
	}
	for _, m := range plan.Metrics {
		if _, ok := metrics[m.Name]; !ok {
			metrics[m.Name] = round3(0.5 + rng.Float64()*0.4)
		}
	}

	trace := []string{
		fmt.Sprintf("loaded %d dataset(s): %v", len(plan.Datasets), plan.Datasets),
		fmt.Sprintf("evaluated %d model(s) over %d variable(s)", len(plan.Models), len(plan.Variables)),
		fmt.Sprintf("baseline accuracy %.3f, treated accuracy %.3f", baseline, treated),
		fmt.Sprintf("completed within budget: max_runs=%d", plan.Budget.MaxRuns),
	}

	result := &models.ExperimentResult{
		RunID:         runID.String(),
		HypothesisID:  plan.HypothesisID,
		PlanID:        plan.ID,
		Metrics:       metrics,
		DecisionTrace: trace,
		Cost: models.ExperimentCost{
			TokenUsage:   simExperimentTokens,
			ComputeHours: simExperimentComputeHours,
		},
		Status: "success",
		Mode:   "simulation",
	}

	logLines := make([]string, 0, len(trace)+2)
	logLines = append(logLines, fmt.Sprintf("stage=%s plan=%s", run.StageExperiment, plan.ID))
	logLines = append(logLines, trace...)
	logLines = append(logLines, "status=success")

	log.Printf("[Experiment] plan %s: improvement=%.3f tokens=%d compute=%.1fh",
		plan.ID, metrics["improvement"], simExperimentTokens, simExperimentComputeHours)
	return result, logLines, nil
}

func round3(v float64) float64 {
	return float64(int(v*1000+0.5)) / 1000
}
