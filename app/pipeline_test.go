package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ideaforge/adapters/llm"
	"ideaforge/adapters/workspace"
	"ideaforge/domain/core"
	"ideaforge/domain/hypothesis"
	"ideaforge/domain/review"
	"ideaforge/domain/run"
	"ideaforge/internal/budget"
	apperrors "ideaforge/internal/errors"
)

func lenientThresholds() review.Thresholds {
	mins := make(map[review.Dimension]float64)
	for _, d := range review.Dimensions() {
		mins[d] = 7.0
	}
	return review.Thresholds{OverallMin: 7.0, DimensionMins: mins}
}

func impossibleThresholds() review.Thresholds {
	mins := make(map[review.Dimension]float64)
	for _, d := range review.Dimensions() {
		mins[d] = 10.0
	}
	return review.Thresholds{OverallMin: 10.0, DimensionMins: mins}
}

func pipelineConfig(th review.Thresholds) run.Config {
	return run.Config{
		Topic:            "prompt normalization for math word problems",
		NumIdeasPerRound: 2,
		MaxRefineRounds:  2,
		Thresholds:       th,
		Budget: run.BudgetCaps{
			MaxTokens:       500000,
			MaxComputeHours: 10,
			MaxWallClock:    time.Hour,
		},
		Seed:           42,
		DriftTolerance: 0.5,
	}
}

func runPipeline(t *testing.T, root string, cfg run.Config) *run.PipelineState {
	t.Helper()
	ws, err := workspace.Open(root)
	if err != nil {
		t.Fatal(err)
	}
	tracker := budget.NewTracker("", cfg.Budget, ws)
	p := NewPipeline(cfg, llm.NewSimClient(cfg.Seed), tracker, ws, ws, root)

	state, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("pipeline aborted: %v", err)
	}
	return state
}

func TestPipelineFullLifecycleSucceeds(t *testing.T) {
	root := t.TempDir()
	state := runPipeline(t, root, pipelineConfig(lenientThresholds()))

	if state.Stage != run.StageDone {
		t.Fatalf("expected done, got stage %s outcome %s", state.Stage, state.Outcome)
	}
	if state.Outcome != run.OutcomeStrSucceeded {
		t.Errorf("outcome = %s", state.Outcome)
	}
	if len(state.Hypotheses) != 2 {
		t.Errorf("expected 2 hypotheses, got %d", len(state.Hypotheses))
	}
	if state.AcceptedCount() == 0 {
		t.Error("expected at least one accepted hypothesis")
	}

	for _, rel := range []string{
		"meta/state.json",
		"meta/run_config.json",
		"meta/costs.jsonl",
		"meta/score_baseline.json",
		"02_hypotheses/hypotheses.json",
		"03_plan/plan.json",
		"05_writeup/report.md",
		filepath.Join("04_runs", state.RunID.String(), "results.json"),
		filepath.Join("04_runs", state.RunID.String(), "log.txt"),
		filepath.Join("04_runs", state.RunID.String(), "summary.xlsx"),
	} {
		if _, err := os.Stat(filepath.Join(root, rel)); err != nil {
			t.Errorf("missing artifact %s: %v", rel, err)
		}
	}
}

func TestPipelineLedgerRecordsExperimentStage(t *testing.T) {
	root := t.TempDir()
	state := runPipeline(t, root, pipelineConfig(lenientThresholds()))

	ws, err := workspace.Open(root)
	if err != nil {
		t.Fatal(err)
	}
	entries, err := ws.Entries(context.Background(), state.RunID.String())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) == 0 {
		t.Fatal("ledger is empty after a full run")
	}

	var experiment int
	for _, e := range entries {
		if e.RunID != state.RunID.String() {
			t.Errorf("entry %s carries run id %q, state has %q", e.ID, e.RunID, state.RunID)
		}
		if e.Stage != string(run.StageExperiment) {
			continue
		}
		experiment++
		if e.Tokens != 120000 {
			t.Errorf("experiment entry tokens = %d", e.Tokens)
		}
		if e.ComputeSeconds != 1.2*3600 {
			t.Errorf("experiment entry compute seconds = %.1f", e.ComputeSeconds)
		}
	}
	if experiment != 1 {
		t.Errorf("expected one experiment ledger entry, got %d", experiment)
	}
}

func TestFailureCodesMatchSentinels(t *testing.T) {
	cases := []struct {
		err  error
		code string
	}{
		{core.NewBudgetError("tokens", 1000, 100), apperrors.CodeBudgetExceeded},
		{core.NewValidationError("topic", "cannot be empty"), apperrors.CodeValidationError},
		{core.ErrScoreParse, apperrors.CodeScoreParse},
		{fmt.Errorf("%w: critic: gave up", core.ErrReviewFailed), apperrors.CodeReviewFailed},
		{fmt.Errorf("%w: no idea blocks", core.ErrGenerationFailed), apperrors.CodeGenerationFailed},
		{core.NewAPIError(4, fmt.Errorf("timeout")), apperrors.CodeAPIError},
		{fmt.Errorf("disk full"), apperrors.CodeInternalError},
	}
	for _, tc := range cases {
		if got := apperrors.GetCode(codedFailure(tc.err)); got != tc.code {
			t.Errorf("codedFailure(%v) = %s, want %s", tc.err, got, tc.code)
		}
	}
}

func TestPipelineReproducibleUnderSameSeed(t *testing.T) {
	a := runPipeline(t, t.TempDir(), pipelineConfig(lenientThresholds()))
	b := runPipeline(t, t.TempDir(), pipelineConfig(lenientThresholds()))

	if a.Fingerprint != b.Fingerprint {
		t.Fatal("identical configs must share a fingerprint")
	}
	if len(a.Hypotheses) != len(b.Hypotheses) {
		t.Fatalf("hypothesis counts differ: %d vs %d", len(a.Hypotheses), len(b.Hypotheses))
	}
	for i := range a.Hypotheses {
		if a.Hypotheses[i].Text != b.Hypotheses[i].Text {
			t.Errorf("hypothesis %d text differs between runs", i)
		}
		ma, mb := a.Hypotheses[i].LastMetaScore(), b.Hypotheses[i].LastMetaScore()
		if ma == nil || mb == nil || ma.Overall != mb.Overall {
			t.Errorf("hypothesis %d meta score differs between runs", i)
		}
	}
}

func TestPipelineRefinesThenAbandonsUnderImpossibleBar(t *testing.T) {
	state := runPipeline(t, t.TempDir(), pipelineConfig(impossibleThresholds()))

	if state.Stage != run.StageFailed {
		t.Fatalf("expected failed, got %s", state.Stage)
	}
	if state.Outcome != run.OutcomeStrAllAbandoned {
		t.Errorf("outcome = %s", state.Outcome)
	}
	for i, h := range state.Hypotheses {
		if h.Status != hypothesis.StatusAbandoned {
			t.Errorf("hypothesis %d status = %s", i, h.Status)
		}
		// One refinement happened before the round cap ended it
		if h.Round != 2 || len(h.Revisions) != 2 {
			t.Errorf("hypothesis %d: round=%d revisions=%d", i, h.Round, len(h.Revisions))
		}
		if h.Revisions[0].Verdict == nil || h.Revisions[0].Verdict.Accepted {
			t.Errorf("hypothesis %d round 1 verdict missing or wrong", i)
		}
	}
}

func TestPipelineBudgetExhaustionFailsCleanly(t *testing.T) {
	cfg := pipelineConfig(lenientThresholds())
	cfg.Budget.MaxTokens = 100 // below a single call's reservation

	state := runPipeline(t, t.TempDir(), cfg)
	if state.Stage != run.StageFailed {
		t.Fatalf("expected failed, got %s", state.Stage)
	}
	if state.Outcome != run.OutcomeStrBudgetExceeded {
		t.Errorf("outcome = %s", state.Outcome)
	}
}

func TestPipelineInvalidConfigFailsBeforeAnyCall(t *testing.T) {
	cfg := pipelineConfig(lenientThresholds())
	cfg.Topic = ""

	root := t.TempDir()
	ws, _ := workspace.Open(root)
	tracker := budget.NewTracker("", cfg.Budget, ws)
	p := NewPipeline(cfg, llm.NewSimClient(cfg.Seed), tracker, ws, ws, root)

	state, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("pipeline aborted: %v", err)
	}
	if state.Stage != run.StageFailed || state.Outcome != run.OutcomeStrValidation {
		t.Errorf("stage=%s outcome=%s", state.Stage, state.Outcome)
	}
	if totals := tracker.Totals(); totals.Tokens != 0 {
		t.Errorf("invalid config consumed %d tokens", totals.Tokens)
	}
}
