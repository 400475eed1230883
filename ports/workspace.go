package ports

import (
	"ideaforge/domain/hypothesis"
	"ideaforge/domain/run"
	"ideaforge/models"
)

// WorkspaceRepository is the per-project directory tree the core reads
// context from and writes audit records into. The workspace is an
// append-only audit log, not a queue: the core is single-project sequential
// and is the only writer.
type WorkspaceRepository interface {
	// Inputs
	Brief() (string, error)
	Literature() (string, error)

	// Audit records, persisted after every state change
	WriteRunConfig(cfg run.Config) error
	WriteState(state *run.PipelineState) error
	WriteHypotheses(hs []*hypothesis.Hypothesis) error
	ReadHypotheses() ([]*hypothesis.Hypothesis, error)

	// Plan and experiment artifacts
	WritePlan(plan *models.Plan) error
	ReadPlan() (*models.Plan, error)
	WriteRunArtifacts(runID string, plan *models.Plan, result *models.ExperimentResult, logLines []string) error

	// Writeup
	WriteReport(markdown string) error
	ReadReport() (string, error)

	// Score baseline for reproducibility drift checks
	WriteScoreBaseline(b *models.ScoreBaseline) error
	ReadScoreBaseline() (*models.ScoreBaseline, error)
}
