package app

import (
	"context"
	"errors"
	"log"
	"path/filepath"
	"time"

	"ideaforge/adapters/excel"
	"ideaforge/domain/core"
	"ideaforge/domain/hypothesis"
	"ideaforge/domain/review"
	"ideaforge/domain/run"
	"ideaforge/internal/budget"
	apperrors "ideaforge/internal/errors"
	"ideaforge/models"
	"ideaforge/ports"
)

// Pipeline is the stage controller. It owns the run state, drives the
// services in stage order through the pure transition function, and
// persists the state after every transition so a crash leaves the last
// committed stage visible for audit.
type Pipeline struct {
	cfg     run.Config
	ws      ports.WorkspaceRepository
	ledger  ports.CostLedger
	tracker *budget.Tracker
	root    string

	ideation     *Ideation
	panel        *Panel
	refiner      *Refiner
	planner      *Planner
	experimenter *Experimenter
	writer       *Writer
	drift        *DriftChecker
}

// NewPipeline wires the stage controller. The workspace doubles as the
// primary cost ledger; extra ledgers (a database mirror) are attached to
// the tracker by the caller.
func NewPipeline(cfg run.Config, client ports.LLMClient, tracker *budget.Tracker, ws ports.WorkspaceRepository, ledger ports.CostLedger, root string) *Pipeline {
	caller := newLLMCaller(client, tracker)
	return &Pipeline{
		cfg:          cfg,
		ws:           ws,
		ledger:       ledger,
		tracker:      tracker,
		root:         root,
		ideation:     NewIdeation(caller),
		panel:        NewPanel(caller),
		refiner:      NewRefiner(caller),
		planner:      NewPlanner(caller),
		experimenter: NewExperimenter(cfg.Seed),
		writer:       NewWriter(caller),
		drift:        NewDriftChecker(ws, cfg.DriftTolerance),
	}
}

// Run executes the full lifecycle and returns the terminal state. Stage
// failures are absorbed into the state's outcome; the returned error is
// reserved for persistence failures the controller cannot record.
func (p *Pipeline) Run(ctx context.Context) (*run.PipelineState, error) {
	state := run.NewPipelineState(p.cfg)
	if id := p.tracker.RunID(); id != "" {
		state.RunID = core.RunID(id)
	}

	// Configuration is rejected before any budget is consumed
	if err := p.cfg.Validate(); err != nil {
		log.Printf("[Pipeline] invalid configuration: %v", err)
		return state, p.fail(state, err)
	}

	if err := p.ws.WriteRunConfig(p.cfg); err != nil {
		return state, err
	}
	if err := p.persist(state); err != nil {
		return state, err
	}

	brief, err := p.ws.Brief()
	if err != nil {
		return state, p.fail(state, err)
	}
	references, err := p.ws.Literature()
	if err != nil {
		return state, p.fail(state, err)
	}
	background := p.cfg.Background
	if background == "" {
		background = brief
	}

	// Ideation
	hs, err := p.ideation.Generate(ctx, p.cfg, background, references)
	if err != nil {
		return state, p.fail(state, err)
	}
	state.Hypotheses = hs
	if err := p.ws.WriteHypotheses(state.Hypotheses); err != nil {
		return state, err
	}
	if err := p.advance(state, run.OutcomeOK); err != nil {
		return state, err
	}

	// Review / decision / refinement loop
	for state.Stage == run.StageReview {
		panels, err := p.reviewRound(ctx, state)
		if err != nil {
			return state, p.fail(state, err)
		}
		if err := p.advance(state, run.OutcomeOK); err != nil {
			return state, err
		}

		outcome := p.decide(state, panels)
		if err := p.ws.WriteHypotheses(state.Hypotheses); err != nil {
			return state, err
		}
		if outcome == run.OutcomeExhausted {
			state.Outcome = run.OutcomeStrAllAbandoned
			log.Printf("[Pipeline] run %s failed: every hypothesis abandoned", state.RunID)
		}
		if err := p.advance(state, outcome); err != nil {
			return state, err
		}

		if state.Stage == run.StageRefine {
			if err := p.refineRound(ctx, state, panels); err != nil {
				return state, p.fail(state, err)
			}
			if err := p.ws.WriteHypotheses(state.Hypotheses); err != nil {
				return state, err
			}
			if err := p.advance(state, run.OutcomeOK); err != nil {
				return state, err
			}
		}
	}
	if state.Stage == run.StageFailed {
		return state, p.persist(state)
	}

	// Planning
	best := hypothesis.Best(state.Hypotheses)
	if best == nil {
		return state, p.fail(state, core.NewValidationError("pipeline", "no hypothesis available for planning"))
	}
	plan, err := p.planner.Plan(ctx, best)
	if err != nil {
		return state, p.fail(state, err)
	}
	if err := p.ws.WritePlan(plan); err != nil {
		return state, err
	}
	if err := p.advance(state, run.OutcomeOK); err != nil {
		return state, err
	}

	// Experiment
	result, logLines, err := p.experimenter.Run(ctx, state.RunID, plan)
	if err != nil {
		return state, p.fail(state, err)
	}
	if err := p.ws.WriteRunArtifacts(state.RunID.String(), plan, result, logLines); err != nil {
		return state, err
	}
	if err := p.recordExperimentCost(ctx, state, result); err != nil {
		return state, err
	}
	if err := p.advance(state, run.OutcomeOK); err != nil {
		return state, err
	}

	// Writeup
	report, err := p.writer.Write(ctx, p.cfg.Topic, best)
	if err != nil {
		return state, p.fail(state, err)
	}
	if err := p.ws.WriteReport(report); err != nil {
		return state, err
	}

	warnings, err := p.drift.Check(state.RunID, p.cfg.Seed, state.Fingerprint, state.Hypotheses)
	if err != nil {
		return state, p.fail(state, err)
	}
	state.Warnings = append(state.Warnings, warnings...)

	p.exportSummary(ctx, state)

	state.Outcome = run.OutcomeStrSucceeded
	if err := p.advance(state, run.OutcomeOK); err != nil {
		return state, err
	}
	log.Printf("[Pipeline] run %s succeeded: %d accepted, %d warnings",
		state.RunID, state.AcceptedCount(), len(state.Warnings))
	return state, nil
}

// reviewRound reviews every unresolved hypothesis and returns the panel
// results keyed by hypothesis.
func (p *Pipeline) reviewRound(ctx context.Context, state *run.PipelineState) (map[core.HypothesisID]*review.PanelResult, error) {
	references, err := p.ws.Literature()
	if err != nil {
		return nil, err
	}

	panels := make(map[core.HypothesisID]*review.PanelResult)
	for _, h := range state.Unresolved() {
		panel, err := p.panel.Review(ctx, p.cfg.Topic, references, h)
		if err != nil {
			return nil, err
		}
		panels[h.ID] = panel
	}
	return panels, nil
}

// decide applies the acceptance thresholds to every reviewed hypothesis and
// picks the decision outcome: refine while refinable candidates remain,
// plan once nothing is left to refine and something was accepted, exhausted
// when every candidate is abandoned.
func (p *Pipeline) decide(state *run.PipelineState, panels map[core.HypothesisID]*review.PanelResult) run.StepOutcome {
	refinable := 0
	for _, h := range state.Hypotheses {
		panel, ok := panels[h.ID]
		if !ok {
			continue
		}
		verdict := p.cfg.Thresholds.Evaluate(panel.Meta)
		if err := h.RecordReviews(panel, verdict); err != nil {
			log.Printf("[Pipeline] hypothesis %s: %v", h.ID, err)
			continue
		}
		if verdict.Accepted {
			log.Printf("[Pipeline] hypothesis %s accepted at round %d (overall %.1f)", h.ID, h.Round, verdict.Overall)
			continue
		}
		if h.Round >= p.cfg.MaxRefineRounds {
			h.Abandon()
			log.Printf("[Pipeline] hypothesis %s abandoned after round %d", h.ID, h.Round)
			continue
		}
		refinable++
	}

	if refinable > 0 {
		return run.OutcomeRejected
	}
	if state.AcceptedCount() > 0 {
		return run.OutcomeAccepted
	}
	return run.OutcomeExhausted
}

// refineRound revises every still-rejected hypothesis into its next round
func (p *Pipeline) refineRound(ctx context.Context, state *run.PipelineState, panels map[core.HypothesisID]*review.PanelResult) error {
	for _, h := range state.Hypotheses {
		if h.Status != hypothesis.StatusRejected {
			continue
		}
		panel, ok := panels[h.ID]
		if !ok {
			continue
		}
		text, err := p.refiner.Refine(ctx, p.cfg.Topic, h, panel)
		if err != nil {
			return err
		}
		if err := h.BeginRefinement(text, p.cfg.MaxRefineRounds); err != nil {
			if errors.Is(err, core.ErrRoundLimitReached) {
				continue
			}
			return err
		}
		if h.Round > state.Round {
			state.Round = h.Round
		}
	}
	return nil
}

// recordExperimentCost appends the experiment stage's consumption to the
// cost ledger. The entry is audit-only: it is not committed against the
// tracker caps because the simulated stage issues no completion calls.
func (p *Pipeline) recordExperimentCost(ctx context.Context, state *run.PipelineState, result *models.ExperimentResult) error {
	if p.ledger == nil {
		return nil
	}
	return p.ledger.AppendEntry(ctx, models.CostLedgerEntry{
		ID:             core.NewID().String(),
		RunID:          state.RunID.String(),
		Stage:          string(run.StageExperiment),
		Tokens:         result.Cost.TokenUsage,
		ComputeSeconds: result.Cost.ComputeHours * 3600,
		Provider:       result.Mode,
		CreatedAt:      time.Now(),
	})
}

// exportSummary writes the xlsx run summary next to the run artifacts.
// Export failure is a warning, not a run failure.
func (p *Pipeline) exportSummary(ctx context.Context, state *run.PipelineState) {
	if p.ledger == nil || p.root == "" {
		return
	}
	entries, err := p.ledger.Entries(ctx, state.RunID.String())
	if err != nil {
		log.Printf("[Pipeline] WARNING: could not read ledger for summary: %v", err)
		return
	}
	path := filepath.Join(p.root, "04_runs", state.RunID.String(), "summary.xlsx")
	if err := excel.WriteRunSummary(path, state, entries); err != nil {
		log.Printf("[Pipeline] WARNING: could not write run summary workbook: %v", err)
	}
}

// advance applies one transition and persists the new state
func (p *Pipeline) advance(state *run.PipelineState, outcome run.StepOutcome) error {
	state.Advance(outcome)
	return p.persist(state)
}

// fail maps the error to a terminal outcome string, moves the state to
// Failed and persists it. The original error is absorbed into the state.
func (p *Pipeline) fail(state *run.PipelineState, err error) error {
	coded := codedFailure(err)
	state.Outcome = failureOutcome(err)
	log.Printf("[Pipeline] run %s failed at stage %s [%s]: %v (outcome %s)",
		state.RunID, state.Stage, apperrors.GetCode(coded), coded, state.Outcome)
	state.Advance(run.OutcomeFailed)
	return p.persist(state)
}

func (p *Pipeline) persist(state *run.PipelineState) error {
	return p.ws.WriteState(state)
}

// codedFailure attaches the taxonomy code matching the sentinel so operator
// logs carry a stable classifier alongside the outcome string.
func codedFailure(err error) error {
	code := apperrors.CodeInternalError
	switch {
	case core.IsBudgetError(err):
		code = apperrors.CodeBudgetExceeded
	case core.IsValidationError(err):
		code = apperrors.CodeValidationError
	case errors.Is(err, core.ErrScoreParse):
		code = apperrors.CodeScoreParse
	case errors.Is(err, core.ErrReviewFailed):
		code = apperrors.CodeReviewFailed
	case errors.Is(err, core.ErrGenerationFailed):
		code = apperrors.CodeGenerationFailed
	case core.IsAPIError(err):
		code = apperrors.CodeAPIError
	}
	return apperrors.WithCode(code, err)
}

func failureOutcome(err error) string {
	switch {
	case core.IsBudgetError(err):
		return run.OutcomeStrBudgetExceeded
	case core.IsValidationError(err):
		return run.OutcomeStrValidation
	default:
		return run.OutcomeStrAPIError
	}
}
