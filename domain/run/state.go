package run

import (
	"ideaforge/domain/core"
	"ideaforge/domain/hypothesis"
)

// Stage is one phase of the pipeline state machine
type Stage string

const (
	StageIdeation   Stage = "ideation"
	StageReview     Stage = "review"
	StageDecision   Stage = "decision"
	StageRefine     Stage = "refine"
	StagePlanning   Stage = "planning"
	StageExperiment Stage = "experiment"
	StageWriteup    Stage = "writeup"
	StageDone       Stage = "done"
	StageFailed     Stage = "failed"
)

// Terminal reports whether the stage ends the run
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageFailed
}

// StepOutcome is the result of the step just executed within a stage
type StepOutcome string

const (
	// OutcomeOK advances along the happy path
	OutcomeOK StepOutcome = "ok"
	// OutcomeAccepted leaves the decision stage with at least one accepted
	// hypothesis and nothing left to refine
	OutcomeAccepted StepOutcome = "accepted"
	// OutcomeRejected leaves the decision stage with refinable candidates remaining
	OutcomeRejected StepOutcome = "rejected"
	// OutcomeExhausted leaves the decision stage with every candidate abandoned
	OutcomeExhausted StepOutcome = "exhausted"
	// OutcomeFailed is an unrecoverable error or budget exhaustion in any stage
	OutcomeFailed StepOutcome = "failed"
)

// Terminal outcome strings reported in run output
const (
	OutcomeStrSucceeded      = "succeeded"
	OutcomeStrBudgetExceeded = "failed_budget_exceeded"
	OutcomeStrAllAbandoned   = "failed_all_abandoned"
	OutcomeStrAPIError       = "failed_api_error"
	OutcomeStrValidation     = "failed_validation"
)

// Next is the pure transition function of the stage machine. Terminal
// stages absorb every outcome; OutcomeFailed reaches Failed from anywhere.
func Next(current Stage, outcome StepOutcome) Stage {
	if current.Terminal() {
		return current
	}
	if outcome == OutcomeFailed {
		return StageFailed
	}

	switch current {
	case StageIdeation:
		return StageReview
	case StageReview:
		return StageDecision
	case StageDecision:
		switch outcome {
		case OutcomeAccepted:
			return StagePlanning
		case OutcomeRejected:
			return StageRefine
		case OutcomeExhausted:
			return StageFailed
		}
		return StageDecision
	case StageRefine:
		return StageReview
	case StagePlanning:
		return StageExperiment
	case StageExperiment:
		return StageWriteup
	case StageWriteup:
		return StageDone
	}
	return StageFailed
}

// PipelineState is the persisted view of a run. It is mutated only by the
// stage controller and written to the workspace after every transition, so
// a crashed run leaves the last committed stage visible for audit.
type PipelineState struct {
	RunID       core.RunID               `json:"run_id"`
	Stage       Stage                    `json:"stage"`
	Round       int                      `json:"round"`
	Hypotheses  []*hypothesis.Hypothesis `json:"hypotheses"`
	Outcome     string                   `json:"outcome,omitempty"`
	Fingerprint core.Hash                `json:"fingerprint"`
	Warnings    []string                 `json:"warnings,omitempty"`
	StartedAt   core.Timestamp           `json:"started_at"`
	UpdatedAt   core.Timestamp           `json:"updated_at"`
}

// NewPipelineState creates the initial state for a run
func NewPipelineState(cfg Config) *PipelineState {
	now := core.Now()
	return &PipelineState{
		RunID:       core.RunID(core.NewID()),
		Stage:       StageIdeation,
		Round:       1,
		Fingerprint: cfg.Fingerprint(),
		StartedAt:   now,
		UpdatedAt:   now,
	}
}

// Advance applies the transition function and stamps the update time
func (s *PipelineState) Advance(outcome StepOutcome) {
	s.Stage = Next(s.Stage, outcome)
	s.UpdatedAt = core.Now()
}

// AcceptedCount returns how many hypotheses reached acceptance
func (s *PipelineState) AcceptedCount() int {
	n := 0
	for _, h := range s.Hypotheses {
		if h.Status == hypothesis.StatusAccepted {
			n++
		}
	}
	return n
}

// Unresolved returns the hypotheses still in play (not accepted, not abandoned)
func (s *PipelineState) Unresolved() []*hypothesis.Hypothesis {
	var open []*hypothesis.Hypothesis
	for _, h := range s.Hypotheses {
		if !h.Status.Terminal() {
			open = append(open, h)
		}
	}
	return open
}
