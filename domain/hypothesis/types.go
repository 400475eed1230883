package hypothesis

import (
	"ideaforge/domain/core"
	"ideaforge/domain/review"
)

// Status tracks a hypothesis through the review/refinement lifecycle
type Status string

const (
	StatusPending   Status = "pending"
	StatusRefining  Status = "refining"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusAbandoned Status = "abandoned"
)

// Terminal reports whether no further rounds apply to this status
func (s Status) Terminal() bool {
	return s == StatusAccepted || s == StatusAbandoned
}

// Revision is one version of the hypothesis text with the reviews it received.
// History is append-only: a superseded revision keeps its scores for audit.
type Revision struct {
	Round   int                 `json:"round"`
	Text    string              `json:"text"`
	Reviews *review.PanelResult `json:"reviews,omitempty"`
	Verdict *review.Verdict     `json:"verdict,omitempty"`
}

// Hypothesis is a structured, versioned research claim under evaluation.
// Owned by the refinement loop for its lifetime; immutable once accepted.
type Hypothesis struct {
	ID        core.HypothesisID `json:"id"`
	Text      string            `json:"text"`
	Round     int               `json:"round"`
	Status    Status            `json:"status"`
	Revisions []Revision        `json:"revisions"`
	CreatedAt core.Timestamp    `json:"created_at"`
}

// New creates a round-1 hypothesis in pending state
func New(text string) *Hypothesis {
	return &Hypothesis{
		ID:        core.HypothesisID(core.NewID()),
		Text:      text,
		Round:     1,
		Status:    StatusPending,
		Revisions: []Revision{{Round: 1, Text: text}},
		CreatedAt: core.Now(),
	}
}

// CurrentRevision returns the revision under evaluation
func (h *Hypothesis) CurrentRevision() *Revision {
	if len(h.Revisions) == 0 {
		return nil
	}
	return &h.Revisions[len(h.Revisions)-1]
}

// RecordReviews attaches the round's panel result and verdict to the
// current revision and updates the status from the verdict.
func (h *Hypothesis) RecordReviews(panel *review.PanelResult, verdict review.Verdict) error {
	if h.Status.Terminal() {
		return core.ErrHypothesisFrozen
	}
	rev := h.CurrentRevision()
	if rev == nil {
		return core.NewValidationError("hypothesis", "no revision to review")
	}
	rev.Reviews = panel
	rev.Verdict = &verdict

	if verdict.Accepted {
		h.Status = StatusAccepted
	} else {
		h.Status = StatusRejected
	}
	return nil
}

// BeginRefinement transitions a rejected hypothesis into the next round with
// a new revision, enforcing the round cap: once maxRounds is reached the
// hypothesis is abandoned instead of looping.
func (h *Hypothesis) BeginRefinement(refinedText string, maxRounds int) error {
	if h.Status.Terminal() {
		return core.ErrHypothesisFrozen
	}
	if h.Status != StatusRejected {
		return core.NewValidationError("hypothesis", "only rejected hypotheses can be refined")
	}
	if h.Round >= maxRounds {
		h.Status = StatusAbandoned
		return core.ErrRoundLimitReached
	}

	h.Round++
	h.Text = refinedText
	h.Status = StatusRefining
	h.Revisions = append(h.Revisions, Revision{Round: h.Round, Text: refinedText})
	return nil
}

// Abandon marks the hypothesis terminal without acceptance
func (h *Hypothesis) Abandon() {
	if !h.Status.Terminal() {
		h.Status = StatusAbandoned
	}
}

// LastMetaScore returns the most recent Meta review, nil before any review
func (h *Hypothesis) LastMetaScore() *review.Score {
	for i := len(h.Revisions) - 1; i >= 0; i-- {
		if h.Revisions[i].Reviews != nil && h.Revisions[i].Reviews.Meta != nil {
			return h.Revisions[i].Reviews.Meta
		}
	}
	return nil
}

// Validate checks a hypothesis record read from the workspace
func (h *Hypothesis) Validate() error {
	if core.ID(h.ID).IsEmpty() {
		return core.NewValidationError("hypothesis.id", "cannot be empty")
	}
	if h.Text == "" {
		return core.NewValidationError("hypothesis.text", "cannot be empty")
	}
	if h.Round < 1 {
		return core.NewValidationError("hypothesis.round", "must be >= 1")
	}
	switch h.Status {
	case StatusPending, StatusRefining, StatusAccepted, StatusRejected, StatusAbandoned:
	default:
		return core.NewValidationError("hypothesis.status", "unknown status "+string(h.Status))
	}
	return nil
}

// Best returns the hypothesis with the highest Meta overall score among the
// accepted ones, falling back to the highest-scored overall when none were
// accepted. Nil for an empty set.
func Best(hs []*Hypothesis) *Hypothesis {
	var best *Hypothesis
	var bestScore float64
	pick := func(h *Hypothesis) {
		meta := h.LastMetaScore()
		if meta == nil {
			return
		}
		if best == nil || meta.Overall > bestScore {
			best = h
			bestScore = meta.Overall
		}
	}

	for _, h := range hs {
		if h.Status == StatusAccepted {
			pick(h)
		}
	}
	if best != nil {
		return best
	}
	for _, h := range hs {
		pick(h)
	}
	return best
}
