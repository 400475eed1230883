package review

import (
	"sort"

	"ideaforge/domain/core"
)

// Dimension is one evaluated axis of a hypothesis
type Dimension string

const (
	DimNovelty      Dimension = "novelty"
	DimFeasibility  Dimension = "feasibility"
	DimSignificance Dimension = "significance"
	DimClarity      Dimension = "clarity"
	DimRelevance    Dimension = "relevance"
)

// Dimensions lists every evaluated axis in canonical order
func Dimensions() []Dimension {
	return []Dimension{DimNovelty, DimFeasibility, DimSignificance, DimClarity, DimRelevance}
}

// Role identifies a reviewer persona. The set is closed: Critic and
// Innovator review independently, Meta adjudicates with both reviews in hand.
type Role string

const (
	RoleCritic    Role = "critic"
	RoleInnovator Role = "innovator"
	RoleMeta      Role = "meta"
)

// Score is one reviewer's evaluation of a hypothesis. Never mutated after creation.
type Score struct {
	ID             core.ReviewID         `json:"id"`
	Role           Role                  `json:"role"`
	Round          int                   `json:"round"`
	Overall        float64               `json:"overall"`
	Dimensions     map[Dimension]float64 `json:"dimensions"`
	Rationale      string                `json:"rationale"`
	Recommendation string                `json:"recommendation,omitempty"`
	CreatedAt      core.Timestamp        `json:"created_at"`
}

// Dimension returns the score for a dimension, zero if absent
func (s *Score) Dimension(d Dimension) float64 {
	if s.Dimensions == nil {
		return 0
	}
	return s.Dimensions[d]
}

// Validate checks the score holds a value for every canonical dimension
// within the 1-10 range.
func (s *Score) Validate() error {
	if s.Overall < 0 || s.Overall > 10 {
		return core.NewValidationError("score.overall", "must be within 0-10")
	}
	for _, d := range Dimensions() {
		v, ok := s.Dimensions[d]
		if !ok {
			return core.NewValidationError("score.dimensions", "missing dimension "+string(d))
		}
		if v < 0 || v > 10 {
			return core.NewValidationError("score.dimensions", "dimension "+string(d)+" out of 0-10 range")
		}
	}
	return nil
}

// Thresholds defines the acceptance bar. All dimension minimums must hold
// simultaneously together with the overall minimum (strict conjunction,
// never an average).
type Thresholds struct {
	OverallMin    float64               `json:"overall_min"`
	DimensionMins map[Dimension]float64 `json:"dimension_mins"`
}

// Validate checks threshold ranges
func (t Thresholds) Validate() error {
	if t.OverallMin < 0 || t.OverallMin > 10 {
		return core.NewValidationError("thresholds.overall_min", "must be within 0-10")
	}
	for d, v := range t.DimensionMins {
		if v < 0 || v > 10 {
			return core.NewValidationError("thresholds.dimension_mins", "minimum for "+string(d)+" out of 0-10 range")
		}
	}
	return nil
}

// DimensionFailure records one dimension that fell below its configured minimum
type DimensionFailure struct {
	Dimension Dimension `json:"dimension"`
	Score     float64   `json:"score"`
	Min       float64   `json:"min"`
}

// Verdict is the outcome of applying Thresholds to a Meta score
type Verdict struct {
	Accepted         bool               `json:"accepted"`
	Overall          float64            `json:"overall"`
	OverallMin       float64            `json:"overall_min"`
	OverallPassed    bool               `json:"overall_passed"`
	FailedDimensions []DimensionFailure `json:"failed_dimensions,omitempty"`
}

// Evaluate applies the acceptance rule to a score. A single failing
// dimension rejects regardless of overall score.
func (t Thresholds) Evaluate(s *Score) Verdict {
	v := Verdict{
		Overall:       s.Overall,
		OverallMin:    t.OverallMin,
		OverallPassed: s.Overall >= t.OverallMin,
	}

	dims := make([]Dimension, 0, len(t.DimensionMins))
	for d := range t.DimensionMins {
		dims = append(dims, d)
	}
	sort.Slice(dims, func(i, j int) bool { return dims[i] < dims[j] })

	for _, d := range dims {
		min := t.DimensionMins[d]
		if s.Dimension(d) < min {
			v.FailedDimensions = append(v.FailedDimensions, DimensionFailure{
				Dimension: d,
				Score:     s.Dimension(d),
				Min:       min,
			})
		}
	}

	v.Accepted = v.OverallPassed && len(v.FailedDimensions) == 0
	return v
}

// PanelResult holds all three reviews for one round. The Meta score alone
// drives the acceptance decision; Critic and Innovator are retained for
// audit and refinement feedback.
type PanelResult struct {
	Critic    *Score `json:"critic"`
	Innovator *Score `json:"innovator"`
	Meta      *Score `json:"meta"`
}
