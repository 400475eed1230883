package run

import (
	"time"

	"ideaforge/domain/core"
	"ideaforge/domain/review"
)

// BudgetCaps are the hard resource ceilings for one run. The tracker denies
// any reservation that would push cumulative usage past a cap.
type BudgetCaps struct {
	MaxTokens       int           `json:"max_tokens"`
	MaxComputeHours float64       `json:"max_compute_hours"`
	MaxWallClock    time.Duration `json:"max_wall_clock"`
}

// Config bundles every knob for one run. It is passed explicitly through
// all components; there is no process-wide mutable configuration.
type Config struct {
	Topic            string            `json:"topic"`
	Background       string            `json:"background,omitempty"`
	Constraints      []string          `json:"constraints,omitempty"`
	NumIdeasPerRound int               `json:"num_ideas_per_round"`
	MaxRefineRounds  int               `json:"max_refinement_rounds"`
	Thresholds       review.Thresholds `json:"thresholds"`
	Budget           BudgetCaps        `json:"budget"`
	Seed             int64             `json:"seed"`
	DriftTolerance   float64           `json:"drift_tolerance"`
}

// DefaultThresholds mirrors the evaluation bar the system ships with:
// overall 8.0 with per-dimension minimums that keep a single strong
// dimension from masking a fatal weakness.
func DefaultThresholds() review.Thresholds {
	return review.Thresholds{
		OverallMin: 8.0,
		DimensionMins: map[review.Dimension]float64{
			review.DimNovelty:      9.0,
			review.DimFeasibility:  9.0,
			review.DimSignificance: 8.0,
			review.DimClarity:      8.0,
			review.DimRelevance:    8.0,
		},
	}
}

// Validate fails fast on malformed configuration, before any budget is consumed
func (c Config) Validate() error {
	if c.Topic == "" {
		return core.NewValidationError("config.topic", "cannot be empty")
	}
	if c.NumIdeasPerRound < 1 {
		return core.NewValidationError("config.num_ideas_per_round", "must be >= 1")
	}
	if c.MaxRefineRounds < 1 {
		return core.NewValidationError("config.max_refinement_rounds", "must be >= 1")
	}
	if err := c.Thresholds.Validate(); err != nil {
		return err
	}
	if c.Budget.MaxTokens <= 0 {
		return core.NewValidationError("config.budget.max_tokens", "must be > 0")
	}
	if c.Budget.MaxComputeHours <= 0 {
		return core.NewValidationError("config.budget.max_compute_hours", "must be > 0")
	}
	if c.Budget.MaxWallClock <= 0 {
		return core.NewValidationError("config.budget.max_wall_clock", "must be > 0")
	}
	if c.DriftTolerance < 0 {
		return core.NewValidationError("config.drift_tolerance", "must be >= 0")
	}
	return nil
}

// Fingerprint is a determinism fingerprint over everything that shapes
// model-visible behavior. Reruns with equal fingerprints under the
// simulation strategy must produce byte-identical output.
func (c Config) Fingerprint() core.Hash {
	return core.ComputeConfigHash(map[string]interface{}{
		"topic":         c.Topic,
		"background":    c.Background,
		"constraints":   c.Constraints,
		"num_ideas":     c.NumIdeasPerRound,
		"max_rounds":    c.MaxRefineRounds,
		"overall_min":   c.Thresholds.OverallMin,
		"dimension_min": c.Thresholds.DimensionMins,
		"seed":          c.Seed,
	})
}
