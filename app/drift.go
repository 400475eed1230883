package app

import (
	"fmt"
	"log"
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"

	"ideaforge/domain/core"
	"ideaforge/domain/hypothesis"
	"ideaforge/domain/review"
	apperrors "ideaforge/internal/errors"
	"ideaforge/models"
	"ideaforge/ports"
)

// DriftChecker compares the current run's first-round Meta scores against
// the stored baseline of an earlier run with the same seed and config
// fingerprint. Drift is reported as warnings, never as a run failure.
type DriftChecker struct {
	ws        ports.WorkspaceRepository
	tolerance float64
}

// NewDriftChecker creates a drift checker with the given mean-absolute-delta tolerance
func NewDriftChecker(ws ports.WorkspaceRepository, tolerance float64) *DriftChecker {
	return &DriftChecker{ws: ws, tolerance: tolerance}
}

// Check snapshots the run's round-1 Meta scores and compares them to the
// stored baseline when seed and fingerprint match. A missing or mismatched
// baseline is replaced with the current snapshot and produces no warnings.
func (d *DriftChecker) Check(runID core.RunID, seed int64, fingerprint core.Hash, hs []*hypothesis.Hypothesis) ([]string, error) {
	current := snapshotBaseline(runID, seed, fingerprint, hs)
	if len(current.Scores) == 0 {
		return nil, nil
	}

	prior, err := d.ws.ReadScoreBaseline()
	if err != nil {
		return nil, apperrors.WithCode(apperrors.CodeReproDrift, apperrors.Wrap(err, "read score baseline"))
	}
	if prior == nil || prior.Seed != seed || prior.Fingerprint != string(fingerprint) {
		if err := d.ws.WriteScoreBaseline(current); err != nil {
			return nil, apperrors.WithCode(apperrors.CodeReproDrift, apperrors.Wrap(err, "store score baseline"))
		}
		log.Printf("[Drift] stored new score baseline for seed %d", seed)
		return nil, nil
	}

	warnings := compareBaselines(prior, current, d.tolerance)
	for _, w := range warnings {
		log.Printf("[Drift] %s", w)
	}
	return warnings, nil
}

func snapshotBaseline(runID core.RunID, seed int64, fingerprint core.Hash, hs []*hypothesis.Hypothesis) *models.ScoreBaseline {
	b := &models.ScoreBaseline{
		RunID:       runID.String(),
		Seed:        seed,
		Fingerprint: string(fingerprint),
	}
	for i, h := range hs {
		if len(h.Revisions) == 0 {
			continue
		}
		first := h.Revisions[0]
		if first.Reviews == nil || first.Reviews.Meta == nil {
			continue
		}
		meta := first.Reviews.Meta
		dims := make(map[string]float64, len(meta.Dimensions))
		for d, v := range meta.Dimensions {
			dims[string(d)] = v
		}
		b.Scores = append(b.Scores, models.BaselineScore{
			HypothesisIndex: i,
			Overall:         meta.Overall,
			Dimensions:      dims,
		})
	}
	return b
}

// compareBaselines measures per-dimension absolute deltas between two score
// snapshots over the hypotheses present in both.
func compareBaselines(prior, current *models.ScoreBaseline, tolerance float64) []string {
	n := len(prior.Scores)
	if len(current.Scores) < n {
		n = len(current.Scores)
	}
	if n == 0 {
		return nil
	}
	if len(prior.Scores) != len(current.Scores) {
		return []string{fmt.Sprintf(
			"reproducibility drift: baseline has %d scored hypotheses, current run has %d",
			len(prior.Scores), len(current.Scores))}
	}

	var deltas []float64
	var priorVals, currentVals []float64
	for i := 0; i < n; i++ {
		p, c := prior.Scores[i], current.Scores[i]
		deltas = append(deltas, math.Abs(p.Overall-c.Overall))
		priorVals = append(priorVals, p.Overall)
		currentVals = append(currentVals, c.Overall)
		for _, d := range review.Dimensions() {
			pv, pok := p.Dimensions[string(d)]
			cv, cok := c.Dimensions[string(d)]
			if pok && cok {
				deltas = append(deltas, math.Abs(pv-cv))
				priorVals = append(priorVals, pv)
				currentVals = append(currentVals, cv)
			}
		}
	}

	meanAbs, err := stats.Mean(deltas)
	if err != nil {
		return nil
	}
	if meanAbs <= tolerance {
		return nil
	}

	warnings := []string{fmt.Sprintf(
		"reproducibility drift: mean absolute score delta %.3f exceeds tolerance %.3f (baseline run %s)",
		meanAbs, tolerance, prior.RunID)}
	if len(priorVals) > 1 {
		corr := stat.Correlation(priorVals, currentVals, nil)
		if !math.IsNaN(corr) {
			warnings = append(warnings, fmt.Sprintf(
				"score correlation against baseline: %.3f", corr))
		}
	}
	return warnings
}
