package models

// ScoreBaseline records the first-round Meta scores of a run so a later
// rerun under the same seed can be checked for reproducibility drift.
type ScoreBaseline struct {
	RunID       string          `json:"run_id"`
	Seed        int64           `json:"seed"`
	Fingerprint string          `json:"fingerprint"`
	Scores      []BaselineScore `json:"scores"`
}

// BaselineScore is one hypothesis's Meta dimension scores at round 1
type BaselineScore struct {
	HypothesisIndex int                `json:"hypothesis_index"`
	Overall         float64            `json:"overall"`
	Dimensions      map[string]float64 `json:"dimensions"`
}
