package models

// Plan is the experiment plan record for an accepted hypothesis. It is an
// external contract: records read from the workspace are validated against
// the required keys rather than patched with guessed defaults.
type Plan struct {
	ID           string         `json:"id"`
	HypothesisID string         `json:"hypothesis_id"`
	Datasets     []string       `json:"datasets"`
	Models       []string       `json:"models"`
	Variables    []PlanVariable `json:"variables"`
	Controls     []string       `json:"controls"`
	Metrics      []PlanMetric   `json:"metrics"`
	Ablations    []string       `json:"ablations,omitempty"`
	Budget       PlanBudget     `json:"budget"`
	RetryPolicy  RetryPolicy    `json:"retry_policy"`
	Execution    PlanExecution  `json:"execution"`
	Notes        string         `json:"notes,omitempty"`
}

// PlanVariable is one manipulated variable with its tested values
type PlanVariable struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// PlanMetric names a measured quantity and how it is aggregated
type PlanMetric struct {
	Name        string `json:"name"`
	Aggregation string `json:"aggregation,omitempty"`
	StatTest    string `json:"stat_test,omitempty"`
}

// PlanBudget caps experiment execution
type PlanBudget struct {
	MaxRuns         int     `json:"max_runs"`
	MaxComputeHours float64 `json:"max_compute_hours"`
	MaxTokenUsage   int     `json:"max_token_usage"`
}

// RetryPolicy describes how the experiment runner reacts to failures
type RetryPolicy struct {
	MaxRetries int    `json:"max_retries"`
	OnOOM      string `json:"on_oom,omitempty"`
	OnNaN      string `json:"on_nan,omitempty"`
}

// PlanExecution constrains how the plan may be executed
type PlanExecution struct {
	LLMMode       string `json:"llm_mode"`
	AllowTraining bool   `json:"allow_training"`
}

// ExperimentResult is the structured output of one experiment run
type ExperimentResult struct {
	RunID         string             `json:"run_id"`
	HypothesisID  string             `json:"hypothesis_id"`
	PlanID        string             `json:"plan_id"`
	Metrics       map[string]float64 `json:"metrics"`
	DecisionTrace []string           `json:"decision_trace"`
	Cost          ExperimentCost     `json:"cost"`
	Status        string             `json:"status"`
	Mode          string             `json:"mode"`
}

// ExperimentCost is the resource consumption attributed to the experiment stage
type ExperimentCost struct {
	TokenUsage   int     `json:"token_usage"`
	ComputeHours float64 `json:"compute_hours"`
}
