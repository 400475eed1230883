package models

import "time"

// CostLedgerEntry is one append-only record of resource consumption.
// The ledger is monotonically increasing and is the single source of truth
// for budget enforcement; entries are never mutated after creation.
type CostLedgerEntry struct {
	ID             string    `json:"id" db:"id"`
	RunID          string    `json:"run_id" db:"run_id"`
	Stage          string    `json:"stage" db:"stage"`
	Tokens         int       `json:"tokens" db:"tokens"`
	ComputeSeconds float64   `json:"compute_seconds" db:"compute_seconds"`
	Provider       string    `json:"provider,omitempty" db:"provider"`
	Model          string    `json:"model,omitempty" db:"model"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// LedgerTotals aggregates cumulative consumption across a run
type LedgerTotals struct {
	Entries        int     `json:"entries" db:"entries"`
	Tokens         int     `json:"tokens" db:"tokens"`
	ComputeSeconds float64 `json:"compute_seconds" db:"compute_seconds"`
}
