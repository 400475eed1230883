package ports

import (
	"context"

	"ideaforge/models"
)

// CostLedgerWriter provides append-only write access to the cost ledger.
// This is the ONLY way cost is recorded - entries are never updated or deleted.
type CostLedgerWriter interface {
	AppendEntry(ctx context.Context, entry models.CostLedgerEntry) error
}

// CostLedgerReader provides read-only access for audit and the status API
type CostLedgerReader interface {
	Entries(ctx context.Context, runID string) ([]models.CostLedgerEntry, error)
	Totals(ctx context.Context, runID string) (models.LedgerTotals, error)
}

// CostLedger combines append and read access
type CostLedger interface {
	CostLedgerWriter
	CostLedgerReader
}
