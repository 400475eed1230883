package postgres

import (
	"context"

	apperrors "ideaforge/internal/errors"
	"ideaforge/models"
	"ideaforge/ports"

	"github.com/jmoiron/sqlx"
)

const ledgerSchema = `
CREATE TABLE IF NOT EXISTS cost_ledger (
	id              TEXT PRIMARY KEY,
	run_id          TEXT NOT NULL,
	stage           TEXT NOT NULL,
	tokens          INTEGER NOT NULL,
	compute_seconds DOUBLE PRECISION NOT NULL,
	provider        TEXT NOT NULL DEFAULT '',
	model           TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cost_ledger_run ON cost_ledger (run_id, created_at);
`

// LedgerRepository mirrors the workspace cost ledger into Postgres for
// cross-run audit queries. The file ledger remains the source of truth;
// this mirror is optional and never consulted for budget enforcement.
type LedgerRepository struct {
	db *sqlx.DB
}

// NewLedgerRepository creates the repository and ensures the schema exists
func NewLedgerRepository(db *sqlx.DB) (ports.CostLedger, error) {
	if _, err := db.Exec(ledgerSchema); err != nil {
		return nil, dbError(err, "ensure cost_ledger schema")
	}
	return &LedgerRepository{db: db}, nil
}

// dbError tags mirror failures with the database code so operator logs can
// distinguish them from workspace ledger failures.
func dbError(err error, format string, args ...interface{}) error {
	return apperrors.WithCode(apperrors.CodeDatabaseError, apperrors.Wrapf(err, format, args...))
}

// AppendEntry records one ledger entry
func (r *LedgerRepository) AppendEntry(ctx context.Context, entry models.CostLedgerEntry) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO cost_ledger (
			id, run_id, stage, tokens, compute_seconds, provider, model, created_at
		) VALUES (
			:id, :run_id, :stage, :tokens, :compute_seconds, :provider, :model, :created_at
		)
	`, entry)
	if err != nil {
		return dbError(err, "append ledger entry %s", entry.ID)
	}
	return nil
}

// Entries retrieves ledger entries for a run in append order
func (r *LedgerRepository) Entries(ctx context.Context, runID string) ([]models.CostLedgerEntry, error) {
	var entries []models.CostLedgerEntry
	err := r.db.SelectContext(ctx, &entries, `
		SELECT id, run_id, stage, tokens, compute_seconds, provider, model, created_at
		FROM cost_ledger
		WHERE run_id = $1
		ORDER BY created_at ASC
	`, runID)
	if err != nil {
		return nil, dbError(err, "read ledger entries for run %s", runID)
	}
	return entries, nil
}

// Totals aggregates cumulative consumption for a run
func (r *LedgerRepository) Totals(ctx context.Context, runID string) (models.LedgerTotals, error) {
	var totals models.LedgerTotals
	err := r.db.GetContext(ctx, &totals, `
		SELECT
			COUNT(*) AS entries,
			COALESCE(SUM(tokens), 0) AS tokens,
			COALESCE(SUM(compute_seconds), 0) AS compute_seconds
		FROM cost_ledger
		WHERE run_id = $1
	`, runID)
	if err != nil {
		return models.LedgerTotals{}, dbError(err, "aggregate ledger totals for run %s", runID)
	}
	return totals, nil
}
