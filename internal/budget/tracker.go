package budget

import (
	"context"
	"log"
	"sync"
	"time"

	"ideaforge/domain/core"
	"ideaforge/domain/run"
	"ideaforge/models"
	"ideaforge/ports"
)

// Tracker maintains the running ledger of token usage, compute time and
// wall-clock elapsed for one run, and enforces the configured caps.
//
// Callers must Reserve before every LLM call and Commit (or Release) after:
// the reservation is checked before the expensive call is issued, so usage
// never exceeds a cap even transiently. A retried call commits exactly once,
// on the attempt that succeeds.
type Tracker struct {
	mu      sync.Mutex
	runID   string
	caps    run.BudgetCaps
	ledgers []ports.CostLedgerWriter

	committedTokens  int
	committedCompute time.Duration
	committedEntries int
	pendingTokens    int

	startedAt time.Time
	now       func() time.Time
}

// Reservation is a pending claim on the token budget. It must be resolved
// with Commit or Release before the next Reserve for the same call site.
type Reservation struct {
	Stage  string
	Tokens int
	done   bool
}

// NewTracker creates a tracker for a run. An empty runID gets a fresh one so
// ledger entries never carry a blank run identity. Entries are appended to
// every supplied ledger (workspace file, optional database mirror).
func NewTracker(runID string, caps run.BudgetCaps, ledgers ...ports.CostLedgerWriter) *Tracker {
	if runID == "" {
		runID = core.NewID().String()
	}
	return &Tracker{
		runID:     runID,
		caps:      caps,
		ledgers:   ledgers,
		startedAt: time.Now(),
		now:       time.Now,
	}
}

// RunID returns the run this tracker accounts for
func (t *Tracker) RunID() string { return t.runID }

// Reserve checks every cap against cumulative plus pending usage and the
// estimate. A denial means the call must not be issued.
func (t *Tracker) Reserve(stage string, estimatedTokens int) (*Reservation, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if elapsed := t.now().Sub(t.startedAt); elapsed >= t.caps.MaxWallClock {
		return nil, core.NewBudgetError("wall_clock", elapsed.Seconds(), t.caps.MaxWallClock.Seconds())
	}
	if hours := t.committedCompute.Hours(); hours >= t.caps.MaxComputeHours {
		return nil, core.NewBudgetError("compute_hours", hours, t.caps.MaxComputeHours)
	}
	if total := t.committedTokens + t.pendingTokens + estimatedTokens; total > t.caps.MaxTokens {
		return nil, core.NewBudgetError("tokens", float64(total), float64(t.caps.MaxTokens))
	}

	t.pendingTokens += estimatedTokens
	return &Reservation{Stage: stage, Tokens: estimatedTokens}, nil
}

// Commit finalizes a reservation with the actual usage of the successful
// attempt and appends exactly one ledger entry.
func (t *Tracker) Commit(ctx context.Context, res *Reservation, usage ports.UsageData, computeTime time.Duration) error {
	t.mu.Lock()
	if res.done {
		t.mu.Unlock()
		return core.NewValidationError("reservation", "already resolved")
	}
	res.done = true
	t.pendingTokens -= res.Tokens
	t.committedTokens += usage.TotalTokens
	t.committedCompute += computeTime
	t.committedEntries++
	t.mu.Unlock()

	entry := models.CostLedgerEntry{
		ID:             core.NewID().String(),
		RunID:          t.runID,
		Stage:          res.Stage,
		Tokens:         usage.TotalTokens,
		ComputeSeconds: computeTime.Seconds(),
		Provider:       usage.Provider,
		Model:          usage.Model,
		CreatedAt:      t.now(),
	}
	for _, l := range t.ledgers {
		if err := l.AppendEntry(ctx, entry); err != nil {
			// Ledger persistence failure must not discard the in-memory
			// accounting; the remaining ledgers still get the entry.
			log.Printf("[Budget] ERROR: failed to append ledger entry: %v", err)
		}
	}
	return nil
}

// Release abandons a reservation after a failed call without charging it
func (t *Tracker) Release(res *Reservation) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if res.done {
		return
	}
	res.done = true
	t.pendingTokens -= res.Tokens
}

// Totals returns cumulative committed usage
func (t *Tracker) Totals() models.LedgerTotals {
	t.mu.Lock()
	defer t.mu.Unlock()
	return models.LedgerTotals{
		Entries:        t.committedEntries,
		Tokens:         t.committedTokens,
		ComputeSeconds: t.committedCompute.Seconds(),
	}
}

// Elapsed returns wall-clock time since the tracker was created
func (t *Tracker) Elapsed() time.Duration {
	return t.now().Sub(t.startedAt)
}
