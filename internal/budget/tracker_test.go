package budget

import (
	"context"
	"testing"
	"time"

	"ideaforge/domain/core"
	"ideaforge/domain/run"
	"ideaforge/models"
	"ideaforge/ports"
)

type captureLedger struct {
	entries []models.CostLedgerEntry
}

func (l *captureLedger) AppendEntry(ctx context.Context, entry models.CostLedgerEntry) error {
	l.entries = append(l.entries, entry)
	return nil
}

func caps() run.BudgetCaps {
	return run.BudgetCaps{MaxTokens: 200000, MaxComputeHours: 2.0, MaxWallClock: time.Hour}
}

func TestReserveDeniedBeforeExceedingTokenCap(t *testing.T) {
	ledger := &captureLedger{}
	tr := NewTracker("run-1", caps(), ledger)

	res, err := tr.Reserve("ideation", 195000)
	if err != nil {
		t.Fatal(err)
	}
	if err := tr.Commit(context.Background(), res, ports.UsageData{TotalTokens: 195000, Provider: "simulation", Model: "sim"}, 2*time.Second); err != nil {
		t.Fatal(err)
	}

	// 195000 committed + 10000 estimated would exceed the 200000 cap, so
	// the call must be denied before it is issued.
	if _, err := tr.Reserve("review", 10000); !core.IsBudgetError(err) {
		t.Fatalf("expected budget denial, got %v", err)
	}

	totals := tr.Totals()
	if totals.Tokens != 195000 {
		t.Errorf("ledger shows %d tokens, denied call must not be charged", totals.Tokens)
	}
	if len(ledger.entries) != 1 {
		t.Errorf("expected exactly one ledger entry, got %d", len(ledger.entries))
	}
}

func TestReleaseFreesPendingTokens(t *testing.T) {
	tr := NewTracker("run-1", caps())

	res, err := tr.Reserve("review", 150000)
	if err != nil {
		t.Fatal(err)
	}
	tr.Release(res)

	// The released reservation must not count against the next one
	if _, err := tr.Reserve("review", 150000); err != nil {
		t.Fatalf("release did not free pending tokens: %v", err)
	}
	if totals := tr.Totals(); totals.Tokens != 0 {
		t.Errorf("released reservation charged %d tokens", totals.Tokens)
	}
}

func TestCommitExactlyOnce(t *testing.T) {
	ledger := &captureLedger{}
	tr := NewTracker("run-1", caps(), ledger)

	res, _ := tr.Reserve("review", 5000)
	usage := ports.UsageData{TotalTokens: 1200, Provider: "simulation", Model: "sim"}
	if err := tr.Commit(context.Background(), res, usage, time.Second); err != nil {
		t.Fatal(err)
	}
	if err := tr.Commit(context.Background(), res, usage, time.Second); err == nil {
		t.Error("second commit of the same reservation must fail")
	}
	tr.Release(res) // no-op on a resolved reservation

	if totals := tr.Totals(); totals.Tokens != 1200 || totals.Entries != 1 {
		t.Errorf("double accounting: %+v", totals)
	}
	if len(ledger.entries) != 1 {
		t.Errorf("expected one ledger entry, got %d", len(ledger.entries))
	}
}

func TestEmptyRunIDGetsDefaulted(t *testing.T) {
	ledger := &captureLedger{}
	tr := NewTracker("", caps(), ledger)

	if tr.RunID() == "" {
		t.Fatal("tracker accepted an empty run identity")
	}

	res, _ := tr.Reserve("ideation", 500)
	if err := tr.Commit(context.Background(), res, ports.UsageData{TotalTokens: 500}, time.Second); err != nil {
		t.Fatal(err)
	}
	if len(ledger.entries) != 1 || ledger.entries[0].RunID != tr.RunID() {
		t.Errorf("ledger entry does not carry the defaulted run id: %+v", ledger.entries)
	}
}

func TestWallClockCapDeniesReservation(t *testing.T) {
	tr := NewTracker("run-1", caps())
	start := time.Now()
	tr.now = func() time.Time { return start.Add(2 * time.Hour) }
	tr.startedAt = start

	if _, err := tr.Reserve("review", 100); !core.IsBudgetError(err) {
		t.Fatalf("expected wall-clock denial, got %v", err)
	}
}

func TestComputeHoursCapDeniesReservation(t *testing.T) {
	tr := NewTracker("run-1", caps())

	res, _ := tr.Reserve("experiment", 100)
	if err := tr.Commit(context.Background(), res, ports.UsageData{TotalTokens: 100}, 3*time.Hour); err != nil {
		t.Fatal(err)
	}

	if _, err := tr.Reserve("review", 100); !core.IsBudgetError(err) {
		t.Fatalf("expected compute-hours denial, got %v", err)
	}
}
