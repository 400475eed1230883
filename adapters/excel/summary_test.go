package excel

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"ideaforge/domain/hypothesis"
	"ideaforge/domain/review"
	"ideaforge/domain/run"
	"ideaforge/models"
)

func TestWriteRunSummary(t *testing.T) {
	h := hypothesis.New("an idea")
	dims := make(map[review.Dimension]float64)
	for _, d := range review.Dimensions() {
		dims[d] = 8.5
	}
	require.NoError(t, h.RecordReviews(&review.PanelResult{
		Meta: &review.Score{Role: review.RoleMeta, Round: 1, Overall: 8.5, Dimensions: dims},
	}, review.Verdict{Accepted: true}))

	state := &run.PipelineState{
		Stage:      run.StageDone,
		Hypotheses: []*hypothesis.Hypothesis{h},
	}
	entries := []models.CostLedgerEntry{
		{Stage: "ideation", Tokens: 1200, ComputeSeconds: 2.5, Provider: "simulation", Model: "sim", CreatedAt: time.Now()},
	}

	path := filepath.Join(t.TempDir(), "summary.xlsx")
	require.NoError(t, WriteRunSummary(path, state, entries))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	status, err := f.GetCellValue("Hypotheses", "B2")
	require.NoError(t, err)
	require.Equal(t, "accepted", status)

	tokens, err := f.GetCellValue("Ledger", "C2")
	require.NoError(t, err)
	require.Equal(t, "1200", tokens)
}
