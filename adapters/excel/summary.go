package excel

import (
	"fmt"

	"ideaforge/domain/review"
	"ideaforge/domain/run"
	"ideaforge/models"

	"github.com/xuri/excelize/v2"
)

// WriteRunSummary exports a run-summary workbook: one sheet with the
// per-hypothesis score trajectory and one with the cost ledger.
func WriteRunSummary(path string, state *run.PipelineState, entries []models.CostLedgerEntry) error {
	f := excelize.NewFile()
	defer f.Close()

	const hypSheet = "Hypotheses"
	f.SetSheetName("Sheet1", hypSheet)

	headers := []string{"Index", "Status", "Rounds", "Overall", "Novelty", "Feasibility", "Significance", "Clarity", "Relevance"}
	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(hypSheet, cell, h)
	}

	for i, h := range state.Hypotheses {
		row := i + 2
		meta := h.LastMetaScore()
		values := []interface{}{i + 1, string(h.Status), h.Round}
		if meta != nil {
			values = append(values, meta.Overall)
			for _, d := range review.Dimensions() {
				values = append(values, meta.Dimensions[d])
			}
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(hypSheet, cell, v)
		}
	}

	const ledgerSheet = "Ledger"
	if _, err := f.NewSheet(ledgerSheet); err != nil {
		return fmt.Errorf("create ledger sheet: %w", err)
	}
	ledgerHeaders := []string{"Timestamp", "Stage", "Tokens", "ComputeSeconds", "Provider", "Model"}
	for col, h := range ledgerHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(ledgerSheet, cell, h)
	}
	for i, e := range entries {
		row := i + 2
		values := []interface{}{e.CreatedAt.Format("2006-01-02 15:04:05"), e.Stage, e.Tokens, e.ComputeSeconds, e.Provider, e.Model}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(ledgerSheet, cell, v)
		}
	}

	return f.SaveAs(path)
}
