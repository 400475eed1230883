package workspace

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"ideaforge/domain/core"
	"ideaforge/domain/hypothesis"
	"ideaforge/domain/run"
	"ideaforge/models"
)

// Directory layout of one project workspace. The core reads the brief and
// literature context and writes every audit record below; the tree is an
// append-only audit log with a single writer per project.
const (
	briefFile      = "00_brief/brief.md"
	directionsFile = "00_brief/research_directions.md"
	literatureFile = "01_literature/notes.md"
	hypothesesFile = "02_hypotheses/hypotheses.json"
	planFile       = "03_plan/plan.json"
	runsDir        = "04_runs"
	reportFile     = "05_writeup/report.md"
	stateFile      = "meta/state.json"
	runConfigFile  = "meta/run_config.json"
	ledgerFile     = "meta/costs.jsonl"
	baselineFile   = "meta/score_baseline.json"
)

// Workspace is the file-backed project repository. It also implements the
// cost ledger as an append-only JSONL file under meta/.
type Workspace struct {
	root string

	// guards ledger appends; everything else is single-writer by design
	ledgerMu sync.Mutex
}

// Open prepares a workspace rooted at dir, creating the directory tree
func Open(root string) (*Workspace, error) {
	for _, sub := range []string{"00_brief", "01_literature", "02_hypotheses", "03_plan", runsDir, "05_writeup", "meta"} {
		if err := os.MkdirAll(filepath.Join(root, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create workspace dir %s: %w", sub, err)
		}
	}
	return &Workspace{root: root}, nil
}

// Root returns the workspace root directory
func (w *Workspace) Root() string { return w.root }

// Brief returns the project brief, preferring research_directions.md when present
func (w *Workspace) Brief() (string, error) {
	if text, err := w.readText(directionsFile); err == nil && strings.TrimSpace(text) != "" {
		return text, nil
	}
	text, err := w.readText(briefFile)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return text, nil
}

// Literature returns the formatted reference notes, empty when absent
func (w *Workspace) Literature() (string, error) {
	text, err := w.readText(literatureFile)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return text, nil
}

// WriteRunConfig persists the run configuration for audit
func (w *Workspace) WriteRunConfig(cfg run.Config) error {
	return w.writeJSON(runConfigFile, cfg)
}

// WriteState persists the pipeline state. Called after every transition so
// a crash leaves the last committed stage visible.
func (w *Workspace) WriteState(state *run.PipelineState) error {
	return w.writeJSON(stateFile, state)
}

// ReadState loads the last persisted pipeline state
func (w *Workspace) ReadState() (*run.PipelineState, error) {
	var state run.PipelineState
	if err := w.readJSON(stateFile, &state); err != nil {
		if os.IsNotExist(err) {
			return nil, core.ErrRunNotFound
		}
		return nil, err
	}
	return &state, nil
}

// WriteHypotheses persists the full hypothesis set with revision history
func (w *Workspace) WriteHypotheses(hs []*hypothesis.Hypothesis) error {
	return w.writeJSON(hypothesesFile, hs)
}

// ReadHypotheses loads and validates the hypothesis records. Malformed
// records fail with a validation error rather than guessed defaults.
func (w *Workspace) ReadHypotheses() ([]*hypothesis.Hypothesis, error) {
	var hs []*hypothesis.Hypothesis
	if err := w.readJSON(hypothesesFile, &hs); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, core.NewValidationError("hypotheses.json", err.Error())
	}
	for i, h := range hs {
		if err := h.Validate(); err != nil {
			return nil, core.NewValidationError(fmt.Sprintf("hypotheses.json[%d]", i), err.Error())
		}
	}
	return hs, nil
}

// WritePlan persists the experiment plan record
func (w *Workspace) WritePlan(plan *models.Plan) error {
	return w.writeJSON(planFile, plan)
}

// ReadPlan loads the experiment plan, ErrPlanNotFound when absent
func (w *Workspace) ReadPlan() (*models.Plan, error) {
	var plan models.Plan
	if err := w.readJSON(planFile, &plan); err != nil {
		if os.IsNotExist(err) {
			return nil, core.ErrPlanNotFound
		}
		return nil, core.NewValidationError("plan.json", err.Error())
	}
	return &plan, nil
}

// WriteRunArtifacts stores the per-run experiment outputs under 04_runs/<run_id>/
func (w *Workspace) WriteRunArtifacts(runID string, plan *models.Plan, result *models.ExperimentResult, logLines []string) error {
	dir := filepath.Join(runsDir, runID)
	if err := os.MkdirAll(filepath.Join(w.root, dir), 0o755); err != nil {
		return fmt.Errorf("create run dir: %w", err)
	}
	if err := w.writeJSON(filepath.Join(dir, "config.json"), plan); err != nil {
		return err
	}
	if err := w.writeJSON(filepath.Join(dir, "results.json"), result); err != nil {
		return err
	}
	return w.writeText(filepath.Join(dir, "log.txt"), strings.Join(logLines, "\n")+"\n")
}

// WriteReport persists the final writeup markdown
func (w *Workspace) WriteReport(markdown string) error {
	return w.writeText(reportFile, markdown)
}

// ReadReport loads the final writeup, empty when not yet written
func (w *Workspace) ReadReport() (string, error) {
	text, err := w.readText(reportFile)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return text, nil
}

// WriteScoreBaseline records round-1 Meta scores for later drift checks
func (w *Workspace) WriteScoreBaseline(b *models.ScoreBaseline) error {
	return w.writeJSON(baselineFile, b)
}

// ReadScoreBaseline loads the prior run's baseline, nil when none exists
func (w *Workspace) ReadScoreBaseline() (*models.ScoreBaseline, error) {
	var b models.ScoreBaseline
	if err := w.readJSON(baselineFile, &b); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, core.NewValidationError("score_baseline.json", err.Error())
	}
	return &b, nil
}

// AppendEntry implements ports.CostLedgerWriter as a JSONL append
func (w *Workspace) AppendEntry(ctx context.Context, entry models.CostLedgerEntry) error {
	w.ledgerMu.Lock()
	defer w.ledgerMu.Unlock()

	f, err := os.OpenFile(filepath.Join(w.root, ledgerFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal ledger entry: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append ledger entry: %w", err)
	}
	return nil
}

// Entries implements ports.CostLedgerReader. An empty runID returns all entries.
func (w *Workspace) Entries(ctx context.Context, runID string) ([]models.CostLedgerEntry, error) {
	f, err := os.Open(filepath.Join(w.root, ledgerFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	var entries []models.CostLedgerEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry models.CostLedgerEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, core.NewValidationError("costs.jsonl", err.Error())
		}
		if runID == "" || entry.RunID == runID {
			entries = append(entries, entry)
		}
	}
	return entries, scanner.Err()
}

// Totals implements ports.CostLedgerReader
func (w *Workspace) Totals(ctx context.Context, runID string) (models.LedgerTotals, error) {
	entries, err := w.Entries(ctx, runID)
	if err != nil {
		return models.LedgerTotals{}, err
	}
	totals := models.LedgerTotals{Entries: len(entries)}
	for _, e := range entries {
		totals.Tokens += e.Tokens
		totals.ComputeSeconds += e.ComputeSeconds
	}
	return totals, nil
}

func (w *Workspace) readText(rel string) (string, error) {
	data, err := os.ReadFile(filepath.Join(w.root, rel))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (w *Workspace) writeText(rel, text string) error {
	path := filepath.Join(w.root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(text), 0o644)
}

func (w *Workspace) readJSON(rel string, v interface{}) error {
	data, err := os.ReadFile(filepath.Join(w.root, rel))
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func (w *Workspace) writeJSON(rel string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", rel, err)
	}
	return w.writeText(rel, string(data)+"\n")
}
