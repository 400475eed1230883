package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"ideaforge/adapters/llm"
	"ideaforge/adapters/postgres"
	"ideaforge/adapters/workspace"
	"ideaforge/app"
	"ideaforge/domain/core"
	"ideaforge/domain/run"
	"ideaforge/internal/budget"
	"ideaforge/internal/config"
	"ideaforge/ports"
	"ideaforge/ui"
)

func main() {
	// .env is optional; environment variables win either way
	_ = godotenv.Load()

	var (
		projectRoot = flag.String("project", "", "project workspace directory (default PROJECT_ROOT)")
		topic       = flag.String("topic", "", "research topic to explore")
		background  = flag.String("background", "", "background context (default: project brief)")
		constraints = flag.String("constraints", "", "comma-separated idea constraints")
		numIdeas    = flag.Int("num-ideas", 3, "candidate hypotheses per round")
		maxRounds   = flag.Int("max-rounds", 3, "maximum refinement rounds per hypothesis")
		seed        = flag.Int64("seed", 42, "determinism seed for the simulation strategy")
		serve       = flag.Bool("serve", false, "serve the inspection API after the run")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[Main] configuration: %v", err)
	}
	if *projectRoot == "" {
		*projectRoot = cfg.Workspace.Root
	}
	if *topic == "" {
		log.Fatal("[Main] -topic is required")
	}

	ws, err := workspace.Open(*projectRoot)
	if err != nil {
		log.Fatalf("[Main] open workspace: %v", err)
	}

	client, err := llm.Select(cfg, *seed)
	if err != nil {
		log.Fatalf("[Main] llm client: %v", err)
	}

	runCfg := run.Config{
		Topic:            *topic,
		Background:       *background,
		Constraints:      splitConstraints(*constraints),
		NumIdeasPerRound: *numIdeas,
		MaxRefineRounds:  *maxRounds,
		Thresholds:       run.DefaultThresholds(),
		Budget: run.BudgetCaps{
			MaxTokens:       cfg.Budget.MaxTokens,
			MaxComputeHours: cfg.Budget.MaxComputeHours,
			MaxWallClock:    cfg.Budget.MaxWallClock,
		},
		Seed:           *seed,
		DriftTolerance: cfg.Budget.DriftTolerance,
	}

	// The workspace ledger is the source of truth; Postgres mirrors it when configured
	ledgers := []ports.CostLedgerWriter{ws}
	if cfg.Database.URL != "" {
		db, err := sqlx.Connect("postgres", cfg.Database.URL)
		if err != nil {
			log.Fatalf("[Main] database: %v", err)
		}
		defer db.Close()

		mirror, err := postgres.NewLedgerRepository(db)
		if err != nil {
			log.Fatalf("[Main] ledger mirror: %v", err)
		}
		ledgers = append(ledgers, mirror)
		log.Println("[Main] postgres ledger mirror enabled")
	}

	tracker := budget.NewTracker(core.NewID().String(), runCfg.Budget, ledgers...)
	pipeline := app.NewPipeline(runCfg, client, tracker, ws, ws, ws.Root())

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Budget.MaxWallClock+time.Minute)
	defer cancel()

	final, err := pipeline.Run(ctx)
	if err != nil {
		log.Fatalf("[Main] run aborted: %v", err)
	}

	totals := tracker.Totals()
	log.Printf("[Main] run %s finished: stage=%s outcome=%s tokens=%d compute=%.1fs elapsed=%s",
		final.RunID, final.Stage, final.Outcome, totals.Tokens, totals.ComputeSeconds, tracker.Elapsed().Round(time.Second))
	for _, w := range final.Warnings {
		log.Printf("[Main] warning: %s", w)
	}

	if *serve {
		port, err := strconv.Atoi(cfg.Server.Port)
		if err != nil {
			log.Fatalf("[Main] invalid SERVER_PORT: %v", err)
		}
		server := ui.NewServer(ws, ws)
		if err := server.Listen(port); err != nil {
			log.Fatalf("[Main] server: %v", err)
		}
	}

	if final.Stage == run.StageFailed {
		os.Exit(1)
	}
}

func splitConstraints(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
