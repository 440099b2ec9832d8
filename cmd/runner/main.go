// Command runner executes one weekly health-analysis run and exits, which
// makes it suitable for cron or a container scheduler. The API server exposes
// the same run over HTTP; this path skips the server entirely.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"feedback-backend/internal/healthanalysis"
	"feedback-backend/internal/llm"
	openaiclient "feedback-backend/internal/llm/openai"
	"feedback-backend/internal/shared/config"
	"feedback-backend/internal/shared/storage/db"
	"feedback-backend/internal/store"
)

func main() {
	weekFlag := flag.String("week", "", "week start date override (YYYY-MM-DD); default is the store-computed current week")
	flag.Parse()

	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var weekStart *time.Time
	if *weekFlag != "" {
		parsed, err := time.ParseInLocation("2006-01-02", *weekFlag, time.UTC)
		if err != nil {
			log.Fatalf("invalid -week %q: %v", *weekFlag, err)
		}
		weekStart = &parsed
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultRunnerOptions()))
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer sqlDB.Close()

	gateway := store.NewPGGateway(sqlDB)

	var completer llm.Completer = llm.PlaceholderCompleter{}
	if cfg.CompletionAPIKey != "" {
		client, err := openaiclient.NewClient(cfg.CompletionAPIKey, cfg.LLMModel)
		if err != nil {
			log.Printf("openai client init failed, analyzers will use fallbacks: %v", err)
		} else {
			completer = client
		}
	}

	processor := &healthanalysis.UserProcessor{
		Store:     gateway,
		Sentiment: &healthanalysis.SentimentAnalyzer{Completer: completer},
		Summaries: &healthanalysis.SummaryGenerator{Completer: completer},
		Themes:    &healthanalysis.ThemeExtractor{Completer: completer},
		Scores:    &healthanalysis.HealthScoreCalculator{HistoryWeeks: cfg.Analysis.HistoryWeeks},
	}
	coordinator := &healthanalysis.BatchCoordinator{
		Store:     gateway,
		Processor: processor,
		Lease:     healthanalysis.NewMemoryLease(),
		Config:    cfg.Analysis,
	}

	report, err := coordinator.Run(ctx, weekStart)
	if err != nil {
		log.Fatalf("run failed: %v", err)
	}
	log.Printf("run complete week=%s processed=%d errors=%d batches=%d elapsed=%.2fs",
		report.WeekStartDate.Format("2006-01-02"),
		report.TotalProcessed,
		report.TotalErrors,
		report.BatchesProcessed,
		report.Elapsed.Seconds(),
	)
}
