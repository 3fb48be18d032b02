/*
main.go - Reporting pipeline entry point

PURPOSE:
  Runs the monthly people-analytics routine end to end: fetch the
  headcount snapshot, compute turnover and tenure, publish to the
  dashboard spreadsheets, render survey heatmaps, journal the run.

STARTUP SEQUENCE:
  1. Parse command-line flags and load the YAML config
  2. Acquire Google credentials when sheets are involved
  3. Build the source, journal and pipeline
  4. Run once, or keep refreshing with -every

COMMAND-LINE FLAGS:
  -config      Config file path (default: config.yaml)
  -authorize   Run the one-time Google consent flow and exit
  -every       Re-run interval for long-lived deployments (0 = once)

EXIT CODES:
  0  run completed and every export succeeded
  1  startup failure, run failure, or at least one failed export

EXAMPLES:
  # One-time Google authorization
  ./report -config=config.yaml -authorize

  # Single run (cron-friendly)
  ./report -config=config.yaml

  # Keep the dashboards fresh every 24h
  ./report -config=config.yaml -every=24h

SEE ALSO:
  - report/report.go: The pipeline this command wraps
  - config.example.yaml: Annotated configuration
*/
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/warp/people-analytics/config"
	"github.com/warp/people-analytics/credentials"
	"github.com/warp/people-analytics/report"
	"github.com/warp/people-analytics/sheets"
	"github.com/warp/people-analytics/store/sqlite"
)

func main() {
	// Flags
	configPath := flag.String("config", "config.yaml", "config file path")
	authorize := flag.Bool("authorize", false, "run the Google consent flow and exit")
	every := flag.Duration("every", 0, "re-run interval (0 runs once)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	if *authorize {
		authorizer, err := credentials.Load(cfg.Credentials.ClientSecret, cfg.Credentials.Token)
		if err != nil {
			log.Fatalf("Failed to load client secret: %v", err)
		}
		if err := authorizer.Authorize(ctx); err != nil {
			log.Fatalf("Authorization failed: %v", err)
		}
		log.Printf("Token saved to %s", cfg.Credentials.Token)
		return
	}

	// Sheets client only when the config reads or writes spreadsheets.
	var sheetsClient *sheets.Client
	if cfg.NeedsSheetsAccess() {
		authorizer, err := credentials.Load(cfg.Credentials.ClientSecret, cfg.Credentials.Token)
		if err != nil {
			log.Fatalf("Failed to load client secret: %v", err)
		}
		ts, err := authorizer.TokenSource(ctx)
		if err != nil {
			log.Fatalf("Failed to load token: %v", err)
		}
		sheetsClient, err = sheets.NewFromTokenSource(ctx, ts)
		if err != nil {
			log.Fatalf("Failed to build sheets client: %v", err)
		}
	}

	source, err := report.NewSource(cfg.Source, sheetsClient)
	if err != nil {
		log.Fatalf("Failed to build source: %v", err)
	}

	if dir := filepath.Dir(cfg.Journal.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("Failed to create journal directory: %v", err)
		}
	}
	journal, err := sqlite.New(cfg.Journal.Path)
	if err != nil {
		log.Fatalf("Failed to open run journal: %v", err)
	}
	defer journal.Close()

	pipeline, err := report.New(cfg, source, sheetsClient, journal)
	if err != nil {
		log.Fatalf("Failed to wire pipeline: %v", err)
	}

	if *every > 0 {
		runForever(pipeline, *every)
		return
	}

	summary, err := pipeline.Run(ctx)
	if err != nil {
		log.Fatalf("Run failed: %v", err)
	}
	if summary.ExportsFailed > 0 {
		log.Printf("Run %s finished with %d failed exports, see the journal", summary.RunID, summary.ExportsFailed)
		os.Exit(1)
	}
}

// runForever keeps the pipeline on the given interval until SIGINT or
// SIGTERM arrives.
func runForever(pipeline *report.Pipeline, interval time.Duration) {
	scheduler := report.NewScheduler(pipeline, interval)
	scheduler.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	scheduler.Stop()
}
