/*
Package report runs the end-to-end people-analytics pipeline.

PURPOSE:
  One Run does what the monthly reporting routine used to be by hand:
  fetch the headcount snapshot, compute the turnover and tenure tables,
  publish them to every configured dashboard tab, render the survey
  heatmaps, and journal the whole thing.

RUN FLOW:
  1. Journal a running entry
  2. Fetch the snapshot from the configured source
  3. Compute turnover and tenure tables
  4. Export each table to all destinations (continue on error)
  5. Render configured heatmaps (continue on error)
  6. Finish the journal entry with the outcome

FAILURE POLICY:
  Source and metric failures abort the run; the journal records the
  error. Export and heatmap failures never abort: a broken dashboard
  permission must not keep the other dashboards stale. Every export
  outcome lands in the journal either way.

SEE ALSO:
  - scheduler.go:     interval re-runs for long-lived processes
  - cmd/report:       the CLI wrapping this package
  - store/sqlite:     the journal the run writes
*/
package report

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/warp/people-analytics/config"
	"github.com/warp/people-analytics/dataset"
	"github.com/warp/people-analytics/heatmap"
	"github.com/warp/people-analytics/metrics"
	"github.com/warp/people-analytics/sheets"
	"github.com/warp/people-analytics/store/sqlite"
)

// Pipeline holds everything one reporting run needs.
type Pipeline struct {
	Config  *config.Config
	Source  Source
	Sheets  *sheets.Client // nil when the run touches no spreadsheet
	Journal *sqlite.Store
}

// Summary describes what a run produced.
type Summary struct {
	RunID         string
	InputRows     int
	TurnoverRows  int
	TenureRows    int
	ExportsOK     int
	ExportsFailed int
	Heatmaps      []string // saved PNG paths
}

// New wires a pipeline. Config, source and journal are required; the
// sheets client only when destinations or sheet sources are configured.
func New(cfg *config.Config, source Source, sheetsClient *sheets.Client, journal *sqlite.Store) (*Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("report: config is required")
	}
	if source == nil {
		return nil, fmt.Errorf("report: source is required")
	}
	if journal == nil {
		return nil, fmt.Errorf("report: journal is required")
	}
	if cfg.NeedsSheetsAccess() && sheetsClient == nil {
		return nil, fmt.Errorf("report: config requires sheets access but no client was provided")
	}
	return &Pipeline{
		Config:  cfg,
		Source:  source,
		Sheets:  sheetsClient,
		Journal: journal,
	}, nil
}

// Run executes one full pipeline pass.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	run := sqlite.Run{
		ID:        uuid.New().String(),
		Source:    p.Config.Source.Describe(),
		Status:    sqlite.RunRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := p.Journal.SaveRun(ctx, run); err != nil {
		return nil, fmt.Errorf("journal run: %w", err)
	}
	log.Printf("[Report] run %s started: %s", run.ID, run.Source)

	ds, err := p.Source.Fetch(ctx)
	if err != nil {
		return nil, p.fail(ctx, run.ID, fmt.Errorf("fetch source: %w", err))
	}
	run.InputRows = ds.Len()

	opts := p.Config.Metrics.Options()
	turnover, err := metrics.TurnoverTable(ds, nil, opts)
	if err != nil {
		return nil, p.fail(ctx, run.ID, fmt.Errorf("compute turnover: %w", err))
	}
	tenure, err := metrics.TenureTable(ds, nil, opts)
	if err != nil {
		return nil, p.fail(ctx, run.ID, fmt.Errorf("compute tenure: %w", err))
	}

	run.TurnoverRows = turnover.Len()
	run.TenureRows = tenure.Len()
	if err := p.Journal.SaveRun(ctx, run); err != nil {
		log.Printf("[Report] failed to journal row counts: %v", err)
	}

	summary := &Summary{
		RunID:        run.ID,
		InputRows:    run.InputRows,
		TurnoverRows: run.TurnoverRows,
		TenureRows:   run.TenureRows,
	}

	p.exportTable(ctx, run.ID, "turnover", turnover, p.Config.Export.Turnover, summary)
	p.exportTable(ctx, run.ID, "tenure", tenure, p.Config.Export.Tenure, summary)
	p.renderHeatmaps(ctx, ds, summary)

	if err := p.Journal.FinishRun(ctx, run.ID, sqlite.RunCompleted, nil); err != nil {
		log.Printf("[Report] failed to journal completion: %v", err)
	}
	log.Printf("[Report] run %s completed: %d input rows, %d turnover, %d tenure, %d/%d exports ok",
		run.ID, summary.InputRows, summary.TurnoverRows, summary.TenureRows,
		summary.ExportsOK, summary.ExportsOK+summary.ExportsFailed)
	return summary, nil
}

// fail finishes the journal entry and passes the error back up.
func (p *Pipeline) fail(ctx context.Context, runID string, err error) error {
	if ferr := p.Journal.FinishRun(ctx, runID, sqlite.RunFailed, err); ferr != nil {
		log.Printf("[Report] failed to journal run failure: %v", ferr)
	}
	log.Printf("[Report] run %s failed: %v", runID, err)
	return err
}

// exportTable publishes one metric table to its destinations and
// journals every outcome. Export errors are recorded, never raised.
func (p *Pipeline) exportTable(ctx context.Context, runID, table string, ds *dataset.Dataset, cfg config.TableExportConfig, summary *Summary) {
	if len(cfg.Destinations) == 0 {
		return
	}

	destinations := cfg.SheetDestinations()
	results, err := p.Sheets.Export(ctx, ds, destinations, sheets.ExportOptions{
		Range: p.Config.Export.Range,
		Order: cfg.Order,
	})
	if err != nil {
		// The whole call failed before any write (bad column order).
		log.Printf("[Report] export %s failed: %v", table, err)
		for _, dest := range destinations {
			p.journalExport(ctx, runID, table, dest, err)
			summary.ExportsFailed++
		}
		return
	}

	for _, res := range results {
		p.journalExport(ctx, runID, table, res.Destination, res.Err)
		if res.Err != nil {
			summary.ExportsFailed++
		} else {
			summary.ExportsOK++
		}
	}
}

func (p *Pipeline) journalExport(ctx context.Context, runID, table string, dest sheets.Destination, expErr error) {
	result := sqlite.ExportResult{
		ID:            uuid.New().String(),
		RunID:         runID,
		Table:         table,
		SpreadsheetID: dest.SpreadsheetID,
		Tab:           dest.Tab,
		Status:        sqlite.ExportOK,
	}
	if expErr != nil {
		result.Status = sqlite.ExportFailed
		result.Error = expErr.Error()
	}
	if err := p.Journal.SaveExportResult(ctx, result); err != nil {
		log.Printf("[Report] failed to journal export result: %v", err)
	}
}

// renderHeatmaps draws the configured survey heatmaps. When the config
// names its own survey source, that table is fetched; otherwise the
// main snapshot is used. Failures are logged and skipped.
func (p *Pipeline) renderHeatmaps(ctx context.Context, ds *dataset.Dataset, summary *Summary) {
	cfg := p.Config.Heatmaps
	if len(cfg.Plots) == 0 {
		return
	}

	survey := ds
	if cfg.Source.Kind != "" {
		src, err := NewSource(cfg.Source, p.Sheets)
		if err != nil {
			log.Printf("[Report] survey source: %v", err)
			return
		}
		survey, err = src.Fetch(ctx)
		if err != nil {
			log.Printf("[Report] fetch survey source: %v", err)
			return
		}
	}

	opts := cfg.Options()
	for _, plot := range cfg.Plots {
		path, err := heatmap.Save(survey, plot.Group, plot.Filter, opts)
		if err != nil {
			log.Printf("[Report] heatmap %s/%s failed: %v", plot.Group, plot.Filter, err)
			continue
		}
		log.Printf("[Report] heatmap saved: %s", path)
		summary.Heatmaps = append(summary.Heatmaps, path)
	}
}
