/*
Package sqlite provides the SQLite-backed pipeline run journal.

PURPOSE:
  Every reporting run (import -> metrics -> export fan-out) leaves a
  durable trace here: when it ran, what it read, how many rows each
  metric table produced, and how every export destination fared. The
  journal replaces scrolling back through process output when a
  dashboard looks stale. Metric results themselves are never stored;
  runs recompute from source every time.

KEY TABLES:
  runs:           One row per pipeline run with status and row counts
  export_results: One row per (run, table, destination) outcome

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  journal, err := sqlite.New("./data/people-analytics.db")
  if err != nil {
      log.Fatal(err)
  }
  defer journal.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - cmd/report: writes a run per pipeline execution
  - api:        exposes runs and export results read-only
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Run statuses.
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// Export result statuses.
const (
	ExportOK     = "exported"
	ExportFailed = "failed"
)

// Store is the SQLite-backed journal.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a journal store at the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Pipeline runs
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'running',
		input_rows INTEGER DEFAULT 0,
		turnover_rows INTEGER DEFAULT 0,
		tenure_rows INTEGER DEFAULT 0,
		error TEXT,
		started_at TEXT NOT NULL,
		finished_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at
		ON runs(started_at DESC);
	CREATE INDEX IF NOT EXISTS idx_runs_status
		ON runs(status);

	-- Per-destination export outcomes
	CREATE TABLE IF NOT EXISTS export_results (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		table_name TEXT NOT NULL,
		spreadsheet_id TEXT NOT NULL,
		tab TEXT NOT NULL,
		status TEXT NOT NULL,
		error TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_export_results_run
		ON export_results(run_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// RUNS
// =============================================================================

// Run is one pipeline execution.
type Run struct {
	ID           string
	Source       string
	Status       string // running, completed, failed
	InputRows    int
	TurnoverRows int
	TenureRows   int
	Error        string
	StartedAt    time.Time
	FinishedAt   *time.Time
}

// SaveRun inserts or updates a run. Row counts and status replace the
// stored values; finished_at is only written by FinishRun.
func (s *Store) SaveRun(ctx context.Context, r Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO runs (id, source, status, input_rows, turnover_rows, tenure_rows, error, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source = excluded.source,
			status = excluded.status,
			input_rows = excluded.input_rows,
			turnover_rows = excluded.turnover_rows,
			tenure_rows = excluded.tenure_rows,
			error = excluded.error
	`

	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.Source, r.Status,
		r.InputRows, r.TurnoverRows, r.TenureRows,
		nullString(r.Error),
		r.StartedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// FinishRun closes a run with its final status. A nil runErr records a
// clean finish; otherwise the message is stored alongside the status.
func (s *Store) FinishRun(ctx context.Context, id, status string, runErr error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE runs SET status = ?, error = ?, finished_at = ? WHERE id = ?",
		status, nullString(errMsg), time.Now().UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("run %s not found", id)
	}
	return nil
}

// GetRun retrieves a run by ID. Missing runs return nil, nil.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, source, status, input_rows, turnover_rows, tenure_rows, error, started_at, finished_at
		FROM runs WHERE id = ?
	`

	var r Run
	var errMsg, finishedAt sql.NullString
	var startedAt string
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&r.ID, &r.Source, &r.Status,
		&r.InputRows, &r.TurnoverRows, &r.TenureRows,
		&errMsg, &startedAt, &finishedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	r.Error = errMsg.String
	r.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
	if finishedAt.Valid {
		t, _ := time.Parse(time.RFC3339, finishedAt.String)
		r.FinishedAt = &t
	}
	return &r, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, source, status, input_rows, turnover_rows, tenure_rows, error, started_at, finished_at
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var errMsg, finishedAt sql.NullString
		var startedAt string
		if err := rows.Scan(
			&r.ID, &r.Source, &r.Status,
			&r.InputRows, &r.TurnoverRows, &r.TenureRows,
			&errMsg, &startedAt, &finishedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.Error = errMsg.String
		r.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
		if finishedAt.Valid {
			t, _ := time.Parse(time.RFC3339, finishedAt.String)
			r.FinishedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// =============================================================================
// EXPORT RESULTS
// =============================================================================

// ExportResult is the outcome of writing one metric table to one
// destination tab.
type ExportResult struct {
	ID            string
	RunID         string
	Table         string // turnover, tenure
	SpreadsheetID string
	Tab           string
	Status        string // exported, failed
	Error         string
	CreatedAt     time.Time
}

// SaveExportResult records one destination outcome.
func (s *Store) SaveExportResult(ctx context.Context, r ExportResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO export_results (id, run_id, table_name, spreadsheet_id, tab, status, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.RunID, r.Table, r.SpreadsheetID, r.Tab,
		r.Status, nullString(r.Error),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save export result: %w", err)
	}
	return nil
}

// ListExportResults returns a run's export outcomes in insertion order.
func (s *Store) ListExportResults(ctx context.Context, runID string) ([]ExportResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, run_id, table_name, spreadsheet_id, tab, status, error, created_at
		FROM export_results
		WHERE run_id = ?
		ORDER BY created_at ASC, id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list export results: %w", err)
	}
	defer rows.Close()

	var results []ExportResult
	for rows.Next() {
		var r ExportResult
		var errMsg sql.NullString
		var createdAt string
		if err := rows.Scan(
			&r.ID, &r.RunID, &r.Table, &r.SpreadsheetID, &r.Tab,
			&r.Status, &errMsg, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan export result: %w", err)
		}
		r.Error = errMsg.String
		r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		results = append(results, r)
	}
	return results, rows.Err()
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
