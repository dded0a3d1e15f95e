// Package history persists run reports into a local SQLite database so
// past runs can be listed and compared.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/apiprobe/apiprobe/packages/runner"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	started_at  TEXT NOT NULL,
	total       INTEGER NOT NULL,
	passed      INTEGER NOT NULL,
	failed      INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS results (
	run_id     TEXT NOT NULL REFERENCES runs(id),
	position   INTEGER NOT NULL,
	name       TEXT NOT NULL,
	passed     INTEGER NOT NULL,
	error      TEXT,
	elapsed_ms INTEGER NOT NULL,
	PRIMARY KEY (run_id, position)
);`

// Store is a SQLite-backed run history.
type Store struct {
	db *sql.DB
}

// RunSummary is one row of the run listing.
type RunSummary struct {
	ID         string
	StartedAt  time.Time
	Total      int
	Passed     int
	Failed     int
	DurationMs int64
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to history database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating history schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record stores a run report and its per-scenario results.
func (s *Store) Record(ctx context.Context, report *runner.Report) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, total, passed, failed, duration_ms) VALUES (?, ?, ?, ?, ?, ?)`,
		report.RunID, report.StartedAt.Format(time.RFC3339), len(report.Results),
		report.Passed, report.Failed, report.DurationMs)
	if err != nil {
		return fmt.Errorf("recording run: %w", err)
	}

	for i, r := range report.Results {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO results (run_id, position, name, passed, error, elapsed_ms) VALUES (?, ?, ?, ?, ?, ?)`,
			report.RunID, i, r.Name, r.Passed, r.Error, r.ElapsedMs)
		if err != nil {
			return fmt.Errorf("recording result %q: %w", r.Name, err)
		}
	}

	return tx.Commit()
}

// Recent returns the most recent runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]*RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, total, passed, failed, duration_ms
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []*RunSummary
	for rows.Next() {
		var (
			summary   RunSummary
			startedAt string
		)
		if err := rows.Scan(&summary.ID, &startedAt, &summary.Total,
			&summary.Passed, &summary.Failed, &summary.DurationMs); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		summary.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
		runs = append(runs, &summary)
	}

	return runs, rows.Err()
}

// Results returns the per-scenario results of one run in submission order.
func (s *Store) Results(ctx context.Context, runID string) ([]*runner.ScenarioResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, passed, error, elapsed_ms
		 FROM results WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("listing results: %w", err)
	}
	defer rows.Close()

	var results []*runner.ScenarioResult
	for rows.Next() {
		var r runner.ScenarioResult
		if err := rows.Scan(&r.Name, &r.Passed, &r.Error, &r.ElapsedMs); err != nil {
			return nil, fmt.Errorf("scanning result row: %w", err)
		}
		results = append(results, &r)
	}

	return results, rows.Err()
}
