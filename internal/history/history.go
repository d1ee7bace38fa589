// Package history persists build-run outcomes to a SQLite database in the
// output directory, one row per project result per run.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store is a SQLite-backed build-result log.
type Store struct {
	db *sql.DB
}

// Run is one build run's outcome.
type Run struct {
	ID      string
	Started time.Time
	Variant string
	Passed  []string
	Failed  []string
}

// Entry is one recorded project result.
type Entry struct {
	RunID   string
	Started time.Time
	Project string
	Variant string
	Outcome string // "pass" or "fail"
}

// Open opens (or creates) the history database at path. Use ":memory:" for
// an in-memory store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS build_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		started INTEGER NOT NULL,
		project TEXT NOT NULL,
		variant TEXT NOT NULL,
		outcome TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_run_id ON build_results(run_id);
	CREATE INDEX IF NOT EXISTS idx_started ON build_results(started);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record inserts one row per project result of the run.
func (s *Store) Record(ctx context.Context, run Run) error {
	insert := func(project, outcome string) error {
		_, err := s.db.ExecContext(ctx,
			"INSERT INTO build_results (run_id, started, project, variant, outcome) VALUES (?, ?, ?, ?, ?)",
			run.ID, run.Started.Unix(), project, run.Variant, outcome,
		)
		return err
	}
	for _, project := range run.Passed {
		if err := insert(project, "pass"); err != nil {
			return fmt.Errorf("record result: %w", err)
		}
	}
	for _, project := range run.Failed {
		if err := insert(project, "fail"); err != nil {
			return fmt.Errorf("record result: %w", err)
		}
	}
	return nil
}

// Recent returns up to limit results, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT run_id, started, project, variant, outcome FROM build_results ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var startedUnix int64
		if err := rows.Scan(&e.RunID, &startedUnix, &e.Project, &e.Variant, &e.Outcome); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		e.Started = time.Unix(startedUnix, 0)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return entries, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
