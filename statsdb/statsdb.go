// Package statsdb persists per-run support statistics to SQLite.
package statsdb

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/c360studio/semshape/extractor"
)

//go:embed schema.sql
var schemaSQL string

var (
	// ErrNotFound is returned when a run is not recorded.
	ErrNotFound = errors.New("run not found")
)

// DB wraps a SQLite connection for statistics storage.
type DB struct {
	conn *sql.DB
	path string
}

// Open opens or creates the statistics database at the given path.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}

	// Enable WAL mode and foreign keys
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enabling WAL: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &DB{conn: conn, path: path}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// SaveRun persists a run's summary, class counts, and per-combination
// support rows in one transaction. Saving the same run twice is an error;
// run IDs are unique per extraction.
func (db *DB) SaveRun(ctx context.Context, res *extractor.Result) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var triples int64
	if res.FirstPass != nil {
		triples += res.FirstPass.Triples
	}
	if res.SecondPass != nil {
		triples += res.SecondPass.Triples
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, finished_at, type_predicate, triples, parse_errors, classes, entities, shapes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.RunID, res.StartedAt.Unix(), res.FinishedAt.Unix(),
		res.TypePredicate, triples, res.ParseErrors(),
		len(res.ClassCounts), res.Entities, len(res.Shapes),
	); err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	for class, instances := range res.ClassCounts {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO class_stats (run_id, class, instances) VALUES (?, ?, ?)`,
			res.RunID, class, instances,
		); err != nil {
			return fmt.Errorf("inserting class stats: %w", err)
		}
	}

	for _, row := range res.Stats {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO constraint_stats
			 (run_id, class, property, object_type, kind, entities, class_instances, support, included, mandatory, max_count)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			res.RunID, row.Class, row.Property, row.ObjectType, string(row.Kind),
			row.Entities, row.ClassInstances, row.Support, row.Included, row.Mandatory, row.MaxCount,
		); err != nil {
			return fmt.Errorf("inserting constraint stats: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// RunSummary is one row of the runs table.
type RunSummary struct {
	ID            string
	StartedAt     time.Time
	FinishedAt    time.Time
	TypePredicate string
	Triples       int64
	ParseErrors   int64
	Classes       int
	Entities      int
	Shapes        int
}

// GetRun retrieves a run summary by run ID.
func (db *DB) GetRun(ctx context.Context, runID string) (*RunSummary, error) {
	var s RunSummary
	var startedAt, finishedAt int64
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, type_predicate, triples, parse_errors, classes, entities, shapes
		 FROM runs WHERE id = ?`,
		runID,
	).Scan(&s.ID, &startedAt, &finishedAt, &s.TypePredicate, &s.Triples, &s.ParseErrors, &s.Classes, &s.Entities, &s.Shapes)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying run: %w", err)
	}
	s.StartedAt = time.Unix(startedAt, 0)
	s.FinishedAt = time.Unix(finishedAt, 0)
	return &s, nil
}

// ListRuns returns run summaries, newest first.
func (db *DB) ListRuns(ctx context.Context) ([]*RunSummary, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, started_at, finished_at, type_predicate, triples, parse_errors, classes, entities, shapes
		 FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []*RunSummary
	for rows.Next() {
		var s RunSummary
		var startedAt, finishedAt int64
		if err := rows.Scan(&s.ID, &startedAt, &finishedAt, &s.TypePredicate, &s.Triples, &s.ParseErrors, &s.Classes, &s.Entities, &s.Shapes); err != nil {
			return nil, err
		}
		s.StartedAt = time.Unix(startedAt, 0)
		s.FinishedAt = time.Unix(finishedAt, 0)
		runs = append(runs, &s)
	}
	return runs, rows.Err()
}

// ClassInstances returns the per-class instance counts recorded for a run.
func (db *DB) ClassInstances(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT class, instances FROM class_stats WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying class stats: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var class string
		var instances int
		if err := rows.Scan(&class, &instances); err != nil {
			return nil, err
		}
		counts[class] = instances
	}
	return counts, rows.Err()
}

// SupportHistogram buckets a run's support values into the given number of
// equal-width bins over [0, 1]. Support 1.0 lands in the last bin.
func (db *DB) SupportHistogram(ctx context.Context, runID string, buckets int) ([]int, error) {
	if buckets <= 0 {
		return nil, fmt.Errorf("buckets must be positive, got %d", buckets)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT MIN(CAST(support * ? AS INTEGER), ? - 1) AS bucket, COUNT(*)
		 FROM constraint_stats WHERE run_id = ?
		 GROUP BY bucket ORDER BY bucket`,
		buckets, buckets, runID)
	if err != nil {
		return nil, fmt.Errorf("querying histogram: %w", err)
	}
	defer rows.Close()

	hist := make([]int, buckets)
	for rows.Next() {
		var bucket, count int
		if err := rows.Scan(&bucket, &count); err != nil {
			return nil, err
		}
		if bucket < 0 || bucket >= buckets {
			continue
		}
		hist[bucket] = count
	}
	return hist, rows.Err()
}
