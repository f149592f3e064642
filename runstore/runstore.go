// Package runstore keeps a local history of compliance runs in SQLite so
// regressions can be traced across invocations without digging through CI
// artifact archives.
package runstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rishi-jat/cardwatch/compliance/report"
	"github.com/rishi-jat/cardwatch/dbopen"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id       TEXT PRIMARY KEY,
	generated_at TEXT NOT NULL,
	total_cards  INTEGER NOT NULL,
	passed       INTEGER NOT NULL,
	failed       INTEGER NOT NULL,
	warned       INTEGER NOT NULL,
	skipped      INTEGER NOT NULL,
	gate_passed  INTEGER NOT NULL,
	report       BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_generated_at ON runs(generated_at);
`

// RunSummary is one row of the run history.
type RunSummary struct {
	RunID       string
	GeneratedAt time.Time
	TotalCards  int
	Passed      int
	Failed      int
	Warned      int
	Skipped     int
	GatePassed  bool
}

// Store persists compliance reports.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the run history database at path.
func Open(path string) (*Store, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(schema))
	if err != nil {
		return nil, fmt.Errorf("runstore: %w", err)
	}
	return &Store{db: db}, nil
}

// NewWithDB wraps an already-open database. The schema must be applied by
// the caller (dbopen.WithSchema does this).
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// Schema returns the store's DDL, for use with dbopen.WithSchema.
func Schema() string { return schema }

// Save records one run. The full report is stored as JSON alongside the
// summary columns used for listing.
func (s *Store) Save(ctx context.Context, r *report.Report, gatePassed bool) error {
	blob, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("runstore: marshal report: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, generated_at, total_cards, passed, failed, warned, skipped, gate_passed, report)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID,
		r.GeneratedAt.UTC().Format(time.RFC3339Nano),
		r.Summary.TotalCards,
		r.Summary.Passed,
		r.Summary.Failed,
		r.Summary.Warned,
		r.Summary.Skipped,
		boolInt(gatePassed),
		blob,
	)
	if err != nil {
		return fmt.Errorf("runstore: save run %s: %w", r.RunID, err)
	}
	return nil
}

// Recent lists the most recent runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, generated_at, total_cards, passed, failed, warned, skipped, gate_passed
		FROM runs ORDER BY generated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("runstore: list runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var rs RunSummary
		var ts string
		var gate int
		if err := rows.Scan(&rs.RunID, &ts, &rs.TotalCards, &rs.Passed, &rs.Failed,
			&rs.Warned, &rs.Skipped, &gate); err != nil {
			return nil, fmt.Errorf("runstore: scan run: %w", err)
		}
		rs.GeneratedAt, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("runstore: parse timestamp %q: %w", ts, err)
		}
		rs.GatePassed = gate != 0
		out = append(out, rs)
	}
	return out, rows.Err()
}

// Load retrieves the full report for a run.
func (s *Store) Load(ctx context.Context, runID string) (*report.Report, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT report FROM runs WHERE run_id = ?`, runID).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("runstore: run %s not found", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("runstore: load run %s: %w", runID, err)
	}
	var r report.Report
	if err := json.Unmarshal(blob, &r); err != nil {
		return nil, fmt.Errorf("runstore: unmarshal run %s: %w", runID, err)
	}
	return &r, nil
}

// Prune deletes runs older than the retention window and reclaims space.
// Zero or negative retention disables pruning.
func (s *Store) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, nil
	}
	cutoff := time.Now().Add(-retention).UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM runs WHERE generated_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("runstore: prune: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
			return n, fmt.Errorf("runstore: vacuum: %w", err)
		}
	}
	return n, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
