// Package duckdb persists run history in an embedded DuckDB database.
package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/manthysbr/jobpilot/internal/core/domain"
	"github.com/manthysbr/jobpilot/internal/core/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          VARCHAR PRIMARY KEY,
	artifact    VARCHAR NOT NULL,
	job_id      VARCHAR,
	outcome     VARCHAR NOT NULL,
	reason      VARCHAR,
	attempts    INTEGER NOT NULL,
	started_at  TIMESTAMP NOT NULL,
	finished_at TIMESTAMP NOT NULL,
	duration_ms BIGINT NOT NULL
)`

type Repository struct {
	db *sql.DB
}

// Ensure Repository implements RunStore interface
var _ ports.RunStore = (*Repository)(nil)

// NewRepository opens (or creates) the database at path. An empty path
// opens an in-memory database.
func NewRepository(path string) (*Repository, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb %q: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// SaveRun upserts a run record.
func (r *Repository) SaveRun(ctx context.Context, rec domain.RunRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO runs (id, artifact, job_id, outcome, reason, attempts, started_at, finished_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			job_id      = excluded.job_id,
			outcome     = excluded.outcome,
			reason      = excluded.reason,
			attempts    = excluded.attempts,
			finished_at = excluded.finished_at,
			duration_ms = excluded.duration_ms`,
		string(rec.ID),
		rec.Artifact,
		string(rec.JobID),
		string(rec.Outcome),
		rec.Reason,
		rec.Attempts,
		rec.StartedAt.UTC(),
		rec.FinishedAt.UTC(),
		rec.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("upsert run %s: %w", rec.ID, err)
	}
	return nil
}

// GetRun returns a single run or domain.ErrRunNotFound.
func (r *Repository) GetRun(ctx context.Context, id domain.RunID) (domain.RunRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, artifact, job_id, outcome, reason, attempts, started_at, finished_at, duration_ms
		FROM runs
		WHERE id = ?`, string(id))

	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.RunRecord{}, fmt.Errorf("%w: %s", domain.ErrRunNotFound, id)
	}
	if err != nil {
		return domain.RunRecord{}, fmt.Errorf("get run %s: %w", id, err)
	}
	return rec, nil
}

// ListRuns returns the most recent runs (newest first).
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, artifact, job_id, outcome, reason, attempts, started_at, finished_at, duration_ms
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	out := []domain.RunRecord{}
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (domain.RunRecord, error) {
	var (
		rec                   domain.RunRecord
		id, jobID, outcome    string
		reason                sql.NullString
		startedAt, finishedAt time.Time
	)
	err := s.Scan(&id, &rec.Artifact, &jobID, &outcome, &reason, &rec.Attempts, &startedAt, &finishedAt, &rec.DurationMs)
	if err != nil {
		return rec, err
	}
	rec.ID = domain.RunID(id)
	rec.JobID = domain.JobID(jobID)
	rec.Outcome = domain.Outcome(outcome)
	rec.Reason = reason.String
	rec.StartedAt = startedAt.UTC()
	rec.FinishedAt = finishedAt.UTC()
	return rec, nil
}
