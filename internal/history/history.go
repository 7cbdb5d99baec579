// Package history persists a record of every conversion and atlas job to a
// small SQLite database, so past runs can be listed from the CLI.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Status mirrors the job state machine's terminal states plus "running".
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusTimedOut  Status = "timed_out"
	StatusCancelled Status = "cancelled"
)

// Job is one recorded run.
type Job struct {
	ID         string
	Kind       string // "convert" or "atlas"
	Source     string
	Output     string
	Format     string
	Status     Status
	Detail     string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Store manages job history backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	source TEXT NOT NULL,
	output TEXT NOT NULL DEFAULT '',
	format TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	detail TEXT NOT NULL DEFAULT '',
	started_at TEXT NOT NULL,
	finished_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_jobs_started_at ON jobs(started_at DESC);
`

// Open initializes or connects to the history database inside dir.
func Open(dir string) (*Store, error) {
	dbPath := filepath.Join(dir, "history.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Store{db: db, path: dbPath}, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// Begin records a job in the running state.
func (s *Store) Begin(ctx context.Context, job Job) error {
	return s.execWithRetry(ctx, `
		INSERT INTO jobs (id, kind, source, output, format, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.Kind, job.Source, job.Output, job.Format,
		string(StatusRunning), job.StartedAt.UTC().Format(time.RFC3339Nano))
}

// Finish moves a job to a terminal state, recording the output path that was
// actually written and a short failure detail when there is one.
func (s *Store) Finish(ctx context.Context, id string, status Status, output, detail string) error {
	return s.execWithRetry(ctx, `
		UPDATE jobs SET status = ?, output = ?, detail = ?, finished_at = ?
		WHERE id = ?`,
		string(status), output, detail,
		time.Now().UTC().Format(time.RFC3339Nano), id)
}

// List returns the most recent jobs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Job, error) {
	if limit <= 0 {
		limit = 20
	}
	ctx = ensureContext(ctx)

	var rows *sql.Rows
	err := retryOnBusy(ctx, func() error {
		var queryErr error
		rows, queryErr = s.db.QueryContext(ctx, `
			SELECT id, kind, source, output, format, status, detail, started_at, finished_at
			FROM jobs ORDER BY started_at DESC LIMIT ?`, limit)
		return queryErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var job Job
		var status, startedAt string
		var finishedAt sql.NullString
		if err := rows.Scan(&job.ID, &job.Kind, &job.Source, &job.Output, &job.Format,
			&status, &job.Detail, &startedAt, &finishedAt); err != nil {
			return nil, err
		}
		job.Status = Status(status)
		job.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
		if finishedAt.Valid {
			job.FinishedAt, _ = time.Parse(time.RFC3339Nano, finishedAt.String)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
