// Package sqlite provides a SQLite-backed implementation of the job
// repository port.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ewilliams-labs/rubato/backend/internal/core/domain"
	_ "github.com/mattn/go-sqlite3" // Import the driver anonymously
)

// Adapter implements ports.JobRepository on a local SQLite database.
type Adapter struct {
	db *sql.DB
}

// NewAdapter opens the database and runs the schema migration.
func NewAdapter(storagePath string) (*Adapter, error) {
	db, err := sql.Open("sqlite3", storagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}

	adapter := &Adapter{db: db}
	if err := adapter.migrate(); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return adapter, nil
}

// Close ensures the DB connection is closed gracefully.
func (a *Adapter) Close() error {
	return a.db.Close()
}

// Create inserts a new job in its initial status.
func (a *Adapter) Create(ctx context.Context, job domain.Job) error {
	now := time.Now().UTC()
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO analysis_jobs (id, kind, status, error, result, created_at, updated_at)
		VALUES (?, ?, ?, '', NULL, ?, ?)
	`, job.ID, job.Kind, job.Status, now, now)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

// GetByID loads one job.
func (a *Adapter) GetByID(ctx context.Context, id string) (domain.Job, error) {
	row := a.db.QueryRowContext(ctx, `
		SELECT id, kind, status, error, result, created_at, updated_at
		FROM analysis_jobs WHERE id = ?
	`, id)

	var job domain.Job
	var result sql.NullString
	if err := row.Scan(&job.ID, &job.Kind, &job.Status, &job.Error, &result, &job.CreatedAt, &job.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return domain.Job{}, domain.ErrNotFound
		}
		return domain.Job{}, fmt.Errorf("failed to load job: %w", err)
	}
	if result.Valid && result.String != "" {
		job.Result = json.RawMessage(result.String)
	}
	return job, nil
}

// MarkDone stores the result and flips the job to done.
func (a *Adapter) MarkDone(ctx context.Context, id string, result json.RawMessage) error {
	res, err := a.db.ExecContext(ctx, `
		UPDATE analysis_jobs SET status = ?, result = ?, error = '', updated_at = ?
		WHERE id = ?
	`, domain.JobStatusDone, string(result), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to mark job done: %w", err)
	}
	return requireRow(res)
}

// MarkError records a failure message and flips the job to error.
func (a *Adapter) MarkError(ctx context.Context, id string, message string) error {
	res, err := a.db.ExecContext(ctx, `
		UPDATE analysis_jobs SET status = ?, error = ?, updated_at = ?
		WHERE id = ?
	`, domain.JobStatusError, message, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to mark job errored: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (a *Adapter) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS analysis_jobs (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		status TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		result TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	`
	if _, err := a.db.Exec(query); err != nil {
		return err
	}
	return nil
}
