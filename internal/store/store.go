// Package store is the Batch Executor's durable Job Store: Postgres
// persistence for BatchJob records and their per-email results.
// Grounded on the teacher's internal/store/db.go (pgxpool.Init +
// migrations, jobs/results tables), generalised from the teacher's
// {id, status, total_count, processed_count} schema to the full
// BatchJob invariants (owner, stream, valid/invalid split, callback
// and notify targets, error, 7-day retention).
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"verifyengine/internal/models"
)

// Retention is how long a completed or failed job's rows are kept
// before Cleanup removes them (spec §4.8: "7-day retention").
const Retention = 7 * 24 * time.Hour

// Store is the Batch Executor's Postgres-backed persistence layer.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to Postgres and runs migrations.
func Open(ctx context.Context, connString string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	const jobsTable = `
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		stream TEXT NOT NULL,
		status TEXT NOT NULL,
		total_count INT DEFAULT 0,
		processed_count INT DEFAULT 0,
		valid_count INT DEFAULT 0,
		invalid_count INT DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		callback_url TEXT NOT NULL DEFAULT '',
		notify_email TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ DEFAULT NOW(),
		started_at TIMESTAMPTZ,
		completed_at TIMESTAMPTZ
	);`

	const resultsTable = `
	CREATE TABLE IF NOT EXISTS results (
		id SERIAL PRIMARY KEY,
		job_id TEXT NOT NULL REFERENCES jobs(id),
		email TEXT NOT NULL,
		data JSONB NOT NULL,
		created_at TIMESTAMPTZ DEFAULT NOW()
	);`

	const resultsIndex = `CREATE INDEX IF NOT EXISTS results_job_id_idx ON results(job_id);`

	if _, err := s.pool.Exec(ctx, jobsTable); err != nil {
		return fmt.Errorf("migration failed (jobs): %w", err)
	}
	if _, err := s.pool.Exec(ctx, resultsTable); err != nil {
		return fmt.Errorf("migration failed (results): %w", err)
	}
	if _, err := s.pool.Exec(ctx, resultsIndex); err != nil {
		return fmt.Errorf("migration failed (results index): %w", err)
	}
	return nil
}

// CreateJob inserts a new job in the queued state.
func (s *Store) CreateJob(ctx context.Context, job models.BatchJob) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO jobs (id, owner, stream, status, total_count, callback_url, notify_email)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, job.BatchID, job.Owner, string(job.Stream), string(models.BatchQueued), job.Total, job.CallbackURL, job.NotifyEmail)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

// GetJob loads a job by id, scoped to owner so one tenant cannot read
// another's batch.
func (s *Store) GetJob(ctx context.Context, batchID, owner string) (models.BatchJob, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, owner, stream, status, total_count, processed_count, valid_count,
		       invalid_count, error, callback_url, notify_email, created_at, started_at, completed_at
		FROM jobs WHERE id = $1 AND owner = $2
	`, batchID, owner)

	var job models.BatchJob
	var stream, status string
	if err := row.Scan(&job.BatchID, &job.Owner, &stream, &status, &job.Total, &job.Processed,
		&job.Valid, &job.Invalid, &job.Error, &job.CallbackURL, &job.NotifyEmail,
		&job.CreatedAt, &job.StartedAt, &job.CompletedAt); err != nil {
		if err == pgx.ErrNoRows {
			return models.BatchJob{}, ErrNotFound
		}
		return models.BatchJob{}, fmt.Errorf("get job: %w", err)
	}
	job.Stream = models.BatchStream(stream)
	job.Status = models.BatchStatus(status)
	return job, nil
}

// GetJobByID loads a job without scoping to an owner, for internal use
// by the worker pool (which only has a batch id, not a caller identity).
func (s *Store) GetJobByID(ctx context.Context, batchID string) (models.BatchJob, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, owner, stream, status, total_count, processed_count, valid_count,
		       invalid_count, error, callback_url, notify_email, created_at, started_at, completed_at
		FROM jobs WHERE id = $1
	`, batchID)

	var job models.BatchJob
	var stream, status string
	if err := row.Scan(&job.BatchID, &job.Owner, &stream, &status, &job.Total, &job.Processed,
		&job.Valid, &job.Invalid, &job.Error, &job.CallbackURL, &job.NotifyEmail,
		&job.CreatedAt, &job.StartedAt, &job.CompletedAt); err != nil {
		if err == pgx.ErrNoRows {
			return models.BatchJob{}, ErrNotFound
		}
		return models.BatchJob{}, fmt.Errorf("get job: %w", err)
	}
	job.Stream = models.BatchStream(stream)
	job.Status = models.BatchStatus(status)
	return job, nil
}

// MarkStarted transitions a job to processing and stamps started_at.
func (s *Store) MarkStarted(ctx context.Context, batchID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE jobs SET status = $2, started_at = NOW() WHERE id = $1
	`, batchID, string(models.BatchProcessing))
	return err
}

// UpdateProgress flushes the counters accumulated since the last flush
// (spec §4.8 step 4: "flush counters every 50 emails and at completion").
func (s *Store) UpdateProgress(ctx context.Context, batchID string, processed, valid, invalid int) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE jobs
		SET processed_count = processed_count + $2,
		    valid_count = valid_count + $3,
		    invalid_count = invalid_count + $4
		WHERE id = $1
	`, batchID, processed, valid, invalid)
	return err
}

// MarkCompleted finalises a job as completed.
func (s *Store) MarkCompleted(ctx context.Context, batchID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE jobs SET status = $2, completed_at = NOW() WHERE id = $1
	`, batchID, string(models.BatchCompleted))
	return err
}

// MarkFailed finalises a job as failed with the given error text (for
// example "cancelled" on an operator-initiated cancellation).
func (s *Store) MarkFailed(ctx context.Context, batchID, reason string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE jobs SET status = $2, error = $3, completed_at = NOW() WHERE id = $1
	`, batchID, string(models.BatchFailed), reason)
	return err
}

// Status returns just the current status, used by the worker loop to
// observe an operator-initiated cancellation at email boundaries.
func (s *Store) Status(ctx context.Context, batchID string) (models.BatchStatus, error) {
	var status string
	err := s.pool.QueryRow(ctx, `SELECT status FROM jobs WHERE id = $1`, batchID).Scan(&status)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", ErrNotFound
		}
		return "", err
	}
	return models.BatchStatus(status), nil
}

// InsertResult persists one per-email verification outcome.
func (s *Store) InsertResult(ctx context.Context, er models.EmailResult) error {
	data, err := json.Marshal(er.Result)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO results (job_id, email, data) VALUES ($1, $2, $3)
	`, er.BatchID, er.Email, data)
	return err
}

// ListResults returns every per-email result recorded for a batch, in
// insertion order, for CSV/JSON export.
func (s *Store) ListResults(ctx context.Context, batchID string) ([]models.EmailResult, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT email, data FROM results WHERE job_id = $1 ORDER BY id ASC
	`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.EmailResult
	for rows.Next() {
		var email string
		var data []byte
		if err := rows.Scan(&email, &data); err != nil {
			return nil, err
		}
		var result models.Result
		if err := json.Unmarshal(data, &result); err != nil {
			return nil, err
		}
		out = append(out, models.EmailResult{BatchID: batchID, Email: email, Result: result})
	}
	return out, rows.Err()
}

// Cleanup deletes results and jobs for completed/failed batches older
// than Retention, returning the number of jobs removed.
func (s *Store) Cleanup(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-Retention)

	tag, err := s.pool.Exec(ctx, `
		DELETE FROM results WHERE job_id IN (
			SELECT id FROM jobs WHERE status IN ($1, $2) AND completed_at < $3
		)
	`, string(models.BatchCompleted), string(models.BatchFailed), cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup results: %w", err)
	}
	_ = tag

	jobsTag, err := s.pool.Exec(ctx, `
		DELETE FROM jobs WHERE status IN ($1, $2) AND completed_at < $3
	`, string(models.BatchCompleted), string(models.BatchFailed), cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup jobs: %w", err)
	}
	return int(jobsTag.RowsAffected()), nil
}

// ErrNotFound is returned by GetJob/Status when no job matches.
var ErrNotFound = fmt.Errorf("store: job not found")
