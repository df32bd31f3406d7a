// Package batch implements the Batch Executor (spec §4.8): submit_bulk,
// the durable worker pool that drains the single/bulk queues, and the
// per-batch CSV/JSON export. Grounded on the teacher's
// internal/worker/runner.go (BLPop loop, per-job deadline, DB
// transaction pattern) and cmd/api/upload.go (submit-and-enqueue
// shape), generalised from one queue/one concurrency figure to two
// streams with independently configurable concurrency (spec §6:
// verification_concurrency=20, bulk_concurrency=5).
package batch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"verifyengine/internal/models"
	"verifyengine/internal/queue"
	"verifyengine/internal/verifier"
)

// JobStore is the Job Store surface the Executor needs. *store.Store
// satisfies it; tests substitute an in-memory fake.
type JobStore interface {
	CreateJob(ctx context.Context, job models.BatchJob) error
	GetJob(ctx context.Context, batchID, owner string) (models.BatchJob, error)
	GetJobByID(ctx context.Context, batchID string) (models.BatchJob, error)
	MarkStarted(ctx context.Context, batchID string) error
	UpdateProgress(ctx context.Context, batchID string, processed, valid, invalid int) error
	MarkCompleted(ctx context.Context, batchID string) error
	MarkFailed(ctx context.Context, batchID, reason string) error
	Status(ctx context.Context, batchID string) (models.BatchStatus, error)
	InsertResult(ctx context.Context, er models.EmailResult) error
	ListResults(ctx context.Context, batchID string) ([]models.EmailResult, error)
}

// Config tunes the worker pool.
type Config struct {
	SingleConcurrency int
	BulkConcurrency   int
	// InterEmailDelay paces a worker between emails within one batch, so
	// a large bulk job does not monopolise the Rate Governor's IP pool
	// (spec §4.8 step 4: "50ms inter-email sleep for rate governance").
	InterEmailDelay time.Duration
	// FlushEvery is the per-batch progress-counter flush cadence.
	FlushEvery int
}

// DefaultConfig returns the spec's documented defaults.
func DefaultConfig() Config {
	return Config{
		SingleConcurrency: 20,
		BulkConcurrency:   5,
		InterEmailDelay:   50 * time.Millisecond,
		FlushEvery:        50,
	}
}

// Notifier delivers a best-effort completion signal (webhook callback
// or email) once a batch finishes. A failure to notify never fails the
// batch itself (spec §4.8 step 6: "best-effort notification").
type Notifier interface {
	NotifyComplete(ctx context.Context, job models.BatchJob)
}

// Executor owns the worker pool and the submit_bulk operation.
type Executor struct {
	cfg      Config
	store    JobStore
	queue    queue.Transport
	verifier *verifier.Verifier
	opts     verifier.Options
	notifier Notifier
	logger   *log.Logger
}

// New builds an Executor. notifier may be nil, in which case completion
// is silent.
func New(cfg Config, st JobStore, q queue.Transport, v *verifier.Verifier, opts verifier.Options, notifier Notifier, logger *log.Logger) *Executor {
	if logger == nil {
		logger = log.Default()
	}
	if cfg.SingleConcurrency <= 0 {
		cfg.SingleConcurrency = 20
	}
	if cfg.BulkConcurrency <= 0 {
		cfg.BulkConcurrency = 5
	}
	if cfg.FlushEvery <= 0 {
		cfg.FlushEvery = 50
	}
	return &Executor{cfg: cfg, store: st, queue: q, verifier: v, opts: opts, notifier: notifier, logger: logger}
}

// SubmitSingle queues one email for verification (spec §4.8: "single:
// one email per job").
func (e *Executor) SubmitSingle(ctx context.Context, owner, email string) (string, error) {
	return e.submit(ctx, owner, models.StreamSingle, []string{email}, "", "")
}

// SubmitBulk queues a list of emails as one job (spec §4.8: submit_bulk
// operation). callbackURL and notifyEmail are optional completion
// targets.
func (e *Executor) SubmitBulk(ctx context.Context, owner string, emails []string, callbackURL, notifyEmail string) (string, error) {
	if len(emails) == 0 {
		return "", errors.New("batch: no emails supplied")
	}
	return e.submit(ctx, owner, models.StreamBulk, emails, callbackURL, notifyEmail)
}

func (e *Executor) submit(ctx context.Context, owner string, stream models.BatchStream, emails []string, callbackURL, notifyEmail string) (string, error) {
	batchID := uuid.New().String()
	job := models.BatchJob{
		BatchID:     batchID,
		Owner:       owner,
		Stream:      stream,
		Total:       len(emails),
		CallbackURL: callbackURL,
		NotifyEmail: notifyEmail,
	}
	if err := e.store.CreateJob(ctx, job); err != nil {
		return "", fmt.Errorf("batch: create job: %w", err)
	}

	if err := e.queue.Enqueue(ctx, stream, queue.Item{BatchID: batchID, Emails: emails}); err != nil {
		_ = e.store.MarkFailed(ctx, batchID, err.Error())
		return "", fmt.Errorf("batch: enqueue: %w", err)
	}
	return batchID, nil
}

// Cancel marks a non-terminal batch as failed with error="cancelled"
// (spec §4.8: "cancellation observed at email boundaries").
func (e *Executor) Cancel(ctx context.Context, batchID, owner string) error {
	job, err := e.store.GetJob(ctx, batchID, owner)
	if err != nil {
		return err
	}
	if !job.CanTransitionTo(models.BatchFailed) {
		return fmt.Errorf("batch: %s is already in a terminal state", batchID)
	}
	return e.store.MarkFailed(ctx, batchID, "cancelled")
}

// GetBatch returns the current job record, for status polling.
func (e *Executor) GetBatch(ctx context.Context, batchID, owner string) (models.BatchJob, error) {
	return e.store.GetJob(ctx, batchID, owner)
}

// GetResults returns every per-email result recorded for a batch.
func (e *Executor) GetResults(ctx context.Context, batchID string) ([]models.EmailResult, error) {
	return e.store.ListResults(ctx, batchID)
}
