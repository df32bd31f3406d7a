package models

import "time"

// BatchStatus enumerates the monotone lifecycle of a BatchJob, in the
// order the spec requires (queued → processing → completed), with
// failed reachable from any non-terminal state.
type BatchStatus string

const (
	BatchQueued     BatchStatus = "queued"
	BatchProcessing BatchStatus = "processing"
	BatchCompleted  BatchStatus = "completed"
	BatchFailed     BatchStatus = "failed"
)

// BatchStream distinguishes the two logical queues the Batch Executor
// drains: one email per job (single) or a list of emails per job (bulk).
type BatchStream string

const (
	StreamSingle BatchStream = "single"
	StreamBulk   BatchStream = "bulk"
)

// BatchJob is the durable record of a submitted verification job.
// Invariants: Processed <= Total; Valid + Invalid == Processed; Status
// only moves forward through the order above, except Failed which is
// reachable from any non-terminal status.
type BatchJob struct {
	BatchID string
	Owner   string
	Stream  BatchStream

	Total     int
	Processed int
	Valid     int
	Invalid   int

	Status BatchStatus

	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time

	Error       string
	CallbackURL string
	NotifyEmail string
}

// ProgressPercent returns a 1-100 progress tick, 0 before any email has
// been processed against a non-empty job.
func (j BatchJob) ProgressPercent() int {
	if j.Total <= 0 {
		return 0
	}
	pct := (j.Processed * 100) / j.Total
	if pct < 1 && j.Processed > 0 {
		return 1
	}
	return pct
}

// CanTransitionTo reports whether moving from j.Status to next is a legal
// monotone transition under the invariant in the BatchJob doc comment.
func (j BatchJob) CanTransitionTo(next BatchStatus) bool {
	if next == BatchFailed {
		return j.Status != BatchCompleted && j.Status != BatchFailed
	}
	order := map[BatchStatus]int{
		BatchQueued:     0,
		BatchProcessing: 1,
		BatchCompleted:  2,
	}
	cur, ok := order[j.Status]
	if !ok {
		return false
	}
	nxt, ok := order[next]
	if !ok {
		return false
	}
	return nxt > cur || nxt == cur
}

// EmailResult is a single per-email verification outcome recorded against
// a batch, persisted by the Batch Executor as it drains the job's emails.
type EmailResult struct {
	BatchID string
	Email   string
	Result  Result
}
