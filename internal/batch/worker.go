package batch

import (
	"context"
	"errors"
	"sync"
	"time"

	"verifyengine/internal/models"
	"verifyengine/internal/queue"
)

const dequeueTimeout = 2 * time.Second

// Run launches the worker pool for both streams and blocks until ctx is
// cancelled and every goroutine has exited. Grounded on the teacher's
// worker.Start (BLPop-with-timeout loop as a shutdown checkpoint),
// generalised to one pool per stream with an independent concurrency
// figure each.
func (e *Executor) Run(ctx context.Context) {
	var wg sync.WaitGroup

	launch := func(stream models.BatchStream, concurrency int) {
		for i := 0; i < concurrency; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				e.drainLoop(ctx, stream)
			}()
		}
	}
	launch(models.StreamSingle, e.cfg.SingleConcurrency)
	launch(models.StreamBulk, e.cfg.BulkConcurrency)

	wg.Wait()
	e.logger.Println("[batch] worker pool shut down")
}

func (e *Executor) drainLoop(ctx context.Context, stream models.BatchStream) {
	for {
		if ctx.Err() != nil {
			return
		}

		item, ok, err := e.queue.Dequeue(ctx, stream, dequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			e.logger.Printf("[batch] dequeue error on %s: %v, backing off", stream, err)
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}
		if !ok {
			continue
		}

		e.processJob(ctx, item)
	}
}

// processJob implements spec §4.8's 7-step worker loop for one batch.
func (e *Executor) processJob(ctx context.Context, item queue.Item) {
	jobCtx, cancel := context.WithTimeout(ctx, 30*time.Minute)
	defer cancel()

	// A batch cancelled while still queued is already failed; marking it
	// started would overwrite that terminal status.
	if status, err := e.store.Status(jobCtx, item.BatchID); err == nil && status == models.BatchFailed {
		e.logger.Printf("[batch] %s: cancelled before start, skipping", item.BatchID)
		return
	}

	// Step 1: transition to processing, stamp started_at.
	if err := e.store.MarkStarted(jobCtx, item.BatchID); err != nil {
		e.logger.Printf("[batch] %s: mark started failed: %v", item.BatchID, err)
		return
	}

	var sinceFlush, flushedValid, flushedInvalid int

emailLoop:
	for _, email := range item.Emails {
		// Cancellation is observed at email boundaries: an operator
		// calling Cancel() flips status to failed, which the loop
		// notices before processing the next email.
		status, err := e.store.Status(jobCtx, item.BatchID)
		if err == nil && status == models.BatchFailed {
			e.logger.Printf("[batch] %s: cancelled, stopping at %d/%d", item.BatchID, sinceFlush, len(item.Emails))
			return
		}

		result := e.verifier.Verify(jobCtx, email, e.opts)

		// Per-email exceptions are counted as invalid, never abort the
		// batch (spec §4.8 step 5).
		if err := e.store.InsertResult(jobCtx, models.EmailResult{BatchID: item.BatchID, Email: email, Result: result}); err != nil {
			e.logger.Printf("[batch] %s: insert result for %s failed: %v", item.BatchID, email, err)
		}

		sinceFlush++
		if result.IsValid() {
			flushedValid++
		} else {
			flushedInvalid++
		}

		if sinceFlush >= e.cfg.FlushEvery {
			if err := e.store.UpdateProgress(jobCtx, item.BatchID, sinceFlush, flushedValid, flushedInvalid); err != nil {
				e.logger.Printf("[batch] %s: flush progress failed: %v", item.BatchID, err)
			}
			sinceFlush, flushedValid, flushedInvalid = 0, 0, 0
		}

		if e.cfg.InterEmailDelay > 0 {
			select {
			case <-time.After(e.cfg.InterEmailDelay):
			case <-jobCtx.Done():
				break emailLoop
			}
		}
	}

	if sinceFlush > 0 {
		if err := e.store.UpdateProgress(jobCtx, item.BatchID, sinceFlush, flushedValid, flushedInvalid); err != nil {
			e.logger.Printf("[batch] %s: final flush failed: %v", item.BatchID, err)
		}
	}

	if jobCtx.Err() != nil && !errors.Is(jobCtx.Err(), context.Canceled) {
		_ = e.store.MarkFailed(ctx, item.BatchID, "deadline exceeded")
		return
	}

	if err := e.store.MarkCompleted(ctx, item.BatchID); err != nil {
		e.logger.Printf("[batch] %s: mark completed failed: %v", item.BatchID, err)
		return
	}

	if e.notifier != nil {
		if job, err := e.store.GetJobByID(ctx, item.BatchID); err == nil {
			e.notifier.NotifyComplete(ctx, job)
		}
	}
}
