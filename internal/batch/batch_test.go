package batch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verifyengine/internal/cache"
	"verifyengine/internal/models"
	"verifyengine/internal/policy"
	"verifyengine/internal/queue"
	"verifyengine/internal/verifier"
)

type fakeStore struct {
	mu      sync.Mutex
	jobs    map[string]models.BatchJob
	results map[string][]models.EmailResult
}

func newFakeStore() *fakeStore {
	return &fakeStore{jobs: map[string]models.BatchJob{}, results: map[string][]models.EmailResult{}}
}

func (f *fakeStore) CreateJob(_ context.Context, job models.BatchJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job.Status = models.BatchQueued
	f.jobs[job.BatchID] = job
	return nil
}

func (f *fakeStore) GetJob(_ context.Context, batchID, owner string) (models.BatchJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[batchID]
	if !ok || job.Owner != owner {
		return models.BatchJob{}, errNotFound
	}
	return job, nil
}

func (f *fakeStore) GetJobByID(_ context.Context, batchID string) (models.BatchJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[batchID]
	if !ok {
		return models.BatchJob{}, errNotFound
	}
	return job, nil
}

func (f *fakeStore) MarkStarted(_ context.Context, batchID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job := f.jobs[batchID]
	job.Status = models.BatchProcessing
	f.jobs[batchID] = job
	return nil
}

func (f *fakeStore) UpdateProgress(_ context.Context, batchID string, processed, valid, invalid int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job := f.jobs[batchID]
	job.Processed += processed
	job.Valid += valid
	job.Invalid += invalid
	f.jobs[batchID] = job
	return nil
}

func (f *fakeStore) MarkCompleted(_ context.Context, batchID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job := f.jobs[batchID]
	job.Status = models.BatchCompleted
	f.jobs[batchID] = job
	return nil
}

func (f *fakeStore) MarkFailed(_ context.Context, batchID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job := f.jobs[batchID]
	job.Status = models.BatchFailed
	job.Error = reason
	f.jobs[batchID] = job
	return nil
}

func (f *fakeStore) Status(_ context.Context, batchID string) (models.BatchStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[batchID]
	if !ok {
		return "", errNotFound
	}
	return job.Status, nil
}

func (f *fakeStore) InsertResult(_ context.Context, er models.EmailResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[er.BatchID] = append(f.results[er.BatchID], er)
	return nil
}

func (f *fakeStore) ListResults(_ context.Context, batchID string) ([]models.EmailResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.results[batchID], nil
}

type stubErr string

func (e stubErr) Error() string { return string(e) }

const errNotFound = stubErr("not found")

type fakeQueue struct {
	mu    sync.Mutex
	items map[models.BatchStream][]queue.Item
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{items: map[models.BatchStream][]queue.Item{}}
}

func (q *fakeQueue) Enqueue(_ context.Context, stream models.BatchStream, item queue.Item) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items[stream] = append(q.items[stream], item)
	return nil
}

func (q *fakeQueue) Dequeue(ctx context.Context, stream models.BatchStream, timeout time.Duration) (queue.Item, bool, error) {
	q.mu.Lock()
	if len(q.items[stream]) > 0 {
		item := q.items[stream][0]
		q.items[stream] = q.items[stream][1:]
		q.mu.Unlock()
		return item, true, nil
	}
	q.mu.Unlock()

	select {
	case <-time.After(timeout):
		return queue.Item{}, false, nil
	case <-ctx.Done():
		return queue.Item{}, false, ctx.Err()
	}
}

type stubResolver struct{}

func (stubResolver) MX(_ context.Context, _ string) ([]models.MXRecord, error) {
	return []models.MXRecord{{Exchange: "mx.example.com", Priority: 10}}, nil
}
func (stubResolver) TXT(_ context.Context, _ string) ([][]string, error) { return nil, nil }
func (stubResolver) NS(_ context.Context, _ string) ([]string, error)    { return nil, nil }
func (stubResolver) SOA(_ context.Context, _ string) (string, error)    { return "", nil }

func testVerifier() *verifier.Verifier {
	return verifier.New(verifier.Dependencies{
		Cache:  cache.NewMemStore(nil),
		DNS:    stubResolver{},
		Policy: policy.New(),
	})
}

func testOpts() verifier.Options {
	opts := verifier.DefaultOptions()
	opts.CheckSMTP = false
	return opts
}

func newTestExecutor() (*Executor, *fakeStore, *fakeQueue) {
	st := newFakeStore()
	q := newFakeQueue()
	cfg := DefaultConfig()
	cfg.InterEmailDelay = 0
	cfg.FlushEvery = 2
	e := New(cfg, st, q, testVerifier(), testOpts(), nil, nil)
	return e, st, q
}

func TestSubmitBulkCreatesJobAndEnqueues(t *testing.T) {
	e, st, q := newTestExecutor()
	ctx := context.Background()

	batchID, err := e.SubmitBulk(ctx, "owner1", []string{"a@example.com", "b@example.com"}, "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	job, err := st.GetJob(ctx, batchID, "owner1")
	if err != nil {
		t.Fatalf("job not found: %v", err)
	}
	if job.Total != 2 {
		t.Fatalf("expected total 2, got %d", job.Total)
	}

	if len(q.items[models.StreamBulk]) != 1 {
		t.Fatalf("expected one bulk queue item, got %d", len(q.items[models.StreamBulk]))
	}
}

func TestSubmitBulkRejectsEmptyList(t *testing.T) {
	e, _, _ := newTestExecutor()
	if _, err := e.SubmitBulk(context.Background(), "owner1", nil, "", ""); err == nil {
		t.Fatal("expected an error for an empty email list")
	}
}

func TestProcessJobUpdatesCountersAndCompletes(t *testing.T) {
	e, st, _ := newTestExecutor()
	ctx := context.Background()

	batchID, err := e.SubmitBulk(ctx, "owner1", []string{"a@example.com", "b@example.com", "c@example.com"}, "", "")
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	item := queue.Item{BatchID: batchID, Emails: []string{"a@example.com", "b@example.com", "c@example.com"}}
	e.processJob(ctx, item)

	job, err := st.GetJobByID(ctx, batchID)
	require.NoError(t, err)
	assert.Equal(t, models.BatchCompleted, job.Status)
	assert.Equal(t, 3, job.Processed)
	assert.Equal(t, job.Processed, job.Valid+job.Invalid, "valid+invalid must equal processed")

	results, _ := st.ListResults(ctx, batchID)
	assert.Len(t, results, 3)
}

func TestProcessJobStopsOnCancellation(t *testing.T) {
	e, st, _ := newTestExecutor()
	ctx := context.Background()

	batchID, _ := e.SubmitBulk(ctx, "owner1", []string{"a@example.com", "b@example.com", "c@example.com"}, "", "")
	_ = st.MarkFailed(ctx, batchID, "cancelled")

	item := queue.Item{BatchID: batchID, Emails: []string{"a@example.com", "b@example.com", "c@example.com"}}
	e.processJob(ctx, item)

	results, _ := st.ListResults(ctx, batchID)
	if len(results) != 0 {
		t.Fatalf("expected no results processed after cancellation, got %d", len(results))
	}
}

func TestCancelRejectsTerminalBatch(t *testing.T) {
	e, st, _ := newTestExecutor()
	ctx := context.Background()

	batchID, _ := e.SubmitBulk(ctx, "owner1", []string{"a@example.com"}, "", "")
	_ = st.MarkCompleted(ctx, batchID)

	if err := e.Cancel(ctx, batchID, "owner1"); err == nil {
		t.Fatal("expected an error cancelling an already-completed batch")
	}
}

func TestRunDrainsQueuedJobUntilCancelled(t *testing.T) {
	e, st, _ := newTestExecutor()
	ctx, cancel := context.WithCancel(context.Background())

	batchID, _ := e.SubmitSingle(ctx, "owner1", "a@example.com")

	done := make(chan struct{})
	go func() {
		e.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, err := st.GetJobByID(ctx, batchID)
		if err == nil && job.Status == models.BatchCompleted {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	job, err := st.GetJobByID(ctx, batchID)
	if err != nil || job.Status != models.BatchCompleted {
		t.Fatalf("expected batch %s to complete, got %+v (err %v)", batchID, job, err)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("worker pool did not shut down after cancellation")
	}
}
