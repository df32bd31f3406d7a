// Package queue implements the Batch Executor's durable FIFO transport
// (spec §4.8): two logical streams, "single" and "bulk", each backed by
// a Redis list. Grounded on the teacher's internal/queue/client.go
// (BLPop/RPush, JSON task payloads), generalised from one queue name to
// two streams and given the enqueue-side retry policy spec §4.8 names
// (3 attempts, exponential backoff from 5s).
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"verifyengine/internal/models"
)

// ErrNil re-exports go-redis's empty-reply error. Dequeue never returns
// it: a timeout with no work comes back as (Item{}, false, nil).
var ErrNil = redis.Nil

// Item is a single unit of queued work: the batch it belongs to and
// the emails the worker must verify for it (single: exactly one email;
// bulk: the job's full list). Carrying the payload in the queue entry
// itself, rather than a pointer the worker must re-fetch, keeps a
// crashed-and-requeued item self-contained.
type Item struct {
	BatchID string   `json:"batch_id"`
	Emails  []string `json:"emails"`
}

func streamKey(prefix string, stream models.BatchStream) string {
	return fmt.Sprintf("%s:queue:%s", prefix, stream)
}

// Transport is the Batch Executor's durable queue interface.
type Transport interface {
	Enqueue(ctx context.Context, stream models.BatchStream, item Item) error
	Dequeue(ctx context.Context, stream models.BatchStream, timeout time.Duration) (Item, bool, error)
}

// RedisTransport implements Transport over a *redis.Client.
type RedisTransport struct {
	client *redis.Client
	prefix string
}

// NewRedisTransport builds a RedisTransport. prefix namespaces the
// queue keys (spec §6 config surface: queue_prefix).
func NewRedisTransport(client *redis.Client, prefix string) *RedisTransport {
	if prefix == "" {
		prefix = "verifyengine"
	}
	return &RedisTransport{client: client, prefix: prefix}
}

const (
	retryAttempts    = 3
	retryBaseBackoff = 5 * time.Second
)

// Enqueue pushes item onto stream's list, retrying up to retryAttempts
// times with exponential backoff starting at retryBaseBackoff (spec
// §4.8: "Retry policy for the enqueue transport").
func (t *RedisTransport) Enqueue(ctx context.Context, stream models.BatchStream, item Item) error {
	data, err := json.Marshal(item)
	if err != nil {
		return err
	}

	backoff := retryBaseBackoff
	var lastErr error
	for attempt := 1; attempt <= retryAttempts; attempt++ {
		if err := t.client.RPush(ctx, streamKey(t.prefix, stream), data).Err(); err == nil {
			return nil
		} else {
			lastErr = err
		}
		if attempt == retryAttempts {
			break
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
	}
	return fmt.Errorf("enqueue failed after %d attempts: %w", retryAttempts, lastErr)
}

// Dequeue blocks up to timeout waiting for an item on stream. Returns
// (Item{}, false, nil) on a timeout with no work available.
func (t *RedisTransport) Dequeue(ctx context.Context, stream models.BatchStream, timeout time.Duration) (Item, bool, error) {
	result, err := t.client.BLPop(ctx, timeout, streamKey(t.prefix, stream)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Item{}, false, nil
		}
		return Item{}, false, err
	}

	var item Item
	if err := json.Unmarshal([]byte(result[1]), &item); err != nil {
		return Item{}, false, fmt.Errorf("malformed queue item: %w", err)
	}
	return item, true, nil
}
