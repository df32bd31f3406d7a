package cache

import (
	"context"
	"errors"
	"log"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore backs the Cache Store with Redis (go-redis/v9), grounded on
// the teacher's internal/queue.Init connection pattern and on
// umuterturk-email-verifier/pkg/cache.RedisCache's Get/Set/Close shape.
// Every method degrades to miss semantics on error per spec §4.1 — a
// dead Redis never surfaces to the caller, it just makes the engine
// slower (no cache hits, counters reported as "allow").
type RedisStore struct {
	client  *redis.Client
	logger  *log.Logger
	degraded atomic.Bool
}

// NewRedisStore connects to addr and pings it once. The returned error is
// only for startup-time configuration validation (spec §6: unknown/bad
// config is rejected at startup) — once running, RedisStore never
// propagates a Redis error to its own callers.
func NewRedisStore(addr string, logger *log.Logger) (*RedisStore, error) {
	if logger == nil {
		logger = log.Default()
	}
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client, logger: logger}, nil
}

func (s *RedisStore) degrade(op string, err error) {
	if s.degraded.CompareAndSwap(false, true) {
		s.logger.Printf("[cache] degraded to miss semantics: %s: %v", op, err)
	}
}

func (s *RedisStore) recover() {
	s.degraded.Store(false)
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.degrade("get", err)
		}
		return nil, false
	}
	s.recover()
	return val, true
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		s.degrade("set", err)
		return
	}
	s.recover()
}

// Incr increments key and arms its TTL only the first time the key is
// created (ExpireNX) — a fixed window, not a sliding one: the window
// resets on wall-clock expiry, never on subsequent increments. ttl <= 0
// means "never expire" (e.g. a persistent rotation index) and skips
// ExpireNX entirely, since EXPIRE with 0 seconds deletes the key.
func (s *RedisStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	if ttl > 0 {
		pipe.ExpireNX(ctx, key, ttl)
	}
	_, err := pipe.Exec(ctx)
	if err != nil {
		s.degrade("incr", err)
		return 0, err
	}
	s.recover()
	return incr.Val(), nil
}

// Peek reads a counter without incrementing it, via GET — Redis stores
// INCR counters as their decimal string representation.
func (s *RedisStore) Peek(ctx context.Context, key string) (int64, bool) {
	n, err := s.client.Get(ctx, key).Int64()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.degrade("peek", err)
		}
		return 0, false
	}
	s.recover()
	return n, true
}

func (s *RedisStore) SetTTL(ctx context.Context, key string, ttl time.Duration) {
	if err := s.client.Expire(ctx, key, ttl).Err(); err != nil {
		s.degrade("expire", err)
	}
}

func (s *RedisStore) Exists(ctx context.Context, key string) bool {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		s.degrade("exists", err)
		return false
	}
	s.recover()
	return n > 0
}

// Close releases the underlying Redis connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Client exposes the underlying *redis.Client for collaborators — such as
// the Batch Executor's queue — that need raw Redis list/blocking
// operations beyond the Store interface (spec §6 Job Store).
func (s *RedisStore) Client() *redis.Client {
	return s.client
}
