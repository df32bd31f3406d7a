// Command worker runs the Batch Executor's worker pool, draining both
// the single and bulk queues until shutdown. Grounded on the teacher's
// cmd/worker/main.go (env-driven bootstrap, SIGTERM/SIGINT handling,
// drain-on-shutdown), generalised from one Redis queue/one concurrency
// figure to two streams each with their own pool.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"verifyengine/internal/batch"
	"verifyengine/internal/cache"
	"verifyengine/internal/config"
	"verifyengine/internal/dns"
	"verifyengine/internal/governor"
	"verifyengine/internal/policy"
	"verifyengine/internal/queue"
	"verifyengine/internal/smtp"
	"verifyengine/internal/store"
	"verifyengine/internal/verifier"
)

func main() {
	log.Println("starting verification engine worker")

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	redisStore, err := cache.NewRedisStore(cfg.RedisURL, nil)
	if err != nil {
		log.Fatalf("redis connect failed: %v", err)
	}
	defer redisStore.Close()
	log.Println("connected to redis")

	dbCtx, dbCancel := context.WithTimeout(context.Background(), 10*time.Second)
	jobStore, err := store.Open(dbCtx, cfg.DBURL)
	dbCancel()
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer jobStore.Close()
	log.Println("connected to postgres, migrations applied")

	resolver := dns.New(dns.Config{UseAlternate: true}, redisStore, nil)
	pol := policy.New()
	gov := governor.New(governor.Config{
		Limits: map[string]governor.Limit{"default": {PerMinute: 60, PerHour: 1000}},
		IPPool: cfg.IPPool,
	}, redisStore, nil)

	v := verifier.New(verifier.Dependencies{
		Cache:    redisStore,
		DNS:      resolver,
		Policy:   pol,
		Governor: gov,
		SMTP:     smtp.Config{Sender: "postmaster@verifyengine.local"},
	})

	transport := queue.NewRedisTransport(redis.NewClient(&redis.Options{Addr: cfg.RedisURL}), cfg.QueuePrefix)

	execCfg := batch.DefaultConfig()
	execCfg.SingleConcurrency = cfg.VerificationConcurrency
	execCfg.BulkConcurrency = cfg.BulkConcurrency
	executor := batch.New(execCfg, jobStore, transport, v, verifier.DefaultOptions(), nil, nil)

	// Root context: cancelling it on shutdown propagates into every
	// worker goroutine's BLPop loop and in-flight job deadline.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	done := make(chan struct{})
	go func() {
		executor.Run(ctx)
		close(done)
	}()
	log.Printf("worker pool running (single=%d bulk=%d)", execCfg.SingleConcurrency, execCfg.BulkConcurrency)

	<-quit
	log.Println("shutdown signal received, draining in-flight jobs...")
	cancel()

	const drainTimeout = 30 * time.Second
	select {
	case <-done:
		log.Println("worker pool shut down cleanly")
	case <-time.After(drainTimeout):
		log.Println("drain timeout exceeded, exiting")
	}
}
