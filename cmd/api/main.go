// Command api is a thin, demonstration-only HTTP wiring layer over the
// verification engine: a bare net/http mux calling straight into
// internal/verifier, internal/enrich and internal/batch with no
// auth/CORS/billing middleware (those are explicitly out-of-scope
// HTTP-edge concerns). Grounded on the teacher's cmd/api/main.go
// bootstrap and graceful-shutdown sequence.
package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"verifyengine/internal/batch"
	"verifyengine/internal/cache"
	"verifyengine/internal/config"
	"verifyengine/internal/dns"
	"verifyengine/internal/enrich"
	"verifyengine/internal/governor"
	"verifyengine/internal/policy"
	"verifyengine/internal/queue"
	"verifyengine/internal/smtp"
	"verifyengine/internal/store"
	"verifyengine/internal/verifier"
)

type server struct {
	verifier *verifier.Verifier
	enricher *enrich.Enricher
	executor *batch.Executor
}

func main() {
	log.Println("starting verification engine api")

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	redisStore, err := cache.NewRedisStore(cfg.RedisURL, nil)
	if err != nil {
		log.Fatalf("redis connect failed: %v", err)
	}
	defer redisStore.Close()

	dbCtx, dbCancel := context.WithTimeout(context.Background(), 10*time.Second)
	jobStore, err := store.Open(dbCtx, cfg.DBURL)
	dbCancel()
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer jobStore.Close()

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
	enricher := enrich.New(enrich.Dependencies{Verifier: v, DNS: resolver, Policy: pol})

	transport := queue.NewRedisTransport(redis.NewClient(&redis.Options{Addr: cfg.RedisURL}), cfg.QueuePrefix)
	execCfg := batch.DefaultConfig()
	execCfg.SingleConcurrency = cfg.VerificationConcurrency
	execCfg.BulkConcurrency = cfg.BulkConcurrency
	executor := batch.New(execCfg, jobStore, transport, v, verifier.DefaultOptions(), nil, nil)

	srv := &server{verifier: v, enricher: enricher, executor: executor}

	mux := http.NewServeMux()
	mux.HandleFunc("/verify", srv.handleVerify)
	mux.HandleFunc("/upload", srv.handleUpload)
	mux.HandleFunc("/status", srv.handleStatus)
	mux.HandleFunc("/results", srv.handleResults)
	mux.HandleFunc("/export", srv.handleExport)
	mux.HandleFunc("/info", handleInfo)

	httpServer := &http.Server{
		Addr:         ":8080",
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	go func() {
		log.Println("verification engine api listening on :8080")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutdown signal received, draining in-flight requests...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("graceful shutdown failed: %v", err)
	}
	log.Println("server shut down cleanly")
}

func handleInfo(w http.ResponseWriter, r *http.Request) {
	guide := map[string]interface{}{
		"service": "Email Verification Engine",
		"capabilities": []string{
			"syntax, MX, disposable, role-account, typo-suggestion checks",
			"SMTP RCPT TO probing with rate governance",
			"catch-all and spam-trap heuristics",
			"enrichment (possible name/company, provider fingerprint, domain age)",
			"durable single/bulk batch verification",
		},
	}
	writeJSON(w, http.StatusOK, guide)
}
