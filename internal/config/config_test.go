package config

import (
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"REDIS_URL", "DB_URL", "QUEUE_PREFIX", "IP_POOL",
		"VERIFICATION_CONCURRENCY", "BULK_CONCURRENCY", "ALLOWED_ORIGINS",
		"LOG_LEVEL", "ENABLE_METRICS",
	} {
		t.Setenv(k, "")
	}
}

func TestFromEnvRequiresDBURL(t *testing.T) {
	clearEnv(t)
	if _, err := FromEnv(); err == nil {
		t.Fatal("expected an error when DB_URL is unset")
	}
}

func TestFromEnvAppliesDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_URL", "postgres://localhost/test")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.VerificationConcurrency != 20 || cfg.BulkConcurrency != 5 {
		t.Fatalf("expected default concurrency 20/5, got %d/%d", cfg.VerificationConcurrency, cfg.BulkConcurrency)
	}
	if cfg.RedisURL != "localhost:6379" {
		t.Fatalf("expected default redis url, got %q", cfg.RedisURL)
	}
}

func TestFromEnvRejectsBadConcurrency(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_URL", "postgres://localhost/test")
	t.Setenv("VERIFICATION_CONCURRENCY", "not-a-number")

	if _, err := FromEnv(); err == nil {
		t.Fatal("expected an error for a non-numeric VERIFICATION_CONCURRENCY")
	}
}

func TestFromEnvParsesIPPoolAndOrigins(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_URL", "postgres://localhost/test")
	t.Setenv("IP_POOL", "10.0.0.1, 10.0.0.2")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com,https://b.example.com")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.IPPool) != 2 || cfg.IPPool[0] != "10.0.0.1" || cfg.IPPool[1] != "10.0.0.2" {
		t.Fatalf("expected trimmed IP pool, got %v", cfg.IPPool)
	}
	if len(cfg.AllowedOrigins) != 2 {
		t.Fatalf("expected 2 allowed origins, got %v", cfg.AllowedOrigins)
	}
}

func TestFromEnvRejectsUnknownLogLevel(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_URL", "postgres://localhost/test")
	t.Setenv("LOG_LEVEL", "verbose")

	if _, err := FromEnv(); err == nil {
		t.Fatal("expected an error for an unrecognised LOG_LEVEL")
	}
}
