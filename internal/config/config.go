// Package config loads the engine's environment-driven configuration
// surface (spec §6), grounded on the teacher's cmd/api/main.go and
// cmd/worker/main.go os.Getenv bootstrap sequence. Unknown or malformed
// values are rejected at startup, in the teacher's log.Fatalf style —
// FromEnv returns an error rather than silently defaulting.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config is the full set of recognised environment variables.
type Config struct {
	RedisURL    string
	DBURL       string
	IPPool      []string
	QueuePrefix string

	VerificationConcurrency int
	BulkConcurrency         int

	AllowedOrigins []string
	LogLevel       string
	EnableMetrics  bool
}

// FromEnv reads and validates the configuration surface from the
// process environment, applying spec §6's documented defaults for
// anything unset.
func FromEnv() (Config, error) {
	cfg := Config{
		RedisURL:                getenv("REDIS_URL", "localhost:6379"),
		DBURL:                   os.Getenv("DB_URL"),
		QueuePrefix:             getenv("QUEUE_PREFIX", "verifyengine"),
		VerificationConcurrency: 20,
		BulkConcurrency:         5,
		LogLevel:                getenv("LOG_LEVEL", "info"),
	}

	if cfg.DBURL == "" {
		return Config{}, fmt.Errorf("config: DB_URL is required")
	}

	if raw := os.Getenv("IP_POOL"); raw != "" {
		cfg.IPPool = splitCSV(raw)
	} else {
		cfg.IPPool = []string{""}
	}

	if raw := os.Getenv("VERIFICATION_CONCURRENCY"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("config: VERIFICATION_CONCURRENCY must be a positive integer, got %q", raw)
		}
		cfg.VerificationConcurrency = n
	}

	if raw := os.Getenv("BULK_CONCURRENCY"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("config: BULK_CONCURRENCY must be a positive integer, got %q", raw)
		}
		cfg.BulkConcurrency = n
	}

	cfg.AllowedOrigins = splitCSV(getenv("ALLOWED_ORIGINS", "*"))

	if raw := os.Getenv("ENABLE_METRICS"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return Config{}, fmt.Errorf("config: ENABLE_METRICS must be a bool, got %q", raw)
		}
		cfg.EnableMetrics = b
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return Config{}, fmt.Errorf("config: unrecognised LOG_LEVEL %q", cfg.LogLevel)
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
