// Package governor implements the Rate Governor (spec §4.4): guards
// outbound SMTP probing by per-domain request budgets and a rotating IP
// pool, backed by the Cache Store's fixed-window counters. Grounded on
// the teacher's internal/proxy.Manager round-robin counter, generalised
// from a process-local atomic index to a cache-persisted one so the
// rotation is shared across worker processes.
package governor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"verifyengine/internal/cache"
)

// Errors returned by Acquire when a domain's budget is exhausted.
var (
	ErrRateLimitMinute = errors.New("governor: per-minute rate limit exceeded")
	ErrRateLimitHour   = errors.New("governor: per-hour rate limit exceeded")
)

// Limit is a domain's outbound SMTP budget.
type Limit struct {
	PerMinute int
	PerHour   int
}

// Config configures the governor.
type Config struct {
	// Limits maps a recipient domain to its budget; "default" is used
	// for any domain with no specific entry.
	Limits map[string]Limit
	// IPPool is the list of outbound source IPs to rotate through.
	IPPool []string
}

func (c Config) limitFor(domain string) Limit {
	if l, ok := c.Limits[domain]; ok {
		return l
	}
	if l, ok := c.Limits["default"]; ok {
		return l
	}
	return Limit{PerMinute: 60, PerHour: 1000}
}

// Governor is the Rate Governor's public interface.
type Governor struct {
	cfg    Config
	store  cache.Store
	logger *log.Logger
}

// New builds a Governor backed by store.
func New(cfg Config, store cache.Store, logger *log.Logger) *Governor {
	if logger == nil {
		logger = log.Default()
	}
	if len(cfg.IPPool) == 0 {
		cfg.IPPool = []string{"0.0.0.0"}
	}
	return &Governor{cfg: cfg, store: store, logger: logger}
}

const (
	minuteTTL = 60 * time.Second
	hourTTL   = 3600 * time.Second
)

// Acquire atomically increments domain's minute and hour counters and
// returns the next IP from the rotation pool. Fails with
// ErrRateLimitMinute or ErrRateLimitHour if either counter would exceed
// its configured budget. On a cache failure, the system fails open: a
// default IP is returned and the degradation is logged (spec §4.4).
func (g *Governor) Acquire(ctx context.Context, domain string) (string, error) {
	limit := g.cfg.limitFor(domain)

	minuteCount, err := g.store.Incr(ctx, minuteKey(domain), minuteTTL)
	if err != nil {
		g.logger.Printf("[governor] degraded: acquire(%s) minute counter unavailable: %v", domain, err)
		return g.cfg.IPPool[0], nil
	}
	if minuteCount > int64(limit.PerMinute) {
		return "", ErrRateLimitMinute
	}

	hourCount, err := g.store.Incr(ctx, hourKey(domain), hourTTL)
	if err != nil {
		g.logger.Printf("[governor] degraded: acquire(%s) hour counter unavailable: %v", domain, err)
		return g.cfg.IPPool[0], nil
	}
	if hourCount > int64(limit.PerHour) {
		return "", ErrRateLimitHour
	}

	idx, err := g.store.Incr(ctx, "smtp:ip_index", 0)
	if err != nil {
		return g.cfg.IPPool[0], nil
	}
	return g.cfg.IPPool[(idx-1)%int64(len(g.cfg.IPPool))], nil
}

// Delay returns the progressive pre-send delay once a domain's minute
// usage exceeds 80% of its budget: max(0, (ratio-0.8) * 10s). A cache
// failure is treated as zero usage (fail open).
func (g *Governor) Delay(ctx context.Context, domain string) time.Duration {
	limit := g.cfg.limitFor(domain)
	if limit.PerMinute <= 0 {
		return 0
	}

	count, ok := g.store.Peek(ctx, minuteKey(domain))
	if !ok {
		return 0
	}

	ratio := float64(count) / float64(limit.PerMinute)
	if ratio <= 0.8 {
		return 0
	}
	return time.Duration(math.Round((ratio - 0.8) * float64(10*time.Second)))
}

// MarkBlocked records domain as blocked for the given duration.
func (g *Governor) MarkBlocked(ctx context.Context, domain string, ttl time.Duration) {
	g.store.Set(ctx, blockedKey(domain), []byte("1"), ttl)
}

// IsBlocked reports whether domain is currently blocked. Fails open:
// a cache failure is reported as not-blocked.
func (g *Governor) IsBlocked(ctx context.Context, domain string) bool {
	return g.store.Exists(ctx, blockedKey(domain))
}

// ReportSuccess increments domain's hourly success counter for
// observability; it never affects Acquire's decision.
func (g *Governor) ReportSuccess(ctx context.Context, domain string) {
	_, _ = g.store.Incr(ctx, fmt.Sprintf("smtp:%s:success:hour", domain), hourTTL)
}

// ReportFailure increments domain's hourly failure counter, tagged by
// reason, for observability.
func (g *Governor) ReportFailure(ctx context.Context, domain, reason string) {
	_, _ = g.store.Incr(ctx, fmt.Sprintf("smtp:%s:failure:%s:hour", domain, reason), hourTTL)
}

func minuteKey(domain string) string  { return fmt.Sprintf("smtp:%s:minute", domain) }
func hourKey(domain string) string    { return fmt.Sprintf("smtp:%s:hour", domain) }
func blockedKey(domain string) string { return fmt.Sprintf("smtp:blocked:%s", domain) }
