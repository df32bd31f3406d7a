// Package dns implements the DNS Resolver (spec §4.2): MX/TXT/NS/SOA
// lookups against the process's configured resolver, with a secondary
// nameserver pool on timeout/SERVFAIL, MX caching, and in-flight
// deduplication of concurrent lookups for the same domain.
package dns

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"verifyengine/internal/cache"
	"verifyengine/internal/models"
	"verifyengine/internal/verrors"
)

// Sentinel errors matching spec §4.2's taxonomy.
var (
	ErrDomainNotFound = errors.New("dns: domain not found")
	ErrNoRecords      = errors.New("dns: no records")
	ErrTimeout        = errors.New("dns: timeout")
	ErrTransient      = errors.New("dns: transient failure")
)

// Secondary nameservers used on primary timeout/SERVFAIL, per spec §4.2.
var defaultSecondary = []string{"8.8.8.8:53", "1.1.1.1:53", "9.9.9.9:53"}

// Resolver is the DNS Resolver's public interface.
type Resolver interface {
	MX(ctx context.Context, domain string) ([]models.MXRecord, error)
	TXT(ctx context.Context, domain string) ([][]string, error)
	NS(ctx context.Context, domain string) ([]string, error)
	SOA(ctx context.Context, domain string) (string, error)
}

// Config configures the resolver.
type Config struct {
	// UseAlternate enables the secondary-nameserver retry on timeout or
	// SERVFAIL for every lookup this resolver makes. It is fixed when the
	// resolver is built; verifier.Options.AltDNS does not change it.
	UseAlternate bool
	// SecondaryTimeout bounds the secondary-resolver attempt.
	SecondaryTimeout time.Duration
	// PrimaryTimeout bounds each primary-resolver query.
	PrimaryTimeout time.Duration
	// Secondary overrides the default secondary nameserver pool (for tests).
	Secondary []string
}

func (c Config) withDefaults() Config {
	if c.SecondaryTimeout <= 0 {
		c.SecondaryTimeout = 5 * time.Second
	}
	if c.PrimaryTimeout <= 0 {
		c.PrimaryTimeout = 3 * time.Second
	}
	if len(c.Secondary) == 0 {
		c.Secondary = defaultSecondary
	}
	return c
}

// NetResolver implements Resolver using net.Resolver, grounded on the
// teacher's internal/lookup/dns.go custom-dialer pattern, generalised to
// TXT/NS/SOA, cached MX answers, and a secondary-nameserver fallback.
type NetResolver struct {
	cfg     Config
	primary *net.Resolver
	store   cache.Store
	logger  *log.Logger
	group   singleflight.Group
}

// New builds a NetResolver backed by store for MX caching.
func New(cfg Config, store cache.Store, logger *log.Logger) *NetResolver {
	if logger == nil {
		logger = log.Default()
	}
	cfg = cfg.withDefaults()
	return &NetResolver{
		cfg:   cfg,
		store: store,
		primary: &net.Resolver{
			PreferGo: true,
			Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
				d := net.Dialer{Timeout: cfg.PrimaryTimeout}
				return d.DialContext(ctx, network, address)
			},
		},
		logger: logger,
	}
}

func (r *NetResolver) secondaryResolver(server string) *net.Resolver {
	return &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
			d := net.Dialer{Timeout: r.cfg.SecondaryTimeout}
			return d.DialContext(ctx, network, server)
		},
	}
}

// classify maps a net/dns error to the resolver's sentinel taxonomy.
// NXDOMAIN must never be retried (spec §4.2).
func classify(err error) error {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsNotFound {
			return ErrDomainNotFound
		}
		if dnsErr.IsTimeout {
			return ErrTimeout
		}
		return ErrTransient
	}
	return ErrTransient
}

// withAlternate runs fn against the primary resolver; on a retryable
// failure (not NXDOMAIN) and UseAlternate enabled, retries once against
// each configured secondary nameserver in turn. fn receives the context
// it should use for the lookup, bounded to the secondary's own timeout
// on fallback attempts.
func (r *NetResolver) withAlternate(ctx context.Context, domain string, fn func(context.Context, *net.Resolver) error) error {
	err := fn(ctx, r.primary)
	if err == nil {
		return nil
	}

	classified := classify(err)
	if classified == ErrDomainNotFound || !r.cfg.UseAlternate {
		return classified
	}

	for _, server := range r.cfg.Secondary {
		sctx, cancel := context.WithTimeout(ctx, r.cfg.SecondaryTimeout)
		sErr := fn(sctx, r.secondaryResolver(server))
		cancel()
		if sErr == nil {
			return nil
		}
		if classify(sErr) == ErrDomainNotFound {
			return ErrDomainNotFound
		}
	}
	return classified
}

// MX resolves mail-exchange records, caching positive and negative
// answers for 24h (spec §4.2) keyed by lowercase domain, and
// deduplicating concurrent lookups for the same domain.
func (r *NetResolver) MX(ctx context.Context, domain string) ([]models.MXRecord, error) {
	domain = strings.ToLower(domain)
	cacheKey := "dns:mx:" + domain

	if r.store != nil {
		if raw, ok := r.store.Get(ctx, cacheKey); ok {
			var cached cachedMX
			if err := json.Unmarshal(raw, &cached); err == nil {
				if cached.Err != "" {
					switch cached.Err {
					case ErrNoRecords.Error():
						return nil, ErrNoRecords
					case ErrDomainNotFound.Error():
						return nil, ErrDomainNotFound
					}
					return nil, errors.New(cached.Err)
				}
				return cached.Records, nil
			}
		}
	}

	v, err, _ := r.group.Do(cacheKey, func() (interface{}, error) {
		var records []*net.MX
		lookupErr := r.withAlternate(ctx, domain, func(lctx context.Context, res *net.Resolver) error {
			found, err := res.LookupMX(lctx, domain)
			if err != nil {
				return err
			}
			records = found
			return nil
		})
		if lookupErr != nil {
			return nil, lookupErr
		}
		if len(records) == 0 {
			return nil, ErrNoRecords
		}

		out := make([]models.MXRecord, len(records))
		for i, m := range records {
			out[i] = models.MXRecord{
				Exchange: strings.TrimSuffix(m.Host, "."),
				Priority: m.Pref,
			}
		}
		sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
		return out, nil
	})

	if r.store != nil {
		r.cacheResult(ctx, cacheKey, v, err)
	}

	if err != nil {
		return nil, err
	}
	return v.([]models.MXRecord), nil
}

type cachedMX struct {
	Records []models.MXRecord `json:"records,omitempty"`
	Err     string             `json:"err,omitempty"`
}

func (r *NetResolver) cacheResult(ctx context.Context, key string, v interface{}, err error) {
	var payload cachedMX
	if err != nil {
		// Only cache the stable "no records" / "not found" outcomes.
		// Transient/timeout failures should be retried on the next call.
		if !errors.Is(err, ErrNoRecords) && !errors.Is(err, ErrDomainNotFound) {
			return
		}
		payload.Err = err.Error()
	} else {
		payload.Records = v.([]models.MXRecord)
	}
	raw, mErr := json.Marshal(payload)
	if mErr != nil {
		return
	}
	r.store.Set(ctx, key, raw, cache.TTLMXRecord)
}

// TXT resolves TXT records, uncached per spec §4.2.
func (r *NetResolver) TXT(ctx context.Context, domain string) ([][]string, error) {
	var out [][]string
	err := r.withAlternate(ctx, domain, func(lctx context.Context, res *net.Resolver) error {
		records, err := res.LookupTXT(lctx, domain)
		if err != nil {
			return err
		}
		out = nil
		for _, rec := range records {
			out = append(out, []string{rec})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNoRecords
	}
	return out, nil
}

// NS resolves nameserver records, uncached.
func (r *NetResolver) NS(ctx context.Context, domain string) ([]string, error) {
	var out []string
	err := r.withAlternate(ctx, domain, func(lctx context.Context, res *net.Resolver) error {
		records, err := res.LookupNS(lctx, domain)
		if err != nil {
			return err
		}
		out = make([]string, len(records))
		for i, ns := range records {
			out[i] = strings.TrimSuffix(ns.Host, ".")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNoRecords
	}
	return out, nil
}

// SOA resolves the domain's start-of-authority nameserver, uncached.
// net/dns has no direct SOA lookup in the standard resolver; the primary
// nameserver is taken from the NS set, matching the common convention
// that the first authoritative NS also answers the SOA query.
func (r *NetResolver) SOA(ctx context.Context, domain string) (string, error) {
	ns, err := r.NS(ctx, domain)
	if err != nil {
		return "", err
	}
	return ns[0], nil
}

// ToVerrorsKind maps a resolver sentinel error to the engine-wide taxonomy.
func ToVerrorsKind(err error) verrors.Kind {
	switch {
	case errors.Is(err, ErrDomainNotFound):
		return verrors.KindPermanent
	case errors.Is(err, ErrNoRecords):
		return verrors.KindPermanent
	case errors.Is(err, ErrTimeout):
		return verrors.KindTransient
	default:
		return verrors.KindTransient
	}
}
