// Package policy implements the engine's Domain Policy (spec §4.3): pure,
// in-memory lookups against embedded domain lists — disposable-provider
// membership, free-provider membership, typo suggestion, and domain
// category classification. Nothing here touches the network or the
// cache; every operation is deterministic and safe to call from any
// goroutine.
package policy

import (
	_ "embed"
	"strings"
)

//go:embed disposable.txt
var rawDisposable string

//go:embed free_providers.txt
var rawFreeProviders string

// Policy holds the parsed embedded lists. The zero value is not usable;
// construct with New.
type Policy struct {
	disposable     map[string]struct{}
	freeProviders  map[string]struct{}
	legacy         map[string]struct{}
	established    map[string]struct{}
	typoCorrection map[string]string
	wellKnown      []string
}

// New parses the embedded lists and builds a ready-to-use Policy,
// grounded on the teacher's internal/lookup/static.go map-literal lists
// generalised to an embedded, data-driven form per
// optimode-emailkit/internal/disposable's go:embed pattern.
func New() *Policy {
	p := &Policy{
		disposable:     parseList(rawDisposable),
		freeProviders:  parseList(rawFreeProviders),
		legacy:         cloneSet(legacyProviders),
		established:    cloneSet(establishedProviders),
		typoCorrection: cloneTypoMap(typoCorrections),
	}
	p.wellKnown = make([]string, 0, len(p.freeProviders))
	for d := range p.freeProviders {
		p.wellKnown = append(p.wellKnown, d)
	}
	return p
}

func parseList(raw string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		set[strings.ToLower(line)] = struct{}{}
	}
	return set
}

func cloneSet(src map[string]struct{}) map[string]struct{} {
	dst := make(map[string]struct{}, len(src))
	for k := range src {
		dst[k] = struct{}{}
	}
	return dst
}

func cloneTypoMap(src map[string]string) map[string]string {
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// IsDisposable reports whether domain is a known burner/temp-mail
// provider (case-insensitive exact match against the embedded list).
func (p *Policy) IsDisposable(domain string) bool {
	_, ok := p.disposable[strings.ToLower(domain)]
	return ok
}

// IsFreeProvider reports whether domain is a known consumer webmail
// provider (gmail.com, outlook.com, ...).
func (p *Policy) IsFreeProvider(domain string) bool {
	_, ok := p.freeProviders[strings.ToLower(domain)]
	return ok
}
