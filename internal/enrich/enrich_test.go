package enrich

import (
	"context"
	"errors"
	"testing"

	"verifyengine/internal/cache"
	"verifyengine/internal/models"
	"verifyengine/internal/policy"
	"verifyengine/internal/verifier"
)

type stubResolver struct {
	mx  []models.MXRecord
	txt [][]string
}

func (s *stubResolver) MX(_ context.Context, _ string) ([]models.MXRecord, error) {
	if len(s.mx) == 0 {
		return nil, errors.New("no records")
	}
	return s.mx, nil
}
func (s *stubResolver) TXT(_ context.Context, _ string) ([][]string, error) { return s.txt, nil }
func (s *stubResolver) NS(_ context.Context, _ string) ([]string, error)    { return nil, nil }
func (s *stubResolver) SOA(_ context.Context, _ string) (string, error)     { return "", nil }

type stubRDAP struct{ days int }

func (s stubRDAP) DomainAgeDays(_ context.Context, _ string) int { return s.days }

func testOpts() verifier.Options {
	opts := verifier.DefaultOptions()
	opts.CheckSMTP = false
	return opts
}

func newTestEnricher(resolver *stubResolver, days int) *Enricher {
	v := verifier.New(verifier.Dependencies{
		Cache:  cache.NewMemStore(nil),
		DNS:    resolver,
		Policy: policy.New(),
	})
	return New(Dependencies{
		Verifier: v,
		DNS:      resolver,
		Policy:   policy.New(),
		RDAP:     stubRDAP{days: days},
	})
}

func TestEnrichInvalidResultHasNilEnrichment(t *testing.T) {
	e := newTestEnricher(&stubResolver{}, 0)
	enriched := e.Enrich(context.Background(), "user@nomx.invalid", testOpts())
	if enriched.Enrichment != nil {
		t.Fatal("expected nil enrichment for an invalid result")
	}
}

func TestEnrichValidResultDerivesNameAndCompany(t *testing.T) {
	resolver := &stubResolver{mx: []models.MXRecord{{Exchange: "mx.example-corp.com", Priority: 10}}}
	e := newTestEnricher(resolver, 400)

	enriched := e.Enrich(context.Background(), "john.doe@example-corp.com", testOpts())
	if enriched.Enrichment == nil {
		t.Fatal("expected a non-nil enrichment for a valid result")
	}
	if enriched.Enrichment.PossibleName == nil || enriched.Enrichment.PossibleName.First != "John" {
		t.Fatalf("expected first name John, got %+v", enriched.Enrichment.PossibleName)
	}
	if enriched.Enrichment.PossibleName.Last != "Doe" {
		t.Fatalf("expected last name Doe, got %q", enriched.Enrichment.PossibleName.Last)
	}
	if enriched.Enrichment.PossibleCompany != "Example Corp" {
		t.Fatalf("expected possible_company 'Example Corp', got %q", enriched.Enrichment.PossibleCompany)
	}
	if enriched.Enrichment.IsFreeProvider {
		t.Fatal("example-corp.com must not be flagged as a free provider")
	}
	if enriched.Enrichment.DomainAgeDays != 400 {
		t.Fatalf("expected domain age 400, got %d", enriched.Enrichment.DomainAgeDays)
	}
}

func TestEnrichFreeProviderHasNoCompany(t *testing.T) {
	resolver := &stubResolver{mx: []models.MXRecord{{Exchange: "aspmx.l.google.com", Priority: 1}}}
	e := newTestEnricher(resolver, 0)

	enriched := e.Enrich(context.Background(), "jane@gmail.com", testOpts())
	if !enriched.Enrichment.IsFreeProvider {
		t.Fatal("expected gmail.com to be flagged as a free provider")
	}
	if enriched.Enrichment.PossibleCompany != "" {
		t.Fatalf("expected no possible_company for a free provider, got %q", enriched.Enrichment.PossibleCompany)
	}
}

func TestPossibleNameStripsRolePrefixAndDigits(t *testing.T) {
	n := possibleName("admin.jane99")
	if n == nil || n.First != "Jane" {
		t.Fatalf("expected role prefix and trailing digits stripped to First=Jane, got %+v", n)
	}
}

func TestPossibleNameSingleWord(t *testing.T) {
	n := possibleName("jane")
	if n == nil || n.First != "Jane" || n.Last != "" {
		t.Fatalf("expected a single-word name to map to {First: Jane}, got %+v", n)
	}
}

func TestPossibleCompanyCountryCompound(t *testing.T) {
	got := possibleCompany("acme.co.uk")
	if got != "Acme" {
		t.Fatalf("expected Acme for a co.uk compound TLD, got %q", got)
	}
}

func TestIdentifyProviderGoogle(t *testing.T) {
	got := identifyProvider([]models.MXRecord{{Exchange: "aspmx.l.google.com", Priority: 1}})
	if got != "google" {
		t.Fatalf("expected google, got %q", got)
	}
}

func TestIdentifyProviderGeneric(t *testing.T) {
	got := identifyProvider([]models.MXRecord{{Exchange: "mx.example.com", Priority: 1}})
	if got != "generic" {
		t.Fatalf("expected generic, got %q", got)
	}
}
