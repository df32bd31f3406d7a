// Package enrich implements the Enricher (spec §4.7): runs verify()
// first, then — only for a valid result — derives a possible name and
// company plus the Domain Policy's free-provider/category signals.
// Also folds in the supplemented infrastructure-fingerprinting signals
// (MX provider, SPF/DMARC, SaaS tokens, domain age) that spec.md's
// distillation dropped but didn't exclude, grounded on the teacher's
// internal/lookup/security.go and probes_extended.go — see
// SPEC_FULL.md §5/§7.
package enrich

import (
	"context"
	"log"
	"strings"

	"verifyengine/internal/dns"
	"verifyengine/internal/models"
	"verifyengine/internal/policy"
	"verifyengine/internal/verifier"
)

// Dependencies bundles the Enricher's collaborators.
type Dependencies struct {
	Verifier *verifier.Verifier
	DNS      dns.Resolver
	Policy   *policy.Policy
	RDAP     DomainAgeLookup
	Logger   *log.Logger
}

// Enricher runs enrich() calls.
type Enricher struct {
	deps Dependencies
}

// New builds an Enricher.
func New(deps Dependencies) *Enricher {
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}
	if deps.RDAP == nil {
		deps.RDAP = NewRDAPClient()
	}
	return &Enricher{deps: deps}
}

// Enrich implements spec §4.7: verify() first; an invalid result comes
// back with a nil Enrichment.
func (e *Enricher) Enrich(ctx context.Context, email string, opts verifier.Options) models.EnrichedResult {
	result := e.deps.Verifier.Verify(ctx, email, opts)
	enriched := models.EnrichedResult{Result: result}

	if !result.IsValid() {
		return enriched
	}

	parsed := models.ParseEmail(email)
	isFree := e.deps.Policy.IsFreeProvider(parsed.Domain)

	enrichment := &models.Enrichment{
		PossibleName:   possibleName(parsed.Local),
		IsFreeProvider: isFree,
		DomainCategory: models.DomainCategory(e.deps.Policy.Category(parsed.Domain)),
		HasSaaSTokens:  e.checkSaaSTokens(ctx, parsed.Domain),
	}
	if !isFree {
		enrichment.PossibleCompany = possibleCompany(parsed.Domain)
	}
	enrichment.MXProvider = identifyProvider(result.Details.MX)
	enrichment.DomainAgeDays = e.deps.RDAP.DomainAgeDays(ctx, parsed.Domain)

	enriched.Details.HasSPF = e.checkTXTPrefix(ctx, parsed.Domain, "v=spf1")
	enriched.Details.HasDMARC = e.checkTXTPrefix(ctx, "_dmarc."+parsed.Domain, "v=DMARC1")
	enriched.Details.ReputationScore = reputationScore(enriched.Result, enrichment)

	enriched.Enrichment = enrichment
	return enriched
}

// checkTXTPrefix reports whether any TXT record at domain starts with
// prefix. SPF is published as a TXT record on the domain itself; DMARC
// is published at _dmarc.<domain>.
func (e *Enricher) checkTXTPrefix(ctx context.Context, domain, prefix string) bool {
	records, err := e.deps.DNS.TXT(ctx, domain)
	if err != nil {
		return false
	}
	for _, rec := range records {
		if strings.HasPrefix(strings.Join(rec, ""), prefix) {
			return true
		}
	}
	return false
}

func (e *Enricher) checkSaaSTokens(ctx context.Context, domain string) bool {
	records, err := e.deps.DNS.TXT(ctx, domain)
	if err != nil {
		return false
	}
	indicators := []string{
		"salesforce", "zendesk", "atlassian", "docusign",
		"facebook-domain-verification", "apple-domain-verification", "stripe",
	}
	for _, rec := range records {
		lower := strings.ToLower(strings.Join(rec, ""))
		for _, ind := range indicators {
			if strings.Contains(lower, ind) {
				return true
			}
		}
	}
	return false
}

// identifyProvider classifies mail infrastructure from MX hostnames,
// grounded on the teacher's IdentifyProvider. Never returns "unknown" —
// "generic" is the default.
func identifyProvider(mx []models.MXRecord) string {
	for _, rec := range mx {
		host := strings.ToLower(rec.Exchange)
		switch {
		case strings.Contains(host, "pphosted.com"):
			return "proofpoint"
		case strings.Contains(host, "mimecast.com"):
			return "mimecast"
		case strings.Contains(host, "barracudanetworks.com"):
			return "barracuda"
		case strings.Contains(host, "google.com"), strings.Contains(host, "googlemail.com"):
			return "google"
		case strings.Contains(host, "outlook.com"), strings.Contains(host, "protection.outlook.com"):
			return "office365"
		}
	}
	return "generic"
}
