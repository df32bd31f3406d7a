package enrich

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// DomainAgeLookup resolves a domain's registration age in days. An
// interface so tests can substitute a fixture without a real network
// call.
type DomainAgeLookup interface {
	DomainAgeDays(ctx context.Context, domain string) int
}

// RDAPClient queries rdap.org for a domain's registration event,
// grounded on the teacher's internal/lookup/probes_extended.go
// CheckDomainAge, generalised off the teacher's ad hoc proxied-request
// helper onto a plain *http.Client with its own short timeout — RDAP
// lookups are best-effort enrichment, never allowed to stall verify().
type RDAPClient struct {
	client *http.Client
}

// NewRDAPClient builds an RDAPClient with a 5s request timeout.
func NewRDAPClient() *RDAPClient {
	return &RDAPClient{client: &http.Client{Timeout: 5 * time.Second}}
}

type rdapResponse struct {
	Events []struct {
		Action string `json:"eventAction"`
		Date   string `json:"eventDate"`
	} `json:"events"`
}

// DomainAgeDays returns the number of days since the domain's earliest
// registration/creation RDAP event, or 0 if the lookup fails or no such
// event is present. Never returns an error: this is best-effort
// enrichment (spec §4.7 supplement).
func (c *RDAPClient) DomainAgeDays(ctx context.Context, domain string) int {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://rdap.org/domain/"+domain, nil)
	if err != nil {
		return 0
	}
	req.Header.Set("Accept", "application/rdap+json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0
	}

	var rdap rdapResponse
	if err := json.NewDecoder(resp.Body).Decode(&rdap); err != nil {
		return 0
	}

	var created time.Time
	for _, event := range rdap.Events {
		if event.Action != "registration" && event.Action != "creation" {
			continue
		}
		t, err := time.Parse(time.RFC3339, event.Date)
		if err != nil {
			continue
		}
		if created.IsZero() || t.Before(created) {
			created = t
		}
	}
	if created.IsZero() {
		return 0
	}
	return int(time.Since(created).Hours() / 24)
}
