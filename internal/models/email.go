// Package models holds the data shapes shared across the verification
// engine: the parsed email, the verification result and its enrichment
// extension, MX records, and batch job metadata. Every field here mirrors
// a field in the specification's data model — this package carries no
// dynamic or interface{}-typed result shape.
package models

import (
	"strings"

	"golang.org/x/net/idna"
)

// Email is the ASCII-normalised form of an address. Domain is always the
// IDNA ASCII-compatible encoding (used for DNS/SMTP); DomainUnicode keeps
// the human-readable form for typo suggestion and display.
type Email struct {
	Raw           string
	Local         string
	Domain        string
	DomainUnicode string
	Valid         bool
}

// ParseEmail splits on the last '@' and normalises the domain to ASCII.
// It never returns an error: a malformed address simply comes back with
// Valid=false, matching the pipeline's "never throw to the caller" rule.
func ParseEmail(raw string) Email {
	trimmed := strings.TrimSpace(raw)

	at := strings.LastIndex(trimmed, "@")
	if at <= 0 || at >= len(trimmed)-1 {
		return Email{Raw: trimmed, Valid: false}
	}

	local := trimmed[:at]
	domain := strings.ToLower(trimmed[at+1:])

	asciiDomain, unicodeDomain, ok := normaliseDomain(domain)
	if !ok {
		return Email{Raw: trimmed, Valid: false}
	}

	return Email{
		Raw:           trimmed,
		Local:         local,
		Domain:        asciiDomain,
		DomainUnicode: unicodeDomain,
		Valid:         true,
	}
}

// normaliseDomain converts domain to its ASCII-compatible (Punycode) form
// and, where possible, recovers a Unicode display form. Pure-ASCII input
// is returned unchanged as both forms when it is not itself Punycode.
func normaliseDomain(domain string) (ascii, unicode string, ok bool) {
	for _, r := range domain {
		if r > 127 {
			a, err := idna.Lookup.ToASCII(domain)
			if err != nil {
				return "", "", false
			}
			return a, domain, true
		}
	}

	u, err := idna.Display.ToUnicode(domain)
	if err != nil {
		u = domain
	}
	return domain, u, true
}

// String reconstructs the normalised "local@domain" address.
func (e Email) String() string {
	return e.Local + "@" + e.Domain
}
