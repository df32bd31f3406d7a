package policy

import "strings"

// DomainCategory mirrors models.DomainCategory's string values so this
// package stays free of a dependency on internal/models.
type DomainCategory string

const (
	CategoryLegacy        DomainCategory = "legacy"
	CategoryEstablished   DomainCategory = "established"
	CategoryInstitutional DomainCategory = "institutional"
	CategoryOrganization  DomainCategory = "organization"
	CategoryStandard      DomainCategory = "standard"
)

// legacyProviders are free webmail brands that predate the mid-2000s
// consumer-webmail wave (spec §4.3 "legacy... by name list").
var legacyProviders = map[string]struct{}{
	"aol.com": {}, "msn.com": {}, "juno.com": {}, "netzero.com": {},
	"compuserve.com": {}, "prodigy.net": {}, "earthlink.net": {},
	"netscape.net": {}, "excite.com": {}, "mindspring.com": {},
}

// establishedProviders are the large, currently-dominant free webmail
// brands (spec §4.3 "established... by name list").
var establishedProviders = map[string]struct{}{
	"gmail.com": {}, "googlemail.com": {}, "yahoo.com": {}, "yahoo.co.uk": {},
	"outlook.com": {}, "hotmail.com": {}, "hotmail.co.uk": {}, "live.com": {},
	"icloud.com": {}, "me.com": {}, "mac.com": {}, "protonmail.com": {},
	"proton.me": {}, "zoho.com": {}, "gmx.com": {}, "gmx.net": {},
	"mail.com": {}, "fastmail.com": {}, "yandex.com": {}, "tutanota.com": {},
}

var institutionalTLDs = map[string]struct{}{"edu": {}, "gov": {}, "mil": {}}
var organizationTLDs = map[string]struct{}{"org": {}, "net": {}}

// Category classifies domain per spec §4.3: legacy/established by name
// list, institutional for .edu/.gov/.mil, organization for .org/.net,
// standard otherwise.
func (p *Policy) Category(domain string) DomainCategory {
	lower := strings.ToLower(domain)

	if _, ok := p.legacy[lower]; ok {
		return CategoryLegacy
	}
	if _, ok := p.established[lower]; ok {
		return CategoryEstablished
	}

	tld := lastLabel(lower)
	if _, ok := institutionalTLDs[tld]; ok {
		return CategoryInstitutional
	}
	if _, ok := organizationTLDs[tld]; ok {
		return CategoryOrganization
	}
	return CategoryStandard
}

func lastLabel(domain string) string {
	idx := strings.LastIndexByte(domain, '.')
	if idx == -1 {
		return domain
	}
	return domain[idx+1:]
}
