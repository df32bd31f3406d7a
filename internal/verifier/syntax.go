package verifier

import "strings"

// roleAccounts is the exact set named in spec §4.6.
var roleAccounts = map[string]struct{}{
	"admin": {}, "administrator": {}, "webmaster": {}, "hostmaster": {},
	"postmaster": {}, "abuse": {}, "security": {}, "support": {},
	"info": {}, "contact": {}, "sales": {}, "marketing": {}, "help": {},
	"noreply": {}, "no-reply": {},
}

// IsRoleAccount reports whether local is a role-account prefix.
func IsRoleAccount(local string) bool {
	_, ok := roleAccounts[strings.ToLower(local)]
	return ok
}

// RoleAccountPrefixes returns the role-account prefix set named in spec
// §4.6, reused by the Enricher to strip role prefixes from a possible
// name (spec §4.7: "same set as role detection").
func RoleAccountPrefixes() map[string]struct{} {
	return roleAccounts
}

// checkSyntax implements spec §4.6 step 2's RFC-lite check: local part
// <= 64 chars, no "..", domain labels not starting/ending with '-', TLD
// length >= 2.
func checkSyntax(local, domain string) bool {
	if local == "" || len(local) > 64 {
		return false
	}
	if strings.Contains(local, "..") {
		return false
	}
	if domain == "" {
		return false
	}

	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return false
	}
	for _, label := range labels {
		if label == "" {
			return false
		}
		if strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
			return false
		}
	}

	tld := labels[len(labels)-1]
	return len(tld) >= 2
}

// isSpamTrapLocal implements the local-part half of spec §4.6 step 8:
// ^[a-z0-9]{8,}$ with no vowels.
func isSpamTrapLocal(local string) bool {
	lower := strings.ToLower(local)
	if len(lower) < 8 {
		return false
	}
	hasVowel := false
	for _, r := range lower {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'z':
			if strings.ContainsRune("aeiou", r) {
				hasVowel = true
			}
		default:
			return false
		}
	}
	return !hasVowel
}
