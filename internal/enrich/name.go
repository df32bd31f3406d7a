package enrich

import (
	"strings"
	"unicode"

	"verifyengine/internal/models"
	"verifyengine/internal/verifier"
)

// countryCompoundTLDs names the second-level+TLD pairs that need a
// third label for the company guess (spec §4.7).
var countryCompoundTLDs = map[string]struct{}{
	"co.uk": {}, "com.au": {}, "co.nz": {}, "co.jp": {}, "co.za": {}, "com.br": {},
}

// possibleName implements spec §4.7's possible_name derivation: strip
// leading role prefixes, trailing digits, replace "._-" with spaces,
// trim, capitalise each word; one word maps to {first}, multi-word to
// {first, last: rest}.
func possibleName(local string) *models.PossibleName {
	cleaned := stripLeadingRolePrefix(local)
	cleaned = strings.TrimRight(cleaned, "0123456789")
	cleaned = strings.Map(func(r rune) rune {
		if r == '.' || r == '_' || r == '-' {
			return ' '
		}
		return r
	}, cleaned)
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return nil
	}

	words := strings.Fields(cleaned)
	for i, w := range words {
		words[i] = titleCase(w)
	}

	if len(words) == 1 {
		return &models.PossibleName{Full: words[0], First: words[0]}
	}
	return &models.PossibleName{
		Full:  strings.Join(words, " "),
		First: words[0],
		Last:  strings.Join(words[1:], " "),
	}
}

func stripLeadingRolePrefix(local string) string {
	lower := strings.ToLower(local)
	prefixes := verifier.RoleAccountPrefixes()
	for prefix := range prefixes {
		if lower == prefix {
			return ""
		}
		if strings.HasPrefix(lower, prefix+".") || strings.HasPrefix(lower, prefix+"_") || strings.HasPrefix(lower, prefix+"-") {
			return local[len(prefix)+1:]
		}
	}
	return local
}

func titleCase(word string) string {
	if word == "" {
		return word
	}
	r := []rune(strings.ToLower(word))
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// possibleCompany implements spec §4.7's possible_company derivation:
// second-level domain, or third-level when second-level+TLD matches a
// known country compound; replace "-_" with spaces; title-case.
func possibleCompany(domain string) string {
	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return ""
	}

	var nameLabel string
	if len(labels) >= 3 {
		compound := strings.Join(labels[len(labels)-2:], ".")
		if _, ok := countryCompoundTLDs[compound]; ok {
			nameLabel = labels[len(labels)-3]
		}
	}
	if nameLabel == "" {
		nameLabel = labels[len(labels)-2]
	}

	nameLabel = strings.Map(func(r rune) rune {
		if r == '-' || r == '_' {
			return ' '
		}
		return r
	}, nameLabel)

	words := strings.Fields(nameLabel)
	for i, w := range words {
		words[i] = titleCase(w)
	}
	return strings.Join(words, " ")
}
