package policy

import "strings"

// typoCorrections maps known-bad domain spellings straight to their
// correction (spec §4.3 "hard-coded typo correction map"), checked
// before falling back to Levenshtein distance.
var typoCorrections = map[string]string{
	"gmial.com":   "gmail.com",
	"gmai.com":    "gmail.com",
	"gmal.com":    "gmail.com",
	"gmailcom":    "gmail.com",
	"gnail.com":   "gmail.com",
	"yaho.com":    "yahoo.com",
	"yahooo.com":  "yahoo.com",
	"yhoo.com":    "yahoo.com",
	"hotmial.com": "hotmail.com",
	"hotmil.com":  "hotmail.com",
	"hotmal.com":  "hotmail.com",
	"otlook.com":  "outlook.com",
	"outlok.com":  "outlook.com",
	"iclould.com": "icloud.com",
}

// TypoThreshold is the maximum Levenshtein distance for a fallback
// suggestion (spec §4.3: "minimum distance ≤ 2 and > 0").
const TypoThreshold = 2

// Suggest implements spec §4.3's suggest(email): if domain matches the
// hard-coded typo map, return the corrected address. Otherwise fall back
// to Levenshtein distance against the well-known-domains table; if the
// closest match is within TypoThreshold and the domain isn't an exact
// match, return the corrected address. Otherwise return "".
func (p *Policy) Suggest(local, domain string) string {
	lower := strings.ToLower(domain)

	if corrected, ok := p.typoCorrection[lower]; ok {
		return local + "@" + corrected
	}

	best := ""
	bestDist := TypoThreshold + 1
	for _, known := range p.wellKnown {
		if lower == known {
			return ""
		}
		d := levenshteinDistance(lower, known)
		if d <= TypoThreshold && d < bestDist {
			bestDist, best = d, known
		}
	}
	if best == "" {
		return ""
	}
	return local + "@" + best
}

// levenshteinDistance computes the edit distance between a and b using
// two rolling rows (O(min(len(a),len(b))) memory).
func levenshteinDistance(a, b string) int {
	ar := []rune(a)
	br := []rune(b)

	if len(ar) == 0 {
		return len(br)
	}
	if len(br) == 0 {
		return len(ar)
	}
	if len(ar) > len(br) {
		ar, br = br, ar
	}

	prev := make([]int, len(ar)+1)
	curr := make([]int, len(ar)+1)
	for i := range prev {
		prev[i] = i
	}

	for j, bc := range br {
		curr[0] = j + 1
		for i, ac := range ar {
			cost := 1
			if ac == bc {
				cost = 0
			}
			curr[i+1] = minOf3(curr[i]+1, prev[i+1]+1, prev[i]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(ar)]
}

func minOf3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
