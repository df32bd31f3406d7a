package enrich

import (
	"strings"
	"unicode"

	"verifyengine/internal/models"
)

// Reputation scoring weights, adapted from the teacher's
// CalculateRobustScore boosters/penalties but restricted to the signals
// this engine actually computes — the teacher's social-presence and
// breach-database boosters (Teams/SharePoint/Calendar/Adobe/GitHub/
// Gravatar/HIBP) have no equivalent here (see SPEC_FULL.md §7/§5) and
// are dropped rather than faked.
const (
	repBaseValid    = 6
	repBaseCatchAll = 3

	repBoostEnterpriseSec = 1 // proofpoint / mimecast MX
	repBoostSaaSTokens    = 1
	repBoostSPF           = 1
	repBoostDMARC         = 1

	repPenaltyHighEntropy = 2
	repPenaltyRoleAccount = 1
	repPenaltyNewDomain   = 3
)

// reputationScore rescales the teacher's 0-99 CalculateRobustScore onto
// the 0-10 range models.Details.ReputationScore documents, using only
// the signals the Enricher has available: MX provider, SPF/DMARC, SaaS
// tokens, domain age, catch-all, role account, local-part entropy.
func reputationScore(result models.Result, enrichment *models.Enrichment) int {
	if !result.HasMX {
		return 0
	}

	score := repBaseValid
	if result.IsCatchAll {
		score = repBaseCatchAll
	}

	if enrichment.MXProvider == "proofpoint" || enrichment.MXProvider == "mimecast" {
		score += repBoostEnterpriseSec
	}
	if enrichment.HasSaaSTokens {
		score += repBoostSaaSTokens
	}
	if result.Details.HasSPF {
		score += repBoostSPF
	}
	if result.Details.HasDMARC {
		score += repBoostDMARC
	}

	if enrichment.DomainAgeDays > 0 && enrichment.DomainAgeDays < 30 {
		score -= repPenaltyNewDomain
	}
	if result.IsRoleAccount {
		score -= repPenaltyRoleAccount
	}
	if localPartEntropy(result.Email) > 0.5 {
		score -= repPenaltyHighEntropy
	}

	if score > 10 {
		score = 10
	}
	if score < 0 {
		score = 0
	}
	return score
}

// localPartEntropy is the teacher's digit-ratio heuristic: the fraction
// of digit characters in the local part. Above 0.5 is suspicious of a
// bot-generated or burner address.
func localPartEntropy(email string) float64 {
	local := email
	if at := strings.IndexByte(email, '@'); at >= 0 {
		local = email[:at]
	}
	if local == "" {
		return 0
	}
	digits := 0.0
	for _, r := range local {
		if unicode.IsDigit(r) {
			digits++
		}
	}
	return digits / float64(len(local))
}
