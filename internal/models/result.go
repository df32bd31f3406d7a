package models

import "time"

// MXRecord is a single mail-exchange entry. Lists of MXRecord are always
// stable-sorted ascending by Priority, ties broken by insertion order —
// callers must use sort.SliceStable, never sort.Slice.
type MXRecord struct {
	Exchange string `json:"exchange"`
	Priority uint16 `json:"priority"`
}

// Details is the nested record carried on every VerificationResult.
type Details struct {
	MX []MXRecord `json:"mx"`

	HasSPF   bool `json:"has_spf"`
	HasDKIM  bool `json:"has_dkim"`
	HasDMARC bool `json:"has_dmarc"`

	// MailboxCheck is reserved for a heuristic mailbox-existence outcome
	// (spec §4.5 / §9 Open Question); no component sets it, so it is
	// always empty.
	MailboxCheck string `json:"mailbox_check,omitempty"`

	// ReputationScore is 0-10; 0 when no reputation signal could be
	// computed (e.g. has_mx=false).
	ReputationScore int `json:"reputation_score"`
}

// Result is the engine's primary output: the immutable outcome of a
// single verify() call. Optional fields are explicit — there is no
// interface{}-typed or conditionally-shaped payload.
type Result struct {
	Email        string    `json:"email"`
	Domain       string    `json:"domain"`
	Timestamp    time.Time `json:"timestamp"`
	ProcessingMS int64     `json:"processing_ms"`

	FormatValid   bool `json:"format_valid"`
	HasMX         bool `json:"has_mx"`
	IsDisposable  bool `json:"is_disposable"`
	IsCatchAll    bool `json:"is_catch_all"`
	IsRoleAccount bool `json:"is_role_account"`
	IsSpamTrap    bool `json:"is_spam_trap"`
	SMTPOk        bool `json:"smtp_ok"`

	// SMTPBlockedByPolicy is true when the Rate Governor's blocklist
	// prevented an SMTP probe from running. Per the spec's open question
	// it contributes positively to IsValid by default; the verifier sets it
	// only when verifier.Options.TreatPolicyBlockAsValid is true.
	SMTPBlockedByPolicy bool `json:"smtp_blocked_by_policy"`

	// SMTPSkipped is true when Options.CheckSMTP disabled the probe
	// entirely, as distinct from SMTPBlockedByPolicy (probe skipped for a
	// known policy reason) or SMTPOk=false (probe ran and rejected).
	// Contributes positively to IsValid — an unchecked mailbox is not the
	// same claim as an unreachable one — but never to IsLive, which still
	// requires an actual accept.
	SMTPSkipped bool `json:"smtp_skipped"`

	Suggestion string   `json:"suggestion,omitempty"`
	Errors     []string `json:"errors"`
	Details    Details  `json:"details"`

	FromCache bool `json:"from_cache,omitempty"`
}

// IsValid implements: format_valid ∧ has_mx ∧ ¬is_disposable ∧
// (smtp_ok ∨ smtp_blocked_by_policy ∨ smtp_skipped) ∧ ¬is_spam_trap.
func (r Result) IsValid() bool {
	return r.FormatValid && r.HasMX && !r.IsDisposable &&
		(r.SMTPOk || r.SMTPBlockedByPolicy || r.SMTPSkipped) && !r.IsSpamTrap
}

// IsLive implements the stricter: is_valid ∧ smtp_ok ∧ ¬is_catch_all ∧
// ¬is_role_account.
func (r Result) IsLive() bool {
	return r.IsValid() && r.SMTPOk && !r.IsCatchAll && !r.IsRoleAccount
}

// DomainCategory enumerates the Enricher's coarse domain classification.
type DomainCategory string

const (
	CategoryLegacy        DomainCategory = "legacy"
	CategoryEstablished   DomainCategory = "established"
	CategoryInstitutional DomainCategory = "institutional"
	CategoryOrganization  DomainCategory = "organization"
	CategoryStandard      DomainCategory = "standard"
)

// PossibleName is the Enricher's best-effort guess at a person's name.
type PossibleName struct {
	Full  string `json:"full"`
	First string `json:"first"`
	Last  string `json:"last,omitempty"`
}

// Enrichment extends a valid Result with secondary intelligence about the
// address and its domain. Supplemented fields (MXProvider, HasSaaSTokens,
// DomainAgeDays) surface the teacher's infrastructure-fingerprinting
// signals that spec.md's distillation dropped but did not exclude — see
// SPEC_FULL.md §7.
type Enrichment struct {
	PossibleName    *PossibleName  `json:"possible_name,omitempty"`
	PossibleCompany string         `json:"possible_company,omitempty"`
	IsFreeProvider  bool           `json:"is_free_provider"`
	DomainCategory  DomainCategory `json:"domain_category"`

	MXProvider    string `json:"mx_provider,omitempty"`
	HasSaaSTokens bool   `json:"has_saas_tokens"`
	DomainAgeDays int    `json:"domain_age_days,omitempty"`
}

// EnrichedResult pairs a Result with its optional Enrichment. Enrichment
// is nil whenever the underlying Result is not valid, per spec §4.7.
type EnrichedResult struct {
	Result
	Enrichment *Enrichment `json:"enrichment,omitempty"`
}
