package verifier

// Options controls which steps verify() runs (spec §4.6). The zero
// value is not the default — use DefaultOptions().
type Options struct {
	UseCache         bool
	CheckSyntax      bool
	CheckMX          bool
	CheckDisposable  bool
	CheckTypos       bool
	CheckCatchAll    bool
	CheckSMTP        bool
	CheckSpamTrap    bool
	CheckRoleAccount bool
	CacheResults     bool
	// AltDNS is not read by Verify: the secondary-nameserver retry is
	// set per resolver through dns.Config.UseAlternate.
	AltDNS           bool
	TimeoutMS        int
	// TreatPolicyBlockAsValid resolves the Open Question of whether a
	// domain blocked by the Rate Governor should still count toward
	// is_valid via smtp_blocked_by_policy (spec §3's IsValid formula
	// already ORs in SMTPBlockedByPolicy; this flag exists so callers
	// can opt out and require a live SMTP accept).
	TreatPolicyBlockAsValid bool
}

// DefaultOptions returns spec §4.6's documented defaults.
func DefaultOptions() Options {
	return Options{
		UseCache:                true,
		CheckSyntax:             true,
		CheckMX:                 true,
		CheckDisposable:         true,
		CheckTypos:              true,
		CheckCatchAll:           true,
		CheckSMTP:               true,
		CheckSpamTrap:           true,
		CheckRoleAccount:        true,
		CacheResults:            true,
		AltDNS:                  false,
		TimeoutMS:               10000,
		TreatPolicyBlockAsValid: true,
	}
}
