// Package verifier implements the Verifier Pipeline (spec §4.6): the
// engine's single public verify() operation, orchestrating the DNS
// Resolver, Domain Policy, Rate Governor, and SMTP Probe into one
// Result. Grounded on the teacher's internal/validator/logic.go
// VerifyEmail — the same fan-out-then-join shape, generalised from
// sync.WaitGroup+mutex to golang.org/x/sync/errgroup, and trimmed to
// the in-scope signals (no social/breach probes, see SPEC_FULL.md §5).
package verifier

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"verifyengine/internal/cache"
	"verifyengine/internal/dns"
	"verifyengine/internal/governor"
	"verifyengine/internal/models"
	"verifyengine/internal/policy"
	"verifyengine/internal/smtp"
	"verifyengine/internal/verrors"
)

// errInvalidFormat backs the closed "Invalid email format" error tag
// (spec §8 scenario 2) through the same verrors.KindInput classification
// as any other malformed-input rejection.
var errInvalidFormat = errors.New("email format invalid")

// Dependencies bundles the pipeline's collaborators. All are required
// except Governor, which is optional (a nil Governor disables the
// blocklist gate and the pre-send delay, SMTP still runs unthrottled).
type Dependencies struct {
	Cache    cache.Store
	DNS      dns.Resolver
	Policy   *policy.Policy
	Governor *governor.Governor
	SMTP     smtp.Config
	Logger   *log.Logger
}

// Verifier runs verify() calls.
type Verifier struct {
	deps Dependencies
}

// New builds a Verifier.
func New(deps Dependencies) *Verifier {
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}
	return &Verifier{deps: deps}
}

var spamTrapTXT = regexp.MustCompile(`(?i)spam|trap|honeypot`)

// Verify runs the full pipeline (spec §4.6 steps 1-9). It never returns
// an error: failures are recorded in the result's Errors slice and the
// pipeline continues with whatever partial data it gathered.
func (v *Verifier) Verify(ctx context.Context, email string, opts Options) models.Result {
	start := time.Now()

	// Step 1: parse.
	parsed := models.ParseEmail(email)
	result := models.Result{Email: email, Domain: parsed.Domain, Timestamp: start}
	if !parsed.Valid {
		result.FormatValid = false
		result.Errors = append(result.Errors, "Invalid email format")
		v.deps.Logger.Printf("[verifier] %v", verrors.New(verrors.KindInput, errInvalidFormat))
		result.ProcessingMS = time.Since(start).Milliseconds()
		return result
	}
	result.FormatValid = true

	// Step 2: syntax.
	if opts.CheckSyntax && !checkSyntax(parsed.Local, parsed.Domain) {
		result.FormatValid = false
		result.Errors = append(result.Errors, "Invalid email format")
		v.deps.Logger.Printf("[verifier] %v", verrors.New(verrors.KindInput, errInvalidFormat))
		result.ProcessingMS = time.Since(start).Milliseconds()
		if opts.CacheResults {
			v.cacheResult(ctx, email, result, cache.TTLNegativeVerify)
		}
		return result
	}

	cacheKey := "verify:" + email

	// Step 3: cache check.
	if opts.UseCache {
		if raw, ok := v.deps.Cache.Get(ctx, cacheKey); ok {
			var cached models.Result
			if err := json.Unmarshal(raw, &cached); err == nil {
				cached.FromCache = true
				return cached
			}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(opts.TimeoutMS)*time.Millisecond)
	defer cancel()

	if v.runParallelBlock(ctx, parsed, opts, &result) {
		result.Errors = append(result.Errors, "timeout")
	}

	// Step 5: MX gate.
	if opts.CheckMX && result.HasMX {
		v.runSMTPStage(ctx, parsed, opts, &result)
	}

	// Step 8: spam-trap heuristic. Skipped along with steps 6-7 when
	// has_mx is false (spec §4.6 step 5).
	if opts.CheckSpamTrap && result.HasMX {
		v.checkSpamTrap(ctx, parsed, &result)
	}

	// Step 9: aggregate.
	result.ProcessingMS = time.Since(start).Milliseconds()
	if opts.CacheResults {
		ttl := cache.TTLNegativeVerify
		if result.IsValid() {
			ttl = cache.TTLPositiveVerify
		}
		v.cacheResult(ctx, email, result, ttl)
	}
	return result
}

// runParallelBlock implements step 4: disposable check, MX lookup,
// role-account check, and typo suggestion all run concurrently, waited
// under the overall timeout. Returns true if the group hit ctx's
// deadline before finishing.
func (v *Verifier) runParallelBlock(ctx context.Context, parsed models.Email, opts Options, result *models.Result) (timedOut bool) {
	g, gctx := errgroup.WithContext(ctx)

	if opts.CheckDisposable {
		g.Go(func() error {
			result.IsDisposable = v.deps.Policy.IsDisposable(parsed.Domain)
			return nil
		})
	}

	if opts.CheckMX {
		g.Go(func() error {
			records, err := v.deps.DNS.MX(gctx, parsed.Domain)
			if err != nil {
				kind := dns.ToVerrorsKind(err)
				v.deps.Logger.Printf("[verifier] %v", verrors.New(kind, err))
				result.Errors = append(result.Errors, "No MX records found for domain")
				return nil
			}
			result.HasMX = true
			result.Details.MX = records
			return nil
		})
	}

	if opts.CheckRoleAccount {
		g.Go(func() error {
			result.IsRoleAccount = IsRoleAccount(parsed.Local)
			return nil
		})
	}

	if opts.CheckTypos {
		g.Go(func() error {
			result.Suggestion = v.deps.Policy.Suggest(parsed.Local, parsed.DomainUnicode)
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()

	select {
	case <-done:
		return false
	case <-ctx.Done():
		return true
	}
}

// runSMTPStage implements steps 6 and 7: the blocklist gate, the probe
// against the lowest-priority MX host, and the catch-all probe.
func (v *Verifier) runSMTPStage(ctx context.Context, parsed models.Email, opts Options, result *models.Result) {
	if !opts.CheckSMTP {
		// No probe ran, so SMTPOk carries no information either way —
		// record that explicitly rather than letting absence read as
		// "checked and rejected" (models.Result.IsValid).
		result.SMTPSkipped = true
		return
	}
	if len(result.Details.MX) == 0 {
		return
	}

	domain := parsed.Domain
	primaryMX := result.Details.MX[0].Exchange

	if v.deps.Governor != nil && v.deps.Governor.IsBlocked(ctx, domain) {
		// TreatPolicyBlockAsValid resolves whether a rate-governor block
		// should still count toward IsValid (spec §9 Open Question); when
		// false, the block is recorded as an error instead so IsValid
		// requires a live SMTP accept.
		if opts.TreatPolicyBlockAsValid {
			result.SMTPBlockedByPolicy = true
		} else {
			result.Errors = append(result.Errors, "smtp blocked by policy")
		}
		return
	}

	smtpCfg := v.deps.SMTP
	if v.deps.Governor != nil {
		ip, err := v.deps.Governor.Acquire(ctx, domain)
		if err != nil {
			result.Errors = append(result.Errors, "rate limited: "+err.Error())
			return
		}
		smtpCfg.LocalAddr = ip

		if delay := v.deps.Governor.Delay(ctx, domain); delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				result.Errors = append(result.Errors, "timeout")
				return
			}
		}
	}

	prober := smtp.New(smtpCfg)
	outcome := prober.Run(ctx, primaryMX, parsed.String())
	result.SMTPOk = outcome.Accepted
	if outcome.ErrorTag != "" {
		result.Errors = append(result.Errors, outcome.ErrorTag)
	}

	if v.deps.Governor != nil {
		if outcome.Accepted {
			v.deps.Governor.ReportSuccess(ctx, domain)
		} else if outcome.ErrorTag != "" {
			v.deps.Governor.ReportFailure(ctx, domain, outcome.ErrorTag)
		}
	}

	if opts.CheckCatchAll && outcome.Accepted && !result.IsDisposable {
		ghostLocal, err := randomLocalPart(12)
		if err != nil {
			return
		}
		v.deps.Logger.Printf("[verifier] catch-all probe for %s using ghost local %s", domain, ghostLocal)
		ghostOutcome := prober.Run(ctx, primaryMX, ghostLocal+"@"+domain)
		if ghostOutcome.Accepted {
			result.IsCatchAll = true
		}
	}
}

// checkSpamTrap implements step 8: local-part pattern or a suspicious
// TXT record. TXT lookup failures are non-fatal.
func (v *Verifier) checkSpamTrap(ctx context.Context, parsed models.Email, result *models.Result) {
	if isSpamTrapLocal(parsed.Local) {
		result.IsSpamTrap = true
		return
	}

	records, err := v.deps.DNS.TXT(ctx, parsed.Domain)
	if err != nil {
		return
	}
	for _, rec := range records {
		joined := strings.Join(rec, "")
		if spamTrapTXT.MatchString(joined) {
			result.IsSpamTrap = true
			return
		}
	}
}

func (v *Verifier) cacheResult(ctx context.Context, email string, result models.Result, ttl time.Duration) {
	raw, err := json.Marshal(result)
	if err != nil {
		return
	}
	v.deps.Cache.Set(ctx, "verify:"+email, raw, ttl)
}

// randomLocalPart generates a pseudo-random local part of at least n
// characters (spec §4.6 step 7: "≥10 characters"), drawn from
// crypto/rand. It cannot be regenerated from a seed; the caller logs the
// generated local part so a catch-all verdict can be traced.
func randomLocalPart(n int) (string, error) {
	if n < 10 {
		n = 10
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = alphabet[int(b)%len(alphabet)]
	}
	return fmt.Sprintf("vfy%s", out), nil
}
