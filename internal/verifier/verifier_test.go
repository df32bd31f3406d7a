package verifier

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"verifyengine/internal/cache"
	"verifyengine/internal/models"
	"verifyengine/internal/policy"
)

// stubResolver implements dns.Resolver without any network access.
type stubResolver struct {
	mx     []models.MXRecord
	mxErr  error
	mxHang bool
	txt    [][]string
	txtErr error
}

func (s *stubResolver) MX(ctx context.Context, _ string) ([]models.MXRecord, error) {
	if s.mxHang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return s.mx, s.mxErr
}
func (s *stubResolver) TXT(_ context.Context, _ string) ([][]string, error) {
	return s.txt, s.txtErr
}
func (s *stubResolver) NS(_ context.Context, _ string) ([]string, error) { return nil, nil }
func (s *stubResolver) SOA(_ context.Context, _ string) (string, error) { return "", nil }

func newTestVerifier(resolver *stubResolver) *Verifier {
	return New(Dependencies{
		Cache:  cache.NewMemStore(nil),
		DNS:    resolver,
		Policy: policy.New(),
	})
}

func testOptsNoSMTP() Options {
	opts := DefaultOptions()
	opts.CheckSMTP = false
	opts.TimeoutMS = 2000
	return opts
}

func TestVerifyMalformedEmailIsFormatInvalid(t *testing.T) {
	v := newTestVerifier(&stubResolver{})
	result := v.Verify(context.Background(), "not-an-email", testOptsNoSMTP())
	if result.FormatValid {
		t.Fatal("expected format_valid=false for an address with no '@'")
	}
	found := false
	for _, e := range result.Errors {
		if e == "Invalid email format" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected 'Invalid email format' in errors, got %v", result.Errors)
	}
}

func TestVerifySyntaxRejectsDoubleDot(t *testing.T) {
	v := newTestVerifier(&stubResolver{})
	result := v.Verify(context.Background(), "john..doe@example.com", testOptsNoSMTP())
	if result.FormatValid {
		t.Fatal("expected format_valid=false for a local part with '..'")
	}
}

func TestVerifyDisposableDomain(t *testing.T) {
	v := newTestVerifier(&stubResolver{mx: []models.MXRecord{{Exchange: "mx.mailinator.com", Priority: 10}}})
	result := v.Verify(context.Background(), "user@mailinator.com", testOptsNoSMTP())
	if !result.IsDisposable {
		t.Fatal("expected mailinator.com to be flagged disposable")
	}
	if result.IsValid() {
		t.Fatal("a disposable domain must never be valid")
	}
}

func TestVerifyNoMXSkipsSMTPStage(t *testing.T) {
	v := newTestVerifier(&stubResolver{mxErr: errNoRecordsStub{}})
	result := v.Verify(context.Background(), "user@example.com", testOptsNoSMTP())
	if result.HasMX {
		t.Fatal("expected has_mx=false when the resolver reports an error")
	}
	if result.SMTPSkipped || result.SMTPOk {
		t.Fatal("expected the SMTP stage not to run when has_mx is false")
	}
	if result.IsValid() {
		t.Fatal("a domain with no MX records must never be valid")
	}
	found := false
	for _, e := range result.Errors {
		if e == "No MX records found for domain" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected 'No MX records found for domain' in errors, got %v", result.Errors)
	}
}

func TestVerifyRoleAccountDetected(t *testing.T) {
	v := newTestVerifier(&stubResolver{mx: []models.MXRecord{{Exchange: "mx.example.com", Priority: 10}}})
	result := v.Verify(context.Background(), "admin@example.com", testOptsNoSMTP())
	if !result.IsRoleAccount {
		t.Fatal("expected admin@ to be flagged as a role account")
	}
}

func TestVerifyTypoSuggestion(t *testing.T) {
	v := newTestVerifier(&stubResolver{mx: []models.MXRecord{{Exchange: "mx.gmail.com", Priority: 10}}})
	result := v.Verify(context.Background(), "user@gmial.com", testOptsNoSMTP())
	if result.Suggestion != "user@gmail.com" {
		t.Fatalf("expected a corrected suggestion, got %q", result.Suggestion)
	}
}

func TestVerifySpamTrapLocalPartHeuristic(t *testing.T) {
	v := newTestVerifier(&stubResolver{mx: []models.MXRecord{{Exchange: "mx.example.com", Priority: 10}}})
	result := v.Verify(context.Background(), "xkqzjbpt@example.com", testOptsNoSMTP())
	if !result.IsSpamTrap {
		t.Fatal("expected an all-consonant 8+ char local part to be flagged as a spam trap")
	}
}

func TestVerifySkippedSMTPStillValid(t *testing.T) {
	v := newTestVerifier(&stubResolver{mx: []models.MXRecord{{Exchange: "mx.example.com", Priority: 10}}})
	result := v.Verify(context.Background(), "user@example.com", testOptsNoSMTP())
	if !result.SMTPSkipped {
		t.Fatal("expected smtp_skipped=true when CheckSMTP is disabled")
	}
	if !result.IsValid() {
		t.Fatal("disabling the SMTP check must not force is_valid=false")
	}
	if result.IsLive() {
		t.Fatal("a skipped SMTP probe must never count as live")
	}
}

func TestVerifyUsesCacheOnSecondCall(t *testing.T) {
	v := newTestVerifier(&stubResolver{mx: []models.MXRecord{{Exchange: "mx.example.com", Priority: 10}}})
	opts := testOptsNoSMTP()

	first := v.Verify(context.Background(), "user@example.com", opts)
	if first.FromCache {
		t.Fatal("first call must not be served from cache")
	}

	second := v.Verify(context.Background(), "user@example.com", opts)
	if !second.FromCache {
		t.Fatal("second call must be served from cache")
	}

	// The cached copy must reproduce every field the live call computed,
	// not just the cheap flags — assert.Equal on the nested Details
	// struct catches a partial-field cache bug a single bool check would miss.
	// The JSON round trip keeps the timestamp's instant but drops its
	// monotonic clock reading, so the timestamp is compared with Equal.
	if !first.Timestamp.Equal(second.Timestamp) {
		t.Fatalf("cached timestamp %v differs from live %v", second.Timestamp, first.Timestamp)
	}
	second.Timestamp = first.Timestamp
	first.FromCache = true
	assert.Equal(t, first, second)
}

func TestVerifyTimeoutAppendsErrorTag(t *testing.T) {
	v := newTestVerifier(&stubResolver{mxHang: true})
	opts := testOptsNoSMTP()
	opts.TimeoutMS = 20

	result := v.Verify(context.Background(), "user@example.com", opts)
	found := false
	for _, e := range result.Errors {
		if e == "timeout" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected 'timeout' in errors, got %v", result.Errors)
	}
}

type errNoRecordsStub struct{}

func (errNoRecordsStub) Error() string { return "dns: no records" }
