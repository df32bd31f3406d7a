package dns

import (
	"context"
	"errors"
	"net"
	"testing"

	"verifyengine/internal/cache"
)

func TestClassifyNXDOMAIN(t *testing.T) {
	err := &net.DNSError{Err: "no such host", IsNotFound: true}
	if classify(err) != ErrDomainNotFound {
		t.Fatalf("expected ErrDomainNotFound, got %v", classify(err))
	}
}

func TestClassifyTimeout(t *testing.T) {
	err := &net.DNSError{Err: "i/o timeout", IsTimeout: true}
	if classify(err) != ErrTimeout {
		t.Fatalf("expected ErrTimeout, got %v", classify(err))
	}
}

func TestClassifyOtherIsTransient(t *testing.T) {
	err := &net.DNSError{Err: "server misbehaving"}
	if classify(err) != ErrTransient {
		t.Fatalf("expected ErrTransient, got %v", classify(err))
	}
}

func TestClassifyNonDNSErrorIsTransient(t *testing.T) {
	if classify(errors.New("boom")) != ErrTransient {
		t.Fatal("expected non-DNSError to classify as transient")
	}
}

func TestWithAlternateSkipsRetryOnNotFound(t *testing.T) {
	r := New(Config{UseAlternate: true}, cache.NewMemStore(nil), nil)

	attempts := 0
	err := r.withAlternate(context.Background(), "nope.invalid", func(ctx context.Context, res *net.Resolver) error {
		attempts++
		return &net.DNSError{Err: "no such host", IsNotFound: true}
	})

	if !errors.Is(err, ErrDomainNotFound) {
		t.Fatalf("expected ErrDomainNotFound, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected exactly one attempt for NXDOMAIN (no secondary retry), got %d", attempts)
	}
}

func TestWithAlternateRetriesOnTimeout(t *testing.T) {
	r := New(Config{UseAlternate: true, Secondary: []string{"10.255.255.1:53"}}, cache.NewMemStore(nil), nil)

	attempts := 0
	err := r.withAlternate(context.Background(), "slow.invalid", func(ctx context.Context, res *net.Resolver) error {
		attempts++
		return &net.DNSError{Err: "i/o timeout", IsTimeout: true}
	})

	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout after exhausting secondaries, got %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected primary + 1 secondary attempt, got %d", attempts)
	}
}

func TestWithAlternateNoRetryWhenDisabled(t *testing.T) {
	r := New(Config{UseAlternate: false}, cache.NewMemStore(nil), nil)

	attempts := 0
	_ = r.withAlternate(context.Background(), "slow.invalid", func(ctx context.Context, res *net.Resolver) error {
		attempts++
		return &net.DNSError{Err: "i/o timeout", IsTimeout: true}
	})

	if attempts != 1 {
		t.Fatalf("expected no secondary retry when UseAlternate is false, got %d attempts", attempts)
	}
}

func TestMXCachesNegativeNoRecords(t *testing.T) {
	// This test exercises the cache-write path for a stable negative
	// outcome without performing a real network lookup: it seeds the
	// store directly, the way a prior MX() call would have left it.
	store := cache.NewMemStore(nil)
	r := New(Config{}, store, nil)

	payload := `{"err":"dns: no records"}`
	store.Set(context.Background(), "dns:mx:example.invalid", []byte(payload), cache.TTLMXRecord)

	_, err := r.MX(context.Background(), "example.invalid")
	if !errors.Is(err, ErrNoRecords) {
		t.Fatalf("expected cached ErrNoRecords, got %v", err)
	}
}

func TestSOADelegatesToFirstNS(t *testing.T) {
	// SOA has no dedicated cache path; this documents the delegation
	// contract (first NS answer) without touching the network.
	r := New(Config{}, cache.NewMemStore(nil), nil)
	_, err := r.SOA(context.Background(), "")
	if err == nil {
		t.Fatal("expected an error resolving NS for an empty domain")
	}
}

func TestToVerrorsKindMapsPermanentVsTransient(t *testing.T) {
	if k := ToVerrorsKind(ErrDomainNotFound); k != "permanent" {
		t.Fatalf("expected permanent, got %s", k)
	}
	if k := ToVerrorsKind(ErrTimeout); k != "transient" {
		t.Fatalf("expected transient, got %s", k)
	}
}
