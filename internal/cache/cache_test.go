package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemStoreGetSetMiss(t *testing.T) {
	s := NewMemStore(nil)
	ctx := context.Background()

	if _, ok := s.Get(ctx, "missing"); ok {
		t.Fatal("expected miss on unset key")
	}

	s.Set(ctx, "k", []byte("v"), time.Minute)
	val, ok := s.Get(ctx, "k")
	if !ok || string(val) != "v" {
		t.Fatalf("expected hit with value 'v', got %q ok=%v", val, ok)
	}
}

func TestMemStoreExpiry(t *testing.T) {
	s := NewMemStore(nil)
	ctx := context.Background()

	s.Set(ctx, "k", []byte("v"), time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	if _, ok := s.Get(ctx, "k"); ok {
		t.Fatal("expected expired entry to miss")
	}
	if s.Exists(ctx, "k") {
		t.Fatal("expected Exists to report false for an expired key")
	}
}

func TestMemStoreIncrCreatesWithTTL(t *testing.T) {
	s := NewMemStore(nil)
	ctx := context.Background()

	n, err := s.Incr(ctx, "counter", time.Minute)
	if err != nil || n != 1 {
		t.Fatalf("expected first Incr to return 1, nil; got %d, %v", n, err)
	}

	n, err = s.Incr(ctx, "counter", time.Minute)
	if err != nil || n != 2 {
		t.Fatalf("expected second Incr to return 2, nil; got %d, %v", n, err)
	}
}

func TestMemStoreIncrNeverDecreases(t *testing.T) {
	s := NewMemStore(nil)
	ctx := context.Background()

	var last int64
	for i := 0; i < 10; i++ {
		n, err := s.Incr(ctx, "counter", time.Hour)
		if err != nil {
			t.Fatalf("Incr error: %v", err)
		}
		if n < last {
			t.Fatalf("counter decreased: %d -> %d", last, n)
		}
		last = n
	}
}

func TestMemStoreSweepRemovesExpired(t *testing.T) {
	s := NewMemStore(nil)
	ctx := context.Background()

	s.Set(ctx, "dead", []byte("v"), time.Millisecond)
	s.Set(ctx, "alive", []byte("v"), time.Hour)
	time.Sleep(5 * time.Millisecond)

	s.Sweep()

	if s.Len() != 1 {
		t.Fatalf("expected 1 surviving entry after sweep, got %d", s.Len())
	}
	if !s.Exists(ctx, "alive") {
		t.Fatal("expected 'alive' to survive the sweep")
	}
}

func TestMemStorePeekDoesNotIncrement(t *testing.T) {
	s := NewMemStore(nil)
	ctx := context.Background()

	if _, ok := s.Peek(ctx, "counter"); ok {
		t.Fatal("expected miss peeking an unset counter")
	}

	if _, err := s.Incr(ctx, "counter", time.Minute); err != nil {
		t.Fatalf("Incr error: %v", err)
	}

	n, ok := s.Peek(ctx, "counter")
	if !ok || n != 1 {
		t.Fatalf("expected peek to see 1, got %d ok=%v", n, ok)
	}
	n, ok = s.Peek(ctx, "counter")
	if !ok || n != 1 {
		t.Fatalf("expected peek to be non-mutating, got %d ok=%v", n, ok)
	}
}

func TestMemStoreSetTTLNoopOnMissingKey(t *testing.T) {
	s := NewMemStore(nil)
	ctx := context.Background()

	s.SetTTL(ctx, "missing", time.Minute)
	if s.Exists(ctx, "missing") {
		t.Fatal("SetTTL must not create a key that does not exist")
	}
}
