package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestAllowBurstThenRefill(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := New(2, 3)
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if !l.Allow("1.2.3.4") {
			t.Fatalf("request %d should pass within burst", i)
		}
	}
	if l.Allow("1.2.3.4") {
		t.Fatalf("burst exhausted, expected deny")
	}
	if !l.Allow("5.6.7.8") {
		t.Fatalf("keys must be independent")
	}

	now = now.Add(500 * time.Millisecond)
	if !l.Allow("1.2.3.4") {
		t.Fatalf("expected one token after refill")
	}
}

func TestPruneDropsIdleKeys(t *testing.T) {
	now := time.Unix(0, 0)
	l := New(1, 1)
	l.now = func() time.Time { return now }

	l.Allow("a")
	now = now.Add(time.Minute)
	l.Allow("b")

	if n := l.Prune(30 * time.Second); n != 1 || l.Len() != 1 {
		t.Fatalf("expected to drop only a, dropped %d, left %d", n, l.Len())
	}
}

func TestWaitRespectsContext(t *testing.T) {
	l := New(0.001, 1)
	if err := l.Wait(context.Background(), "yahoo"); err != nil {
		t.Fatalf("first wait should pass: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx, "yahoo"); err == nil {
		t.Fatalf("expected wait to fail on short deadline")
	}
}
