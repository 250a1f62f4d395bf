package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestDisabledLimiterAdmitsEverything(t *testing.T) {
	l := NewLimiter(Config{Enabled: false, RequestsPerMinute: 1})
	for i := 0; i < 100; i++ {
		if !l.Allow() {
			t.Fatal("disabled limiter rejected a request")
		}
	}
	if err := l.Wait(context.Background()); err != nil {
		t.Fatalf("disabled Wait returned %v", err)
	}
}

func TestLimiterThrottlesBeyondBurst(t *testing.T) {
	l := NewLimiter(Config{Enabled: true, RequestsPerMinute: 6})

	// The burst admits a classify+narrate pair immediately.
	if !l.Allow() || !l.Allow() {
		t.Fatal("burst should admit two immediate requests")
	}
	if l.Allow() {
		t.Error("third immediate request should be throttled")
	}
	if l.Reserve() <= 0 {
		t.Error("expected a positive delay after the burst is spent")
	}
}

func TestWaitHonorsCancellation(t *testing.T) {
	l := NewLimiter(Config{Enabled: true, RequestsPerMinute: 1})
	l.Allow()
	l.Allow() // drain the burst

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx); err == nil {
		t.Error("Wait should fail once the context expires")
	}
}

func TestZeroRateFallsBackToDefault(t *testing.T) {
	l := NewLimiter(Config{Enabled: true})
	if !l.Allow() {
		t.Error("defaulted limiter should admit an immediate request")
	}
}
