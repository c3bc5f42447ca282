package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_SpacesAcquires(t *testing.T) {
	interval := 50 * time.Millisecond
	limiter := New(interval)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := limiter.Acquire(ctx); err != nil {
			t.Fatalf("Acquire() error = %v", err)
		}
	}
	elapsed := time.Since(start)

	// First acquire is free, the next two wait one interval each.
	if want := 2 * interval; elapsed < want {
		t.Errorf("elapsed = %v, want >= %v", elapsed, want)
	}
}

func TestLimiter_ZeroIntervalDoesNotWait(t *testing.T) {
	limiter := New(0)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 100; i++ {
		if err := limiter.Acquire(ctx); err != nil {
			t.Fatalf("Acquire() error = %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("elapsed = %v, zero interval should not block", elapsed)
	}
}

func TestLimiter_ContextCancelled(t *testing.T) {
	limiter := New(time.Minute)

	// Consume the initial token.
	if err := limiter.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := limiter.Acquire(ctx); err == nil {
		t.Error("Acquire() should fail when the context expires before the interval")
	}
}

func TestLimiter_Interval(t *testing.T) {
	if got := New(time.Second).Interval(); got != time.Second {
		t.Errorf("Interval() = %v, want 1s", got)
	}
	if got := New(-1).Interval(); got != 0 {
		t.Errorf("Interval() = %v, want 0 for disabled limiter", got)
	}
}
