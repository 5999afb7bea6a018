package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func TestMemoryLimiterFixedWindow(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	limiter := NewMemoryLimiter(clock.Now, 10)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, err := limiter.Allow(ctx, "10.0.0.1", 3, time.Minute)
		if err != nil {
			t.Fatalf("allow %d: %v", i, err)
		}
		if !d.Allowed || d.Remaining != 2-i {
			t.Fatalf("request %d: unexpected decision %+v", i, d)
		}
	}
	d, err := limiter.Allow(ctx, "10.0.0.1", 3, time.Minute)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if d.Allowed || d.Remaining != 0 {
		t.Fatalf("expected fourth request to be limited, got %+v", d)
	}
	if !d.ResetAt.Equal(clock.now.Add(time.Minute)) {
		t.Fatalf("unexpected reset %v", d.ResetAt)
	}

	other, err := limiter.Allow(ctx, "10.0.0.2", 3, time.Minute)
	if err != nil || !other.Allowed {
		t.Fatalf("keys must be independent: %+v %v", other, err)
	}

	clock.now = clock.now.Add(time.Minute)
	d, err = limiter.Allow(ctx, "10.0.0.1", 3, time.Minute)
	if err != nil || !d.Allowed || d.Remaining != 2 {
		t.Fatalf("expected a fresh window, got %+v %v", d, err)
	}
}

func TestMemoryLimiterDisabledLimit(t *testing.T) {
	limiter := NewMemoryLimiter(nil, 1)
	for i := 0; i < 5; i++ {
		d, err := limiter.Allow(context.Background(), "k", 0, time.Minute)
		if err != nil || !d.Allowed {
			t.Fatalf("limit 0 must allow, got %+v %v", d, err)
		}
	}
}

func TestMemoryLimiterCapacity(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	limiter := NewMemoryLimiter(clock.Now, 2)
	ctx := context.Background()

	for _, key := range []string{"a", "b"} {
		if _, err := limiter.Allow(ctx, key, 1, time.Minute); err != nil {
			t.Fatalf("allow %s: %v", key, err)
		}
	}
	if _, err := limiter.Allow(ctx, "c", 1, time.Minute); !errors.Is(err, errCapacityExceeded) {
		t.Fatalf("expected capacity error, got %v", err)
	}

	clock.now = clock.now.Add(2 * time.Minute)
	if _, err := limiter.Allow(ctx, "c", 1, time.Minute); err != nil {
		t.Fatalf("expired windows should be evicted: %v", err)
	}
}
