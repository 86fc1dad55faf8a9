package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) *RateLimitStore {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRateLimitStore(client, SlidingWindowConfig{KeyPrefix: "ratelimit:test", TTL: time.Minute})
}

func TestRateLimitStoreCountsWithinWindow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 3; i++ {
		if err := store.RecordAttempt(ctx, "203.0.113.7", now.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("record attempt: %v", err)
		}
	}

	count, err := store.CountAttempts(ctx, "203.0.113.7", time.Minute, now.Add(3*time.Second))
	if err != nil {
		t.Fatalf("count attempts: %v", err)
	}
	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}

	count, err = store.CountAttempts(ctx, "other", time.Minute, now)
	if err != nil {
		t.Fatalf("count attempts: %v", err)
	}
	if count != 0 {
		t.Fatalf("count for untouched identifier = %d, want 0", count)
	}
}

func TestRateLimitStoreTrimDropsOldAttempts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	if err := store.RecordAttempt(ctx, "u1", now.Add(-2*time.Minute)); err != nil {
		t.Fatalf("record attempt: %v", err)
	}
	if err := store.RecordAttempt(ctx, "u1", now); err != nil {
		t.Fatalf("record attempt: %v", err)
	}

	if err := store.TrimWindow(ctx, "u1", time.Minute, now); err != nil {
		t.Fatalf("trim window: %v", err)
	}

	count, err := store.CountAttempts(ctx, "u1", time.Hour, now)
	if err != nil {
		t.Fatalf("count attempts: %v", err)
	}
	if count != 1 {
		t.Fatalf("count after trim = %d, want 1", count)
	}
}

func TestRateLimitStoreOldestAttempt(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	_, found, err := store.OldestAttempt(ctx, "u2", time.Minute, now)
	if err != nil {
		t.Fatalf("oldest attempt: %v", err)
	}
	if found {
		t.Fatal("found attempt in empty window")
	}

	first := now.Add(-30 * time.Second)
	if err := store.RecordAttempt(ctx, "u2", first); err != nil {
		t.Fatalf("record attempt: %v", err)
	}
	if err := store.RecordAttempt(ctx, "u2", now); err != nil {
		t.Fatalf("record attempt: %v", err)
	}

	oldest, found, err := store.OldestAttempt(ctx, "u2", time.Minute, now)
	if err != nil {
		t.Fatalf("oldest attempt: %v", err)
	}
	if !found {
		t.Fatal("expected an attempt inside the window")
	}
	if !oldest.Equal(time.Unix(0, first.UnixNano())) {
		t.Fatalf("oldest = %v, want %v", oldest, first)
	}
}

func TestRateLimitStoreRejectsBadWindow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.CountAttempts(ctx, "u3", 0, time.Now()); err != ErrWindowNotPositive {
		t.Fatalf("err = %v, want ErrWindowNotPositive", err)
	}
	if err := store.TrimWindow(ctx, "u3", -time.Second, time.Now()); err != ErrWindowNotPositive {
		t.Fatalf("err = %v, want ErrWindowNotPositive", err)
	}
}
