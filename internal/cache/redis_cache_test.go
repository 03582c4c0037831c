package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T, ttl time.Duration) (*miniredis.Miniredis, *RedisCache) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = rdb.Close() })

	return mr, NewRedisCache(rdb, ttl)
}

func TestRedisCache_StoreSent_Success(t *testing.T) {
	t.Parallel()

	mr, cache := newTestCache(t, 10*time.Second)

	ctx := context.Background()
	sentAt := time.Date(2026, 2, 2, 18, 0, 0, 0, time.UTC)

	if err := cache.StoreSent(ctx, 42, 200, sentAt); err != nil {
		t.Fatalf("StoreSent() error: %v", err)
	}

	const key = "tweet:42"
	if !mr.Exists(key) {
		t.Fatalf("expected key %q to exist", key)
	}
	if ttl := mr.TTL(key); ttl <= 0 {
		t.Fatalf("expected TTL to be set, got %v", ttl)
	}

	raw, err := mr.Get(key)
	if err != nil {
		t.Fatalf("failed to get key %q: %v", key, err)
	}

	var got Delivery
	if err := json.Unmarshal([]byte(raw), &got); err != nil {
		t.Fatalf("failed to unmarshal value: %v", err)
	}
	if got.OutcomeCode != 200 {
		t.Fatalf("expected OutcomeCode 200, got %d", got.OutcomeCode)
	}
	if !got.SentAt.Equal(sentAt) {
		t.Fatalf("expected SentAt %v, got %v", sentAt, got.SentAt)
	}
}

func TestRedisCache_StoreSent_OverwritesExistingValue(t *testing.T) {
	t.Parallel()

	_, cache := newTestCache(t, time.Minute)
	ctx := context.Background()

	if err := cache.StoreSent(ctx, 1, 200, time.Now()); err != nil {
		t.Fatalf("first StoreSent() error: %v", err)
	}
	if err := cache.StoreSent(ctx, 1, 201, time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("second StoreSent() error: %v", err)
	}

	got, err := cache.Lookup(ctx, 1)
	if err != nil {
		t.Fatalf("Lookup() error: %v", err)
	}
	if got.OutcomeCode != 201 {
		t.Fatalf("expected overwritten OutcomeCode 201, got %d", got.OutcomeCode)
	}
}

func TestRedisCache_Lookup_Missing(t *testing.T) {
	t.Parallel()

	_, cache := newTestCache(t, time.Minute)

	_, err := cache.Lookup(context.Background(), 99)
	if !errors.Is(err, ErrNotCached) {
		t.Fatalf("expected ErrNotCached, got %v", err)
	}
}

func TestRedisCache_Expires(t *testing.T) {
	t.Parallel()

	mr, cache := newTestCache(t, time.Second)
	ctx := context.Background()

	if err := cache.StoreSent(ctx, 5, 200, time.Now()); err != nil {
		t.Fatalf("StoreSent() error: %v", err)
	}
	mr.FastForward(2 * time.Second)

	if _, err := cache.Lookup(ctx, 5); !errors.Is(err, ErrNotCached) {
		t.Fatalf("expected entry to expire, got %v", err)
	}
}

func TestRedisCache_StoreSent_ContextCanceled(t *testing.T) {
	t.Parallel()

	_, cache := newTestCache(t, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := cache.StoreSent(ctx, 1, 200, time.Now()); err == nil {
		t.Fatalf("expected error due to canceled context, got nil")
	}
}

func TestNoop(t *testing.T) {
	t.Parallel()

	var c DeliveryCache = Noop{}
	if err := c.StoreSent(context.Background(), 1, 200, time.Now()); err != nil {
		t.Fatalf("Noop.StoreSent() error: %v", err)
	}
	if _, err := c.Lookup(context.Background(), 1); !errors.Is(err, ErrNotCached) {
		t.Fatalf("expected Noop.Lookup() to report ErrNotCached, got %v", err)
	}
}
