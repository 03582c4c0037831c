package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func key(recordID int64) string {
	return fmt.Sprintf("tweet:%d", recordID)
}

func (c *RedisCache) StoreSent(ctx context.Context, recordID int64, outcomeCode int, sentAt time.Time) error {
	b, err := json.Marshal(Delivery{
		OutcomeCode: outcomeCode,
		SentAt:      sentAt.UTC(),
	})
	if err != nil {
		return err
	}

	return c.rdb.Set(ctx, key(recordID), b, c.ttl).Err()
}

func (c *RedisCache) Lookup(ctx context.Context, recordID int64) (Delivery, error) {
	raw, err := c.rdb.Get(ctx, key(recordID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Delivery{}, ErrNotCached
	}
	if err != nil {
		return Delivery{}, err
	}

	var d Delivery
	if err := json.Unmarshal(raw, &d); err != nil {
		return Delivery{}, fmt.Errorf("decode cached delivery: %w", err)
	}
	return d, nil
}
