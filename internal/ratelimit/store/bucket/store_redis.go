package bucket

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"snapfeed/internal/ratelimit/models"
)

// RedisBucketStore persists rate limit counters in Redis. Atomicity per key
// comes from Redis single-key commands (INCRBY), which is what makes the
// counters safe to share across server instances.
type RedisBucketStore struct {
	client redis.Cmdable
}

// NewRedis constructs a Redis-backed bucket store.
func NewRedis(client redis.Cmdable) *RedisBucketStore {
	return &RedisBucketStore{client: client}
}

// Increment atomically adds cost points to the counter for key. A key
// without a TTL (freshly created by the INCRBY) gets the window TTL set.
// Connectivity failures wrap models.ErrStoreUnavailable so the Limiter can
// fail over to its insurance store.
func (s *RedisBucketStore) Increment(ctx context.Context, key string, cost int, window time.Duration) (int, time.Duration, error) {
	pipe := s.client.TxPipeline()
	incr := pipe.IncrBy(ctx, key, int64(cost))
	pttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, unavailable("increment", err)
	}

	consumed := int(incr.Val())
	ttl := pttl.Val()
	if ttl < 0 {
		// Key was created by this INCRBY (or had no expiry): start the window.
		if err := s.client.PExpire(ctx, key, window).Err(); err != nil {
			return 0, 0, unavailable("set window expiry", err)
		}
		ttl = window
	}
	return consumed, ttl, nil
}

// Get reads the counter and its remaining TTL without mutating either.
func (s *RedisBucketStore) Get(ctx context.Context, key string) (int, time.Duration, bool, error) {
	pipe := s.client.TxPipeline()
	get := pipe.Get(ctx, key)
	pttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, 0, false, nil
		}
		return 0, 0, false, unavailable("get", err)
	}

	consumed, err := get.Int()
	if err != nil {
		return 0, 0, false, unavailable("parse counter", err)
	}
	ttl := pttl.Val()
	if ttl < 0 {
		ttl = 0
	}
	return consumed, ttl, true, nil
}

// Delete removes the record, reporting whether a key existed.
func (s *RedisBucketStore) Delete(ctx context.Context, key string) (bool, error) {
	removed, err := s.client.Del(ctx, key).Result()
	if err != nil {
		return false, unavailable("delete", err)
	}
	return removed > 0, nil
}

// Expire resets the TTL for an existing record, used to extend lockouts.
func (s *RedisBucketStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := s.client.PExpire(ctx, key, ttl).Err(); err != nil {
		return unavailable("expire", err)
	}
	return nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: redis %s: %v", models.ErrStoreUnavailable, op, err)
}
