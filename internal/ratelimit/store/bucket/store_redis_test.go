package bucket

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snapfeed/internal/ratelimit/models"
)

func TestRedisBucketStore_Integration(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Skipping integration test: Redis not available (%v)", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedis(client)

	t.Run("IncrementStartsWindowAndAccumulates", func(t *testing.T) {
		key := fmt.Sprintf("rl_it_incr_%d", time.Now().UnixNano())

		consumed, ttl, err := store.Increment(ctx, key, 1, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, 1, consumed)
		assert.Equal(t, time.Minute, ttl)

		consumed, ttl, err = store.Increment(ctx, key, 3, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, 4, consumed)
		// Second increment reads the already-running window.
		assert.Greater(t, ttl, time.Duration(0))
		assert.LessOrEqual(t, ttl, time.Minute)
	})

	t.Run("GetMissingKeyIsNotFound", func(t *testing.T) {
		key := fmt.Sprintf("rl_it_miss_%d", time.Now().UnixNano())

		consumed, ttl, found, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.False(t, found)
		assert.Zero(t, consumed)
		assert.Zero(t, ttl)
	})

	t.Run("GetReadsWithoutMutating", func(t *testing.T) {
		key := fmt.Sprintf("rl_it_get_%d", time.Now().UnixNano())

		_, _, err := store.Increment(ctx, key, 2, time.Minute)
		require.NoError(t, err)

		for i := 0; i < 2; i++ {
			consumed, ttl, found, err := store.Get(ctx, key)
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, 2, consumed)
			assert.Greater(t, ttl, time.Duration(0))
		}
	})

	t.Run("DeleteReportsExistence", func(t *testing.T) {
		key := fmt.Sprintf("rl_it_del_%d", time.Now().UnixNano())

		_, _, err := store.Increment(ctx, key, 1, time.Minute)
		require.NoError(t, err)

		existed, err := store.Delete(ctx, key)
		require.NoError(t, err)
		assert.True(t, existed)

		existed, err = store.Delete(ctx, key)
		require.NoError(t, err)
		assert.False(t, existed)

		_, _, found, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("ExpireResetsTTL", func(t *testing.T) {
		key := fmt.Sprintf("rl_it_exp_%d", time.Now().UnixNano())

		_, _, err := store.Increment(ctx, key, 1, time.Minute)
		require.NoError(t, err)

		require.NoError(t, store.Expire(ctx, key, time.Hour))

		_, ttl, found, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Greater(t, ttl, time.Minute)
		assert.LessOrEqual(t, ttl, time.Hour)
	})
}

// An unreachable server must surface as models.ErrStoreUnavailable so the
// limiter fails over to its insurance store instead of returning a raw
// transport error.
func TestRedisBucketStore_UnreachableWrapsStoreUnavailable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedis(client)
	ctx := context.Background()

	_, _, err := store.Increment(ctx, "rl_down", 1, time.Minute)
	require.ErrorIs(t, err, models.ErrStoreUnavailable)

	_, _, _, err = store.Get(ctx, "rl_down")
	require.ErrorIs(t, err, models.ErrStoreUnavailable)

	_, err = store.Delete(ctx, "rl_down")
	require.ErrorIs(t, err, models.ErrStoreUnavailable)

	err = store.Expire(ctx, "rl_down", time.Minute)
	require.ErrorIs(t, err, models.ErrStoreUnavailable)
}
