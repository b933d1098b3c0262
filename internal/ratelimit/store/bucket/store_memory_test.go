package bucket

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryBucketStore_Increment(t *testing.T) {
	ctx := context.Background()

	t.Run("initializes with the window TTL", func(t *testing.T) {
		s := New()
		consumed, ttl, err := s.Increment(ctx, "k", 2, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, 2, consumed)
		assert.Equal(t, time.Minute, ttl)
	})

	t.Run("accumulates within the window", func(t *testing.T) {
		s := New()
		_, _, err := s.Increment(ctx, "k", 1, time.Minute)
		require.NoError(t, err)

		consumed, ttl, err := s.Increment(ctx, "k", 3, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, 4, consumed)
		assert.LessOrEqual(t, ttl, time.Minute)
		assert.Positive(t, ttl)
	})

	t.Run("restarts after expiry", func(t *testing.T) {
		s := New()
		_, _, err := s.Increment(ctx, "k", 5, 20*time.Millisecond)
		require.NoError(t, err)

		time.Sleep(40 * time.Millisecond)

		consumed, _, err := s.Increment(ctx, "k", 1, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, 1, consumed)
	})

	t.Run("keys are independent", func(t *testing.T) {
		s := New()
		_, _, err := s.Increment(ctx, "a", 5, time.Minute)
		require.NoError(t, err)

		consumed, _, err := s.Increment(ctx, "b", 1, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, 1, consumed)
	})
}

func TestInMemoryBucketStore_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("misses on unknown key", func(t *testing.T) {
		s := New()
		_, _, ok, err := s.Get(ctx, "k")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("reads without mutating", func(t *testing.T) {
		s := New()
		_, _, err := s.Increment(ctx, "k", 3, time.Minute)
		require.NoError(t, err)

		consumed, ttl, ok, err := s.Get(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 3, consumed)
		assert.Positive(t, ttl)

		consumed, _, _, err = s.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, 3, consumed)
	})

	t.Run("misses on expired key", func(t *testing.T) {
		s := New()
		_, _, err := s.Increment(ctx, "k", 3, 20*time.Millisecond)
		require.NoError(t, err)

		time.Sleep(40 * time.Millisecond)

		_, _, ok, err := s.Get(ctx, "k")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestInMemoryBucketStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := New()

	removed, err := s.Delete(ctx, "k")
	require.NoError(t, err)
	assert.False(t, removed)

	_, _, err = s.Increment(ctx, "k", 1, time.Minute)
	require.NoError(t, err)

	removed, err = s.Delete(ctx, "k")
	require.NoError(t, err)
	assert.True(t, removed)

	_, _, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInMemoryBucketStore_Expire(t *testing.T) {
	ctx := context.Background()
	s := New()

	// Expire on an absent key is a no-op.
	require.NoError(t, s.Expire(ctx, "k", time.Hour))
	_, _, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = s.Increment(ctx, "k", 1, 20*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, s.Expire(ctx, "k", time.Hour))

	time.Sleep(40 * time.Millisecond)

	// Still alive: the reset TTL outlasts the original window.
	consumed, ttl, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, consumed)
	assert.Greater(t, ttl, 30*time.Minute)
}
