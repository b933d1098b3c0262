package bucket

import (
	"context"
	"sync"
	"time"
)

// InMemoryBucketStore keeps timed counters in process memory. It backs unit
// tests and serves as the insurance store when Redis is unreachable: weaker
// than the durable store (per-process, unsynchronized across instances) but
// never failing on connectivity.
type InMemoryBucketStore struct {
	mu      sync.Mutex
	buckets map[string]*entry
}

type entry struct {
	points    int
	expiresAt time.Time
}

// New creates an empty in-memory bucket store.
func New() *InMemoryBucketStore {
	return &InMemoryBucketStore{
		buckets: make(map[string]*entry),
	}
}

// Increment adds cost points to the counter for key, initializing it with
// the window TTL when absent or expired. Expiry is lazy: checked on access.
func (s *InMemoryBucketStore) Increment(ctx context.Context, key string, cost int, window time.Duration) (int, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	e, ok := s.buckets[key]
	if !ok || !e.expiresAt.After(now) {
		e = &entry{points: cost, expiresAt: now.Add(window)}
		s.buckets[key] = e
		return e.points, window, nil
	}

	e.points += cost
	return e.points, e.expiresAt.Sub(now), nil
}

// Get reads the counter without mutating it. ok is false when no live
// record exists for the key.
func (s *InMemoryBucketStore) Get(ctx context.Context, key string) (int, time.Duration, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	e, ok := s.buckets[key]
	if !ok {
		return 0, 0, false, nil
	}
	if !e.expiresAt.After(now) {
		delete(s.buckets, key)
		return 0, 0, false, nil
	}
	return e.points, e.expiresAt.Sub(now), true, nil
}

// Delete removes the record for key, reporting whether anything was removed.
func (s *InMemoryBucketStore) Delete(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.buckets[key]
	if !ok {
		return false, nil
	}
	if !e.expiresAt.After(time.Now()) {
		delete(s.buckets, key)
		return false, nil
	}
	delete(s.buckets, key)
	return true, nil
}

// Expire resets the TTL for an existing record, used to extend lockouts.
func (s *InMemoryBucketStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.buckets[key]; ok {
		e.expiresAt = time.Now().Add(ttl)
	}
	return nil
}
