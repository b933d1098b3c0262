package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrStoreUnavailable marks connectivity failures from a bucket store.
// Limiters match it with errors.Is to decide on insurance failover.
var ErrStoreUnavailable = errors.New("rate limit store unavailable")

// Policy is the immutable configuration of one Limiter: a budget of Points
// consumable within Duration, with an optional extended lockout of
// BlockDuration once the budget is exceeded. KeyPrefix namespaces all keys
// of the Limiter so limiters never share buckets.
type Policy struct {
	Points        int
	Duration      time.Duration
	BlockDuration time.Duration
	KeyPrefix     string
}

// Validate enforces policy invariants.
func (p Policy) Validate() error {
	if p.KeyPrefix == "" {
		return fmt.Errorf("rate limit policy: key prefix is required")
	}
	if p.Points <= 0 {
		return fmt.Errorf("rate limit policy %q: points must be positive", p.KeyPrefix)
	}
	if p.Duration <= 0 {
		return fmt.Errorf("rate limit policy %q: duration must be positive", p.KeyPrefix)
	}
	if p.BlockDuration < 0 {
		return fmt.Errorf("rate limit policy %q: block duration cannot be negative", p.KeyPrefix)
	}
	return nil
}

// ConsumptionRecord is the per-key state returned by consume and get calls.
// The record itself lives in the backing store, addressed only by key; the
// Limiter holds no long-lived copy.
type ConsumptionRecord struct {
	ConsumedPoints  int
	RemainingPoints int
	MsBeforeNext    int64
	IsFirstInWindow bool
}

// RateLimitError signals that a consume call pushed the cumulative count
// over the policy budget. It is an expected operational rejection, not a
// fault: callers turn it into a 429 with retry guidance.
type RateLimitError struct {
	ConsumedPoints int
	MsBeforeNext   int64
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded: %d points consumed, retry in %dms", e.ConsumedPoints, e.MsBeforeNext)
}

// RetryAfterSeconds converts the remaining wait into whole seconds for the
// Retry-After header, rounding up and never returning less than one.
func (e *RateLimitError) RetryAfterSeconds() int {
	secs := int((e.MsBeforeNext + 999) / 1000)
	if secs < 1 {
		return 1
	}
	return secs
}
