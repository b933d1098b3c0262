// Package ratelimit implements points-per-duration budgets over durable
// timed counters, with optional extended lockouts and insurance failover.
//
// A Limiter owns one Policy and one durable BucketStore. When the durable
// store is unreachable it transparently retries the same operation against
// an in-memory insurance store, so a Redis-class outage degrades protection
// to per-process counting instead of disabling it or crashing the service.
//
// Usage:
//
//	lim, _ := ratelimit.New(ratelimit.Config{
//	    Policy: models.Policy{Points: 300, Duration: time.Minute, KeyPrefix: models.KeyPrefixGeneral},
//	    Store:  bucket.NewRedis(client),
//	})
//	rec, err := lim.Consume(ctx, clientIP, 30)
//	var exceeded *models.RateLimitError
//	if errors.As(err, &exceeded) {
//	    // Return 429 with exceeded.RetryAfterSeconds()
//	}
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"snapfeed/internal/ratelimit/metrics"
	"snapfeed/internal/ratelimit/models"
)

// BucketStore is the durable, time-windowed counter storage behind a
// Limiter. Increment must be atomic per key across concurrent callers.
// Connectivity failures must wrap models.ErrStoreUnavailable.
type BucketStore interface {
	Increment(ctx context.Context, key string, cost int, window time.Duration) (consumed int, ttl time.Duration, err error)
	Get(ctx context.Context, key string) (consumed int, ttl time.Duration, ok bool, err error)
	Delete(ctx context.Context, key string) (bool, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// Config assembles a Limiter. Store is required; InsuranceStore is optional
// and, when set, serves every operation the durable store fails with
// ErrStoreUnavailable. InsuranceBlockOnConsumed forces a synthetic block in
// the insurance store once that many points were consumed during an outage,
// so degraded counting still locks aggressive callers out.
type Config struct {
	Policy                   models.Policy
	Store                    BucketStore
	InsuranceStore           BucketStore
	InsuranceBlockOnConsumed int
	InsuranceBlockDuration   time.Duration
	Logger                   *slog.Logger
	Metrics                  *metrics.Metrics
}

// Limiter enforces one Policy over a durable store with insurance failover.
// It is stateless beyond configuration and safe for concurrent use.
type Limiter struct {
	policy                   models.Policy
	store                    BucketStore
	insurance                BucketStore
	insuranceBlockOnConsumed int
	insuranceBlockDuration   time.Duration
	logger                   *slog.Logger
	metrics                  *metrics.Metrics
}

// New validates the configuration and constructs a Limiter. Pure
// construction: no I/O happens until the first operation.
func New(cfg Config) (*Limiter, error) {
	if err := cfg.Policy.Validate(); err != nil {
		return nil, err
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("rate limiter %q: bucket store is required", cfg.Policy.KeyPrefix)
	}
	if cfg.InsuranceBlockOnConsumed < 0 || cfg.InsuranceBlockDuration < 0 {
		return nil, fmt.Errorf("rate limiter %q: insurance thresholds cannot be negative", cfg.Policy.KeyPrefix)
	}
	if cfg.InsuranceBlockOnConsumed > 0 && cfg.InsuranceStore == nil {
		return nil, fmt.Errorf("rate limiter %q: insurance block threshold requires an insurance store", cfg.Policy.KeyPrefix)
	}

	return &Limiter{
		policy:                   cfg.Policy,
		store:                    cfg.Store,
		insurance:                cfg.InsuranceStore,
		insuranceBlockOnConsumed: cfg.InsuranceBlockOnConsumed,
		insuranceBlockDuration:   cfg.InsuranceBlockDuration,
		logger:                   cfg.Logger,
		metrics:                  cfg.Metrics,
	}, nil
}

// Policy returns the limiter's immutable policy.
func (l *Limiter) Policy() models.Policy {
	return l.policy
}

// Consume adds points to the subject's counter and returns the resulting
// record. When the cumulative count exceeds the policy budget the call
// fails with *models.RateLimitError carrying the wait time; this is the
// intended rejection signal, not a fault. When both the durable and the
// insurance store fail, the error propagates: the limiter fails closed.
func (l *Limiter) Consume(ctx context.Context, subject string, points int) (*models.ConsumptionRecord, error) {
	if points <= 0 {
		points = 1
	}
	key := models.Key(l.policy.KeyPrefix, subject)

	consumed, ttl, err := l.store.Increment(ctx, key, points, l.policy.Duration)
	if err != nil {
		if !errors.Is(err, models.ErrStoreUnavailable) || l.insurance == nil {
			return nil, err
		}
		l.warnFailover(ctx, "consume", err)
		l.metrics.IncrementFailovers(l.policy.KeyPrefix)
		return l.consumeInsurance(ctx, key, points)
	}
	return l.finishConsume(ctx, l.store, key, points, consumed, ttl)
}

func (l *Limiter) consumeInsurance(ctx context.Context, key string, points int) (*models.ConsumptionRecord, error) {
	consumed, ttl, err := l.insurance.Increment(ctx, key, points, l.policy.Duration)
	if err != nil {
		return nil, err
	}

	if l.insuranceBlockOnConsumed > 0 && consumed >= l.insuranceBlockOnConsumed {
		ms := ttl.Milliseconds()
		if l.insuranceBlockDuration > 0 {
			if err := l.insurance.Expire(ctx, key, l.insuranceBlockDuration); err == nil {
				ms = l.insuranceBlockDuration.Milliseconds()
			}
		}
		l.metrics.IncrementExceeded(l.policy.KeyPrefix)
		return nil, &models.RateLimitError{ConsumedPoints: consumed, MsBeforeNext: ms}
	}
	return l.finishConsume(ctx, l.insurance, key, points, consumed, ttl)
}

func (l *Limiter) finishConsume(ctx context.Context, store BucketStore, key string, cost, consumed int, ttl time.Duration) (*models.ConsumptionRecord, error) {
	if consumed > l.policy.Points {
		ms := ttl.Milliseconds()
		if l.policy.BlockDuration > 0 {
			// Every rejected consume re-arms the block window, extending the
			// lockout independent of the original window.
			if err := store.Expire(ctx, key, l.policy.BlockDuration); err != nil {
				l.warnFailover(ctx, "extend block", err)
			} else {
				ms = l.policy.BlockDuration.Milliseconds()
			}
		}
		l.metrics.IncrementExceeded(l.policy.KeyPrefix)
		return nil, &models.RateLimitError{ConsumedPoints: consumed, MsBeforeNext: ms}
	}

	if consumed == l.policy.Points && l.policy.BlockDuration > 0 {
		// Spending the last point exhausts the budget: the lockout window
		// starts now, replacing the remainder of the counting window. Without
		// this, callers rejected by a read-side check would wait out the full
		// window instead of the configured block.
		if err := store.Expire(ctx, key, l.policy.BlockDuration); err != nil {
			l.warnFailover(ctx, "arm block", err)
		} else {
			ttl = l.policy.BlockDuration
		}
	}

	return &models.ConsumptionRecord{
		ConsumedPoints:  consumed,
		RemainingPoints: l.policy.Points - consumed,
		MsBeforeNext:    ttl.Milliseconds(),
		IsFirstInWindow: consumed == cost,
	}, nil
}

// Get reads the subject's current record without consuming, falling back to
// the insurance store on connectivity failure. Returns nil when no record
// exists.
func (l *Limiter) Get(ctx context.Context, subject string) (*models.ConsumptionRecord, error) {
	key := models.Key(l.policy.KeyPrefix, subject)

	consumed, ttl, ok, err := l.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, models.ErrStoreUnavailable) || l.insurance == nil {
			return nil, err
		}
		l.warnFailover(ctx, "get", err)
		l.metrics.IncrementFailovers(l.policy.KeyPrefix)
		consumed, ttl, ok, err = l.insurance.Get(ctx, key)
		if err != nil {
			return nil, err
		}
	}
	if !ok {
		return nil, nil
	}

	remaining := l.policy.Points - consumed
	if remaining < 0 {
		remaining = 0
	}
	return &models.ConsumptionRecord{
		ConsumedPoints:  consumed,
		RemainingPoints: remaining,
		MsBeforeNext:    ttl.Milliseconds(),
	}, nil
}

// Delete removes the subject's record from both stores, best-effort. It
// reports whether any record was removed and never fails the caller.
func (l *Limiter) Delete(ctx context.Context, subject string) bool {
	key := models.Key(l.policy.KeyPrefix, subject)

	removed, err := l.store.Delete(ctx, key)
	if err != nil {
		l.warnFailover(ctx, "delete", err)
	}
	if l.insurance != nil {
		insuranceRemoved, err := l.insurance.Delete(ctx, key)
		if err != nil {
			l.warnFailover(ctx, "insurance delete", err)
		}
		removed = removed || insuranceRemoved
	}
	return removed
}

func (l *Limiter) warnFailover(ctx context.Context, op string, err error) {
	if l.logger == nil {
		return
	}
	l.logger.WarnContext(ctx, "rate limit store failure",
		"limiter", l.policy.KeyPrefix,
		"op", op,
		"error", err,
	)
}
