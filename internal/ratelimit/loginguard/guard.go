// Package loginguard combines two limiters around the authentication
// attempt: a slow per-IP daily budget and a consecutive-failure budget per
// username+IP pair. The pre-check runs before any credential verification
// so an active lockout never costs a password-hash comparison.
package loginguard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"snapfeed/internal/ratelimit"
	"snapfeed/internal/ratelimit/metrics"
	"snapfeed/internal/ratelimit/models"
)

// Guard wraps one login attempt. Construct once at startup and share.
type Guard struct {
	byIP     *ratelimit.Limiter
	byUserIP *ratelimit.Limiter
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// Option configures a Guard instance.
type Option func(*Guard)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Guard) {
		g.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Guard) {
		g.metrics = m
	}
}

// New constructs a Guard over the per-IP and per-username+IP limiters.
func New(byIP, byUserIP *ratelimit.Limiter, opts ...Option) (*Guard, error) {
	if byIP == nil {
		return nil, fmt.Errorf("login guard: per-IP limiter is required")
	}
	if byUserIP == nil {
		return nil, fmt.Errorf("login guard: per-username+IP limiter is required")
	}

	g := &Guard{byIP: byIP, byUserIP: byUserIP}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// PreCheck reads both limiters concurrently and rejects with
// *models.RateLimitError when either budget is already exhausted, carrying
// the larger of the two wait times. No credentials are checked during an
// active lockout.
func (g *Guard) PreCheck(ctx context.Context, username, ip string) error {
	var (
		ipRec, userRec *models.ConsumptionRecord
		ipErr, userErr error
	)

	var eg errgroup.Group
	eg.Go(func() error {
		ipRec, ipErr = g.byIP.Get(ctx, ip)
		return nil
	})
	eg.Go(func() error {
		userRec, userErr = g.byUserIP.Get(ctx, models.LoginUserIPSubject(username, ip))
		return nil
	})
	_ = eg.Wait()

	if ipErr != nil {
		return ipErr
	}
	if userErr != nil {
		return userErr
	}

	// The per-IP count can only pass the budget through a rejected consume
	// (which still increments), hence the strict comparison. The
	// consecutive-failure budget locks out as soon as it is spent.
	ipBlocked := ipRec != nil && ipRec.ConsumedPoints > g.byIP.Policy().Points
	userBlocked := userRec != nil && userRec.ConsumedPoints >= g.byUserIP.Policy().Points
	if !ipBlocked && !userBlocked {
		return nil
	}

	exceeded := &models.RateLimitError{}
	if ipBlocked {
		exceeded.ConsumedPoints = ipRec.ConsumedPoints
		exceeded.MsBeforeNext = ipRec.MsBeforeNext
	}
	if userBlocked && userRec.MsBeforeNext > exceeded.MsBeforeNext {
		exceeded.ConsumedPoints = userRec.ConsumedPoints
		exceeded.MsBeforeNext = userRec.MsBeforeNext
	}

	g.metrics.IncrementLoginLockouts()
	g.logLockout(ctx, username, ip, exceeded)
	return exceeded
}

// RecordFailure charges a failed attempt. Unknown usernames only penalize
// the source IP: tracking a username+IP pair for a name that doesn't exist
// would let probes distinguish real accounts by their throttling behavior.
// Known usernames with a wrong password penalize both limiters
// concurrently. A *models.RateLimitError from either consume is returned so
// the caller answers 429 instead of 401.
func (g *Guard) RecordFailure(ctx context.Context, username, ip string, userExists bool) error {
	g.metrics.IncrementLoginFailures()

	if !userExists {
		_, err := g.byIP.Consume(ctx, ip, 1)
		return err
	}

	var ipErr, userErr error
	var eg errgroup.Group
	eg.Go(func() error {
		_, ipErr = g.byIP.Consume(ctx, ip, 1)
		return nil
	})
	eg.Go(func() error {
		_, userErr = g.byUserIP.Consume(ctx, models.LoginUserIPSubject(username, ip), 1)
		return nil
	})
	_ = eg.Wait()

	return combineConsumeErrors(ipErr, userErr)
}

// RecordSuccess clears the consecutive-failure record for the username+IP
// pair after a successful login. Best-effort: a limiter store hiccup never
// fails a login that already verified.
func (g *Guard) RecordSuccess(ctx context.Context, username, ip string) {
	subject := models.LoginUserIPSubject(username, ip)

	rec, err := g.byUserIP.Get(ctx, subject)
	if err != nil {
		if g.logger != nil {
			g.logger.WarnContext(ctx, "failed to read consecutive-failure record on login success",
				"error", err,
			)
		}
		return
	}
	if rec != nil && rec.ConsumedPoints > 0 {
		g.byUserIP.Delete(ctx, subject)
	}
}

// combineConsumeErrors picks the rejection with the longer wait when both
// consumes were rejected; any non-rate-limit error wins outright.
func combineConsumeErrors(ipErr, userErr error) error {
	var ipExceeded, userExceeded *models.RateLimitError
	ipIsLimit := errors.As(ipErr, &ipExceeded)
	userIsLimit := errors.As(userErr, &userExceeded)

	if ipErr != nil && !ipIsLimit {
		return ipErr
	}
	if userErr != nil && !userIsLimit {
		return userErr
	}

	switch {
	case ipIsLimit && userIsLimit:
		if userExceeded.MsBeforeNext > ipExceeded.MsBeforeNext {
			return userExceeded
		}
		return ipExceeded
	case ipIsLimit:
		return ipExceeded
	case userIsLimit:
		return userExceeded
	}
	return nil
}

func (g *Guard) logLockout(ctx context.Context, username, ip string, exceeded *models.RateLimitError) {
	if g.logger == nil {
		return
	}
	g.logger.InfoContext(ctx, "login lockout active",
		"username", username,
		"ip", ip,
		"retry_after_seconds", exceeded.RetryAfterSeconds(),
	)
}
