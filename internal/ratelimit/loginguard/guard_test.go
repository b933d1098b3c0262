package loginguard_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snapfeed/internal/ratelimit"
	"snapfeed/internal/ratelimit/loginguard"
	"snapfeed/internal/ratelimit/models"
	"snapfeed/internal/ratelimit/store/bucket"
)

const (
	testUser = "alice"
	testIP   = "1.2.3.4"
)

type guardFixture struct {
	guard    *loginguard.Guard
	byIP     *ratelimit.Limiter
	byUserIP *ratelimit.Limiter
}

// newGuard builds a guard over in-memory limiters: ipPoints per day for the
// source IP, userPoints consecutive failures per username+IP pair.
func newGuard(t *testing.T, ipPoints, userPoints int) *guardFixture {
	t.Helper()

	byIP, err := ratelimit.New(ratelimit.Config{
		Policy: models.Policy{
			Points:        ipPoints,
			Duration:      24 * time.Hour,
			BlockDuration: 24 * time.Hour,
			KeyPrefix:     models.KeyPrefixLoginIP,
		},
		Store: bucket.New(),
	})
	require.NoError(t, err)

	byUserIP, err := ratelimit.New(ratelimit.Config{
		Policy: models.Policy{
			Points:        userPoints,
			Duration:      90 * 24 * time.Hour,
			BlockDuration: time.Hour,
			KeyPrefix:     models.KeyPrefixLoginUserIP,
		},
		Store: bucket.New(),
	})
	require.NoError(t, err)

	guard, err := loginguard.New(byIP, byUserIP)
	require.NoError(t, err)

	return &guardFixture{guard: guard, byIP: byIP, byUserIP: byUserIP}
}

func TestPreCheck_AllowsFreshCaller(t *testing.T) {
	f := newGuard(t, 100, 10)
	require.NoError(t, f.guard.PreCheck(context.Background(), testUser, testIP))
}

func TestConsecutiveFailureLockout(t *testing.T) {
	ctx := context.Background()
	f := newGuard(t, 100, 10)

	// Ten wrong passwords spend the consecutive-failure budget without
	// tripping a limiter error on the way.
	for i := 0; i < 10; i++ {
		require.NoError(t, f.guard.PreCheck(ctx, testUser, testIP))
		require.NoError(t, f.guard.RecordFailure(ctx, testUser, testIP, true))
	}

	// The eleventh attempt is rejected before any credential check.
	err := f.guard.PreCheck(ctx, testUser, testIP)
	var exceeded *models.RateLimitError
	require.ErrorAs(t, err, &exceeded)
	assert.Equal(t, 10, exceeded.ConsumedPoints)
	assert.Positive(t, exceeded.MsBeforeNext)
}

func TestLockoutWaitIsBlockDurationNotWindow(t *testing.T) {
	ctx := context.Background()
	f := newGuard(t, 100, 10)

	for i := 0; i < 10; i++ {
		require.NoError(t, f.guard.RecordFailure(ctx, testUser, testIP, true))
	}

	// The consecutive-failure policy counts over 90 days but locks out for
	// one hour. The reported wait must be the hour, not the remaining
	// 90-day window.
	err := f.guard.PreCheck(ctx, testUser, testIP)
	var exceeded *models.RateLimitError
	require.ErrorAs(t, err, &exceeded)
	assert.Positive(t, exceeded.MsBeforeNext)
	assert.LessOrEqual(t, exceeded.MsBeforeNext, time.Hour.Milliseconds())
}

func TestLockoutIsScopedToUsernameAndIP(t *testing.T) {
	ctx := context.Background()
	f := newGuard(t, 100, 10)

	for i := 0; i < 10; i++ {
		require.NoError(t, f.guard.RecordFailure(ctx, testUser, testIP, true))
	}

	require.Error(t, f.guard.PreCheck(ctx, testUser, testIP))

	// Same username from another IP, and another username from the same
	// IP, are unaffected.
	require.NoError(t, f.guard.PreCheck(ctx, testUser, "5.6.7.8"))
	require.NoError(t, f.guard.PreCheck(ctx, "bob", testIP))
}

func TestRecordFailure_UnknownUsernamePenalizesOnlyIP(t *testing.T) {
	ctx := context.Background()
	f := newGuard(t, 100, 10)

	for i := 0; i < 30; i++ {
		require.NoError(t, f.guard.RecordFailure(ctx, "ghost", testIP, false))
	}

	// No username+IP record exists: probing a nonexistent account must not
	// create per-account throttling state an attacker could observe.
	rec, err := f.byUserIP.Get(ctx, models.LoginUserIPSubject("ghost", testIP))
	require.NoError(t, err)
	assert.Nil(t, rec)

	rec, err = f.byIP.Get(ctx, testIP)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 30, rec.ConsumedPoints)

	// Well under the daily IP budget, so attempts still go through.
	require.NoError(t, f.guard.PreCheck(ctx, "ghost", testIP))
}

func TestPerIPLockout(t *testing.T) {
	ctx := context.Background()
	f := newGuard(t, 3, 10)

	for i := 0; i < 3; i++ {
		require.NoError(t, f.guard.RecordFailure(ctx, "ghost", testIP, false))
	}

	// Spending the budget exactly does not lock out; passing it does.
	require.NoError(t, f.guard.PreCheck(ctx, "ghost", testIP))

	err := f.guard.RecordFailure(ctx, "ghost", testIP, false)
	var exceeded *models.RateLimitError
	require.ErrorAs(t, err, &exceeded)

	err = f.guard.PreCheck(ctx, "ghost", testIP)
	require.ErrorAs(t, err, &exceeded)
	assert.Equal(t, 4, exceeded.ConsumedPoints)
}

func TestPreCheck_ReportsLongerWait(t *testing.T) {
	ctx := context.Background()
	f := newGuard(t, 1, 2)

	// Three known-user failures lock both limiters: the IP budget is
	// passed (consumed 3 of 1) and the consecutive-failure budget is
	// spent (consumed 3 of 2).
	for i := 0; i < 3; i++ {
		_ = f.guard.RecordFailure(ctx, testUser, testIP, true)
	}

	ipRec, err := f.byIP.Get(ctx, testIP)
	require.NoError(t, err)
	require.NotNil(t, ipRec)
	userRec, err := f.byUserIP.Get(ctx, models.LoginUserIPSubject(testUser, testIP))
	require.NoError(t, err)
	require.NotNil(t, userRec)

	err = f.guard.PreCheck(ctx, testUser, testIP)
	var exceeded *models.RateLimitError
	require.ErrorAs(t, err, &exceeded)

	longest := ipRec.MsBeforeNext
	if userRec.MsBeforeNext > longest {
		longest = userRec.MsBeforeNext
	}
	assert.InDelta(t, longest, exceeded.MsBeforeNext, 1000)
}

func TestRecordSuccess_ClearsConsecutiveFailures(t *testing.T) {
	ctx := context.Background()
	f := newGuard(t, 100, 10)

	for i := 0; i < 9; i++ {
		require.NoError(t, f.guard.RecordFailure(ctx, testUser, testIP, true))
	}

	f.guard.RecordSuccess(ctx, testUser, testIP)

	rec, err := f.byUserIP.Get(ctx, models.LoginUserIPSubject(testUser, testIP))
	require.NoError(t, err)
	assert.Nil(t, rec)

	// The slow per-IP counter is deliberately not reset.
	rec, err = f.byIP.Get(ctx, testIP)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 9, rec.ConsumedPoints)

	// A fresh run of failures is needed to lock out again.
	for i := 0; i < 10; i++ {
		require.NoError(t, f.guard.RecordFailure(ctx, testUser, testIP, true))
	}
	require.Error(t, f.guard.PreCheck(ctx, testUser, testIP))
}

type brokenStore struct{}

func (brokenStore) Increment(ctx context.Context, key string, cost int, window time.Duration) (int, time.Duration, error) {
	return 0, 0, fmt.Errorf("%w: connection refused", models.ErrStoreUnavailable)
}

func (brokenStore) Get(ctx context.Context, key string) (int, time.Duration, bool, error) {
	return 0, 0, false, fmt.Errorf("%w: connection refused", models.ErrStoreUnavailable)
}

func (brokenStore) Delete(ctx context.Context, key string) (bool, error) {
	return false, fmt.Errorf("%w: connection refused", models.ErrStoreUnavailable)
}

func (brokenStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return fmt.Errorf("%w: connection refused", models.ErrStoreUnavailable)
}

func TestGuardFailsClosedWhenStoresUnavailable(t *testing.T) {
	ctx := context.Background()

	policy := models.Policy{Points: 10, Duration: time.Hour, KeyPrefix: models.KeyPrefixLoginIP}
	byIP, err := ratelimit.New(ratelimit.Config{Policy: policy, Store: brokenStore{}})
	require.NoError(t, err)
	policy.KeyPrefix = models.KeyPrefixLoginUserIP
	byUserIP, err := ratelimit.New(ratelimit.Config{Policy: policy, Store: brokenStore{}})
	require.NoError(t, err)

	guard, err := loginguard.New(byIP, byUserIP)
	require.NoError(t, err)

	err = guard.PreCheck(ctx, testUser, testIP)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)

	var exceeded *models.RateLimitError
	assert.False(t, errors.As(err, &exceeded))

	err = guard.RecordFailure(ctx, testUser, testIP, true)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)
}
