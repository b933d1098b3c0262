package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"snapfeed/internal/auth/service"
	sessionStore "snapfeed/internal/auth/store/session"
	userStore "snapfeed/internal/auth/store/user"
	"snapfeed/internal/auth/token"
	"snapfeed/internal/ratelimit"
	"snapfeed/internal/ratelimit/loginguard"
	rlmodels "snapfeed/internal/ratelimit/models"
	"snapfeed/internal/ratelimit/store/bucket"
	dErrors "snapfeed/pkg/domain-errors"
)

const (
	testIP        = "1.2.3.4"
	testUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

type AuthServiceSuite struct {
	suite.Suite
	ctx context.Context
	svc *service.Service
}

func (s *AuthServiceSuite) SetupTest() {
	s.ctx = context.Background()

	byIP, err := ratelimit.New(ratelimit.Config{
		Policy: rlmodels.Policy{
			Points:        100,
			Duration:      24 * time.Hour,
			BlockDuration: 24 * time.Hour,
			KeyPrefix:     rlmodels.KeyPrefixLoginIP,
		},
		Store: bucket.New(),
	})
	s.Require().NoError(err)

	byUserIP, err := ratelimit.New(ratelimit.Config{
		Policy: rlmodels.Policy{
			Points:        10,
			Duration:      90 * 24 * time.Hour,
			BlockDuration: time.Hour,
			KeyPrefix:     rlmodels.KeyPrefixLoginUserIP,
		},
		Store: bucket.New(),
	})
	s.Require().NoError(err)

	guard, err := loginguard.New(byIP, byUserIP)
	s.Require().NoError(err)

	s.svc, err = service.New(
		userStore.NewInMemory(),
		sessionStore.NewInMemory(),
		guard,
		token.New("test-signing-key"),
		service.WithBcryptCost(bcrypt.MinCost),
	)
	s.Require().NoError(err)
}

func (s *AuthServiceSuite) register(username string) {
	_, err := s.svc.Register(s.ctx, username, username+"@example.com", "correct-horse")
	s.Require().NoError(err)
}

func (s *AuthServiceSuite) TestRegister() {
	s.T().Run("creates a user", func(t *testing.T) {
		u, err := s.svc.Register(s.ctx, "alice", "alice@example.com", "correct-horse")
		require.NoError(t, err)
		assert.Equal(t, "alice", u.Username)
		assert.NotEqual(t, "correct-horse", u.PasswordHash)
	})

	s.T().Run("rejects a duplicate username", func(t *testing.T) {
		_, err := s.svc.Register(s.ctx, "alice", "other@example.com", "correct-horse")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.T().Run("rejects a short password", func(t *testing.T) {
		_, err := s.svc.Register(s.ctx, "bob", "bob@example.com", "short")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *AuthServiceSuite) TestLogin_Success() {
	s.register("alice")

	result, err := s.svc.Login(s.ctx, "alice", "correct-horse", testIP, testUserAgent)
	s.Require().NoError(err)
	s.Require().NotNil(result.Session)
	s.NotEmpty(result.Token)
	s.True(result.Session.Authorized)
	s.NotEmpty(result.Session.DeviceDisplayName)

	// The issued token resolves back to the stored session.
	sess, err := s.svc.ResolveSession(s.ctx, result.Token)
	s.Require().NoError(err)
	s.Require().NotNil(sess)
	s.Equal(result.Session.ID, sess.ID)
}

func (s *AuthServiceSuite) TestLogin_WrongPassword() {
	s.register("alice")

	_, err := s.svc.Login(s.ctx, "alice", "wrong", testIP, testUserAgent)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *AuthServiceSuite) TestLogin_UnknownUsernameIsIndistinguishable() {
	s.register("alice")

	_, wrongPass := s.svc.Login(s.ctx, "alice", "wrong", testIP, testUserAgent)
	_, unknownUser := s.svc.Login(s.ctx, "ghost", "wrong", testIP, testUserAgent)

	s.Require().Error(wrongPass)
	s.Require().Error(unknownUser)
	s.Equal(wrongPass.Error(), unknownUser.Error())
}

func (s *AuthServiceSuite) TestLogin_LockoutAfterConsecutiveFailures() {
	s.register("alice")

	for i := 0; i < 10; i++ {
		_, err := s.svc.Login(s.ctx, "alice", "wrong", testIP, testUserAgent)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized), "attempt %d should fail as unauthorized", i+1)
	}

	// The eleventh attempt is rejected without checking the password, even
	// with correct credentials.
	_, err := s.svc.Login(s.ctx, "alice", "correct-horse", testIP, testUserAgent)
	var exceeded *rlmodels.RateLimitError
	s.Require().ErrorAs(err, &exceeded)
	s.Positive(exceeded.RetryAfterSeconds())
}

func (s *AuthServiceSuite) TestLogin_SuccessResetsFailureCount() {
	s.register("alice")

	for i := 0; i < 9; i++ {
		_, err := s.svc.Login(s.ctx, "alice", "wrong", testIP, testUserAgent)
		s.Require().Error(err)
	}

	_, err := s.svc.Login(s.ctx, "alice", "correct-horse", testIP, testUserAgent)
	s.Require().NoError(err)

	// The budget is fresh again: ten more failures fit before lockout.
	for i := 0; i < 10; i++ {
		_, err := s.svc.Login(s.ctx, "alice", "wrong", testIP, testUserAgent)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	}

	_, err = s.svc.Login(s.ctx, "alice", "correct-horse", testIP, testUserAgent)
	var exceeded *rlmodels.RateLimitError
	s.Require().ErrorAs(err, &exceeded)
}

func (s *AuthServiceSuite) TestLogin_RequiresCredentials() {
	_, err := s.svc.Login(s.ctx, "", "password", testIP, testUserAgent)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = s.svc.Login(s.ctx, "alice", "", testIP, testUserAgent)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *AuthServiceSuite) TestLogout() {
	s.register("alice")
	result, err := s.svc.Login(s.ctx, "alice", "correct-horse", testIP, testUserAgent)
	s.Require().NoError(err)

	s.Require().NoError(s.svc.Logout(s.ctx, result.Session.ID))

	sess, err := s.svc.ResolveSession(s.ctx, result.Token)
	s.Require().NoError(err)
	s.Nil(sess)

	// Logging out again is not an error.
	s.Require().NoError(s.svc.Logout(s.ctx, result.Session.ID))
}

func (s *AuthServiceSuite) TestResolveSession_InvalidToken() {
	sess, err := s.svc.ResolveSession(s.ctx, "not-a-token")
	s.Require().NoError(err)
	s.Nil(sess)
}

func TestAuthServiceSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceSuite))
}
