package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"snapfeed/internal/auth/models"
	userStore "snapfeed/internal/auth/store/user"
	"snapfeed/internal/platform/metrics"
	dErrors "snapfeed/pkg/domain-errors"
)

// UserStore defines the persistence interface for user data.
// Error Contract: All Find methods return user.ErrNotFound when the entity doesn't exist.
type UserStore interface {
	Save(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

// SessionStore defines the persistence interface for session data.
// Error Contract: All Find methods return session.ErrNotFound when the entity doesn't exist.
type SessionStore interface {
	Save(ctx context.Context, sess *models.Session) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Session, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// LoginGuard wraps one login attempt with brute-force protection. PreCheck
// runs before credential verification; the outcome calls run after.
type LoginGuard interface {
	PreCheck(ctx context.Context, username, ip string) error
	RecordFailure(ctx context.Context, username, ip string, userExists bool) error
	RecordSuccess(ctx context.Context, username, ip string)
}

// TokenIssuer signs and parses the session cookie token.
type TokenIssuer interface {
	Issue(sessionID uuid.UUID, userID uuid.UUID, expiresAt time.Time) (string, error)
	Parse(token string) (sessionID uuid.UUID, err error)
}

const defaultSessionTTL = 30 * 24 * time.Hour

// Service implements registration, authentication, and session lifecycle.
type Service struct {
	users      UserStore
	sessions   SessionStore
	guard      LoginGuard
	tokens     TokenIssuer
	sessionTTL time.Duration
	bcryptCost int
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// Option configures a Service instance.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithSessionTTL configures the time-to-live duration for sessions.
// If not set or set to zero/negative, defaults to 30 days.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

// WithBcryptCost overrides the password hashing cost, used by tests to
// avoid slow hashing.
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		if cost >= bcrypt.MinCost {
			s.bcryptCost = cost
		}
	}
}

// New constructs the auth service.
func New(users UserStore, sessions SessionStore, guard LoginGuard, tokens TokenIssuer, opts ...Option) (*Service, error) {
	if users == nil {
		return nil, fmt.Errorf("user store is required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if guard == nil {
		return nil, fmt.Errorf("login guard is required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token issuer is required")
	}

	svc := &Service{
		users:      users,
		sessions:   sessions,
		guard:      guard,
		tokens:     tokens,
		sessionTTL: defaultSessionTTL,
		bcryptCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Register creates a new user with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	if len(password) < 8 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "password must be at least 8 characters")
	}
	if _, err := s.users.FindByUsername(ctx, username); err == nil {
		return nil, dErrors.New(dErrors.CodeConflict, "username already taken")
	} else if !errors.Is(err, userStore.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check username")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	u, err := models.NewUser(username, email, string(hash))
	if err != nil {
		return nil, err
	}
	if err := s.users.Save(ctx, u); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save user")
	}

	if s.metrics != nil {
		s.metrics.UsersCreated.Inc()
	}
	return u, nil
}

// Authenticate verifies credentials. Bad credentials return
// authorized=false, never an error; the returned user is non-nil whenever
// the username exists, so callers can weight brute-force penalties.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.User, bool, error) {
	u, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, userStore.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return u, false, nil
	}
	return u, true, nil
}
