package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"snapfeed/internal/auth/device"
	"snapfeed/internal/auth/models"
	sessionStore "snapfeed/internal/auth/store/session"
	rlmodels "snapfeed/internal/ratelimit/models"
	dErrors "snapfeed/pkg/domain-errors"
)

// LoginResult carries the session and its signed cookie token.
type LoginResult struct {
	Session *models.Session
	Token   string
}

// Login runs one authentication attempt under brute-force protection:
// guard pre-check, credential verification, penalty or reset recording,
// then session issue. A *rlmodels.RateLimitError from the guard propagates
// unchanged so the transport layer answers 429 instead of 401.
func (s *Service) Login(ctx context.Context, username, password, ip, userAgent string) (*LoginResult, error) {
	if username == "" || password == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "username and password are required")
	}

	if err := s.guard.PreCheck(ctx, username, ip); err != nil {
		return nil, err
	}

	u, authorized, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}

	if !authorized {
		if s.metrics != nil {
			s.metrics.AuthFailures.Inc()
		}
		if err := s.guard.RecordFailure(ctx, username, ip, u != nil); err != nil {
			var exceeded *rlmodels.RateLimitError
			if errors.As(err, &exceeded) {
				return nil, exceeded
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record login failure")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid username or password")
	}

	s.guard.RecordSuccess(ctx, username, ip)

	sess, err := models.NewSession(u.ID, device.ParseUserAgent(userAgent), s.sessionTTL)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save session")
	}

	token, err := s.tokens.Issue(sess.ID, u.ID, sess.ExpiresAt)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue session token")
	}

	if s.metrics != nil {
		s.metrics.ActiveSessions.Inc()
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "login succeeded",
			"user_id", u.ID,
			"session_id", sess.ID,
		)
	}

	return &LoginResult{Session: sess, Token: token}, nil
}

// Logout deletes the session. Unknown sessions are not an error.
func (s *Service) Logout(ctx context.Context, sessionID uuid.UUID) error {
	if err := s.sessions.Delete(ctx, sessionID); err != nil && !errors.Is(err, sessionStore.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete session")
	}
	if s.metrics != nil {
		s.metrics.ActiveSessions.Dec()
	}
	return nil
}

// ResolveSession parses a session token and loads the backing session.
// Expired or unknown sessions return nil without error; the caller treats
// the request as anonymous.
func (s *Service) ResolveSession(ctx context.Context, token string) (*models.Session, error) {
	sessionID, err := s.tokens.Parse(token)
	if err != nil {
		return nil, nil
	}
	sess, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sessionStore.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load session")
	}
	if sess.IsExpired() {
		return nil, nil
	}
	return sess, nil
}
