package models

import (
	"time"

	"github.com/google/uuid"

	dErrors "snapfeed/pkg/domain-errors"
)

// User is an account holder. PasswordHash is a bcrypt hash; the clear
// password never leaves the auth service.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Session is the server-side login state. Authorized flips to true only
// after credential verification; the rate-limit middleware reads it to
// decide identity keying and cost weighting.
type Session struct {
	ID                uuid.UUID `json:"id"`
	UserID            uuid.UUID `json:"user_id"`
	Authorized        bool      `json:"authorized"`
	DeviceDisplayName string    `json:"device_display_name"`
	CreatedAt         time.Time `json:"created_at"`
	ExpiresAt         time.Time `json:"expires_at"`
}

// NewUser creates a User with domain invariant validation.
func NewUser(username, email, passwordHash string) (*User, error) {
	if username == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "username cannot be empty")
	}
	if email == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "email cannot be empty")
	}
	if passwordHash == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "password hash cannot be empty")
	}

	return &User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}, nil
}

// NewSession creates an authorized Session for a verified user.
func NewSession(userID uuid.UUID, deviceDisplayName string, ttl time.Duration) (*Session, error) {
	if userID == uuid.Nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "user id cannot be empty")
	}
	if ttl <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "session ttl must be positive")
	}

	now := time.Now()
	return &Session{
		ID:                uuid.New(),
		UserID:            userID,
		Authorized:        true,
		DeviceDisplayName: deviceDisplayName,
		CreatedAt:         now,
		ExpiresAt:         now.Add(ttl),
	}, nil
}

// IsExpired reports whether the session passed its expiry.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}
