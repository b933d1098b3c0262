package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"snapfeed/internal/auth/models"
)

const sessionKeyPrefix = "session:"

// sessionJSON is the JSON-serializable representation of a Session.
type sessionJSON struct {
	ID                string `json:"id"`
	UserID            string `json:"user_id"`
	Authorized        bool   `json:"authorized"`
	DeviceDisplayName string `json:"device_display_name"`
	CreatedAt         int64  `json:"created_at"`  // Unix nano
	ExpiresAt         int64  `json:"expires_at"`  // Unix nano
}

// RedisSessionStore persists sessions in Redis with TTL matching expiry.
type RedisSessionStore struct {
	client redis.Cmdable
}

// NewRedis constructs a Redis-backed session store.
func NewRedis(client redis.Cmdable) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

func (s *RedisSessionStore) Save(ctx context.Context, sess *models.Session) error {
	j := sessionJSON{
		ID:                sess.ID.String(),
		UserID:            sess.UserID.String(),
		Authorized:        sess.Authorized,
		DeviceDisplayName: sess.DeviceDisplayName,
		CreatedAt:         sess.CreatedAt.UnixNano(),
		ExpiresAt:         sess.ExpiresAt.UnixNano(),
	}
	payload, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session %s already expired", sess.ID)
	}
	if err := s.client.Set(ctx, sessionKeyPrefix+j.ID, payload, ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	payload, err := s.client.Get(ctx, sessionKeyPrefix+id.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find session: %w", err)
	}

	var j sessionJSON
	if err := json.Unmarshal(payload, &j); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return sessionFromJSON(&j)
}

func (s *RedisSessionStore) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.client.Del(ctx, sessionKeyPrefix+id.String()).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func sessionFromJSON(j *sessionJSON) (*models.Session, error) {
	sessionID, err := uuid.Parse(j.ID)
	if err != nil {
		return nil, fmt.Errorf("parse session id: %w", err)
	}
	userID, err := uuid.Parse(j.UserID)
	if err != nil {
		return nil, fmt.Errorf("parse user id: %w", err)
	}

	return &models.Session{
		ID:                sessionID,
		UserID:            userID,
		Authorized:        j.Authorized,
		DeviceDisplayName: j.DeviceDisplayName,
		CreatedAt:         time.Unix(0, j.CreatedAt),
		ExpiresAt:         time.Unix(0, j.ExpiresAt),
	}, nil
}
