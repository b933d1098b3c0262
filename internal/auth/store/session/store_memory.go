package session

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"snapfeed/internal/auth/models"
)

// InMemorySessionStore keeps sessions in process memory, for tests and
// local development without Redis.
type InMemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*models.Session
}

// NewInMemory creates an empty in-memory session store.
func NewInMemory() *InMemorySessionStore {
	return &InMemorySessionStore{
		sessions: make(map[uuid.UUID]*models.Session),
	}
}

func (s *InMemorySessionStore) Save(ctx context.Context, sess *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *sess
	s.sessions[sess.ID] = &copied
	return nil
}

func (s *InMemorySessionStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok || sess.IsExpired() {
		return nil, ErrNotFound
	}
	copied := *sess
	return &copied, nil
}

func (s *InMemorySessionStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}
