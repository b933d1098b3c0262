package user

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"snapfeed/internal/auth/models"
)

// InMemoryUserStore keeps users in process memory, for tests and local
// development without Postgres.
type InMemoryUserStore struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*models.User
}

// NewInMemory creates an empty in-memory user store.
func NewInMemory() *InMemoryUserStore {
	return &InMemoryUserStore{
		users: make(map[uuid.UUID]*models.User),
	}
}

func (s *InMemoryUserStore) Save(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *u
	s.users[u.ID] = &copied
	return nil
}

func (s *InMemoryUserStore) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (s *InMemoryUserStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}
