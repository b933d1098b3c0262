package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"snapfeed/internal/social/models"
)

type voteKey struct {
	photoID uuid.UUID
	userID  uuid.UUID
}

// InMemoryStore keeps photos, captions, and votes in process memory, for
// tests and local development without Postgres.
type InMemoryStore struct {
	mu       sync.RWMutex
	photos   map[uuid.UUID]*models.Photo
	captions map[uuid.UUID]*models.Caption
	votes    map[voteKey]*models.Vote
}

// NewInMemory creates an empty in-memory social store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		photos:   make(map[uuid.UUID]*models.Photo),
		captions: make(map[uuid.UUID]*models.Caption),
		votes:    make(map[voteKey]*models.Vote),
	}
}

func (s *InMemoryStore) SavePhoto(ctx context.Context, p *models.Photo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *p
	s.photos[p.ID] = &copied
	return nil
}

func (s *InMemoryStore) FindPhotoByID(ctx context.Context, id uuid.UUID) (*models.Photo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.photos[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (s *InMemoryStore) ListPhotos(ctx context.Context, limit int) ([]*models.Photo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	photos := make([]*models.Photo, 0, len(s.photos))
	for _, p := range s.photos {
		copied := *p
		photos = append(photos, &copied)
	}
	sort.Slice(photos, func(i, j int) bool {
		return photos[i].CreatedAt.After(photos[j].CreatedAt)
	})
	if limit > 0 && len(photos) > limit {
		photos = photos[:limit]
	}
	return photos, nil
}

func (s *InMemoryStore) DeletePhoto(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.photos, id)
	return nil
}

func (s *InMemoryStore) SaveCaption(ctx context.Context, c *models.Caption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *c
	s.captions[c.ID] = &copied
	return nil
}

func (s *InMemoryStore) ListCaptions(ctx context.Context, photoID uuid.UUID) ([]*models.Caption, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var captions []*models.Caption
	for _, c := range s.captions {
		if c.PhotoID == photoID {
			copied := *c
			captions = append(captions, &copied)
		}
	}
	sort.Slice(captions, func(i, j int) bool {
		return captions[i].CreatedAt.Before(captions[j].CreatedAt)
	})
	return captions, nil
}

func (s *InMemoryStore) DeleteCaption(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.captions, id)
	return nil
}

func (s *InMemoryStore) SaveVote(ctx context.Context, v *models.Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *v
	s.votes[voteKey{v.PhotoID, v.UserID}] = &copied
	return nil
}

func (s *InMemoryStore) DeleteVote(ctx context.Context, photoID, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.votes, voteKey{photoID, userID})
	return nil
}

func (s *InMemoryStore) TallyVotes(ctx context.Context, photoID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tally := 0
	for key, v := range s.votes {
		if key.photoID == photoID {
			tally += v.Value
		}
	}
	return tally, nil
}
