// Package service implements the social domain operations: photo upload and
// retrieval, captions, and voting.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"snapfeed/internal/platform/metrics"
	"snapfeed/internal/social/models"
	"snapfeed/internal/social/ports"
	"snapfeed/internal/social/store"
	dErrors "snapfeed/pkg/domain-errors"
)

// SocialStore is the persistence contract the service depends on. Both the
// PostgreSQL store and the in-memory store satisfy it.
type SocialStore interface {
	SavePhoto(ctx context.Context, p *models.Photo) error
	FindPhotoByID(ctx context.Context, id uuid.UUID) (*models.Photo, error)
	ListPhotos(ctx context.Context, limit int) ([]*models.Photo, error)
	DeletePhoto(ctx context.Context, id uuid.UUID) error

	SaveCaption(ctx context.Context, c *models.Caption) error
	ListCaptions(ctx context.Context, photoID uuid.UUID) ([]*models.Caption, error)
	DeleteCaption(ctx context.Context, id uuid.UUID) error

	SaveVote(ctx context.Context, v *models.Vote) error
	DeleteVote(ctx context.Context, photoID, userID uuid.UUID) error
	TallyVotes(ctx context.Context, photoID uuid.UUID) (int, error)
}

const defaultListLimit = 50

// Service orchestrates social operations over the store and the object store.
type Service struct {
	store   SocialStore
	objects ports.ObjectStore
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures optional Service dependencies.
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

// New creates a social Service. The store and object store are required.
func New(st SocialStore, objects ports.ObjectStore, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, fmt.Errorf("social store is required")
	}
	if objects == nil {
		return nil, fmt.Errorf("object store is required")
	}

	s := &Service{
		store:   st,
		objects: objects,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// UploadPhoto stores the image bytes under a fresh object key and persists
// the photo metadata. If the metadata write fails the uploaded object is
// removed best-effort.
func (s *Service) UploadPhoto(ctx context.Context, userID uuid.UUID, contentType string, body io.Reader) (*models.Photo, error) {
	objectKey := fmt.Sprintf("photos/%s/%s", userID, uuid.New())

	photo, err := models.NewPhoto(userID, objectKey, contentType)
	if err != nil {
		return nil, err
	}

	if err := s.objects.Put(ctx, objectKey, contentType, body); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "upload photo bytes")
	}

	if err := s.store.SavePhoto(ctx, photo); err != nil {
		if delErr := s.objects.Delete(ctx, objectKey); delErr != nil {
			s.logger.Warn("orphaned object after failed metadata write",
				"object_key", objectKey, "error", delErr)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "save photo")
	}

	if s.metrics != nil {
		s.metrics.PhotosUploaded.Inc()
	}
	s.logger.Info("photo uploaded", "photo_id", photo.ID, "user_id", userID)
	return photo, nil
}

// GetPhoto returns photo metadata by id.
func (s *Service) GetPhoto(ctx context.Context, id uuid.UUID) (*models.Photo, error) {
	photo, err := s.store.FindPhotoByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "photo not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find photo")
	}
	return photo, nil
}

// DownloadPhoto opens the stored image bytes for a photo.
func (s *Service) DownloadPhoto(ctx context.Context, id uuid.UUID) (*models.Photo, io.ReadCloser, error) {
	photo, err := s.GetPhoto(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	body, err := s.objects.Get(ctx, photo.ObjectKey)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "read photo bytes")
	}
	return photo, body, nil
}

// ListPhotos returns the newest photos, at most limit (a sane default is
// applied when limit is not positive).
func (s *Service) ListPhotos(ctx context.Context, limit int) ([]*models.Photo, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	photos, err := s.store.ListPhotos(ctx, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list photos")
	}
	return photos, nil
}

// DeletePhoto removes a photo owned by userID, including its stored bytes.
func (s *Service) DeletePhoto(ctx context.Context, userID, photoID uuid.UUID) error {
	photo, err := s.GetPhoto(ctx, photoID)
	if err != nil {
		return err
	}
	if photo.UserID != userID {
		return dErrors.New(dErrors.CodeForbidden, "photo belongs to another user")
	}

	if err := s.store.DeletePhoto(ctx, photoID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "delete photo")
	}
	if err := s.objects.Delete(ctx, photo.ObjectKey); err != nil {
		s.logger.Warn("orphaned object after photo delete",
			"object_key", photo.ObjectKey, "error", err)
	}
	return nil
}

// AddCaption attaches a caption to an existing photo.
func (s *Service) AddCaption(ctx context.Context, userID, photoID uuid.UUID, text string) (*models.Caption, error) {
	if _, err := s.GetPhoto(ctx, photoID); err != nil {
		return nil, err
	}

	caption, err := models.NewCaption(photoID, userID, text)
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveCaption(ctx, caption); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "save caption")
	}
	return caption, nil
}

// ListCaptions returns a photo's captions in creation order.
func (s *Service) ListCaptions(ctx context.Context, photoID uuid.UUID) ([]*models.Caption, error) {
	captions, err := s.store.ListCaptions(ctx, photoID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list captions")
	}
	return captions, nil
}

// CastVote records an up or down vote on a photo, replacing any previous
// vote by the same user, and returns the new tally.
func (s *Service) CastVote(ctx context.Context, userID, photoID uuid.UUID, value int) (int, error) {
	if _, err := s.GetPhoto(ctx, photoID); err != nil {
		return 0, err
	}

	vote, err := models.NewVote(photoID, userID, value)
	if err != nil {
		return 0, err
	}
	if err := s.store.SaveVote(ctx, vote); err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "save vote")
	}

	if s.metrics != nil {
		direction := "up"
		if value < 0 {
			direction = "down"
		}
		s.metrics.VotesCast.WithLabelValues(direction).Inc()
	}
	return s.tally(ctx, photoID)
}

// RemoveVote withdraws the user's vote on a photo and returns the new tally.
func (s *Service) RemoveVote(ctx context.Context, userID, photoID uuid.UUID) (int, error) {
	if err := s.store.DeleteVote(ctx, photoID, userID); err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "delete vote")
	}
	return s.tally(ctx, photoID)
}

func (s *Service) tally(ctx context.Context, photoID uuid.UUID) (int, error) {
	tally, err := s.store.TallyVotes(ctx, photoID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "tally votes")
	}
	return tally, nil
}
