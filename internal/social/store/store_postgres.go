package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"snapfeed/internal/social/models"
)

// PostgresStore persists photos, captions, and votes in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed social store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) SavePhoto(ctx context.Context, p *models.Photo) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO photos (id, user_id, object_key, content_type, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, p.ID, p.UserID, p.ObjectKey, p.ContentType, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("save photo: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindPhotoByID(ctx context.Context, id uuid.UUID) (*models.Photo, error) {
	var p models.Photo
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, object_key, content_type, created_at FROM photos WHERE id = $1
	`, id).Scan(&p.ID, &p.UserID, &p.ObjectKey, &p.ContentType, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find photo: %w", err)
	}
	return &p, nil
}

func (s *PostgresStore) ListPhotos(ctx context.Context, limit int) ([]*models.Photo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, object_key, content_type, created_at
		FROM photos ORDER BY created_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	defer rows.Close()

	var photos []*models.Photo
	for rows.Next() {
		var p models.Photo
		if err := rows.Scan(&p.ID, &p.UserID, &p.ObjectKey, &p.ContentType, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan photo: %w", err)
		}
		photos = append(photos, &p)
	}
	return photos, rows.Err()
}

func (s *PostgresStore) DeletePhoto(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM photos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete photo: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveCaption(ctx context.Context, c *models.Caption) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO captions (id, photo_id, user_id, text, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, c.ID, c.PhotoID, c.UserID, c.Text, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("save caption: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListCaptions(ctx context.Context, photoID uuid.UUID) ([]*models.Caption, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, photo_id, user_id, text, created_at
		FROM captions WHERE photo_id = $1 ORDER BY created_at ASC
	`, photoID)
	if err != nil {
		return nil, fmt.Errorf("list captions: %w", err)
	}
	defer rows.Close()

	var captions []*models.Caption
	for rows.Next() {
		var c models.Caption
		if err := rows.Scan(&c.ID, &c.PhotoID, &c.UserID, &c.Text, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan caption: %w", err)
		}
		captions = append(captions, &c)
	}
	return captions, rows.Err()
}

func (s *PostgresStore) DeleteCaption(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM captions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete caption: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveVote(ctx context.Context, v *models.Vote) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO votes (photo_id, user_id, value, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (photo_id, user_id) DO UPDATE SET value = $3, created_at = $4
	`, v.PhotoID, v.UserID, v.Value, v.CreatedAt)
	if err != nil {
		return fmt.Errorf("save vote: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteVote(ctx context.Context, photoID, userID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM votes WHERE photo_id = $1 AND user_id = $2`, photoID, userID)
	if err != nil {
		return fmt.Errorf("delete vote: %w", err)
	}
	return nil
}

func (s *PostgresStore) TallyVotes(ctx context.Context, photoID uuid.UUID) (int, error) {
	var tally int
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(value), 0) FROM votes WHERE photo_id = $1
	`, photoID).Scan(&tally)
	if err != nil {
		return 0, fmt.Errorf("tally votes: %w", err)
	}
	return tally, nil
}
