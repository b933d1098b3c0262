package models

import (
	"time"

	"github.com/google/uuid"

	dErrors "snapfeed/pkg/domain-errors"
)

// Photo is the stored metadata for an uploaded image. The bytes themselves
// live in the object store, addressed by ObjectKey.
type Photo struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	ObjectKey   string    `json:"object_key"`
	ContentType string    `json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
}

// Caption is a user-authored caption on a photo.
type Caption struct {
	ID        uuid.UUID `json:"id"`
	PhotoID   uuid.UUID `json:"photo_id"`
	UserID    uuid.UUID `json:"user_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Vote is one user's up or down vote on a photo. One vote per user per
// photo; casting again replaces the previous value.
type Vote struct {
	PhotoID   uuid.UUID `json:"photo_id"`
	UserID    uuid.UUID `json:"user_id"`
	Value     int       `json:"value"`
	CreatedAt time.Time `json:"created_at"`
}

// NewPhoto creates a Photo with domain invariant validation.
func NewPhoto(userID uuid.UUID, objectKey, contentType string) (*Photo, error) {
	if userID == uuid.Nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "user id cannot be empty")
	}
	if objectKey == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "object key cannot be empty")
	}

	return &Photo{
		ID:          uuid.New(),
		UserID:      userID,
		ObjectKey:   objectKey,
		ContentType: contentType,
		CreatedAt:   time.Now(),
	}, nil
}

// NewCaption creates a Caption with domain invariant validation.
func NewCaption(photoID, userID uuid.UUID, text string) (*Caption, error) {
	if photoID == uuid.Nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "photo id cannot be empty")
	}
	if userID == uuid.Nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "user id cannot be empty")
	}
	if text == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "caption text cannot be empty")
	}

	return &Caption{
		ID:        uuid.New(),
		PhotoID:   photoID,
		UserID:    userID,
		Text:      text,
		CreatedAt: time.Now(),
	}, nil
}

// NewVote creates a Vote with domain invariant validation.
func NewVote(photoID, userID uuid.UUID, value int) (*Vote, error) {
	if photoID == uuid.Nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "photo id cannot be empty")
	}
	if userID == uuid.Nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "user id cannot be empty")
	}
	if value != 1 && value != -1 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "vote value must be 1 or -1")
	}

	return &Vote{
		PhotoID:   photoID,
		UserID:    userID,
		Value:     value,
		CreatedAt: time.Now(),
	}, nil
}
