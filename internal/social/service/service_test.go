package service_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snapfeed/internal/social/service"
	"snapfeed/internal/social/store"
	dErrors "snapfeed/pkg/domain-errors"
)

// memObjects is an in-memory ObjectStore for tests.
type memObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	failPut bool
}

func newMemObjects() *memObjects {
	return &memObjects{objects: make(map[string][]byte)}
}

func (m *memObjects) Put(ctx context.Context, key, contentType string, body io.Reader) error {
	if m.failPut {
		return fmt.Errorf("put %s: storage down", key)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memObjects) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("get %s: not found", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memObjects) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memObjects) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

func newService(t *testing.T) (*service.Service, *memObjects) {
	t.Helper()
	objects := newMemObjects()
	svc, err := service.New(store.NewInMemory(), objects)
	require.NoError(t, err)
	return svc, objects
}

func TestUploadPhoto(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("stores bytes and metadata", func(t *testing.T) {
		svc, objects := newService(t)

		photo, err := svc.UploadPhoto(ctx, userID, "image/jpeg", strings.NewReader("jpeg-bytes"))
		require.NoError(t, err)
		assert.Equal(t, userID, photo.UserID)
		assert.Equal(t, "image/jpeg", photo.ContentType)
		assert.Equal(t, 1, objects.len())

		got, body, err := svc.DownloadPhoto(ctx, photo.ID)
		require.NoError(t, err)
		defer body.Close()
		assert.Equal(t, photo.ID, got.ID)
		data, err := io.ReadAll(body)
		require.NoError(t, err)
		assert.Equal(t, "jpeg-bytes", string(data))
	})

	t.Run("fails when object storage is down", func(t *testing.T) {
		svc, objects := newService(t)
		objects.failPut = true

		_, err := svc.UploadPhoto(ctx, userID, "image/jpeg", strings.NewReader("x"))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
	})
}

func TestListPhotos(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	userID := uuid.New()

	for i := 0; i < 3; i++ {
		_, err := svc.UploadPhoto(ctx, userID, "image/png", strings.NewReader("x"))
		require.NoError(t, err)
	}

	photos, err := svc.ListPhotos(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, photos, 3)

	photos, err = svc.ListPhotos(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, photos, 2)
}

func TestDeletePhoto(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()

	t.Run("owner can delete, bytes go too", func(t *testing.T) {
		svc, objects := newService(t)
		photo, err := svc.UploadPhoto(ctx, owner, "image/png", strings.NewReader("x"))
		require.NoError(t, err)

		require.NoError(t, svc.DeletePhoto(ctx, owner, photo.ID))
		assert.Equal(t, 0, objects.len())

		_, err = svc.GetPhoto(ctx, photo.ID)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("non-owner is forbidden", func(t *testing.T) {
		svc, _ := newService(t)
		photo, err := svc.UploadPhoto(ctx, owner, "image/png", strings.NewReader("x"))
		require.NoError(t, err)

		err = svc.DeletePhoto(ctx, uuid.New(), photo.ID)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func TestCaptions(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	userID := uuid.New()

	photo, err := svc.UploadPhoto(ctx, userID, "image/png", strings.NewReader("x"))
	require.NoError(t, err)

	_, err = svc.AddCaption(ctx, userID, uuid.New(), "orphan")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = svc.AddCaption(ctx, userID, photo.ID, "")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	first, err := svc.AddCaption(ctx, userID, photo.ID, "first")
	require.NoError(t, err)
	_, err = svc.AddCaption(ctx, userID, photo.ID, "second")
	require.NoError(t, err)

	captions, err := svc.ListCaptions(ctx, photo.ID)
	require.NoError(t, err)
	require.Len(t, captions, 2)
	assert.Equal(t, first.ID, captions[0].ID)
}

func TestVotes(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	alice := uuid.New()
	bob := uuid.New()

	photo, err := svc.UploadPhoto(ctx, alice, "image/png", strings.NewReader("x"))
	require.NoError(t, err)

	tally, err := svc.CastVote(ctx, alice, photo.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, tally)

	tally, err = svc.CastVote(ctx, bob, photo.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, tally)

	// Re-voting replaces, never stacks.
	tally, err = svc.CastVote(ctx, bob, photo.ID, -1)
	require.NoError(t, err)
	assert.Equal(t, 0, tally)

	tally, err = svc.RemoveVote(ctx, bob, photo.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, tally)

	_, err = svc.CastVote(ctx, bob, photo.ID, 2)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}
