// Package ports defines the external collaborator interfaces of the social
// module. Implementations (S3-class object storage) are wired at the
// composition root.
package ports

import (
	"context"
	"io"
)

// ObjectStore stores and retrieves raw image bytes by key.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}
