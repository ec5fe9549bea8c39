package storage_objects

import (
	"context"
	"time"
)

// Storage is the blob store contract the recording pipeline depends on. The
// production implementation talks to an S3 compatible bucket; tests swap in
// an in memory fake.
type Storage interface {
	// Put writes data under path with the given content type. Existing
	// objects are overwritten.
	Put(ctx context.Context, path string, data []byte, contentType string) error

	// Get downloads the full object at path.
	Get(ctx context.Context, path string) ([]byte, error)

	// SignedURL returns a temporary read URL for path.
	SignedURL(path string, ttl time.Duration) (string, error)

	// Delete removes the object at path. Missing objects are not an error.
	Delete(ctx context.Context, path string) error
}
