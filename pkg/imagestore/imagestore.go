// Package imagestore persists the raw bytes of uploaded handwriting images.
// Samples reference their image by key; the bytes themselves live here so
// the sample database stays small.
package imagestore

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when no image exists under a key.
var ErrNotFound = errors.New("image not found")

// Store is a minimal key/value blob store for images.
//
// Keys are forward-slash separated and relative to the store root.
// Implementations must be safe for concurrent use.
type Store interface {
	// Put stores data under key, replacing any existing image.
	Put(ctx context.Context, key string, data []byte, contentType string) error

	// Get opens the image stored under key. The caller must close the
	// returned ReadCloser. A missing key yields an error wrapping ErrNotFound.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the image under key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
