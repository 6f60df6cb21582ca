package objectstore

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound signals that no bytes exist under the requested key.
var ErrNotFound = errors.New("objectstore: not found")

// Client durably stores raw file bytes by opaque key. The vault owns the
// metadata; the client exclusively owns the bytes.
type Client interface {
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete is idempotent: it reports true when the key was removed or was
	// already absent, and an error only when the backend failed.
	Delete(ctx context.Context, key string) (bool, error)
}
