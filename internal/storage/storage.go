package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when the requested object does not exist.
var ErrNotFound = errors.New("object not found")

// ObjectStore is the narrow contract the transcoding pipeline needs from
// object storage: fetch source bytes, put rendition bytes, and mint
// short-lived download URLs.
type ObjectStore interface {
	// Download fetches the object at key and returns its bytes and
	// content type.
	Download(ctx context.Context, key string) ([]byte, string, error)

	// Upload stores payload at key with the given content type.
	Upload(ctx context.Context, key, contentType string, payload []byte) error

	// SignedURL returns a presigned GET URL for key valid for ttl.
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}
