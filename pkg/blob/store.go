// Package blob stores item images keyed by item id and hands out
// time-limited signed URLs for them.
package blob

import (
	"context"
	"errors"
	"io"
	"time"
)

// DefaultURLTTL is how long a signed URL stays valid unless configured.
const DefaultURLTTL = time.Hour

var (
	// ErrBucketNotConfigured is returned when a backend has no bucket name.
	ErrBucketNotConfigured = errors.New("S3 bucket wasn't provided")
	// ErrNotFound is returned by backends that can tell an object is missing.
	ErrNotFound = errors.New("blob not found")
)

// Store is an object store for item images.
type Store interface {
	// Put uploads body under key, replacing any existing object.
	Put(ctx context.Context, key string, body io.Reader, contentType string) error
	// SignedURL returns a URL granting read access to key for ttl. Signing
	// does not check that the object exists.
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	// Delete removes key. Deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error
}
