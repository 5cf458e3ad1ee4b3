// Package storage is the object storage port used for IVR audio: prompt files
// uploaded by operators and call recordings copied from the provider.
package storage

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("storage: object not found")

// Store puts objects and hands out time-limited read URLs for them.
type Store interface {
	Put(ctx context.Context, key, contentType string, body []byte) error
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}
