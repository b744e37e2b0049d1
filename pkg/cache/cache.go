// Package cache provides the render-fingerprint cache.
//
// A fingerprint entry records that a given parameter set (scene content,
// radius, angle, density, configuration) was rendered successfully and
// where the output landed. On a later run, a hit whose output file still
// exists lets the batch skip the render entirely.
//
// Two backends are provided: a file cache under the user cache directory
// for single-machine use, and a redis cache for build farms sharing one
// fingerprint store. NullCache disables caching.
package cache

import (
	"context"
	"time"
)

// DefaultTTL is how long a render fingerprint stays valid. Scene changes
// invalidate entries through the key, so the TTL only bounds growth.
const DefaultTTL = 30 * 24 * time.Hour

// Cache is the interface for fingerprint storage backends.
type Cache interface {
	// Get retrieves a value. The second return reports whether the key
	// was present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with a TTL. A zero TTL means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}
