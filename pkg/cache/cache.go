// Package cache provides the byte caches used for layout results.
//
// Three backends implement [Cache]:
//
//   - [FileCache] stores entries as JSON files, for the CLI
//   - [RedisCache] stores entries in Redis, shared by server replicas
//   - [MemoryCache] keeps entries in process
//
// [NullCache] disables caching. Keys are built by a [Keyer] so every backend
// agrees on the key layout.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte values under string keys.
type Cache interface {
	// Get returns the value for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the cache.
	Close() error
}
