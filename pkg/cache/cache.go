// Package cache stores fetched source records and rendered artifacts.
//
// Three backends implement [Cache]: [FileCache] for the CLI, [RedisCache]
// for shared deployments and [NullCache] when caching is disabled. Keys are
// produced by a [Keyer] so that callers never build key strings by hand.
//
// Layouts produced by interactive sessions are never cached; only the
// deterministic inputs and outputs of the batch pipeline are.
package cache

import (
	"context"
	"time"
)

// TTLs for cached entries.
const (
	// TTLRecords bounds how long fetched source records are reused.
	TTLRecords = 24 * time.Hour

	// TTLArtifact bounds how long rendered outputs are reused.
	TTLArtifact = 7 * 24 * time.Hour
)

// Cache is a byte store with per-entry expiration.
type Cache interface {
	// Get returns the stored bytes and whether the key was present.
	// A missing or expired key is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A zero ttl means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}
