package tablegate

import (
	"context"
	"time"
)

// Cache is the interface for sharing encoded metadata artifacts between
// processes. Implement it with the caching solution of choice
// (e.g., Redis, Memcached). The in-process metadata store works without one.
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns nil, nil if the key doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache with an optional TTL.
	// If ttl is 0, the value should not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from the cache.
	Delete(ctx context.Context, key string) error
}

// CacheKey identifies one cached metadata artifact.
type CacheKey struct {
	Namespace string
	Table     string
}

// String returns the string representation of the cache key.
func (k CacheKey) String() string {
	if k.Namespace == "" {
		return "tablegate:metadata:" + k.Table
	}
	return "tablegate:metadata:" + k.Namespace + ":" + k.Table
}
