package cache

import (
	"context"
	"errors"
	"time"

	"github.com/hszk-dev/streamresolve/internal/domain/model"
)

// ErrInvalidTTL is returned when an entry is stored with a non-positive TTL.
var ErrInvalidTTL = errors.New("cache ttl must be positive")

// MetadataCache caches metadata records by (media type, external ID).
// Implementations must never return an entry whose TTL has elapsed.
type MetadataCache interface {
	// Get retrieves a record from cache.
	// Returns nil, nil on cache miss.
	Get(ctx context.Context, key model.MetadataKey) (*model.MetadataRecord, error)

	// Set stores a record with the specified TTL, replacing any existing entry.
	Set(ctx context.Context, rec *model.MetadataRecord, ttl time.Duration) error
}

// ResolutionCache caches successful resolutions by ResolutionKey.
// Implementations must never return an entry whose TTL has elapsed.
type ResolutionCache interface {
	// Get retrieves a resolution from cache.
	// Returns nil, nil on cache miss.
	Get(ctx context.Context, key model.ResolutionKey) (*model.Resolution, error)

	// Set stores a resolution with the specified TTL, replacing any existing entry.
	Set(ctx context.Context, key model.ResolutionKey, res *model.Resolution, ttl time.Duration) error

	// Delete removes an entry.
	// Returns nil if the key was not in cache.
	Delete(ctx context.Context, key model.ResolutionKey) error
}
