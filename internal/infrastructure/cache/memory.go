package cache

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/hszk-dev/streamresolve/internal/domain/model"
	"github.com/hszk-dev/streamresolve/internal/infrastructure/metrics"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache is a concurrency-safe map whose entries expire after a TTL.
// Expired entries are never returned; they are removed by Sweep.
type TTLCache[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]entry[V]
	now     func() time.Time
}

// Option configures a TTLCache.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewTTLCache creates an empty cache.
func NewTTLCache[K comparable, V any](opts ...Option) *TTLCache[K, V] {
	o := buildOptions(opts)
	return &TTLCache[K, V]{
		entries: make(map[K]entry[V]),
		now:     o.now,
	}
}

// Get returns the value for key if present and not expired.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || !c.now().Before(e.expiresAt) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set inserts or overwrites key. The last writer wins.
func (c *TTLCache[K, V]) Set(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{value: value, expiresAt: c.now().Add(ttl)}
}

// Delete removes key.
func (c *TTLCache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len returns the number of stored entries, expired ones included.
func (c *TTLCache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Sweep removes expired entries and returns how many were dropped.
func (c *TTLCache[K, V]) Sweep() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// RunJanitor sweeps the cache every interval until ctx is cancelled.
func (c *TTLCache[K, V]) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}

// MemoryMetadataCache implements MetadataCache in process memory.
type MemoryMetadataCache struct {
	store *TTLCache[model.MetadataKey, model.MetadataRecord]
}

// NewMemoryMetadataCache creates an in-memory metadata cache.
func NewMemoryMetadataCache(opts ...Option) *MemoryMetadataCache {
	return &MemoryMetadataCache{store: NewTTLCache[model.MetadataKey, model.MetadataRecord](opts...)}
}

// Get retrieves a record. Returns nil, nil on cache miss.
func (c *MemoryMetadataCache) Get(_ context.Context, key model.MetadataKey) (*model.MetadataRecord, error) {
	rec, ok := c.store.Get(key)
	if !ok {
		metrics.RecordCacheOp(metrics.CacheMetadata, metrics.CacheOpGet, metrics.CacheStatusMiss, metrics.CacheTypeMemory)
		return nil, nil
	}
	metrics.RecordCacheOp(metrics.CacheMetadata, metrics.CacheOpGet, metrics.CacheStatusHit, metrics.CacheTypeMemory)
	return &rec, nil
}

// Set stores a copy of rec.
func (c *MemoryMetadataCache) Set(_ context.Context, rec *model.MetadataRecord, ttl time.Duration) error {
	if ttl <= 0 {
		metrics.RecordCacheOp(metrics.CacheMetadata, metrics.CacheOpSet, metrics.CacheStatusError, metrics.CacheTypeMemory)
		return ErrInvalidTTL
	}
	c.store.Set(rec.Key(), *rec, ttl)
	metrics.RecordCacheOp(metrics.CacheMetadata, metrics.CacheOpSet, metrics.CacheStatusSuccess, metrics.CacheTypeMemory)
	return nil
}

// RunJanitor periodically drops expired records until ctx is cancelled.
func (c *MemoryMetadataCache) RunJanitor(ctx context.Context, interval time.Duration) {
	c.store.RunJanitor(ctx, interval)
}

// MemoryResolutionCache implements ResolutionCache in process memory.
type MemoryResolutionCache struct {
	store *TTLCache[model.ResolutionKey, model.Resolution]
}

// NewMemoryResolutionCache creates an in-memory resolution cache.
func NewMemoryResolutionCache(opts ...Option) *MemoryResolutionCache {
	return &MemoryResolutionCache{store: NewTTLCache[model.ResolutionKey, model.Resolution](opts...)}
}

// Get retrieves a copy of a resolution. Returns nil, nil on cache miss.
func (c *MemoryResolutionCache) Get(_ context.Context, key model.ResolutionKey) (*model.Resolution, error) {
	res, ok := c.store.Get(key)
	if !ok {
		metrics.RecordCacheOp(metrics.CacheResolution, metrics.CacheOpGet, metrics.CacheStatusMiss, metrics.CacheTypeMemory)
		return nil, nil
	}
	metrics.RecordCacheOp(metrics.CacheResolution, metrics.CacheOpGet, metrics.CacheStatusHit, metrics.CacheTypeMemory)
	res.Payload = bytes.Clone(res.Payload)
	return &res, nil
}

// Set stores a copy of res; the payload bytes are cloned so callers cannot
// mutate the cached entry.
func (c *MemoryResolutionCache) Set(_ context.Context, key model.ResolutionKey, res *model.Resolution, ttl time.Duration) error {
	if ttl <= 0 {
		metrics.RecordCacheOp(metrics.CacheResolution, metrics.CacheOpSet, metrics.CacheStatusError, metrics.CacheTypeMemory)
		return ErrInvalidTTL
	}
	stored := *res
	stored.Payload = bytes.Clone(res.Payload)
	c.store.Set(key, stored, ttl)
	metrics.RecordCacheOp(metrics.CacheResolution, metrics.CacheOpSet, metrics.CacheStatusSuccess, metrics.CacheTypeMemory)
	return nil
}

// Delete removes an entry.
func (c *MemoryResolutionCache) Delete(_ context.Context, key model.ResolutionKey) error {
	c.store.Delete(key)
	metrics.RecordCacheOp(metrics.CacheResolution, metrics.CacheOpDelete, metrics.CacheStatusSuccess, metrics.CacheTypeMemory)
	return nil
}

// RunJanitor periodically drops expired resolutions until ctx is cancelled.
func (c *MemoryResolutionCache) RunJanitor(ctx context.Context, interval time.Duration) {
	c.store.RunJanitor(ctx, interval)
}

// Compile-time verification of interface compliance.
var (
	_ MetadataCache   = (*MemoryMetadataCache)(nil)
	_ ResolutionCache = (*MemoryResolutionCache)(nil)
)
