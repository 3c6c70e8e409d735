package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hszk-dev/streamresolve/internal/domain/model"
	"github.com/hszk-dev/streamresolve/internal/infrastructure/metrics"
)

const (
	// metadataKeyPrefix is the prefix for metadata cache keys in Redis.
	metadataKeyPrefix = "streamresolve:metadata:"
	// resolutionKeyPrefix is the prefix for resolution cache keys in Redis.
	resolutionKeyPrefix = "streamresolve:resolution:"
)

// metadataJSON is the JSON representation of a MetadataRecord for caching.
// Using explicit struct avoids coupling to the domain model.
type metadataJSON struct {
	ExternalID  string `json:"external_id"`
	MediaType   string `json:"media_type"`
	Title       string `json:"title"`
	ReleaseYear string `json:"release_year,omitempty"`
}

// resolutionJSON is the JSON representation of a Resolution for caching.
type resolutionJSON struct {
	Title            string          `json:"title"`
	ReleaseYear      string          `json:"release_year,omitempty"`
	SubjectID        string          `json:"subject_id"`
	SourceURL        string          `json:"source_url"`
	DownloadEndpoint string          `json:"download_endpoint"`
	Payload          json.RawMessage `json:"payload"`
	Query            string          `json:"query"`
	MatchedPosition  int             `json:"matched_position"`
	ResolvedAt       string          `json:"resolved_at"`
}

// RedisMetadataCache implements MetadataCache using Redis as the backing store.
// Expiry is enforced by Redis key TTLs.
type RedisMetadataCache struct {
	client *redis.Client
}

// NewRedisMetadataCache creates a new Redis-backed metadata cache.
func NewRedisMetadataCache(client *redis.Client) *RedisMetadataCache {
	return &RedisMetadataCache{client: client}
}

// Get retrieves a metadata record from Redis.
// Returns nil, nil on cache miss.
func (c *RedisMetadataCache) Get(ctx context.Context, key model.MetadataKey) (*model.MetadataRecord, error) {
	data, err := c.client.Get(ctx, buildMetadataKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.RecordCacheOp(metrics.CacheMetadata, metrics.CacheOpGet, metrics.CacheStatusMiss, metrics.CacheTypeRedis)
			return nil, nil
		}
		metrics.RecordCacheOp(metrics.CacheMetadata, metrics.CacheOpGet, metrics.CacheStatusError, metrics.CacheTypeRedis)
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var v metadataJSON
	if err := json.Unmarshal(data, &v); err != nil {
		metrics.RecordCacheOp(metrics.CacheMetadata, metrics.CacheOpGet, metrics.CacheStatusError, metrics.CacheTypeRedis)
		return nil, fmt.Errorf("deserialize metadata: %w", err)
	}

	metrics.RecordCacheOp(metrics.CacheMetadata, metrics.CacheOpGet, metrics.CacheStatusHit, metrics.CacheTypeRedis)
	return &model.MetadataRecord{
		ExternalID:  v.ExternalID,
		MediaType:   model.MediaType(v.MediaType),
		Title:       v.Title,
		ReleaseYear: v.ReleaseYear,
	}, nil
}

// Set stores a metadata record in Redis with the specified TTL.
func (c *RedisMetadataCache) Set(ctx context.Context, rec *model.MetadataRecord, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}

	data, err := json.Marshal(metadataJSON{
		ExternalID:  rec.ExternalID,
		MediaType:   rec.MediaType.String(),
		Title:       rec.Title,
		ReleaseYear: rec.ReleaseYear,
	})
	if err != nil {
		return fmt.Errorf("serialize metadata: %w", err)
	}

	if err := c.client.Set(ctx, buildMetadataKey(rec.Key()), data, ttl).Err(); err != nil {
		metrics.RecordCacheOp(metrics.CacheMetadata, metrics.CacheOpSet, metrics.CacheStatusError, metrics.CacheTypeRedis)
		return fmt.Errorf("redis set: %w", err)
	}

	metrics.RecordCacheOp(metrics.CacheMetadata, metrics.CacheOpSet, metrics.CacheStatusSuccess, metrics.CacheTypeRedis)
	return nil
}

// RedisResolutionCache implements ResolutionCache using Redis as the backing store.
type RedisResolutionCache struct {
	client *redis.Client
}

// NewRedisResolutionCache creates a new Redis-backed resolution cache.
func NewRedisResolutionCache(client *redis.Client) *RedisResolutionCache {
	return &RedisResolutionCache{client: client}
}

// Get retrieves a resolution from Redis.
// Returns nil, nil on cache miss.
func (c *RedisResolutionCache) Get(ctx context.Context, key model.ResolutionKey) (*model.Resolution, error) {
	data, err := c.client.Get(ctx, buildResolutionKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.RecordCacheOp(metrics.CacheResolution, metrics.CacheOpGet, metrics.CacheStatusMiss, metrics.CacheTypeRedis)
			return nil, nil
		}
		metrics.RecordCacheOp(metrics.CacheResolution, metrics.CacheOpGet, metrics.CacheStatusError, metrics.CacheTypeRedis)
		return nil, fmt.Errorf("redis get: %w", err)
	}

	res, err := deserializeResolution(data)
	if err != nil {
		metrics.RecordCacheOp(metrics.CacheResolution, metrics.CacheOpGet, metrics.CacheStatusError, metrics.CacheTypeRedis)
		return nil, fmt.Errorf("deserialize resolution: %w", err)
	}

	metrics.RecordCacheOp(metrics.CacheResolution, metrics.CacheOpGet, metrics.CacheStatusHit, metrics.CacheTypeRedis)
	return res, nil
}

// Set stores a resolution in Redis with the specified TTL.
func (c *RedisResolutionCache) Set(ctx context.Context, key model.ResolutionKey, res *model.Resolution, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}

	data, err := serializeResolution(res)
	if err != nil {
		return fmt.Errorf("serialize resolution: %w", err)
	}

	if err := c.client.Set(ctx, buildResolutionKey(key), data, ttl).Err(); err != nil {
		metrics.RecordCacheOp(metrics.CacheResolution, metrics.CacheOpSet, metrics.CacheStatusError, metrics.CacheTypeRedis)
		return fmt.Errorf("redis set: %w", err)
	}

	metrics.RecordCacheOp(metrics.CacheResolution, metrics.CacheOpSet, metrics.CacheStatusSuccess, metrics.CacheTypeRedis)
	return nil
}

// Delete removes a resolution from Redis.
func (c *RedisResolutionCache) Delete(ctx context.Context, key model.ResolutionKey) error {
	if err := c.client.Del(ctx, buildResolutionKey(key)).Err(); err != nil {
		metrics.RecordCacheOp(metrics.CacheResolution, metrics.CacheOpDelete, metrics.CacheStatusError, metrics.CacheTypeRedis)
		return fmt.Errorf("redis del: %w", err)
	}

	metrics.RecordCacheOp(metrics.CacheResolution, metrics.CacheOpDelete, metrics.CacheStatusSuccess, metrics.CacheTypeRedis)
	return nil
}

// buildMetadataKey constructs the Redis key for a metadata record.
// Format: streamresolve:metadata:{media_type}:{external_id}
func buildMetadataKey(key model.MetadataKey) string {
	return metadataKeyPrefix + key.MediaType.String() + ":" + key.ExternalID
}

// buildResolutionKey constructs the Redis key for a resolution.
// Format: streamresolve:resolution:{escaped title}:{year}:{season}:{episode}
func buildResolutionKey(key model.ResolutionKey) string {
	return resolutionKeyPrefix + key.String()
}

func serializeResolution(res *model.Resolution) ([]byte, error) {
	return json.Marshal(resolutionJSON{
		Title:            res.Title,
		ReleaseYear:      res.ReleaseYear,
		SubjectID:        res.SubjectID,
		SourceURL:        res.SourceURL,
		DownloadEndpoint: res.DownloadEndpoint,
		Payload:          res.Payload,
		Query:            res.Query,
		MatchedPosition:  res.MatchedPosition,
		ResolvedAt:       res.ResolvedAt.Format(time.RFC3339Nano),
	})
}

func deserializeResolution(data []byte) (*model.Resolution, error) {
	var v resolutionJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}

	resolvedAt, err := time.Parse(time.RFC3339Nano, v.ResolvedAt)
	if err != nil {
		return nil, fmt.Errorf("parse resolved_at: %w", err)
	}

	return &model.Resolution{
		Title:            v.Title,
		ReleaseYear:      v.ReleaseYear,
		SubjectID:        v.SubjectID,
		SourceURL:        v.SourceURL,
		DownloadEndpoint: v.DownloadEndpoint,
		Payload:          v.Payload,
		Query:            v.Query,
		MatchedPosition:  v.MatchedPosition,
		ResolvedAt:       resolvedAt,
	}, nil
}

// Compile-time verification of interface compliance.
var (
	_ MetadataCache   = (*RedisMetadataCache)(nil)
	_ ResolutionCache = (*RedisResolutionCache)(nil)
)
