package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/hszk-dev/streamresolve/internal/domain/model"
	"github.com/hszk-dev/streamresolve/internal/domain/repository"
	"github.com/hszk-dev/streamresolve/internal/infrastructure/cache"
	"github.com/hszk-dev/streamresolve/internal/infrastructure/metrics"
)

// errEmptyTitle is returned when the metadata service answers without a usable title.
var errEmptyTitle = errors.New("metadata response has no title")

// MetadataFetcherConfig holds configuration for MetadataFetcher.
type MetadataFetcherConfig struct {
	// CacheTTL is how long a fetched record is served from cache.
	CacheTTL time.Duration
}

// DefaultMetadataFetcherConfig returns the default configuration.
func DefaultMetadataFetcherConfig() MetadataFetcherConfig {
	return MetadataFetcherConfig{
		CacheTTL: 24 * time.Hour,
	}
}

// MetadataFetcher resolves an external ID to its canonical title and year.
type MetadataFetcher interface {
	// Fetch returns the cached record when present; otherwise it makes exactly
	// one call to the metadata service. Failures are never cached and are
	// reported as model.ErrMetadataUnavailable.
	Fetch(ctx context.Context, mediaType model.MediaType, externalID string) (*model.MetadataRecord, error)
}

type metadataFetcher struct {
	service repository.MetadataService
	cache   cache.MetadataCache

	cacheTTL time.Duration
}

// NewMetadataFetcher creates a new MetadataFetcher.
func NewMetadataFetcher(
	service repository.MetadataService,
	metadataCache cache.MetadataCache,
	cfg MetadataFetcherConfig,
) MetadataFetcher {
	return &metadataFetcher{
		service:  service,
		cache:    metadataCache,
		cacheTTL: cfg.CacheTTL,
	}
}

func (f *metadataFetcher) Fetch(ctx context.Context, mediaType model.MediaType, externalID string) (*model.MetadataRecord, error) {
	key := model.MetadataKey{MediaType: mediaType, ExternalID: externalID}

	rec, err := f.cache.Get(ctx, key)
	if err != nil {
		slog.Warn("metadata cache get failed, falling back to metadata service",
			"external_id", externalID,
			"media_type", mediaType,
			"error", err,
		)
	}
	if rec != nil {
		return rec, nil
	}

	details, err := f.service.GetDetails(ctx, mediaType, externalID)
	if err != nil {
		metrics.MetadataRequestsTotal.WithLabelValues(mediaType.String(), metrics.StatusError).Inc()
		slog.Warn("metadata fetch failed",
			"external_id", externalID,
			"media_type", mediaType,
			"error", err,
		)
		return nil, model.NewResolutionError(model.KindMetadataUnavailable, err)
	}

	rec, err = recordFromDetails(mediaType, externalID, details)
	if err != nil {
		metrics.MetadataRequestsTotal.WithLabelValues(mediaType.String(), metrics.StatusError).Inc()
		return nil, model.NewResolutionError(model.KindMetadataUnavailable, err)
	}
	metrics.MetadataRequestsTotal.WithLabelValues(mediaType.String(), metrics.StatusSuccess).Inc()

	if err := f.cache.Set(ctx, rec, f.cacheTTL); err != nil {
		slog.Warn("failed to cache metadata",
			"external_id", externalID,
			"error", err,
		)
	}

	return rec, nil
}

// recordFromDetails prefers the title field for the media type, falling back
// to the other one, and derives the release year. Series never carry a year.
func recordFromDetails(mediaType model.MediaType, externalID string, d *repository.TitleDetails) (*model.MetadataRecord, error) {
	if d == nil {
		return nil, errEmptyTitle
	}

	primary, fallback := d.Title, d.Name
	if mediaType == model.MediaSeries {
		primary, fallback = d.Name, d.Title
	}
	title := strings.TrimSpace(primary)
	if title == "" {
		title = strings.TrimSpace(fallback)
	}
	if title == "" {
		return nil, errEmptyTitle
	}

	rec := &model.MetadataRecord{
		ExternalID: externalID,
		MediaType:  mediaType,
		Title:      title,
	}
	if mediaType == model.MediaMovie {
		rec.ReleaseYear = releaseYear(d.ReleaseDate)
	}
	return rec, nil
}

// releaseYear returns the four-digit year of a YYYY-MM-DD date, or "" when
// the date is missing or malformed.
func releaseYear(date string) string {
	year, ok := model.LeadingYear(date)
	if !ok || len(year) != 4 {
		return ""
	}
	return year
}
