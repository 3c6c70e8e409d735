package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/hszk-dev/streamresolve/internal/domain/model"
	"github.com/hszk-dev/streamresolve/internal/domain/repository"
	"github.com/hszk-dev/streamresolve/internal/infrastructure/cache"
	"github.com/hszk-dev/streamresolve/internal/infrastructure/metrics"
)

// ResolveRequest identifies the title, season and episode to resolve.
// Movies use season and episode 0.
type ResolveRequest struct {
	MediaType  model.MediaType
	ExternalID string
	Season     int
	Episode    int
}

// Validate rejects requests that must never reach the pipeline.
func (r ResolveRequest) Validate() error {
	if strings.TrimSpace(r.ExternalID) == "" {
		return model.NewValidationError(model.ErrMissingExternalID)
	}
	if !r.MediaType.IsValid() {
		return model.NewValidationError(model.ErrInvalidMediaType)
	}
	if r.Season < 0 || r.Episode < 0 {
		return model.NewValidationError(model.ErrInvalidEpisode)
	}
	return nil
}

// ResolveOutput is a successful resolution plus the metadata it was keyed on.
type ResolveOutput struct {
	Metadata   *model.MetadataRecord
	Resolution *model.Resolution
	Cached     bool
}

// ResolutionService is the entry point for resolving an external ID.
type ResolutionService interface {
	// Resolve returns the download descriptor for req. Successful results are
	// served from cache until their TTL elapses; failures are never cached.
	Resolve(ctx context.Context, req ResolveRequest) (*ResolveOutput, error)

	// Invalidate drops the cached resolution for req.
	Invalidate(ctx context.Context, req ResolveRequest) error
}

// ResolutionServiceConfig holds configuration for ResolutionService.
type ResolutionServiceConfig struct {
	// CacheTTL is the TTL for cached resolutions.
	CacheTTL time.Duration
}

// DefaultResolutionServiceConfig returns the default configuration.
func DefaultResolutionServiceConfig() ResolutionServiceConfig {
	return ResolutionServiceConfig{
		CacheTTL: 6 * time.Hour,
	}
}

// ResolutionServiceOption configures optional sinks of a ResolutionService.
type ResolutionServiceOption func(*resolutionService)

// WithHistory records every outcome in repo.
func WithHistory(repo repository.HistoryRepository) ResolutionServiceOption {
	return func(s *resolutionService) {
		s.history = repo
	}
}

// WithArchive stores every fresh payload through archive.
func WithArchive(archive ArchiveService) ResolutionServiceOption {
	return func(s *resolutionService) {
		s.archive = archive
	}
}

type resolutionService struct {
	metadata MetadataFetcher
	resolver Resolver
	cache    cache.ResolutionCache
	sfGroup  singleflight.Group

	history repository.HistoryRepository
	archive ArchiveService

	cacheTTL time.Duration
}

// NewResolutionService creates a new ResolutionService.
func NewResolutionService(
	metadata MetadataFetcher,
	resolver Resolver,
	resolutionCache cache.ResolutionCache,
	cfg ResolutionServiceConfig,
	opts ...ResolutionServiceOption,
) ResolutionService {
	s := &resolutionService{
		metadata: metadata,
		resolver: resolver,
		cache:    resolutionCache,
		cacheTTL: cfg.CacheTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *resolutionService) Resolve(ctx context.Context, req ResolveRequest) (*ResolveOutput, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	meta, err := s.metadata.Fetch(ctx, req.MediaType, req.ExternalID)
	if err != nil {
		s.record(ctx, req, nil, nil, false, err)
		return nil, err
	}

	key := model.NewResolutionKey(*meta, req.Season, req.Episode)

	cached, err := s.cache.Get(ctx, key)
	if err != nil {
		slog.Warn("resolution cache get failed, resolving from site",
			"external_id", req.ExternalID,
			"title", meta.Title,
			"error", err,
		)
	}
	if cached != nil {
		s.record(ctx, req, meta, cached, true, nil)
		return &ResolveOutput{Metadata: meta, Resolution: cached, Cached: true}, nil
	}

	// Identical concurrent misses share one pipeline run, detached from
	// caller cancellation.
	ch := s.sfGroup.DoChan(key.String(), func() (any, error) {
		return s.resolveAndStore(context.WithoutCancel(ctx), req, meta, key)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case result := <-ch:
		if result.Shared {
			metrics.SingleflightRequestsTotal.WithLabelValues(metrics.SingleflightShared).Inc()
		} else {
			metrics.SingleflightRequestsTotal.WithLabelValues(metrics.SingleflightInitiated).Inc()
		}
		if result.Err != nil {
			return nil, result.Err
		}
		return &ResolveOutput{Metadata: meta, Resolution: result.Val.(*model.Resolution)}, nil
	}
}

// resolveAndStore runs the pipeline and populates the cache on success.
func (s *resolutionService) resolveAndStore(ctx context.Context, req ResolveRequest, meta *model.MetadataRecord, key model.ResolutionKey) (*model.Resolution, error) {
	res, err := s.resolver.Resolve(ctx, ResolveInput{
		Title:        meta.Title,
		ExpectedYear: meta.ReleaseYear,
		YearMatching: meta.YearMatching(),
		Season:       req.Season,
		Episode:      req.Episode,
	})
	s.record(ctx, req, meta, res, false, err)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, key, res, s.cacheTTL); err != nil {
		slog.Warn("failed to cache resolution",
			"external_id", req.ExternalID,
			"title", meta.Title,
			"error", err,
		)
	}

	if s.archive != nil {
		if err := s.archive.Store(ctx, res, req.Season, req.Episode); err != nil {
			slog.Warn("failed to archive payload",
				"subject_id", res.SubjectID,
				"error", err,
			)
		}
	}

	return res, nil
}

func (s *resolutionService) Invalidate(ctx context.Context, req ResolveRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	meta, err := s.metadata.Fetch(ctx, req.MediaType, req.ExternalID)
	if err != nil {
		return err
	}

	return s.cache.Delete(ctx, model.NewResolutionKey(*meta, req.Season, req.Episode))
}

// record appends an outcome to the history sink. Failures are logged only.
func (s *resolutionService) record(ctx context.Context, req ResolveRequest, meta *model.MetadataRecord, res *model.Resolution, cached bool, resErr error) {
	if s.history == nil {
		return
	}

	rec := &repository.ResolutionRecord{
		ID:         uuid.New(),
		ExternalID: req.ExternalID,
		MediaType:  req.MediaType,
		Season:     req.Season,
		Episode:    req.Episode,
		Cached:     cached,
		CreatedAt:  time.Now(),
	}
	if meta != nil {
		rec.Title = meta.Title
		rec.ReleaseYear = meta.ReleaseYear
	}
	if res != nil {
		rec.SubjectID = res.SubjectID
		rec.SourceURL = res.SourceURL
		rec.DownloadEndpoint = res.DownloadEndpoint
	}
	if resErr != nil {
		rec.ErrorKind = model.KindOf(resErr)
		rec.ErrorMessage = resErr.Error()
	}

	if err := s.history.Record(context.WithoutCancel(ctx), rec); err != nil {
		slog.Warn("failed to record resolution history",
			"external_id", req.ExternalID,
			"error", err,
		)
	}
}
