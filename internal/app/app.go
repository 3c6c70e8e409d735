// Package app assembles the resolution pipeline shared by the API server and
// the prefetch worker.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/hszk-dev/streamresolve/internal/api/handler"
	"github.com/hszk-dev/streamresolve/internal/config"
	"github.com/hszk-dev/streamresolve/internal/infrastructure/cache"
	"github.com/hszk-dev/streamresolve/internal/infrastructure/httpx"
	"github.com/hszk-dev/streamresolve/internal/infrastructure/postgres"
	"github.com/hszk-dev/streamresolve/internal/infrastructure/site"
	"github.com/hszk-dev/streamresolve/internal/infrastructure/storage"
	"github.com/hszk-dev/streamresolve/internal/infrastructure/tmdb"
	"github.com/hszk-dev/streamresolve/internal/usecase"
)

// Components are the wired services. History and Archive are nil when the
// corresponding feature is disabled.
type Components struct {
	Resolutions usecase.ResolutionService
	History     usecase.HistoryService
	Archive     usecase.ArchiveService

	// Checks are readiness checks for the external dependencies in use.
	Checks map[string]handler.Pinger

	closers []func()
}

// Close releases connections in reverse order of creation.
func (c *Components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

// Build connects every enabled dependency and wires the pipeline.
// Background janitors for in-memory caches stop when ctx is cancelled.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *Components, err error) {
	c := &Components{Checks: make(map[string]handler.Pinger)}
	defer func() {
		if err != nil {
			c.Close()
		}
	}()

	metadataCache, resolutionCache, err := c.buildCaches(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	tmdbClient, err := tmdb.New(cfg.Metadata.APIKey, cfg.Metadata.BaseURL, tmdb.WithTimeout(cfg.Metadata.Timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to create TMDB client: %w", err)
	}

	browser, err := httpx.NewBrowserClient(httpx.ClientConfig{
		ProxyURL: cfg.Site.ProxyURL,
		Timeout:  cfg.Site.StepTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create site HTTP client: %w", err)
	}
	movieBox, err := site.New(cfg.Site.BaseURL, browser)
	if err != nil {
		return nil, fmt.Errorf("failed to create site client: %w", err)
	}

	fetcher := usecase.NewMetadataFetcher(tmdbClient, metadataCache, usecase.MetadataFetcherConfig{
		CacheTTL: cfg.Cache.MetadataTTL,
	})
	resolver := usecase.NewResolver(movieBox, usecase.ResolverConfig{
		MaxCandidates: cfg.Resolver.MaxCandidates,
		FetchAttempts: cfg.Resolver.FetchAttempts,
		BackoffStep:   cfg.Resolver.BackoffStep,
		StepTimeout:   cfg.Site.StepTimeout,
	})

	var opts []usecase.ResolutionServiceOption

	if cfg.Database.Enabled {
		pgClient, err := postgres.NewClient(ctx, postgres.DefaultClientConfig(cfg.Database.DSN()))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		c.closers = append(c.closers, pgClient.Close)
		if err := pgClient.Migrate(ctx); err != nil {
			return nil, err
		}
		logger.Info("connected to PostgreSQL")

		historyRepo := postgres.NewHistoryRepository(pgClient.Pool())
		c.History = usecase.NewHistoryService(historyRepo)
		c.Checks["postgres"] = pgClient.Ping
		opts = append(opts, usecase.WithHistory(historyRepo))
	}

	if cfg.MinIO.Enabled {
		storageClient, err := storage.NewClient(ctx, storage.ClientConfig{
			Endpoint:       cfg.MinIO.Endpoint,
			PublicEndpoint: cfg.MinIO.PublicEndpoint,
			AccessKey:      cfg.MinIO.AccessKey,
			SecretKey:      cfg.MinIO.SecretKey,
			Bucket:         cfg.MinIO.Bucket,
			UseSSL:         cfg.MinIO.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MinIO: %w", err)
		}
		logger.Info("connected to MinIO")

		c.Archive = usecase.NewArchiveService(storageClient, usecase.ArchiveServiceConfig{
			DownloadURLExpiry: cfg.MinIO.PresignExpiry,
		})
		c.Checks["minio"] = storageClient.Ping
		opts = append(opts, usecase.WithArchive(c.Archive))
	}

	c.Resolutions = usecase.NewResolutionService(fetcher, resolver, resolutionCache, usecase.ResolutionServiceConfig{
		CacheTTL: cfg.Cache.ResolutionTTL,
	}, opts...)

	return c, nil
}

func (c *Components) buildCaches(ctx context.Context, cfg *config.Config, logger *slog.Logger) (cache.MetadataCache, cache.ResolutionCache, error) {
	if cfg.Cache.Backend == config.CacheBackendRedis {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		c.closers = append(c.closers, func() { _ = redisClient.Close() })

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		logger.Info("connected to Redis")

		c.Checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
		return cache.NewRedisMetadataCache(redisClient), cache.NewRedisResolutionCache(redisClient), nil
	}

	metadataCache := cache.NewMemoryMetadataCache()
	resolutionCache := cache.NewMemoryResolutionCache()
	go metadataCache.RunJanitor(ctx, cfg.Cache.SweepInterval)
	go resolutionCache.RunJanitor(ctx, cfg.Cache.SweepInterval)
	logger.Info("using in-memory caches", slog.Duration("sweep_interval", cfg.Cache.SweepInterval))

	return metadataCache, resolutionCache, nil
}
