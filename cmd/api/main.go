package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hszk-dev/streamresolve/internal/api/handler"
	"github.com/hszk-dev/streamresolve/internal/api/middleware"
	"github.com/hszk-dev/streamresolve/internal/app"
	"github.com/hszk-dev/streamresolve/internal/config"
	"github.com/hszk-dev/streamresolve/internal/domain/repository"
	"github.com/hszk-dev/streamresolve/internal/infrastructure/queue"
	"github.com/hszk-dev/streamresolve/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	components, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer components.Close()

	var mq repository.MessageQueue
	if cfg.RabbitMQ.Enabled {
		queueClient, err := queue.NewClient(ctx, queue.DefaultClientConfig(cfg.RabbitMQ.URL()))
		if err != nil {
			return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		defer queueClient.Close()
		logger.Info("connected to RabbitMQ")
		mq = queueClient
	}
	prefetchSvc := usecase.NewPrefetchService(mq, components.Resolutions, usecase.PrefetchServiceConfig{
		MaxRetries: cfg.Worker.MaxRetries,
	})

	r := setupRouter(logger, components, prefetchSvc)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			slog.Int("port", cfg.Server.Port),
			slog.String("cache_backend", cfg.Cache.Backend),
			slog.Bool("history", cfg.Database.Enabled),
			slog.Bool("archive", cfg.MinIO.Enabled),
			slog.Bool("prefetch", cfg.RabbitMQ.Enabled),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down server", slog.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func setupRouter(logger *slog.Logger, c *app.Components, prefetchSvc usecase.PrefetchService) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics)
	r.Use(middleware.Recoverer(logger))

	r.Get("/health", handler.Health)
	r.Get("/ready", handler.NewHealthHandler(c.Checks).Ready)
	r.Handle("/metrics", promhttp.Handler())

	resolveHandler := handler.NewResolveHandler(c.Resolutions)
	r.Get("/download", resolveHandler.Download)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/resolve", resolveHandler.Resolve)
		r.Delete("/resolve", resolveHandler.Invalidate)
		r.Post("/prefetch", handler.NewPrefetchHandler(prefetchSvc).Create)

		if c.History != nil {
			r.Get("/resolutions", handler.NewHistoryHandler(c.History).List)
		}
		if c.Archive != nil {
			r.Get("/archive/{subjectId}", handler.NewArchiveHandler(c.Archive).Get)
		}
	})

	return r
}
