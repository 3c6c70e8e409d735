package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/hszk-dev/streamresolve/internal/app"
	"github.com/hszk-dev/streamresolve/internal/config"
	"github.com/hszk-dev/streamresolve/internal/domain/repository"
	"github.com/hszk-dev/streamresolve/internal/infrastructure/queue"
	"github.com/hszk-dev/streamresolve/internal/usecase"
)

// services are the use cases the commands drive. History is nil when the
// database is disabled.
type services struct {
	Resolutions usecase.ResolutionService
	History     usecase.HistoryService
	Prefetch    usecase.PrefetchService

	close func()
}

func (s *services) Close() {
	if s.close != nil {
		s.close()
	}
}

type serviceLoader func(ctx context.Context, verbose bool) (*services, error)

// loadServices wires the same pipeline the API server runs, from environment
// configuration. Logs go to stderr so stdout stays machine-readable.
func loadServices(ctx context.Context, verbose bool) (*services, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	components, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	closers := []func(){components.Close}

	var mq repository.MessageQueue
	if cfg.RabbitMQ.Enabled {
		queueClient, err := queue.NewClient(ctx, queue.DefaultClientConfig(cfg.RabbitMQ.URL()))
		if err != nil {
			components.Close()
			return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		closers = append(closers, func() { _ = queueClient.Close() })
		mq = queueClient
	}

	return &services{
		Resolutions: components.Resolutions,
		History:     components.History,
		Prefetch: usecase.NewPrefetchService(mq, components.Resolutions, usecase.PrefetchServiceConfig{
			MaxRetries: cfg.Worker.MaxRetries,
		}),
		close: func() {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		},
	}, nil
}
