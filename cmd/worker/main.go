package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

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

	if !cfg.RabbitMQ.Enabled {
		return fmt.Errorf("worker requires PREFETCH_ENABLED=true")
	}

	components, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer components.Close()

	queueClient, err := queue.NewClient(ctx, queue.DefaultClientConfig(cfg.RabbitMQ.URL()))
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	defer queueClient.Close()
	logger.Info("connected to RabbitMQ")

	prefetchSvc := usecase.NewPrefetchService(queueClient, components.Resolutions, usecase.PrefetchServiceConfig{
		MaxRetries: cfg.Worker.MaxRetries,
	})

	// Setup signal handling for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// WaitGroup to track in-flight tasks
	var wg sync.WaitGroup

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting worker, consuming prefetch tasks")
		err := queueClient.ConsumePrefetchTasks(ctx, func(task repository.PrefetchTask) error {
			wg.Add(1)
			defer wg.Done()

			logger.Info("processing task",
				slog.String("task_id", task.ID.String()),
				slog.String("external_id", task.ExternalID),
				slog.String("type", task.MediaType.String()),
				slog.Int("retry_count", task.RetryCount),
			)

			// In-flight resolutions finish even after shutdown starts so the
			// cache is still populated.
			if err := prefetchSvc.ProcessTask(context.WithoutCancel(ctx), task); err != nil {
				logger.Error("task processing failed",
					slog.String("task_id", task.ID.String()),
					slog.Int("retry_count", task.RetryCount),
					slog.String("error", err.Error()),
				)
				return err
			}

			logger.Info("task completed",
				slog.String("task_id", task.ID.String()),
			)
			return nil
		})
		if err != nil && ctx.Err() == nil {
			errCh <- fmt.Errorf("consumer error: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down worker", slog.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownTimeout)
	defer shutdownCancel()

	// Cancel the main context to stop consuming new messages
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("all in-flight tasks completed")
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timeout exceeded, some tasks may not have completed")
	}

	logger.Info("worker stopped")
	return nil
}
