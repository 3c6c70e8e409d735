package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/hszk-dev/streamresolve/internal/domain/model"
	"github.com/hszk-dev/streamresolve/internal/domain/repository"
)

const (
	// DefaultMaxRetries is the default maximum number of attempts for a prefetch task.
	DefaultMaxRetries = 3
)

// PrefetchServiceConfig holds configuration for PrefetchService.
type PrefetchServiceConfig struct {
	// MaxRetries is the number of failed runs after which a task is dropped.
	MaxRetries int
}

// DefaultPrefetchServiceConfig returns the default configuration.
func DefaultPrefetchServiceConfig() PrefetchServiceConfig {
	return PrefetchServiceConfig{
		MaxRetries: DefaultMaxRetries,
	}
}

// PrefetchService warms the caches ahead of client requests.
type PrefetchService interface {
	// Enqueue validates req and publishes a prefetch task.
	// Used by the API server.
	Enqueue(ctx context.Context, req ResolveRequest) (*repository.PrefetchTask, error)

	// ProcessTask resolves a task from the queue.
	// Returns nil on success or permanent failure (including max retries exceeded).
	// Returns error for transient failures that should trigger a retry.
	// Used by the worker.
	ProcessTask(ctx context.Context, task repository.PrefetchTask) error
}

type prefetchService struct {
	queue       repository.MessageQueue
	resolutions ResolutionService

	maxRetries int
}

// NewPrefetchService creates a new PrefetchService instance.
// queue may be nil when prefetching is disabled; Enqueue then fails with
// repository.ErrQueueDisabled.
func NewPrefetchService(
	queue repository.MessageQueue,
	resolutions ResolutionService,
	cfg PrefetchServiceConfig,
) PrefetchService {
	return &prefetchService{
		queue:       queue,
		resolutions: resolutions,
		maxRetries:  cfg.MaxRetries,
	}
}

func (s *prefetchService) Enqueue(ctx context.Context, req ResolveRequest) (*repository.PrefetchTask, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if s.queue == nil {
		return nil, repository.ErrQueueDisabled
	}

	task := repository.PrefetchTask{
		ID:         uuid.New(),
		ExternalID: req.ExternalID,
		MediaType:  req.MediaType,
		Season:     req.Season,
		Episode:    req.Episode,
	}
	if err := s.queue.PublishPrefetchTask(ctx, task); err != nil {
		return nil, fmt.Errorf("publish prefetch task: %w", err)
	}
	return &task, nil
}

func (s *prefetchService) ProcessTask(ctx context.Context, task repository.PrefetchTask) error {
	// Max retries exceeded - drop the task and ack the message
	if task.RetryCount >= s.maxRetries {
		slog.Error("dropping prefetch task after max retries",
			"task_id", task.ID,
			"external_id", task.ExternalID,
			"retry_count", task.RetryCount,
		)
		return nil
	}

	_, err := s.resolutions.Resolve(ctx, ResolveRequest{
		MediaType:  task.MediaType,
		ExternalID: task.ExternalID,
		Season:     task.Season,
		Episode:    task.Episode,
	})
	if err == nil {
		return nil
	}

	if isPermanent(err) {
		slog.Info("prefetch task will not be retried",
			"task_id", task.ID,
			"external_id", task.ExternalID,
			"kind", model.KindOf(err),
		)
		return nil
	}
	return fmt.Errorf("resolve %s %s: %w", task.MediaType, task.ExternalID, err)
}

// isPermanent reports whether retrying err cannot change the outcome.
func isPermanent(err error) bool {
	return errors.Is(err, model.ErrValidation) || errors.Is(err, model.ErrNoMatchFound)
}
