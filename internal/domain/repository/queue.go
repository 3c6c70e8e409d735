package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/hszk-dev/streamresolve/internal/domain/model"
)

// PrefetchTask asks a worker to resolve a title ahead of time so that later
// requests are served from cache.
type PrefetchTask struct {
	ID         uuid.UUID       `json:"id"`
	ExternalID string          `json:"external_id"`
	MediaType  model.MediaType `json:"media_type"`
	Season     int             `json:"season"`
	Episode    int             `json:"episode"`
	RetryCount int             `json:"retry_count"`
}

// MessageQueue defines the interface for message queue operations.
// Implementations should be provided by the infrastructure layer (e.g., RabbitMQ).
type MessageQueue interface {
	// PublishPrefetchTask sends a prefetch task to the queue.
	// Used by the API server.
	PublishPrefetchTask(ctx context.Context, task PrefetchTask) error

	// ConsumePrefetchTasks starts consuming prefetch tasks from the queue.
	// The handler function is called for each received task.
	// Blocks until ctx is cancelled or the delivery channel closes.
	// Used by the worker service.
	ConsumePrefetchTasks(ctx context.Context, handler func(task PrefetchTask) error) error

	// Close gracefully closes the connection to the message queue.
	Close() error
}
