package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hszk-dev/streamresolve/internal/domain/model"
)

// ResolutionRecord is one pipeline outcome kept for later inspection.
type ResolutionRecord struct {
	ID               uuid.UUID
	ExternalID       string
	MediaType        model.MediaType
	Title            string
	ReleaseYear      string
	Season           int
	Episode          int
	SubjectID        string
	SourceURL        string
	DownloadEndpoint string
	ErrorKind        model.ErrorKind // empty on success
	ErrorMessage     string
	Cached           bool
	CreatedAt        time.Time
}

// Succeeded reports whether the record describes a successful resolution.
func (r ResolutionRecord) Succeeded() bool {
	return r.ErrorKind == ""
}

// HistoryRepository persists resolution outcomes.
// Implementations should be provided by the infrastructure layer (e.g., PostgreSQL).
type HistoryRepository interface {
	// Record appends an outcome.
	Record(ctx context.Context, rec *ResolutionRecord) error

	// ListRecent returns up to limit records, newest first.
	// Returns empty slice if there are none.
	ListRecent(ctx context.Context, limit int) ([]*ResolutionRecord, error)
}
