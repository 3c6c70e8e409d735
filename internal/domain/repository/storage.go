package repository

import (
	"context"
	"io"
	"time"
)

// ObjectStorage defines the object storage operations used to archive
// download payloads.
// Implementations should be provided by the infrastructure layer (e.g., MinIO, S3).
type ObjectStorage interface {
	// GeneratePresignedDownloadURL creates a presigned URL for downloading an object.
	// The URL is valid for the specified duration.
	GeneratePresignedDownloadURL(ctx context.Context, key string, expiry time.Duration) (string, error)

	// Upload stores an object in the storage.
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) error

	// Exists checks if an object exists in the storage.
	Exists(ctx context.Context, key string) (bool, error)
}
