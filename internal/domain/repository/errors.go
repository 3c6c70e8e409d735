package repository

import "errors"

var (
	// ErrObjectNotFound is returned when an archived object does not exist.
	ErrObjectNotFound = errors.New("object not found")

	// ErrBucketNotFound is returned when the configured bucket does not exist.
	ErrBucketNotFound = errors.New("bucket not found")

	// ErrQueueDisabled is returned when prefetching is requested but no queue is configured.
	ErrQueueDisabled = errors.New("prefetch queue is not configured")
)
