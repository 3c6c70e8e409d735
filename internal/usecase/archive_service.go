package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/hszk-dev/streamresolve/internal/domain/model"
	"github.com/hszk-dev/streamresolve/internal/domain/repository"
)

// ErrInvalidSubjectID is returned when a subject ID is not numeric.
var ErrInvalidSubjectID = errors.New("subject id must be numeric")

// ArchiveServiceConfig holds configuration for ArchiveService.
type ArchiveServiceConfig struct {
	// DownloadURLExpiry is the lifetime of presigned archive URLs.
	DownloadURLExpiry time.Duration
}

// DefaultArchiveServiceConfig returns the default configuration.
func DefaultArchiveServiceConfig() ArchiveServiceConfig {
	return ArchiveServiceConfig{
		DownloadURLExpiry: 15 * time.Minute,
	}
}

// ArchiveService keeps copies of download payloads in object storage.
type ArchiveService interface {
	// Store uploads the payload of a successful resolution.
	Store(ctx context.Context, res *model.Resolution, season, episode int) error

	// DownloadURL returns a presigned URL for an archived payload.
	// Returns repository.ErrObjectNotFound when nothing was archived.
	DownloadURL(ctx context.Context, subjectID string, season, episode int) (string, error)
}

type archiveService struct {
	storage repository.ObjectStorage

	downloadURLExpiry time.Duration
}

// NewArchiveService creates a new ArchiveService instance.
func NewArchiveService(storage repository.ObjectStorage, cfg ArchiveServiceConfig) ArchiveService {
	return &archiveService{
		storage:           storage,
		downloadURLExpiry: cfg.DownloadURLExpiry,
	}
}

func (s *archiveService) Store(ctx context.Context, res *model.Resolution, season, episode int) error {
	if len(res.Payload) == 0 {
		return nil
	}
	key := ArchiveKey(res.SubjectID, season, episode)
	if err := s.storage.Upload(ctx, key, bytes.NewReader(res.Payload), "application/json"); err != nil {
		return fmt.Errorf("upload payload: %w", err)
	}
	return nil
}

func (s *archiveService) DownloadURL(ctx context.Context, subjectID string, season, episode int) (string, error) {
	if !model.ValidSubjectID(subjectID) {
		return "", ErrInvalidSubjectID
	}
	if season < 0 || episode < 0 {
		return "", model.ErrInvalidEpisode
	}

	key := ArchiveKey(subjectID, season, episode)
	exists, err := s.storage.Exists(ctx, key)
	if err != nil {
		return "", fmt.Errorf("check archive: %w", err)
	}
	if !exists {
		return "", repository.ErrObjectNotFound
	}

	url, err := s.storage.GeneratePresignedDownloadURL(ctx, key, s.downloadURLExpiry)
	if err != nil {
		return "", fmt.Errorf("generate download url: %w", err)
	}
	return url, nil
}

// ArchiveKey returns the object key of an archived payload.
// Format: payloads/{subjectID}/s{season}e{episode}.json
func ArchiveKey(subjectID string, season, episode int) string {
	return path.Join("payloads", subjectID, fmt.Sprintf("s%de%d.json", season, episode))
}
