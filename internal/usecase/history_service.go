package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/hszk-dev/streamresolve/internal/domain/repository"
)

const (
	// DefaultHistoryLimit is used when a listing does not ask for a size.
	DefaultHistoryLimit = 20
	// MaxHistoryLimit caps a single listing.
	MaxHistoryLimit = 100
)

// ErrInvalidLimit is returned for a listing size outside 1..MaxHistoryLimit.
var ErrInvalidLimit = errors.New("limit must be between 1 and 100")

// HistoryService exposes recorded resolution outcomes.
type HistoryService interface {
	// ListRecent returns up to limit records, newest first.
	// A zero limit means DefaultHistoryLimit.
	ListRecent(ctx context.Context, limit int) ([]*repository.ResolutionRecord, error)
}

type historyService struct {
	repo repository.HistoryRepository
}

// NewHistoryService creates a new HistoryService instance.
func NewHistoryService(repo repository.HistoryRepository) HistoryService {
	return &historyService{repo: repo}
}

func (s *historyService) ListRecent(ctx context.Context, limit int) ([]*repository.ResolutionRecord, error) {
	if limit == 0 {
		limit = DefaultHistoryLimit
	}
	if limit < 1 || limit > MaxHistoryLimit {
		return nil, ErrInvalidLimit
	}

	records, err := s.repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return records, nil
}
