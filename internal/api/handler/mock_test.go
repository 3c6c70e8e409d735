package handler

import (
	"context"

	"github.com/hszk-dev/streamresolve/internal/domain/model"
	"github.com/hszk-dev/streamresolve/internal/domain/repository"
	"github.com/hszk-dev/streamresolve/internal/usecase"
)

// Mock ResolutionService

type mockResolutionService struct {
	resolveFn    func(ctx context.Context, req usecase.ResolveRequest) (*usecase.ResolveOutput, error)
	invalidateFn func(ctx context.Context, req usecase.ResolveRequest) error
	calls        int
}

func (m *mockResolutionService) Resolve(ctx context.Context, req usecase.ResolveRequest) (*usecase.ResolveOutput, error) {
	m.calls++
	if m.resolveFn != nil {
		return m.resolveFn(ctx, req)
	}
	return nil, nil
}

func (m *mockResolutionService) Invalidate(ctx context.Context, req usecase.ResolveRequest) error {
	m.calls++
	if m.invalidateFn != nil {
		return m.invalidateFn(ctx, req)
	}
	return nil
}

// Mock PrefetchService

type mockPrefetchService struct {
	enqueueFn     func(ctx context.Context, req usecase.ResolveRequest) (*repository.PrefetchTask, error)
	processTaskFn func(ctx context.Context, task repository.PrefetchTask) error
}

func (m *mockPrefetchService) Enqueue(ctx context.Context, req usecase.ResolveRequest) (*repository.PrefetchTask, error) {
	if m.enqueueFn != nil {
		return m.enqueueFn(ctx, req)
	}
	return nil, nil
}

func (m *mockPrefetchService) ProcessTask(ctx context.Context, task repository.PrefetchTask) error {
	if m.processTaskFn != nil {
		return m.processTaskFn(ctx, task)
	}
	return nil
}

// Mock HistoryService

type mockHistoryService struct {
	listRecentFn func(ctx context.Context, limit int) ([]*repository.ResolutionRecord, error)
}

func (m *mockHistoryService) ListRecent(ctx context.Context, limit int) ([]*repository.ResolutionRecord, error) {
	if m.listRecentFn != nil {
		return m.listRecentFn(ctx, limit)
	}
	return nil, nil
}

// Mock ArchiveService

type mockArchiveService struct {
	downloadURLFn func(ctx context.Context, subjectID string, season, episode int) (string, error)
}

func (m *mockArchiveService) Store(ctx context.Context, res *model.Resolution, season, episode int) error {
	return nil
}

func (m *mockArchiveService) DownloadURL(ctx context.Context, subjectID string, season, episode int) (string, error) {
	if m.downloadURLFn != nil {
		return m.downloadURLFn(ctx, subjectID, season, episode)
	}
	return "", nil
}
