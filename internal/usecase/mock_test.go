package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hszk-dev/streamresolve/internal/domain/model"
	"github.com/hszk-dev/streamresolve/internal/domain/repository"
)

// mockMetadataService provides a configurable mock for MetadataService.
type mockMetadataService struct {
	getDetailsFn func(ctx context.Context, mediaType model.MediaType, externalID string) (*repository.TitleDetails, error)
	calls        atomic.Int32
}

func (m *mockMetadataService) GetDetails(ctx context.Context, mediaType model.MediaType, externalID string) (*repository.TitleDetails, error) {
	m.calls.Add(1)
	if m.getDetailsFn != nil {
		return m.getDetailsFn(ctx, mediaType, externalID)
	}
	return nil, errors.New("not configured")
}

// mockMetadataCache is a map-backed MetadataCache with optional overrides.
type mockMetadataCache struct {
	mu    sync.RWMutex
	data  map[model.MetadataKey]*model.MetadataRecord
	getFn func(ctx context.Context, key model.MetadataKey) (*model.MetadataRecord, error)
	setFn func(ctx context.Context, rec *model.MetadataRecord, ttl time.Duration) error
	ttls  []time.Duration
}

func newMockMetadataCache() *mockMetadataCache {
	return &mockMetadataCache{data: make(map[model.MetadataKey]*model.MetadataRecord)}
}

func (m *mockMetadataCache) Get(ctx context.Context, key model.MetadataKey) (*model.MetadataRecord, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data[key], nil
}

func (m *mockMetadataCache) Set(ctx context.Context, rec *model.MetadataRecord, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, rec, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[rec.Key()] = rec
	m.ttls = append(m.ttls, ttl)
	return nil
}

// mockResolutionCache is a map-backed ResolutionCache with optional overrides.
type mockResolutionCache struct {
	mu       sync.RWMutex
	data     map[model.ResolutionKey]*model.Resolution
	getFn    func(ctx context.Context, key model.ResolutionKey) (*model.Resolution, error)
	setFn    func(ctx context.Context, key model.ResolutionKey, res *model.Resolution, ttl time.Duration) error
	deleteFn func(ctx context.Context, key model.ResolutionKey) error
}

func newMockResolutionCache() *mockResolutionCache {
	return &mockResolutionCache{data: make(map[model.ResolutionKey]*model.Resolution)}
}

func (m *mockResolutionCache) Get(ctx context.Context, key model.ResolutionKey) (*model.Resolution, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data[key], nil
}

func (m *mockResolutionCache) Set(ctx context.Context, key model.ResolutionKey, res *model.Resolution, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, res, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = res
	return nil
}

func (m *mockResolutionCache) Delete(ctx context.Context, key model.ResolutionKey) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *mockResolutionCache) len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// mockMetadataFetcher provides a configurable mock for MetadataFetcher.
type mockMetadataFetcher struct {
	fetchFn func(ctx context.Context, mediaType model.MediaType, externalID string) (*model.MetadataRecord, error)
	calls   atomic.Int32
}

func (m *mockMetadataFetcher) Fetch(ctx context.Context, mediaType model.MediaType, externalID string) (*model.MetadataRecord, error) {
	m.calls.Add(1)
	if m.fetchFn != nil {
		return m.fetchFn(ctx, mediaType, externalID)
	}
	return nil, model.NewResolutionError(model.KindMetadataUnavailable, nil)
}

// mockResolver provides a configurable mock for Resolver.
type mockResolver struct {
	resolveFn func(ctx context.Context, in ResolveInput) (*model.Resolution, error)
	calls     atomic.Int32
}

func (m *mockResolver) Resolve(ctx context.Context, in ResolveInput) (*model.Resolution, error) {
	m.calls.Add(1)
	if m.resolveFn != nil {
		return m.resolveFn(ctx, in)
	}
	return nil, model.NewResolutionError(model.KindNoMatchFound, nil)
}

// mockResolutionService provides a configurable mock for ResolutionService.
type mockResolutionService struct {
	resolveFn    func(ctx context.Context, req ResolveRequest) (*ResolveOutput, error)
	invalidateFn func(ctx context.Context, req ResolveRequest) error
}

func (m *mockResolutionService) Resolve(ctx context.Context, req ResolveRequest) (*ResolveOutput, error) {
	if m.resolveFn != nil {
		return m.resolveFn(ctx, req)
	}
	return nil, nil
}

func (m *mockResolutionService) Invalidate(ctx context.Context, req ResolveRequest) error {
	if m.invalidateFn != nil {
		return m.invalidateFn(ctx, req)
	}
	return nil
}

// mockHistoryRepository records every outcome in memory.
type mockHistoryRepository struct {
	mu           sync.Mutex
	records      []*repository.ResolutionRecord
	recordFn     func(ctx context.Context, rec *repository.ResolutionRecord) error
	listRecentFn func(ctx context.Context, limit int) ([]*repository.ResolutionRecord, error)
}

func (m *mockHistoryRepository) Record(ctx context.Context, rec *repository.ResolutionRecord) error {
	if m.recordFn != nil {
		return m.recordFn(ctx, rec)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func (m *mockHistoryRepository) ListRecent(ctx context.Context, limit int) ([]*repository.ResolutionRecord, error) {
	if m.listRecentFn != nil {
		return m.listRecentFn(ctx, limit)
	}
	return nil, nil
}

func (m *mockHistoryRepository) snapshot() []*repository.ResolutionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*repository.ResolutionRecord(nil), m.records...)
}

// mockObjectStorage provides a configurable mock for ObjectStorage.
type mockObjectStorage struct {
	generatePresignedDownloadURLFn func(ctx context.Context, key string, expiry time.Duration) (string, error)
	uploadFn                       func(ctx context.Context, key string, reader io.Reader, contentType string) error
	existsFn                       func(ctx context.Context, key string) (bool, error)
}

func (m *mockObjectStorage) GeneratePresignedDownloadURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if m.generatePresignedDownloadURLFn != nil {
		return m.generatePresignedDownloadURLFn(ctx, key, expiry)
	}
	return "http://example.com/download", nil
}

func (m *mockObjectStorage) Upload(ctx context.Context, key string, reader io.Reader, contentType string) error {
	if m.uploadFn != nil {
		return m.uploadFn(ctx, key, reader, contentType)
	}
	return nil
}

func (m *mockObjectStorage) Exists(ctx context.Context, key string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, key)
	}
	return false, nil
}

// mockArchiveService provides a configurable mock for ArchiveService.
type mockArchiveService struct {
	storeFn       func(ctx context.Context, res *model.Resolution, season, episode int) error
	downloadURLFn func(ctx context.Context, subjectID string, season, episode int) (string, error)
	stored        atomic.Int32
}

func (m *mockArchiveService) Store(ctx context.Context, res *model.Resolution, season, episode int) error {
	m.stored.Add(1)
	if m.storeFn != nil {
		return m.storeFn(ctx, res, season, episode)
	}
	return nil
}

func (m *mockArchiveService) DownloadURL(ctx context.Context, subjectID string, season, episode int) (string, error) {
	if m.downloadURLFn != nil {
		return m.downloadURLFn(ctx, subjectID, season, episode)
	}
	return "", repository.ErrObjectNotFound
}

// mockMessageQueue provides a configurable mock for MessageQueue.
type mockMessageQueue struct {
	publishPrefetchTaskFn  func(ctx context.Context, task repository.PrefetchTask) error
	consumePrefetchTasksFn func(ctx context.Context, handler func(task repository.PrefetchTask) error) error
}

func (m *mockMessageQueue) PublishPrefetchTask(ctx context.Context, task repository.PrefetchTask) error {
	if m.publishPrefetchTaskFn != nil {
		return m.publishPrefetchTaskFn(ctx, task)
	}
	return nil
}

func (m *mockMessageQueue) ConsumePrefetchTasks(ctx context.Context, handler func(task repository.PrefetchTask) error) error {
	if m.consumePrefetchTasksFn != nil {
		return m.consumePrefetchTasksFn(ctx, handler)
	}
	return nil
}

func (m *mockMessageQueue) Close() error {
	return nil
}

// fakeCandidate is one scripted search result. An empty Title or Year means
// the detail page does not show it.
type fakeCandidate struct {
	Title       string
	Year        string
	URL         string
	ActivateErr error
}

// fakeSite is a scripted content site that records how it was driven.
type fakeSite struct {
	candidates   []fakeCandidate
	enumerateErr error
	openErr      error
	// fetchFn answers download fetches; attempt is 1-based per session.
	fetchFn func(attempt int, url, referer string) (json.RawMessage, error)
	// panicOn names a session method that panics when called.
	panicOn string

	mu        sync.Mutex
	opens     int
	closes    int
	queries   []string
	activated []int
	goBacks   int
	fetches   []string
	referers  []string
}

func (s *fakeSite) Open(ctx context.Context) (repository.SiteSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.openErr != nil {
		return nil, s.openErr
	}
	s.opens++
	return &fakeSession{site: s, current: -1}, nil
}

func (s *fakeSite) DownloadEndpoint(subjectID string, season, episode int) string {
	return fmt.Sprintf("https://moviebox.test/wefeed-h5-bff/web/subject/download?subjectId=%s&se=%d&ep=%d", subjectID, season, episode)
}

func (s *fakeSite) openCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opens
}

type fakeSession struct {
	site     *fakeSite
	current  int // index into candidates, -1 on the result list
	attempts int
}

func (f *fakeSession) maybePanic(method string) {
	if f.site.panicOn == method {
		panic("fake site: " + method)
	}
}

func (f *fakeSession) EnumerateCandidates(ctx context.Context, query string) ([]repository.CandidateHandle, error) {
	f.maybePanic("EnumerateCandidates")
	f.site.mu.Lock()
	defer f.site.mu.Unlock()
	f.site.queries = append(f.site.queries, query)
	if f.site.enumerateErr != nil {
		return nil, f.site.enumerateErr
	}
	handles := make([]repository.CandidateHandle, len(f.site.candidates))
	for i, c := range f.site.candidates {
		handles[i] = repository.CandidateHandle{Position: i + 1, URL: c.URL, Label: c.Title}
	}
	return handles, nil
}

func (f *fakeSession) Activate(ctx context.Context, h repository.CandidateHandle) error {
	f.maybePanic("Activate")
	f.site.mu.Lock()
	defer f.site.mu.Unlock()
	f.site.activated = append(f.site.activated, h.Position)
	c := f.site.candidates[h.Position-1]
	if c.ActivateErr != nil {
		return c.ActivateErr
	}
	f.current = h.Position - 1
	return nil
}

func (f *fakeSession) ReadTitle(ctx context.Context) (string, bool) {
	if f.current < 0 {
		return "", false
	}
	t := f.site.candidates[f.current].Title
	return t, t != ""
}

func (f *fakeSession) ReadYearText(ctx context.Context) (string, bool) {
	if f.current < 0 {
		return "", false
	}
	y := f.site.candidates[f.current].Year
	return y, y != ""
}

func (f *fakeSession) CurrentURL() string {
	if f.current < 0 {
		return "https://moviebox.test/web/searchResult"
	}
	return f.site.candidates[f.current].URL
}

func (f *fakeSession) GoBackToResults(ctx context.Context) error {
	f.site.mu.Lock()
	defer f.site.mu.Unlock()
	f.site.goBacks++
	f.current = -1
	return nil
}

func (f *fakeSession) FetchInPage(ctx context.Context, url, referer string) (json.RawMessage, error) {
	f.maybePanic("FetchInPage")
	f.site.mu.Lock()
	f.site.fetches = append(f.site.fetches, url)
	f.site.referers = append(f.site.referers, referer)
	f.site.mu.Unlock()

	f.attempts++
	if f.site.fetchFn != nil {
		return f.site.fetchFn(f.attempts, url, referer)
	}
	return json.RawMessage(`{"code":0,"data":{"downloads":[]}}`), nil
}

func (f *fakeSession) Close() error {
	f.site.mu.Lock()
	defer f.site.mu.Unlock()
	f.site.closes++
	return nil
}

// sleepRecorder captures backoff delays instead of sleeping.
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return nil
}

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// inceptionSite returns a site whose first result is Inception (2010).
func inceptionSite() *fakeSite {
	return &fakeSite{
		candidates: []fakeCandidate{
			{Title: "Inception", Year: "2010-07-16", URL: "https://moviebox.test/movies/inception-abc?id=12345"},
		},
	}
}
