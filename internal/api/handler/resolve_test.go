package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hszk-dev/streamresolve/internal/domain/model"
	"github.com/hszk-dev/streamresolve/internal/usecase"
)

func inceptionOutput(cached bool) *usecase.ResolveOutput {
	return &usecase.ResolveOutput{
		Metadata: &model.MetadataRecord{ExternalID: "27205", MediaType: model.MediaMovie, Title: "Inception", ReleaseYear: "2010"},
		Resolution: &model.Resolution{
			Title:            "Inception",
			ReleaseYear:      "2010",
			SubjectID:        "12345",
			SourceURL:        "https://moviebox.ng/movies/inception-abc?id=12345",
			DownloadEndpoint: "https://moviebox.ng/wefeed-h5-bff/web/subject/download?subjectId=12345&se=0&ep=0",
			Payload:          json.RawMessage(`{"code":0,"data":{"downloads":[]}}`),
		},
		Cached: cached,
	}
}

func TestResolveHandler_Download(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		resolveErr     error
		wantStatusCode int
		wantRequest    *usecase.ResolveRequest
		wantKind       string
	}{
		{
			name:           "movie",
			query:          "?tmdb_id=27205&type=movie",
			wantStatusCode: http.StatusOK,
			wantRequest:    &usecase.ResolveRequest{MediaType: model.MediaMovie, ExternalID: "27205"},
		},
		{
			name:           "tv with episode",
			query:          "?tmdb_id=1396&type=tv&se=2&ep=5",
			wantStatusCode: http.StatusOK,
			wantRequest:    &usecase.ResolveRequest{MediaType: model.MediaSeries, ExternalID: "1396", Season: 2, Episode: 5},
		},
		{
			name:           "unknown type falls back to movie",
			query:          "?tmdb_id=27205&type=anime",
			wantStatusCode: http.StatusOK,
			wantRequest:    &usecase.ResolveRequest{MediaType: model.MediaMovie, ExternalID: "27205"},
		},
		{
			name:           "missing tmdb_id",
			query:          "?type=movie",
			wantStatusCode: http.StatusBadRequest,
			wantKind:       "validation_error",
		},
		{
			name:           "non numeric season",
			query:          "?tmdb_id=1396&type=tv&se=two",
			wantStatusCode: http.StatusBadRequest,
			wantKind:       "validation_error",
		},
		{
			name:           "negative episode",
			query:          "?tmdb_id=1396&type=tv&se=1&ep=-1",
			wantStatusCode: http.StatusBadRequest,
			wantKind:       "validation_error",
		},
		{
			name:           "no match",
			query:          "?tmdb_id=27205",
			resolveErr:     model.NewResolutionError(model.KindNoMatchFound, nil),
			wantStatusCode: http.StatusNotFound,
			wantKind:       "no_match_found",
		},
		{
			name:           "metadata unavailable",
			query:          "?tmdb_id=27205",
			resolveErr:     model.NewResolutionError(model.KindMetadataUnavailable, errors.New("status 401")),
			wantStatusCode: http.StatusBadGateway,
			wantKind:       "metadata_unavailable",
		},
		{
			name:           "unexpected error",
			query:          "?tmdb_id=27205",
			resolveErr:     errors.New("boom"),
			wantStatusCode: http.StatusInternalServerError,
			wantKind:       "internal_error",
		},
		{
			name:           "client went away",
			query:          "?tmdb_id=27205",
			resolveErr:     context.Canceled,
			wantStatusCode: statusClientClosedRequest,
			wantKind:       "canceled",
		},
		{
			name:           "deadline exceeded",
			query:          "?tmdb_id=27205",
			resolveErr:     context.DeadlineExceeded,
			wantStatusCode: http.StatusGatewayTimeout,
			wantKind:       "timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got usecase.ResolveRequest
			svc := &mockResolutionService{
				resolveFn: func(ctx context.Context, req usecase.ResolveRequest) (*usecase.ResolveOutput, error) {
					got = req
					if tt.resolveErr != nil {
						return nil, tt.resolveErr
					}
					return inceptionOutput(false), nil
				},
			}
			h := NewResolveHandler(svc)

			req := httptest.NewRequest(http.MethodGet, "/download"+tt.query, nil)
			rec := httptest.NewRecorder()

			h.Download(rec, req)

			if rec.Code != tt.wantStatusCode {
				t.Fatalf("expected status %d, got %d: %s", tt.wantStatusCode, rec.Code, rec.Body.String())
			}
			if tt.wantRequest != nil && got != *tt.wantRequest {
				t.Errorf("service got %+v, want %+v", got, *tt.wantRequest)
			}
			if tt.wantKind != "" {
				var resp ErrorResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
					t.Fatalf("failed to unmarshal response: %v", err)
				}
				if resp.Kind != tt.wantKind {
					t.Errorf("kind = %q, want %q", resp.Kind, tt.wantKind)
				}
				if resp.Error == "" {
					t.Error("expected error message")
				}
			}
			if tt.wantStatusCode == http.StatusBadRequest && svc.calls != 0 {
				t.Error("invalid request must not reach the service")
			}
		})
	}
}

func TestResolveHandler_Download_NoMatchMessage(t *testing.T) {
	svc := &mockResolutionService{
		resolveFn: func(ctx context.Context, req usecase.ResolveRequest) (*usecase.ResolveOutput, error) {
			return nil, model.NewResolutionError(model.KindNoMatchFound, nil)
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/download?tmdb_id=27205", nil)
	rec := httptest.NewRecorder()
	NewResolveHandler(svc).Download(rec, req)

	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Error != "Download unavailable" {
		t.Errorf("error = %q, want %q", resp.Error, "Download unavailable")
	}
}

func TestResolveHandler_Download_ResponseBody(t *testing.T) {
	svc := &mockResolutionService{
		resolveFn: func(ctx context.Context, req usecase.ResolveRequest) (*usecase.ResolveOutput, error) {
			return inceptionOutput(true), nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/download?tmdb_id=27205&type=movie", nil)
	rec := httptest.NewRecorder()
	NewResolveHandler(svc).Download(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var resp ResolveResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Title != "Inception" || resp.SubjectID != "12345" {
		t.Errorf("unexpected response %+v", resp)
	}
	if resp.ReleaseYear == nil || *resp.ReleaseYear != "2010" {
		t.Errorf("releaseYear = %v, want 2010", resp.ReleaseYear)
	}
	if resp.MovieURL != "https://moviebox.ng/movies/inception-abc?id=12345" {
		t.Errorf("movieUrl = %q", resp.MovieURL)
	}
	if string(resp.Data) != `{"code":0,"data":{"downloads":[]}}` {
		t.Errorf("data = %s", resp.Data)
	}
	if !resp.Cached {
		t.Error("expected cached=true")
	}
}

func TestResolveHandler_Resolve_SeriesHasNullYear(t *testing.T) {
	svc := &mockResolutionService{
		resolveFn: func(ctx context.Context, req usecase.ResolveRequest) (*usecase.ResolveOutput, error) {
			return &usecase.ResolveOutput{
				Metadata: &model.MetadataRecord{ExternalID: req.ExternalID, MediaType: req.MediaType, Title: "Breaking Bad"},
				Resolution: &model.Resolution{
					Title:     "Breaking Bad",
					SubjectID: "777",
					Payload:   json.RawMessage(`{}`),
				},
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/resolve?external_id=1396&type=series&season=1&episode=1", nil)
	rec := httptest.NewRecorder()
	NewResolveHandler(svc).Resolve(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if string(raw["releaseYear"]) != "null" {
		t.Errorf("releaseYear = %s, want null", raw["releaseYear"])
	}
}

func TestResolveHandler_Resolve_Validation(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"missing external_id", "?type=movie"},
		{"missing type", "?external_id=27205"},
		{"unknown type", "?external_id=27205&type=anime"},
		{"non numeric season", "?external_id=1396&type=series&season=x"},
		{"negative season", "?external_id=1396&type=series&season=-2"},
		{"non numeric episode", "?external_id=1396&type=series&episode=1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockResolutionService{}
			req := httptest.NewRequest(http.MethodGet, "/v1/resolve"+tt.query, nil)
			rec := httptest.NewRecorder()

			NewResolveHandler(svc).Resolve(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d", rec.Code)
			}
			if svc.calls != 0 {
				t.Error("invalid request must not reach the service")
			}
		})
	}
}

func TestResolveHandler_Resolve_AcceptsTVAlias(t *testing.T) {
	var got usecase.ResolveRequest
	svc := &mockResolutionService{
		resolveFn: func(ctx context.Context, req usecase.ResolveRequest) (*usecase.ResolveOutput, error) {
			got = req
			return inceptionOutput(false), nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/resolve?external_id=1396&type=tv", nil)
	rec := httptest.NewRecorder()
	NewResolveHandler(svc).Resolve(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if got.MediaType != model.MediaSeries {
		t.Errorf("media type = %q, want series", got.MediaType)
	}
}

func TestResolveHandler_Invalidate(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		invalidateErr  error
		wantStatusCode int
	}{
		{
			name:           "invalidated",
			query:          "?external_id=27205&type=movie",
			wantStatusCode: http.StatusNoContent,
		},
		{
			name:           "invalid request",
			query:          "?type=movie",
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "metadata unavailable",
			query:          "?external_id=27205&type=movie",
			invalidateErr:  model.NewResolutionError(model.KindMetadataUnavailable, nil),
			wantStatusCode: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockResolutionService{
				invalidateFn: func(ctx context.Context, req usecase.ResolveRequest) error {
					return tt.invalidateErr
				},
			}
			req := httptest.NewRequest(http.MethodDelete, "/v1/resolve"+tt.query, nil)
			rec := httptest.NewRecorder()

			NewResolveHandler(svc).Invalidate(rec, req)

			if rec.Code != tt.wantStatusCode {
				t.Errorf("expected status %d, got %d", tt.wantStatusCode, rec.Code)
			}
		})
	}
}
