package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hszk-dev/streamresolve/internal/domain/model"
	"github.com/hszk-dev/streamresolve/internal/domain/repository"
	"github.com/hszk-dev/streamresolve/internal/usecase"
)

func TestHistoryHandler_List(t *testing.T) {
	createdAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	records := []*repository.ResolutionRecord{
		{
			ID:          uuid.New(),
			ExternalID:  "27205",
			MediaType:   model.MediaMovie,
			Title:       "Inception",
			ReleaseYear: "2010",
			SubjectID:   "12345",
			CreatedAt:   createdAt,
		},
		{
			ID:           uuid.New(),
			ExternalID:   "603",
			MediaType:    model.MediaMovie,
			ErrorKind:    model.KindNoMatchFound,
			ErrorMessage: "Download unavailable",
			CreatedAt:    createdAt,
		},
	}

	tests := []struct {
		name           string
		query          string
		wantLimit      int
		listErr        error
		wantStatusCode int
	}{
		{name: "default limit", query: "", wantLimit: 0, wantStatusCode: http.StatusOK},
		{name: "explicit limit", query: "?limit=5", wantLimit: 5, wantStatusCode: http.StatusOK},
		{name: "non numeric limit", query: "?limit=ten", wantStatusCode: http.StatusBadRequest},
		{name: "out of range", query: "?limit=500", wantLimit: 500, listErr: usecase.ErrInvalidLimit, wantStatusCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotLimit := -1
			svc := &mockHistoryService{
				listRecentFn: func(ctx context.Context, limit int) ([]*repository.ResolutionRecord, error) {
					gotLimit = limit
					if tt.listErr != nil {
						return nil, tt.listErr
					}
					return records, nil
				},
			}

			req := httptest.NewRequest(http.MethodGet, "/v1/resolutions"+tt.query, nil)
			rec := httptest.NewRecorder()
			NewHistoryHandler(svc).List(rec, req)

			if rec.Code != tt.wantStatusCode {
				t.Fatalf("expected status %d, got %d", tt.wantStatusCode, rec.Code)
			}
			if tt.wantStatusCode != http.StatusOK {
				return
			}
			if gotLimit != tt.wantLimit {
				t.Errorf("limit = %d, want %d", gotLimit, tt.wantLimit)
			}

			var resp ListResolutionsResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to unmarshal response: %v", err)
			}
			if len(resp.Resolutions) != 2 {
				t.Fatalf("got %d resolutions, want 2", len(resp.Resolutions))
			}
			if resp.Resolutions[0].SubjectID != "12345" || resp.Resolutions[0].ErrorKind != "" {
				t.Errorf("unexpected first record %+v", resp.Resolutions[0])
			}
			if resp.Resolutions[1].ErrorKind != "no_match_found" {
				t.Errorf("error_kind = %q", resp.Resolutions[1].ErrorKind)
			}
			if resp.Resolutions[0].CreatedAt != "2026-03-01T12:00:00Z" {
				t.Errorf("created_at = %q", resp.Resolutions[0].CreatedAt)
			}
		})
	}
}

func TestHistoryHandler_List_Empty(t *testing.T) {
	svc := &mockHistoryService{
		listRecentFn: func(ctx context.Context, limit int) ([]*repository.ResolutionRecord, error) {
			return nil, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/resolutions", nil)
	rec := httptest.NewRecorder()
	NewHistoryHandler(svc).List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if string(raw["resolutions"]) != "[]" {
		t.Errorf("resolutions = %s, want []", raw["resolutions"])
	}
}
