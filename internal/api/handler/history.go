package handler

import (
	"net/http"
	"strconv"

	"github.com/hszk-dev/streamresolve/internal/domain/model"
	"github.com/hszk-dev/streamresolve/internal/domain/repository"
	"github.com/hszk-dev/streamresolve/internal/usecase"
)

type ResolutionRecordResponse struct {
	ID               string `json:"id"`
	ExternalID       string `json:"external_id"`
	Type             string `json:"type"`
	Title            string `json:"title,omitempty"`
	ReleaseYear      string `json:"release_year,omitempty"`
	Season           int    `json:"season"`
	Episode          int    `json:"episode"`
	SubjectID        string `json:"subject_id,omitempty"`
	SourceURL        string `json:"source_url,omitempty"`
	DownloadEndpoint string `json:"download_endpoint,omitempty"`
	ErrorKind        string `json:"error_kind,omitempty"`
	ErrorMessage     string `json:"error_message,omitempty"`
	Cached           bool   `json:"cached"`
	CreatedAt        string `json:"created_at"`
}

type ListResolutionsResponse struct {
	Resolutions []ResolutionRecordResponse `json:"resolutions"`
}

// HistoryHandler lists recorded resolutions.
type HistoryHandler struct {
	svc usecase.HistoryService
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(svc usecase.HistoryService) *HistoryHandler {
	return &HistoryHandler{svc: svc}
}

// List handles GET /v1/resolutions?limit=N
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			Error(w, http.StatusBadRequest, string(model.KindValidation), usecase.ErrInvalidLimit.Error())
			return
		}
		limit = n
	}

	records, err := h.svc.ListRecent(r.Context(), limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := ListResolutionsResponse{Resolutions: make([]ResolutionRecordResponse, 0, len(records))}
	for _, rec := range records {
		resp.Resolutions = append(resp.Resolutions, toRecordResponse(rec))
	}
	JSON(w, http.StatusOK, resp)
}

func toRecordResponse(rec *repository.ResolutionRecord) ResolutionRecordResponse {
	return ResolutionRecordResponse{
		ID:               rec.ID.String(),
		ExternalID:       rec.ExternalID,
		Type:             rec.MediaType.String(),
		Title:            rec.Title,
		ReleaseYear:      rec.ReleaseYear,
		Season:           rec.Season,
		Episode:          rec.Episode,
		SubjectID:        rec.SubjectID,
		SourceURL:        rec.SourceURL,
		DownloadEndpoint: rec.DownloadEndpoint,
		ErrorKind:        string(rec.ErrorKind),
		ErrorMessage:     rec.ErrorMessage,
		Cached:           rec.Cached,
		CreatedAt:        rec.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
