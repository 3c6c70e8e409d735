package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hszk-dev/streamresolve/internal/domain/model"
	"github.com/hszk-dev/streamresolve/internal/usecase"
)

// ArchiveHandler serves archived download payloads.
type ArchiveHandler struct {
	svc usecase.ArchiveService
}

// NewArchiveHandler creates a new ArchiveHandler.
func NewArchiveHandler(svc usecase.ArchiveService) *ArchiveHandler {
	return &ArchiveHandler{svc: svc}
}

// Get handles GET /v1/archive/{subjectId}?season=&episode=
// Redirects to a presigned object URL.
func (h *ArchiveHandler) Get(w http.ResponseWriter, r *http.Request) {
	season, episode, err := parseEpisode(r.URL.Query(), "season", "episode")
	if err != nil {
		Error(w, http.StatusBadRequest, string(model.KindValidation), err.Error())
		return
	}

	url, err := h.svc.DownloadURL(r.Context(), chi.URLParam(r, "subjectId"), season, episode)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}
