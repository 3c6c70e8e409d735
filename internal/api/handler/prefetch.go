package handler

import (
	"encoding/json"
	"net/http"

	"github.com/hszk-dev/streamresolve/internal/domain/model"
	"github.com/hszk-dev/streamresolve/internal/usecase"
)

type PrefetchRequest struct {
	ExternalID string `json:"external_id"`
	Type       string `json:"type"`
	Season     int    `json:"season"`
	Episode    int    `json:"episode"`
}

type PrefetchResponse struct {
	TaskID     string `json:"task_id"`
	ExternalID string `json:"external_id"`
	Type       string `json:"type"`
	Season     int    `json:"season"`
	Episode    int    `json:"episode"`
}

// PrefetchHandler queues background resolutions.
type PrefetchHandler struct {
	svc usecase.PrefetchService
}

// NewPrefetchHandler creates a new PrefetchHandler.
func NewPrefetchHandler(svc usecase.PrefetchService) *PrefetchHandler {
	return &PrefetchHandler{svc: svc}
}

// Create handles POST /v1/prefetch
func (h *PrefetchHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req PrefetchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, string(model.KindValidation), "Invalid JSON body")
		return
	}

	mediaType, err := model.ParseMediaType(req.Type)
	if err != nil {
		Error(w, http.StatusBadRequest, string(model.KindValidation), err.Error())
		return
	}

	task, err := h.svc.Enqueue(r.Context(), usecase.ResolveRequest{
		MediaType:  mediaType,
		ExternalID: req.ExternalID,
		Season:     req.Season,
		Episode:    req.Episode,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	JSON(w, http.StatusAccepted, PrefetchResponse{
		TaskID:     task.ID.String(),
		ExternalID: task.ExternalID,
		Type:       task.MediaType.String(),
		Season:     task.Season,
		Episode:    task.Episode,
	})
}
