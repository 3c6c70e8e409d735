package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/hszk-dev/streamresolve/internal/domain/model"
	"github.com/hszk-dev/streamresolve/internal/usecase"
)

// ResolveResponse describes a resolved download.
// Field names follow the payload format existing clients consume.
type ResolveResponse struct {
	Title          string          `json:"title"`
	ReleaseYear    *string         `json:"releaseYear"`
	SubjectID      string          `json:"subjectId"`
	MovieURL       string          `json:"movieUrl"`
	DownloadAPIURL string          `json:"downloadApiUrl"`
	Data           json.RawMessage `json:"data"`
	Cached         bool            `json:"cached"`
}

// ResolveHandler handles resolution requests.
type ResolveHandler struct {
	svc usecase.ResolutionService
}

// NewResolveHandler creates a new ResolveHandler.
func NewResolveHandler(svc usecase.ResolutionService) *ResolveHandler {
	return &ResolveHandler{svc: svc}
}

// Download handles GET /download?tmdb_id=&type=movie|tv&se=&ep=
// Any type other than "tv" is treated as a movie.
func (h *ResolveHandler) Download(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	externalID := strings.TrimSpace(q.Get("tmdb_id"))
	if externalID == "" {
		Error(w, http.StatusBadRequest, string(model.KindValidation),
			"Please provide a TMDB ID using the 'tmdb_id' query parameter")
		return
	}

	mediaType := model.MediaMovie
	if q.Get("type") == "tv" {
		mediaType = model.MediaSeries
	}

	season, episode, err := parseEpisode(q, "se", "ep")
	if err != nil {
		Error(w, http.StatusBadRequest, string(model.KindValidation), err.Error())
		return
	}

	h.resolve(w, r, usecase.ResolveRequest{
		MediaType:  mediaType,
		ExternalID: externalID,
		Season:     season,
		Episode:    episode,
	})
}

// Resolve handles GET /v1/resolve?external_id=&type=movie|series&season=&episode=
func (h *ResolveHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	req, ok := parseResolveRequest(w, r)
	if !ok {
		return
	}
	h.resolve(w, r, req)
}

// Invalidate handles DELETE /v1/resolve?external_id=&type=&season=&episode=
func (h *ResolveHandler) Invalidate(w http.ResponseWriter, r *http.Request) {
	req, ok := parseResolveRequest(w, r)
	if !ok {
		return
	}

	if err := h.svc.Invalidate(r.Context(), req); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ResolveHandler) resolve(w http.ResponseWriter, r *http.Request, req usecase.ResolveRequest) {
	out, err := h.svc.Resolve(r.Context(), req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	JSON(w, http.StatusOK, NewResolveResponse(out))
}

// parseResolveRequest reads the strict query form shared by the /v1/resolve
// routes. It writes a 400 response and returns false on invalid input.
func parseResolveRequest(w http.ResponseWriter, r *http.Request) (usecase.ResolveRequest, bool) {
	q := r.URL.Query()

	externalID := strings.TrimSpace(q.Get("external_id"))
	if externalID == "" {
		Error(w, http.StatusBadRequest, string(model.KindValidation), model.ErrMissingExternalID.Error())
		return usecase.ResolveRequest{}, false
	}

	mediaType, err := model.ParseMediaType(q.Get("type"))
	if err != nil {
		Error(w, http.StatusBadRequest, string(model.KindValidation), err.Error())
		return usecase.ResolveRequest{}, false
	}

	season, episode, err := parseEpisode(q, "season", "episode")
	if err != nil {
		Error(w, http.StatusBadRequest, string(model.KindValidation), err.Error())
		return usecase.ResolveRequest{}, false
	}

	return usecase.ResolveRequest{
		MediaType:  mediaType,
		ExternalID: externalID,
		Season:     season,
		Episode:    episode,
	}, true
}

func parseEpisode(q url.Values, seasonKey, episodeKey string) (int, int, error) {
	season, err := parseNonNegative(q.Get(seasonKey))
	if err != nil {
		return 0, 0, fmt.Errorf("%s: %w", seasonKey, err)
	}
	episode, err := parseNonNegative(q.Get(episodeKey))
	if err != nil {
		return 0, 0, fmt.Errorf("%s: %w", episodeKey, err)
	}
	return season, episode, nil
}

// parseNonNegative parses an optional count; empty means zero.
func parseNonNegative(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, model.ErrInvalidEpisode
	}
	return n, nil
}

// NewResolveResponse renders a successful resolution.
func NewResolveResponse(out *usecase.ResolveOutput) ResolveResponse {
	res := out.Resolution
	resp := ResolveResponse{
		Title:          res.Title,
		SubjectID:      res.SubjectID,
		MovieURL:       res.SourceURL,
		DownloadAPIURL: res.DownloadEndpoint,
		Data:           res.Payload,
		Cached:         out.Cached,
	}
	if res.ReleaseYear != "" {
		year := res.ReleaseYear
		resp.ReleaseYear = &year
	}
	return resp
}
