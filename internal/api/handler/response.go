package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hszk-dev/streamresolve/internal/domain/model"
	"github.com/hszk-dev/streamresolve/internal/domain/repository"
	"github.com/hszk-dev/streamresolve/internal/usecase"
)

func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			http.Error(w, "failed to encode response", http.StatusInternalServerError)
		}
	}
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func Error(w http.ResponseWriter, status int, kind string, message string) {
	JSON(w, status, ErrorResponse{
		Error: message,
		Kind:  kind,
	})
}

// statusClientClosedRequest is the nginx convention for a request the client
// abandoned before a response was written.
const statusClientClosedRequest = 499

// handleServiceError maps usecase and repository errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error) {
	var resErr *model.ResolutionError
	switch {
	case errors.As(err, &resErr):
		Error(w, statusForKind(resErr.Kind), string(resErr.Kind), resErr.Message)
	case errors.Is(err, usecase.ErrInvalidLimit),
		errors.Is(err, usecase.ErrInvalidSubjectID),
		errors.Is(err, model.ErrInvalidEpisode):
		Error(w, http.StatusBadRequest, string(model.KindValidation), err.Error())
	case errors.Is(err, repository.ErrObjectNotFound):
		Error(w, http.StatusNotFound, "archive_not_found", "Payload has not been archived")
	case errors.Is(err, repository.ErrQueueDisabled):
		Error(w, http.StatusServiceUnavailable, "prefetch_disabled", "Prefetching is not enabled")
	case errors.Is(err, context.Canceled):
		slog.Info("request cancelled by client", "error", err)
		Error(w, statusClientClosedRequest, "canceled", "Request was cancelled")
	case errors.Is(err, context.DeadlineExceeded):
		slog.Info("request deadline exceeded", "error", err)
		Error(w, http.StatusGatewayTimeout, "timeout", "Request timed out")
	default:
		slog.Error("unhandled service error", "error", err)
		Error(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

func statusForKind(kind model.ErrorKind) int {
	switch kind {
	case model.KindValidation:
		return http.StatusBadRequest
	case model.KindNoMatchFound:
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}
