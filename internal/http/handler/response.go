package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jaekwang-park/todo-notes/internal/repository"
	"github.com/jaekwang-park/todo-notes/internal/service"
)

const maxBodySize = 1 << 20 // 1 MB

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

type CreatedResponse struct {
	ID string `json:"id"`
}

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
		},
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		WriteError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return false
	}
	return true
}

// handleServiceError maps a mutation failure to the response of the
// request that initiated it.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		WriteError(w, http.StatusBadRequest, "INVALID_INPUT", err.Error())
	case errors.Is(err, service.ErrNotFound):
		WriteError(w, http.StatusNotFound, "NOT_FOUND", "resource not found")
	case errors.Is(err, repository.ErrPermissionDenied):
		slog.WarnContext(r.Context(), "store rejected write", "error", err)
		WriteError(w, http.StatusForbidden, "FORBIDDEN", "access denied")
	case errors.Is(err, repository.ErrNetworkFailure):
		slog.WarnContext(r.Context(), "store unreachable", "error", err)
		WriteError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "the store could not be reached, please try again")
	default:
		slog.ErrorContext(r.Context(), "write failed", "error", err)
		WriteError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
}
