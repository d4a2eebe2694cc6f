package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/ansuz/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// writeError maps the error taxonomy onto HTTP statuses. Validation is
// the caller's fault, missing documents are 404, exhausted version races
// ask the client to retry, and upstream failures are bad gateways.
func writeError(w http.ResponseWriter, err error) {
	var ve *apperr.ValidationError
	var re *apperr.RetryExhaustedError
	var pe *apperr.ProviderError
	var se *apperr.StoreError

	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorBody(ve.Reason))
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody("already exists"))
	case errors.As(err, &re):
		slog.Warn("index update exhausted retries",
			slog.String("path", re.Path), slog.Int("attempts", re.Attempts))
		writeJSON(w, http.StatusServiceUnavailable, errorBody("index busy, retry later"))
	case errors.As(err, &pe):
		slog.Error("embedding provider failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, errorBody("embedding provider unavailable"))
	case errors.As(err, &se):
		slog.Error("document store failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, errorBody("document store unavailable"))
	default:
		slog.Error("request failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}
