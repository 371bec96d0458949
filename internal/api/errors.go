package api

import (
	"encoding/json"
	"net/http"

	"shareit/internal/apperr"

	"github.com/rs/zerolog"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// statusFromError maps the error taxonomy onto HTTP status codes.
func statusFromError(err error) int {
	switch apperr.Kind(err) {
	case "not_found":
		return http.StatusNotFound
	case "forbidden":
		return http.StatusForbidden
	case "validation", "comment_not_eligible":
		return http.StatusBadRequest
	case "conflict":
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeAppError hides internal details from clients and logs them instead.
func writeAppError(w http.ResponseWriter, r *http.Request, logger *zerolog.Logger, err error) {
	code := statusFromError(err)
	kind := apperr.Kind(err)
	msg := err.Error()

	if code == http.StatusInternalServerError {
		logger.Error().Err(err).Str("request_id", requestIDFrom(r.Context())).Str("path", r.URL.Path).Msg("Request failed")
		msg = "internal server error"
	} else {
		logger.Debug().Err(err).Str("kind", kind).Str("path", r.URL.Path).Msg("Request rejected")
	}

	writeJSON(w, code, errorResponse{Error: kind, Message: msg})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, kind, message string) {
	writeJSON(w, statusCode, errorResponse{Error: kind, Message: message})
}
