package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"disco-backend/internal/apperr"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// handleError maps a service error onto an HTTP response. Internal errors
// are logged and masked.
func handleError(w http.ResponseWriter, err error) {
	status := apperr.StatusCode(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Msg("Request failed")
		respondError(w, "Internal server error", status)
		return
	}
	respondError(w, apperr.MessageOf(err), status)
}

// parseRFC3339 parses a timestamp from a request field
func parseRFC3339(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// decodeJSON decodes a request body, rejecting malformed payloads
func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Validation("invalid request body")
	}
	return nil
}
