package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"social-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// maxBodySize bounds JSON bodies; base64 images inflate by a third
const maxBodySize = 8 << 20

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse represents a plain acknowledgement
type MessageResponse struct {
	Message string `json:"message"`
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}

// respondJSON sends body as JSON with the given status
func respondJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// respondServiceError maps a service error to its status code. Errors without
// a kind are logged and reported as 500.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	var svcErr *services.Error
	if errors.As(err, &svcErr) {
		switch {
		case errors.Is(err, services.ErrInvalidInput):
			respondError(w, svcErr.Message, http.StatusBadRequest)
			return
		case errors.Is(err, services.ErrNotFound):
			respondError(w, svcErr.Message, http.StatusNotFound)
			return
		case errors.Is(err, services.ErrForbidden):
			respondError(w, svcErr.Message, http.StatusForbidden)
			return
		case errors.Is(err, services.ErrUnauthorized):
			respondError(w, svcErr.Message, http.StatusUnauthorized)
			return
		}
	}

	log.Error().
		Err(err).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg(msg)
	respondError(w, "Internal Server Error", http.StatusInternalServerError)
}

// decodeJSON reads a bounded JSON body into v
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return false
		}
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// listOptions parses limit and offset query parameters, ignoring malformed values
func listOptions(r *http.Request) services.ListOptions {
	var opts services.ListOptions

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil {
			opts.Limit = parsedLimit
		}
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if parsedOffset, err := strconv.Atoi(offsetStr); err == nil {
			opts.Offset = parsedOffset
		}
	}

	return opts
}
