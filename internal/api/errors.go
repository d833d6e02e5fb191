package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"
)

// Error titles returned in the "error" field.
const (
	errTextRequired    = "Text is required"
	errTextTooShort    = "Text is too short"
	errTextTooLong     = "Text is too long"
	errInvalidBody     = "Invalid request body"
	errUnsupportedType = "Unsupported analysis type"
	errRateLimited     = "Too many requests"
	errInternal        = "Internal server error"
	errMethod          = "Method Not Allowed"
)

// ValidationError is a 400 response. Length fields are set only for
// length violations.
type ValidationError struct {
	Title         string `json:"error"`
	Details       string `json:"details,omitempty"`
	CurrentLength *int   `json:"currentLength,omitempty"`
	MinLength     *int   `json:"minLength,omitempty"`
	MaxLength     *int   `json:"maxLength,omitempty"`
}

func (e *ValidationError) Error() string {
	if e.Details == "" {
		return e.Title
	}
	return e.Title + ": " + e.Details
}

// RateLimitError is a 429 response.
type RateLimitError struct {
	Title      string `json:"error"`
	Details    string `json:"details"`
	RetryAfter int    `json:"retryAfter"`
}

func (e *RateLimitError) Error() string {
	return e.Title + ": " + e.Details
}

type internalError struct {
	Title   string `json:"error"`
	Details string `json:"details"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to write response")
	}
}

func writeValidation(w http.ResponseWriter, e *ValidationError) {
	writeJSON(w, http.StatusBadRequest, e)
}

func writeRateLimited(w http.ResponseWriter, e *RateLimitError) {
	w.Header().Set("Retry-After", strconv.Itoa(e.RetryAfter))
	writeJSON(w, http.StatusTooManyRequests, e)
}

// writeInternal reports an unexpected failure without leaking its cause.
func writeInternal(w http.ResponseWriter, details string) {
	writeJSON(w, http.StatusInternalServerError, internalError{
		Title:   errInternal,
		Details: details,
	})
}

func intPtr(v int) *int { return &v }
