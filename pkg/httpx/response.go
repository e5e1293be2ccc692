package httpx

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the JSON error body shared by every endpoint.
// Authentication failures deliberately carry a generic description; the
// specific cause only appears in server-side logs.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	Field            string `json:"field,omitempty"`
	RetryAfterSec    int    `json:"retry_after_seconds,omitempty"`
}

// WriteJSON writes a JSON response with the given status code. Token and
// session payloads must never be cached, so Cache-Control is always set.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes a structured error body.
func WriteError(w http.ResponseWriter, code int, errCode, desc string) {
	WriteJSON(w, code, ErrorResponse{Error: errCode, ErrorDescription: desc})
}

// NoCache sets the Cache-Control and Pragma headers to prevent caching.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}
