// Package api defines the response contracts for the HTTP surface.
// It decouples the API structure from the internal domain models.
package api

import (
	"encoding/json"
	"net/http"
)

// Response is the standard envelope for every API response. Errors surface
// as {success:false, error:<message>} rather than bare status codes so
// clients can handle both shapes uniformly.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Success writes a successful JSON response with the given payload.
func Success(w http.ResponseWriter, statusCode int, data interface{}) {
	writeJSON(w, statusCode, Response{Success: true, Data: data})
}

// Error writes a standardized error response.
func Error(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, Response{Success: false, Error: message})
}

func writeJSON(w http.ResponseWriter, statusCode int, body Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	// The envelope only carries JSON-safe payloads; if encoding still fails
	// the status line has already been written.
	_ = json.NewEncoder(w).Encode(body)
}
