// Handler helpers shared across the HTTP surface.
package handlers

import (
	"encoding/json"
	"net/http"
)

const headerContentType = "Content-Type"

// writeJSON encodes v as the response body with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set(headerContentType, "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
	}
}

// writeRawJSON sends already-marshaled JSON unchanged, used when the run
// store hands back the stored result bytes.
func writeRawJSON(w http.ResponseWriter, statusCode int, data []byte) {
	w.Header().Set(headerContentType, "application/json")
	w.WriteHeader(statusCode)
	w.Write(data) //nolint:errcheck
}

// writeError sends a JSON error body with the given status code.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set(headerContentType, "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		http.Error(w, `{"error":"failed to encode error response"}`, http.StatusInternalServerError)
	}
}
