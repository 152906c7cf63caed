package utils

import (
	"encoding/json"
	"net/http"
)

// RespondJSON sends a JSON response
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// RespondError sends an error response
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// RespondFieldError sends a validation error naming the offending field
func RespondFieldError(w http.ResponseWriter, field, message string) {
	RespondJSON(w, http.StatusBadRequest, map[string]interface{}{
		"success": false,
		"error":   message,
		"field":   field,
	})
}

// DecodeJSON reads a JSON request body of at most 1MB
func DecodeJSON(r *http.Request, dst interface{}) error {
	return json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20)).Decode(dst)
}
