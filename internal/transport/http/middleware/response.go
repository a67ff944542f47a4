package middleware

import (
	"encoding/json"
	"net/http"
)

// writeJSONError writes a callable-style error body with the correct Content-Type.
func writeJSONError(w http.ResponseWriter, httpStatus int, status, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(map[string]map[string]string{
		"error": {"status": status, "message": msg},
	})
}
