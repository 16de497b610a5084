package api

import (
	"encoding/json"
	"net/http"

	"namereg/internal/errors"
)

// MapErrorToStatus maps error codes to HTTP status codes. Every
// registration failure is a server-side failure, so all codes map to 500.
func MapErrorToStatus(errors.ErrorCode) int {
	return http.StatusInternalServerError
}

// WriteFailure writes the status for code with an empty body.
func WriteFailure(w http.ResponseWriter, code errors.ErrorCode) {
	w.WriteHeader(MapErrorToStatus(code))
}

// WriteJSON writes data as a compact JSON document.
func WriteJSON(w http.ResponseWriter, data any, status int) {
	body, err := json.Marshal(data)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
