// Package handlers exposes the HTTP surface: public booking endpoints,
// appointment lifecycle, and admin CRUD for the catalog and schedule.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/solenne-institute/booking/internal/booking"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// writeEngineError maps the engine's failure taxonomy onto status codes.
// Unknown errors become an opaque 500; the detail stays in the server log.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case booking.IsInvalidInput(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, booking.ErrNoEligiblePractitioner):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, booking.ErrSlotConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, booking.ErrIdentityConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
