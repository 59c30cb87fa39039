// Package httpserver contains HTTP handlers and middleware.
//
// Every response uses one envelope: {success, message, data} on handled
// paths, {success:false, message, errors} on validation and auth failures.
// Soft model failures stay HTTP 200 with success:false and the task's
// defaulted shape in data.
package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/algoprep/algoprep-api/internal/domain"
)

type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    any               `json:"data,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, envelope{Success: true, Message: message, Data: data})
}

// writeSoftFailure reports a degraded analysis: transport succeeded, the
// model did not. Always HTTP 200.
func writeSoftFailure(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusOK, envelope{Success: false, Message: message, Data: data})
}

func writeError(w http.ResponseWriter, err error, fieldErrors map[string]string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		status = http.StatusBadGateway
	}
	writeJSON(w, status, envelope{Success: false, Message: err.Error(), Errors: fieldErrors})
}
