package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"testplan/internal/api"
	"testplan/internal/version"
	"testplan/pkg/logging"
)

// statusFor maps the service error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, api.ErrInvalidRequest),
		errors.Is(err, version.ErrInvalidVersion),
		errors.Is(err, version.ErrVersionRegression):
		return http.StatusBadRequest
	case api.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, api.ErrRemoteUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logging.Error("Server", err, "Request failed")
	}
	writeJSON(w, status, api.ErrorResponse{
		Error:  http.StatusText(status),
		Detail: err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("Server", "Writing response: %v", err)
	}
}
