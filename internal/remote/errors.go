package remote

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"testplan/internal/api"
)

// APIError is a non-2xx answer from the remote service.
type APIError struct {
	Method     string
	URL        string
	StatusCode int
	Message    string
}

func newAPIError(method, target string, status int, body []byte) *APIError {
	msg := ""
	var parsed struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Message != "" {
		msg = parsed.Message
	} else {
		msg = strings.TrimSpace(string(body))
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
	}
	return &APIError{Method: method, URL: target, StatusCode: status, Message: msg}
}

func (e *APIError) Error() string {
	s := fmt.Sprintf("%s %s failed with status %d", e.Method, e.URL, e.StatusCode)
	if e.Message != "" {
		s += ": " + e.Message
	}
	return s
}

// Unwrap maps authentication failures and server-side errors to
// api.ErrRemoteUnavailable. Other statuses are request-specific.
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusUnauthorized, e.StatusCode == http.StatusForbidden,
		e.StatusCode == http.StatusTooManyRequests, e.StatusCode >= 500:
		return api.ErrRemoteUnavailable
	default:
		return nil
	}
}

// TransportError is a failure to reach the remote service at all.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

// Unwrap returns both the cause and api.ErrRemoteUnavailable.
func (e *TransportError) Unwrap() []error {
	return []error{api.ErrRemoteUnavailable, e.Err}
}
