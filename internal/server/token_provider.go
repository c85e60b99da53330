package server

import (
	"context"
	"net/http"
	"strings"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// remoteTokenKey is the context key for the caller's credential for the
	// test-management service.
	//nolint:gosec // G101 false positive - this is a context key name, not a credential
	remoteTokenKey contextKey = "remote_token"

	// RemoteTokenHeader carries the remote credential on read-only endpoints.
	RemoteTokenHeader = "X-Remote-Token"
)

// ContextWithRemoteToken stores the caller's remote credential in ctx.
func ContextWithRemoteToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, remoteTokenKey, token)
}

// RemoteTokenFromContext retrieves the remote credential from ctx.
// Returns the token and true if present, or empty string and false if not available.
func RemoteTokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(remoteTokenKey).(string)
	return token, ok && token != ""
}

// remoteTokenInjector copies the credential from the X-Remote-Token header,
// or the token query parameter, into the request context.
func remoteTokenInjector(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimSpace(r.Header.Get(RemoteTokenHeader))
		if token == "" {
			token = r.URL.Query().Get("token")
		}
		if token != "" {
			r = r.WithContext(ContextWithRemoteToken(r.Context(), token))
		}
		next.ServeHTTP(w, r)
	})
}
