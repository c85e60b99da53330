// Package api holds the wire contract shared by the testplan server, its
// client, and the import pipeline.
//
// It deliberately imports no other testplan package so that every layer can
// depend on it without cycles.
//
// # Contents
//
//   - Request and response types for the HTTP API (ImportRequest,
//     ImportStatus, ListPlansResponse, ...)
//   - The task status enumeration shared by server and client
//   - The error taxonomy: ErrInvalidRequest, ErrRemoteUnavailable,
//     NotFoundError and per-scenario ScenarioFailure records
//
// # Error handling
//
// Errors are classified with errors.Is and errors.As:
//
//	if api.IsNotFound(err) {
//	    // 404
//	}
//	if errors.Is(err, api.ErrRemoteUnavailable) {
//	    // 502
//	}
package api
