// Package server exposes the import service over HTTP.
//
// Routes (all responses are JSON unless noted):
//
//	POST /api/v1/imports                           submit an import, 202 with the task id
//	GET  /api/v1/imports                           list tasks (?status=&project=&limit=&offset=)
//	GET  /api/v1/imports/{id}                      poll one task, including its log
//	GET  /api/v1/test-plans/{project}              list remote plans and the current one
//	GET  /api/v1/debug/classify?old=&new=          classify a version transition
//	GET  /api/v1/debug/version/{project}/{version} show what an import would do
//	GET  /api/v1/health                            liveness
//	GET  /info                                     service description
//	GET  /metrics                                  prometheus exposition (text)
//
// Read-only endpoints that talk to the test-management service take the
// caller's credential from the X-Remote-Token header or the token query
// parameter. Imports carry theirs in the request body. The server never
// keeps credentials beyond the request or task that uses them.
//
// Errors are returned as {"error": ..., "detail": ...} with 400 for invalid
// input and version regressions, 404 for unknown tasks or projects, 502 when
// the remote service is unavailable and 500 otherwise.
package server
