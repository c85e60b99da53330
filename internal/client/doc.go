// Package client is the HTTP client used by the testplan CLI to talk to a
// running import server.
//
// Every method maps one server route. Non-2xx answers come back as
// *ServerError, which unwraps to the matching service error, so callers can
// keep using the same checks they would use in-process:
//
//	st, err := c.GetImport(ctx, id)
//	if api.IsNotFound(err) {
//	    // unknown task id
//	}
//
// Transport failures are returned as *ConnectionError and classified (TLS,
// DNS, timeout, network) so the CLI can print a useful hint.
//
// The client is safe for concurrent use.
package client
