// Package mock provides test doubles for the remote test-management service.
//
// Gateway is an in-memory remote.Gateway with failure injection. It is used
// directly by unit tests of the reconciliation and orchestration layers.
//
// HTTPServer exposes a Gateway over the subset of the Azure DevOps REST API
// that remote.AzureClient uses, so that end-to-end tests can run the real
// client against it.
//
// Clock lets tests control the timestamps written into task logs.
package mock
