// Package app wires the import service together and runs it.
//
// NewApplication loads config.yaml (see package config), initializes logging
// and builds the components in dependency order: a prometheus registry, the
// reconciliation policy, the remote gateway factory, the import orchestrator
// and the HTTP server. Run then serves until the context is cancelled or the
// process receives SIGINT or SIGTERM.
//
// While running, changes to config.yaml are picked up for the log level only.
// Everything else requires a restart.
//
// On shutdown the HTTP server stops first, then running imports get until
// server.shutdownTimeout to finish.
package app
