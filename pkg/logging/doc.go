// Package logging provides the subsystem-oriented logger used across testplan.
//
// It is a thin layer over Go's slog package. Every entry carries a subsystem
// attribute so operators can filter output per component.
//
// # Usage
//
//	logging.Init(logging.LevelInfo, logging.FormatText, os.Stderr)
//
//	logging.Info("Bootstrap", "Listening on %s", addr)
//	logging.Debug("Reconciler", "Found %d candidate plans", n)
//	logging.Warn("AzureClient", "Retrying request to %s", url)
//	logging.Error("Orchestrator", err, "Import %s failed", id)
//
// # Subsystems
//
//   - **Bootstrap**: application start and shutdown
//   - **Config**: configuration loading and reload
//   - **Server**: HTTP API
//   - **Orchestrator**: import task scheduling
//   - **Reconciler**: plan discovery and reconciliation
//   - **AzureClient**: remote test-management calls
//   - **CLI**: command line client
//
// # Runtime level changes
//
// The handler level is backed by a slog.LevelVar, so SetLevel takes effect
// immediately for all goroutines. The config watcher uses this to apply
// logging.level changes without a restart.
package logging
