// Package config provides configuration management for the import service.
//
// Configuration is loaded from a single directory containing config.yaml.
// The default directory is ~/.config/testplan; commands accept --config-path
// to use another one. A missing file is not an error and yields the defaults.
//
// # Precedence
//
//  1. Built-in defaults (GetDefaultConfig)
//  2. config.yaml
//  3. Environment variables: AZURE_DEVOPS_ORG_URL, AZURE_DEVOPS_API_VERSION,
//     LOG_LEVEL, TESTPLAN_PORT
//
// # File Format
//
//	server:
//	  host: 0.0.0.0
//	  port: 5050
//	  readHeaderTimeout: 10s
//	  shutdownTimeout: 30s
//	remote:
//	  organizationURL: http://tfs.local:8080/tfs/DefaultCollection
//	  apiVersion: "5.0"
//	  requestTimeout: 60s
//	  retrySteps: 4
//	  retryInitialBackoff: 500ms
//	imports:
//	  maxConcurrent: 4
//	  caseDescriptionTemplate: "{{ .Description }}"
//	logging:
//	  level: info
//	  format: text
//
// # Live Reload
//
// Watcher observes the directory with fsnotify and reloads config.yaml after
// a short debounce. Only settings that can change safely at runtime (the log
// level) are applied by ApplyLogLevel; everything else needs a restart.
package config
