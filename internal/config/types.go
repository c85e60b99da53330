package config

import "time"

// Config is the top-level configuration structure for the import service.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Remote  RemoteConfig  `yaml:"remote"`
	Imports ImportsConfig `yaml:"imports"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host              string        `yaml:"host,omitempty"`              // Address to bind to (default: 0.0.0.0)
	Port              int           `yaml:"port,omitempty"`              // Port to listen on (default: 5050)
	ReadHeaderTimeout time.Duration `yaml:"readHeaderTimeout,omitempty"` // Slowloris guard (default: 10s)
	ShutdownTimeout   time.Duration `yaml:"shutdownTimeout,omitempty"`   // Grace period for in-flight imports (default: 30s)
}

// RemoteConfig describes the test-management service.
type RemoteConfig struct {
	OrganizationURL     string        `yaml:"organizationURL,omitempty"`     // Collection URL, e.g. http://tfs:8080/tfs/DefaultCollection
	APIVersion          string        `yaml:"apiVersion,omitempty"`          // REST api-version query value (default: 5.0)
	RequestTimeout      time.Duration `yaml:"requestTimeout,omitempty"`      // Per-request timeout (default: 60s)
	RetrySteps          int           `yaml:"retrySteps,omitempty"`          // Attempts for transient failures (default: 4)
	RetryInitialBackoff time.Duration `yaml:"retryInitialBackoff,omitempty"` // First retry delay, doubled per step (default: 500ms)
}

// ImportsConfig tunes the orchestrator and the generated content.
type ImportsConfig struct {
	MaxConcurrent           int    `yaml:"maxConcurrent,omitempty"`           // Parallel reconciliations across projects (default: 4)
	CaseDescriptionTemplate string `yaml:"caseDescriptionTemplate,omitempty"` // text/template with sprig functions
	PlanDescriptionTemplate string `yaml:"planDescriptionTemplate,omitempty"` // text/template with sprig functions
}

// LoggingConfig selects verbosity and output format.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`  // debug, info, warn or error
	Format string `yaml:"format,omitempty"` // text or json
}
