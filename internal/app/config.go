package app

import (
	"io"
	"net"

	"testplan/internal/config"
)

// Config holds the application configuration
type Config struct {
	// Debug forces debug logging regardless of the config file
	Debug bool

	// ConfigPath is the directory holding config.yaml
	ConfigPath string

	// Version is reported by /api/v1/health and /info
	Version string

	// Service is the loaded service configuration. When nil it is read from
	// ConfigPath during NewApplication.
	Service *config.Config

	// Listener overrides the address from Service.Server (optional)
	Listener net.Listener

	// LogOutput receives logs; defaults to stderr
	LogOutput io.Writer
}

// NewConfig creates a new application configuration
func NewConfig(debug bool, configPath, version string) *Config {
	return &Config{
		Debug:      debug,
		ConfigPath: configPath,
		Version:    version,
	}
}
