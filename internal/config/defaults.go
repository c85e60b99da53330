package config

import "time"

const (
	DefaultHost              = "0.0.0.0"
	DefaultPort              = 5050
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultShutdownTimeout   = 30 * time.Second

	DefaultAPIVersion          = "5.0"
	DefaultRequestTimeout      = 60 * time.Second
	DefaultRetrySteps          = 4
	DefaultRetryInitialBackoff = 500 * time.Millisecond

	DefaultMaxConcurrent = 4
)

// GetDefaultConfig returns the configuration used when no file is present.
func GetDefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Host:              DefaultHost,
			Port:              DefaultPort,
			ReadHeaderTimeout: DefaultReadHeaderTimeout,
			ShutdownTimeout:   DefaultShutdownTimeout,
		},
		Remote: RemoteConfig{
			APIVersion:          DefaultAPIVersion,
			RequestTimeout:      DefaultRequestTimeout,
			RetrySteps:          DefaultRetrySteps,
			RetryInitialBackoff: DefaultRetryInitialBackoff,
		},
		Imports: ImportsConfig{
			MaxConcurrent: DefaultMaxConcurrent,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
