package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"testplan/internal/config"
	"testplan/pkg/logging"
)

// Application bootstraps and runs the import service.
//
// Initialization happens in two phases:
//  1. NewApplication loads configuration, initializes logging and builds services
//  2. Run serves HTTP until the context is cancelled or a signal arrives
//
// Example usage:
//
//	cfg := app.NewConfig(false, configPath, version)
//	application, err := app.NewApplication(cfg)
//	if err != nil {
//	    return fmt.Errorf("failed to create application: %w", err)
//	}
//	return application.Run(ctx)
type Application struct {
	config   *Config
	service  config.Config
	services *Services
}

// NewApplication creates and initializes a new application instance.
//
// Configuration is read from cfg.ConfigPath unless cfg.Service is already
// set. The logging level comes from the config file, or debug when cfg.Debug
// is set.
func NewApplication(cfg *Config) (*Application, error) {
	var logOutput io.Writer = os.Stderr
	if cfg.LogOutput != nil {
		logOutput = cfg.LogOutput
	}
	// Until the config is read, log at info in text form.
	logging.InitForCLI(logging.LevelInfo, logOutput)

	var svc config.Config
	if cfg.Service != nil {
		svc = *cfg.Service
	} else {
		var err error
		svc, err = config.Load(cfg.ConfigPath)
		if err != nil {
			logging.Error("Bootstrap", err, "Failed to load configuration from %s", cfg.ConfigPath)
			return nil, fmt.Errorf("failed to load configuration from %s: %w", cfg.ConfigPath, err)
		}
	}

	level, err := logging.ParseLevel(svc.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	if cfg.Debug {
		level = logging.LevelDebug
	}
	logging.Init(level, logging.Format(svc.Logging.Format), logOutput)

	services, err := InitializeServices(cfg, svc, nil)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize services")
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return &Application{
		config:   cfg,
		service:  svc,
		services: services,
	}, nil
}

// Services returns the initialized components.
func (a *Application) Services() *Services {
	return a.services
}

// Run serves until ctx is cancelled or SIGINT/SIGTERM arrives, then shuts
// down gracefully.
func (a *Application) Run(ctx context.Context) error {
	return runServer(ctx, a.config, a.service, a.services)
}
