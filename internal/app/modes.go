package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/signal"
	"strconv"
	"syscall"

	"testplan/internal/config"
	"testplan/pkg/logging"
)

// runServer serves HTTP until ctx is done or a termination signal arrives.
//
// Shutdown sequence:
//  1. Stop accepting requests and let in-flight ones finish
//  2. Wait for running imports, bounded by server.shutdownTimeout
//
// Imports still running when the grace period ends are abandoned; their
// tasks are lost with the process.
func runServer(ctx context.Context, cfg *Config, svc config.Config, services *Services) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	l := cfg.Listener
	if l == nil {
		addr := net.JoinHostPort(svc.Server.Host, strconv.Itoa(svc.Server.Port))
		var err error
		if l, err = net.Listen("tcp", addr); err != nil {
			return fmt.Errorf("failed to listen on %s: %w", addr, err)
		}
	}

	if cfg.ConfigPath != "" && cfg.Service == nil {
		w := config.NewWatcher(cfg.ConfigPath, 0, config.ApplyLogLevel)
		if err := w.Start(); err != nil {
			logging.Warn("Bootstrap", "Config reload disabled: %v", err)
		} else {
			defer w.Stop()
		}
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- services.Server.Serve(l)
	}()

	logging.Info("Bootstrap", "Import service started. Press Ctrl+C to stop.")

	select {
	case err := <-serveErr:
		if err != nil {
			logging.Error("Bootstrap", err, "Server stopped unexpectedly")
		}
		return err
	case <-ctx.Done():
	}

	logging.Info("Bootstrap", "Shutting down")
	grace := svc.Server.ShutdownTimeout
	if grace <= 0 {
		grace = config.DefaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), grace)
	defer cancel()

	var errs []error
	if err := services.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := <-serveErr; err != nil {
		errs = append(errs, err)
	}
	if err := services.Orchestrator.Wait(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("waiting for running imports: %w", err))
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	logging.Info("Bootstrap", "Shutdown complete")
	return nil
}
