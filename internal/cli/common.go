package cli

import (
	"context"
	"fmt"

	"testplan/internal/api"
)

// HealthChecker is implemented by *client.Client.
type HealthChecker interface {
	Health(ctx context.Context) (api.HealthResponse, error)
}

// CheckServerRunning checks if the import server answers its health endpoint.
func CheckServerRunning(ctx context.Context, c HealthChecker) error {
	h, err := c.Health(ctx)
	if err != nil {
		return err
	}
	if h.Status != "ok" {
		return fmt.Errorf("testplan server reports status %q. Try restarting with: testplan serve", h.Status)
	}
	return nil
}

// FormatError formats an error message for CLI output
func FormatError(err error) string {
	return fmt.Sprintf("Error: %v", err)
}

// FormatSuccess formats a success message for CLI output
func FormatSuccess(msg string) string {
	return fmt.Sprintf("✓ %s", msg)
}

// FormatWarning formats a warning message for CLI output
func FormatWarning(msg string) string {
	return fmt.Sprintf("⚠ %s", msg)
}
