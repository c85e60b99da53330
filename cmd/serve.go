package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"testplan/internal/app"
	"testplan/internal/config"
)

type serveOptions struct {
	debug      bool
	configPath string
}

// newServeCmd defines the serve command, which runs the import service.
func newServeCmd() *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the import service",
		Long: `Starts the HTTP import service.

Imports are accepted on POST /api/v1/imports and run in the background.
Imports of the same project are serialized; different projects run in
parallel up to imports.maxConcurrent.

Configuration:
  testplan reads config.yaml from --config-path (default ~/.config/testplan).
  The file is optional; environment variables override it:
    AZURE_DEVOPS_ORG_URL       remote.organizationURL (required)
    AZURE_DEVOPS_API_VERSION   remote.apiVersion
    LOG_LEVEL                  logging.level
    TESTPLAN_PORT              server.port

  Changes to logging.level in config.yaml are applied without a restart.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&opts.configPath, "config-path", config.GetDefaultConfigPathOrPanic(), "Configuration directory")
	return cmd
}

func runServe(cmd *cobra.Command, opts *serveOptions) error {
	cfg := app.NewConfig(opts.debug, opts.configPath, GetVersion())
	cfg.LogOutput = cmd.ErrOrStderr()

	application, err := app.NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return application.Run(ctx)
}
