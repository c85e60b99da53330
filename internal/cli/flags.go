package cli

import (
	"io"
	"time"

	"github.com/spf13/cobra"

	"testplan/internal/client"
)

// CommandFlags holds the common flag values used across CLI commands that talk
// to a running import server.
type CommandFlags struct {
	// OutputFormat specifies the desired output format (table, json, yaml)
	OutputFormat string
	// NoHeaders suppresses the header row in table output
	NoHeaders bool
	// Quiet suppresses progress indicators and non-essential output
	Quiet bool
	// Debug enables request logging on stderr
	Debug bool
	// Server is the base URL of the import server
	Server string
	// Timeout bounds every request to the server
	Timeout time.Duration
}

// RegisterCommonFlags registers the output and connection flags.
//
// The registered flags are:
//   - --output/-o: Output format (table, json, yaml), default: "table"
//   - --no-headers: Suppress header row in table output
//   - --quiet/-q: Suppress non-essential output
//   - --debug: Log requests to stderr
//   - --server: Import server URL (env: TESTPLAN_SERVER)
//   - --request-timeout: Timeout for each request
func RegisterCommonFlags(cmd *cobra.Command, flags *CommandFlags) {
	cmd.PersistentFlags().StringVarP(&flags.OutputFormat, "output", "o", string(OutputFormatTable), "Output format (table, json, yaml)")
	cmd.PersistentFlags().BoolVar(&flags.NoHeaders, "no-headers", false, "Suppress header row in table output")
	cmd.PersistentFlags().BoolVarP(&flags.Quiet, "quiet", "q", false, "Suppress non-essential output")
	RegisterConnectionFlags(cmd, flags)
}

// RegisterConnectionFlags registers only the connection-related flags.
func RegisterConnectionFlags(cmd *cobra.Command, flags *CommandFlags) {
	cmd.PersistentFlags().BoolVar(&flags.Debug, "debug", false, "Log requests to stderr")
	cmd.PersistentFlags().StringVar(&flags.Server, "server", client.GetDefaultEndpoint(), "Import server URL (env: "+client.EnvEndpoint+")")
	cmd.PersistentFlags().DurationVar(&flags.Timeout, "request-timeout", 30*time.Second, "Timeout for each request to the server")
}

// Validate checks the flag combination before any request is made.
func (f *CommandFlags) Validate() error {
	return ValidateOutputFormat(f.OutputFormat)
}

// NewClient creates a client for the configured server.
func (f *CommandFlags) NewClient() (*client.Client, error) {
	return client.New(f.Server, f.Timeout)
}

// NewPrinter creates a printer for the configured output format.
func (f *CommandFlags) NewPrinter(out io.Writer) *Printer {
	return NewPrinter(out, OutputFormat(f.OutputFormat), f.NoHeaders)
}
