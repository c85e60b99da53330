package cmd

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/spf13/cobra"

	"testplan/internal/cli"
	"testplan/internal/client"
	"testplan/pkg/logging"
)

// EnvToken supplies --token when the flag is not given.
const EnvToken = "TESTPLAN_TOKEN"

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// setupClient validates the common flags, configures CLI logging and
// returns a client and printer for the command.
func setupClient(cmd *cobra.Command, flags *cli.CommandFlags) (*client.Client, *cli.Printer, error) {
	if err := flags.Validate(); err != nil {
		return nil, nil, err
	}

	level := logging.LevelWarn
	if flags.Debug {
		level = logging.LevelDebug
	}
	logging.InitForCLI(level, cmd.ErrOrStderr())

	c, err := flags.NewClient()
	if err != nil {
		return nil, nil, err
	}
	p := flags.NewPrinter(cmd.OutOrStdout())
	p.SetColor(colorEnabled(cmd.OutOrStdout(), flags))
	return c, p, nil
}

// colorEnabled reports whether table output goes to a terminal and NO_COLOR is unset.
func colorEnabled(out io.Writer, flags *cli.CommandFlags) bool {
	if cli.OutputFormat(flags.OutputFormat) != cli.OutputFormatTable || os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}

func resolveToken(token string) (string, error) {
	if token != "" {
		return token, nil
	}
	if env := os.Getenv(EnvToken); env != "" {
		return env, nil
	}
	return "", errors.New("a remote credential is required: pass --token or set " + EnvToken)
}
