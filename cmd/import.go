package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"testplan/internal/api"
	"testplan/internal/cli"
	"testplan/internal/testtree"
)

// ImportFailedError is returned by 'import --wait' when the task ends failed.
type ImportFailedError struct {
	TaskID string
	Reason string
}

func (e *ImportFailedError) Error() string {
	return fmt.Sprintf("import %s failed: %s", e.TaskID, e.Reason)
}

type importOptions struct {
	flags        cli.CommandFlags
	project      string
	version      string
	token        string
	file         string
	wait         bool
	pollInterval time.Duration
}

func newImportCmd() *cobra.Command {
	opts := &importOptions{}
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Submit a feature tree for import",
		Long: `Submits a feature tree to the import service.

The tree is read from --file (JSON or YAML, '-' for stdin) and validated
locally before it is sent. Without --wait the command prints the task id and
returns; use 'testplan status <id>' to follow it.

Exit codes with --wait: 0 when the import completed (also with scenario
errors), 3 when it failed.`,
		Example: `  testplan import --project Demo --version 1.2.0 --file features.yaml --token :$PAT --wait`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, opts)
		},
	}

	cli.RegisterCommonFlags(cmd, &opts.flags)
	cmd.Flags().StringVar(&opts.project, "project", "", "Project name")
	cmd.Flags().StringVar(&opts.version, "version", "", "Version of the feature tree (MAJOR.MINOR.PATCH)")
	cmd.Flags().StringVar(&opts.token, "token", "", "Remote credential: domain\\user:password or :PAT (env: "+EnvToken+")")
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "Feature tree file (JSON or YAML), - for stdin")
	cmd.Flags().BoolVar(&opts.wait, "wait", false, "Wait for the import to finish")
	cmd.Flags().DurationVar(&opts.pollInterval, "poll-interval", cli.DefaultPollInterval, "Polling interval with --wait")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("version")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func readTree(cmd *cobra.Command, file string) (json.RawMessage, error) {
	var data []byte
	var err error
	if file == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return nil, fmt.Errorf("reading feature tree: %w", err)
	}

	content, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, api.InvalidRequestf("%s: %v", file, err)
	}
	if _, err := testtree.Decode(content); err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return content, nil
}

func runImport(cmd *cobra.Command, opts *importOptions) error {
	token, err := resolveToken(opts.token)
	if err != nil {
		return err
	}
	content, err := readTree(cmd, opts.file)
	if err != nil {
		return err
	}
	c, p, err := setupClient(cmd, &opts.flags)
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	accepted, err := c.SubmitImport(ctx, api.ImportRequest{
		ProjectName: opts.project,
		Version:     opts.version,
		Token:       token,
		Content:     content,
	})
	if err != nil {
		return err
	}
	if !opts.wait {
		return p.PrintAccepted(accepted)
	}

	st, err := cli.WaitForImport(ctx, c, accepted.TaskID, cli.WaitOptions{
		Interval: opts.pollInterval,
		Quiet:    opts.flags.Quiet,
		Out:      cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	if err := p.PrintStatus(st); err != nil {
		return err
	}
	if st.Status == api.TaskFailed {
		return &ImportFailedError{TaskID: st.TaskID, Reason: st.Error}
	}
	return nil
}
