package cmd

import (
	"github.com/spf13/cobra"

	"testplan/internal/api"
	"testplan/internal/cli"
	"testplan/internal/version"
)

func newClassifyCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "classify <old|-> <new>",
		Short: "Classify a version transition locally",
		Long: `Classifies the step from old to new as major, minor, patch or same.
Use - as old for a project without plans. A lower new version is an error.`,
		Example: `  testplan classify 1.2.3 1.3.0   # minor
  testplan classify - 1.0.0       # major`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cli.ValidateOutputFormat(output); err != nil {
				return err
			}
			old := args[0]
			if old == "-" {
				old = ""
			}
			t, err := version.ClassifyStrings(old, args[1])
			if err != nil {
				return err
			}
			p := cli.NewPrinter(cmd.OutOrStdout(), cli.OutputFormat(output), false)
			return p.PrintClassify(api.ClassifyResponse{Old: old, New: args[1], Transition: string(t)})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", string(cli.OutputFormatTable), "Output format (table, json, yaml)")
	return cmd
}
