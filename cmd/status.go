package cmd

import (
	"github.com/spf13/cobra"

	"testplan/internal/cli"
)

func newStatusCmd() *cobra.Command {
	flags := &cli.CommandFlags{}
	cmd := &cobra.Command{
		Use:   "status <task-id>",
		Short: "Show one import task with its log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, p, err := setupClient(cmd, flags)
			if err != nil {
				return err
			}
			st, err := c.GetImport(commandContext(cmd), args[0])
			if err != nil {
				return err
			}
			return p.PrintStatus(st)
		},
	}
	cli.RegisterCommonFlags(cmd, flags)
	return cmd
}
