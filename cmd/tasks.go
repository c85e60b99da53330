package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"testplan/internal/api"
	"testplan/internal/cli"
	"testplan/internal/client"
)

type tasksOptions struct {
	flags   cli.CommandFlags
	status  string
	project string
	limit   int
	offset  int
}

func newTasksCmd() *cobra.Command {
	opts := &tasksOptions{}
	cmd := &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"imports"},
		Short:   "List import tasks, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch api.TaskStatus(opts.status) {
			case "", api.TaskPending, api.TaskRunning, api.TaskCompleted, api.TaskFailed:
			default:
				return fmt.Errorf("invalid --status %q (valid: pending, running, completed, failed)", opts.status)
			}

			c, p, err := setupClient(cmd, &opts.flags)
			if err != nil {
				return err
			}
			resp, err := c.ListImports(commandContext(cmd), client.ListOptions{
				Status:  api.TaskStatus(opts.status),
				Project: opts.project,
				Limit:   opts.limit,
				Offset:  opts.offset,
			})
			if err != nil {
				return err
			}
			return p.PrintList(resp)
		},
	}
	cli.RegisterCommonFlags(cmd, &opts.flags)
	cmd.Flags().StringVar(&opts.status, "status", "", "Only tasks in this state (pending, running, completed, failed)")
	cmd.Flags().StringVar(&opts.project, "project", "", "Only tasks of this project")
	cmd.Flags().IntVar(&opts.limit, "limit", 0, "Page size (server default when 0)")
	cmd.Flags().IntVar(&opts.offset, "offset", 0, "Number of tasks to skip")
	return cmd
}
