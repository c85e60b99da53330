package cmd

import (
	"github.com/spf13/cobra"

	"testplan/internal/cli"
)

type remoteOptions struct {
	flags cli.CommandFlags
	token string
}

func (o *remoteOptions) register(cmd *cobra.Command) {
	cli.RegisterCommonFlags(cmd, &o.flags)
	cmd.Flags().StringVar(&o.token, "token", "", "Remote credential: domain\\user:password or :PAT (env: "+EnvToken+")")
}

func newPlansCmd() *cobra.Command {
	opts := &remoteOptions{}
	cmd := &cobra.Command{
		Use:   "plans <project>",
		Short: "List the test plans of a project",
		Long: `Lists the test plans of a project on the remote service. The plan that
the next import would treat as current is marked with *.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := resolveToken(opts.token)
			if err != nil {
				return err
			}
			c, p, err := setupClient(cmd, &opts.flags)
			if err != nil {
				return err
			}
			resp, err := c.ListPlans(commandContext(cmd), args[0], token)
			if err != nil {
				return err
			}
			return p.PrintPlans(resp)
		},
	}
	opts.register(cmd)
	return cmd
}

func newDecideCmd() *cobra.Command {
	opts := &remoteOptions{}
	cmd := &cobra.Command{
		Use:   "decide <project> <version>",
		Short: "Show what importing a version would do, without writing anything",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := resolveToken(opts.token)
			if err != nil {
				return err
			}
			c, p, err := setupClient(cmd, &opts.flags)
			if err != nil {
				return err
			}
			d, err := c.Decide(commandContext(cmd), args[0], args[1], token)
			if err != nil {
				return err
			}
			return p.PrintDecision(d)
		},
	}
	opts.register(cmd)
	return cmd
}
