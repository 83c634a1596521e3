package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"jobmedia/internal/preflight"
	"jobmedia/internal/queue"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check directories, the queue database, and backend reachability",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return ctx.withStore(func(store *queue.Store) error {
				probes := preflight.Probes{Queue: store}
				if cfg.Remote.BaseURL != "" {
					client, err := ctx.remoteClient()
					if err != nil {
						return err
					}
					probes.Backend = client
				}
				results := preflight.RunAll(cmd.Context(), cfg, probes)
				if jsonOutput {
					return writeJSON(cmd, results)
				}
				out := cmd.OutOrStdout()
				colorize := isTerminal(out)
				for _, result := range results {
					fmt.Fprintln(out, renderStatusLine(result.Name, boolKind(result.Passed), result.Detail, colorize))
				}
				if !preflight.AllPassed(results) {
					return fmt.Errorf("one or more checks failed")
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
