package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/tftscrape/internal/adapters/riot"
)

func newPurgeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "purge [partition-glob]",
		Short: "Removes cached responses whose partition matches the glob (default: league listings).",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			glob := riot.PartitionLeague
			if len(args) == 1 {
				glob = args[0]
			}
			return c.run(cmd, func(ctx context.Context) error {
				n, err := c.svc.Purge(ctx, glob)
				if err != nil {
					return c.fail(ctx, "purge failed", err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "removed %d cached entries matching %q\n", n, glob)
				return nil
			})
		},
	}
}
