package main

import (
	"context"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newScrapeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "scrape",
		Short: "Crawls every configured league and caches summoner, match-id and match responses.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, func(ctx context.Context) error {
				reports, err := c.svc.Scrape(ctx)

				t := table.NewWriter()
				t.SetOutputMirror(cmd.OutOrStdout())
				t.AppendHeader(table.Row{"League", "Summoners", "Summoner failures", "Match ids", "Fetched", "Cached", "Match failures", "Elapsed"})
				for _, r := range reports {
					t.AppendRow(table.Row{r.League, r.Summoners, r.SummonerFailures, r.MatchIDs, r.MatchesFetched, r.MatchesCached, r.MatchFailures, r.Elapsed.Round(time.Millisecond)})
				}
				t.SetStyle(table.StyleRounded)
				if len(reports) > 0 {
					t.Render()
				}

				if err != nil {
					return c.fail(ctx, "scrape failed", err)
				}
				return nil
			})
		},
	}
}
