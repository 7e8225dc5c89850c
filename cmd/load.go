package main

import (
	"context"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	app "github.com/okian/tftscrape/internal/app"
)

func newLoadCmd(c *cli) *cobra.Command {
	var (
		days   int
		set    string
		tables []string
	)
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Loads the exported tables with the date window and set filter and prints row counts.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, func(ctx context.Context) error {
				req := app.LoadRequest{Tables: tables}
				if cmd.Flags().Changed("days") {
					req.DaysCutoff = &days
				}
				if cmd.Flags().Changed("set") {
					req.SetFilter = &set
				}

				loaded, err := c.svc.Load(ctx, req)
				if err != nil {
					return c.fail(ctx, "load failed", err)
				}

				t := table.NewWriter()
				t.SetOutputMirror(cmd.OutOrStdout())
				t.AppendHeader(table.Row{"Table", "Rows"})
				total := 0
				for _, name := range loaded.Names() {
					tbl, _ := loaded.Table(name)
					t.AppendRow(table.Row{name, tbl.Len()})
					total += tbl.Len()
				}
				t.AppendFooter(table.Row{"Total", total})
				t.SetStyle(table.StyleRounded)
				t.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "keep rows from the last N days, 0 disables the window (default data.days_cutoff)")
	cmd.Flags().StringVar(&set, "set", "", "keep rows whose tft_set_name equals this value (default data.set_filter)")
	cmd.Flags().StringSliceVar(&tables, "tables", nil, "tables to load (default all six)")
	return cmd
}
