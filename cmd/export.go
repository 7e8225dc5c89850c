package main

import (
	"context"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newExportCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "export",
		Aliases: []string{"import"},
		Short:   "Flattens every cached match into the six CSV tables.",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, func(ctx context.Context) error {
				report, err := c.svc.Export(ctx)
				if err != nil {
					return c.fail(ctx, "export failed", err)
				}

				t := table.NewWriter()
				t.SetOutputMirror(cmd.OutOrStdout())
				t.AppendHeader(table.Row{"Files", "Flattened", "Skipped", "Data dir"})
				t.AppendRow(table.Row{report.Files, report.Flattened, report.Skipped, c.cfg.Data.Dir})
				if len(report.Failures) > 0 {
					t.AppendSeparator()
					for _, f := range report.Failures {
						t.AppendRow(table.Row{filepath.Base(f.File), "", "skipped", f.Err.Error()})
					}
				}
				t.SetStyle(table.StyleRounded)
				t.Render()
				return nil
			})
		},
	}
}
