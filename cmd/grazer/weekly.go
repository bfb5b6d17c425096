package main

import (
	"github.com/spf13/cobra"

	"github.com/kingrea/grazer/internal/pipeline"
)

func newWeeklyCmd() *cobra.Command {
	var wf weekFlags
	var rf runFlags

	cmd := &cobra.Command{
		Use:   "weekly",
		Short: "Generate the ecosystem-wide weekly report",
		Long:  "weekly rolls every group summary of a week into one ecosystem report. Weeks are processed strictly oldest first so each report can reference the previous ones; at least one group summary must exist for the week.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(&rf)
			if err != nil {
				return err
			}
			defer a.close()

			weeks, err := wf.resolve(a.cfg)
			if err != nil {
				return err
			}

			report := a.scheduler(&rf).Run(cmd.Context(), pipeline.Plan{
				Weeks:   weeks,
				Weekly:  true,
				Options: rf.options(),
			})
			return a.finish("weekly", report)
		},
	}
	wf.register(cmd)
	rf.register(cmd, false)
	return cmd
}
