package main

import (
	"github.com/spf13/cobra"

	"github.com/kingrea/grazer/internal/pipeline"
)

func newGroupCmd() *cobra.Command {
	var wf weekFlags
	var rf runFlags
	var all bool

	cmd := &cobra.Command{
		Use:   "group [name]",
		Short: "Generate group rollup summaries",
		Long:  "group combines the available repository summaries of a configured group into one rollup per week. Members without a valid summary are noted in the prompt rather than blocking the rollup; a group with no summaries at all fails.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(&rf)
			if err != nil {
				return err
			}
			defer a.close()

			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			groups, err := a.resolveGroups(name, all)
			if err != nil {
				return err
			}
			weeks, err := wf.resolve(a.cfg)
			if err != nil {
				return err
			}

			report := a.scheduler(&rf).Run(cmd.Context(), pipeline.Plan{
				Groups:         groups,
				Weeks:          weeks,
				GroupSummaries: true,
				Options:        rf.options(),
			})
			return a.finish("group", report)
		},
	}
	wf.register(cmd)
	rf.register(cmd, false)
	cmd.Flags().BoolVar(&all, "all", false, "process every configured group")
	return cmd
}
