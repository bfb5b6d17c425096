package main

import (
	"github.com/spf13/cobra"

	"github.com/kingrea/grazer/internal/pipeline"
)

func newReportCmd() *cobra.Command {
	var wf weekFlags
	var rf runFlags
	var skipSync, skipSummarize bool

	cmd := &cobra.Command{
		Use:   "report [owner/name...]",
		Short: "Sync and summarize in one pass",
		Long:  "report chains sync and summarize for the selected repositories and weeks. Either half can be skipped when its artifacts are already in place.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(&rf)
			if err != nil {
				return err
			}
			defer a.close()

			repos, err := a.resolveRepos(args)
			if err != nil {
				return err
			}
			weeks, err := wf.resolve(a.cfg)
			if err != nil {
				return err
			}

			report := a.scheduler(&rf).Run(cmd.Context(), pipeline.Plan{
				Repos:         repos,
				Weeks:         weeks,
				Fetch:         !skipSync,
				RepoSummaries: !skipSummarize,
				Options:       rf.options(),
			})
			return a.finish("report", report)
		},
	}
	wf.register(cmd)
	rf.register(cmd, false)
	cmd.Flags().BoolVar(&skipSync, "skip-sync", false, "summarize from existing caches without fetching")
	cmd.Flags().BoolVar(&skipSummarize, "skip-summarize", false, "fetch only, leaving summaries untouched")
	return cmd
}
