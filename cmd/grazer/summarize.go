package main

import (
	"github.com/spf13/cobra"

	"github.com/kingrea/grazer/internal/pipeline"
)

func newSummarizeCmd() *cobra.Command {
	var wf weekFlags
	var rf runFlags
	var withSync bool

	cmd := &cobra.Command{
		Use:   "summarize [owner/name...]",
		Short: "Generate per-repository summaries from cached activity",
		Long:  "summarize builds a prompt from each repository's cached week and drives the generation CLI to produce a structured summary, retrying when the output fails validation. The cache must already exist; pass --sync to fetch first.",
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
				Fetch:         withSync,
				RepoSummaries: true,
				Options:       rf.options(),
			})
			return a.finish("summarize", report)
		},
	}
	wf.register(cmd)
	rf.register(cmd, false)
	cmd.Flags().BoolVar(&withSync, "sync", false, "fetch activity before summarizing")
	return cmd
}
