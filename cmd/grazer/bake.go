package main

import (
	"github.com/spf13/cobra"

	"github.com/kingrea/grazer/internal/entity"
	"github.com/kingrea/grazer/internal/pipeline"
	"github.com/kingrea/grazer/internal/week"
)

func newBakeCmd() *cobra.Command {
	var wf weekFlags
	var rf runFlags
	var skipRepos, skipGroups, skipWeekly bool

	cmd := &cobra.Command{
		Use:   "bake",
		Short: "Run the complete pipeline end to end",
		Long:  "bake runs every stage for the selected weeks: fetch, repository summaries, group rollups, and the weekly report. Existing valid artifacts are skipped by default, so an interrupted bake picks up where it stopped. Individual summary stages can be skipped outright.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(&rf)
			if err != nil {
				return err
			}
			defer a.close()

			repos, err := a.resolveRepos(nil)
			if err != nil {
				return err
			}
			groups, err := a.resolveGroups("", true)
			if err != nil {
				return err
			}
			weeks, err := wf.resolve(a.cfg)
			if err != nil {
				return err
			}

			a.console.Step("baking %d weeks: %d repositories, %d groups", len(weeks), len(repos), len(groups))
			plan := bakePlan(repos, groups, weeks, rf.options(), skipRepos, skipGroups, skipWeekly)
			report := a.scheduler(&rf).Run(cmd.Context(), plan)
			return a.finish("bake", report)
		},
	}
	wf.register(cmd)
	rf.register(cmd, true)
	cmd.Flags().BoolVar(&skipRepos, "skip-repos", false, "skip the repository summary stage")
	cmd.Flags().BoolVar(&skipGroups, "skip-groups", false, "skip the group rollup stage")
	cmd.Flags().BoolVar(&skipWeekly, "skip-weekly", false, "skip the weekly report stage")
	return cmd
}

// bakePlan assembles the full-pipeline plan with the requested stage skips.
// Fetch always runs; a skipped stage leaves later stages consuming whatever
// artifacts are already on disk.
func bakePlan(repos []entity.Repo, groups []entity.Group, weeks []week.Key, opts pipeline.Options, skipRepos, skipGroups, skipWeekly bool) pipeline.Plan {
	return pipeline.Plan{
		Repos:          repos,
		Groups:         groups,
		Weeks:          weeks,
		Fetch:          true,
		RepoSummaries:  !skipRepos,
		GroupSummaries: !skipGroups,
		Weekly:         !skipWeekly,
		Options:        opts,
	}
}
