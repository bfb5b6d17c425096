package main

import (
	"github.com/spf13/cobra"

	"github.com/kingrea/grazer/internal/pipeline"
)

func newSyncCmd() *cobra.Command {
	var wf weekFlags
	var rf runFlags
	var scanOnly bool

	cmd := &cobra.Command{
		Use:   "sync [owner/name...]",
		Short: "Fetch GitHub activity into the local cache",
		Long:  "sync downloads issues, pull requests, discussions, and releases for the selected weeks and caches them as raw week files. Fresh, valid caches are left alone unless --force is given. With --scan-only no activity is fetched; existing caches are rescanned for user profiles that are not cached yet.",
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

			if scanOnly {
				a.console.Step("scanning %d repositories across %d weeks for user profiles", len(repos), len(weeks))
				report := &pipeline.RunReport{}
				for _, wk := range weeks {
					for _, repo := range repos {
						report.Add(a.orch.ScanUsers(cmd.Context(), repo, wk))
					}
				}
				return a.finish("scan", report)
			}

			a.console.Step("syncing %d repositories across %d weeks", len(repos), len(weeks))
			report := a.scheduler(&rf).Run(cmd.Context(), pipeline.Plan{
				Repos:   repos,
				Weeks:   weeks,
				Fetch:   true,
				Options: rf.options(),
			})
			return a.finish("sync", report)
		},
	}
	wf.register(cmd)
	rf.register(cmd, false)
	return cmd
}
