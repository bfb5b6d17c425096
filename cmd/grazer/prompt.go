package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kingrea/grazer/internal/pipeline"
	"github.com/kingrea/grazer/internal/store"
)

func newPromptCmd() *cobra.Command {
	var wf weekFlags
	var rf runFlags
	var showPaths bool

	cmd := &cobra.Command{
		Use:   "prompt [owner/name...]",
		Short: "Write generation prompts without invoking the generator",
		Long:  "prompt builds the repository summary prompts from cached activity and writes them to the prompt tree, stopping before any generation. Useful for inspecting or hand-running prompts.",
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

			opts := rf.options()
			opts.PromptOnly = true
			report := a.scheduler(&rf).Run(cmd.Context(), pipeline.Plan{
				Repos:         repos,
				Weeks:         weeks,
				RepoSummaries: true,
				Options:       opts,
			})

			if showPaths {
				for _, repo := range repos {
					for _, wk := range weeks {
						path := a.store.Path(store.KindPrompt, store.RepoKey(repo, wk))
						fmt.Fprintln(cmd.OutOrStdout(), path)
					}
				}
			}
			return a.finish("prompt", report)
		},
	}
	wf.register(cmd)
	rf.register(cmd, false)
	cmd.Flags().BoolVar(&showPaths, "show-paths", false, "print the prompt file paths that were written")
	return cmd
}
