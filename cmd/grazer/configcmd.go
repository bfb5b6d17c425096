package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the resolved configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(nil)
			if err != nil {
				return err
			}
			defer a.close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "project:   %s\n", a.cfg.Project.Name)
			fmt.Fprintf(out, "root:      %s\n", a.cfg.RootDir)
			fmt.Fprintf(out, "data:      %s\n", a.cfg.DataDir())
			fmt.Fprintf(out, "generator: %s %v (%d workers)\n", a.cfg.Claude.Command, a.cfg.Claude.Args, a.cfg.Claude.ParallelWorkers)
			fmt.Fprintf(out, "reporting: %d week(s), cache max age %s, lookback %d\n",
				a.cfg.Reporting.DefaultWeeks, a.cfg.CacheMaxAge(), a.cfg.Reporting.LookbackWeeks)
			if a.cfg.GitHubToken != "" {
				fmt.Fprintln(out, "github:    token configured")
			} else {
				fmt.Fprintln(out, "github:    no token (unauthenticated, low rate limits)")
			}

			for _, key := range a.cfg.GroupKeys() {
				group, err := a.cfg.Group(key)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "group %s (%s):\n", key, group.Name)
				for _, repo := range group.Repos {
					fmt.Fprintf(out, "  %s\n", repo)
				}
			}
			return nil
		},
	}
}
