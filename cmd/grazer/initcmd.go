package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kingrea/grazer/internal/config"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write starter configuration files",
		Long:  "init writes " + config.ConfigFileName + " and " + config.KeysFileName + " into the current directory. Existing files are never overwritten.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return err
			}
			if err := config.Init(cwd); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s and %s\n", config.ConfigFileName, config.KeysFileName)
			fmt.Fprintln(cmd.OutOrStdout(), "edit the repository list, then add your GitHub token to "+config.KeysFileName)
			return nil
		},
	}
}
