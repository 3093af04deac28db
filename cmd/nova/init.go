package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/npratt/nova/internal/daemon"
	"github.com/npratt/nova/internal/scaffold"
)

func newInitCmd() *cobra.Command {
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create a starter .nova directory",
		Long: `Write .nova/config.yaml and an editable .nova/tour.yaml (a copy of the
built-in tour) at the project root. Files that already exist with different
content are shown as diffs and left alone unless --force is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := scaffold.Run(scaffold.Options{
				Root:   daemon.FindProjectRoot(""),
				DryRun: viper.GetBool(FlagDryRun),
				Force:  viper.GetBool(FlagForce),
				Writer: cmd.OutOrStdout(),
			})
			return err
		},
	}
	initCmd.Flags().Bool(FlagDryRun, false, "Show what would change without writing")
	initCmd.Flags().Bool(FlagForce, false, "Overwrite files that have changed")
	return initCmd
}
