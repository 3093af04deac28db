package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/npratt/nova/internal/tour"
)

func newScriptCmd() *cobra.Command {
	scriptCmd := &cobra.Command{
		Use:   "script [path]",
		Short: "Validate and print a tour script",
		Long: `Load a tour script, validate it and print it as YAML. Without a path the
configured script (tour.script) or the built-in tour is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			} else {
				cfg, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				path = cfg.Tour.Script
			}

			script, err := tour.LoadScript(path)
			if err != nil {
				return err
			}
			if viper.GetBool(FlagJSON) {
				return writeJSON(cmd.OutOrStdout(), script)
			}
			return printScript(cmd.OutOrStdout(), script)
		},
	}
	scriptCmd.Flags().Bool(FlagJSON, false, "Print the script as JSON")
	return scriptCmd
}

func printScript(w io.Writer, script *tour.Script) error {
	data, err := script.Marshal()
	if err != nil {
		return fmt.Errorf("marshal tour script: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "# %d stops\n", script.Len())
	return err
}
