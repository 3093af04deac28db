package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/npratt/nova/internal/config"
	"github.com/npratt/nova/internal/daemon"
)

var version = "dev"

func main() {
	logLevel := &slog.LevelVar{}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	rootCmd := newRootCmd(logger, logLevel)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// newRootCmd builds the nova command tree.
func newRootCmd(logger *slog.Logger, logLevel *slog.LevelVar) *cobra.Command {
	viper.SetEnvPrefix("NOVA")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd := &cobra.Command{
		Use:   "nova",
		Short: "NOVA guided tours and chat assistant",
		Long: `nova runs NOVA, an on-page assistant that walks visitors through a site with
a narrated guided tour and answers their questions in a chat panel.

Run "nova tour" to take the tour in the terminal (or headless behind a control
socket with --daemon), and "nova serve" to run the chat relay the widget talks to.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Bind only the running command's flags so subcommands sharing a
			// flag name do not shadow each other.
			bindFlags(cmd.Flags())
			bindFlags(cmd.InheritedFlags())
		},
	}

	rootCmd.PersistentFlags().Bool(FlagVerbose, false, "Enable verbose (debug) logging")
	rootCmd.PersistentFlags().String(FlagConfig, "", "Config file path (default: .nova/config.yaml)")
	rootCmd.PersistentFlags().String(FlagLogFile, "", "Event log path")
	rootCmd.PersistentFlags().String(FlagStateFile, "", "State file path")
	rootCmd.PersistentFlags().String(FlagSocketPath, "", "Unix socket path for daemon control")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "nova %s\n", version)
		},
	}

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(newTourCmd(logger, logLevel))
	rootCmd.AddCommand(newServeCmd(logger, logLevel))
	rootCmd.AddCommand(newChatCmd())
	rootCmd.AddCommand(newIdentityCmd())
	rootCmd.AddCommand(newScriptCmd())
	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newEventsCmd())
	for _, c := range newControlCmds() {
		rootCmd.AddCommand(c)
	}
	return rootCmd
}

func bindFlags(flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		_ = viper.BindPFlag(f.Name, f)
	})
}

func setVerbose(logger *slog.Logger, level *slog.LevelVar) {
	if viper.GetBool(FlagVerbose) {
		level.Set(slog.LevelDebug)
		logger.Debug("verbose logging enabled")
	}
}

// loadConfig layers config files, env and global flag overrides, then
// resolves paths against the project root.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if cmd.Flags().Changed(FlagLogFile) {
		cfg.Paths.Log = viper.GetString(FlagLogFile)
	}
	if cmd.Flags().Changed(FlagStateFile) {
		cfg.Paths.State = viper.GetString(FlagStateFile)
	}
	if cmd.Flags().Changed(FlagSocketPath) {
		cfg.Paths.Socket = viper.GetString(FlagSocketPath)
	}

	cfg.Paths, err = daemon.ResolvePaths(cfg.Paths, daemon.FindProjectRoot(""))
	if err != nil {
		return nil, fmt.Errorf("resolve paths: %w", err)
	}
	return cfg, nil
}
