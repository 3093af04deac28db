package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/npratt/nova/internal/config"
	"github.com/npratt/nova/internal/daemon"
	"github.com/npratt/nova/internal/shutdown"
	"github.com/npratt/nova/internal/tui"
)

// daemonOutputName receives a detached daemon's stdout and stderr.
const daemonOutputName = "daemon.out"

func newTourCmd(logger *slog.Logger, logLevel *slog.LevelVar) *cobra.Command {
	tourCmd := &cobra.Command{
		Use:   "tour",
		Short: "Take the guided tour",
		Long: `Run NOVA's guided tour over the configured page.

In a terminal the tour is drawn as a TUI: the page with the highlighted
section and the orb, NOVA's speech bubble and the chat panel. Without a
terminal, or with --daemon, the tour runs headless and is driven with
nova status/pause/resume/next/prev/end/stop.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			setVerbose(logger, logLevel)

			daemonMode := viper.GetBool(FlagDaemon)
			tuiEnabled := viper.GetBool(FlagTUI)
			if !cmd.Flags().Changed(FlagTUI) && !daemonMode {
				tuiEnabled = term.IsTerminal(int(os.Stdout.Fd()))
			}
			if tuiEnabled && daemonMode {
				return fmt.Errorf("--tui and --daemon flags are incompatible")
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			applyTourFlags(cmd, cfg)

			opts := appOptions{logger: logger, voiceOff: viper.GetBool(FlagNoVoice)}
			if tuiEnabled {
				return runTUI(cmd.Context(), cfg, opts, logLevel)
			}
			return runHeadless(cmd.Context(), cfg, opts, daemonMode)
		},
	}

	tourCmd.Flags().Bool(FlagTUI, false, "Force the terminal UI on or off")
	tourCmd.Flags().Bool(FlagDaemon, false, "Run headless in the background")
	tourCmd.Flags().String(FlagScript, "", "Tour script YAML (default: built-in tour)")
	tourCmd.Flags().String(FlagEngine, "", "Speech engine: auto, command, paced or none")
	tourCmd.Flags().Bool(FlagNoVoice, false, "Start with narration muted")
	tourCmd.Flags().Bool(FlagAutoStart, true, "Start the tour shortly after launch")
	tourCmd.Flags().String(FlagEndpoint, "", "Chat relay base URL")
	return tourCmd
}

func applyTourFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed(FlagScript) {
		cfg.Tour.Script = viper.GetString(FlagScript)
	}
	if cmd.Flags().Changed(FlagEngine) {
		cfg.Speech.Engine = viper.GetString(FlagEngine)
	}
	if cmd.Flags().Changed(FlagAutoStart) {
		cfg.Tour.AutoStart = viper.GetBool(FlagAutoStart)
	}
	if cmd.Flags().Changed(FlagEndpoint) {
		cfg.Chat.Endpoint = viper.GetString(FlagEndpoint)
	}
}

// runTUI runs the tour in the foreground terminal until the user quits.
func runTUI(ctx context.Context, cfg *config.Config, opts appOptions, level slog.Leveler) error {
	logResult, err := SetupTUILogger(debugLogDir(cfg), level, cfg.LogRotation)
	if err != nil {
		return err
	}
	defer func() { _ = logResult.Close() }()
	opts.logger = logResult.Logger
	slog.SetDefault(logResult.Logger)

	a, err := newApp(ctx, cfg, opts)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tuiApp := tui.New(a.widget, a.page,
		tui.WithEvents(a.router.SubscribeBuffered(tuiEventBuffer)),
		tui.WithChanges(a.tour.Changes()),
		tui.WithChanges(a.chat.Changes()),
		tui.WithLayout(cfg.Layout),
		tui.WithOnQuit(cancel),
	)
	a.widget.Mount(ctx)

	tuiErr := tuiApp.Run(ctx)
	return errors.Join(tuiErr, a.Close())
}

// runHeadless serves the tour behind the control socket, detaching first
// when asked to.
func runHeadless(ctx context.Context, cfg *config.Config, opts appOptions, detach bool) error {
	logger := opts.logger

	client := daemon.NewClient(cfg.Paths.Socket)
	if client.IsRunning() {
		return fmt.Errorf("daemon already running (socket: %s)", cfg.Paths.Socket)
	}

	if detach {
		shouldExit, _, err := daemon.Daemonize(daemon.DetachOptions{
			Socket: cfg.Paths.Socket,
			Output: filepath.Join(filepath.Dir(cfg.Paths.Log), daemonOutputName),
		})
		if err != nil {
			return fmt.Errorf("daemonize: %w", err)
		}
		if shouldExit {
			return nil
		}
	}

	pid := daemon.NewPIDFile(cfg.Paths.PID)
	pid.CleanupStale(cfg.Paths.Socket)
	if err := pid.Lock(); err != nil {
		return err
	}

	stack := &shutdown.Stack{}
	stack.Push("pid file", func(context.Context) error { return pid.Release() })

	a, err := newApp(ctx, cfg, opts)
	if err != nil {
		_ = stack.Close(context.Background())
		return err
	}
	stack.Push("widget", func(context.Context) error { return a.Close() })

	infoPath := daemon.DaemonInfoPath(daemon.FindProjectRoot(""))
	info := &daemon.DaemonInfo{
		SocketPath: cfg.Paths.Socket,
		PIDPath:    cfg.Paths.PID,
		LogPath:    cfg.Paths.Log,
		StatePath:  cfg.Paths.State,
		Script:     cfg.Tour.Script,
		StartTime:  time.Now(),
		PID:        os.Getpid(),
	}
	if err := daemon.WriteDaemonInfo(infoPath, info); err != nil {
		logger.Warn("failed to write daemon info", "error", err)
	}
	stack.PushFunc("daemon info", func() { _ = daemon.RemoveDaemonInfo(infoPath) })

	dmn := daemon.New(cfg, a.widget, logger)

	logger.Info("nova starting",
		"version", version,
		"socket", cfg.Paths.Socket,
		"log_file", cfg.Paths.Log,
		"state_file", cfg.Paths.State,
		"stops", len(a.script.Stops),
		"daemon_mode", detach,
	)
	return shutdown.Run(ctx, logger, shutdownTimeout,
		func(runCtx context.Context) error {
			a.widget.Mount(runCtx)
			return dmn.Start(runCtx)
		},
		stack,
	)
}
