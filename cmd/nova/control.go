package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/npratt/nova/internal/daemon"
	"github.com/npratt/nova/internal/events"
)

// getDaemonClient connects to --socket-path when given, otherwise finds
// daemon.json in the project.
func getDaemonClient(cmd *cobra.Command) (*daemon.Client, error) {
	if cmd.Flags().Changed(FlagSocketPath) {
		return daemon.NewClient(viper.GetString(FlagSocketPath)), nil
	}
	info, err := daemon.FindDaemonInfo("")
	if err != nil {
		return nil, fmt.Errorf("daemon not running: %w", err)
	}
	return daemon.NewClient(info.SocketPath), nil
}

// newControlCmds returns the commands that drive a headless tour.
func newControlCmds() []*cobra.Command {
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show tour status",
		Long: `Show the headless tour's status. When no daemon is running, the summary of
the last tour is read from the state file instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			asJSON := viper.GetBool(FlagJSON)

			client, err := getDaemonClient(cmd)
			if err == nil {
				var status *daemon.StatusResponse
				if status, err = client.Status(); err == nil {
					if asJSON {
						return writeJSON(out, status)
					}
					printStatus(out, status)
					return nil
				}
			}

			statePath, pathErr := lastStatePath(cmd)
			if pathErr != nil {
				return err
			}
			state, stateErr := events.ReadState(statePath)
			if stateErr != nil {
				return err
			}
			if asJSON {
				return writeJSON(out, state)
			}
			fmt.Fprintln(out, "Daemon: not running")
			printState(out, state)
			return nil
		},
	}
	statusCmd.Flags().Bool(FlagJSON, false, "Output status as JSON")

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getDaemonClient(cmd)
			if err != nil {
				return err
			}

			force := viper.GetBool(FlagForce)
			if err := client.Stop(force); err != nil {
				return err
			}

			if force {
				fmt.Fprintln(cmd.OutOrStdout(), "Stop requested - daemon stopping immediately")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Stop requested - tour ended, daemon stopping")
			}
			return nil
		},
	}
	stopCmd.Flags().Bool(FlagForce, false, "Stop immediately without ending the tour")

	cmds := []*cobra.Command{statusCmd, stopCmd}
	for _, c := range []struct {
		use, short, done string
		call             func(*daemon.Client) error
	}{
		{"start", "Start the tour from the greeting", "Tour started", (*daemon.Client).Start},
		{"pause", "Pause the tour and silence narration", "Tour paused", (*daemon.Client).Pause},
		{"resume", "Resume a paused tour", "Tour resumed", (*daemon.Client).Resume},
		{"next", "Skip to the next stop", "Moved to the next stop", (*daemon.Client).Next},
		{"prev", "Go back to the previous stop", "Moved to the previous stop", (*daemon.Client).Prev},
		{"restart", "Start the tour over", "Tour restarted", (*daemon.Client).Restart},
		{"end", "End the tour and keep the daemon running", "Tour ended", (*daemon.Client).End},
	} {
		cmds = append(cmds, &cobra.Command{
			Use:   c.use,
			Short: c.short,
			RunE: func(cmd *cobra.Command, args []string) error {
				client, err := getDaemonClient(cmd)
				if err != nil {
					return err
				}
				if err := c.call(client); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), c.done)
				return nil
			},
		})
	}
	return cmds
}

// lastStatePath prefers the state file named by a leftover daemon.json, so
// a crashed headless tour still reports its last summary.
func lastStatePath(cmd *cobra.Command) (string, error) {
	if !cmd.Flags().Changed(FlagStateFile) {
		if info, err := daemon.FindDaemonInfo(""); err == nil && info.StatePath != "" {
			return info.StatePath, nil
		}
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return "", err
	}
	return cfg.Paths.State, nil
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func printStatus(w io.Writer, status *daemon.StatusResponse) {
	t := status.Tour
	fmt.Fprintf(w, "Status: %s\n", status.Status)
	if t.StopID != "" {
		fmt.Fprintf(w, "Stop: %d/%d (%s)\n", t.StopIndex+1, t.TotalStops, t.StopID)
	} else {
		fmt.Fprintf(w, "Stops: %d\n", t.TotalStops)
	}
	fmt.Fprintf(w, "Progress: %.0f%%\n", t.Progress)
	if t.Message != "" {
		fmt.Fprintf(w, "NOVA: %s\n", t.Message)
	}
	if t.Typing {
		fmt.Fprintln(w, "NOVA is typing")
	}
	if t.WaitingForSpeech {
		fmt.Fprintln(w, "Waiting for narration to finish")
	}
	fmt.Fprintf(w, "Voice: %s\n", voiceLabel(t.VoiceEnabled, t.VoiceSupported))
	fmt.Fprintf(w, "Completed before: %t\n", t.HasCompleted)
	fmt.Fprintf(w, "Uptime: %s\n", status.Uptime)
	fmt.Fprintf(w, "Started: %s\n", status.StartTime)
}

func printState(w io.Writer, state *events.State) {
	fmt.Fprintf(w, "Last tour: %s\n", state.Status)
	if state.CurrentStopID != "" {
		fmt.Fprintf(w, "Stop: %d/%d (%s)\n", state.CurrentStop+1, state.TotalStops, state.CurrentStopID)
	}
	fmt.Fprintf(w, "Tours started: %d\n", state.ToursStarted)
	fmt.Fprintf(w, "Tours completed: %d\n", state.ToursCompleted)
	fmt.Fprintf(w, "Stops visited: %d\n", state.StopsVisited)
	fmt.Fprintf(w, "Chat messages: %d\n", state.ChatMessages)
	if !state.UpdatedAt.IsZero() {
		fmt.Fprintf(w, "Updated: %s\n", state.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
}

func voiceLabel(enabled, supported bool) string {
	switch {
	case !supported:
		return "unavailable"
	case enabled:
		return "on"
	default:
		return "off"
	}
}
