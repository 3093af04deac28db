package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/npratt/nova/internal/daemon"
	"github.com/npratt/nova/internal/events"
)

const (
	fileWaitInterval = 500 * time.Millisecond
	followInterval   = 100 * time.Millisecond
)

func newEventsCmd() *cobra.Command {
	eventsCmd := &cobra.Command{
		Use:   "events",
		Short: "View recent tour events",
		RunE: func(cmd *cobra.Command, args []string) error {
			logPath := ""
			if info, err := daemon.FindDaemonInfo(""); err == nil && !cmd.Flags().Changed(FlagLogFile) {
				logPath = info.LogPath
			} else {
				cfg, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				logPath = cfg.Paths.Log
			}

			out := cmd.OutOrStdout()
			if viper.GetBool(FlagFollow) {
				return tailFollow(cmd.Context(), out, logPath)
			}
			return tailLast(out, logPath, viper.GetInt(FlagCount))
		},
	}

	eventsCmd.Flags().Bool(FlagFollow, false, "Follow event stream (like tail -f)")
	eventsCmd.Flags().Int(FlagCount, 20, "Number of recent events to show")
	return eventsCmd
}

// tailLast prints the last n lines of the event log.
func tailLast(w io.Writer, path string, n int) error {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintln(w, "No events yet (log file does not exist)")
			return nil
		}
		return fmt.Errorf("open log file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if n > 0 && len(lines) > n {
			lines = lines[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read log file: %w", err)
	}

	if len(lines) == 0 {
		fmt.Fprintln(w, "No events yet")
		return nil
	}
	for _, line := range lines {
		printEventLine(w, line)
	}
	return nil
}

// waitForFile waits for a file to be created and returns the opened file.
func waitForFile(ctx context.Context, path string) (*os.File, error) {
	ticker := time.NewTicker(fileWaitInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			file, err := os.Open(path)
			if err == nil {
				return file, nil
			}
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("open file: %w", err)
			}
		}
	}
}

// tailFollow prints lines appended to the event log until ctx is done.
func tailFollow(ctx context.Context, w io.Writer, path string) error {
	file, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("open log file: %w", err)
		}
		fmt.Fprintln(w, "Waiting for log file to be created...")
		if file, err = waitForFile(ctx, path); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
	defer func() { _ = file.Close() }()

	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("seek to end: %w", err)
	}

	fmt.Fprintln(w, "Following events (Ctrl+C to stop)...")
	reader := bufio.NewReader(file)
	var partial strings.Builder
	for {
		line, err := reader.ReadString('\n')
		partial.WriteString(line)
		if err == nil {
			printEventLine(w, strings.TrimSuffix(partial.String(), "\n"))
			partial.Reset()
			continue
		}
		if err != io.EOF {
			return fmt.Errorf("read log: %w", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(followInterval):
		}
	}
}

// printEventLine prints a transcript line the way the TUI event pane does.
// Lines that are not known events are printed as-is.
func printEventLine(w io.Writer, line string) {
	if strings.TrimSpace(line) == "" {
		return
	}
	ev, err := events.ParseEvent([]byte(line))
	if err != nil || ev == nil {
		fmt.Fprintln(w, line)
		return
	}
	if text := events.FormatWithTimestamp(ev); text != "" {
		fmt.Fprintln(w, text)
	}
}
