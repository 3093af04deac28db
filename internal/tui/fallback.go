package tui

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/npratt/nova/internal/events"
	"golang.org/x/term"
)

// isTerminal returns true if both stdout and stdin are TTYs.
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd())) && term.IsTerminal(int(os.Stdin.Fd()))
}

// terminalSize returns the current terminal width and height.
// Returns 0, 0 if the terminal size cannot be determined.
func terminalSize() (width, height int) {
	width, height, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 0, 0
	}
	return width, height
}

// terminalTooSmall returns true if the terminal is below the minimum size.
func terminalTooSmall() bool {
	width, height := terminalSize()
	return width < minWidth || height < minHeight
}

// runSimple provides line-by-line output for non-interactive environments.
func (t *TUI) runSimple(ctx context.Context) error {
	return printEvents(ctx, os.Stdout, t.eventChan)
}

// printEvents writes each formatted event to w until ctx is done or the
// channel closes. Events without a display form are skipped.
func printEvents(ctx context.Context, w io.Writer, ch <-chan events.Event) error {
	if ch == nil {
		<-ctx.Done()
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-ch:
			if !ok {
				return nil
			}
			text := events.FormatWithTimestamp(event)
			if text == "" {
				continue
			}
			if _, err := fmt.Fprintln(w, text); err != nil {
				return err
			}
		}
	}
}
