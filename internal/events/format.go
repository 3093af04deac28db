package events

import (
	"fmt"
	"strings"
)

const (
	maxTextLength     = 120
	truncateIndicator = "..."
)

// Format converts an event to a one-line human-readable string.
// Returns empty string for nil or unknown event types.
func Format(event Event) string {
	if event == nil {
		return ""
	}

	switch e := event.(type) {
	case *TourStartEvent:
		if e.Restart {
			return fmt.Sprintf("tour restarted (%d stops)", e.TotalStops)
		}
		return fmt.Sprintf("tour started (%d stops)", e.TotalStops)
	case *TourMessageEvent:
		return "NOVA: " + truncate(e.Content, maxTextLength)
	case *TourStopEvent:
		if !e.Found {
			return fmt.Sprintf("stop %d: %s (element %q not on page)", e.Index+1, e.StopID, e.ElementID)
		}
		return fmt.Sprintf("stop %d: %s -> #%s", e.Index+1, e.StopID, e.ElementID)
	case *TourWaitingEvent:
		return fmt.Sprintf("stop %d: waiting for narration", e.Index+1)
	case *TourStateChangedEvent:
		return fmt.Sprintf("tour %s -> %s", e.From, e.To)
	case *TourCompleteEvent:
		return fmt.Sprintf("tour complete (%d stops)", e.TotalStops)
	case *TourEndEvent:
		if e.Reason != "" {
			return fmt.Sprintf("tour ended at stop %d: %s", e.Index+1, e.Reason)
		}
		return fmt.Sprintf("tour ended at stop %d", e.Index+1)
	case *SpeechStartEvent:
		return fmt.Sprintf("speaking [%s]: %s", e.Engine, truncate(e.Text, maxTextLength))
	case *SpeechEndEvent:
		switch {
		case e.Error != "":
			return fmt.Sprintf("speech failed [%s]: %s", e.Engine, e.Error)
		case e.Cancelled:
			return fmt.Sprintf("speech cancelled [%s]", e.Engine)
		default:
			return fmt.Sprintf("speech finished [%s] in %s", e.Engine, formatMillis(e.DurationMs))
		}
	case *ChatMessageEvent:
		return fmt.Sprintf("%s: %s", e.Role, truncate(e.Content, maxTextLength))
	case *ChatActionEvent:
		return "action: " + e.Action
	case *ErrorEvent:
		return fmt.Sprintf("%s: %s", e.Severity, e.Message)
	default:
		return ""
	}
}

// FormatWithTimestamp formats an event with a clock prefix.
func FormatWithTimestamp(event Event) string {
	text := Format(event)
	if text == "" {
		return ""
	}
	return event.Timestamp().Format("15:04:05") + " " + text
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= n {
		return s
	}
	return s[:n-len(truncateIndicator)] + truncateIndicator
}

func formatMillis(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	return fmt.Sprintf("%.1fs", float64(ms)/1000)
}
