package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/npratt/nova/internal/events"
)

// styles contains all lipgloss styles used by the TUI.
var styles = struct {
	// Layout styles
	Container lipgloss.Style
	Divider   lipgloss.Style

	// Header styles
	Brand    lipgloss.Style
	Stop     lipgloss.Style
	Progress lipgloss.Style
	Track    lipgloss.Style
	Notice   lipgloss.Style

	// Footer style
	Footer lipgloss.Style

	// Page styles
	Page      lipgloss.Style
	Highlight lipgloss.Style
	Orb       lipgloss.Style

	// Bubble styles
	Bubble      lipgloss.Style
	Typing      lipgloss.Style
	Placeholder lipgloss.Style

	// Chat styles
	ChatTitle     lipgloss.Style
	ChatUser      lipgloss.Style
	ChatAssistant lipgloss.Style

	// Event styles
	TourEvent   lipgloss.Style
	SpeechEvent lipgloss.Style
	ChatEvent   lipgloss.Style
	Error       lipgloss.Style

	// Status colors
	StatusIdle      lipgloss.Style
	StatusTouring   lipgloss.Style
	StatusPaused    lipgloss.Style
	StatusCompleted lipgloss.Style

	// Focus indicators
	FocusedBorder   lipgloss.Style
	UnfocusedBorder lipgloss.Style
}{
	Container: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")),

	Divider: lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")),

	Brand: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("141")),

	Stop: lipgloss.NewStyle().
		Foreground(lipgloss.Color("39")),

	Progress: lipgloss.NewStyle().
		Foreground(lipgloss.Color("141")),

	Track: lipgloss.NewStyle().
		Foreground(lipgloss.Color("238")),

	Notice: lipgloss.NewStyle().
		Italic(true).
		Foreground(lipgloss.Color("220")),

	Footer: lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")),

	Page: lipgloss.NewStyle().
		Foreground(lipgloss.Color("244")),

	Highlight: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("141")),

	Orb: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("213")),

	Bubble: lipgloss.NewStyle().
		Foreground(lipgloss.Color("252")),

	Typing: lipgloss.NewStyle().
		Foreground(lipgloss.Color("205")),

	Placeholder: lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")),

	ChatTitle: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("141")),

	ChatUser: lipgloss.NewStyle().
		Foreground(lipgloss.Color("250")),

	ChatAssistant: lipgloss.NewStyle().
		Foreground(lipgloss.Color("177")),

	TourEvent: lipgloss.NewStyle().
		Foreground(lipgloss.Color("114")),

	SpeechEvent: lipgloss.NewStyle().
		Foreground(lipgloss.Color("250")),

	ChatEvent: lipgloss.NewStyle().
		Foreground(lipgloss.Color("177")),

	Error: lipgloss.NewStyle().
		Foreground(lipgloss.Color("196")),

	StatusIdle: lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")),

	StatusTouring: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("82")),

	StatusPaused: lipgloss.NewStyle().
		Foreground(lipgloss.Color("214")),

	StatusCompleted: lipgloss.NewStyle().
		Foreground(lipgloss.Color("39")),

	FocusedBorder: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("63")), // Bright blue for focused

	UnfocusedBorder: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")), // Dimmed gray for unfocused
}

// StyleForEvent returns the appropriate style for an event type.
func StyleForEvent(event events.Event) lipgloss.Style {
	if event == nil {
		return styles.SpeechEvent
	}

	switch event.(type) {
	case *events.TourStartEvent, *events.TourStopEvent, *events.TourStateChangedEvent,
		*events.TourCompleteEvent, *events.TourEndEvent, *events.TourWaitingEvent,
		*events.TourMessageEvent:
		return styles.TourEvent
	case *events.SpeechStartEvent, *events.SpeechEndEvent:
		return styles.SpeechEvent
	case *events.ChatMessageEvent, *events.ChatActionEvent:
		return styles.ChatEvent
	case *events.ErrorEvent:
		return styles.Error
	default:
		return styles.SpeechEvent
	}
}
