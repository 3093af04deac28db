package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/npratt/nova/internal/chat"
)

const (
	// chatInputHeight is the height of the message input textarea.
	chatInputHeight = 2
	// chatCharLimit caps a single message.
	chatCharLimit = 500
)

// ChatPane is the chat panel: a scrolling message log above an input.
type ChatPane struct {
	input    textarea.Model
	log      viewport.Model
	snapshot chat.Snapshot
	width    int
	height   int
	focused  bool
}

// NewChatPane creates an empty, unfocused chat pane.
func NewChatPane() ChatPane {
	ta := textarea.New()
	ta.Placeholder = "Ask NOVA anything..."
	ta.SetHeight(chatInputHeight)
	ta.CharLimit = chatCharLimit
	ta.ShowLineNumbers = false
	ta.KeyMap.InsertNewline.SetEnabled(false) // Enter submits

	return ChatPane{
		input: ta,
		log:   viewport.New(0, 0),
	}
}

// Update forwards input messages to the textarea and scroll keys to the log.
func (p ChatPane) Update(msg tea.Msg) (ChatPane, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "up", "down", "pgup", "pgdown":
			var cmd tea.Cmd
			p.log, cmd = p.log.Update(msg)
			return p, cmd
		}
	}

	if !p.focused {
		return p, nil
	}
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	return p, cmd
}

// Submit takes the trimmed input and clears it. It reports false when
// there is nothing to send or a reply is still pending.
func (p *ChatPane) Submit() (string, bool) {
	text := strings.TrimSpace(p.input.Value())
	if text == "" || p.snapshot.IsLoading {
		return "", false
	}
	p.input.Reset()
	return text, true
}

// Value returns the current input.
func (p ChatPane) Value() string {
	return p.input.Value()
}

// Reset clears the input.
func (p *ChatPane) Reset() {
	p.input.Reset()
}

// SetSnapshot replaces the rendered conversation.
func (p *ChatPane) SetSnapshot(s chat.Snapshot) {
	grew := len(s.Messages) != len(p.snapshot.Messages)
	p.snapshot = s
	p.log.SetContent(p.renderMessages())
	if grew {
		p.log.GotoBottom()
	}
}

// SetSize updates the pane dimensions.
func (p *ChatPane) SetSize(width, height int) {
	p.width = width
	p.height = height

	inner := safeWidth(width - 4)
	p.input.SetWidth(inner)
	p.log.Width = inner
	p.log.Height = max(1, height-2-chatInputHeight-2)
	p.log.SetContent(p.renderMessages())
	p.log.GotoBottom()
}

// SetFocused updates the focus state.
func (p *ChatPane) SetFocused(focused bool) {
	p.focused = focused
	if focused {
		p.input.Focus()
	} else {
		p.input.Blur()
	}
}

// IsFocused returns true if the pane is focused.
func (p ChatPane) IsFocused() bool {
	return p.focused
}

// View renders the chat pane. frame is the shared spinner frame shown
// while a reply or the history is loading.
func (p ChatPane) View(frame string) string {
	if p.width == 0 || p.height == 0 {
		return ""
	}

	inner := safeWidth(p.width - 4)
	sections := []string{
		styles.ChatTitle.Render("Chat with NOVA"),
		p.log.View(),
		p.renderStatus(inner, frame),
		p.input.View(),
	}

	border := styles.UnfocusedBorder
	if p.focused {
		border = styles.FocusedBorder
	}
	return border.
		Width(safeWidth(p.width - 2)).
		Height(safeWidth(p.height - 2)).
		Padding(0, 1).
		Render(strings.Join(sections, "\n"))
}

func (p ChatPane) renderStatus(width int, frame string) string {
	switch {
	case p.snapshot.IsLoadingHistory:
		return styles.Typing.Width(width).Render(frame + " loading history")
	case p.snapshot.IsLoading:
		return styles.Typing.Width(width).Render(frame + " NOVA is thinking")
	case p.focused:
		return styles.Footer.Width(width).Render("enter: send  esc: clear/back  tab: page")
	default:
		return styles.Footer.Width(width).Render("tab: chat")
	}
}

func (p ChatPane) renderMessages() string {
	width := safeWidth(p.log.Width)
	if len(p.snapshot.Messages) == 0 {
		return styles.Placeholder.Width(width).Render("No messages yet.")
	}

	lines := make([]string, 0, len(p.snapshot.Messages))
	for _, msg := range p.snapshot.Messages {
		label, style := "you", styles.ChatUser
		if msg.Role == chat.RoleAssistant {
			label, style = "NOVA", styles.ChatAssistant
		}
		body := lipgloss.NewStyle().Width(width).Render(label + ": " + safeString(msg.Content))
		lines = append(lines, style.Render(body))
	}
	return strings.Join(lines, "\n")
}
