package tui

import (
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/npratt/nova/internal/events"
)

const (
	// maxEventLines is the maximum number of event lines to keep in the buffer.
	maxEventLines = 500
	// trimEventLines is the number of lines to remove when buffer exceeds max.
	trimEventLines = 50
	// tickInterval is the interval for the periodic view sync.
	tickInterval = time.Second
	// noticeTTL is how long a one-line notice stays in the header.
	noticeTTL = 3 * time.Second
)

// channelClosedMsg signals that the event channel was closed.
type channelClosedMsg struct{}

// tickMsg signals a periodic tick for view synchronization.
type tickMsg time.Time

// chatSentMsg reports that a chat round trip finished.
type chatSentMsg struct{}

// clearNoticeMsg expires the header notice it was scheduled for.
type clearNoticeMsg struct {
	notice string
}

// waitForEvent creates a command that waits for the next event from the channel.
// Returns channelClosedMsg if the channel is closed.
func waitForEvent(ch <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-ch
		if !ok {
			return channelClosedMsg{}
		}
		return eventMsg(event)
	}
}

// waitForChange waits for the next signal on ch. A closed channel stops
// the wait for good.
func waitForChange(ch <-chan struct{}, index int) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return changeMsg{index: index}
	}
}

// doTick creates a command that waits for the tick interval and sends a tickMsg.
func doTick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model. It handles all message types and updates the model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.updatePaneSizes()
		return m, nil

	case eventMsg:
		m.handleEvent(events.Event(msg))
		return m, waitForEvent(m.eventChan)

	case channelClosedMsg:
		slog.Info("event channel closed, exiting TUI")
		return m, tea.Quit

	case changeMsg:
		m.refresh()
		return m, waitForChange(m.changes[msg.index], msg.index)

	case tickMsg:
		m.refresh()
		return m, doTick()

	case chatSentMsg:
		m.refresh()
		return m, nil

	case clearNoticeMsg:
		if m.notice == msg.notice {
			m.notice = ""
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	default:
		if m.focusedPane == FocusChat {
			var cmd tea.Cmd
			m.chat, cmd = m.chat.Update(msg)
			return m, cmd
		}
		return m, nil
	}
}

// handleKey processes keyboard input and returns the updated model and command.
func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Global keys: always work regardless of focus
	switch msg.String() {
	case "ctrl+c":
		return m.quit()

	case "tab":
		if m.focusedPane == FocusChat {
			m.setFocus(FocusPage)
			return m, nil
		}
		return m.openChat()
	}

	if m.focusedPane == FocusChat {
		return m.handleChatKey(msg)
	}
	return m.handlePageKey(msg)
}

// handleChatKey routes keys while the chat input has focus.
func (m model) handleChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		if m.chat.Value() != "" {
			m.chat.Reset()
			return m, nil
		}
		m.setFocus(FocusPage)
		return m, nil

	case "enter":
		text, ok := m.chat.Submit()
		if !ok || m.ctrl == nil {
			return m, nil
		}
		return m, m.sendCmd(text)
	}

	var cmd tea.Cmd
	m.chat, cmd = m.chat.Update(msg)
	return m, cmd
}

// handlePageKey routes tour keys.
func (m model) handlePageKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.ctrl == nil {
		if key.Matches(msg, m.keys.Quit) {
			return m.quit()
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.updatePaneSizes()
		return m, nil

	case key.Matches(msg, m.keys.Orb):
		m.ctrl.OrbClick(m.ctx)

	case key.Matches(msg, m.keys.Start):
		m.ctrl.StartTour(m.ctx)

	case key.Matches(msg, m.keys.Next):
		m.ctrl.Next()

	case key.Matches(msg, m.keys.Prev):
		m.ctrl.Prev()

	case key.Matches(msg, m.keys.End):
		m.ctrl.EndTour()

	case key.Matches(msg, m.keys.Restart):
		m.ctrl.RestartTour(m.ctx)

	case key.Matches(msg, m.keys.Voice):
		notice := "voice off"
		if m.ctrl.ToggleVoice() {
			notice = "voice on"
		}
		m.refresh()
		return m, m.flash(notice)

	case key.Matches(msg, m.keys.Chat):
		return m.openChat()

	case msg.String() == "esc":
		if m.chatOpen() {
			m.ctrl.CloseChat()
		}

	default:
		return m, nil
	}

	m.refresh()
	return m, nil
}

// openChat shows the chat pane if needed and focuses its input.
func (m model) openChat() (tea.Model, tea.Cmd) {
	if m.ctrl == nil {
		return m, nil
	}
	if !m.chatOpen() && !m.view.Tour.IsActive {
		m.ctrl.OrbClick(m.ctx)
		m.refresh()
	}
	if !m.chatOpen() {
		return m, m.flash("chat opens with the tour")
	}
	m.updatePaneSizes()
	m.setFocus(FocusChat)
	return m, nil
}

func (m model) quit() (tea.Model, tea.Cmd) {
	if m.onQuit != nil {
		m.onQuit()
	}
	return m, tea.Quit
}

// sendCmd runs the chat round trip off the update loop.
func (m model) sendCmd(text string) tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		ctrl.Send(ctx, text)
		return chatSentMsg{}
	}
}

// flash shows notice in the header for noticeTTL.
func (m *model) flash(notice string) tea.Cmd {
	m.notice = notice
	return tea.Tick(noticeTTL, func(time.Time) tea.Msg {
		return clearNoticeMsg{notice: notice}
	})
}

// handleEvent records an event in the log pane.
func (m *model) handleEvent(event events.Event) {
	text := events.Format(event)
	if text == "" {
		return
	}

	m.eventLines = append(m.eventLines, eventLine{
		Time:  event.Timestamp(),
		Text:  safeString(text),
		Style: StyleForEvent(event),
	})

	// Trim buffer if over max lines
	if len(m.eventLines) > maxEventLines {
		m.eventLines = m.eventLines[trimEventLines:]
	}
}
