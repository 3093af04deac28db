package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/npratt/nova/internal/events"
	"github.com/npratt/nova/internal/geometry"
	"github.com/npratt/nova/internal/widget"
)

// FocusedPane represents which pane currently has keyboard focus.
type FocusedPane int

const (
	// FocusPage means tour keys are live (default).
	FocusPage FocusedPane = iota
	// FocusChat means keystrokes go to the chat input.
	FocusChat
)

// eventLine represents a formatted event for display.
type eventLine struct {
	Time  time.Time
	Text  string
	Style lipgloss.Style
}

// Layout size constants.
const (
	// pageWidthPercent is the share of the body given to the page when chat is open.
	pageWidthPercent = 60
	// minChatCols is the minimum width for the chat pane.
	minChatCols = 30
	// eventRows is the number of event log lines shown.
	eventRows = 3
	// bubbleRows is the number of lines the speech bubble may use.
	bubbleRows = 2
)

// keyMap holds the global bindings shown in the footer.
type keyMap struct {
	Orb     key.Binding
	Start   key.Binding
	Next    key.Binding
	Prev    key.Binding
	End     key.Binding
	Restart key.Binding
	Voice   key.Binding
	Chat    key.Binding
	Help    key.Binding
	Quit    key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Orb:     key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "orb")),
		Start:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "start")),
		Next:    key.NewBinding(key.WithKeys("n", "right"), key.WithHelp("→/n", "next")),
		Prev:    key.NewBinding(key.WithKeys("b", "left"), key.WithHelp("←/b", "back")),
		End:     key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "end")),
		Restart: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "restart")),
		Voice:   key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "voice")),
		Chat:    key.NewBinding(key.WithKeys("tab", "c"), key.WithHelp("tab", "chat")),
		Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Orb, k.Next, k.Prev, k.Chat, k.Voice, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Orb, k.Start, k.End, k.Restart},
		{k.Next, k.Prev, k.Voice},
		{k.Chat, k.Help, k.Quit},
	}
}

// model is the bubbletea model for the TUI.
type model struct {
	ctx    context.Context
	ctrl   Controller
	page   Page
	layout geometry.Layout

	// Sources
	eventChan <-chan events.Event
	changes   []<-chan struct{}

	// State
	view       widget.View
	eventLines []eventLine
	notice     string

	// UI state
	width       int
	height      int
	focusedPane FocusedPane
	chat        ChatPane
	spinner     spinner.Model
	keys        keyMap
	help        help.Model

	onQuit func()
}

// eventMsg wraps an event for the bubbletea message system.
type eventMsg events.Event

// changeMsg reports a signal on changes[index].
type changeMsg struct {
	index int
}

// newModel creates a model for the given TUI.
func newModel(ctx context.Context, t *TUI) model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Typing

	m := model{
		ctx:       ctx,
		ctrl:      t.ctrl,
		page:      t.page,
		layout:    t.layout,
		eventChan: t.eventChan,
		changes:   t.changes,
		chat:      NewChatPane(),
		spinner:   sp,
		keys:      defaultKeyMap(),
		help:      help.New(),
		onQuit:    t.onQuit,
	}
	if m.ctrl != nil {
		m.view = m.ctrl.View()
	}
	m.chat.SetSnapshot(m.view.Chat)
	return m
}

// Init implements tea.Model.
func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{doTick(), m.spinner.Tick}
	if m.eventChan != nil {
		cmds = append(cmds, waitForEvent(m.eventChan))
	}
	for i, ch := range m.changes {
		cmds = append(cmds, waitForChange(ch, i))
	}
	return tea.Batch(cmds...)
}

// Update, handleKey and handleEvent are implemented in update.go
// View is implemented in view.go

// chatOpen reports whether the chat pane is showing.
func (m model) chatOpen() bool {
	return m.view.Chat.IsOpen
}

// bodyHeight returns the rows available to the page and chat panes.
func (m model) bodyHeight() int {
	// border (2), header (1), dividers (3), bubble, events, footer (1)
	footer := 1
	if m.help.ShowAll && m.focusedPane == FocusPage {
		footer = len(m.keys.FullHelp()) + 1
	}
	return max(3, m.height-2-1-3-bubbleRows-eventRows-footer)
}

// paneWidths splits the inner width between page and chat.
func (m model) paneWidths() (page, chat int) {
	inner := safeWidth(m.width - 2)
	if !m.chatOpen() {
		return inner, 0
	}
	chat = max(minChatCols, inner*(100-pageWidthPercent)/100)
	page = inner - chat
	if page < minChatCols {
		return inner, 0
	}
	return page, chat
}

// updatePaneSizes recalculates the chat pane dimensions.
func (m *model) updatePaneSizes() {
	_, chatWidth := m.paneWidths()
	m.chat.SetSize(chatWidth, m.bodyHeight())
}

// setFocus moves keyboard focus and keeps the chat input in step.
func (m *model) setFocus(p FocusedPane) {
	m.focusedPane = p
	m.chat.SetFocused(p == FocusChat)
}

// refresh pulls a fresh view from the controller.
func (m *model) refresh() {
	if m.ctrl == nil {
		return
	}
	wasOpen := m.chatOpen()
	m.view = m.ctrl.View()
	m.chat.SetSnapshot(m.view.Chat)
	if wasOpen != m.chatOpen() {
		m.updatePaneSizes()
	}
	if !m.chatOpen() && m.focusedPane == FocusChat {
		m.setFocus(FocusPage)
	}
}
