// Package tui renders a NOVA tour in the terminal using bubbletea: the page
// with its highlighted section and orb, the speech bubble, the chat panel
// and a running event log.
package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/npratt/nova/internal/events"
	"github.com/npratt/nova/internal/geometry"
	"github.com/npratt/nova/internal/widget"
)

// Controller is the widget surface the terminal drives.
type Controller interface {
	View() widget.View
	OrbClick(ctx context.Context)
	StartTour(ctx context.Context)
	Next()
	Prev()
	EndTour()
	RestartTour(ctx context.Context)
	ToggleVoice() bool
	Send(ctx context.Context, text string)
	CloseChat()
}

// Page is the document the tour walks over.
type Page interface {
	Sections() []geometry.Section
	Viewport() geometry.Viewport
}

// TUI is the terminal front end for a tour.
type TUI struct {
	ctrl      Controller
	page      Page
	eventChan <-chan events.Event
	changes   []<-chan struct{}
	layout    geometry.Layout
	onQuit    func()
}

// Option configures the TUI.
type Option func(*TUI)

// New creates a TUI over the given controller and page.
func New(ctrl Controller, page Page, opts ...Option) *TUI {
	t := &TUI{
		ctrl:   ctrl,
		page:   page,
		layout: geometry.DefaultLayout(),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// WithEvents feeds the event log pane.
func WithEvents(ch <-chan events.Event) Option {
	return func(t *TUI) {
		t.eventChan = ch
	}
}

// WithChanges adds a change signal that triggers a redraw, such as the
// orchestrator's or chat session's Changes channel.
func WithChanges(ch <-chan struct{}) Option {
	return func(t *TUI) {
		t.changes = append(t.changes, ch)
	}
}

// WithLayout sets the orb geometry used when drawing the orb.
func WithLayout(l geometry.Layout) Option {
	return func(t *TUI) {
		t.layout = l
	}
}

// WithOnQuit sets the callback invoked when the user quits.
func WithOnQuit(fn func()) Option {
	return func(t *TUI) {
		t.onQuit = fn
	}
}

// Run starts the TUI and blocks until it exits. Without a usable terminal
// it prints events line by line instead.
func (t *TUI) Run(ctx context.Context) error {
	if !isTerminal() || terminalTooSmall() {
		return t.runSimple(ctx)
	}

	m := newModel(ctx, t)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
