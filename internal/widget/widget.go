// Package widget composes the tour orchestrator, the chat session and the
// voice into NOVA's on-page assistant: the orb the visitor clicks, the
// tour bubble and the chat panel.
package widget

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/npratt/nova/internal/chat"
	"github.com/npratt/nova/internal/relay"
	"github.com/npratt/nova/internal/sched"
	"github.com/npratt/nova/internal/speech"
	"github.com/npratt/nova/internal/tour"
)

// Config holds widget pacing.
type Config struct {
	// AutoStart starts the tour AutoStartDelay after Mount.
	AutoStart      bool
	AutoStartDelay time.Duration
	// StartTourDelay separates closing chat from starting a tour the
	// assistant asked for.
	StartTourDelay time.Duration
}

// DefaultConfig returns the stock widget pacing.
func DefaultConfig() Config {
	return Config{
		AutoStart:      true,
		AutoStartDelay: time.Second,
		StartTourDelay: 500 * time.Millisecond,
	}
}

// View is everything the presentation layer renders.
type View struct {
	Tour           tour.Snapshot
	Chat           chat.Snapshot
	VoiceEnabled   bool
	VoiceSupported bool
	Listening      bool
	CanListen      bool
}

// Widget wires user gestures to the tour and chat.
type Widget struct {
	tour       *tour.Orchestrator
	chat       *chat.Session
	voice      *Voice
	recognizer speech.Recognizer
	cfg        Config
	sched      sched.Scheduler
	logger     *slog.Logger

	mu        sync.Mutex
	mounted   bool
	autoStart sched.Timer
	pending   sched.Timer
	ctx       context.Context
}

// Option configures a Widget.
type Option func(*Widget)

// WithScheduler sets the scheduler for auto-start and chat actions.
func WithScheduler(s sched.Scheduler) Option {
	return func(w *Widget) { w.sched = s }
}

// WithRecognizer enables voice input.
func WithRecognizer(r speech.Recognizer) Option {
	return func(w *Widget) { w.recognizer = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Widget) { w.logger = l }
}

// New creates a widget. The orchestrator should narrate through voice so
// the voice toggle applies to the tour. New installs the widget as the
// chat session's action handler.
func New(t *tour.Orchestrator, c *chat.Session, voice *Voice, cfg Config, opts ...Option) *Widget {
	w := &Widget{
		tour:   t,
		chat:   c,
		voice:  voice,
		cfg:    cfg,
		sched:  sched.Real{},
		logger: slog.Default(),
		ctx:    context.Background(),
	}
	for _, opt := range opts {
		opt(w)
	}
	c.SetActionHandler(w.handleAction)
	return w
}

// Mount schedules the auto-start. Only the first call has any effect.
// ctx bounds the chat requests made by scheduled work.
func (w *Widget) Mount(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.mounted {
		return
	}
	w.mounted = true
	w.ctx = ctx
	if !w.cfg.AutoStart {
		return
	}
	w.autoStart = w.sched.AfterFunc(w.cfg.AutoStartDelay, func() {
		w.logger.Debug("auto-starting tour")
		w.startTour(ctx)
	})
}

// Unmount cancels a pending auto-start or chat-requested start and
// silences the voice.
func (w *Widget) Unmount() {
	w.mu.Lock()
	for _, t := range []*sched.Timer{&w.autoStart, &w.pending} {
		if *t != nil {
			(*t).Stop()
			*t = nil
		}
	}
	w.mu.Unlock()
	w.voice.Stop()
}

// View returns the current presentation state.
func (w *Widget) View() View {
	v := View{
		Tour:           w.tour.Snapshot(),
		Chat:           w.chat.Snapshot(),
		VoiceEnabled:   w.voice.Enabled(),
		VoiceSupported: w.voice.Supported(),
	}
	if w.recognizer != nil {
		v.CanListen = w.recognizer.Supported()
		v.Listening = w.recognizer.Listening()
	}
	return v
}

// OrbClick pauses or resumes an active tour. Outside a tour it toggles the
// chat panel, opening it with a fresh log.
func (w *Widget) OrbClick(ctx context.Context) {
	st := w.tour.State()
	if st.IsActive {
		if st.IsPaused {
			w.tour.ResumeTour()
		} else {
			w.Pause()
		}
		return
	}
	if !w.chat.IsOpen() {
		w.chat.Clear()
	}
	w.chat.Toggle(ctx)
}

// StartTour starts the tour from the greeting with the panel open.
func (w *Widget) StartTour(ctx context.Context) {
	w.startTour(ctx)
}

// Pause silences narration and pauses the tour.
func (w *Widget) Pause() {
	w.voice.Stop()
	w.tour.PauseTour()
}

// Resume continues a paused tour.
func (w *Widget) Resume() {
	w.tour.ResumeTour()
}

// TogglePause pauses an active tour or resumes a paused one.
func (w *Widget) TogglePause() {
	st := w.tour.State()
	if !st.IsActive {
		return
	}
	if st.IsPaused {
		w.Resume()
		return
	}
	w.Pause()
}

// Next skips to the next stop.
func (w *Widget) Next() {
	w.voice.Stop()
	w.tour.NextStop()
}

// Prev returns to the previous stop.
func (w *Widget) Prev() {
	w.voice.Stop()
	w.tour.PreviousStop()
}

// EndTour silences narration, ends the tour and closes the panel.
func (w *Widget) EndTour() {
	w.voice.Stop()
	w.tour.EndTour()
	w.chat.Close()
}

// RestartTour clears the completed flag and starts over.
func (w *Widget) RestartTour(ctx context.Context) {
	w.tour.ResetTourCompletion()
	w.startTour(ctx)
}

// CloseChat closes the chat panel.
func (w *Widget) CloseChat() {
	w.chat.Close()
}

// ToggleVoice flips the voice toggle and reports the new setting.
func (w *Widget) ToggleVoice() bool {
	enabled := !w.voice.Enabled()
	w.voice.SetEnabled(enabled)
	return enabled
}

// Send sends a chat message and, with voice on and no tour running, reads
// the reply aloud.
func (w *Widget) Send(ctx context.Context, text string) {
	w.chat.Send(ctx, text)

	if !w.voice.Enabled() || w.tour.State().IsActive {
		return
	}
	snap := w.chat.Snapshot()
	if n := len(snap.Messages); n > 0 && snap.Messages[n-1].Role == chat.RoleAssistant {
		w.voice.Speak(snap.Messages[n-1].Content, func() {})
	}
}

// Listen captures one spoken phrase and hands the transcript to
// onTranscript. Calling it while listening stops listening instead.
func (w *Widget) Listen(ctx context.Context, onTranscript func(string, error)) error {
	if w.recognizer == nil || !w.recognizer.Supported() {
		return speech.ErrUnsupported
	}
	if w.recognizer.Listening() {
		w.recognizer.StopListening()
		return nil
	}
	return w.recognizer.StartListening(ctx, onTranscript)
}

func (w *Widget) startTour(ctx context.Context) {
	w.tour.StartTour()
	w.chat.Open(ctx)
}

func (w *Widget) handleAction(action string) {
	switch action {
	case relay.ActionStartTour:
		w.chat.Close()
		w.mu.Lock()
		defer w.mu.Unlock()
		if w.pending != nil {
			w.pending.Stop()
		}
		ctx := w.ctx
		w.pending = w.sched.AfterFunc(w.cfg.StartTourDelay, func() { w.startTour(ctx) })
	default:
		w.logger.Warn("ignoring unknown chat action", "action", action)
	}
}
