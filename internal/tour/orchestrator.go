// Package tour implements NOVA's guided tour: the authored script and the
// orchestrator that walks it, scrolling the page, docking the orb next to
// each target, narrating, and auto-advancing once both the stop's display
// time and its narration have finished.
package tour

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/npratt/nova/internal/events"
	"github.com/npratt/nova/internal/geometry"
	"github.com/npratt/nova/internal/sched"
)

// Narrator speaks tour narration. done must be called exactly once per
// Speak call, and may be called before Speak returns.
type Narrator interface {
	Speak(text string, done func())
}

type timerKind int

const (
	timerGreeting timerKind = iota
	timerFirstStop
	timerSettle
	timerTyping
	timerAdvance
	timerBuffer
	timerStall
	numTimers
)

var allTimers = []timerKind{
	timerGreeting, timerFirstStop, timerSettle, timerTyping,
	timerAdvance, timerBuffer, timerStall,
}

// Orchestrator owns the tour state. All methods are safe for concurrent
// use. Scheduled callbacks carry a sequence number and are discarded once
// their timer has been cancelled or replaced, even if they already fired.
//
// The narrator and event router are only called with the lock released.
// The surface is queried under the lock and must not call back into the
// orchestrator.
type Orchestrator struct {
	script   *Script
	surface  geometry.Surface
	layout   geometry.Layout
	timing   Timing
	sched    sched.Scheduler
	narrator Narrator
	router   *events.Router
	logger   *slog.Logger

	mu        sync.Mutex
	state     State
	messages  []Message
	orb       *geometry.Point
	highlight string
	typing    bool
	gate      gate
	narrated  bool
	stopGen   uint64
	msgSeq    int

	timers   [numTimers]sched.Timer
	timerSeq [numTimers]uint64

	effects []func()
	changes chan struct{}
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithSurface sets the page the tour scrolls and locates targets on.
func WithSurface(s geometry.Surface) Option {
	return func(o *Orchestrator) { o.surface = s }
}

// WithLayout overrides the orb dimensions.
func WithLayout(l geometry.Layout) Option {
	return func(o *Orchestrator) { o.layout = l }
}

// WithTiming overrides the tour pacing.
func WithTiming(t Timing) Option {
	return func(o *Orchestrator) { o.timing = t }
}

// WithScheduler sets the scheduler used for every delay.
func WithScheduler(s sched.Scheduler) Option {
	return func(o *Orchestrator) { o.sched = s }
}

// WithNarrator sets the voice for tour narration. Without one, narration
// counts as finished as soon as it is issued.
func WithNarrator(n Narrator) Option {
	return func(o *Orchestrator) { o.narrator = n }
}

// WithRouter publishes tour events to the router.
func WithRouter(r *events.Router) Option {
	return func(o *Orchestrator) { o.router = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// New creates an idle orchestrator for the script.
func New(script *Script, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		script:  script,
		layout:  geometry.DefaultLayout(),
		timing:  DefaultTiming(),
		sched:   sched.Real{},
		logger:  slog.Default(),
		state:   State{CurrentStopIndex: -1},
		changes: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.surface == nil {
		o.surface = geometry.NewDocument(geometry.Viewport{})
	}
	return o
}

// Script returns the script being toured.
func (o *Orchestrator) Script() *Script {
	return o.script
}

// Changes delivers a signal after every state change. Signals coalesce.
func (o *Orchestrator) Changes() <-chan struct{} {
	return o.changes
}

// StartTour resets the tour to the greeting and schedules the walk from the
// first stop. Calling it mid-tour restarts from the top.
func (o *Orchestrator) StartTour() {
	o.update(func() {
		restart := o.state.IsActive || o.state.HasCompletedTour || o.state.CurrentStopIndex >= 0

		o.cancel(allTimers...)
		o.stopGen++
		o.state = State{IsActive: true, CurrentStopIndex: -1}
		o.messages = nil
		o.orb = nil
		o.highlight = ""
		o.typing = true
		o.gate = gate{}
		o.narrated = false

		o.logger.Info("tour started", "stops", o.script.Len(), "restart", restart)
		o.emit(&events.TourStartEvent{
			BaseEvent:  events.NewTourEvent(events.EventTourStart),
			TotalStops: o.script.Len(),
			Restart:    restart,
		})

		o.schedule(timerGreeting, o.timing.GreetingDelay, func() {
			o.typing = false
			o.appendMessage(o.script.Greeting, "")
			o.schedule(timerFirstStop, o.timing.FirstStopDelay, func() {
				o.goToStop(0)
			})
		})
	})
}

// GoToStop moves to stop i. Out-of-range indices are ignored.
func (o *Orchestrator) GoToStop(i int) {
	o.update(func() { o.goToStop(i) })
}

// AdvanceToNextStop moves to the next stop, or completes the tour when the
// current stop is the last one.
func (o *Orchestrator) AdvanceToNextStop() {
	o.update(o.advance)
}

// NextStop manually moves forward one stop, dropping any pending
// auto-advance. It does nothing at the last stop.
func (o *Orchestrator) NextStop() {
	o.update(func() {
		if next := o.state.CurrentStopIndex + 1; next < o.script.Len() {
			o.goToStop(next)
		}
	})
}

// PreviousStop manually moves back one stop. It does nothing at the first stop.
func (o *Orchestrator) PreviousStop() {
	o.update(func() {
		if prev := o.state.CurrentStopIndex - 1; prev >= 0 {
			o.goToStop(prev)
		}
	})
}

// PauseTour cancels the pending auto-advance and marks the tour paused.
// Narration already playing is left alone.
func (o *Orchestrator) PauseTour() {
	o.update(func() {
		if !o.state.IsActive || o.state.IsPaused {
			return
		}
		o.cancel(timerAdvance, timerBuffer, timerStall)
		o.state.IsPaused = true
		o.logger.Info("tour paused", "stop", o.state.CurrentStopIndex)
		o.emit(&events.TourStateChangedEvent{
			BaseEvent: events.NewTourEvent(events.EventTourStateChanged),
			From:      events.StatusTouring,
			To:        events.StatusPaused,
		})
	})
}

// ResumeTour clears the pause and re-arms auto-advance with a fresh timer
// for the current stop.
func (o *Orchestrator) ResumeTour() {
	o.update(func() {
		if !o.state.IsActive || !o.state.IsPaused {
			return
		}
		o.state.IsPaused = false
		o.logger.Info("tour resumed", "stop", o.state.CurrentStopIndex)
		o.emit(&events.TourStateChangedEvent{
			BaseEvent: events.NewTourEvent(events.EventTourStateChanged),
			From:      events.StatusPaused,
			To:        events.StatusTouring,
		})
		o.arm()
	})
}

// EndTour stops the tour where it is. It does not mark the tour completed.
func (o *Orchestrator) EndTour() {
	o.update(func() {
		wasActive := o.state.IsActive

		o.cancel(allTimers...)
		o.stopGen++
		o.state.IsActive = false
		o.state.IsPaused = false
		o.orb = nil
		o.highlight = ""
		o.typing = false
		o.gate = gate{}
		o.narrated = false

		if wasActive {
			o.logger.Info("tour ended", "stop", o.state.CurrentStopIndex)
			o.emit(&events.TourEndEvent{
				BaseEvent: events.NewTourEvent(events.EventTourEnd),
				Index:     o.state.CurrentStopIndex,
			})
		}
	})
}

// ResetTourCompletion clears the completed flag.
func (o *Orchestrator) ResetTourCompletion() {
	o.update(func() { o.state.HasCompletedTour = false })
}

// OnSpeechComplete records that the current stop's narration finished.
// Completions that arrive before the stop's narration was issued are ignored.
func (o *Orchestrator) OnSpeechComplete() {
	o.update(func() {
		if !o.narrated || o.state.CurrentStopIndex < 0 {
			return
		}
		o.observeSpeech()
	})
}

// Relayout recomputes the orb position after the viewport changed size.
func (o *Orchestrator) Relayout() {
	o.update(func() {
		stop, ok := o.script.Stop(o.state.CurrentStopIndex)
		if !ok || !o.state.IsActive {
			return
		}
		o.place(stop)
	})
}

// State returns the core tour record.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Snapshot returns a copy of everything the presentation layer needs.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	snap := Snapshot{
		State:                o.state,
		Phase:                o.state.Phase(),
		TotalStops:           o.script.Len(),
		Messages:             append([]Message(nil), o.messages...),
		HighlightedElementID: o.highlight,
		IsTyping:             o.typing,
		WaitingForSpeech:     o.gate.waiting(),
	}
	// State keeps the last index after EndTour; the presented stop does not.
	if stop, ok := o.script.Stop(o.state.CurrentStopIndex); ok && o.state.IsActive {
		snap.CurrentStop = &stop
		snap.Progress = float64(o.state.CurrentStopIndex+1) / float64(o.script.Len()) * 100
	}
	if o.orb != nil {
		p := *o.orb
		snap.Orb = &p
	}
	return snap
}

// goToStop scrolls toward stop i and schedules its entry once scrolling has
// settled. Must be called with o.mu held.
func (o *Orchestrator) goToStop(i int) {
	stop, ok := o.script.Stop(i)
	if !ok {
		return
	}

	o.cancel(allTimers...)
	o.stopGen++
	o.gate = gate{}
	o.narrated = false
	o.typing = false

	o.effects = append(o.effects, func() { o.scrollTo(stop.ElementID) })
	o.schedule(timerSettle, o.timing.SettleDelay, func() {
		o.enterStop(i, stop)
	})
}

// enterStop publishes the stop and starts its narration and auto-advance.
// Must be called with o.mu held.
func (o *Orchestrator) enterStop(i int, stop Stop) {
	o.stopGen++
	o.gate = gate{}
	o.narrated = false
	o.state.CurrentStopIndex = i

	found := o.place(stop)
	ev := &events.TourStopEvent{
		BaseEvent: events.NewTourEvent(events.EventTourStop),
		Index:     i,
		StopID:    stop.ID,
		ElementID: stop.ElementID,
		Found:     found,
	}
	if o.orb != nil {
		x, y := o.orb.X, o.orb.Y
		ev.OrbX, ev.OrbY = &x, &y
	}
	o.emit(ev)
	o.logger.Debug("entered stop", "index", i, "stop", stop.ID, "found", found)

	o.typing = true
	o.schedule(timerTyping, o.timing.TypingDelay, func() {
		o.typing = false
		o.appendMessage(stop.Explanation, stop.ID)
	})

	o.arm()
}

// place positions the orb and highlight for stop. A missing target clears
// both rather than leaving the previous stop highlighted.
func (o *Orchestrator) place(stop Stop) bool {
	rect, ok := o.surface.Locate(stop.ElementID)
	if !ok {
		o.orb = nil
		o.highlight = ""
		return false
	}
	p := o.layout.OrbPosition(rect, stop.Position, o.surface.Viewport())
	o.orb = &p
	o.highlight = stop.ElementID
	return true
}

// arm starts the display-duration timer for the current stop.
func (o *Orchestrator) arm() {
	stop, ok := o.script.Stop(o.state.CurrentStopIndex)
	if !ok || !o.state.IsActive || o.state.IsPaused {
		return
	}
	o.gate.durationElapsed = false
	o.schedule(timerAdvance, stop.Duration()+o.timing.AutoAdvanceDelay, o.onDurationElapsed)
}

func (o *Orchestrator) onDurationElapsed() {
	o.gate = o.gate.observe(durationElapsed)

	if o.gate.waiting() {
		index := o.state.CurrentStopIndex
		o.emit(&events.TourWaitingEvent{
			BaseEvent: events.NewTourEvent(events.EventTourWaiting),
			Index:     index,
		})
		if o.timing.SpeechStallTimeout > 0 {
			o.schedule(timerStall, o.timing.SpeechStallTimeout, func() {
				o.logger.Warn("narration did not finish, advancing anyway", "stop", index)
				o.observeSpeech()
			})
		}
	}
	o.maybeAdvance()
}

func (o *Orchestrator) observeSpeech() {
	o.cancel(timerStall)
	o.gate = o.gate.observe(speechComplete)
	o.maybeAdvance()
}

// maybeAdvance schedules the advance once both phases are in.
func (o *Orchestrator) maybeAdvance() {
	if !o.gate.ready() || !o.state.IsActive || o.state.IsPaused {
		return
	}
	if o.timers[timerBuffer] != nil {
		return
	}
	o.schedule(timerBuffer, o.timing.SpeechBufferDelay, func() {
		if !o.state.IsActive || o.state.IsPaused {
			return
		}
		o.advance()
	})
}

func (o *Orchestrator) advance() {
	next := o.state.CurrentStopIndex + 1
	if next < o.script.Len() {
		o.goToStop(next)
		return
	}

	o.cancel(allTimers...)
	o.stopGen++
	o.state.IsActive = false
	o.state.IsPaused = false
	o.state.HasCompletedTour = true
	o.orb = nil
	o.highlight = ""
	o.typing = false
	o.gate = gate{}
	o.narrated = false

	o.logger.Info("tour complete", "stops", o.script.Len())
	o.emit(&events.TourCompleteEvent{
		BaseEvent:  events.NewTourEvent(events.EventTourComplete),
		TotalStops: o.script.Len(),
	})
}

// appendMessage adds narration to the log and hands it to the narrator.
func (o *Orchestrator) appendMessage(content, stopID string) {
	now := o.sched.Now()
	o.msgSeq++
	msg := Message{
		ID:        fmt.Sprintf("tour_%d_%d", now.UnixMilli(), o.msgSeq),
		Content:   content,
		StopID:    stopID,
		CreatedAt: now,
	}
	o.messages = append(o.messages, msg)
	o.emit(&events.TourMessageEvent{
		BaseEvent: events.NewTourEvent(events.EventTourMessage),
		MessageID: msg.ID,
		Content:   msg.Content,
		StopID:    msg.StopID,
	})

	if stopID != "" {
		o.narrated = true
	}
	if o.narrator == nil {
		if stopID != "" {
			o.observeSpeech()
		}
		return
	}

	gen := o.stopGen
	narrator := o.narrator
	o.effects = append(o.effects, func() {
		narrator.Speak(content, func() { o.speechDone(gen) })
	})
}

func (o *Orchestrator) speechDone(gen uint64) {
	o.update(func() {
		if gen != o.stopGen || o.state.CurrentStopIndex < 0 {
			return
		}
		o.observeSpeech()
	})
}

func (o *Orchestrator) scrollTo(elementID string) {
	rect, ok := o.surface.Locate(elementID)
	if !ok {
		return
	}
	o.surface.ScrollTo(geometry.ScrollTarget(rect, o.surface.Viewport()))
}

func (o *Orchestrator) emit(ev events.Event) {
	if o.router == nil {
		return
	}
	router := o.router
	o.effects = append(o.effects, func() { router.Emit(ev) })
}

// schedule replaces any pending timer of the same kind. fn runs with o.mu
// held.
func (o *Orchestrator) schedule(kind timerKind, d time.Duration, fn func()) {
	o.cancel(kind)
	seq := o.timerSeq[kind]
	o.timers[kind] = o.sched.AfterFunc(d, func() {
		o.mu.Lock()
		if o.timerSeq[kind] != seq {
			o.mu.Unlock()
			return
		}
		o.timers[kind] = nil
		fn()
		o.unlockAndFlush()
	})
}

func (o *Orchestrator) cancel(kinds ...timerKind) {
	for _, k := range kinds {
		if t := o.timers[k]; t != nil {
			t.Stop()
			o.timers[k] = nil
		}
		o.timerSeq[k]++
	}
}

func (o *Orchestrator) update(fn func()) {
	o.mu.Lock()
	fn()
	o.unlockAndFlush()
}

func (o *Orchestrator) unlockAndFlush() {
	effects := o.effects
	o.effects = nil
	o.mu.Unlock()

	for _, fn := range effects {
		fn()
	}

	select {
	case o.changes <- struct{}{}:
	default:
	}
}
