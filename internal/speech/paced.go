package speech

import (
	"log/slog"
	"sync"
	"time"

	"github.com/npratt/nova/internal/events"
	"github.com/npratt/nova/internal/sched"
)

// PacedEngine produces no audio. Each utterance lasts as long as it would
// take to read aloud, so narration timing matches a voiced tour.
type PacedEngine struct {
	wpm    float64
	sched  sched.Scheduler
	router *events.Router
	logger *slog.Logger

	mu      sync.Mutex
	current *pacedUtterance
}

type pacedUtterance struct {
	timer   sched.Timer
	done    func()
	started time.Time
	once    sync.Once
}

// NewPacedEngine creates a paced engine from cfg's rate and speed.
func NewPacedEngine(cfg Config, opts ...Option) *PacedEngine {
	return newPaced(cfg, buildOptions(opts))
}

func newPaced(cfg Config, o options) *PacedEngine {
	return &PacedEngine{
		wpm:    cfg.effectiveWPM(),
		sched:  o.sched,
		router: o.router,
		logger: o.logger,
	}
}

func (e *PacedEngine) Name() string    { return EnginePaced }
func (e *PacedEngine) Supported() bool { return false }

func (e *PacedEngine) Speaking() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current != nil
}

// Speak schedules text's completion after its reading time.
func (e *PacedEngine) Speak(text string, done func()) {
	if done == nil {
		done = func() {}
	}
	u := &pacedUtterance{done: done, started: e.sched.Now()}

	e.mu.Lock()
	prev := e.current
	var prevTimer sched.Timer
	if prev != nil {
		prevTimer = prev.timer
	}
	e.current = u
	e.mu.Unlock()

	if prev != nil {
		if prevTimer != nil {
			prevTimer.Stop()
		}
		e.finish(prev, true)
	}

	e.emit(&events.SpeechStartEvent{
		BaseEvent: events.NewSpeechEvent(events.EventSpeechStart),
		Engine:    EnginePaced,
		Text:      text,
	})

	d := ReadingTime(text, e.wpm)
	e.mu.Lock()
	u.timer = e.sched.AfterFunc(d, func() { e.finish(u, false) })
	e.mu.Unlock()
}

// StopSpeaking ends the current utterance now.
func (e *PacedEngine) StopSpeaking() {
	e.mu.Lock()
	u := e.current
	e.current = nil
	var timer sched.Timer
	if u != nil {
		timer = u.timer
	}
	e.mu.Unlock()

	if u == nil {
		return
	}
	if timer != nil {
		timer.Stop()
	}
	e.finish(u, true)
}

func (e *PacedEngine) finish(u *pacedUtterance, cancelled bool) {
	u.once.Do(func() {
		e.mu.Lock()
		if e.current == u {
			e.current = nil
		}
		e.mu.Unlock()

		e.emit(&events.SpeechEndEvent{
			BaseEvent:  events.NewSpeechEvent(events.EventSpeechEnd),
			Engine:     EnginePaced,
			DurationMs: e.sched.Now().Sub(u.started).Milliseconds(),
			Cancelled:  cancelled,
		})
		u.done()
	})
}

func (e *PacedEngine) emit(ev events.Event) {
	if e.router != nil {
		e.router.Emit(ev)
	}
}
