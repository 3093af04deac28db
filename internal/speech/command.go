package speech

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/npratt/nova/internal/events"
	"github.com/npratt/nova/internal/runner"
)

// CommandEngine speaks by running a synthesizer binary once per utterance.
// Cancelling an utterance kills its process.
type CommandEngine struct {
	cfg       Config
	command   string
	newRunner runner.Factory
	router    *events.Router
	logger    *slog.Logger
	now       func() time.Time

	mu      sync.Mutex
	current *utterance
}

type utterance struct {
	text      string
	proc      runner.ProcessRunner
	cancel    context.CancelFunc
	done      func()
	started   time.Time
	cancelled bool // guarded by CommandEngine.mu
	once      sync.Once
}

// NewCommandEngine creates an engine that runs command. It does not probe
// PATH; use New for detection.
func NewCommandEngine(cfg Config, command string, opts ...Option) *CommandEngine {
	return newCommand(cfg, command, buildOptions(opts))
}

func newCommand(cfg Config, command string, o options) *CommandEngine {
	return &CommandEngine{
		cfg:       cfg,
		command:   command,
		newRunner: o.newRunner,
		router:    o.router,
		logger:    o.logger.With("engine", filepath.Base(command)),
		now:       o.sched.Now,
	}
}

// Name returns the synthesizer's base name.
func (e *CommandEngine) Name() string { return filepath.Base(e.command) }

// Supported is always true; New only builds a CommandEngine for a command
// it found.
func (e *CommandEngine) Supported() bool { return true }

// Speaking reports whether a synthesizer process is running.
func (e *CommandEngine) Speaking() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current != nil
}

// Speak starts text, cancelling any utterance in progress.
func (e *CommandEngine) Speak(text string, done func()) {
	if done == nil {
		done = func() {}
	}
	text = strings.TrimSpace(text)

	ctx, cancel := context.WithCancel(context.Background())
	u := &utterance{
		text:    text,
		proc:    e.newRunner(),
		cancel:  cancel,
		done:    done,
		started: e.now(),
	}

	e.mu.Lock()
	prev := e.current
	if prev != nil {
		prev.cancelled = true
	}
	e.current = u
	e.mu.Unlock()

	if prev != nil {
		prev.stop()
	}

	if text == "" {
		e.finish(u, nil)
		return
	}

	stdout, stderr, err := u.proc.Start(ctx, e.command, commandArgs(e.cfg, e.command, text)...)
	if err != nil {
		e.finish(u, err)
		return
	}

	e.emit(&events.SpeechStartEvent{
		BaseEvent: events.NewSpeechEvent(events.EventSpeechStart),
		Engine:    e.Name(),
		Text:      text,
	})

	go func() {
		var errBuf bytes.Buffer
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = io.Copy(&errBuf, io.LimitReader(stderr, 4096))
			_, _ = io.Copy(io.Discard, stderr)
		}()
		_, _ = io.Copy(io.Discard, stdout)
		wg.Wait()

		err := u.proc.Wait()
		if err != nil && errBuf.Len() > 0 {
			e.logger.Debug("synthesizer stderr", "output", strings.TrimSpace(errBuf.String()))
		}
		e.finish(u, err)
	}()
}

// StopSpeaking kills the current utterance. Its done callback still runs.
func (e *CommandEngine) StopSpeaking() {
	e.mu.Lock()
	u := e.current
	if u != nil {
		u.cancelled = true
		e.current = nil
	}
	e.mu.Unlock()

	if u != nil {
		u.stop()
	}
}

func (u *utterance) stop() {
	u.cancel()
	_ = u.proc.Kill()
}

// finish reports an utterance's end once, however many paths reach it.
func (e *CommandEngine) finish(u *utterance, err error) {
	u.once.Do(func() {
		e.mu.Lock()
		if e.current == u {
			e.current = nil
		}
		cancelled := u.cancelled
		e.mu.Unlock()

		u.cancel()

		ev := &events.SpeechEndEvent{
			BaseEvent:  events.NewSpeechEvent(events.EventSpeechEnd),
			Engine:     e.Name(),
			DurationMs: e.now().Sub(u.started).Milliseconds(),
			Cancelled:  cancelled,
		}
		if err != nil && !cancelled {
			ev.Error = err.Error()
			e.logger.Warn("speech failed", "error", err)
		}
		e.emit(ev)

		u.done()
	})
}

func (e *CommandEngine) emit(ev events.Event) {
	if e.router != nil {
		e.router.Emit(ev)
	}
}
