package speech

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/npratt/nova/internal/runner"
)

// Recognizer turns one spoken phrase into text.
type Recognizer interface {
	// StartListening begins a session. onResult is called exactly once,
	// with the transcript, or with an empty transcript when nothing was
	// heard or the session was stopped.
	StartListening(ctx context.Context, onResult func(transcript string, err error)) error
	StopListening()
	Listening() bool
	Supported() bool
}

// CommandRecognizer runs a listen command and takes the first non-empty
// line it prints as the transcript.
type CommandRecognizer struct {
	command   string
	args      []string
	newRunner runner.Factory
	logger    *slog.Logger
	supported bool

	mu     sync.Mutex
	active *listenSession
}

type listenSession struct {
	proc   runner.ProcessRunner
	cancel context.CancelFunc
}

// NewRecognizer creates a recognizer for cfg.ListenCommand. It is
// unsupported when no command is configured or the command is not on PATH.
func NewRecognizer(cfg Config, opts ...Option) *CommandRecognizer {
	o := buildOptions(opts)
	return &CommandRecognizer{
		command:   cfg.ListenCommand,
		args:      cfg.ListenArgs,
		newRunner: o.newRunner,
		logger:    o.logger,
		supported: o.lookPath(cfg.ListenCommand),
	}
}

func (r *CommandRecognizer) Supported() bool { return r.supported }

func (r *CommandRecognizer) Listening() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active != nil
}

// StartListening starts the listen command.
func (r *CommandRecognizer) StartListening(ctx context.Context, onResult func(string, error)) error {
	if !r.supported {
		return ErrUnsupported
	}

	r.mu.Lock()
	if r.active != nil {
		r.mu.Unlock()
		return ErrAlreadyListening
	}
	ctx, cancel := context.WithCancel(ctx)
	s := &listenSession{proc: r.newRunner(), cancel: cancel}
	r.active = s
	r.mu.Unlock()

	stdout, stderr, err := s.proc.Start(ctx, r.command, r.args...)
	if err != nil {
		r.end(s)
		return err
	}

	go func() {
		go func() { _, _ = io.Copy(io.Discard, stderr) }()

		var transcript string
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				transcript = line
				break
			}
		}
		if transcript != "" {
			// One phrase per session.
			_ = s.proc.Kill()
		}
		_, _ = io.Copy(io.Discard, stdout)

		waitErr := s.proc.Wait()
		stopped := r.end(s)

		var resultErr error
		if transcript == "" && waitErr != nil && !stopped {
			r.logger.Warn("listen command failed", "command", r.command, "error", waitErr)
			resultErr = waitErr
		}
		if onResult != nil {
			onResult(transcript, resultErr)
		}
	}()
	return nil
}

// StopListening ends the current session; its callback reports an empty
// transcript.
func (r *CommandRecognizer) StopListening() {
	r.mu.Lock()
	s := r.active
	r.active = nil
	r.mu.Unlock()

	if s != nil {
		s.cancel()
		_ = s.proc.Kill()
	}
}

// end clears s and reports whether it had already been stopped.
func (r *CommandRecognizer) end(s *listenSession) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.cancel()
	if r.active != s {
		return true
	}
	r.active = nil
	return false
}
