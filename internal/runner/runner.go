// Package runner starts external helper processes (speech synthesizers and
// listen commands) behind an interface so tests can substitute scripted
// processes for real ones.
package runner

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
)

// ProcessRunner runs a single process with streamed output.
type ProcessRunner interface {
	// Start spawns a process and returns readers for stdout and stderr.
	// The process is killed when ctx is cancelled.
	Start(ctx context.Context, name string, args ...string) (stdout, stderr io.ReadCloser, err error)

	// Wait blocks until the process exits and returns the exit error.
	// Must be called after a successful Start.
	Wait() error

	// Kill terminates the process immediately. Safe to call more than once
	// or after the process exited.
	Kill() error
}

// Factory returns a fresh ProcessRunner. Runners are single-use, so callers
// that start one process per utterance or per listen session take a factory.
type Factory func() ProcessRunner

// ExecFactory is the production Factory.
func ExecFactory() ProcessRunner {
	return NewExecProcessRunner()
}

// LookPath reports whether name resolves to an executable on PATH.
func LookPath(name string) bool {
	if name == "" {
		return false
	}
	_, err := exec.LookPath(name)
	return err == nil
}

// ExecProcessRunner implements ProcessRunner with os/exec.
type ExecProcessRunner struct {
	mu      sync.Mutex
	cmd     *exec.Cmd
	started bool
	killed  bool
}

// NewExecProcessRunner creates an unstarted runner.
func NewExecProcessRunner() *ExecProcessRunner {
	return &ExecProcessRunner{}
}

// Start spawns the named process.
func (r *ExecProcessRunner) Start(ctx context.Context, name string, args ...string) (io.ReadCloser, io.ReadCloser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return nil, nil, fmt.Errorf("process already started")
	}
	if r.killed {
		return nil, nil, fmt.Errorf("process killed before start")
	}

	cmd := exec.CommandContext(ctx, name, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("stdout pipe: %w", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		_ = stdout.Close()
		return nil, nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		_ = stdout.Close()
		_ = stderr.Close()
		return nil, nil, fmt.Errorf("start %s: %w", name, err)
	}

	r.cmd = cmd
	r.started = true
	return stdout, stderr, nil
}

// Wait blocks until the process exits.
func (r *ExecProcessRunner) Wait() error {
	r.mu.Lock()
	cmd := r.cmd
	r.mu.Unlock()

	if cmd == nil {
		return fmt.Errorf("process not started")
	}

	return cmd.Wait()
}

// Kill terminates the process. A runner killed before Start refuses to
// start, which closes the window between creating a runner and starting it.
func (r *ExecProcessRunner) Kill() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.killed = true
	if r.cmd == nil || r.cmd.Process == nil {
		return nil
	}

	return r.cmd.Process.Kill()
}
