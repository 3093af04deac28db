// Package shutdown runs a long-lived NOVA process until it finishes or a
// signal arrives, then tears its dependencies down in reverse order.
package shutdown

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// Stack collects teardown hooks. Close runs them last-in first-out so a
// component is closed before the things it depends on.
type Stack struct {
	mu     sync.Mutex
	hooks  []hook
	closed bool
}

type hook struct {
	name string
	fn   func(ctx context.Context) error
}

// Push registers fn under name. Hooks pushed after Close are ignored.
func (s *Stack) Push(name string, fn func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.hooks = append(s.hooks, hook{name: name, fn: fn})
}

// PushFunc registers a hook that cannot fail.
func (s *Stack) PushFunc(name string, fn func()) {
	s.Push(name, func(context.Context) error {
		fn()
		return nil
	})
}

// Close runs every hook once, newest first, and joins their errors. Later
// calls return nil.
func (s *Stack) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	hooks := s.hooks
	s.hooks = nil
	s.mu.Unlock()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		if err := hooks[i].fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", hooks[i].name, err))
		}
	}
	return errors.Join(errs...)
}

// Run calls run until it returns, ctx is cancelled or SIGINT/SIGTERM
// arrives. In every case the stack is closed within timeout. A run that
// ends with context.Canceled is a clean exit.
func Run(
	ctx context.Context,
	logger *slog.Logger,
	timeout time.Duration,
	run func(ctx context.Context) error,
	stack *Stack,
) error {
	if stack == nil {
		stack = &Stack{}
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	runCtx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	runDone := make(chan error, 1)
	go func() {
		runDone <- run(runCtx)
	}()

	var runErr error
	select {
	case runErr = <-runDone:
	case <-sigCtx.Done():
		if ctx.Err() == nil {
			logger.Info("received signal, initiating shutdown")
		}
		cancel()

		select {
		case runErr = <-runDone:
		case <-time.After(timeout):
			logger.Warn("shutdown timeout exceeded waiting for run to return")
		}
	}

	closeCtx, closeCancel := context.WithTimeout(context.Background(), timeout)
	defer closeCancel()
	if err := stack.Close(closeCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}
