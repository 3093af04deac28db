// Package testutil provides test infrastructure for unit and integration testing.
package testutil

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/npratt/nova/internal/runner"
)

// Errors returned by MockProcessRunner.
var (
	ErrProcessAlreadyStarted = errors.New("process already started")
	ErrProcessNotStarted     = errors.New("process not started")
	ErrProcessKilled         = errors.New("process killed")
)

// MockProcess records a single Start call and its configuration.
type MockProcess struct {
	Name string
	Args []string
}

// StartCallback is called on each Start invocation.
// It can be used to simulate different behaviors on each attempt.
// Return the output, stderr, and error to use for this Start call.
type StartCallback func(attempt int, name string, args []string) (stdout string, stderr string, startErr error)

// MockProcessRunner implements runner.ProcessRunner for testing.
// It provides canned responses and records calls for assertion.
type MockProcessRunner struct {
	mu sync.Mutex

	// Configuration
	stdout     string
	stderr     string
	startErr   error
	waitErr    error
	onStart    StartCallback
	hold       bool

	// State tracking
	started     bool
	killed      bool
	waitCalled  bool
	startCount  int
	processes   []MockProcess
	stdoutPipe  *mockPipe
	stderrPipe  *mockPipe
	exited      chan struct{}
	exitOnce    sync.Once
}

// NewMockProcessRunner creates a new mock for testing.
func NewMockProcessRunner() *MockProcessRunner {
	return &MockProcessRunner{
		processes: make([]MockProcess, 0),
	}
}

// SetOutput configures the stdout content to return.
func (m *MockProcessRunner) SetOutput(content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stdout = content
}

// SetStderr configures the stderr content to return.
func (m *MockProcessRunner) SetStderr(content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stderr = content
}

// SetStartError configures an error to return from Start.
func (m *MockProcessRunner) SetStartError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startErr = err
}

// SetWaitError configures an error to return from Wait.
func (m *MockProcessRunner) SetWaitError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.waitErr = err
}

// SetHold makes Wait block until Kill or Release is called, simulating a
// process that is still speaking or listening.
func (m *MockProcessRunner) SetHold(hold bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hold = hold
}

// Release lets a held process exit normally.
func (m *MockProcessRunner) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exit()
}

func (m *MockProcessRunner) exit() {
	if m.exited == nil {
		return
	}
	m.exitOnce.Do(func() { close(m.exited) })
}

// OnStart sets a callback for dynamic start behavior.
// The callback is invoked on each Start call and can return
// different responses based on the attempt number.
func (m *MockProcessRunner) OnStart(fn StartCallback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onStart = fn
}

// Start implements runner.ProcessRunner.Start.
func (m *MockProcessRunner) Start(ctx context.Context, name string, args ...string) (io.ReadCloser, io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return nil, nil, ErrProcessAlreadyStarted
	}

	m.startCount++
	m.processes = append(m.processes, MockProcess{Name: name, Args: args})

	// Use callback if set
	stdout, stderr, startErr := m.stdout, m.stderr, m.startErr
	if m.onStart != nil {
		stdout, stderr, startErr = m.onStart(m.startCount, name, args)
	}

	if startErr != nil {
		return nil, nil, startErr
	}

	m.started = true
	m.killed = false
	m.waitCalled = false

	m.stdoutPipe = newMockPipe(stdout)
	m.stderrPipe = newMockPipe(stderr)
	m.exited = make(chan struct{})
	m.exitOnce = sync.Once{}
	if !m.hold {
		m.exit()
	}

	return m.stdoutPipe, m.stderrPipe, nil
}

// Wait implements runner.ProcessRunner.Wait.
func (m *MockProcessRunner) Wait() error {
	m.mu.Lock()

	if !m.started {
		m.mu.Unlock()
		return ErrProcessNotStarted
	}
	m.waitCalled = true
	exited := m.exited
	m.mu.Unlock()

	<-exited

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.killed {
		return ErrProcessKilled
	}

	return m.waitErr
}

// Kill implements runner.ProcessRunner.Kill.
func (m *MockProcessRunner) Kill() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return nil // Safe to call if not started
	}

	m.killed = true
	m.exit()

	// Close pipes to unblock readers
	if m.stdoutPipe != nil {
		_ = m.stdoutPipe.Close()
	}
	if m.stderrPipe != nil {
		_ = m.stderrPipe.Close()
	}

	return nil
}

// Reset clears state for reuse in multi-attempt tests.
// Call this between simulated process restarts.
func (m *MockProcessRunner) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.started = false
	m.killed = false
	m.waitCalled = false
	m.stdoutPipe = nil
	m.stderrPipe = nil
	m.exited = nil
}

// StartCount returns the number of times Start was called.
func (m *MockProcessRunner) StartCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startCount
}

// Processes returns a copy of all recorded process starts.
func (m *MockProcessRunner) Processes() []MockProcess {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]MockProcess, len(m.processes))
	copy(result, m.processes)
	return result
}

// Started returns whether a process is currently started.
func (m *MockProcessRunner) Started() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started
}

// Killed returns whether the process was killed.
func (m *MockProcessRunner) Killed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.killed
}

// WaitCalled returns whether Wait was called.
func (m *MockProcessRunner) WaitCalled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.waitCalled
}

// MockProcessFactory hands out a new MockProcessRunner per call, for code
// that starts one process per utterance or listen session.
type MockProcessFactory struct {
	mu        sync.Mutex
	configure func(attempt int, m *MockProcessRunner)
	runners   []*MockProcessRunner
}

// NewMockProcessFactory creates a factory. configure, if non-nil, is applied
// to each runner before it is returned.
func NewMockProcessFactory(configure func(attempt int, m *MockProcessRunner)) *MockProcessFactory {
	return &MockProcessFactory{configure: configure}
}

// New implements runner.Factory.
func (f *MockProcessFactory) New() runner.ProcessRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := NewMockProcessRunner()
	if f.configure != nil {
		f.configure(len(f.runners)+1, m)
	}
	f.runners = append(f.runners, m)
	return m
}

// Runners returns every runner handed out so far.
func (f *MockProcessFactory) Runners() []*MockProcessRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*MockProcessRunner, len(f.runners))
	copy(out, f.runners)
	return out
}

// Last returns the most recent runner, or nil.
func (f *MockProcessFactory) Last() *MockProcessRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.runners) == 0 {
		return nil
	}
	return f.runners[len(f.runners)-1]
}

// mockPipe provides a simple io.ReadCloser for mock output.
type mockPipe struct {
	reader io.Reader
	closed bool
	mu     sync.Mutex
}

func newMockPipe(content string) *mockPipe {
	return &mockPipe{
		reader: strings.NewReader(content),
	}
}

func (p *mockPipe) Read(buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, io.EOF
	}

	return p.reader.Read(buf)
}

func (p *mockPipe) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}
