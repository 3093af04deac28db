// Package daemon runs a headless tour in the background with external
// control via Unix socket RPC.
package daemon

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/npratt/nova/internal/config"
	"github.com/npratt/nova/internal/widget"
)

// Controller is the tour the daemon drives. *widget.Widget satisfies it.
type Controller interface {
	View() widget.View
	StartTour(ctx context.Context)
	Pause()
	Resume()
	Next()
	Prev()
	EndTour()
	RestartTour(ctx context.Context)
}

// Daemon serves tour control requests on a Unix socket.
type Daemon struct {
	config     *config.Config
	controller Controller
	sockPath   string
	startTime  time.Time
	logger     *slog.Logger
	onStop     func()

	listener net.Listener
	running  bool
	mu       sync.RWMutex
}

// New creates a new Daemon with the given configuration and controller.
func New(cfg *config.Config, ctrl Controller, logger *slog.Logger) *Daemon {
	if logger == nil {
		logger = slog.Default()
	}
	return &Daemon{
		config:     cfg,
		controller: ctrl,
		sockPath:   cfg.Paths.Socket,
		logger:     logger,
	}
}

// OnStop registers fn to run when a client requests the stop method, after
// the listener has closed. The caller typically cancels its run context.
func (d *Daemon) OnStop(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onStop = fn
}

// Running returns whether the daemon is currently running.
func (d *Daemon) Running() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.running
}

// setRunning updates the running state (thread-safe).
func (d *Daemon) setRunning(running bool) {
	d.mu.Lock()
	d.running = running
	d.mu.Unlock()
}

// Controller returns the underlying controller for testing.
func (d *Daemon) Controller() Controller {
	return d.controller
}

// StartTime returns when the daemon was started.
func (d *Daemon) StartTime() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.startTime
}

// SocketPath returns the Unix socket path.
func (d *Daemon) SocketPath() string {
	return d.sockPath
}
