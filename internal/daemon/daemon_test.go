package daemon

import (
	"bytes"
	"log/slog"
	"sync"
	"testing"

	"github.com/npratt/nova/internal/config"
)

func TestNew(t *testing.T) {
	cfg := config.Default()
	d := New(cfg, nil, nil)

	if d.config != cfg {
		t.Error("config not set")
	}
	if d.logger == nil {
		t.Error("logger should default to slog.Default()")
	}
	if d.SocketPath() != cfg.Paths.Socket {
		t.Errorf("expected socket path %s, got %s", cfg.Paths.Socket, d.SocketPath())
	}
	if d.Controller() != nil {
		t.Error("Controller() should return nil when no controller is set")
	}
	if !d.StartTime().IsZero() {
		t.Error("start time should be zero before Start")
	}
}

func TestNew_WithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	d := New(config.Default(), &fakeController{}, logger)

	if d.logger != logger {
		t.Error("expected provided logger")
	}
	if d.Controller() == nil {
		t.Error("expected controller to be set")
	}
}

func TestDaemon_RunningState(t *testing.T) {
	d := New(config.Default(), nil, nil)
	if d.Running() {
		t.Error("daemon should not be running initially")
	}

	d.setRunning(true)
	if !d.Running() {
		t.Error("expected running after setRunning(true)")
	}
	d.setRunning(false)
	if d.Running() {
		t.Error("expected stopped after setRunning(false)")
	}
}

func TestDaemon_ThreadSafety(t *testing.T) {
	d := New(config.Default(), nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			d.setRunning(i%2 == 0)
		}(i)
		go func() {
			defer wg.Done()
			_ = d.Running()
			_ = d.StartTime()
		}()
	}
	wg.Wait()
}

func TestDaemon_DefaultPaths(t *testing.T) {
	cfg := config.Default()
	if cfg.Paths.Socket != ".nova/nova.sock" {
		t.Errorf("expected default socket path .nova/nova.sock, got %s", cfg.Paths.Socket)
	}
	if cfg.Paths.PID != ".nova/nova.pid" {
		t.Errorf("expected default PID path .nova/nova.pid, got %s", cfg.Paths.PID)
	}
}
