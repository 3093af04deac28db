package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"
)

const (
	// maxMessageSize caps a single request.
	maxMessageSize = 64 * 1024
	readTimeout    = 10 * time.Second
	writeTimeout   = 10 * time.Second
	// socketPermissions keep the control socket private to the user.
	socketPermissions = 0600
)

// Start listens on the Unix socket and serves requests until ctx is
// cancelled or Stop is called.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon already running")
	}
	d.mu.Unlock()

	// A socket left by a crashed daemon would make Listen fail.
	_ = os.Remove(d.sockPath)

	listener, err := net.Listen("unix", d.sockPath)
	if err != nil {
		return fmt.Errorf("listen on socket: %w", err)
	}
	if err := os.Chmod(d.sockPath, socketPermissions); err != nil {
		_ = listener.Close()
		return fmt.Errorf("set socket permissions: %w", err)
	}

	d.mu.Lock()
	d.listener = listener
	d.running = true
	d.startTime = time.Now()
	d.mu.Unlock()

	d.logger.Info("daemon started", "socket", d.sockPath)

	done := make(chan struct{})
	go func() {
		d.serve(ctx, listener)
		close(done)
	}()

	select {
	case <-ctx.Done():
	case <-done:
	}
	return d.Stop()
}

// Stop closes the listener and removes the socket.
func (d *Daemon) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return nil
	}
	d.running = false

	if d.listener != nil {
		if err := d.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			d.logger.Error("error closing listener", "error", err)
		}
		d.listener = nil
	}
	_ = os.Remove(d.sockPath)

	d.logger.Info("daemon stopped")
	return nil
}

func (d *Daemon) serve(ctx context.Context, listener net.Listener) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil || !d.Running() {
				return
			}
			d.logger.Error("accept error", "error", err)
			continue
		}
		go d.handleConnection(ctx, conn)
	}
}

// handleConnection serves one request per connection.
func (d *Daemon) handleConnection(ctx context.Context, conn net.Conn) {
	defer func() { _ = conn.Close() }()

	if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
		d.logger.Error("set read deadline error", "error", err)
		return
	}

	encoder := json.NewEncoder(conn)
	var req Request
	if err := json.NewDecoder(io.LimitReader(conn, maxMessageSize)).Decode(&req); err != nil {
		_ = encoder.Encode(Response{Error: fmt.Sprintf("decode error: %v", err)})
		return
	}

	start := time.Now()
	resp := d.handleRequest(ctx, &req)
	resp.ID = req.ID
	d.logger.Debug("handled request", "method", req.Method, "duration", time.Since(start), "error", resp.Error)

	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := encoder.Encode(resp); err != nil {
		d.logger.Warn("failed to write response", "method", req.Method, "error", err)
	}
}
