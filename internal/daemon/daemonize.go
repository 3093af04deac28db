package daemon

import (
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"
)

const (
	// daemonEnvVar marks the re-executed child.
	daemonEnvVar = "NOVA_DAEMONIZED"

	socketWaitTimeout   = 2 * time.Second
	socketCheckInterval = 50 * time.Millisecond
)

// DetachOptions configures Daemonize.
type DetachOptions struct {
	// Socket is polled until the child is serving.
	Socket string
	// Output receives the child's stdout and stderr. Empty discards them.
	Output string
	// Announce receives the one-line startup notice. Nil uses stdout.
	Announce io.Writer
}

// Daemonize re-executes the current command detached from the terminal.
// In the parent it returns shouldExit=true once the child's socket accepts
// connections (or the wait times out). In the child it returns
// shouldExit=false so the caller carries on serving.
func Daemonize(opts DetachOptions) (shouldExit bool, pid int, err error) {
	if IsDaemonized() {
		return false, os.Getpid(), nil
	}

	executable, err := os.Executable()
	if err != nil {
		return false, 0, fmt.Errorf("get executable path: %w", err)
	}

	cmd := exec.Command(executable, os.Args[1:]...)
	cmd.Env = append(os.Environ(), daemonEnvVar+"=1")
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if opts.Output != "" {
		if err := os.MkdirAll(filepath.Dir(opts.Output), 0755); err != nil {
			return false, 0, fmt.Errorf("create output directory: %w", err)
		}
		out, err := os.OpenFile(opts.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return false, 0, fmt.Errorf("open daemon output: %w", err)
		}
		defer func() { _ = out.Close() }()
		cmd.Stdout = out
		cmd.Stderr = out
	}

	if err := cmd.Start(); err != nil {
		return false, 0, fmt.Errorf("start daemon: %w", err)
	}
	childPID := cmd.Process.Pid
	_ = cmd.Process.Release()

	announce := opts.Announce
	if announce == nil {
		announce = os.Stdout
	}
	if err := waitForSocketReady(opts.Socket, socketWaitTimeout); err != nil {
		_, _ = fmt.Fprintf(announce, "NOVA touring in the background (pid %d), socket not yet available\n", childPID)
	} else {
		_, _ = fmt.Fprintf(announce, "NOVA touring in the background (pid %d)\n", childPID)
	}

	return true, childPID, nil
}

// IsDaemonized returns true if the current process is running as a daemonized child.
func IsDaemonized() bool {
	return os.Getenv(daemonEnvVar) == "1"
}

// waitForSocketReady waits for the socket to accept connections.
func waitForSocketReady(socketPath string, timeout time.Duration) error {
	if socketPath == "" {
		return fmt.Errorf("no socket to wait for")
	}
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("unix", socketPath, socketCheckInterval)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		time.Sleep(socketCheckInterval)
	}
	return fmt.Errorf("socket not available after %v", timeout)
}
