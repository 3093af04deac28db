package daemon

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func TestNewPIDFile(t *testing.T) {
	path := "/tmp/test.pid"
	pf := NewPIDFile(path)

	if pf.Path() != path {
		t.Errorf("expected path %s, got %s", path, pf.Path())
	}
}

func TestPIDFile_LockAndPID(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "test.pid")
	pf := NewPIDFile(path)

	// Take the lock
	if err := pf.Lock(); err != nil {
		t.Fatalf("Lock() error: %v", err)
	}
	defer func() { _ = pf.Release() }()

	// PID should return the current process
	pid := pf.PID()
	if pid != os.Getpid() {
		t.Errorf("expected pid %d, got %d", os.Getpid(), pid)
	}

	// File should exist
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("PID file should exist after Lock()")
	}
}

func TestPIDFile_LockCreatesDirectory(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "subdir", "test.pid")
	pf := NewPIDFile(path)

	if err := pf.Lock(); err != nil {
		t.Fatalf("Lock() error: %v", err)
	}
	defer func() { _ = pf.Release() }()

	// Directory should be created
	dir := filepath.Dir(path)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		t.Error("directory should be created by Lock()")
	}
}

func TestPIDFile_Release(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "test.pid")
	pf := NewPIDFile(path)

	if err := pf.Lock(); err != nil {
		t.Fatalf("Lock() error: %v", err)
	}

	if err := pf.Release(); err != nil {
		t.Fatalf("Release() error: %v", err)
	}

	// File should be gone
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("PID file should be removed after Release()")
	}
}

func TestPIDFile_PIDNonExistent(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "nonexistent.pid")
	pf := NewPIDFile(path)

	pid := pf.PID()
	if pid != 0 {
		t.Errorf("expected 0 for nonexistent file, got %d", pid)
	}
}

func TestPIDFile_PIDInvalidContent(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "test.pid")

	// Write invalid content
	if err := os.WriteFile(path, []byte("not-a-number\n"), 0644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	pf := NewPIDFile(path)
	pid := pf.PID()
	if pid != 0 {
		t.Errorf("expected 0 for invalid content, got %d", pid)
	}
}

func TestPIDFile_FlockPreventsDoubleLock(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "test.pid")

	pf1 := NewPIDFile(path)
	pf2 := NewPIDFile(path)

	// First lock should succeed
	if err := pf1.Lock(); err != nil {
		t.Fatalf("first Lock() error: %v", err)
	}
	defer func() { _ = pf1.Release() }()

	// Second lock should fail
	err := pf2.Lock()
	if err == nil {
		_ = pf2.Release()
		t.Fatal("expected error for second Lock(), got nil")
	}
	if !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("expected ErrAlreadyRunning, got %v", err)
	}
}

func TestProcessAlive_CurrentProcess(t *testing.T) {
	if !ProcessAlive(os.Getpid()) {
		t.Error("current process should be running")
	}
}

func TestProcessAlive_InvalidPID(t *testing.T) {
	if ProcessAlive(0) {
		t.Error("PID 0 should not be running")
	}
	if ProcessAlive(-1) {
		t.Error("negative PID should not be running")
	}
}

func TestProcessAlive_NonExistentPID(t *testing.T) {
	// Use a very high PID that is unlikely to exist
	// Note: This test may be flaky on systems with many processes
	if ProcessAlive(999999999) {
		t.Error("nonexistent PID should not be running")
	}
}

func TestPIDFile_IsRunning(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "test.pid")
	pf := NewPIDFile(path)

	// Lock records the current PID
	if err := pf.Lock(); err != nil {
		t.Fatalf("Lock() error: %v", err)
	}
	defer func() { _ = pf.Release() }()

	// Should report as running
	if !pf.IsRunning() {
		t.Error("expected IsRunning() to return true for current process")
	}
}

func TestPIDFile_IsRunning_DeadProcess(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "test.pid")

	// Write a PID that doesn't exist
	if err := os.WriteFile(path, []byte("999999999\n"), 0644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	pf := NewPIDFile(path)
	if pf.IsRunning() {
		t.Error("expected IsRunning() to return false for dead process")
	}
}

func TestPIDFile_CleanupStale_DeadProcess(t *testing.T) {
	tmp := t.TempDir()
	pidPath := filepath.Join(tmp, "test.pid")
	sockPath := filepath.Join(tmp, "test.sock")

	// Create stale files
	if err := os.WriteFile(pidPath, []byte("999999999\n"), 0644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	if err := os.WriteFile(sockPath, []byte(""), 0644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	pf := NewPIDFile(pidPath)
	pf.CleanupStale(sockPath)

	// Both files should be removed
	if _, err := os.Stat(pidPath); !os.IsNotExist(err) {
		t.Error("PID file should be removed")
	}
	if _, err := os.Stat(sockPath); !os.IsNotExist(err) {
		t.Error("socket file should be removed")
	}
}

func TestPIDFile_CleanupStale_LiveProcess(t *testing.T) {
	tmp := t.TempDir()
	pidPath := filepath.Join(tmp, "test.pid")
	sockPath := filepath.Join(tmp, "test.sock")

	// Create files with current PID (live process)
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())+"\n"), 0644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	if err := os.WriteFile(sockPath, []byte(""), 0644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	pf := NewPIDFile(pidPath)
	pf.CleanupStale(sockPath)

	// Files should NOT be removed (process is alive)
	if _, err := os.Stat(pidPath); os.IsNotExist(err) {
		t.Error("PID file should NOT be removed for live process")
	}
	if _, err := os.Stat(sockPath); os.IsNotExist(err) {
		t.Error("socket file should NOT be removed for live process")
	}
}

func TestPIDFile_CleanupStale_EmptySocketPath(t *testing.T) {
	tmp := t.TempDir()
	pidPath := filepath.Join(tmp, "test.pid")

	// Create stale PID file
	if err := os.WriteFile(pidPath, []byte("999999999\n"), 0644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	pf := NewPIDFile(pidPath)
	pf.CleanupStale("") // Empty socket path

	// PID file should be removed
	if _, err := os.Stat(pidPath); !os.IsNotExist(err) {
		t.Error("PID file should be removed")
	}
}

func TestPIDFile_LockAfterRelease(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "test.pid")

	pf := NewPIDFile(path)
	if err := pf.Lock(); err != nil {
		t.Fatalf("Lock() error: %v", err)
	}
	if err := pf.Release(); err != nil {
		t.Fatalf("Release() error: %v", err)
	}

	next := NewPIDFile(path)
	if err := next.Lock(); err != nil {
		t.Fatalf("Lock() after release error: %v", err)
	}
	defer func() { _ = next.Release() }()

	if next.PID() != os.Getpid() {
		t.Errorf("expected pid %d, got %d", os.Getpid(), next.PID())
	}
}
