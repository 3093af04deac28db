package daemon

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/npratt/nova/internal/config"
)

// ErrNoDaemon is returned by FindDaemonInfo when no headless tour has
// registered itself in the project.
var ErrNoDaemon = errors.New("no headless tour running")

// DaemonInfo is what a headless tour publishes in .nova/daemon.json so
// control commands run from anywhere in the project can reach it and read
// the files it writes.
type DaemonInfo struct {
	SocketPath string    `json:"socket_path"`
	PIDPath    string    `json:"pid_path"`
	LogPath    string    `json:"log_path"`
	StatePath  string    `json:"state_path"`
	Script     string    `json:"script,omitempty"` // empty for the built-in tour
	StartTime  time.Time `json:"start_time"`
	PID        int       `json:"pid"`
}

const daemonInfoFile = "daemon.json"

// projectMarkers identify a project root, nearest directory wins.
var projectMarkers = []string{config.ProjectConfigDir, ".git"}

// ResolvePaths makes every path in paths absolute. Relative paths are taken
// from root (the working directory when empty) and a leading ~/ from the
// home directory.
func ResolvePaths(paths config.PathsConfig, root string) (config.PathsConfig, error) {
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return paths, fmt.Errorf("get working directory: %w", err)
		}
		root = wd
	}

	for _, p := range []*string{&paths.State, &paths.Log, &paths.Socket, &paths.PID, &paths.History} {
		resolved, err := resolvePath(*p, root)
		if err != nil {
			return paths, err
		}
		*p = resolved
	}
	return paths, nil
}

func resolvePath(p, root string) (string, error) {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expand %s: %w", p, err)
		}
		return filepath.Join(home, p[1:]), nil
	}
	if filepath.IsAbs(p) {
		return p, nil
	}
	return filepath.Join(root, p), nil
}

// FindProjectRoot returns the nearest directory at or above start holding
// a .nova or .git directory, or start itself (made absolute) when none
// does. An empty start means the working directory.
func FindProjectRoot(start string) string {
	if start == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "."
		}
		start = wd
	}
	abs, err := filepath.Abs(start)
	if err != nil {
		return start
	}

	for dir := abs; ; {
		if hasMarker(dir) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return abs
		}
		dir = parent
	}
}

func hasMarker(dir string) bool {
	for _, marker := range projectMarkers {
		if info, err := os.Stat(filepath.Join(dir, marker)); err == nil && info.IsDir() {
			return true
		}
	}
	return false
}

// DaemonInfoPath is .nova/daemon.json under the project root.
func DaemonInfoPath(root string) string {
	return filepath.Join(root, config.ProjectConfigDir, daemonInfoFile)
}

// FindDaemonInfo reads daemon.json from the project containing start. The
// error wraps ErrNoDaemon when the file is absent.
func FindDaemonInfo(start string) (*DaemonInfo, error) {
	path := DaemonInfoPath(FindProjectRoot(start))
	info, err := ReadDaemonInfo(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w (no %s)", ErrNoDaemon, path)
	}
	return info, err
}

// WriteDaemonInfo replaces path atomically so a control command never
// reads a half-written file.
func WriteDaemonInfo(path string, info *DaemonInfo) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal daemon info: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), daemonInfoFile+".*")
	if err != nil {
		return fmt.Errorf("write daemon info: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write daemon info: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write daemon info: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("write daemon info: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write daemon info: %w", err)
	}
	return nil
}

// ReadDaemonInfo reads and checks daemon.json.
func ReadDaemonInfo(path string) (*DaemonInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read daemon info: %w", err)
	}
	var info DaemonInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("unmarshal daemon info: %w", err)
	}
	if info.SocketPath == "" {
		return nil, fmt.Errorf("daemon info %s has no socket path", path)
	}
	return &info, nil
}

// RemoveDaemonInfo deletes daemon.json. A missing file is not an error.
func RemoveDaemonInfo(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove daemon info: %w", err)
	}
	return nil
}
