package daemon

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/npratt/nova/internal/config"
)

func TestResolvePaths(t *testing.T) {
	root := t.TempDir()
	home := t.TempDir()
	t.Setenv("HOME", home)

	resolved, err := ResolvePaths(config.PathsConfig{
		State:   ".nova/state.json",
		Log:     "/var/log/nova/nova.log",
		Socket:  "~/.nova/nova.sock",
		PID:     "run/nova.pid",
		History: "~",
	}, root)
	if err != nil {
		t.Fatalf("ResolvePaths error: %v", err)
	}

	tests := []struct {
		name      string
		got, want string
	}{
		{"relative", resolved.State, filepath.Join(root, ".nova", "state.json")},
		{"absolute", resolved.Log, "/var/log/nova/nova.log"},
		{"home prefix", resolved.Socket, filepath.Join(home, ".nova", "nova.sock")},
		{"nested relative", resolved.PID, filepath.Join(root, "run", "nova.pid")},
		{"bare home", resolved.History, home},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: expected %q, got %q", tt.name, tt.want, tt.got)
		}
	}
}

func TestResolvePaths_DefaultsToWorkingDir(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	resolved, err := ResolvePaths(config.Default().Paths, "")
	if err != nil {
		t.Fatalf("ResolvePaths error: %v", err)
	}
	if want := filepath.Join(wd, ".nova", "history.db"); resolved.History != want {
		t.Errorf("expected %q, got %q", want, resolved.History)
	}
}

func TestFindProjectRoot(t *testing.T) {
	tests := []struct {
		name    string
		markers []string // directories created under the project
		start   string   // relative to the project
		want    string   // relative to the project, "" is the project itself
	}{
		{"nova dir", []string{".nova"}, "site/pages", ""},
		{"git dir", []string{".git"}, "site", ""},
		{"nested project wins", []string{".git", "site/.nova"}, "site/pages", "site"},
		{"at root", []string{".nova"}, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			project := t.TempDir()
			for _, m := range tt.markers {
				if err := os.MkdirAll(filepath.Join(project, m), 0755); err != nil {
					t.Fatal(err)
				}
			}
			start := filepath.Join(project, tt.start)
			if err := os.MkdirAll(start, 0755); err != nil {
				t.Fatal(err)
			}

			if got, want := FindProjectRoot(start), filepath.Join(project, tt.want); got != want {
				t.Errorf("expected %q, got %q", want, got)
			}
		})
	}
}

func TestHasMarker_RequiresDir(t *testing.T) {
	project := t.TempDir()
	if err := os.WriteFile(filepath.Join(project, ".nova"), []byte("not a dir"), 0644); err != nil {
		t.Fatal(err)
	}
	if hasMarker(project) {
		t.Error("expected a .nova file not to mark a project")
	}
}

func TestDaemonInfo_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "daemon.json")
	info := &DaemonInfo{
		SocketPath: "/tmp/nova.sock",
		PIDPath:    "/tmp/nova.pid",
		LogPath:    "/tmp/nova.log",
		StatePath:  "/tmp/state.json",
		Script:     "/srv/tour.yaml",
		StartTime:  time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
		PID:        4242,
	}

	if err := WriteDaemonInfo(path, info); err != nil {
		t.Fatalf("WriteDaemonInfo error: %v", err)
	}
	got, err := ReadDaemonInfo(path)
	if err != nil {
		t.Fatalf("ReadDaemonInfo error: %v", err)
	}
	if *got != *info {
		t.Errorf("expected %+v, got %+v", info, got)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("expected only daemon.json after write, found %d entries", len(entries))
	}

	info.PID = 7
	if err := WriteDaemonInfo(path, info); err != nil {
		t.Fatalf("rewrite error: %v", err)
	}
	if got, _ := ReadDaemonInfo(path); got == nil || got.PID != 7 {
		t.Errorf("expected rewritten pid 7, got %+v", got)
	}
}

func TestReadDaemonInfo_Invalid(t *testing.T) {
	dir := t.TempDir()
	tests := map[string]string{
		"bad json":  "{",
		"no socket": `{"pid": 1}`,
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".json")
			if err := os.WriteFile(path, []byte(content), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := ReadDaemonInfo(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestFindDaemonInfo(t *testing.T) {
	project := t.TempDir()
	pages := filepath.Join(project, "site", "pages")
	if err := os.MkdirAll(pages, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(project, ".nova"), 0755); err != nil {
		t.Fatal(err)
	}

	if _, err := FindDaemonInfo(pages); !errors.Is(err, ErrNoDaemon) {
		t.Fatalf("expected ErrNoDaemon, got %v", err)
	}

	want := &DaemonInfo{SocketPath: filepath.Join(project, ".nova", "nova.sock"), PID: 99}
	if err := WriteDaemonInfo(DaemonInfoPath(project), want); err != nil {
		t.Fatal(err)
	}

	got, err := FindDaemonInfo(pages)
	if err != nil {
		t.Fatalf("FindDaemonInfo error: %v", err)
	}
	if got.SocketPath != want.SocketPath || got.PID != 99 {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestRemoveDaemonInfo(t *testing.T) {
	path := DaemonInfoPath(t.TempDir())
	if err := WriteDaemonInfo(path, &DaemonInfo{SocketPath: "/tmp/s"}); err != nil {
		t.Fatal(err)
	}
	if err := RemoveDaemonInfo(path); err != nil {
		t.Fatalf("RemoveDaemonInfo error: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expected daemon.json removed")
	}
	if err := RemoveDaemonInfo(path); err != nil {
		t.Errorf("expected removing twice to succeed, got %v", err)
	}
}

func TestDaemonInfoPath(t *testing.T) {
	if got := DaemonInfoPath("/srv/site"); got != "/srv/site/.nova/daemon.json" {
		t.Errorf("unexpected path %q", got)
	}
}
