package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/npratt/nova/internal/chat"
	"github.com/npratt/nova/internal/config"
	"github.com/npratt/nova/internal/events"
	"github.com/npratt/nova/internal/speech"
	"github.com/npratt/nova/internal/testutil"
	"github.com/npratt/nova/internal/tour"
)

type fakeBackend struct {
	sent    []string
	reply   chat.Reply
	history []chat.Message
	err     error
}

func (f *fakeBackend) Send(_ context.Context, _ string, message string) (*chat.Reply, error) {
	f.sent = append(f.sent, message)
	if f.err != nil {
		return nil, f.err
	}
	reply := f.reply
	return &reply, nil
}

func (f *fakeBackend) History(_ context.Context, _ string, limit int) ([]chat.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit > 0 && len(f.history) > limit {
		return f.history[len(f.history)-limit:], nil
	}
	return f.history, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.Log = filepath.Join(dir, "nova.log")
	cfg.Paths.State = filepath.Join(dir, "state.json")
	cfg.Paths.Socket = filepath.Join(dir, "nova.sock")
	cfg.Paths.PID = filepath.Join(dir, "nova.pid")
	cfg.Paths.History = filepath.Join(dir, "history.db")
	cfg.Identity.Path = filepath.Join(dir, "identity.json")
	cfg.Speech.Engine = speech.EngineNone
	return cfg
}

func TestNewApp_ComposesWidget(t *testing.T) {
	cfg := testConfig(t)
	clock := testutil.NewManualScheduler()

	a, err := newApp(context.Background(), cfg, appOptions{
		scheduler: clock,
		backend:   &fakeBackend{},
	})
	if err != nil {
		t.Fatalf("newApp error: %v", err)
	}

	script := tour.DefaultScript()
	sections := a.page.Sections()
	ids := elementIDs(script)
	if len(sections) != len(ids) {
		t.Fatalf("expected %d sections, got %d", len(ids), len(sections))
	}
	for i, s := range sections {
		if s.ID != ids[i] {
			t.Errorf("section %d: expected %q, got %q", i, ids[i], s.ID)
		}
	}

	view := a.widget.View()
	if view.Tour.TotalStops != len(script.Stops) {
		t.Errorf("expected %d stops, got %d", len(script.Stops), view.Tour.TotalStops)
	}
	if view.VoiceSupported {
		t.Error("expected the none engine to be unsupported")
	}

	a.widget.Mount(context.Background())
	clock.Advance(cfg.Tour.AutoStartDelay)
	if phase := a.widget.View().Tour.Phase; phase != tour.PhaseGreeting {
		t.Errorf("expected greeting after auto-start, got %s", phase)
	}

	if err := a.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	state, err := events.ReadState(cfg.Paths.State)
	if err != nil {
		t.Fatalf("ReadState error: %v", err)
	}
	if state.ToursStarted != 1 {
		t.Errorf("expected 1 tour started in state file, got %d", state.ToursStarted)
	}
	if _, err := os.Stat(cfg.Paths.Log); err != nil {
		t.Errorf("expected event log, got %v", err)
	}
}

func TestNewApp_VoiceOff(t *testing.T) {
	cfg := testConfig(t)
	speaker := testutil.NewFakeSpeaker()

	a, err := newApp(context.Background(), cfg, appOptions{
		scheduler: testutil.NewManualScheduler(),
		backend:   &fakeBackend{},
		engine:    speaker,
		voiceOff:  true,
	})
	if err != nil {
		t.Fatalf("newApp error: %v", err)
	}
	defer func() { _ = a.Close() }()

	view := a.widget.View()
	if !view.VoiceSupported || view.VoiceEnabled {
		t.Errorf("expected supported but muted voice, got supported=%v enabled=%v", view.VoiceSupported, view.VoiceEnabled)
	}
}

func TestNewApp_BadScript(t *testing.T) {
	cfg := testConfig(t)
	cfg.Tour.Script = filepath.Join(t.TempDir(), "missing.yaml")

	if _, err := newApp(context.Background(), cfg, appOptions{backend: &fakeBackend{}}); err == nil {
		t.Error("expected error for a missing script")
	}
}

func TestNewApp_RequiresEndpoint(t *testing.T) {
	cfg := testConfig(t)
	cfg.Chat.Endpoint = ""

	if _, err := newApp(context.Background(), cfg, appOptions{scheduler: testutil.NewManualScheduler()}); err == nil {
		t.Error("expected error without a chat endpoint")
	}
}

func TestElementIDs_Dedupes(t *testing.T) {
	script := &tour.Script{Stops: []tour.Stop{
		{ID: "a", ElementID: "hero"},
		{ID: "b", ElementID: "pricing"},
		{ID: "c", ElementID: "hero"},
	}}

	ids := elementIDs(script)
	if len(ids) != 2 || ids[0] != "hero" || ids[1] != "pricing" {
		t.Errorf("expected [hero pricing], got %v", ids)
	}
}

func TestDebugLogDir(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.Log = "/tmp/project/.nova/nova.log"
	if got := debugLogDir(cfg); got != "/tmp/project/.nova" {
		t.Errorf("expected /tmp/project/.nova, got %s", got)
	}
}
