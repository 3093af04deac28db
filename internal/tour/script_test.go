package tour

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultScript(t *testing.T) {
	s := DefaultScript()
	if s.Len() == 0 {
		t.Fatal("expected default stops")
	}
	if !strings.Contains(s.Greeting, "NOVA") {
		t.Errorf("expected greeting to introduce NOVA, got %q", s.Greeting)
	}
	for _, stop := range s.Stops {
		if stop.Duration() <= 0 {
			t.Errorf("stop %s: expected positive duration", stop.ID)
		}
	}
	if first, _ := s.Stop(0); first.ElementID != "hero-section" {
		t.Errorf("expected tour to open on the hero, got %q", first.ElementID)
	}
}

func TestParseScript(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		s, err := ParseScript([]byte(`
greeting: "  Hello  "
stops:
  - element_id: pricing
    position: bottom
    duration: 1500
    explanation: Prices.
`))
		if err != nil {
			t.Fatalf("ParseScript: %v", err)
		}
		stop, ok := s.Stop(0)
		if !ok {
			t.Fatal("expected stop 0")
		}
		if stop.ID != "pricing" {
			t.Errorf("expected id to default to element id, got %q", stop.ID)
		}
		if stop.Duration() != 1500*time.Millisecond {
			t.Errorf("expected 1.5s, got %s", stop.Duration())
		}
		if s.Greeting != "Hello" {
			t.Errorf("expected trimmed greeting, got %q", s.Greeting)
		}
	})

	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"no stops", "greeting: hi\nstops: []\n", "no stops"},
		{"missing element", "stops:\n  - position: left\n    explanation: x\n", "element_id is required"},
		{"bad position", "stops:\n  - element_id: a\n    position: middle\n    explanation: x\n", "invalid position"},
		{"duplicate id", "stops:\n  - {element_id: a, position: left, explanation: x}\n  - {element_id: a, position: top, explanation: y}\n", "duplicate id"},
		{"negative duration", "stops:\n  - {element_id: a, position: left, explanation: x, duration: -1}\n", "negative"},
		{"missing explanation", "stops:\n  - {element_id: a, position: left}\n", "explanation is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScript([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}

	t.Run("empty is sentinel", func(t *testing.T) {
		_, err := ParseScript([]byte("stops: []"))
		if !errors.Is(err, ErrEmptyScript) {
			t.Errorf("expected ErrEmptyScript, got %v", err)
		}
	})
}

func TestLoadScript(t *testing.T) {
	t.Run("empty path uses default", func(t *testing.T) {
		s, err := LoadScript("")
		if err != nil {
			t.Fatalf("LoadScript: %v", err)
		}
		if s.Len() != DefaultScript().Len() {
			t.Errorf("expected default script")
		}
	})

	t.Run("round trips through marshal", func(t *testing.T) {
		data, err := DefaultScript().Marshal()
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		path := filepath.Join(t.TempDir(), "tour.yaml")
		if err := os.WriteFile(path, data, 0644); err != nil {
			t.Fatal(err)
		}
		s, err := LoadScript(path)
		if err != nil {
			t.Fatalf("LoadScript: %v", err)
		}
		if s.Len() != DefaultScript().Len() {
			t.Errorf("expected %d stops, got %d", DefaultScript().Len(), s.Len())
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadScript(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Error("expected error for missing file")
		}
	})
}

func TestGate(t *testing.T) {
	var g gate
	if g.ready() || g.waiting() {
		t.Fatal("fresh gate must be neither ready nor waiting")
	}

	g = g.observe(speechComplete)
	if g.ready() || g.waiting() {
		t.Error("speech alone must not open the gate")
	}

	g = g.observe(durationElapsed)
	if !g.ready() {
		t.Error("expected gate ready after both signals")
	}

	g = gate{}.observe(durationElapsed)
	if !g.waiting() || g.ready() {
		t.Error("duration alone should be waiting")
	}
}

func TestStatePhase(t *testing.T) {
	tests := []struct {
		state State
		want  Phase
	}{
		{State{CurrentStopIndex: -1}, PhaseIdle},
		{State{IsActive: true, CurrentStopIndex: -1}, PhaseGreeting},
		{State{IsActive: true, IsPaused: true, CurrentStopIndex: 2}, PhaseAtStop},
		{State{HasCompletedTour: true, CurrentStopIndex: 3}, PhaseCompleted},
	}
	for _, tt := range tests {
		if got := tt.state.Phase(); got != tt.want {
			t.Errorf("%+v: expected %s, got %s", tt.state, tt.want, got)
		}
	}
}
