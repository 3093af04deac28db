package events

import (
	"strings"
	"testing"
)

func TestFormat(t *testing.T) {
	x, y := 120.0, 340.0
	tests := []struct {
		name  string
		event Event
		want  string
	}{
		{"nil", nil, ""},
		{"start", &TourStartEvent{TotalStops: 4}, "tour started (4 stops)"},
		{"restart", &TourStartEvent{TotalStops: 4, Restart: true}, "tour restarted (4 stops)"},
		{"stop found", &TourStopEvent{Index: 0, StopID: "hero", ElementID: "hero-section", Found: true, OrbX: &x, OrbY: &y}, "stop 1: hero -> #hero-section"},
		{"stop missing", &TourStopEvent{Index: 2, StopID: "tech", ElementID: "tech-section"}, `stop 3: tech (element "tech-section" not on page)`},
		{"waiting", &TourWaitingEvent{Index: 1}, "stop 2: waiting for narration"},
		{"cancelled speech", &SpeechEndEvent{Engine: "say", Cancelled: true}, "speech cancelled [say]"},
		{"speech done", &SpeechEndEvent{Engine: "paced", DurationMs: 2500}, "speech finished [paced] in 2.5s"},
		{"action", &ChatActionEvent{Action: "start_tour"}, "action: start_tour"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Format(tt.event); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestFormatTruncatesLongText(t *testing.T) {
	got := Format(tourMessage(strings.Repeat("word ", 100)))
	if !strings.HasSuffix(got, truncateIndicator) {
		t.Errorf("expected truncation, got %q", got)
	}
	if len(got) > len("NOVA: ")+maxTextLength {
		t.Errorf("formatted text too long: %d", len(got))
	}
}

func TestParseEventUnknownType(t *testing.T) {
	ev, err := ParseEvent([]byte(`{"type":"something.else"}`))
	if err != nil || ev != nil {
		t.Errorf("expected nil, nil for unknown type, got %v, %v", ev, err)
	}

	if _, err := ParseEvent([]byte(`not json`)); err == nil {
		t.Error("expected error for malformed line")
	}
}
