package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/npratt/nova/internal/daemon"
	"github.com/npratt/nova/internal/events"
)

func TestPrintStatus(t *testing.T) {
	var out bytes.Buffer
	printStatus(&out, &daemon.StatusResponse{
		Status:    "at_stop",
		Uptime:    "1m0s",
		StartTime: "2026-01-02T10:00:00Z",
		Tour: daemon.TourStatus{
			StopIndex:        1,
			StopID:           "pricing",
			TotalStops:       7,
			Progress:         28.57,
			Message:          "Plans for every team.",
			WaitingForSpeech: true,
			VoiceEnabled:     true,
			VoiceSupported:   true,
		},
	})

	got := out.String()
	for _, want := range []string{
		"Status: at_stop",
		"Stop: 2/7 (pricing)",
		"Progress: 29%",
		"NOVA: Plans for every team.",
		"Waiting for narration to finish",
		"Voice: on",
		"Uptime: 1m0s",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in output:\n%s", want, got)
		}
	}
	if strings.Contains(got, "typing") {
		t.Errorf("did not expect typing line:\n%s", got)
	}
}

func TestPrintStatus_Idle(t *testing.T) {
	var out bytes.Buffer
	printStatus(&out, &daemon.StatusResponse{Status: "idle", Tour: daemon.TourStatus{StopIndex: -1, TotalStops: 7}})

	if !strings.Contains(out.String(), "Stops: 7") {
		t.Errorf("expected stop count for idle tour, got:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "Voice: unavailable") {
		t.Errorf("expected unavailable voice, got:\n%s", out.String())
	}
}

func TestPrintState(t *testing.T) {
	var out bytes.Buffer
	printState(&out, &events.State{
		Status:         events.StatusCompleted,
		CurrentStop:    6,
		CurrentStopID:  "cta",
		TotalStops:     7,
		StopsVisited:   7,
		ToursStarted:   2,
		ToursCompleted: 1,
		ChatMessages:   4,
		UpdatedAt:      time.Date(2026, 1, 2, 10, 0, 0, 0, time.Local),
	})

	got := out.String()
	for _, want := range []string{
		"Last tour: completed",
		"Stop: 7/7 (cta)",
		"Tours started: 2",
		"Tours completed: 1",
		"Chat messages: 4",
		"Updated: 2026-01-02 10:00:00",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in output:\n%s", want, got)
		}
	}
}

func TestVoiceLabel(t *testing.T) {
	tests := []struct {
		enabled, supported bool
		want               string
	}{
		{true, true, "on"},
		{false, true, "off"},
		{true, false, "unavailable"},
		{false, false, "unavailable"},
	}
	for _, tt := range tests {
		if got := voiceLabel(tt.enabled, tt.supported); got != tt.want {
			t.Errorf("voiceLabel(%v, %v): expected %q, got %q", tt.enabled, tt.supported, tt.want, got)
		}
	}
}

func TestWriteJSON(t *testing.T) {
	var out bytes.Buffer
	if err := writeJSON(&out, daemon.StatusResponse{Status: "paused"}); err != nil {
		t.Fatalf("writeJSON error: %v", err)
	}

	var decoded daemon.StatusResponse
	if err := json.Unmarshal(out.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if decoded.Status != "paused" {
		t.Errorf("expected paused, got %q", decoded.Status)
	}
}

func TestControlCommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range newControlCmds() {
		names[c.Name()] = true
	}
	for _, want := range []string{"status", "stop", "start", "pause", "resume", "next", "prev", "restart", "end"} {
		if !names[want] {
			t.Errorf("expected %s command", want)
		}
	}
}
