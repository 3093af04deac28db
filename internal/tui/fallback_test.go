package tui

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/npratt/nova/internal/events"
)

func TestTerminalSize_ReturnsInts(t *testing.T) {
	// May return 0,0 if not a terminal
	width, height := terminalSize()
	if width < 0 || height < 0 {
		t.Errorf("terminalSize returned negative values: %d, %d", width, height)
	}
}

func TestPrintEvents_ExitsOnChannelClose(t *testing.T) {
	eventChan := make(chan events.Event)

	done := make(chan error, 1)
	go func() {
		done <- printEvents(context.Background(), &bytes.Buffer{}, eventChan)
	}()

	close(eventChan)

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("printEvents returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("printEvents did not exit after channel close")
	}
}

func TestPrintEvents_ExitsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := printEvents(ctx, &bytes.Buffer{}, nil); err != nil {
		t.Errorf("printEvents returned error: %v", err)
	}
}

func TestPrintEvents_FormatsEvents(t *testing.T) {
	eventChan := make(chan events.Event, 3)
	eventChan <- &events.TourStartEvent{BaseEvent: events.NewTourEvent(events.EventTourStart), TotalStops: 7}
	eventChan <- &events.TourWaitingEvent{BaseEvent: events.NewTourEvent(events.EventTourWaiting), Index: 2}
	close(eventChan)

	var out bytes.Buffer
	if err := printEvents(context.Background(), &out, eventChan); err != nil {
		t.Fatalf("printEvents error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), out.String())
	}
	if !strings.HasSuffix(lines[0], "tour started (7 stops)") {
		t.Errorf("unexpected first line %q", lines[0])
	}
	if !strings.HasSuffix(lines[1], "stop 3: waiting for narration") {
		t.Errorf("unexpected second line %q", lines[1])
	}
}
