package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/npratt/nova/internal/chat"
	"github.com/npratt/nova/internal/config"
	"github.com/npratt/nova/internal/relay"
)

func TestSendOne(t *testing.T) {
	backend := &fakeBackend{reply: chat.Reply{Message: "Let me show you around.", Actions: []string{relay.ActionStartTour}}}
	var actions []string

	var out bytes.Buffer
	err := sendOne(context.Background(), &out, backend, "visitor_1", "show me", func(a string) {
		actions = append(actions, a)
	})
	if err != nil {
		t.Fatalf("sendOne error: %v", err)
	}

	if out.String() != "NOVA: Let me show you around.\n" {
		t.Errorf("unexpected output %q", out.String())
	}
	if len(actions) != 1 || actions[0] != relay.ActionStartTour {
		t.Errorf("expected start_tour action, got %v", actions)
	}
	if len(backend.sent) != 1 || backend.sent[0] != "show me" {
		t.Errorf("expected message sent, got %v", backend.sent)
	}
}

func TestConverse(t *testing.T) {
	backend := &fakeBackend{reply: chat.Reply{Message: "Fourteen days."}}
	in := strings.NewReader("is there a trial?\n\n   \nthanks\n")

	var out bytes.Buffer
	if err := converse(context.Background(), in, &out, backend, "visitor_1", func(string) {}); err != nil {
		t.Fatalf("converse error: %v", err)
	}

	if len(backend.sent) != 2 {
		t.Fatalf("expected blank lines skipped, got %v", backend.sent)
	}
	if strings.Count(out.String(), "NOVA: Fourteen days.") != 2 {
		t.Errorf("expected two replies, got %q", out.String())
	}
	if strings.Count(out.String(), chatPrompt) != 5 {
		t.Errorf("expected a prompt per line plus the first, got %q", out.String())
	}
}

func TestConverse_ReportsErrorsAndContinues(t *testing.T) {
	backend := &fakeBackend{err: errors.New("relay down")}

	var out bytes.Buffer
	if err := converse(context.Background(), strings.NewReader("hello\nagain\n"), &out, backend, "v", func(string) {}); err != nil {
		t.Fatalf("converse error: %v", err)
	}
	if strings.Count(out.String(), "error: relay down") != 2 {
		t.Errorf("expected both failures reported, got %q", out.String())
	}
}

func TestPrintHistory(t *testing.T) {
	stamp := time.Date(2026, 3, 4, 9, 30, 0, 0, time.Local)
	backend := &fakeBackend{history: []chat.Message{
		{ID: "1", Role: chat.RoleUser, Content: "Hi", CreatedAt: stamp},
		{ID: "2", Role: chat.RoleAssistant, Content: "Hello there."},
		{ID: "3", Role: chat.RoleUser, Content: "Pricing?"},
	}}

	var out bytes.Buffer
	if err := printHistory(context.Background(), &out, backend, "v", 0); err != nil {
		t.Fatalf("printHistory error: %v", err)
	}
	want := "[2026-03-04 09:30] you: Hi\nNOVA: Hello there.\nyou: Pricing?\n"
	if out.String() != want {
		t.Errorf("expected %q, got %q", want, out.String())
	}

	out.Reset()
	if err := printHistory(context.Background(), &out, backend, "v", 1); err != nil {
		t.Fatalf("printHistory error: %v", err)
	}
	if out.String() != "you: Pricing?\n" {
		t.Errorf("expected limit applied, got %q", out.String())
	}
}

func TestPrintHistory_Empty(t *testing.T) {
	var out bytes.Buffer
	if err := printHistory(context.Background(), &out, &fakeBackend{}, "v", 10); err != nil {
		t.Fatalf("printHistory error: %v", err)
	}
	if out.String() != "No messages yet\n" {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestVisitorProvider_Persists(t *testing.T) {
	cfg := config.Default()
	cfg.Identity.Path = filepath.Join(t.TempDir(), "identity.json")

	first := visitorProvider(cfg).Get()
	if !strings.HasPrefix(first, "visitor_") {
		t.Errorf("expected visitor_ prefix, got %q", first)
	}
	if again := visitorProvider(cfg).Get(); again != first {
		t.Errorf("expected persisted id %q, got %q", first, again)
	}

	reset := visitorProvider(cfg).Reset()
	if reset == first {
		t.Error("expected Reset to replace the id")
	}
	if again := visitorProvider(cfg).Get(); again != reset {
		t.Errorf("expected reset id %q, got %q", reset, again)
	}
}
