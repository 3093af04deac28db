package main

import (
	"bytes"
	"io"
	"log/slog"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	root := newRootCmd(logger, &slog.LevelVar{})

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	if err := root.Execute(); err != nil {
		t.Fatalf("execute error: %v", err)
	}
	if out.String() != "nova dev\n" {
		t.Errorf("expected %q, got %q", "nova dev\n", out.String())
	}
}

func TestRootCommand_Subcommands(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	root := newRootCmd(logger, &slog.LevelVar{})

	for _, name := range []string{"tour", "serve", "chat", "identity", "script", "init", "events", "status", "stop", "next"} {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("expected %s subcommand, got %v (err %v)", name, cmd, err)
		}
	}
}
