package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/npratt/nova/internal/chat"
	"github.com/npratt/nova/internal/config"
	"github.com/npratt/nova/internal/events"
	"github.com/npratt/nova/internal/geometry"
	"github.com/npratt/nova/internal/identity"
	"github.com/npratt/nova/internal/sched"
	"github.com/npratt/nova/internal/secrets"
	"github.com/npratt/nova/internal/speech"
	"github.com/npratt/nova/internal/tour"
	"github.com/npratt/nova/internal/widget"
)

// The terminal page is laid out on a virtual desktop-sized document; the TUI
// scales it to whatever grid it gets.
const (
	pageWidth     = 1280
	pageHeight    = 800
	sectionHeight = 560
	sectionGap    = 120
)

// tuiEventBuffer is the TUI's router subscription size.
const tuiEventBuffer = 5000

// appOptions overrides the pieces tests need to control.
type appOptions struct {
	logger    *slog.Logger
	scheduler sched.Scheduler
	engine    speech.Engine
	backend   chat.Backend
	voiceOff  bool
}

// app is one running NOVA widget with its event plumbing.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	router    *events.Router
	logSink   *events.LogSink
	stateSink *events.StateSink
	script    *tour.Script
	page      *geometry.Document
	voice     *widget.Voice
	tour      *tour.Orchestrator
	chat      *chat.Session
	widget    *widget.Widget
	identity  *identity.Provider

	cancelSinks context.CancelFunc
}

// newApp loads the script, starts the event sinks and composes the widget.
// The caller mounts the widget and must Close the app.
func newApp(ctx context.Context, cfg *config.Config, opts appOptions) (*app, error) {
	logger := opts.logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := opts.scheduler
	if clock == nil {
		clock = sched.Real{}
	}

	script, err := tour.LoadScript(cfg.Tour.Script)
	if err != nil {
		return nil, err
	}

	router := events.NewRouter(events.DefaultBufferSize)
	sinkCtx, cancelSinks := context.WithCancel(ctx)

	logSink := events.NewLogSink(cfg.Paths.Log)
	if err := logSink.Start(sinkCtx, router.Subscribe()); err != nil {
		cancelSinks()
		router.Close()
		return nil, fmt.Errorf("start log sink: %w", err)
	}
	stateSink := events.NewStateSink(cfg.Paths.State)
	if err := stateSink.Start(sinkCtx, router.SubscribeBuffered(events.StateBufferSize)); err != nil {
		cancelSinks()
		router.Close()
		_ = logSink.Stop()
		return nil, fmt.Errorf("start state sink: %w", err)
	}

	a := &app{
		cfg:         cfg,
		logger:      logger,
		router:      router,
		logSink:     logSink,
		stateSink:   stateSink,
		script:      script,
		cancelSinks: cancelSinks,
	}

	a.identity = identity.NewProvider(identity.NewFileStore(identityPath(cfg)), logger)
	identity.SetDefault(a.identity)

	backend := opts.backend
	if backend == nil {
		client, err := newChatClient(cfg.Chat)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		backend = client
	}

	engine := opts.engine
	if engine == nil {
		engine = speech.New(cfg.Speech,
			speech.WithScheduler(clock),
			speech.WithRouter(router),
			speech.WithLogger(logger),
		)
	}
	a.voice = widget.NewVoice(engine)
	if opts.voiceOff {
		a.voice.SetEnabled(false)
	}

	a.page = geometry.NewDocument(
		geometry.Viewport{Width: pageWidth, Height: pageHeight},
		geometry.StackSections(pageWidth, sectionHeight, sectionGap, elementIDs(script)...)...,
	)

	a.tour = tour.New(script,
		tour.WithScheduler(clock),
		tour.WithNarrator(a.voice),
		tour.WithSurface(a.page),
		tour.WithRouter(router),
		tour.WithLogger(logger),
		tour.WithTiming(cfg.Tour.Timing),
		tour.WithLayout(cfg.Layout),
	)
	a.chat = chat.NewSession(backend, identity.Get,
		chat.WithScheduler(clock),
		chat.WithRouter(router),
		chat.WithLogger(logger),
		chat.WithHistoryLimit(cfg.Chat.HistoryLimit),
		chat.WithActionDelay(cfg.Chat.ActionDelay),
	)
	a.widget = widget.New(a.tour, a.chat, a.voice, widget.Config{
		AutoStart:      cfg.Tour.AutoStart,
		AutoStartDelay: cfg.Tour.AutoStartDelay,
		StartTourDelay: cfg.Chat.StartTourDelay,
	},
		widget.WithScheduler(clock),
		widget.WithRecognizer(speech.NewRecognizer(cfg.Speech, speech.WithLogger(logger))),
		widget.WithLogger(logger),
	)

	logger.Info("widget ready",
		"stops", len(script.Stops),
		"speech", a.voice.EngineName(),
		"voice_supported", a.voice.Supported(),
		"chat_endpoint", cfg.Chat.Endpoint,
	)
	return a, nil
}

// Close unmounts the widget and flushes the sinks.
func (a *app) Close() error {
	if a.widget != nil {
		a.widget.Unmount()
	}
	// Closing the router lets the sinks drain what is already queued.
	a.router.Close()
	err := errors.Join(a.logSink.Stop(), a.stateSink.Stop())
	a.cancelSinks()
	return err
}

// newChatClient builds the relay client. A missing token is not an error;
// the relay decides whether it needs one.
func newChatClient(cfg config.ChatConfig) (*chat.Client, error) {
	src := cfg.Token
	src.Name = "chat token"
	token, err := secrets.Load(src)
	if err != nil && !errors.Is(err, secrets.ErrNotConfigured) {
		return nil, err
	}
	return chat.NewClient(chat.ClientConfig{
		Endpoint: cfg.Endpoint,
		Token:    token,
		Timeout:  cfg.Timeout,
	})
}

// identityPath returns the visitor id file, defaulting to the XDG state dir.
func identityPath(cfg *config.Config) string {
	if cfg.Identity.Path != "" {
		return cfg.Identity.Path
	}
	return identity.DefaultPath()
}

// elementIDs lists the script's target elements once each, in tour order.
func elementIDs(script *tour.Script) []string {
	seen := make(map[string]bool, len(script.Stops))
	ids := make([]string, 0, len(script.Stops))
	for _, stop := range script.Stops {
		if stop.ElementID == "" || seen[stop.ElementID] {
			continue
		}
		seen[stop.ElementID] = true
		ids = append(ids, stop.ElementID)
	}
	return ids
}

// debugLogDir is where the TUI debug log lives, next to the event log.
func debugLogDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.Log)
}
