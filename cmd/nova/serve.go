package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/npratt/nova/internal/config"
	"github.com/npratt/nova/internal/events"
	"github.com/npratt/nova/internal/history"
	"github.com/npratt/nova/internal/llm"
	"github.com/npratt/nova/internal/llm/gemini"
	"github.com/npratt/nova/internal/llm/openrouter"
	"github.com/npratt/nova/internal/relay"
	"github.com/npratt/nova/internal/secrets"
	"github.com/npratt/nova/internal/shutdown"
	"github.com/npratt/nova/internal/tour"
)

// Relay providers accepted in relay.provider.
const (
	providerOpenRouter = "openrouter"
	providerGemini     = "gemini"
)

const (
	relayLogName    = "relay.log"
	shutdownTimeout = 30 * time.Second
)

func newServeCmd(logger *slog.Logger, logLevel *slog.LevelVar) *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the chat relay",
		Long: `Run NOVA's chat relay: POST /chat answers visitors through the configured
language model, GET /history returns a visitor's conversation, and GET /tour
bridges guided tours to browser pages over a websocket.

The model API key is read from relay.api_key (OPENROUTER_API_KEY by default).
Without one the relay still starts and answers /chat with an error.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			setVerbose(logger, logLevel)

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed(FlagAddr) {
				cfg.Relay.Addr = viper.GetString(FlagAddr)
			}
			if cmd.Flags().Changed(FlagProvider) {
				cfg.Relay.Provider = viper.GetString(FlagProvider)
			}
			if cmd.Flags().Changed(FlagModel) {
				if cfg.Relay.Provider == providerGemini {
					cfg.Relay.GeminiModel = viper.GetString(FlagModel)
				} else {
					cfg.Relay.Model = viper.GetString(FlagModel)
				}
			}
			if cmd.Flags().Changed(FlagHistory) {
				cfg.Paths.History = viper.GetString(FlagHistory)
			}

			return runRelay(cmd.Context(), cfg, logger)
		},
	}

	serveCmd.Flags().String(FlagAddr, "", "Listen address (default from relay.addr)")
	serveCmd.Flags().String(FlagProvider, "", "Model provider: openrouter or gemini")
	serveCmd.Flags().String(FlagModel, "", "Model name for the selected provider")
	serveCmd.Flags().String(FlagHistory, "", "SQLite chat history database")
	return serveCmd
}

// runRelay serves until ctx is cancelled or a signal arrives.
func runRelay(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	srv, stack, err := buildRelay(ctx, cfg, logger)
	if err != nil {
		return err
	}

	logger.Info("relay starting",
		"version", version,
		"addr", cfg.Relay.Addr,
		"provider", cfg.Relay.Provider,
		"history", cfg.Paths.History,
	)
	return shutdown.Run(ctx, logger, shutdownTimeout,
		func(runCtx context.Context) error {
			return srv.ListenAndServe(runCtx, cfg.Relay.Addr)
		},
		stack,
	)
}

// buildRelay assembles the relay and the stack that tears it down.
func buildRelay(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*relay.Server, *shutdown.Stack, error) {
	stack := &shutdown.Stack{}
	fail := func(err error) (*relay.Server, *shutdown.Stack, error) {
		_ = stack.Close(context.Background())
		return nil, nil, err
	}

	prompt, err := cfg.Relay.LoadSystemPrompt()
	if err != nil {
		return fail(err)
	}
	prompt = config.ExpandPrompt(prompt, config.PromptVars{
		Assistant:  cfg.Relay.Assistant,
		Product:    cfg.Relay.Product,
		TourMarker: relay.TourMarker,
	})

	script, err := tour.LoadScript(cfg.Tour.Script)
	if err != nil {
		return fail(err)
	}

	completer, err := newCompleter(ctx, cfg.Relay)
	switch {
	case errors.Is(err, llm.ErrNotConfigured):
		logger.Warn("model provider not configured, /chat will fail until an api key is set",
			"provider", cfg.Relay.Provider, "error", err)
	case err != nil:
		return fail(err)
	}

	store, err := history.NewSQLiteStore(cfg.Paths.History)
	if err != nil {
		return fail(fmt.Errorf("open chat history: %w", err))
	}
	stack.Push("history", func(context.Context) error { return store.Close() })

	router := events.NewRouter(events.DefaultBufferSize)
	sinkCtx, cancelSink := context.WithCancel(context.Background())
	logSink := events.NewLogSink(filepath.Join(filepath.Dir(cfg.Paths.Log), relayLogName))
	if err := logSink.Start(sinkCtx, router.Subscribe()); err != nil {
		cancelSink()
		router.Close()
		return fail(fmt.Errorf("start log sink: %w", err))
	}
	stack.Push("events", func(context.Context) error {
		router.Close()
		err := logSink.Stop()
		cancelSink()
		return err
	})

	opts := relay.Options{
		Completer:     completer,
		ProviderLabel: providerLabel(cfg.Relay.Provider),
		Store:         store,
		SystemPrompt:  prompt,
		Model:         cfg.Relay.Model,
		Temperature:   cfg.Relay.Temperature,
		MaxTokens:     cfg.Relay.MaxTokens,
		HistoryLimit:  cfg.Relay.HistoryLimit,
		Router:        router,
		Tour: relay.TourOptions{
			Script: script,
			Timing: cfg.Tour.Timing,
			Layout: cfg.Layout,
		},
	}
	if cfg.Relay.Provider == providerGemini {
		opts.Model = cfg.Relay.GeminiModel
	}
	return relay.New(opts), stack, nil
}

// newCompleter builds the configured provider. A missing API key returns
// an error wrapping llm.ErrNotConfigured.
func newCompleter(ctx context.Context, cfg config.RelayConfig) (llm.Completer, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", providerOpenRouter:
		key, err := loadAPIKey(cfg.APIKey, "openrouter api key")
		if err != nil {
			return nil, err
		}
		client, err := openrouter.New(openrouter.Config{
			BaseURL:     cfg.BaseURL,
			APIKey:      key,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			Timeout:     cfg.Timeout,
			Referer:     cfg.Referer,
			Title:       cfg.Assistant,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	case providerGemini:
		key, err := loadAPIKey(cfg.GeminiAPIKey, "gemini api key")
		if err != nil {
			return nil, err
		}
		client, err := gemini.New(ctx, gemini.Config{
			APIKey:      key,
			Model:       cfg.GeminiModel,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown relay provider %q (want %s or %s)", cfg.Provider, providerOpenRouter, providerGemini)
	}
}

func loadAPIKey(src secrets.Source, name string) (string, error) {
	src.Name = name
	key, err := secrets.Load(src)
	if errors.Is(err, secrets.ErrNotConfigured) {
		return "", fmt.Errorf("%s: %w", name, llm.ErrNotConfigured)
	}
	return key, err
}

func providerLabel(provider string) string {
	if strings.EqualFold(provider, providerGemini) {
		return "Gemini"
	}
	return "OpenRouter"
}
