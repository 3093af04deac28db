// Package config provides configuration types and defaults for nova.
package config

import (
	"time"

	"github.com/npratt/nova/internal/geometry"
	"github.com/npratt/nova/internal/secrets"
	"github.com/npratt/nova/internal/speech"
	"github.com/npratt/nova/internal/tour"
)

// Config holds all configuration for nova.
type Config struct {
	Tour        TourConfig        `yaml:"tour" mapstructure:"tour"`
	Layout      geometry.Layout   `yaml:"layout" mapstructure:"layout"`
	Speech      speech.Config     `yaml:"speech" mapstructure:"speech"`
	Chat        ChatConfig        `yaml:"chat" mapstructure:"chat"`
	Relay       RelayConfig       `yaml:"relay" mapstructure:"relay"`
	Identity    IdentityConfig    `yaml:"identity" mapstructure:"identity"`
	Paths       PathsConfig       `yaml:"paths" mapstructure:"paths"`
	LogRotation LogRotationConfig `yaml:"log_rotation" mapstructure:"log_rotation"`
}

// TourConfig holds guided tour settings.
type TourConfig struct {
	Script         string        `yaml:"script" mapstructure:"script"`                     // Tour script YAML (embedded default when empty)
	AutoStart      bool          `yaml:"auto_start" mapstructure:"auto_start"`             // Start the tour when the widget opens
	AutoStartDelay time.Duration `yaml:"auto_start_delay" mapstructure:"auto_start_delay"` // Delay before the automatic start
	Timing         tour.Timing   `yaml:"timing" mapstructure:"timing"`
}

// ChatConfig holds settings for the chat client side of the relay.
type ChatConfig struct {
	Endpoint       string         `yaml:"endpoint" mapstructure:"endpoint"`                 // Relay base URL
	Timeout        time.Duration  `yaml:"timeout" mapstructure:"timeout"`                   // Per-request timeout
	HistoryLimit   int            `yaml:"history_limit" mapstructure:"history_limit"`       // Messages loaded when the chat opens
	ActionDelay    time.Duration  `yaml:"action_delay" mapstructure:"action_delay"`         // Delay before dispatching reply actions
	StartTourDelay time.Duration  `yaml:"start_tour_delay" mapstructure:"start_tour_delay"` // Delay between closing chat and starting the tour
	Token          secrets.Source `yaml:"token" mapstructure:"token"`                       // Optional bearer token sent to the relay
}

// RelayConfig holds settings for the chat relay server.
type RelayConfig struct {
	Addr             string         `yaml:"addr" mapstructure:"addr"`
	Provider         string         `yaml:"provider" mapstructure:"provider"` // "openrouter" or "gemini"
	BaseURL          string         `yaml:"base_url" mapstructure:"base_url"` // OpenAI-compatible API base
	Model            string         `yaml:"model" mapstructure:"model"`
	Temperature      float64        `yaml:"temperature" mapstructure:"temperature"`
	MaxTokens        int            `yaml:"max_tokens" mapstructure:"max_tokens"`
	HistoryLimit     int            `yaml:"history_limit" mapstructure:"history_limit"` // Prior messages sent to the model
	Timeout          time.Duration  `yaml:"timeout" mapstructure:"timeout"`             // Upstream model request timeout
	APIKey           secrets.Source `yaml:"api_key" mapstructure:"api_key"`
	GeminiModel      string         `yaml:"gemini_model" mapstructure:"gemini_model"`
	GeminiAPIKey     secrets.Source `yaml:"gemini_api_key" mapstructure:"gemini_api_key"`
	Assistant        string         `yaml:"assistant" mapstructure:"assistant"` // Persona name in the system prompt
	Product          string         `yaml:"product" mapstructure:"product"`     // Product the assistant represents
	SystemPrompt     string         `yaml:"system_prompt" mapstructure:"system_prompt"`
	SystemPromptFile string         `yaml:"system_prompt_file" mapstructure:"system_prompt_file"` // Takes priority over SystemPrompt
	Referer          string         `yaml:"referer" mapstructure:"referer"`                       // Sent as HTTP-Referer to OpenRouter
}

// IdentityConfig holds visitor identity storage settings.
type IdentityConfig struct {
	Path string `yaml:"path" mapstructure:"path"` // Empty uses $XDG_STATE_HOME/nova/identity.json
}

// PathsConfig holds file paths for state, logs, history and socket.
type PathsConfig struct {
	State   string `yaml:"state" mapstructure:"state"`
	Log     string `yaml:"log" mapstructure:"log"`
	Socket  string `yaml:"socket" mapstructure:"socket"`
	PID     string `yaml:"pid" mapstructure:"pid"`
	History string `yaml:"history" mapstructure:"history"` // sqlite database for chat history
}

// LogRotationConfig holds settings for log file rotation.
// Used for the TUI debug log (lumberjack-based automatic rotation).
type LogRotationConfig struct {
	MaxSizeMB  int  `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int  `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int  `yaml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool `yaml:"compress" mapstructure:"compress"`
}

// Default returns a Config with nova's defaults.
func Default() *Config {
	return &Config{
		Tour: TourConfig{
			AutoStart:      true,
			AutoStartDelay: time.Second,
			Timing:         tour.DefaultTiming(),
		},
		Layout: geometry.DefaultLayout(),
		Speech: speech.DefaultConfig(),
		Chat: ChatConfig{
			Endpoint:       "http://127.0.0.1:8787",
			Timeout:        30 * time.Second,
			HistoryLimit:   50,
			ActionDelay:    time.Second,
			StartTourDelay: 500 * time.Millisecond,
			Token:          secrets.Source{Env: "NOVA_CHAT_TOKEN"},
		},
		Relay: RelayConfig{
			Addr:         "127.0.0.1:8787",
			Provider:     "openrouter",
			BaseURL:      "https://openrouter.ai/api/v1",
			Model:        "openai/gpt-4o-mini",
			Temperature:  0.7,
			MaxTokens:    500,
			HistoryLimit: 20,
			Timeout:      60 * time.Second,
			APIKey:       secrets.Source{Env: "OPENROUTER_API_KEY"},
			GeminiModel:  "gemini-2.0-flash",
			GeminiAPIKey: secrets.Source{Env: "GEMINI_API_KEY"},
			Assistant:    "NOVA",
			Product:      "Endorsed AI",
		},
		Paths: PathsConfig{
			State:   ".nova/state.json",
			Log:     ".nova/nova.log",
			Socket:  ".nova/nova.sock",
			PID:     ".nova/nova.pid",
			History: ".nova/history.db",
		},
		LogRotation: LogRotationConfig{
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Compress:   true,
		},
	}
}
