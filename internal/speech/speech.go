// Package speech gives NOVA a voice. Engines speak one utterance at a time:
// Speak cancels whatever is playing, and every utterance reports completion
// exactly once through its done callback, whether it finished, failed or
// was cut off.
package speech

import (
	"errors"
	"log/slog"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/npratt/nova/internal/events"
	"github.com/npratt/nova/internal/runner"
	"github.com/npratt/nova/internal/sched"
)

// Engine kinds accepted in Config.Engine.
const (
	EngineAuto    = "auto"
	EngineCommand = "command"
	EnginePaced   = "paced"
	EngineNone    = "none"
)

// KnownEngine reports whether name is an engine kind New understands.
// Empty selects auto.
func KnownEngine(name string) bool {
	switch name {
	case "", EngineAuto, EngineCommand, EnginePaced, EngineNone:
		return true
	}
	return false
}

// Errors returned by recognizers.
var (
	ErrUnsupported      = errors.New("speech recognition not available")
	ErrAlreadyListening = errors.New("already listening")
)

// DefaultCommands are the synthesizers probed, in order, when no command is
// configured.
var DefaultCommands = []string{"say", "spd-say", "espeak-ng", "espeak"}

// Engine is a text-to-speech backend.
type Engine interface {
	// Speak cancels any utterance in progress and starts text. done is
	// called exactly once, possibly before Speak returns.
	Speak(text string, done func())
	// StopSpeaking cancels the current utterance. Its done still fires.
	StopSpeaking()
	// Speaking reports whether an utterance is in progress.
	Speaking() bool
	// Supported reports whether the engine produces real audio. It is
	// fixed at construction.
	Supported() bool
	// Name identifies the engine in events and logs.
	Name() string
}

// Config selects and tunes the speech engine and the listen command.
type Config struct {
	Engine         string   `yaml:"engine" mapstructure:"engine"`                     // auto, command, paced or none
	Command        string   `yaml:"command" mapstructure:"command"`                   // Synthesizer binary (auto-detected when empty)
	Args           []string `yaml:"args" mapstructure:"args"`                         // Argument template; "{text}" is replaced by the utterance
	Voice          string   `yaml:"voice" mapstructure:"voice"`                       // Voice name passed to the synthesizer
	Rate           float64  `yaml:"rate" mapstructure:"rate"`                         // Relative speaking rate (1.0 = normal)
	Pitch          float64  `yaml:"pitch" mapstructure:"pitch"`                       // Relative pitch (1.0 = normal)
	WordsPerMinute int      `yaml:"words_per_minute" mapstructure:"words_per_minute"` // Speaking speed at rate 1.0
	ListenCommand  string   `yaml:"listen_command" mapstructure:"listen_command"`     // Recognizer that prints a transcript line
	ListenArgs     []string `yaml:"listen_args" mapstructure:"listen_args"`
}

// DefaultConfig returns NOVA's calm, slightly slow voice.
func DefaultConfig() Config {
	return Config{
		Engine:         EngineAuto,
		Rate:           0.85,
		Pitch:          0.85,
		WordsPerMinute: 175,
	}
}

// effectiveWPM is the speaking speed after applying the rate.
func (c Config) effectiveWPM() float64 {
	wpm := float64(c.WordsPerMinute)
	if wpm <= 0 {
		wpm = 175
	}
	rate := c.Rate
	if rate <= 0 {
		rate = 1
	}
	return wpm * rate
}

type options struct {
	newRunner runner.Factory
	lookPath  func(string) bool
	sched     sched.Scheduler
	router    *events.Router
	logger    *slog.Logger
}

// Option configures engine construction.
type Option func(*options)

// WithRunnerFactory sets how synthesizer and listen processes are started.
func WithRunnerFactory(f runner.Factory) Option {
	return func(o *options) { o.newRunner = f }
}

// WithLookPath replaces PATH probing.
func WithLookPath(fn func(string) bool) Option {
	return func(o *options) { o.lookPath = fn }
}

// WithScheduler sets the clock used by the paced engine.
func WithScheduler(s sched.Scheduler) Option {
	return func(o *options) { o.sched = s }
}

// WithRouter publishes speech.start and speech.end events.
func WithRouter(r *events.Router) Option {
	return func(o *options) { o.router = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func buildOptions(opts []Option) options {
	o := options{
		newRunner: runner.ExecFactory,
		lookPath:  runner.LookPath,
		sched:     sched.Real{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New builds the engine described by cfg. Availability is probed once here.
// auto and command fall back to the paced engine when no synthesizer is
// found, so narration keeps a natural reading pace without audio.
func New(cfg Config, opts ...Option) Engine {
	o := buildOptions(opts)

	switch cfg.Engine {
	case EngineNone:
		return Silent{}
	case EnginePaced:
		return newPaced(cfg, o)
	}

	command := cfg.Command
	if command == "" && cfg.Engine != EngineCommand {
		for _, candidate := range DefaultCommands {
			if o.lookPath(candidate) {
				command = candidate
				break
			}
		}
	}
	if command != "" && o.lookPath(command) {
		return newCommand(cfg, command, o)
	}

	o.logger.Info("no speech synthesizer found, narrating silently",
		"engine", cfg.Engine, "command", cfg.Command)
	return newPaced(cfg, o)
}

// Silent completes every utterance immediately.
type Silent struct{}

func (Silent) Speak(_ string, done func()) {
	if done != nil {
		done()
	}
}

func (Silent) StopSpeaking()   {}
func (Silent) Speaking() bool  { return false }
func (Silent) Supported() bool { return false }
func (Silent) Name() string    { return EngineNone }

// ReadingTime estimates how long text takes to speak at wpm words per
// minute. Non-empty text takes at least half a second.
func ReadingTime(text string, wpm float64) time.Duration {
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}
	if wpm <= 0 {
		wpm = 175
	}
	d := time.Duration(float64(words) * float64(time.Minute) / wpm)
	if d < 500*time.Millisecond {
		d = 500 * time.Millisecond
	}
	return d
}

// commandArgs renders the synthesizer arguments for text.
func commandArgs(cfg Config, command, text string) []string {
	if len(cfg.Args) > 0 {
		args := make([]string, 0, len(cfg.Args)+1)
		substituted := false
		for _, a := range cfg.Args {
			if strings.Contains(a, "{text}") {
				a = strings.ReplaceAll(a, "{text}", text)
				substituted = true
			}
			args = append(args, a)
		}
		if !substituted {
			args = append(args, text)
		}
		return args
	}

	wpm := int(cfg.effectiveWPM())
	var args []string
	switch filepath.Base(command) {
	case "say":
		args = append(args, "-r", itoa(wpm))
		if cfg.Voice != "" {
			args = append(args, "-v", cfg.Voice)
		}
	case "espeak", "espeak-ng":
		args = append(args, "-s", itoa(wpm), "-p", itoa(scale(cfg.Pitch, 50, 0, 99)))
		if cfg.Voice != "" {
			args = append(args, "-v", cfg.Voice)
		}
	case "spd-say":
		// spd-say returns immediately unless told to wait.
		args = append(args, "-w",
			"-r", itoa(relative(cfg.Rate)),
			"-p", itoa(relative(cfg.Pitch)))
		if cfg.Voice != "" {
			args = append(args, "-y", cfg.Voice)
		}
	}
	// Keep the text from being parsed as a flag.
	if strings.HasPrefix(text, "-") {
		text = " " + text
	}
	return append(args, text)
}

// relative maps a factor around 1.0 onto spd-say's -100..100 scale.
func relative(factor float64) int {
	if factor <= 0 {
		factor = 1
	}
	v := int(math.Round((factor - 1) * 100))
	return max(-100, min(100, v))
}

var itoa = strconv.Itoa

// scale maps a relative factor onto an integer range around base.
func scale(factor float64, base, lo, hi int) int {
	if factor <= 0 {
		factor = 1
	}
	v := int(factor * float64(base))
	if v < lo {
		v = lo
	}
	if v > hi {
		v = hi
	}
	return v
}
