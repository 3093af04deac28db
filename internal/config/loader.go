package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/npratt/nova/internal/speech"
)

// Config file locations.
const (
	GlobalConfigDir   = "nova"  // under $XDG_CONFIG_HOME
	ProjectConfigDir  = ".nova" // under the working directory
	GlobalConfigFile  = "config.yaml"
	ProjectConfigFile = "config.yaml"
)

// scriptKey is the one setting whose relative value is read relative to the
// file that set it, so a project config can name a tour sitting next to it.
const scriptKey = "tour.script"

// LoadConfig layers, from lowest to highest precedence: Default(), the
// global file, the project file, the --config file, then whatever the
// caller already set on v (NOVA_* env and bound flags). Missing global and
// project files are skipped; a missing --config file is an error. The
// result is validated before it is returned.
func LoadConfig(v *viper.Viper) (*Config, error) {
	cfg := Default()

	defaults, err := structToMap(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode defaults: %w", err)
	}
	if err := v.MergeConfigMap(defaults); err != nil {
		return nil, fmt.Errorf("merge defaults: %w", err)
	}

	layers, err := configLayers(v.GetString("config"))
	if err != nil {
		return nil, err
	}
	for _, path := range layers {
		if err := mergeFile(v, path); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(cfg, viperDecodeHook()); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// configLayers lists the config files to merge, lowest precedence first.
func configLayers(explicit string) ([]string, error) {
	var layers []string
	for _, path := range []string{globalConfigPath(), projectConfigPath()} {
		if path != "" {
			layers = append(layers, path)
		}
	}
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		layers = append(layers, explicit)
	}
	return layers, nil
}

// globalConfigPath returns $XDG_CONFIG_HOME/nova/config.yaml (falling back
// to ~/.config) when it exists.
func globalConfigPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return existing(filepath.Join(dir, GlobalConfigDir, GlobalConfigFile))
}

// projectConfigPath returns .nova/config.yaml when it exists.
func projectConfigPath() string {
	return existing(filepath.Join(ProjectConfigDir, ProjectConfigFile))
}

func existing(path string) string {
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// mergeFile reads one YAML layer into v.
func mergeFile(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	layer := viper.New()
	layer.SetConfigType("yaml")
	if err := layer.ReadConfig(bytes.NewReader(data)); err != nil {
		return err
	}

	if script := layer.GetString(scriptKey); script != "" && !filepath.IsAbs(script) {
		dir, err := filepath.Abs(filepath.Dir(path))
		if err != nil {
			return err
		}
		layer.Set(scriptKey, filepath.Join(dir, script))
	}
	return v.MergeConfigMap(layer.AllSettings())
}

// Validate reports every setting that would make the tour misbehave.
func (c *Config) Validate() error {
	var errs []error

	durations := []struct {
		key string
		d   time.Duration
	}{
		{"tour.auto_start_delay", c.Tour.AutoStartDelay},
		{"tour.timing.greeting_delay", c.Tour.Timing.GreetingDelay},
		{"tour.timing.first_stop_delay", c.Tour.Timing.FirstStopDelay},
		{"tour.timing.settle_delay", c.Tour.Timing.SettleDelay},
		{"tour.timing.typing_delay", c.Tour.Timing.TypingDelay},
		{"tour.timing.auto_advance_delay", c.Tour.Timing.AutoAdvanceDelay},
		{"tour.timing.speech_buffer_delay", c.Tour.Timing.SpeechBufferDelay},
		{"tour.timing.speech_stall_timeout", c.Tour.Timing.SpeechStallTimeout},
		{"chat.action_delay", c.Chat.ActionDelay},
		{"chat.start_tour_delay", c.Chat.StartTourDelay},
	}
	for _, d := range durations {
		if d.d < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %s", d.key, d.d))
		}
	}

	if c.Layout.OrbSize <= 0 {
		errs = append(errs, fmt.Errorf("layout.orb_size must be positive, got %v", c.Layout.OrbSize))
	}
	if c.Layout.Gap < 0 {
		errs = append(errs, fmt.Errorf("layout.gap must not be negative, got %v", c.Layout.Gap))
	}
	if c.Layout.Margin < 0 {
		errs = append(errs, fmt.Errorf("layout.margin must not be negative, got %v", c.Layout.Margin))
	}

	if !speech.KnownEngine(c.Speech.Engine) {
		errs = append(errs, fmt.Errorf("speech.engine %q is not one of %s, %s, %s or %s",
			c.Speech.Engine, speech.EngineAuto, speech.EngineCommand, speech.EnginePaced, speech.EngineNone))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func viperDecodeHook() viper.DecoderConfigOption {
	return viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
}

// structToMap flattens cfg into the nested map viper merges, with
// durations as strings so they decode like values read from YAML.
func structToMap(cfg *Config) (map[string]any, error) {
	out := make(map[string]any)
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "mapstructure",
		Result:  &out,
		DecodeHook: func(from, _ reflect.Type, data any) (any, error) {
			if d, ok := data.(time.Duration); ok && from == reflect.TypeOf(d) {
				return d.String(), nil
			}
			return data, nil
		},
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(cfg); err != nil {
		return nil, err
	}
	return out, nil
}
