package tour

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/npratt/nova/internal/geometry"
)

//go:embed default_script.yaml
var defaultScriptYAML []byte

// Stop is one waypoint of the tour, tied to an element on the page.
type Stop struct {
	ID          string        `yaml:"id" json:"id"`
	ElementID   string        `yaml:"element_id" json:"element_id"`
	Position    geometry.Side `yaml:"position" json:"position"`
	Explanation string        `yaml:"explanation" json:"explanation"`
	DurationMS  int           `yaml:"duration" json:"duration"`
}

// Duration is how long the stop is displayed before auto-advance may fire.
func (s Stop) Duration() time.Duration {
	return time.Duration(s.DurationMS) * time.Millisecond
}

// Script is the authored tour: a greeting followed by an ordered list of stops.
type Script struct {
	Greeting string `yaml:"greeting" json:"greeting"`
	Stops    []Stop `yaml:"stops" json:"stops"`
}

// ErrEmptyScript is returned when a script has no stops.
var ErrEmptyScript = errors.New("tour script has no stops")

// DefaultScript returns the built-in Endorsed AI tour.
func DefaultScript() *Script {
	s, err := ParseScript(defaultScriptYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded tour script is invalid: %v", err))
	}
	return s
}

// LoadScript reads a script from a YAML file. An empty path returns the
// default script.
func LoadScript(path string) (*Script, error) {
	if path == "" {
		return DefaultScript(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tour script: %w", err)
	}
	s, err := ParseScript(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ParseScript decodes and validates a YAML tour script.
func ParseScript(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse tour script: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks that every stop is addressable and well formed. Stops
// without an id take their element id.
func (s *Script) Validate() error {
	if len(s.Stops) == 0 {
		return ErrEmptyScript
	}

	seen := make(map[string]bool, len(s.Stops))
	for i := range s.Stops {
		stop := &s.Stops[i]
		stop.Explanation = strings.TrimSpace(stop.Explanation)

		if stop.ElementID == "" {
			return fmt.Errorf("stop %d: element_id is required", i)
		}
		if stop.ID == "" {
			stop.ID = stop.ElementID
		}
		if seen[stop.ID] {
			return fmt.Errorf("stop %d: duplicate id %q", i, stop.ID)
		}
		seen[stop.ID] = true

		if _, err := geometry.ParseSide(string(stop.Position)); err != nil {
			return fmt.Errorf("stop %q: %w", stop.ID, err)
		}
		if stop.DurationMS < 0 {
			return fmt.Errorf("stop %q: duration must not be negative", stop.ID)
		}
		if stop.Explanation == "" {
			return fmt.Errorf("stop %q: explanation is required", stop.ID)
		}
	}
	s.Greeting = strings.TrimSpace(s.Greeting)
	return nil
}

// Len returns the number of stops.
func (s *Script) Len() int {
	return len(s.Stops)
}

// Stop returns the stop at index i, or false when i is out of range.
func (s *Script) Stop(i int) (Stop, bool) {
	if i < 0 || i >= len(s.Stops) {
		return Stop{}, false
	}
	return s.Stops[i], true
}

// Marshal renders the script back to YAML.
func (s *Script) Marshal() ([]byte, error) {
	return yaml.Marshal(s)
}
