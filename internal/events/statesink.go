package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// StateBufferSize is the recommended buffer size for state sink subscriptions.
const StateBufferSize = 500

// CurrentStateVersion is the current state file format version.
const CurrentStateVersion = 1

// Tour status values recorded in the state file.
const (
	StatusIdle      = "idle"
	StatusTouring   = "touring"
	StatusPaused    = "paused"
	StatusCompleted = "completed"
	StatusEnded     = "ended"
)

// State is the persisted summary of the most recent tour.
type State struct {
	Version          int       `json:"version"`
	Status           string    `json:"status"`
	CurrentStop      int       `json:"current_stop"`
	CurrentStopID    string    `json:"current_stop_id,omitempty"`
	TotalStops       int       `json:"total_stops"`
	StopsVisited     int       `json:"stops_visited"`
	ToursStarted     int       `json:"tours_started"`
	ToursCompleted   int       `json:"tours_completed"`
	HasCompletedTour bool      `json:"has_completed_tour"`
	LastMessage      string    `json:"last_message,omitempty"`
	ChatMessages     int       `json:"chat_messages"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// DefaultMinSaveDelay is the minimum time between saves.
const DefaultMinSaveDelay = 2 * time.Second

// StateSink folds tour events into a State and persists it to a JSON file.
type StateSink struct {
	path     string
	state    *State
	dirty    bool
	mu       sync.Mutex
	done     chan struct{}
	lastSave time.Time
	minDelay time.Duration
}

// NewStateSink creates a new StateSink that writes to the specified path.
func NewStateSink(path string) *StateSink {
	return &StateSink{
		path:     path,
		state:    freshState(),
		done:     make(chan struct{}),
		minDelay: DefaultMinSaveDelay,
	}
}

func freshState() *State {
	return &State{Version: CurrentStateVersion, Status: StatusIdle, CurrentStop: -1}
}

// Start ensures the directory exists, loads existing state, and begins processing events.
func (s *StateSink) Start(ctx context.Context, events <-chan Event) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	if err := s.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load state: %w", err)
	}

	go s.run(ctx, events)
	return nil
}

func (s *StateSink) run(ctx context.Context, events <-chan Event) {
	defer close(s.done)

	for {
		select {
		case <-ctx.Done():
			s.flushIfDirty()
			return
		case event, ok := <-events:
			if !ok {
				s.flushIfDirty()
				return
			}
			s.handleEvent(event)
		}
	}
}

func (s *StateSink) handleEvent(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch e := event.(type) {
	case *TourStartEvent:
		s.state.Status = StatusTouring
		s.state.CurrentStop = -1
		s.state.CurrentStopID = ""
		s.state.TotalStops = e.TotalStops
		s.state.StopsVisited = 0
		s.state.HasCompletedTour = false
		s.state.ToursStarted++
		s.dirty = true

	case *TourStopEvent:
		s.state.CurrentStop = e.Index
		s.state.CurrentStopID = e.StopID
		s.state.StopsVisited++
		s.dirty = true

	case *TourMessageEvent:
		s.state.LastMessage = e.Content
		s.dirty = true

	case *TourStateChangedEvent:
		s.state.Status = e.To
		s.dirty = true

	case *TourCompleteEvent:
		s.state.Status = StatusCompleted
		s.state.HasCompletedTour = true
		s.state.ToursCompleted++
		s.dirty = true
		s.saveUnlocked()
		return

	case *TourEndEvent:
		s.state.Status = StatusEnded
		s.dirty = true
		s.saveUnlocked()
		return

	case *ChatMessageEvent:
		s.state.ChatMessages++
		s.dirty = true
	}

	if s.dirty && time.Since(s.lastSave) >= s.minDelay {
		s.saveUnlocked()
	}
}

func (s *StateSink) saveUnlocked() {
	s.state.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		slog.Error("state sink: marshal failed", "error", err)
		return
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		slog.Error("state sink: write failed", "path", tmpPath, "error", err)
		return
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		slog.Error("state sink: rename failed", "path", s.path, "error", err)
		return
	}

	s.dirty = false
	s.lastSave = time.Now()
}

func (s *StateSink) flushIfDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dirty {
		s.saveUnlocked()
	}
}

// Stop waits for the run goroutine to finish. The final flush happens there.
func (s *StateSink) Stop() error {
	<-s.done
	return nil
}

// Load reads the state file from disk. A corrupt or incompatible file is
// moved aside to .backup and a fresh state is used.
func (s *StateSink) Load() error {
	state, err := ReadState(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return err
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if backupErr := os.Rename(s.path, s.path+".backup"); backupErr != nil {
			slog.Warn("state file unreadable, failed to backup",
				"path", s.path, "error", err, "backup_error", backupErr)
		} else {
			slog.Warn("state file unreadable, backed up and starting fresh",
				"path", s.path, "error", err)
		}
		s.state = freshState()
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	return nil
}

// ReadState loads and validates a state file without a running sink.
func ReadState(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	if state.Version != CurrentStateVersion {
		return nil, fmt.Errorf("incompatible state version %d (want %d)", state.Version, CurrentStateVersion)
	}
	return &state, nil
}

// State returns a copy of the current state.
func (s *StateSink) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.state
}

// Path returns the state file path.
func (s *StateSink) Path() string {
	return s.path
}

// SetMinDelay sets the minimum delay between saves (for testing).
func (s *StateSink) SetMinDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.minDelay = d
}
