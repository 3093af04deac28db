package tour

import (
	"time"

	"github.com/npratt/nova/internal/geometry"
)

// Phase is the orchestrator's coarse state. Paused is tracked separately as
// an overlay on PhaseGreeting and PhaseAtStop.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseGreeting  Phase = "greeting"
	PhaseAtStop    Phase = "at_stop"
	PhaseCompleted Phase = "completed"
)

// State is the tour's core mutable record.
type State struct {
	IsActive         bool `json:"is_active"`
	IsPaused         bool `json:"is_paused"`
	CurrentStopIndex int  `json:"current_stop_index"`
	HasCompletedTour bool `json:"has_completed_tour"`
}

// Phase derives the coarse state from the record.
func (s State) Phase() Phase {
	switch {
	case s.IsActive && s.CurrentStopIndex < 0:
		return PhaseGreeting
	case s.IsActive:
		return PhaseAtStop
	case s.HasCompletedTour:
		return PhaseCompleted
	default:
		return PhaseIdle
	}
}

// Message is one narration entry in the current tour's log.
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	StopID    string    `json:"stop_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Snapshot is a read-only copy of everything the presentation layer renders.
type Snapshot struct {
	State
	Phase                Phase           `json:"phase"`
	CurrentStop          *Stop           `json:"current_stop,omitempty"`
	TotalStops           int             `json:"total_stops"`
	Progress             float64         `json:"progress"`
	Messages             []Message       `json:"messages"`
	Orb                  *geometry.Point `json:"orb,omitempty"`
	HighlightedElementID string          `json:"highlighted_element_id,omitempty"`
	IsTyping             bool            `json:"is_typing"`
	WaitingForSpeech     bool            `json:"waiting_for_speech"`
}

// LastMessage returns the most recent narration, if any.
func (s Snapshot) LastMessage() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// Timing holds every delay the orchestrator schedules.
type Timing struct {
	// GreetingDelay is the typing pause before the greeting appears.
	GreetingDelay time.Duration `yaml:"greeting_delay" mapstructure:"greeting_delay"`
	// FirstStopDelay separates the greeting from the first stop.
	FirstStopDelay time.Duration `yaml:"first_stop_delay" mapstructure:"first_stop_delay"`
	// SettleDelay lets scrolling finish before the orb is positioned.
	SettleDelay time.Duration `yaml:"settle_delay" mapstructure:"settle_delay"`
	// TypingDelay is how long the typing indicator shows before a stop's
	// narration is appended.
	TypingDelay time.Duration `yaml:"typing_delay" mapstructure:"typing_delay"`
	// AutoAdvanceDelay is added to each stop's own duration.
	AutoAdvanceDelay time.Duration `yaml:"auto_advance_delay" mapstructure:"auto_advance_delay"`
	// SpeechBufferDelay separates the end of narration from the advance.
	SpeechBufferDelay time.Duration `yaml:"speech_buffer_delay" mapstructure:"speech_buffer_delay"`
	// SpeechStallTimeout forces narration complete this long after a stop's
	// duration has elapsed. Zero waits for the speech engine indefinitely.
	SpeechStallTimeout time.Duration `yaml:"speech_stall_timeout" mapstructure:"speech_stall_timeout"`
}

// DefaultTiming returns the stock tour pacing.
func DefaultTiming() Timing {
	return Timing{
		GreetingDelay:      500 * time.Millisecond,
		FirstStopDelay:     2500 * time.Millisecond,
		SettleDelay:        600 * time.Millisecond,
		TypingDelay:        800 * time.Millisecond,
		AutoAdvanceDelay:   1500 * time.Millisecond,
		SpeechBufferDelay:  500 * time.Millisecond,
		SpeechStallTimeout: 15 * time.Second,
	}
}
