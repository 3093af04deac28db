// Package events defines the event taxonomy shared by the tour orchestrator,
// the speech engines and the chat relay, plus the router and sinks that carry
// those events to the terminal UI, the JSONL transcript and the state file.
package events

import "time"

// EventType identifies the category and nature of an event.
type EventType string

const (
	// Tour lifecycle
	EventTourStart        EventType = "tour.start"
	EventTourMessage      EventType = "tour.message"
	EventTourStop         EventType = "tour.stop"
	EventTourWaiting      EventType = "tour.waiting"
	EventTourStateChanged EventType = "tour.state_changed"
	EventTourComplete     EventType = "tour.complete"
	EventTourEnd          EventType = "tour.end"

	// Speech
	EventSpeechStart EventType = "speech.start"
	EventSpeechEnd   EventType = "speech.end"

	// Chat relay
	EventChatMessage EventType = "chat.message"
	EventChatAction  EventType = "chat.action"

	EventError EventType = "error"
)

// Source constants identify the origin of events.
const (
	SourceTour     = "tour"
	SourceSpeech   = "speech"
	SourceChat     = "chat"
	SourceInternal = "nova"
)

// Event is the base interface for all events in the system.
type Event interface {
	Type() EventType
	Timestamp() time.Time
	Source() string
}

// BaseEvent provides the common fields for all events.
type BaseEvent struct {
	EventType EventType `json:"type"`
	Time      time.Time `json:"timestamp"`
	Src       string    `json:"source"`
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.Time
}

// Source returns the origin of the event.
func (e BaseEvent) Source() string {
	return e.Src
}

// TourStartEvent is emitted when a tour (re)starts from the greeting.
type TourStartEvent struct {
	BaseEvent
	TotalStops int  `json:"total_stops"`
	Restart    bool `json:"restart,omitempty"`
}

// TourMessageEvent is emitted when narration is appended to the tour log.
type TourMessageEvent struct {
	BaseEvent
	MessageID string `json:"message_id"`
	Content   string `json:"content"`
	StopID    string `json:"stop_id,omitempty"`
}

// TourStopEvent is emitted when the orchestrator settles on a stop.
type TourStopEvent struct {
	BaseEvent
	Index     int      `json:"index"`
	StopID    string   `json:"stop_id"`
	ElementID string   `json:"element_id"`
	Found     bool     `json:"found"`
	OrbX      *float64 `json:"orb_x,omitempty"`
	OrbY      *float64 `json:"orb_y,omitempty"`
}

// TourWaitingEvent is emitted when a stop's display duration has elapsed
// and the tour is waiting on narration to finish.
type TourWaitingEvent struct {
	BaseEvent
	Index int `json:"index"`
}

// TourStateChangedEvent is emitted on pause and resume.
type TourStateChangedEvent struct {
	BaseEvent
	From string `json:"from"`
	To   string `json:"to"`
}

// TourCompleteEvent is emitted when the tour runs past its last stop.
type TourCompleteEvent struct {
	BaseEvent
	TotalStops int `json:"total_stops"`
}

// TourEndEvent is emitted when a tour is ended before completion.
type TourEndEvent struct {
	BaseEvent
	Index  int    `json:"index"`
	Reason string `json:"reason,omitempty"`
}

// SpeechStartEvent is emitted when an utterance begins.
type SpeechStartEvent struct {
	BaseEvent
	Engine string `json:"engine"`
	Text   string `json:"text"`
}

// SpeechEndEvent is emitted exactly once per utterance.
type SpeechEndEvent struct {
	BaseEvent
	Engine     string `json:"engine"`
	DurationMs int64  `json:"duration_ms"`
	Cancelled  bool   `json:"cancelled,omitempty"`
	Error      string `json:"error,omitempty"`
}

// ChatMessageEvent is emitted for each user or assistant chat message.
type ChatMessageEvent struct {
	BaseEvent
	Role      string `json:"role"`
	Content   string `json:"content"`
	VisitorID string `json:"visitor_id,omitempty"`
}

// ChatActionEvent is emitted when an assistant reply carries an action.
type ChatActionEvent struct {
	BaseEvent
	Action string `json:"action"`
}

// Severity constants for error events.
const (
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// ErrorEvent is emitted for recoverable error conditions.
type ErrorEvent struct {
	BaseEvent
	Message  string            `json:"message"`
	Severity string            `json:"severity"`
	Context  map[string]string `json:"context,omitempty"`
}

// NewEvent creates a BaseEvent with the given type and source.
func NewEvent(eventType EventType, source string) BaseEvent {
	return BaseEvent{
		EventType: eventType,
		Time:      time.Now(),
		Src:       source,
	}
}

// NewTourEvent creates a BaseEvent with the tour as the source.
func NewTourEvent(eventType EventType) BaseEvent {
	return NewEvent(eventType, SourceTour)
}

// NewSpeechEvent creates a BaseEvent with the speech engine as the source.
func NewSpeechEvent(eventType EventType) BaseEvent {
	return NewEvent(eventType, SourceSpeech)
}

// NewChatEvent creates a BaseEvent with the chat relay as the source.
func NewChatEvent(eventType EventType) BaseEvent {
	return NewEvent(eventType, SourceChat)
}

// NewInternalEvent creates a BaseEvent with NOVA itself as the source.
func NewInternalEvent(eventType EventType) BaseEvent {
	return NewEvent(eventType, SourceInternal)
}
