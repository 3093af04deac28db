package events

import (
	"encoding/json"
	"fmt"
)

// eventEnvelope is used for initial JSON parsing to determine event type.
type eventEnvelope struct {
	Type EventType `json:"type"`
}

// ParseEvent parses a JSON line from the event transcript into a typed Event.
// Returns nil with no error for unknown event types.
func ParseEvent(line []byte) (Event, error) {
	var envelope eventEnvelope
	if err := json.Unmarshal(line, &envelope); err != nil {
		return nil, fmt.Errorf("parse event envelope: %w", err)
	}

	var ev Event
	switch envelope.Type {
	case EventTourStart:
		ev = &TourStartEvent{}
	case EventTourMessage:
		ev = &TourMessageEvent{}
	case EventTourStop:
		ev = &TourStopEvent{}
	case EventTourWaiting:
		ev = &TourWaitingEvent{}
	case EventTourStateChanged:
		ev = &TourStateChangedEvent{}
	case EventTourComplete:
		ev = &TourCompleteEvent{}
	case EventTourEnd:
		ev = &TourEndEvent{}
	case EventSpeechStart:
		ev = &SpeechStartEvent{}
	case EventSpeechEnd:
		ev = &SpeechEndEvent{}
	case EventChatMessage:
		ev = &ChatMessageEvent{}
	case EventChatAction:
		ev = &ChatActionEvent{}
	case EventError:
		ev = &ErrorEvent{}
	default:
		return nil, nil
	}

	if err := json.Unmarshal(line, ev); err != nil {
		return nil, fmt.Errorf("parse %s event: %w", envelope.Type, err)
	}
	return ev, nil
}
