package relay

import "strings"

// ActionStartTour asks the widget to close chat and start the guided tour.
const ActionStartTour = "start_tour"

// TourMarker is the in-band marker the model appends to request a tour.
const TourMarker = "[ACTION:START_TOUR]"

// Fallback replies.
const (
	FallbackReply = "I apologize, but I was unable to generate a response."
)

// ExtractActions strips the first tour marker from reply and reports the
// actions it carried.
func ExtractActions(reply string) (string, []string) {
	if !strings.Contains(reply, TourMarker) {
		return reply, nil
	}
	cleaned := strings.TrimSpace(strings.Replace(reply, TourMarker, "", 1))
	return cleaned, []string{ActionStartTour}
}
