package daemon

// RPC method names.
const (
	MethodStatus  = "status"
	MethodStart   = "start"
	MethodPause   = "pause"
	MethodResume  = "resume"
	MethodNext    = "next"
	MethodPrev    = "prev"
	MethodRestart = "restart"
	MethodEnd     = "end"
	MethodStop    = "stop"
)

// Request represents a JSON-RPC request from a client.
type Request struct {
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
	ID     int    `json:"id,omitempty"`
}

// Response represents a JSON-RPC response to a client.
type Response struct {
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
	ID     int    `json:"id,omitempty"`
}

// StatusResponse contains daemon status information.
type StatusResponse struct {
	Status    string     `json:"status"`
	Uptime    string     `json:"uptime"`
	StartTime string     `json:"start_time"`
	Tour      TourStatus `json:"tour"`
}

// TourStatus describes where the headless tour is.
type TourStatus struct {
	StopIndex        int     `json:"stop_index"`
	StopID           string  `json:"stop_id,omitempty"`
	TotalStops       int     `json:"total_stops"`
	Progress         float64 `json:"progress"`
	Message          string  `json:"message,omitempty"`
	Highlighted      string  `json:"highlighted,omitempty"`
	Typing           bool    `json:"typing"`
	WaitingForSpeech bool    `json:"waiting_for_speech"`
	HasCompleted     bool    `json:"has_completed"`
	VoiceEnabled     bool    `json:"voice_enabled"`
	VoiceSupported   bool    `json:"voice_supported"`
}

// StopParams contains parameters for the stop method.
type StopParams struct {
	Force bool `json:"force,omitempty"`
}
