package daemon

import (
	"context"
	"fmt"
	"time"
)

const statusPaused = "paused"

// handleRequest dispatches the request to the appropriate handler.
func (d *Daemon) handleRequest(ctx context.Context, req *Request) Response {
	if d.controller == nil && (req.Method == MethodStatus || isTourMethod(req.Method)) {
		return Response{Error: "no controller available"}
	}

	switch req.Method {
	case MethodStatus:
		return d.handleStatus()
	case MethodStart:
		d.controller.StartTour(ctx)
		return Response{Result: "starting"}
	case MethodPause:
		d.controller.Pause()
		return Response{Result: "pausing"}
	case MethodResume:
		d.controller.Resume()
		return Response{Result: "resuming"}
	case MethodNext:
		d.controller.Next()
		return Response{Result: "next"}
	case MethodPrev:
		d.controller.Prev()
		return Response{Result: "previous"}
	case MethodRestart:
		d.controller.RestartTour(ctx)
		return Response{Result: "restarting"}
	case MethodEnd:
		d.controller.EndTour()
		return Response{Result: "ending"}
	case MethodStop:
		return d.handleStop(req)
	default:
		return Response{Error: fmt.Sprintf("unknown method: %s", req.Method)}
	}
}

func isTourMethod(m string) bool {
	switch m {
	case MethodStart, MethodPause, MethodResume, MethodNext, MethodPrev, MethodRestart, MethodEnd:
		return true
	}
	return false
}

// handleStatus returns the current daemon and tour status.
func (d *Daemon) handleStatus() Response {
	view := d.controller.View()
	snap := view.Tour

	d.mu.RLock()
	startTime := d.startTime
	d.mu.RUnlock()

	status := string(snap.Phase)
	if snap.IsActive && snap.IsPaused {
		status = statusPaused
	}

	ts := TourStatus{
		StopIndex:        snap.CurrentStopIndex,
		TotalStops:       snap.TotalStops,
		Progress:         snap.Progress,
		Highlighted:      snap.HighlightedElementID,
		Typing:           snap.IsTyping,
		WaitingForSpeech: snap.WaitingForSpeech,
		HasCompleted:     snap.HasCompletedTour,
		VoiceEnabled:     view.VoiceEnabled,
		VoiceSupported:   view.VoiceSupported,
	}
	if snap.CurrentStop != nil {
		ts.StopID = snap.CurrentStop.ID
	}
	if msg, ok := snap.LastMessage(); ok {
		ts.Message = msg.Content
	}

	return Response{
		Result: StatusResponse{
			Status:    status,
			Uptime:    time.Since(startTime).Truncate(time.Second).String(),
			StartTime: startTime.Format(time.RFC3339),
			Tour:      ts,
		},
	}
}

// handleStop ends the tour and schedules daemon shutdown.
func (d *Daemon) handleStop(req *Request) Response {
	force := false
	if params, ok := req.Params.(map[string]interface{}); ok {
		if f, ok := params["force"].(bool); ok {
			force = f
		}
	}

	if d.controller != nil && !force {
		d.controller.EndTour()
	}

	go func() {
		if force {
			time.Sleep(50 * time.Millisecond)
		} else {
			// Let the response reach the client first.
			time.Sleep(100 * time.Millisecond)
		}
		_ = d.Stop()

		d.mu.RLock()
		onStop := d.onStop
		d.mu.RUnlock()
		if onStop != nil {
			onStop()
		}
	}()

	return Response{Result: "stopping"}
}
