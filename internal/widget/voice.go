package widget

import (
	"sync"

	"github.com/npratt/nova/internal/speech"
)

// Voice narrates through a speech engine, honouring the user's voice
// toggle. It satisfies tour.Narrator. While muted, narration completes as
// soon as it is issued so the tour keeps its pace.
type Voice struct {
	engine speech.Engine

	mu      sync.Mutex
	enabled bool
}

// NewVoice creates an enabled voice over engine. A nil engine is silent.
func NewVoice(engine speech.Engine) *Voice {
	if engine == nil {
		engine = speech.Silent{}
	}
	return &Voice{engine: engine, enabled: true}
}

// Speak implements tour.Narrator.
func (v *Voice) Speak(text string, done func()) {
	if !v.Enabled() {
		done()
		return
	}
	v.engine.Speak(text, done)
}

// Stop cancels the current utterance.
func (v *Voice) Stop() {
	v.engine.StopSpeaking()
}

// Enabled reports whether the voice toggle is on.
func (v *Voice) Enabled() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.enabled
}

// SetEnabled flips the voice toggle. Muting cuts off the current utterance.
func (v *Voice) SetEnabled(enabled bool) {
	v.mu.Lock()
	v.enabled = enabled
	v.mu.Unlock()
	if !enabled {
		v.engine.StopSpeaking()
	}
}

// Supported reports whether the engine produces audible speech.
func (v *Voice) Supported() bool { return v.engine.Supported() }

// Speaking reports whether an utterance is in progress.
func (v *Voice) Speaking() bool { return v.engine.Speaking() }

// EngineName names the underlying engine.
func (v *Voice) EngineName() string { return v.engine.Name() }
