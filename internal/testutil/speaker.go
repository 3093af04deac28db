package testutil

import (
	"sync"
	"sync/atomic"
)

// Utterance is one recorded Speak call.
type Utterance struct {
	Text     string
	done     func()
	once     sync.Once
	finished atomic.Bool
}

// Finish invokes the utterance's completion callback. Repeated calls are no-ops.
func (u *Utterance) Finish() {
	u.once.Do(func() {
		u.finished.Store(true)
		u.done()
	})
}

// Finished reports whether the completion callback has run.
func (u *Utterance) Finished() bool {
	return u.finished.Load()
}

// FakeSpeaker records Speak calls and lets tests decide when each utterance
// finishes. It satisfies the tour narrator contract.
type FakeSpeaker struct {
	mu         sync.Mutex
	utterances []*Utterance
	stops      int
	// FinishOnStop makes StopSpeaking complete the pending utterances, the
	// way real engines report cancellation.
	FinishOnStop bool
}

// NewFakeSpeaker creates an empty FakeSpeaker.
func NewFakeSpeaker() *FakeSpeaker {
	return &FakeSpeaker{}
}

// Speak records the utterance without finishing it.
func (f *FakeSpeaker) Speak(text string, done func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.utterances = append(f.utterances, &Utterance{Text: text, done: done})
}

// StopSpeaking counts calls. Pending utterances are only finished when
// FinishOnStop is set.
func (f *FakeSpeaker) StopSpeaking() {
	f.mu.Lock()
	f.stops++
	var pending []*Utterance
	if f.FinishOnStop {
		pending = append(pending, f.utterances...)
	}
	f.mu.Unlock()

	for _, u := range pending {
		u.Finish()
	}
}

// Speaking reports whether any utterance is unfinished.
func (f *FakeSpeaker) Speaking() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.utterances {
		if !u.Finished() {
			return true
		}
	}
	return false
}

// Supported always reports true.
func (f *FakeSpeaker) Supported() bool { return true }

// Name identifies the fake.
func (f *FakeSpeaker) Name() string { return "fake" }

// Utterances returns a copy of every recorded utterance.
func (f *FakeSpeaker) Utterances() []*Utterance {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Utterance(nil), f.utterances...)
}

// Texts returns the text of every recorded utterance.
func (f *FakeSpeaker) Texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.utterances))
	for i, u := range f.utterances {
		out[i] = u.Text
	}
	return out
}

// Last returns the most recent utterance, or nil.
func (f *FakeSpeaker) Last() *Utterance {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.utterances) == 0 {
		return nil
	}
	return f.utterances[len(f.utterances)-1]
}

// FinishLast completes the most recent utterance.
func (f *FakeSpeaker) FinishLast() {
	if u := f.Last(); u != nil {
		u.Finish()
	}
}

// StopCount returns how many times StopSpeaking was called.
func (f *FakeSpeaker) StopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}
