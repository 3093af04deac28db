package events

import (
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
)

// DefaultBufferSize is the subscription buffer used by Subscribe.
const DefaultBufferSize = 100

// Router fans events out from the orchestrator, speech engines and chat
// relay to every subscriber (TUI, transcript, state file, websocket bridge).
// Delivery never blocks the producer: a subscriber whose buffer is full
// misses the event and the miss is counted.
type Router struct {
	mu     sync.RWMutex
	subs   []chan Event
	size   int
	closed bool

	dropped atomic.Uint64
}

// NewRouter creates a router whose Subscribe channels hold bufferSize
// events. Zero or negative selects DefaultBufferSize.
func NewRouter(bufferSize int) *Router {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Router{size: bufferSize}
}

// Emit delivers event to every subscriber. It is a no-op after Close.
func (r *Router) Emit(event Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	for _, ch := range r.subs {
		select {
		case ch <- event:
		default:
			r.dropped.Add(1)
			slog.Warn("event dropped: subscriber channel full",
				"event_type", event.Type(),
				"source", event.Source(),
			)
		}
	}
}

// Subscribe returns a channel with the router's buffer size.
func (r *Router) Subscribe() <-chan Event {
	return r.SubscribeBuffered(r.size)
}

// SubscribeBuffered returns a channel holding up to size events. The state
// sink uses a large buffer so bursts of tour events are not lost. The
// channel is closed by Unsubscribe or Close; after Close it is returned
// already closed.
func (r *Router) SubscribeBuffered(size int) <-chan Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}
	ch := make(chan Event, size)
	r.subs = append(r.subs, ch)
	return ch
}

// Unsubscribe closes and forgets ch. Unknown channels are ignored.
func (r *Router) Unsubscribe(ch <-chan Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := slices.IndexFunc(r.subs, func(c chan Event) bool { return c == ch })
	if i < 0 {
		return
	}
	close(r.subs[i])
	r.subs = slices.Delete(r.subs, i, i+1)
}

// Close closes every subscriber channel. Later Emits are dropped silently
// and later subscriptions receive closed channels. Close is idempotent.
func (r *Router) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	for _, ch := range r.subs {
		close(ch)
	}
	r.subs = nil
}

// Dropped reports how many deliveries were discarded because a subscriber
// was not keeping up.
func (r *Router) Dropped() uint64 {
	return r.dropped.Load()
}
