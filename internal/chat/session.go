// Package chat holds NOVA's conversation panel: the relay client and the
// session state the presentation layer renders.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/npratt/nova/internal/events"
	"github.com/npratt/nova/internal/sched"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ApologyReply replaces the assistant reply when the relay cannot be reached
// or answers with an error.
const ApologyReply = "I apologize, but I seem to be having trouble connecting right now. Please try again in a moment."

// Defaults for session pacing.
const (
	DefaultHistoryLimit = 50
	DefaultActionDelay  = time.Second
)

// Message is one entry in the chat log.
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}

// Reply is the relay's answer to a user message.
type Reply struct {
	Message string   `json:"message"`
	Actions []string `json:"actions,omitempty"`
}

// Backend sends messages and loads history.
type Backend interface {
	Send(ctx context.Context, visitorID, message string) (*Reply, error)
	History(ctx context.Context, visitorID string, limit int) ([]Message, error)
}

// ActionHandler receives actions carried by assistant replies.
type ActionHandler func(action string)

// Snapshot is a copy of the session state.
type Snapshot struct {
	IsOpen           bool      `json:"is_open"`
	Messages         []Message `json:"messages"`
	IsLoading        bool      `json:"is_loading"`
	IsLoadingHistory bool      `json:"is_loading_history"`
}

// Session is the chat panel state. All methods are safe for concurrent use;
// Send, Open and Toggle block on the backend.
type Session struct {
	backend      Backend
	visitor      func() string
	sched        sched.Scheduler
	router       *events.Router
	logger       *slog.Logger
	historyLimit int
	actionDelay  time.Duration

	mu             sync.Mutex
	open           bool
	messages       []Message
	loading        bool
	loadingHistory bool
	seq            int
	onAction       ActionHandler
	changes        chan struct{}
}

// Option configures a Session.
type Option func(*Session)

// WithScheduler sets the scheduler used for delayed action dispatch.
func WithScheduler(s sched.Scheduler) Option {
	return func(c *Session) { c.sched = s }
}

// WithRouter publishes chat events to the router.
func WithRouter(r *events.Router) Option {
	return func(c *Session) { c.router = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Session) { c.logger = l }
}

// WithHistoryLimit sets how many messages are loaded when the panel opens empty.
func WithHistoryLimit(n int) Option {
	return func(c *Session) { c.historyLimit = n }
}

// WithActionDelay sets the delay between a reply and dispatch of its actions.
func WithActionDelay(d time.Duration) Option {
	return func(c *Session) { c.actionDelay = d }
}

// NewSession creates a closed, empty session. visitor returns the visitor id
// sent with every request.
func NewSession(backend Backend, visitor func() string, opts ...Option) *Session {
	s := &Session{
		backend:      backend,
		visitor:      visitor,
		sched:        sched.Real{},
		logger:       slog.Default(),
		historyLimit: DefaultHistoryLimit,
		actionDelay:  DefaultActionDelay,
		changes:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetActionHandler replaces the handler for reply actions. Actions already
// scheduled use the handler set when they fire.
func (s *Session) SetActionHandler(h ActionHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onAction = h
}

// Changes delivers a signal after every state change. Signals coalesce.
func (s *Session) Changes() <-chan struct{} {
	return s.changes
}

// Snapshot returns a copy of the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		IsOpen:           s.open,
		Messages:         append([]Message(nil), s.messages...),
		IsLoading:        s.loading,
		IsLoadingHistory: s.loadingHistory,
	}
}

// IsOpen reports whether the panel is open.
func (s *Session) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// Open opens the panel. An empty log is filled from the visitor's history.
func (s *Session) Open(ctx context.Context) {
	s.mu.Lock()
	wasOpen := s.open
	s.open = true
	empty := len(s.messages) == 0
	s.mu.Unlock()
	if !wasOpen {
		s.notify()
	}

	if empty {
		s.LoadHistory(ctx)
	}
}

// Close closes the panel, keeping the log.
func (s *Session) Close() {
	s.mu.Lock()
	wasOpen := s.open
	s.open = false
	s.mu.Unlock()
	if wasOpen {
		s.notify()
	}
}

// Toggle opens a closed panel or closes an open one.
func (s *Session) Toggle(ctx context.Context) {
	if s.IsOpen() {
		s.Close()
		return
	}
	s.Open(ctx)
}

// Clear empties the log.
func (s *Session) Clear() {
	s.mu.Lock()
	s.messages = nil
	s.mu.Unlock()
	s.notify()
}

// LoadHistory fills an empty log with the visitor's recent messages.
// Failures are logged and leave the log untouched.
func (s *Session) LoadHistory(ctx context.Context) {
	s.mu.Lock()
	s.loadingHistory = true
	s.mu.Unlock()
	s.notify()

	msgs, err := s.backend.History(ctx, s.visitor(), s.historyLimit)

	s.mu.Lock()
	s.loadingHistory = false
	// A message sent while history was loading wins over the loaded log.
	if err == nil && len(msgs) > 0 && len(s.messages) == 0 {
		s.messages = msgs
	}
	s.mu.Unlock()
	s.notify()

	if err != nil {
		s.logger.Warn("failed to load conversation history", "error", err)
	}
}

// Send appends the user's message, asks the relay for a reply and appends
// it. Any failure appends the fixed apology instead. Reply actions are
// dispatched to the action handler after the action delay.
func (s *Session) Send(ctx context.Context, content string) {
	visitorID := s.visitor()

	s.mu.Lock()
	s.messages = append(s.messages, s.newMessage(RoleUser, content))
	s.loading = true
	s.mu.Unlock()
	s.notify()
	s.emit(&events.ChatMessageEvent{
		BaseEvent: events.NewChatEvent(events.EventChatMessage),
		Role:      RoleUser,
		Content:   content,
		VisitorID: visitorID,
	})

	reply, err := s.backend.Send(ctx, visitorID, content)
	var text string
	var actions []string
	if err != nil {
		s.logger.Error("chat request failed", "error", err)
		text = ApologyReply
	} else {
		text = reply.Message
		actions = reply.Actions
	}

	s.mu.Lock()
	s.messages = append(s.messages, s.newMessage(RoleAssistant, text))
	s.loading = false
	s.mu.Unlock()
	s.notify()
	s.emit(&events.ChatMessageEvent{
		BaseEvent: events.NewChatEvent(events.EventChatMessage),
		Role:      RoleAssistant,
		Content:   text,
		VisitorID: visitorID,
	})

	for _, action := range actions {
		s.scheduleAction(action)
	}
}

func (s *Session) scheduleAction(action string) {
	s.sched.AfterFunc(s.actionDelay, func() {
		s.mu.Lock()
		h := s.onAction
		s.mu.Unlock()

		s.emit(&events.ChatActionEvent{
			BaseEvent: events.NewChatEvent(events.EventChatAction),
			Action:    action,
		})
		if h == nil {
			s.logger.Warn("no handler for chat action", "action", action)
			return
		}
		h(action)
	})
}

// newMessage must be called with s.mu held.
func (s *Session) newMessage(role, content string) Message {
	now := s.sched.Now()
	s.seq++
	return Message{
		ID:        fmt.Sprintf("%s_%d_%d", role, now.UnixMilli(), s.seq),
		Role:      role,
		Content:   content,
		CreatedAt: now,
	}
}

func (s *Session) emit(ev events.Event) {
	if s.router != nil {
		s.router.Emit(ev)
	}
}

func (s *Session) notify() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}
