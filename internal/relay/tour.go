package relay

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/npratt/nova/internal/events"
	"github.com/npratt/nova/internal/geometry"
	"github.com/npratt/nova/internal/sched"
	"github.com/npratt/nova/internal/tour"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxInboundSize = 256 << 10
	outboundBuffer = 64
)

// Inbound message types.
const (
	MsgLayout    = "layout"
	MsgCommand   = "command"
	MsgSpeechEnd = "speech_end"
	MsgVoice     = "voice"
)

// Outbound message types.
const (
	MsgSnapshot     = "snapshot"
	MsgScroll       = "scroll"
	MsgSpeak        = "speak"
	MsgStopSpeaking = "stop_speaking"
	MsgError        = "error"
)

// Tour commands accepted in a command message.
const (
	CmdStart   = "start"
	CmdPause   = "pause"
	CmdResume  = "resume"
	CmdNext    = "next"
	CmdPrev    = "prev"
	CmdEnd     = "end"
	CmdRestart = "restart"
)

// TourOptions configures the /tour websocket bridge.
type TourOptions struct {
	Script    *tour.Script
	Timing    tour.Timing
	Layout    geometry.Layout
	Scheduler sched.Scheduler
}

// ClientMessage is sent by the browser page.
type ClientMessage struct {
	Type     string             `json:"type"`
	Viewport *geometry.Viewport `json:"viewport,omitempty"`
	Sections []geometry.Section `json:"sections,omitempty"`
	Command  string             `json:"command,omitempty"`
	ID       string             `json:"id,omitempty"`
	Enabled  *bool              `json:"enabled,omitempty"`
}

// ServerMessage is sent to the browser page.
type ServerMessage struct {
	Type     string         `json:"type"`
	Snapshot *tour.Snapshot `json:"snapshot,omitempty"`
	Y        *float64       `json:"y,omitempty"`
	ID       string         `json:"id,omitempty"`
	Text     string         `json:"text,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// tourBridge runs one orchestrator per websocket connection. The page
// reports its layout, the orchestrator drives it, and narration is spoken
// by the page.
type tourBridge struct {
	opts     TourOptions
	router   *events.Router
	metrics  *metrics
	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[*tourSession]struct{}
}

func newTourBridge(opts TourOptions, router *events.Router, m *metrics) *tourBridge {
	if opts.Scheduler == nil {
		opts.Scheduler = sched.Real{}
	}
	if opts.Timing == (tour.Timing{}) {
		opts.Timing = tour.DefaultTiming()
	}
	if opts.Layout == (geometry.Layout{}) {
		opts.Layout = geometry.DefaultLayout()
	}
	return &tourBridge{
		opts:    opts,
		router:  router,
		metrics: m,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		sessions: make(map[*tourSession]struct{}),
	}
}

func (b *tourBridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WarnContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}

	s := b.newSession(conn)
	b.mu.Lock()
	b.sessions[s] = struct{}{}
	b.mu.Unlock()
	b.metrics.tourSessions.Inc()
	logger.InfoContext(r.Context(), "tour session connected", "remote", r.RemoteAddr)

	defer func() {
		s.close()
		b.mu.Lock()
		delete(b.sessions, s)
		b.mu.Unlock()
		b.metrics.tourSessions.Dec()
		logger.Info("tour session closed", "remote", r.RemoteAddr)
	}()

	s.run()
}

func (b *tourBridge) closeAll() {
	b.mu.Lock()
	sessions := make([]*tourSession, 0, len(b.sessions))
	for s := range b.sessions {
		sessions = append(sessions, s)
	}
	b.mu.Unlock()

	for _, s := range sessions {
		s.close()
	}
}

type tourSession struct {
	conn     *websocket.Conn
	orch     *tour.Orchestrator
	surface  *remoteSurface
	narrator *remoteNarrator
	out      chan ServerMessage

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

func (b *tourBridge) newSession(conn *websocket.Conn) *tourSession {
	ctx, cancel := context.WithCancel(context.Background())
	s := &tourSession{
		conn:   conn,
		out:    make(chan ServerMessage, outboundBuffer),
		ctx:    ctx,
		cancel: cancel,
	}
	s.surface = &remoteSurface{
		Document: geometry.NewDocument(geometry.Viewport{}),
		send:     s.send,
	}
	s.narrator = &remoteNarrator{send: s.send, pending: make(map[string]func()), voice: true}
	s.orch = tour.New(b.opts.Script,
		tour.WithSurface(s.surface),
		tour.WithLayout(b.opts.Layout),
		tour.WithTiming(b.opts.Timing),
		tour.WithScheduler(b.opts.Scheduler),
		tour.WithNarrator(s.narrator),
		tour.WithRouter(b.router),
	)
	return s
}

func (s *tourSession) run() {
	go s.writePump()
	go s.snapshotPump()
	s.readPump()
}

// send queues a message without blocking. The orchestrator may call it
// with its lock held, so a full queue drops the message.
func (s *tourSession) send(msg ServerMessage) {
	select {
	case <-s.ctx.Done():
	case s.out <- msg:
	default:
		logger.Warn("tour session outbound queue full, dropping message", "type", msg.Type)
	}
}

func (s *tourSession) sendSnapshot() {
	snap := s.orch.Snapshot()
	s.send(ServerMessage{Type: MsgSnapshot, Snapshot: &snap})
}

func (s *tourSession) readPump() {
	s.conn.SetReadLimit(maxInboundSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg ClientMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("tour session read error", "error", err)
			}
			return
		}
		if err := s.handle(msg); err != nil {
			s.send(ServerMessage{Type: MsgError, Error: err.Error()})
		}
	}
}

func (s *tourSession) handle(msg ClientMessage) error {
	switch msg.Type {
	case MsgLayout:
		s.surface.apply(msg.Viewport, msg.Sections)
		s.orch.Relayout()
	case MsgCommand:
		return s.command(msg.Command)
	case MsgSpeechEnd:
		s.narrator.finish(msg.ID)
	case MsgVoice:
		if msg.Enabled == nil {
			return fmt.Errorf("voice message requires enabled")
		}
		s.narrator.setVoice(*msg.Enabled)
		if !*msg.Enabled {
			s.send(ServerMessage{Type: MsgStopSpeaking})
		}
	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
	return nil
}

func (s *tourSession) command(cmd string) error {
	switch cmd {
	case CmdStart:
		s.orch.StartTour()
	case CmdRestart:
		s.orch.ResetTourCompletion()
		s.orch.StartTour()
	case CmdPause:
		s.send(ServerMessage{Type: MsgStopSpeaking})
		s.orch.PauseTour()
	case CmdResume:
		s.orch.ResumeTour()
	case CmdNext:
		s.orch.NextStop()
	case CmdPrev:
		s.orch.PreviousStop()
	case CmdEnd:
		s.send(ServerMessage{Type: MsgStopSpeaking})
		s.orch.EndTour()
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}

func (s *tourSession) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = s.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case msg := <-s.out:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(msg); err != nil {
				logger.Warn("tour session write failed", "error", err)
				s.close()
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.close()
				return
			}
		}
	}
}

func (s *tourSession) snapshotPump() {
	s.sendSnapshot()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.orch.Changes():
			s.sendSnapshot()
		}
	}
}

func (s *tourSession) close() {
	s.closeOnce.Do(func() {
		s.orch.EndTour()
		s.cancel()
		// Let the writer send the close frame before the socket goes away.
		go func() {
			time.Sleep(100 * time.Millisecond)
			_ = s.conn.Close()
		}()
	})
}

// remoteSurface mirrors the page layout the browser reports. Scrolling is
// applied locally and forwarded to the page.
type remoteSurface struct {
	*geometry.Document
	send func(ServerMessage)
}

func (r *remoteSurface) ScrollTo(y float64) {
	r.Document.ScrollTo(y)
	scrolled := r.Document.Viewport().ScrollY
	r.send(ServerMessage{Type: MsgScroll, Y: &scrolled})
}

func (r *remoteSurface) apply(vp *geometry.Viewport, sections []geometry.Section) {
	if sections != nil {
		r.Document.SetSections(sections)
	}
	if vp != nil {
		r.Document.Resize(vp.Width, vp.Height)
		r.Document.ScrollTo(vp.ScrollY)
	}
}

// remoteNarrator asks the page to speak and completes when the page reports
// the utterance finished. A new utterance supersedes the one in flight,
// whose done fires at once; a late speech_end for it is ignored. With voice
// disabled narration completes at once.
type remoteNarrator struct {
	send func(ServerMessage)
	seq  atomic.Uint64

	mu      sync.Mutex
	pending map[string]func()
	voice   bool
}

func (n *remoteNarrator) Speak(text string, done func()) {
	n.mu.Lock()
	superseded := n.takePending()
	if !n.voice {
		n.mu.Unlock()
		runAll(superseded)
		done()
		return
	}
	id := "utt_" + strconv.FormatUint(n.seq.Add(1), 10)
	n.pending[id] = done
	n.mu.Unlock()

	runAll(superseded)
	n.send(ServerMessage{Type: MsgSpeak, ID: id, Text: text})
}

// takePending removes every outstanding callback. n.mu must be held.
func (n *remoteNarrator) takePending() []func() {
	var out []func()
	for id, done := range n.pending {
		out = append(out, done)
		delete(n.pending, id)
	}
	return out
}

func runAll(fns []func()) {
	for _, fn := range fns {
		fn()
	}
}

func (n *remoteNarrator) finish(id string) {
	n.mu.Lock()
	done, ok := n.pending[id]
	delete(n.pending, id)
	n.mu.Unlock()
	if ok {
		done()
	}
}

// setVoice toggles page speech. Disabling completes all outstanding
// utterances.
func (n *remoteNarrator) setVoice(enabled bool) {
	n.mu.Lock()
	n.voice = enabled
	var flush []func()
	if !enabled {
		flush = n.takePending()
	}
	n.mu.Unlock()

	runAll(flush)
}

