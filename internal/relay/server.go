// Package relay is NOVA's chat backend: it keeps per-visitor history, asks
// the language model for a reply, turns the in-band tour marker into an
// action, and bridges guided tours to browser pages over a websocket.
package relay

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/npratt/nova/internal/events"
	"github.com/npratt/nova/internal/history"
	"github.com/npratt/nova/internal/llm"
)

// Error messages returned to clients.
const (
	errMessageRequired = "Message is required"
	errVisitorRequired = "Visitor ID is required"
	errModelFailed     = "Failed to get response from AI"
	errUnexpected      = "An unexpected error occurred"
)

// CORS headers sent on every response.
const (
	corsAllowOrigin  = "*"
	corsAllowMethods = "GET, POST, PUT, DELETE, OPTIONS"
	corsAllowHeaders = "Content-Type, Authorization, X-Client-Info, Apikey"
)

const (
	defaultHistoryLimit  = 20
	defaultHistoryPage   = 50
	maxHistoryPage       = 200
	maxRequestBodyBytes  = 64 << 10
	defaultShutdownGrace = 10 * time.Second
)

// Options configures a Server.
type Options struct {
	// Completer answers chat messages. A nil Completer makes /chat report
	// the provider as not configured.
	Completer llm.Completer
	// ProviderLabel names the provider in the not-configured error.
	ProviderLabel string
	// Store keeps conversation history. Nil disables history.
	Store        history.Store
	SystemPrompt string
	Model        string
	Temperature  float64
	MaxTokens    int
	// HistoryLimit is how many prior messages are sent to the model.
	HistoryLimit int
	Router       *events.Router
	// Registry receives the server's Prometheus collectors. Nil creates a
	// private registry.
	Registry *prometheus.Registry
	// Tour enables the /tour websocket bridge when Tour.Script is set.
	Tour TourOptions
}

// Server serves the relay HTTP API.
type Server struct {
	opts    Options
	reg     *prometheus.Registry
	metrics *metrics
	handler http.Handler
	httpSrv *http.Server
	bridge  *tourBridge
}

// New creates a server.
func New(opts Options) *Server {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = defaultHistoryLimit
	}
	if opts.ProviderLabel == "" {
		opts.ProviderLabel = "OpenRouter"
	}
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	s := &Server{opts: opts, reg: reg, metrics: newMetrics(reg)}
	if opts.Router != nil {
		promauto.With(reg).NewCounterFunc(prometheus.CounterOpts{
			Name: "nova_relay_events_dropped_total",
			Help: "Events discarded because a subscriber was full",
		}, func() float64 { return float64(opts.Router.Dropped()) })
	}
	if opts.Tour.Script != nil {
		s.bridge = newTourBridge(opts.Tour, opts.Router, s.metrics)
	}

	mux := http.NewServeMux()
	mux.Handle("POST /chat", s.instrument("/chat", http.HandlerFunc(s.handleChat)))
	mux.Handle("GET /history", s.instrument("/history", http.HandlerFunc(s.handleHistory)))
	mux.Handle("GET /healthz", s.instrument("/healthz", http.HandlerFunc(s.handleHealth)))
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	if s.bridge != nil {
		mux.Handle("GET /tour", s.instrument("/tour", s.bridge))
	}

	s.handler = otelhttp.NewHandler(withCORS(mux), "nova-relay")
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Registry returns the Prometheus registry the server reports to.
func (s *Server) Registry() *prometheus.Registry { return s.reg }

// ListenAndServe serves on addr until ctx is cancelled or Shutdown is called.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	logger.InfoContext(ctx, "relay listening", "addr", addr)
	errCh := make(chan error, 1)
	go func() { errCh <- s.httpSrv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("relay server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownGrace)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	}
}

// Shutdown stops the HTTP server and closes tour sessions.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.bridge != nil {
		s.bridge.closeAll()
	}
	if s.httpSrv == nil {
		return nil
	}
	if err := s.httpSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("shutdown relay: %w", err)
	}
	return nil
}

// ChatRequest is the /chat request body.
type ChatRequest struct {
	Message   string `json:"message"`
	VisitorID string `json:"visitor_id"`
}

// ChatResponse is the /chat reply.
type ChatResponse struct {
	Message string   `json:"message"`
	Actions []string `json:"actions,omitempty"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HistoryResponse is the /history reply.
type HistoryResponse struct {
	Messages []history.Message `json:"messages"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "relay.chat")
	defer span.End()

	if s.opts.Completer == nil {
		writeError(w, http.StatusInternalServerError, s.opts.ProviderLabel+" API key not configured")
		return
	}

	// Decode loosely so a non-string field is a validation error rather
	// than a decode failure.
	var raw map[string]any
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)).Decode(&raw); err != nil {
		logger.WarnContext(ctx, "invalid chat request body", "error", err)
		span.SetStatus(codes.Error, "invalid body")
		writeError(w, http.StatusInternalServerError, errUnexpected)
		return
	}
	message, _ := raw["message"].(string)
	if message == "" {
		writeError(w, http.StatusBadRequest, errMessageRequired)
		return
	}
	visitorID, _ := raw["visitor_id"].(string)
	if visitorID == "" {
		writeError(w, http.StatusBadRequest, errVisitorRequired)
		return
	}
	span.SetAttributes(attribute.String("nova.visitor_id", visitorID))

	prior := s.recentHistory(ctx, visitorID, s.opts.HistoryLimit)
	s.appendHistory(ctx, visitorID, history.RoleUser, message)
	s.emit(&events.ChatMessageEvent{
		BaseEvent: events.NewChatEvent(events.EventChatMessage),
		Role:      history.RoleUser,
		Content:   message,
		VisitorID: visitorID,
	})

	msgs := make([]llm.Message, 0, len(prior)+1)
	for _, m := range prior {
		msgs = append(msgs, llm.Message{Role: m.Role, Content: m.Content})
	}
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: message})

	provider := s.opts.Completer.Name()
	resp, err := s.opts.Completer.Complete(ctx, llm.Request{
		System:      s.opts.SystemPrompt,
		Messages:    msgs,
		Model:       s.opts.Model,
		Temperature: s.opts.Temperature,
		MaxTokens:   s.opts.MaxTokens,
	})

	var reply string
	switch {
	case errors.Is(err, llm.ErrEmptyReply):
		s.metrics.completions.WithLabelValues(provider, "empty").Inc()
		reply = FallbackReply
	case err != nil:
		s.metrics.completions.WithLabelValues(provider, "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.ErrorContext(ctx, "model request failed", "provider", provider, "error", err)
		writeError(w, http.StatusInternalServerError, errModelFailed)
		return
	default:
		s.metrics.completions.WithLabelValues(provider, "ok").Inc()
		reply = resp.Content
	}

	reply, actions := ExtractActions(reply)
	for _, a := range actions {
		s.metrics.actions.WithLabelValues(a).Inc()
		s.emit(&events.ChatActionEvent{
			BaseEvent: events.NewChatEvent(events.EventChatAction),
			Action:    a,
		})
	}
	span.SetAttributes(attribute.StringSlice("nova.actions", actions))

	s.appendHistory(ctx, visitorID, history.RoleAssistant, reply)
	s.emit(&events.ChatMessageEvent{
		BaseEvent: events.NewChatEvent(events.EventChatMessage),
		Role:      history.RoleAssistant,
		Content:   reply,
		VisitorID: visitorID,
	})

	writeJSON(w, http.StatusOK, ChatResponse{Message: reply, Actions: actions})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	visitorID := r.URL.Query().Get("visitor_id")
	if visitorID == "" {
		writeError(w, http.StatusBadRequest, errVisitorRequired)
		return
	}

	limit := defaultHistoryPage
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryPage)
	}

	if s.opts.Store == nil {
		writeJSON(w, http.StatusOK, HistoryResponse{Messages: []history.Message{}})
		return
	}

	msgs, err := s.opts.Store.Recent(r.Context(), visitorID, limit)
	if err != nil {
		s.metrics.historyFailure.Inc()
		logger.ErrorContext(r.Context(), "failed to load history", "error", err)
		writeError(w, http.StatusInternalServerError, errUnexpected)
		return
	}
	if msgs == nil {
		msgs = []history.Message{}
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Messages: msgs})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"model_available": s.opts.Completer != nil,
		"history":         s.opts.Store != nil,
		"tour_bridge":     s.bridge != nil,
	})
}

// recentHistory loads prior turns; failures are logged and yield none.
func (s *Server) recentHistory(ctx context.Context, visitorID string, limit int) []history.Message {
	if s.opts.Store == nil {
		return nil
	}
	msgs, err := s.opts.Store.Recent(ctx, visitorID, limit)
	if err != nil {
		s.metrics.historyFailure.Inc()
		logger.ErrorContext(ctx, "error fetching history", "error", err)
		return nil
	}
	return msgs
}

func (s *Server) appendHistory(ctx context.Context, visitorID, role, content string) {
	if s.opts.Store == nil {
		return
	}
	_, err := s.opts.Store.Append(ctx, history.Message{VisitorID: visitorID, Role: role, Content: content})
	if err != nil {
		s.metrics.historyFailure.Inc()
		logger.ErrorContext(ctx, "error storing message", "role", role, "error", err)
	}
}

func (s *Server) emit(ev events.Event) {
	if s.opts.Router != nil {
		s.opts.Router.Emit(ev)
	}
}

// instrument records request counts and latency for route.
func (s *Server) instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.metrics.requests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		s.metrics.duration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("http.route", route))
	})
}

// withCORS adds CORS headers to every response and answers preflight
// requests directly.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", corsAllowOrigin)
		h.Set("Access-Control-Allow-Methods", corsAllowMethods)
		h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrader take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

