// Package server provides HTTP and WebSocket surfaces
package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/xid"

	"github.com/GriffinCanCode/livecaption/internal/archive"
	"github.com/GriffinCanCode/livecaption/internal/broadcast"
	"github.com/GriffinCanCode/livecaption/internal/errors"
	"github.com/GriffinCanCode/livecaption/internal/events"
	"github.com/GriffinCanCode/livecaption/internal/orchestrator"
	"github.com/GriffinCanCode/livecaption/internal/trace"
)

// Orchestrator is the session side of the server.
type Orchestrator interface {
	Handle(ctx context.Context, surfaceID string, cmd events.Command) error
	Snapshot() orchestrator.Snapshot
}

// ArchiveReader serves archived sessions.
type ArchiveReader interface {
	Sessions(ctx context.Context, limit int) ([]archive.Session, error)
	Segments(ctx context.Context, sessionID string) ([]archive.Segment, error)
	Summaries(ctx context.Context, sessionID string) ([]archive.Summary, error)
}

// ErrorMessage reports a rejected command to a WebSocket client.
type ErrorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	TraceID string `json:"trace_id,omitempty"`
}

// rateLimiter tracks message timestamps using a sliding window.
type rateLimiter struct {
	timestamps []time.Time
	mu         sync.Mutex
}

// allow checks if a message is allowed and records the timestamp if so.
func (r *rateLimiter) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-RateLimitWindow)

	valid := r.timestamps[:0]
	for _, t := range r.timestamps {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	r.timestamps = valid

	if len(r.timestamps) >= RateLimitMessages {
		return false
	}

	r.timestamps = append(r.timestamps, now)
	return true
}

// Option configures a Server.
type Option func(*Server)

// WithArchive exposes archived sessions over REST.
func WithArchive(a ArchiveReader) Option {
	return func(s *Server) { s.archive = a }
}

// WithSurfaceQueue sets the per-socket event queue size.
func WithSurfaceQueue(n int) Option {
	return func(s *Server) { s.queue = n }
}

// Server handles HTTP and WebSocket connections.
type Server struct {
	orch    Orchestrator
	hub     *broadcast.Hub
	archive ArchiveReader
	queue   int
}

// New creates a new server.
func New(orch Orchestrator, hub *broadcast.Hub, opts ...Option) *Server {
	s := &Server{orch: orch, hub: hub, queue: DefaultSurfaceQueue}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// WebSocket endpoint
	mux.HandleFunc("/ws", s.handleWebSocket)

	// REST API
	mux.HandleFunc("POST /api/capture/start", s.handleStart)
	mux.HandleFunc("POST /api/capture/stop", s.commandHandler(events.StopCapture))
	mux.HandleFunc("POST /api/summary", s.commandHandler(events.RequestSummary))
	mux.HandleFunc("POST /api/transcript/clear", s.commandHandler(events.ClearTranscript))
	mux.HandleFunc("POST /api/activity", s.handleActivity)
	mux.HandleFunc("GET /api/session", s.handleSession)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	if s.archive != nil {
		mux.HandleFunc("GET /api/archive/sessions", s.handleArchiveSessions)
		mux.HandleFunc("GET /api/archive/sessions/{id}", s.handleArchiveSession)
	}

	// Apply middleware: trace -> CORS
	return corsMiddleware(trace.Middleware(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// command routes cmd from surfaceID. Activity signals go to the hub, the
// rest to the session.
func (s *Server) command(ctx context.Context, surfaceID string, cmd events.Command) (int, error) {
	if err := cmd.Validate(); err != nil {
		return 0, err
	}
	if cmd.Type == events.AudioActivity {
		return s.hub.Signal(ctx, broadcast.Activity{SourceSurfaceID: surfaceID, SourceLabel: cmd.Label}), nil
	}
	return 0, s.orch.Handle(ctx, surfaceID, cmd)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		trace.Logger(r.Context()).Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	id := r.URL.Query().Get("surface")
	if id == "" {
		id = xid.New().String()
	}

	baseCtx, cancel := context.WithCancel(r.Context())
	defer cancel()
	log := trace.Logger(baseCtx).With("surface_id", id)

	surface := newSurface(id, conn, s.queue)
	s.hub.Register(surface)
	defer func() {
		s.hub.Unregister(id)
		surface.close()
	}()
	go surface.writeLoop(baseCtx)

	log.Info("websocket connected", "remote", r.RemoteAddr)
	rl := &rateLimiter{}

	for {
		var cmd events.Command
		if err := wsjson.Read(baseCtx, conn, &cmd); err != nil {
			log.Debug("websocket read error", "error", err)
			return
		}

		if !rl.allow() {
			log.Warn("rate limit exceeded", "remote", r.RemoteAddr)
			_ = surface.enqueue(baseCtx, ErrorMessage{Type: "error", Message: "rate limit exceeded"})
			continue
		}

		ctx := trace.Continue(baseCtx, cmd.TraceID)
		if _, err := s.command(ctx, id, cmd); err != nil {
			log.Warn("command rejected", "command", cmd.Type, "error", err)
			tc, _ := trace.FromContext(ctx)
			_ = surface.enqueue(baseCtx, ErrorMessage{
				Type:    "error",
				Code:    errors.CodeOf(err).String(),
				Message: errors.Message(err),
				TraceID: tc.TraceID,
			})
		}
	}
}

func surfaceOf(r *http.Request) string {
	if id := r.Header.Get(SurfaceHeader); id != "" {
		return id
	}
	if id := r.URL.Query().Get("surface"); id != "" {
		return id
	}
	return RESTSurface
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Source string `json:"source"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	s.runCommand(w, r, events.Command{Type: events.StartCapture, Source: body.Source})
}

func (s *Server) commandHandler(t events.CommandType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.runCommand(w, r, events.Command{Type: t})
	}
}

func (s *Server) runCommand(w http.ResponseWriter, r *http.Request, cmd events.Command) {
	if _, err := s.command(r.Context(), surfaceOf(r), cmd); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "accepted",
		"command": cmd.Type,
		"session": s.orch.Snapshot(),
	})
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Label string `json:"label"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	n, err := s.command(r.Context(), surfaceOf(r), events.Command{Type: events.AudioActivity, Label: body.Label})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"delivered": n})
}

func (s *Server) handleSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.orch.Snapshot())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"surfaces": s.hub.Len(),
		"state":    s.orch.Snapshot().State,
	})
}

func (s *Server) handleArchiveSessions(w http.ResponseWriter, r *http.Request) {
	limit := DefaultArchiveLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, r, errors.Newf(errors.InvalidArgument, "invalid limit %q", v))
			return
		}
		limit = n
	}

	sessions, err := s.archive.Sessions(r.Context(), limit)
	if err != nil {
		writeError(w, r, errors.Wrap(err, errors.Internal, "archive read failed"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (s *Server) handleArchiveSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	segs, err := s.archive.Segments(r.Context(), id)
	if err != nil {
		writeError(w, r, errors.Wrap(err, errors.Internal, "archive read failed"))
		return
	}
	sums, err := s.archive.Summaries(r.Context(), id)
	if err != nil {
		writeError(w, r, errors.Wrap(err, errors.Internal, "archive read failed"))
		return
	}
	if len(segs) == 0 && len(sums) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": id,
		"segments":   segs,
		"summaries":  sums,
	})
}

func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes)).Decode(v)
	if err == nil || err == io.EOF {
		return nil
	}
	return errors.Wrap(err, errors.InvalidArgument, "invalid request body")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := httpStatus(err)
	if code >= http.StatusInternalServerError {
		trace.Logger(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, code, map[string]string{
		"error": errors.Message(err),
		"code":  errors.CodeOf(err).String(),
	})
}

func httpStatus(err error) int {
	switch errors.CodeOf(err) {
	case errors.InvalidArgument:
		return http.StatusBadRequest
	case errors.SourceUnavailable, errors.Cancelled:
		return http.StatusServiceUnavailable
	case errors.Timeout:
		return http.StatusGatewayTimeout
	case errors.Network, errors.Remote:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
