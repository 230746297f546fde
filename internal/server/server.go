package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/GriffinCanCode/minimap-tracker/internal/config"
	"github.com/GriffinCanCode/minimap-tracker/internal/metrics"
	"github.com/GriffinCanCode/minimap-tracker/internal/trace"
	"github.com/GriffinCanCode/minimap-tracker/internal/tracker"
)

// Message types.
type Message struct {
	Type string `json:"type"`
}

type PanToMessage struct {
	Type string  `json:"type"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

type SetHeadingMessage struct {
	Type    string `json:"type"`
	Degrees int    `json:"degrees"`
}

type TrackingMessage struct {
	Type    string `json:"type"`
	Enabled bool   `json:"enabled"`
	TraceID string `json:"trace_id,omitempty"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Source is what the server reads from and controls.
type Source interface {
	Snapshot() tracker.Snapshot
	Events() <-chan tracker.Fix
	Recent(window time.Duration) []tracker.Fix
	Preview() []byte
	SetRunning(on bool)
}

// Server handles HTTP and WebSocket connections.
type Server struct {
	src     Source
	origins []string
	mu      sync.RWMutex
	conns   map[*websocket.Conn]*rateLimiter
	ips     *ipLimiter
}

// New creates a server and starts forwarding fixes to websocket clients.
func New(src Source, cfg *config.Config) *Server {
	origins := []string{"*"}
	if cfg != nil && len(cfg.AllowedOrigins) > 0 {
		origins = cfg.AllowedOrigins
	}
	s := &Server{
		src:     src,
		origins: origins,
		conns:   make(map[*websocket.Conn]*rateLimiter),
		ips:     newIPLimiter(),
	}
	go s.broadcastFixes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", s.handleWebSocket)

	mux.HandleFunc("GET /api/position", s.handlePosition)
	mux.HandleFunc("GET /api/track", s.handleTrack)
	mux.HandleFunc("GET /api/capture", s.handleCapture)
	mux.HandleFunc("POST /api/tracking/start", s.ips.middleware(s.handleTrackingStart))
	mux.HandleFunc("POST /api/tracking/stop", s.ips.middleware(s.handleTrackingStop))

	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// trace -> CORS
	return s.corsMiddleware(trace.Middleware(mux))
}

// RunCleanup purges idle per-IP limiters until ctx is done.
func (s *Server) RunCleanup(ctx context.Context) {
	ticker := time.NewTicker(IPRateLimitCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.ips.cleanup(IPRateLimitEntryTTL)
		}
	}
}

// Clients returns the number of connected websocket clients.
func (s *Server) Clients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	wildcard := slices.Contains(s.origins, "*")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case wildcard:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && slices.Contains(s.origins, origin):
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.origins,
	})
	if err != nil {
		slog.Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	s.mu.Lock()
	s.conns[conn] = newRateLimiter(RateLimitMessages, RateLimitWindow)
	metrics.WSClients.Set(float64(len(s.conns)))
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		metrics.WSClients.Set(float64(len(s.conns)))
		s.mu.Unlock()
	}()

	baseCtx := r.Context()
	log := trace.Logger(baseCtx)
	log.Info("websocket connected", "remote", r.RemoteAddr)

	// New pages start at the current position.
	if snap := s.src.Snapshot(); snap.HasFix {
		writeFix(baseCtx, conn, snap.Fix)
	}

	for {
		var msg json.RawMessage
		if err := wsjson.Read(baseCtx, conn, &msg); err != nil {
			log.Debug("websocket read error", "error", err)
			return
		}

		s.mu.RLock()
		rl := s.conns[conn]
		s.mu.RUnlock()

		if !rl.allow() {
			log.Warn("rate limit exceeded", "remote", r.RemoteAddr)
			_ = wsjson.Write(baseCtx, conn, ErrorMessage{Type: "error", Message: "rate limit exceeded"})
			continue
		}

		var base Message
		if err := json.Unmarshal(msg, &base); err != nil {
			continue
		}

		switch base.Type {
		case "tracking":
			var tm TrackingMessage
			if err := json.Unmarshal(msg, &tm); err != nil {
				continue
			}
			ctx := baseCtx
			if tc, ok := trace.ExtractFromJSON(msg); ok {
				ctx = trace.WithContext(ctx, tc)
			}
			trace.Logger(ctx).Info("tracking toggled", "enabled", tm.Enabled)
			s.src.SetRunning(tm.Enabled)
			_ = wsjson.Write(ctx, conn, TrackingMessage{Type: "tracking", Enabled: tm.Enabled})
		default:
			_ = wsjson.Write(baseCtx, conn, ErrorMessage{Type: "error", Message: "unknown message type: " + base.Type})
		}
	}
}

func (s *Server) broadcastFixes() {
	for fix := range s.src.Events() {
		s.mu.RLock()
		for conn := range s.conns {
			go func(c *websocket.Conn) {
				ctx, cancel := context.WithTimeout(context.Background(), wsWriteTimeout)
				defer cancel()
				writeFix(ctx, c, fix)
			}(conn)
		}
		s.mu.RUnlock()
	}
}

// writeFix sends the pan and rotate commands for one fix, in that order.
func writeFix(ctx context.Context, c *websocket.Conn, f tracker.Fix) {
	if err := wsjson.Write(ctx, c, PanToMessage{Type: "pan_to", Lat: f.Lat, Lng: f.Lng}); err != nil {
		return
	}
	_ = wsjson.Write(ctx, c, SetHeadingMessage{Type: "set_heading", Degrees: f.Heading})
}

func (s *Server) handlePosition(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.src.Snapshot())
}

func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	seconds := DefaultTrackSeconds
	if v := r.URL.Query().Get("seconds"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "seconds must be a positive integer"})
			return
		}
		seconds = min(n, MaxTrackSeconds)
	}
	fixes := s.src.Recent(time.Duration(seconds) * time.Second)
	if fixes == nil {
		fixes = []tracker.Fix{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"seconds": seconds, "fixes": fixes})
}

func (s *Server) handleCapture(w http.ResponseWriter, _ *http.Request) {
	img := s.src.Preview()
	if len(img) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(img)
}

func (s *Server) handleTrackingStart(w http.ResponseWriter, _ *http.Request) {
	s.src.SetRunning(true)
	writeJSON(w, http.StatusOK, map[string]string{"status": "tracking_started"})
}

func (s *Server) handleTrackingStop(w http.ResponseWriter, _ *http.Request) {
	s.src.SetRunning(false)
	writeJSON(w, http.StatusOK, map[string]string{"status": "tracking_stopped"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
