// Package ingest accepts server registrations and player activity from proxies
// over HTTP and WebSocket and hands them to the relay.
package ingest

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/brensch/serverlogs/relay"
)

// Sink receives discovered servers and formatted events.
type Sink interface {
	OnServerDiscovered(name string)
	Route(ev relay.LogEvent)
	Snapshot() []relay.ServerStatus
}

// Gate reports whether activity should be relayed at all.
type Gate interface {
	LoggingEnabled() bool
}

type Config struct {
	// Token, when set, must be presented as a bearer token or ?token= query.
	Token         string
	RatePerSecond float64
	Burst         int
}

// maxBody caps a single activity envelope.
const maxBody = 64 << 10

type Server struct {
	sink      Sink
	gate      Gate
	cfg       Config
	formatter *Formatter
	limiters  *limiterSet
	router    chi.Router

	connsMu sync.Mutex
	conns   map[*websocket.Conn]struct{}
}

func NewServer(sink Sink, gate Gate, cfg Config) *Server {
	s := &Server{
		sink:      sink,
		gate:      gate,
		cfg:       cfg,
		formatter: NewFormatter(),
		limiters:  newLimiterSet(cfg.RatePerSecond, cfg.Burst),
		conns:     make(map[*websocket.Conn]struct{}),
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)
		r.Get("/servers", s.listServers)
		r.Post("/servers", s.registerServer)
		r.Post("/events", s.postEvent)
		r.Get("/ws", s.stream)
	})

	s.router = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down and closes any
// open WebSocket streams.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("ingest listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("ingest server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.closeStreams()
	if err != nil {
		return fmt.Errorf("ingest shutdown: %w", err)
	}
	return nil
}

// Process applies one activity and returns the HTTP status describing the
// outcome. It is shared by /events and /ws.
func (s *Server) Process(a Activity) (int, error) {
	if a.Type == TypeRegister {
		if _, err := a.validate(); err != nil {
			return http.StatusBadRequest, err
		}
		s.sink.OnServerDiscovered(a.Server)
		return http.StatusAccepted, nil
	}
	if s.gate != nil && !s.gate.LoggingEnabled() {
		return http.StatusNoContent, nil
	}
	ev, err := s.formatter.Format(a)
	if err != nil {
		return http.StatusBadRequest, err
	}
	if !s.limiters.allow(a.Server) {
		return http.StatusTooManyRequests, fmt.Errorf("rate limit exceeded for %s", a.Server)
	}
	s.sink.Route(ev)
	return http.StatusAccepted, nil
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Token == "" {
			next.ServeHTTP(w, r)
			return
		}
		token := r.URL.Query().Get("token")
		if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
			token = h[7:]
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.Token)) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid or missing token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type serverView struct {
	Name       string            `json:"name"`
	State      string            `json:"state"`
	Busy       bool              `json:"busy"`
	CategoryID string            `json:"category_id,omitempty"`
	Channels   map[string]string `json:"channels,omitempty"`
}

func (s *Server) listServers(w http.ResponseWriter, r *http.Request) {
	statuses := s.sink.Snapshot()
	out := make([]serverView, 0, len(statuses))
	for _, st := range statuses {
		v := serverView{Name: st.Name, State: st.State.String(), Busy: st.Busy}
		if set := st.Set; set != nil {
			if set.Category != nil {
				v.CategoryID = set.Category.ID
			}
			v.Channels = make(map[string]string)
			if set.Chat != nil {
				v.Channels[relay.ChatChannel] = set.Chat.ID
			}
			if set.Commands != nil {
				v.Channels[relay.CommandsChannel] = set.Commands.ID
			}
			if set.JoinLeave != nil {
				v.Channels[relay.JoinLeaveChannel] = set.JoinLeave.ID
			}
		}
		out = append(out, v)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) registerServer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respond(w, Activity{Type: TypeRegister, Server: req.Name})
}

func (s *Server) postEvent(w http.ResponseWriter, r *http.Request) {
	var a Activity
	if err := decode(w, r, &a); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respond(w, a)
}

func (s *Server) respond(w http.ResponseWriter, a Activity) {
	status, err := s.Process(a)
	switch {
	case err != nil:
		writeError(w, status, err.Error())
	case status == http.StatusNoContent:
		w.WriteHeader(status)
	default:
		writeJSON(w, status, map[string]string{"status": "accepted"})
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("malformed body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Debug("ingest request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"remote", r.RemoteAddr,
			"took", time.Since(start),
		)
	})
}
