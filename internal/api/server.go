package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/julianstephens/habitbell/internal/logger"
	"github.com/julianstephens/habitbell/internal/metrics"
	"github.com/julianstephens/habitbell/internal/session"
	"github.com/julianstephens/habitbell/internal/tracker"
)

var log = logger.For("api")

// Server is the HTTP surface a chat transport drives: habit operations,
// reminder responses and the add/edit conversation.
type Server struct {
	tracker  *tracker.Tracker
	sessions *session.Manager
	recorder metrics.Recorder
	metrics  http.Handler
	health   func(ctx context.Context) error
	secret   string

	srv *http.Server
}

type Option func(*Server)

func WithSessions(m *session.Manager) Option {
	return func(s *Server) { s.sessions = m }
}

func WithRecorder(r metrics.Recorder) Option {
	return func(s *Server) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithMetricsHandler serves h on /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithHealthCheck makes /healthz report 503 while check fails.
func WithHealthCheck(check func(ctx context.Context) error) Option {
	return func(s *Server) { s.health = check }
}

// WithSecret requires every /v1 request to carry the shared secret header.
func WithSecret(secret string) Option {
	return func(s *Server) { s.secret = secret }
}

func New(t *tracker.Tracker, opts ...Option) *Server {
	s := &Server{
		tracker:  t,
		recorder: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sessions == nil {
		s.sessions = session.NewManager(t)
	}
	return s
}

// Handler returns the routed handler without starting a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}

	v1 := http.NewServeMux()
	v1.HandleFunc("GET /v1/users/{user}/habits", s.handleListHabits)
	v1.HandleFunc("POST /v1/users/{user}/habits", s.handleAddHabit)
	v1.HandleFunc("DELETE /v1/users/{user}/habits", s.handleDeleteHabitByTitle)
	v1.HandleFunc("GET /v1/habits/{id}", s.handleGetHabit)
	v1.HandleFunc("PATCH /v1/habits/{id}", s.handleUpdateHabit)
	v1.HandleFunc("DELETE /v1/habits/{id}", s.handleDeleteHabit)
	v1.HandleFunc("POST /v1/users/{user}/logs", s.handleLogOutcome)
	v1.HandleFunc("DELETE /v1/users/{user}/logs", s.handleClearHistory)
	v1.HandleFunc("GET /v1/users/{user}/stats", s.handleStats)
	v1.HandleFunc("GET /v1/users/{user}/history", s.handleHistory)
	v1.HandleFunc("GET /v1/users/{user}/streak", s.handleStreak)
	v1.HandleFunc("POST /v1/users/{user}/conversation", s.handleConversation)
	v1.HandleFunc("GET /v1/users/{user}/conversation", s.handleConversationState)
	v1.HandleFunc("POST /v1/responses", s.handleResponse)
	mux.Handle("/v1/", s.requireSecret(v1))

	return s.logRequests(mux)
}

// Start binds addr before returning so port conflicts surface to the caller,
// then serves in the background.
func (s *Server) Start(ctx context.Context, addr string) (net.Addr, error) {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("HTTP server started", "addr", ln.Addr().String())
	return ln.Addr(), nil
}

// Stop gracefully shuts the server down. It is a no-op if Start was never called.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	log.Info("HTTP server stopped")
	return nil
}
