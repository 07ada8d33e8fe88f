// Package server provides the HTTP server implementation.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/journal/journal/internal/config"
	"github.com/journal/journal/internal/handlers"
	"github.com/journal/journal/internal/metrics"
	"github.com/journal/journal/internal/middleware"
	"github.com/journal/journal/pkg/logger"
)

// Server represents the HTTP server.
type Server struct {
	cfg            *config.Config
	log            *logger.Logger
	httpServer     *http.Server
	healthHandler  *handlers.HealthHandler
	idHandler      *handlers.IDHandler
	journalHandler *handlers.JournalHandler
	listener       net.Listener
	running        bool
	mu             sync.RWMutex
}

// New creates a new Server instance. API handlers are attached with the
// setters before Start; routes without a handler answer 503.
func New(cfg *config.Config, log *logger.Logger) *Server {
	s := &Server{
		cfg:           cfg,
		log:           log,
		healthHandler: handlers.NewHealthHandler(),
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	chain := middleware.New(
		middleware.Recover(log),
		middleware.Metrics(),
		middleware.RequestID(),
		middleware.Logging(log),
	)

	s.httpServer = &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      chain.Then(mux),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return s
}

// registerRoutes sets up the HTTP routes.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.healthHandler.Health)
	mux.HandleFunc("GET /ready", s.healthHandler.Ready)
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("POST /api/v1/ids", s.withIDs(func(h *handlers.IDHandler, w http.ResponseWriter, r *http.Request) {
		h.Mint(w, r)
	}))
	mux.HandleFunc("GET /api/v1/ids/{id}", s.withIDs(func(h *handlers.IDHandler, w http.ResponseWriter, r *http.Request) {
		h.Decode(w, r, r.PathValue("id"))
	}))

	mux.HandleFunc("POST /api/v1/users", s.withJournal(func(h *handlers.JournalHandler, w http.ResponseWriter, r *http.Request) {
		h.CreateUser(w, r)
	}))
	mux.HandleFunc("GET /api/v1/users/{id}", s.withJournal(func(h *handlers.JournalHandler, w http.ResponseWriter, r *http.Request) {
		h.GetUser(w, r, r.PathValue("id"))
	}))
	mux.HandleFunc("GET /api/v1/users/{id}/entries", s.withJournal(func(h *handlers.JournalHandler, w http.ResponseWriter, r *http.Request) {
		h.ListEntries(w, r, r.PathValue("id"))
	}))
	mux.HandleFunc("POST /api/v1/entries", s.withJournal(func(h *handlers.JournalHandler, w http.ResponseWriter, r *http.Request) {
		h.CreateEntry(w, r)
	}))
	mux.HandleFunc("GET /api/v1/entries/{id}", s.withJournal(func(h *handlers.JournalHandler, w http.ResponseWriter, r *http.Request) {
		h.GetEntry(w, r, r.PathValue("id"))
	}))
	mux.HandleFunc("PUT /api/v1/entries/{id}", s.withJournal(func(h *handlers.JournalHandler, w http.ResponseWriter, r *http.Request) {
		h.UpdateEntry(w, r, r.PathValue("id"))
	}))
	mux.HandleFunc("DELETE /api/v1/entries/{id}", s.withJournal(func(h *handlers.JournalHandler, w http.ResponseWriter, r *http.Request) {
		h.DeleteEntry(w, r, r.PathValue("id"))
	}))
}

func (s *Server) withIDs(fn func(*handlers.IDHandler, http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		h := s.idHandler
		s.mu.RUnlock()
		if h == nil {
			handlers.NotConfigured(w, "ID")
			return
		}
		fn(h, w, r)
	}
}

func (s *Server) withJournal(fn func(*handlers.JournalHandler, http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		h := s.journalHandler
		s.mu.RUnlock()
		if h == nil {
			handlers.NotConfigured(w, "journal")
			return
		}
		fn(h, w, r)
	}
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	// Listen first so Addr reports the real port when Port is 0.
	listener, err := net.Listen("tcp", s.cfg.Server.Address())
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}

	s.mu.Lock()
	s.listener = listener
	s.running = true
	s.mu.Unlock()

	s.log.Info("server starting", "address", listener.Addr().String())

	err = s.httpServer.Serve(listener)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("server shutting down")

	s.healthHandler.SetReady(false)

	err := s.httpServer.Shutdown(ctx)

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	if err != nil {
		s.log.Error("shutdown error", "error", err.Error())
		return err
	}

	s.log.Info("server stopped")
	return nil
}

// IsRunning returns whether the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the server's address.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// Handler returns the root handler including middleware.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// HealthHandler returns the health handler.
func (s *Server) HealthHandler() *handlers.HealthHandler {
	return s.healthHandler
}

// SetIDHandler sets the identifier handler for the server.
func (s *Server) SetIDHandler(h *handlers.IDHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.idHandler = h
}

// SetJournalHandler sets the journal handler for the server.
func (s *Server) SetJournalHandler(h *handlers.JournalHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.journalHandler = h
}
