// Package server provides the HTTP monitor for a running handstream instance.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/ayusman/handstream/internal/relay"
)

// Status reports pipeline state for the health endpoint.
type Status interface {
	Calibrated() bool
	Frames() uint64
}

// Config holds the server configuration.
type Config struct {
	Slot     *relay.Slot
	Sessions *relay.Registry
	Status   Status
	// PollInterval is the stream cadence; zero uses relay.DefaultPollInterval.
	PollInterval time.Duration
}

// Server is the monitor HTTP handler.
type Server struct {
	config Config
	router *mux.Router
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	if config.Slot == nil {
		config.Slot = &relay.Slot{}
	}
	if config.Sessions == nil {
		config.Sessions = relay.NewRegistry()
	}
	s := &Server{
		config: config,
		router: mux.NewRouter(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/api/frame", s.handleFrame).Methods(http.MethodGet)
	s.router.HandleFunc("/api/sessions", s.handleSessions).Methods(http.MethodGet)
	s.router.HandleFunc("/api/sessions/{id:[0-9]+}", s.handleSession).Methods(http.MethodGet)
	s.router.Handle("/api/stream", NewStreamHandler(s.config.Slot, s.config.PollInterval)).Methods(http.MethodGet)
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":  "ok",
		"uptime":  time.Since(s.start).String(),
		"clients": s.config.Sessions.Count(),
	}
	if s.config.Status != nil {
		response["calibrated"] = s.config.Status.Calibrated()
		response["frames"] = s.config.Status.Frames()
	}
	writeJSON(w, http.StatusOK, response)
}

// handleFrame returns the latest frame document as-is.
func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	frame, ok := s.config.Slot.Load()
	if !ok || frame == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(frame))
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": s.config.Sessions.List(),
	})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	info, ok := s.config.Sessions.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// Run serves on addr until ctx is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
