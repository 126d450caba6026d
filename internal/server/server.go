// Package server provides the HTTP control panel for gazescroll.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ayusman/gazescroll/internal/server/api"
)

// Config holds the server configuration.
type Config struct {
	StaticDir  string
	Controller api.Controller
	Frames     FrameSource
}

// Server represents the HTTP server for the control panel.
type Server struct {
	config    Config
	mux       *http.ServeMux
	start     time.Time
	snapshots *SnapshotHandler
	http      *http.Server
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if c := s.config.Controller; c != nil {
		s.mux.Handle("/api/state", api.NewStateHandler(c))
		s.mux.Handle("/api/tracking", api.NewTrackingHandler(c))
		s.mux.Handle("/api/settings", api.NewSettingsHandler(c))
		s.mux.Handle("/api/mode/toggle", api.NewModeHandler(c))

		calibration := api.NewCalibrationHandler(c)
		s.mux.Handle("/api/calibration", calibration)
		s.mux.Handle("/api/calibration/", calibration)

		s.mux.Handle("/api/events", api.NewEventsHandler(c))

		s.snapshots = NewSnapshotHandler(c)
		s.mux.Handle("/api/ws", s.snapshots)
	}

	if s.config.Frames != nil {
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Frames))
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address. It returns
// nil after Shutdown.
func (s *Server) ListenAndServe(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverLog.Info().Str("addr", addr).Msg("control panel listening")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server and the snapshot broadcaster.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.snapshots != nil {
		s.snapshots.Close()
	}
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
