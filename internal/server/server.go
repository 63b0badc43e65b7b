// Package server provides the HTTP dashboard and API for mudra.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/server/api"
	"github.com/ayusman/mudra/internal/store"
)

// Controller is what the server needs from the running application.
type Controller interface {
	api.Controller
	LatestFrame() []byte
	Subscribe(fn func(app.Event)) (unsubscribe func())
}

// Config holds the server configuration. App and Store are optional; their
// routes are only registered when set.
type Config struct {
	StaticDir   string
	App         Controller
	Store       *store.Store
	InjectRate  float64
	InjectBurst int
}

// Server represents the HTTP server for the mudra application.
type Server struct {
	config Config
	router chi.Router
	hub    *Hub
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	if config.InjectRate <= 0 {
		config.InjectRate = 5
	}
	if config.InjectBurst <= 0 {
		config.InjectBurst = 5
	}

	s := &Server{
		config: config,
		router: chi.NewRouter(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	r := s.router
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/api/health", s.handleHealth)

	if s.config.App != nil {
		control := api.NewControlHandler(s.config.App, s.config.InjectRate, s.config.InjectBurst)
		r.Get("/api/status", control.Status)
		r.Post("/api/gestures", control.Inject)
		r.Put("/api/enabled", control.SetEnabled)

		r.Handle("/api/stream", NewStreamHandler(s.config.App))

		s.hub = NewHub(s.config.App)
		r.Handle("/api/events", s.hub)
	}

	if s.config.Store != nil {
		sessions := api.NewSessionHandler(s.config.Store)
		r.Get("/api/sessions", sessions.List)
		r.Get("/api/sessions/{id}", sessions.Get)
		r.Get("/api/sessions/{id}/commands", sessions.Commands)
		r.Get("/api/sessions/{id}/stats", sessions.Stats)
	}

	if s.config.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.config.StaticDir)))
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
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

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
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

	if s.hub != nil {
		s.hub.Close()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
