// Package server exposes the race host over HTTP: a REST control surface,
// tuning presets and the websocket race stream.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	gamelog "gallop/internal/log"
	"gallop/internal/race"
	"gallop/internal/sim"
	"gallop/internal/store"
)

// Error types reported in JSON error bodies.
const (
	ErrTypeBadRequest = "bad_request"
	ErrTypeNotFound   = "not_found"
	ErrTypeConflict   = "conflict"
	ErrTypeGone       = "gone"
	ErrTypeInternal   = "internal"
)

// APIError is the body of every error response.
type APIError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Presets is the preset persistence the server needs.
type Presets interface {
	SavePreset(ctx context.Context, name string, cfg race.Config) (store.Preset, error)
	LoadPreset(ctx context.Context, name string) (store.Preset, error)
	ListPresets(ctx context.Context) ([]store.Preset, error)
	DeletePreset(ctx context.Context, name string) error
}

// Server handles HTTP requests.
type Server struct {
	sim       *sim.Simulation
	presets   Presets
	hub       *Hub
	log       *gamelog.Logger
	startTime time.Time
}

// New creates a server. presets may be nil, in which case the preset routes
// are not mounted.
func New(simulation *sim.Simulation, presets Presets, hub *Hub, l *gamelog.Logger) *Server {
	if l == nil {
		l = gamelog.Discard()
	}
	return &Server{
		sim:       simulation,
		presets:   presets,
		hub:       hub,
		log:       l,
		startTime: time.Now(),
	}
}

// Routes sets up the HTTP routes.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	if s.hub != nil {
		r.Handle("/ws", s.hub)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.Route("/api/v1", func(r chi.Router) {
			r.Route("/race", func(r chi.Router) {
				r.Get("/", s.handleSnapshot)
				r.Get("/result", s.handleResult)
				r.Post("/start", s.handleStart)
				r.Post("/pause", s.handlePause)
				r.Post("/end", s.handleEnd)
			})
			if s.presets != nil {
				r.Route("/presets", func(r chi.Router) {
					r.Get("/", s.handleListPresets)
					r.Get("/{name}", s.handleGetPreset)
					r.Put("/{name}", s.handlePutPreset)
					r.Delete("/{name}", s.handleDeletePreset)
					r.Post("/{name}/apply", s.handleApplyPreset)
				})
			}
		})
	})

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debugf("%s %s -> %d in %s (request %s)", r.Method, r.URL.Path, ww.Status(), time.Since(start), middleware.GetReqID(r.Context()))
	})
}

// writeJSON writes a JSON response with proper headers.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("failed to encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, errType, message string) {
	s.writeJSON(w, status, APIError{Type: errType, Message: message})
}

// writeFailure maps domain errors to HTTP statuses.
func (s *Server) writeFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sim.ErrDisposed):
		s.writeError(w, http.StatusGone, ErrTypeGone, err.Error())
	case errors.Is(err, sim.ErrAlreadyRunning), errors.Is(err, sim.ErrNotRunning):
		s.writeError(w, http.StatusConflict, ErrTypeConflict, err.Error())
	case errors.Is(err, sim.ErrNoResult), errors.Is(err, store.ErrPresetNotFound):
		s.writeError(w, http.StatusNotFound, ErrTypeNotFound, err.Error())
	case errors.Is(err, store.ErrInvalidName):
		s.writeError(w, http.StatusBadRequest, ErrTypeBadRequest, err.Error())
	default:
		s.log.Errorf("request failed: %v", err)
		s.writeError(w, http.StatusInternalServerError, ErrTypeInternal, "internal server error")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	clients := 0
	if s.hub != nil {
		clients = s.hub.Clients()
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "healthy",
		"state":    s.sim.State(),
		"progress": s.sim.Progress(),
		"clients":  clients,
		"uptime":   time.Since(s.startTime).Round(time.Second).String(),
	})
}
