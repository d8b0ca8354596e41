package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"glanced/internal/island"
	"glanced/internal/registry"
	"glanced/internal/store"
)

// Server is the glanced HTTP API server.
type Server struct {
	reg       *registry.Registry
	rotator   *island.Rotator
	deliverer island.Deliverer
	db        *store.DB
	router    chi.Router
	version   string
	started   time.Time
}

// New creates a new Server. db may be nil when running without
// persistence (tests, ephemeral mode).
func New(reg *registry.Registry, rotator *island.Rotator, deliverer island.Deliverer, db *store.DB, version string) *Server {
	s := &Server{
		reg:       reg,
		rotator:   rotator,
		deliverer: deliverer,
		db:        db,
		version:   version,
		started:   time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Get("/devices", s.handleListDevices)
		r.Post("/devices/register", s.handleRegister)
		r.Post("/devices/{token}/unregister", s.handleUnregister)
		r.Post("/devices/{token}/sync", s.handleSync)
		r.Post("/devices/{token}/data", s.handleData)
		r.Post("/devices/{token}/update", s.handleUpdate)
		r.Post("/devices/{token}/rotate", s.handleRotate)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := s.db != nil
	if s.db != nil {
		if err := s.db.Ping(); err != nil {
			dbOK = false
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
		"db":      dbOK,
		"devices": s.reg.Len(),
	})
}
