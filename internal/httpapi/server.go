package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/BrandonDHaskell/drugbox/internal/auth"
	"github.com/BrandonDHaskell/drugbox/internal/drugbox/service"
	"github.com/BrandonDHaskell/drugbox/internal/metrics"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Dependencies struct {
	Logger     *slog.Logger
	Addr       string
	Registry   *service.Registry
	Authorizer *service.Authorizer
	Scheduler  *service.Scheduler
	Directory  *service.Directory
	Health     Pinger
	Metrics    *metrics.Metrics // optional; nil disables /metrics
	Signer     *auth.Signer     // optional; nil disables /api/v1/admin
}

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger

	registry   *service.Registry
	authorizer *service.Authorizer
	scheduler  *service.Scheduler
	directory  *service.Directory
	health     Pinger
	signer     *auth.Signer
}

func NewServer(d Dependencies) *Server {
	s := &Server{
		logger:     d.Logger,
		registry:   d.Registry,
		authorizer: d.Authorizer,
		scheduler:  d.Scheduler,
		directory:  d.Directory,
		health:     d.Health,
		signer:     d.Signer,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(d.Logger, d.Metrics))

	r.Get("/health", s.handleHealth)
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics.Handler())
	}

	// Devices post to the trailing-slash form; StripSlashes folds both.
	r.Post("/api/v1/add-user", s.handleAddUser)
	r.Post("/api/v1/handle-request", s.handleRequest)

	if d.Signer != nil {
		r.Route("/api/v1/admin", func(r chi.Router) {
			r.Use(s.adminAuth)
			r.Get("/users", s.handleListUsers)
			r.Get("/users/{id}", s.handleGetUser)
			r.Post("/dosages", s.handleScheduleDosage)
			r.Get("/dosages", s.handleListDosages)
			r.Get("/events", s.handleListEvents)
		})
	}

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if s.health != nil {
		if err := s.health.Ping(ctx); err != nil {
			s.logger.Warn("health check failed", "err", err)
			writeError(w, http.StatusServiceUnavailable, "unavailable", "store unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
