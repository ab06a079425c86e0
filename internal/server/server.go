// Package server provides the HTTP server and routing for the fund process.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/fundcore/internal/di"
	executionhandlers "github.com/aristath/fundcore/internal/modules/execution/handlers"
	fundhandlers "github.com/aristath/fundcore/internal/modules/fund/handlers"
	ledgerhandlers "github.com/aristath/fundcore/internal/modules/ledger/handlers"
	portfoliohandlers "github.com/aristath/fundcore/internal/modules/portfolio/handlers"
	riskhandlers "github.com/aristath/fundcore/internal/modules/risk/handlers"
	"github.com/aristath/fundcore/internal/scheduler"
)

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Port      int
	DevMode   bool
	DataDir   string
	Container *di.Container     // DI container with all services
	Jobs      *di.JobInstances // may be nil; no jobs are triggerable then
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	port           int
	container      *di.Container
	systemHandlers *SystemHandlers
	eventsStream   *EventsStreamHandler
	startedAt      time.Time
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log.With().Str("component", "server").Logger(),
		port:      cfg.Port,
		container: cfg.Container,
		startedAt: time.Now(),
	}

	s.systemHandlers = NewSystemHandlers(
		cfg.Log,
		cfg.DataDir,
		cfg.Container.Databases(),
		cfg.Container.EventBus,
		cfg.Container.Supervisor,
		cfg.Container.Scheduler,
		jobList(cfg.Jobs),
	)
	s.eventsStream = NewEventsStreamHandler(cfg.Container.EventBus, cfg.Log)

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	// No WriteTimeout: the event streams hold their connections open.
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

func jobList(jobs *di.JobInstances) []scheduler.Job {
	if jobs == nil {
		return nil
	}
	return []scheduler.Job{jobs.Maintenance, jobs.WALCheck, jobs.AlertCleanup, jobs.Backup}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Method(http.MethodGet, "/metrics", s.container.Metrics.Handler())

	s.router.Route("/api", func(r chi.Router) {
		// Long-lived event streams stay outside the request timeout.
		r.Get("/events/ws", s.eventsStream.ServeWebSocket)
		r.Get("/events/stream", s.eventsStream.ServeSSE)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			supervisor := s.container.Supervisor
			fundhandlers.NewHandler(supervisor, s.log).RegisterRoutes(r)
			riskhandlers.NewHandler(supervisor, s.log).RegisterRoutes(r)
			portfoliohandlers.NewHandler(supervisor, s.log).RegisterRoutes(r)
			executionhandlers.NewHandler(supervisor, s.log).RegisterRoutes(r)
			ledgerhandlers.NewHandler(s.container.Ledger, s.log).RegisterRoutes(r)

			s.setupSystemRoutes(r)
		})
	})
}

func (s *Server) setupSystemRoutes(r chi.Router) {
	r.Route("/system", func(r chi.Router) {
		r.Get("/status", s.systemHandlers.HandleSystemStatus)
		r.Post("/jobs/{name}", func(w http.ResponseWriter, r *http.Request) {
			s.systemHandlers.HandleTriggerJob(w, r, chi.URLParam(r, "name"))
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
