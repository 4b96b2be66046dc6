package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"ffnexus/internal/config"
	"ffnexus/internal/core"
	"ffnexus/internal/keywords"
	"ffnexus/internal/logger"
	"ffnexus/internal/pipeline"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// MessageQueue accepts messages for asynchronous processing
type MessageQueue interface {
	Submit(msg core.Message) error
	Pending() int
}

// KeywordEditor adds operator-supplied keywords
type KeywordEditor interface {
	Add(ctx context.Context, words ...string) keywords.LearnResult
}

// HealthChecker reports database reachability
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Dependencies wires the server to the running pipeline. Only Pipeline is
// required.
type Dependencies struct {
	Pipeline *pipeline.Pipeline
	Queue    MessageQueue
	Keywords KeywordEditor
	DB       HealthChecker
}

// Server represents the HTTP server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	deps       Dependencies
	config     config.Server
	log        *slog.Logger
	startedAt  time.Time
}

// New creates a new HTTP server instance
func New(deps Dependencies, cfg config.Server) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		deps:      deps,
		config:    cfg,
		log:       logger.Get(),
		startedAt: time.Now(),
	}

	// Setup middleware
	s.setupMiddleware()

	// Setup routes
	s.setupRoutes()

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s
}

// setupMiddleware configures middleware for the server
func (s *Server) setupMiddleware() {
	// Request ID middleware
	s.router.Use(middleware.RequestID)

	// Real IP middleware
	s.router.Use(middleware.RealIP)

	// Logging middleware
	s.router.Use(middleware.Logger)

	// Recovery middleware (recover from panics)
	s.router.Use(middleware.Recoverer)

	// Request timeout middleware
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(securityHeaders)

	// CORS middleware
	if s.config.CORS.Enabled {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.config.CORS.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
}

// setupRoutes configures routes for the server
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)

		// Ingestion and dry-run scoring
		r.Post("/messages", s.handleSubmitMessage)
		r.Post("/classify", s.handleClassify)

		r.Route("/keywords", func(r chi.Router) {
			r.Get("/", s.handleListKeywords)
			r.With(s.requireAdminAPI).Post("/", s.handleAddKeywords)
		})

		r.Get("/incidents", s.handleIncidents)
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info("Starting HTTP server",
		"addr", s.httpServer.Addr,
		"read_timeout", s.config.ReadTimeout,
		"write_timeout", s.config.WriteTimeout,
	)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed to start: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down HTTP server gracefully...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.log.Info("HTTP server stopped")
	return nil
}

// Router returns the chi router instance (useful for testing)
func (s *Server) Router() *chi.Mux {
	return s.router
}
