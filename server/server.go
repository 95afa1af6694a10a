// Package server provides HTTP server management and lifecycle handling for the drugbase API.
// It includes server setup, middleware configuration, route management, and graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/giygas/drugbase-api/config"
	"github.com/giygas/drugbase-api/interfaces"
	"github.com/giygas/drugbase-api/logging"
	"github.com/giygas/drugbase-api/metrics"
)

// Server represents the HTTP server
type Server struct {
	server      *http.Server
	router      chi.Router
	handler     interfaces.HTTPHandler
	rateLimiter *RateLimiter
	config      *config.Config
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, handler interfaces.HTTPHandler) *Server {
	router := chi.NewRouter()

	server := &Server{
		server: &http.Server{
			Handler:      router,
			Addr:         cfg.Address + ":" + cfg.Port,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		router:      router,
		handler:     handler,
		rateLimiter: NewRateLimiter(30 * time.Minute),
		config:      cfg,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// Router exposes the configured router, mainly for tests
func (s *Server) Router() http.Handler { return s.router }

// setupMiddleware configures all middleware
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(RealIPMiddleware)
	s.router.Use(metrics.Metrics)
	s.router.Use(logging.LoggingMiddleware(logging.Logger()))
	s.router.Use(middleware.RedirectSlashes)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	s.router.Use(RequestSizeMiddleware(s.config))
	s.router.Use(s.rateLimiter.Middleware)
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	h := s.handler

	s.router.Get("/", h.Home)
	s.router.Get("/Drug_Search/{id_from}/{query}", h.DrugSearch)
	s.router.Get("/Disease_Search/{id_from}/{query}", h.DiseaseSearch)
	s.router.Get("/Multi_Disease_Treatment/{id_from}", h.MultiDiseaseTreatment)
	s.router.Get("/Multi_Disease_Treatment/{id_from}/{min_diseases}", h.MultiDiseaseTreatment)
	s.router.Get("/Drug_Description/{name}", h.DrugDescription)
	s.router.Get("/health", h.HealthCheck)
	s.router.Handle("/metrics", promhttp.Handler())

	if !s.config.DevEndpoints {
		return
	}

	s.router.Route("/dev", func(r chi.Router) {
		r.Use(DevGuard(s.config.DevAPIToken))

		r.Get("/manufacturers", h.ListManufacturers)
		r.Get("/diseases", h.ListDiseases)
		r.Get("/drugs", h.ListDrugs)
		r.Get("/generics", h.ListGenerics)
		r.Get("/integrity", h.Integrity)

		r.Post("/manufacturer", h.CreateManufacturer)
		r.Post("/drug", h.CreateDrug)
		r.Post("/generic", h.CreateGeneric)
		r.Post("/disease", h.CreateDisease)
		r.Post("/treatment", h.CreateTreatment)
		r.Put("/manufacturer/{man_id}", h.RenameManufacturer)
		r.Delete("/drug/{drug_id}", h.DeleteDrug)
	})
	logging.Info("Dev endpoints enabled", "token_required", s.config.DevAPIToken != "")
}

// Start starts the server and blocks until it stops. A graceful shutdown is
// not reported as an error.
func (s *Server) Start() error {
	logging.Info(fmt.Sprintf("Starting server at: %s:%s", s.config.Address, s.config.Port))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")
	s.rateLimiter.Stop()

	if err := s.server.Shutdown(ctx); err != nil {
		logging.Error("Server forced to shutdown", "error", err)
		// If graceful shutdown fails, force close
		if err := s.server.Close(); err != nil {
			logging.Error("Server close error", "error", err)
			return err
		}
	}

	logging.Info("Server shutdown complete")
	return nil
}
