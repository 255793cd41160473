// Package api exposes the dashboard HTTP surface: returns browsing,
// analytics, exports, sync control and email shares.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/uptimeops/warehance-returns-backend/internal/api/handlers"
	"github.com/uptimeops/warehance-returns-backend/internal/api/middleware"
	"github.com/uptimeops/warehance-returns-backend/internal/emailshare"
	"github.com/uptimeops/warehance-returns-backend/internal/infrastructure/storage"
	"github.com/uptimeops/warehance-returns-backend/internal/metrics"
	syncsvc "github.com/uptimeops/warehance-returns-backend/internal/sync"
)

// Config holds API server configuration.
type Config struct {
	Port           int
	AllowedOrigins []string
}

// DefaultConfig returns sensible defaults for the API server.
func DefaultConfig() Config {
	return Config{
		Port:           8080,
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
	}
}

// Server is the HTTP API server.
type Server struct {
	config      Config
	router      chi.Router
	httpServer  *http.Server
	logger      *slog.Logger
	storage     *storage.Storage
	syncService *syncsvc.Service
	shares      *emailshare.Service
}

// NewServer creates a new API server.
// If syncService is nil, sync endpoints are not registered; the same
// goes for shares and the email share endpoints.
func NewServer(cfg Config, store *storage.Storage, syncService *syncsvc.Service, shares *emailshare.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config:      cfg,
		router:      chi.NewRouter(),
		logger:      logger,
		storage:     store,
		syncService: syncService,
		shares:      shares,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	corsConfig := middleware.CORSConfig{
		AllowedOrigins: s.config.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}
	s.router.Use(middleware.CORS(corsConfig))
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logging(s.logger))
	s.router.Use(metrics.Middleware)
}

func (s *Server) setupRoutes() {
	// No /api prefix on these two: load balancers and scrapers hit
	// them directly.
	healthHandler := handlers.NewHealthHandler()
	s.router.Get("/health", healthHandler.ServeHTTP)
	s.router.Method(http.MethodGet, "/metrics", metrics.Handler())

	s.router.Route("/api", func(r chi.Router) {
		returnsHandler := handlers.NewReturnsHandler(s.storage)
		r.Get("/returns", returnsHandler.List)
		r.Get("/returns/{id}", returnsHandler.Get)
		r.Get("/clients", returnsHandler.ListClients)
		r.Get("/warehouses", returnsHandler.ListWarehouses)

		ordersHandler := handlers.NewOrdersHandler(s.storage)
		r.Get("/orders/{id}", ordersHandler.Get)

		statsHandler := handlers.NewStatsHandler(s.storage)
		r.Get("/stats", statsHandler.Dashboard)
		r.Get("/analytics/return-reasons", statsHandler.ReturnReasons)
		r.Get("/analytics/top-products", statsHandler.TopProducts)

		exportsHandler := handlers.NewExportsHandler(s.storage)
		r.Get("/export/csv", exportsHandler.CSV)
		r.Get("/export/xlsx", exportsHandler.XLSX)

		if s.syncService != nil {
			syncHandler := handlers.NewSyncHandler(s.storage, s.syncService)
			r.Post("/sync", syncHandler.Trigger)
			r.Get("/sync/status", syncHandler.Status)
			r.Get("/sync/runs", syncHandler.ListRuns)
			r.Get("/sync/runs/{id}", syncHandler.GetRun)
		}

		if s.shares != nil {
			sharesHandler := handlers.NewSharesHandler(s.storage, s.shares)
			r.Post("/email-shares", sharesHandler.Create)
			r.Get("/email-shares", sharesHandler.List)
		}
	})
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting API server", "addr", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")

	if s.httpServer == nil {
		return nil
	}

	return s.httpServer.Shutdown(ctx)
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}
