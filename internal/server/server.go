// internal/server/server.go

package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/nats-io/nats.go"

	"legisdash/internal/config"
	"legisdash/internal/logging"
	"legisdash/internal/metrics"
	"legisdash/internal/server/handlers"
	"legisdash/internal/service/dashboard"
)

// Server represents the HTTP server
type Server struct {
	server *http.Server
	router *chi.Mux
}

// Deps are the services the router exposes
type Deps struct {
	Dashboard      *dashboard.Service
	Metrics        *metrics.Collector
	NATS           *nats.Conn
	EventsSubject  string
	MaxUploadBytes int64
	Log            logging.Logger
}

// NewRouter builds the HTTP routes
func NewRouter(cfg config.ServerConfig, deps Deps) *chi.Mux {
	router := chi.NewRouter()

	// Middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(deps.Metrics.Middleware)

	// CORS configuration
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CorsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	datasetHandler := handlers.NewDatasetHandler(deps.Dashboard, deps.MaxUploadBytes, deps.Log)

	router.Handle("/metrics", deps.Metrics.Handler())

	// Routes
	router.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(cfg.RequestTimeout))

		// Health check
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		})

		r.Route("/v1/datasets", func(r chi.Router) {
			r.Get("/", datasetHandler.ListDatasets)
			r.Post("/", datasetHandler.Upload)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", datasetHandler.GetDataset)
				r.Get("/records", datasetHandler.GetRecords)
				r.Get("/options", datasetHandler.GetOptions)
				r.Get("/top", datasetHandler.GetTop)
				r.Get("/charts", datasetHandler.GetCharts)
				r.Get("/export.csv", datasetHandler.Export)
				r.Post("/refresh-followers", datasetHandler.RefreshFollowers)
			})
		})
	})

	// WebSocket endpoint for dataset events
	router.Get("/ws/datasets", handlers.DatasetEventsHandler(deps.NATS, deps.EventsSubject, deps.Log))

	return router
}

// NewServer creates a new HTTP server
func NewServer(cfg config.ServerConfig, deps Deps) *Server {
	router := NewRouter(cfg, deps)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &Server{
		server: httpServer,
		router: router,
	}
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
