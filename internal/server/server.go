package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"apimon/internal/core"
	"apimon/internal/features/monitor"
	"apimon/internal/features/notifications"
	"apimon/internal/features/retention"
	"apimon/internal/server/handlers"
	"apimon/internal/server/services/mailer"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	config   *core.Config
	logger   *core.Logger
	registry *core.Registry
	monitor  *monitor.Feature
	router   chi.Router
	server   *http.Server
}

// New opens the store and registers every feature. Nothing runs until Start.
func New(ctx context.Context, config *core.Config, logger *core.Logger) (*Server, error) {
	store, err := monitor.OpenStore(ctx, config.Database, config.Monitor.AlertHistorySize, logger)
	if err != nil {
		return nil, err
	}

	registry := core.NewRegistry(logger)

	monitorFeature := monitor.NewFeature(logger, store, monitor.NewConfig(config))
	service := monitorFeature.Service()

	sender := mailer.New(config.Notifications.SMTP2GOAPIKey, config.Notifications.SMTP2GOSender,
		logger.ForFeature("notifications").Logger)

	features := []core.Feature{
		monitorFeature,
		retention.NewFeature(logger, service, retention.NewConfig(config)),
		notifications.NewFeature(logger, service, sender, config.Notifications),
	}
	for _, f := range features {
		if err := registry.Register(f); err != nil {
			store.Close()
			return nil, err
		}
	}

	srv := &Server{
		config:   config,
		logger:   logger,
		registry: registry,
		monitor:  monitorFeature,
	}
	srv.setupRoutes()

	return srv, nil
}

func (s *Server) setupRoutes() {
	health := handlers.NewHealthHandler(s.registry, s.monitor.Service())

	mux := chi.NewRouter()

	mux.Use(middleware.Recoverer)
	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(middleware.Logger)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.allowedOrigins(),
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         300,
	}))

	mux.Get("/health", health.HealthCheck)
	mux.Handle("/metrics", promhttp.Handler())

	for _, route := range s.registry.GetAllRoutes() {
		mux.Method(route.Method, route.Path, route.Handler)
	}

	s.router = mux
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (s *Server) allowedOrigins() []string {
	if len(s.config.Server.AllowedOrigins) == 0 {
		return []string{"*"}
	}
	return s.config.Server.AllowedOrigins
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Init starts every enabled feature and loads the seed file into an empty store
func (s *Server) Init(ctx context.Context) error {
	if err := s.registry.InitAll(ctx); err != nil {
		return err
	}

	if path := s.config.Monitor.SeedFile; path != "" {
		if err := s.seedEndpoints(ctx, path); err != nil {
			return err
		}
	}
	return nil
}

// Start initializes the features and serves until ctx is cancelled, then
// shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	if err := s.Init(ctx); err != nil {
		s.logger.Error("Failed to initialize features", "error", err)
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", "host", s.config.Server.Host, "port", s.config.Server.Port)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			s.registry.ShutdownAll(context.Background())
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Error("Failed to shutdown HTTP server", "error", err)
	}

	// Shutdown all features
	if err := s.registry.ShutdownAll(ctx); err != nil {
		return fmt.Errorf("failed to shutdown features: %w", err)
	}

	return nil
}
