package monitor

import (
	"context"
	"net/http"

	"apimon/internal/core"
	"apimon/internal/features/monitor/database"
	"apimon/internal/features/monitor/handlers"
	"apimon/internal/features/monitor/probe"
)

// Feature is the API monitoring engine and its HTTP surface
type Feature struct {
	*core.BaseFeature
	config  *Config
	store   database.Store
	service *Service
	api     *handlers.APIHandler
	ws      *handlers.WSHandler
}

// NewFeature creates the monitor feature on an opened store
func NewFeature(logger *core.Logger, store database.Store, config *Config) *Feature {
	base := core.NewBaseFeature("monitor", "Real-time API endpoint monitoring", true, logger)
	featureLogger := base.Logger()

	prober := probe.NewHTTPProber(nil, config.UserAgent)
	service := NewService(config, store, prober, featureLogger)

	return &Feature{
		BaseFeature: base,
		config:      config,
		store:       store,
		service:     service,
		api:         handlers.NewAPIHandler(featureLogger.Logger, service),
		ws:          handlers.NewWSHandler(featureLogger.Logger, service, config.AllowedOrigins),
	}
}

// Service returns the engine
func (f *Feature) Service() *Service {
	return f.service
}

// Init validates configuration and starts monitoring the stored endpoints
func (f *Feature) Init(ctx context.Context) error {
	if err := f.BaseFeature.Init(ctx); err != nil {
		return err
	}

	if err := f.config.Validate(); err != nil {
		return core.NewFeatureError(f.Name(), "invalid configuration", err)
	}

	if err := f.service.Start(ctx); err != nil {
		return err
	}

	f.Logger().Info("Monitor feature initialized", "endpoints", f.service.Status().Count)
	return nil
}

// Routes returns the HTTP routes for the monitor feature
func (f *Feature) Routes() []core.Route {
	return []core.Route{
		{Method: http.MethodGet, Path: "/api/endpoints", Handler: f.api.ListEndpoints},
		{Method: http.MethodPost, Path: "/api/endpoints", Handler: f.api.CreateEndpoint},
		{Method: http.MethodGet, Path: "/api/endpoints/{id}", Handler: f.api.GetEndpoint},
		{Method: http.MethodPut, Path: "/api/endpoints/{id}", Handler: f.api.UpdateEndpoint},
		{Method: http.MethodDelete, Path: "/api/endpoints/{id}", Handler: f.api.DeleteEndpoint},
		{Method: http.MethodPost, Path: "/api/endpoints/{id}/check", Handler: f.api.CheckEndpoint},
		{Method: http.MethodGet, Path: "/api/endpoints/{id}/history", Handler: f.api.GetHistory},
		{Method: http.MethodGet, Path: "/api/metrics/{id}", Handler: f.api.GetMetrics},
		{Method: http.MethodGet, Path: "/api/dashboard/stats", Handler: f.api.GetDashboardStats},
		{Method: http.MethodGet, Path: "/api/alerts", Handler: f.api.ListAlerts},
		{Method: http.MethodPost, Path: "/api/alerts/{id}/ack", Handler: f.api.AcknowledgeAlert},
		{Method: http.MethodGet, Path: "/api/monitor/status", Handler: f.api.GetStatus},
		{Method: http.MethodGet, Path: "/ws", Handler: f.ws.Connect},
	}
}

// Shutdown stops all checks and closes the store
func (f *Feature) Shutdown(ctx context.Context) error {
	f.Logger().Info("Shutting down monitor feature")
	f.service.Stop()
	if err := f.store.Close(); err != nil {
		f.Logger().Error("Failed to close store", "error", err)
	}
	return f.BaseFeature.Shutdown(ctx)
}
