package retention

import (
	"context"
	"net/http"

	"apimon/internal/core"
)

// Feature periodically drops old check results
type Feature struct {
	*core.BaseFeature
	logger *core.Logger
	config *Config
	job    *Job
}

// NewFeature creates the retention feature
func NewFeature(logger *core.Logger, purger Purger, config *Config) *Feature {
	base := core.NewBaseFeature("retention", "Scheduled purge of old check results", config.Enabled, logger)
	return &Feature{
		BaseFeature: base,
		logger:      logger,
		config:      config,
		job:         NewJob(purger, config, base.Logger().Logger),
	}
}

// Init validates configuration and schedules the job
func (f *Feature) Init(ctx context.Context) error {
	if err := f.BaseFeature.Init(ctx); err != nil {
		return err
	}

	if err := f.config.Validate(); err != nil {
		return core.NewFeatureError(f.Name(), "invalid configuration", err)
	}

	if err := f.job.Start(); err != nil {
		return core.NewFeatureError(f.Name(), "failed to schedule purge", err)
	}
	return nil
}

// Routes returns the HTTP routes for the retention feature
func (f *Feature) Routes() []core.Route {
	return []core.Route{
		{Method: http.MethodGet, Path: "/api/retention", Handler: f.handleStatus},
		{Method: http.MethodPost, Path: "/api/retention/run", Handler: f.handleRun},
	}
}

// Shutdown stops the schedule
func (f *Feature) Shutdown(ctx context.Context) error {
	f.job.Stop()
	return f.BaseFeature.Shutdown(ctx)
}

func (f *Feature) handleStatus(w http.ResponseWriter, r *http.Request) {
	core.WriteJSON(w, http.StatusOK, f.job.Status())
}

func (f *Feature) handleRun(w http.ResponseWriter, r *http.Request) {
	result, err := f.job.Run(r.Context())
	if err != nil {
		f.logger.LogFeatureError(f.Name(), "Manual purge failed", err, "remote", r.RemoteAddr)
		core.HandleError(w, err)
		return
	}
	f.logger.LogFeatureEvent(f.Name(), "manual_purge", "remote", r.RemoteAddr, "store_removed", result.StoreRemoved)
	core.WriteJSON(w, http.StatusOK, result)
}
