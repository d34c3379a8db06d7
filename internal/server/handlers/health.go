package handlers

import (
	"net/http"

	"apimon/internal/core"
	"apimon/internal/features/monitor/models"
)

// Version is reported by the health check
var Version = "1.0.0"

// StatusProvider reports the monitoring engine state
type StatusProvider interface {
	Status() models.EngineStatus
}

type HealthHandler struct {
	registry *core.Registry
	engine   StatusProvider
}

func NewHealthHandler(registry *core.Registry, engine StatusProvider) *HealthHandler {
	return &HealthHandler{
		registry: registry,
		engine:   engine,
	}
}

// HealthCheck reports ok while the engine is running
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := h.engine.Status()

	code := http.StatusOK
	state := "ok"
	if !status.Running {
		code = http.StatusServiceUnavailable
		state = "starting"
	}

	core.WriteJSON(w, code, map[string]any{
		"status":    state,
		"service":   "apimon",
		"version":   Version,
		"endpoints": status.Count,
		"features":  h.registry.GetFeatureStatus(),
	})
}
