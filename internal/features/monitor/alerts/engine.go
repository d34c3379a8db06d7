package alerts

import (
	"fmt"
	"sync"
	"time"

	"apimon/internal/features/monitor/models"

	"github.com/google/uuid"
)

// Config holds the alert thresholds
type Config struct {
	SlowThresholdMs    int64
	ErrorRateThreshold float64
	HistorySize        int
}

// Evaluation is one fresh result plus the endpoint's just-updated state
type Evaluation struct {
	Endpoint  models.Endpoint
	Result    models.CheckResult
	Status    models.Status
	ErrorRate float64
}

// Engine applies threshold rules to check results and keeps a capped alert
// history, newest first
type Engine struct {
	mu     sync.RWMutex
	cfg    Config
	alerts []models.Alert
	prev   map[string]models.Status
	now    func() time.Time
}

// NewEngine creates an alert engine
func NewEngine(cfg Config) *Engine {
	if cfg.HistorySize < 1 {
		cfg.HistorySize = 100
	}
	return &Engine{
		cfg:  cfg,
		prev: make(map[string]models.Status),
		now:  time.Now,
	}
}

// Evaluate checks the rules in priority order (down, slow response, high
// error rate, recovered) and emits at most one alert
func (e *Engine) Evaluate(ev Evaluation) (models.Alert, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	prev, seen := e.prev[ev.Endpoint.ID]
	e.prev[ev.Endpoint.ID] = ev.Status

	kind, severity, message, ok := e.match(ev, prev, seen)
	if !ok {
		return models.Alert{}, false
	}

	alert := models.Alert{
		ID:           uuid.NewString(),
		EndpointID:   ev.Endpoint.ID,
		EndpointName: ev.Endpoint.Name,
		Kind:         kind,
		Severity:     severity,
		Message:      message,
		Timestamp:    ev.Result.Timestamp,
	}
	if alert.Timestamp.IsZero() {
		alert.Timestamp = e.now()
	}

	e.alerts = append([]models.Alert{alert}, e.alerts...)
	if len(e.alerts) > e.cfg.HistorySize {
		e.alerts = e.alerts[:e.cfg.HistorySize]
	}
	return alert, true
}

func (e *Engine) match(ev Evaluation, prev models.Status, seen bool) (models.AlertKind, models.Severity, string, bool) {
	name := ev.Endpoint.Name
	r := ev.Result

	switch {
	case !r.Succeeded() && (r.Outcome == models.OutcomeTimeout || ev.Status == models.StatusOffline):
		return models.AlertDown, models.SeverityCritical, name + " is DOWN", true
	case r.LatencyMs > e.cfg.SlowThresholdMs && ev.Status != models.StatusOffline:
		return models.AlertSlowResponse, models.SeverityWarning, fmt.Sprintf("%s slow: %dms", name, r.LatencyMs), true
	case ev.ErrorRate > e.cfg.ErrorRateThreshold:
		return models.AlertHighErrorRate, models.SeverityWarning, fmt.Sprintf("%s error rate: %.1f%%", name, ev.ErrorRate), true
	case seen && ev.Status == models.StatusOnline && (prev == models.StatusOffline || prev == models.StatusDegraded):
		return models.AlertRecovered, models.SeverityInfo, name + " recovered", true
	}
	return "", "", "", false
}

// List returns the alert history, newest first
func (e *Engine) List() []models.Alert {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]models.Alert, len(e.alerts))
	copy(out, e.alerts)
	return out
}

// Restore replaces the history with previously stored alerts, newest first
func (e *Engine) Restore(alerts []models.Alert) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(alerts) > e.cfg.HistorySize {
		alerts = alerts[:e.cfg.HistorySize]
	}
	e.alerts = make([]models.Alert, len(alerts))
	copy(e.alerts, alerts)
}

// Acknowledge sets the acknowledged flag on one alert
func (e *Engine) Acknowledge(id string) (models.Alert, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range e.alerts {
		if e.alerts[i].ID == id {
			e.alerts[i].Acknowledged = true
			return e.alerts[i], nil
		}
	}
	return models.Alert{}, models.ErrAlertNotFound
}

// Forget drops the transition state for an endpoint. Its past alerts stay
// in the history.
func (e *Engine) Forget(endpointID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.prev, endpointID)
}
