package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"apimon/internal/core"
	"apimon/internal/features/monitor/alerts"
	"apimon/internal/features/monitor/database"
	"apimon/internal/features/monitor/fanout"
	"apimon/internal/features/monitor/metrics"
	"apimon/internal/features/monitor/models"
	"apimon/internal/features/monitor/probe"
	"apimon/internal/features/monitor/scheduler"
	prom "apimon/internal/metrics"

	"github.com/google/uuid"
)

// Service is the monitoring engine. It owns the registry of scheduled
// checks and routes every result through metrics, alerting, persistence and
// the live event hub.
type Service struct {
	config     *Config
	logger     *core.Logger
	store      database.Store
	registry   *scheduler.Registry
	aggregator *metrics.Aggregator
	alerts     *alerts.Engine
	hub        *fanout.Hub
	now        func() time.Time

	// mu serializes add, update and remove
	mu        sync.Mutex
	running   bool
	startedAt time.Time
}

// NewService creates a new monitoring engine
func NewService(config *Config, store database.Store, prober probe.Prober, logger *core.Logger) *Service {
	if config.StoreTimeout <= 0 {
		config.StoreTimeout = 5 * time.Second
	}
	s := &Service{
		config:     config,
		logger:     logger,
		store:      store,
		aggregator: metrics.NewAggregator(config.HistorySize, config.RetainedResults),
		alerts: alerts.NewEngine(alerts.Config{
			SlowThresholdMs:    config.SlowThresholdMs,
			ErrorRateThreshold: config.ErrorRateThreshold,
			HistorySize:        config.AlertHistorySize,
		}),
		now: time.Now,
	}
	s.registry = scheduler.NewRegistry(prober, scheduler.SinkFunc(s.HandleResult), logger.Logger)
	s.hub = fanout.NewHub(config.SubscriberBuffer, s.Snapshot, logger.Logger)
	return s
}

// Start loads persisted endpoints, restores their recent history and alert
// state, and schedules them
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	endpoints, err := s.store.ListEndpoints(ctx)
	if err != nil {
		return core.NewDatabaseError("failed to load endpoints", err)
	}

	stored, err := s.store.ListAlerts(ctx, s.config.AlertHistorySize)
	if err != nil {
		s.storeFailed("list_alerts", err)
	} else {
		s.alerts.Restore(stored)
	}

	since := s.now().Add(-time.Duration(s.config.StatusWindowHours * float64(time.Hour)))
	restored := 0
	for _, endpoint := range endpoints {
		if err := endpoint.Validate(); err != nil {
			s.logger.Warn("Skipping invalid stored endpoint", "endpoint_id", endpoint.ID, "error", err)
			continue
		}

		s.aggregator.Track(endpoint.ID)
		results, err := s.store.QueryCheckResults(ctx, endpoint.ID, since)
		if err != nil {
			s.storeFailed("query_checks", err, "endpoint_id", endpoint.ID)
		} else {
			s.aggregator.Seed(endpoint.ID, results)
		}

		if err := s.registry.Register(endpoint); err != nil {
			s.aggregator.Forget(endpoint.ID)
			return core.NewInternalError("failed to schedule endpoint "+endpoint.ID, err)
		}
		restored++
	}

	s.running = true
	s.startedAt = s.now()
	prom.ActiveEndpoints.Set(float64(s.registry.Len()))

	s.logger.Info("Monitor started", "endpoints", restored, "alerts", len(stored))
	return nil
}

// Stop cancels every scheduled check and disconnects all subscribers
func (s *Service) Stop() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.registry.StopAll()
	s.hub.Close()
	prom.ActiveEndpoints.Set(0)
	s.logger.Info("Monitor stopped")
}

// AddEndpoint validates a new definition, persists it and starts checking it
func (s *Service) AddEndpoint(ctx context.Context, input models.EndpointCreate) (models.Endpoint, error) {
	endpoint := input.ToEndpoint(uuid.NewString(), s.now(), s.defaults())
	if err := endpoint.Validate(); err != nil {
		return models.Endpoint{}, core.NewValidationError(err.Error(), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.persist("upsert_endpoint", endpoint.ID, func(ctx context.Context) error {
		return s.store.UpsertEndpoint(ctx, endpoint)
	})

	s.aggregator.Track(endpoint.ID)
	s.publish(models.EventEndpointAdded, endpoint.ID, s.status(endpoint))

	if err := s.registry.Register(endpoint); err != nil {
		s.aggregator.Forget(endpoint.ID)
		return models.Endpoint{}, core.NewInternalError("failed to schedule endpoint", err)
	}
	prom.ActiveEndpoints.Set(float64(s.registry.Len()))

	s.logger.WithEndpoint(endpoint.ID, endpoint.URL).Info("Endpoint added",
		"name", endpoint.Name, "interval_ms", endpoint.IntervalMs)
	return endpoint, nil
}

// UpdateEndpoint applies a partial update and reschedules the endpoint.
// The old schedule is gone before the new one fires.
func (s *Service) UpdateEndpoint(ctx context.Context, id string, update models.EndpointUpdate) (models.Endpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.registry.Get(id)
	if !ok {
		return models.Endpoint{}, core.NewNotFoundError("endpoint not found", models.ErrEndpointNotFound)
	}

	updated := update.Apply(current, s.now())
	if err := updated.Validate(); err != nil {
		return models.Endpoint{}, core.NewValidationError(err.Error(), err)
	}

	s.persist("upsert_endpoint", id, func(ctx context.Context) error {
		return s.store.UpsertEndpoint(ctx, updated)
	})

	if err := s.registry.Register(updated); err != nil {
		return models.Endpoint{}, core.NewInternalError("failed to reschedule endpoint", err)
	}
	s.publish(models.EventStatusUpdate, id, s.status(updated))

	s.logger.WithEndpoint(id, updated.URL).Info("Endpoint updated", "interval_ms", updated.IntervalMs)
	return updated, nil
}

// RemoveEndpoint stops checking an endpoint and drops its state. No result
// for it is delivered after this returns.
func (s *Service) RemoveEndpoint(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.registry.Unregister(id) {
		return core.NewNotFoundError("endpoint not found", models.ErrEndpointNotFound)
	}
	s.aggregator.Forget(id)
	s.alerts.Forget(id)
	prom.ActiveEndpoints.Set(float64(s.registry.Len()))

	s.persist("delete_endpoint", id, func(ctx context.Context) error {
		err := s.store.DeleteEndpoint(ctx, id)
		if errors.Is(err, models.ErrEndpointNotFound) {
			return nil
		}
		return err
	})

	s.publish(models.EventEndpointRemoved, id, map[string]string{"id": id})
	s.logger.Info("Endpoint removed", "endpoint_id", id)
	return nil
}

// GetEndpoint returns one endpoint with its current metrics
func (s *Service) GetEndpoint(id string) (models.EndpointStatus, error) {
	endpoint, ok := s.registry.Get(id)
	if !ok {
		return models.EndpointStatus{}, core.NewNotFoundError("endpoint not found", models.ErrEndpointNotFound)
	}
	return s.status(endpoint), nil
}

// ListEndpoints returns every monitored endpoint with its current metrics
func (s *Service) ListEndpoints() []models.EndpointStatus {
	endpoints := s.registry.List()
	statuses := make([]models.EndpointStatus, 0, len(endpoints))
	for _, endpoint := range endpoints {
		statuses = append(statuses, s.status(endpoint))
	}
	return statuses
}

// CheckNow runs an immediate check outside the schedule
func (s *Service) CheckNow(id string) (models.CheckResult, error) {
	result, err := s.registry.TriggerNow(id)
	if errors.Is(err, models.ErrEndpointNotFound) {
		return models.CheckResult{}, core.NewNotFoundError("endpoint not found", err)
	}
	if err != nil {
		return models.CheckResult{}, core.NewInternalError("check failed", err)
	}
	return result, nil
}

// GetMetrics computes metrics over the given window. A window of zero or
// less covers every retained result.
func (s *Service) GetMetrics(id string, windowHours float64) (models.EndpointMetrics, error) {
	m, ok := s.aggregator.MetricsFor(id, windowHours)
	if !ok {
		return models.EndpointMetrics{}, core.NewNotFoundError("endpoint not found", models.ErrEndpointNotFound)
	}
	return m, nil
}

// GetFleetStats summarizes every active endpoint
func (s *Service) GetFleetStats() models.FleetStats {
	return s.aggregator.FleetStats(s.registry.ListActive(), s.config.StatusWindowHours)
}

// GetHistory returns up to limit recent results, oldest first
func (s *Service) GetHistory(id string, limit int) ([]models.CheckResult, error) {
	history, ok := s.aggregator.History(id, limit)
	if !ok {
		return nil, core.NewNotFoundError("endpoint not found", models.ErrEndpointNotFound)
	}
	return history, nil
}

// GetAlerts returns the alert history, newest first
func (s *Service) GetAlerts() []models.Alert {
	return s.alerts.List()
}

// GetGroupedAlerts returns the alert history with repeats collapsed
func (s *Service) GetGroupedAlerts() []models.GroupedAlert {
	return alerts.Group(s.alerts.List())
}

// AcknowledgeAlert marks an alert as acknowledged
func (s *Service) AcknowledgeAlert(ctx context.Context, id string) (models.Alert, error) {
	alert, err := s.alerts.Acknowledge(id)
	if err != nil {
		return models.Alert{}, core.NewNotFoundError("alert not found", err)
	}

	s.persist("ack_alert", alert.EndpointID, func(ctx context.Context) error {
		err := s.store.AcknowledgeAlert(ctx, id)
		if errors.Is(err, models.ErrAlertNotFound) {
			return nil
		}
		return err
	})
	return alert, nil
}

// Status reports the engine state
func (s *Service) Status() models.EngineStatus {
	s.mu.Lock()
	running, startedAt := s.running, s.startedAt
	s.mu.Unlock()

	active := s.registry.ListActive()
	return models.EngineStatus{
		Running:     running,
		Active:      active,
		Count:       len(active),
		Subscribers: s.hub.Len(),
		StartedAt:   startedAt,
	}
}

// Snapshot builds the full current state for a new subscriber
func (s *Service) Snapshot() models.Snapshot {
	statuses := s.ListEndpoints()
	snapshot := models.Snapshot{
		Endpoints: statuses,
		History:   make([]models.EndpointHistory, 0, len(statuses)),
		Stats:     s.GetFleetStats(),
	}
	for _, st := range statuses {
		points, ok := s.aggregator.History(st.Endpoint.ID, s.config.SnapshotHistoryPoints)
		if !ok {
			continue
		}
		snapshot.History = append(snapshot.History, models.EndpointHistory{
			EndpointID: st.Endpoint.ID,
			Points:     points,
		})
	}
	return snapshot
}

// Subscribe registers a live event listener
func (s *Service) Subscribe() *fanout.Subscription {
	return s.hub.Subscribe()
}

// Unsubscribe removes a live event listener
func (s *Service) Unsubscribe(sub *fanout.Subscription) {
	s.hub.Unsubscribe(sub)
}

// Purge drops check results older than days from memory and the store
func (s *Service) Purge(ctx context.Context, days int) (models.PurgeResult, error) {
	if days <= 0 {
		return models.PurgeResult{}, core.NewValidationError("retention days must be positive", nil)
	}

	result := models.PurgeResult{
		Days:          days,
		MemoryRemoved: s.aggregator.PurgeOlderThan(days),
	}

	cutoff := s.now().Add(-time.Duration(days) * 24 * time.Hour)
	removed, err := s.store.PurgeCheckResults(ctx, cutoff)
	if err != nil {
		s.storeFailed("purge_checks", err)
		return result, core.NewDatabaseError("failed to purge stored check results", err)
	}
	result.StoreRemoved = removed

	prom.PurgedResults.Add(float64(result.MemoryRemoved))
	return result, nil
}

// HandleResult is the registry's result sink. It runs once per completed
// check, never concurrently for the same endpoint.
func (s *Service) HandleResult(endpoint models.Endpoint, result models.CheckResult) {
	if !s.aggregator.Record(result) {
		return
	}
	prom.ObserveCheck(string(result.Outcome), result.LatencyMs)

	m, _ := s.aggregator.MetricsFor(endpoint.ID, s.config.StatusWindowHours)
	alert, fired := s.alerts.Evaluate(alerts.Evaluation{
		Endpoint:  endpoint,
		Result:    result,
		Status:    m.Status,
		ErrorRate: s.aggregator.RecentErrorRate(endpoint.ID, s.config.ErrorRateSampleSize),
	})

	if !result.Succeeded() {
		s.logger.WithEndpoint(endpoint.ID, endpoint.URL).Warn("Check failed",
			"outcome", result.Outcome, "latency_ms", result.LatencyMs, "error", result.Error)
	}

	s.persist("append_check", endpoint.ID, func(ctx context.Context) error {
		return s.store.AppendCheckResult(ctx, result)
	})

	s.publish(models.EventHistoryPoint, endpoint.ID, result)
	s.publish(models.EventStatusUpdate, endpoint.ID, models.EndpointStatus{
		Endpoint:   endpoint,
		Metrics:    m,
		Lifetime:   s.aggregator.Lifetime(endpoint.ID),
		LastResult: &result,
	})

	if !fired {
		return
	}
	prom.AlertsTotal.WithLabelValues(string(alert.Kind), string(alert.Severity)).Inc()
	s.persist("insert_alert", endpoint.ID, func(ctx context.Context) error {
		return s.store.InsertAlert(ctx, alert)
	})
	s.publish(models.EventAlert, endpoint.ID, alert)
	s.logger.Info("Alert raised", "endpoint_id", endpoint.ID, "kind", alert.Kind, "severity", alert.Severity)
}

func (s *Service) status(endpoint models.Endpoint) models.EndpointStatus {
	st := models.EndpointStatus{
		Endpoint: endpoint,
		Lifetime: s.aggregator.Lifetime(endpoint.ID),
	}
	st.Metrics, _ = s.aggregator.MetricsFor(endpoint.ID, s.config.StatusWindowHours)
	if last, ok := s.aggregator.Latest(endpoint.ID); ok {
		st.LastResult = &last
	}
	return st
}

func (s *Service) defaults() models.Defaults {
	return models.Defaults{
		Timeout:  s.config.DefaultTimeout,
		Interval: s.config.DefaultInterval,
	}
}

func (s *Service) publish(eventType models.EventType, endpointID string, payload any) {
	s.hub.Publish(models.Event{
		Type:       eventType,
		EndpointID: endpointID,
		Payload:    payload,
		Timestamp:  s.now(),
	})
}

// persist runs a store write with its own deadline. Failures are logged and
// counted but never undo in-memory state.
func (s *Service) persist(operation, endpointID string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.StoreTimeout)
	defer cancel()

	if err := fn(ctx); err != nil {
		s.storeFailed(operation, err, "endpoint_id", endpointID)
	}
}

func (s *Service) storeFailed(operation string, err error, attrs ...any) {
	prom.StoreErrors.WithLabelValues(operation).Inc()
	attrs = append(attrs, "operation", operation, "error", err)
	s.logger.Error(fmt.Sprintf("Store %s failed", operation), attrs...)
}
