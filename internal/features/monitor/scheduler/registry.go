package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"apimon/internal/features/monitor/models"
	"apimon/internal/features/monitor/probe"

	"github.com/google/uuid"
)

// ResultSink receives every check result produced by a registered endpoint.
// HandleResult must not register or unregister endpoints.
type ResultSink interface {
	HandleResult(endpoint models.Endpoint, result models.CheckResult)
}

// SinkFunc adapts a function to ResultSink
type SinkFunc func(endpoint models.Endpoint, result models.CheckResult)

func (f SinkFunc) HandleResult(endpoint models.Endpoint, result models.CheckResult) {
	f(endpoint, result)
}

// Registry owns the set of watched endpoints and one recurring task per endpoint
type Registry struct {
	prober probe.Prober
	sink   ResultSink
	logger *slog.Logger

	// ctx bounds probe calls. It outlives individual tasks so unregistering
	// an endpoint lets an in-flight probe finish on its own timeout.
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	tasks  map[string]*task
	closed bool
	wg     sync.WaitGroup
}

type task struct {
	endpoint models.Endpoint
	ctx      context.Context
	cancel   context.CancelFunc

	// flight serializes probes for this endpoint
	flight sync.Mutex

	mu      sync.Mutex
	stopped bool
}

// NewRegistry creates an empty registry
func NewRegistry(prober probe.Prober, sink ResultSink, logger *slog.Logger) *Registry {
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		prober: prober,
		sink:   sink,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		tasks:  make(map[string]*task),
	}
}

// Register starts recurring checks for the endpoint. An existing task for the
// same id is stopped before the new one starts, so at most one task per id is
// ever active. The first check fires immediately.
func (r *Registry) Register(endpoint models.Endpoint) error {
	if endpoint.Interval() <= 0 {
		return fmt.Errorf("endpoint %s: check interval must be positive", endpoint.ID)
	}

	ctx, cancel := context.WithCancel(r.ctx)
	t := &task{endpoint: endpoint.Clone(), ctx: ctx, cancel: cancel}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		cancel()
		return fmt.Errorf("registry is stopped")
	}
	old := r.tasks[endpoint.ID]
	r.tasks[endpoint.ID] = t
	r.wg.Add(1)
	r.mu.Unlock()

	if old != nil {
		old.stop()
		r.logger.Debug("Replaced monitor task", "endpoint_id", endpoint.ID)
	}

	go r.loop(t)

	r.logger.Info("Registered endpoint", "endpoint_id", endpoint.ID, "url", endpoint.URL, "interval", endpoint.Interval())
	return nil
}

// Unregister stops the recurring task for id. Once it returns no further
// check for id starts and no result from an in-flight check is delivered.
// It reports whether the id was registered.
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	t, ok := r.tasks[id]
	delete(r.tasks, id)
	r.mu.Unlock()

	if !ok {
		return false
	}
	t.stop()
	r.logger.Info("Unregistered endpoint", "endpoint_id", id)
	return true
}

// TriggerNow runs one out-of-band check without disturbing the schedule. It
// waits for any check already running for the endpoint.
func (r *Registry) TriggerNow(id string) (models.CheckResult, error) {
	r.mu.Lock()
	t, ok := r.tasks[id]
	r.mu.Unlock()

	if !ok {
		return models.CheckResult{}, models.ErrEndpointNotFound
	}
	result, ran := r.runCheck(t)
	if !ran {
		return models.CheckResult{}, models.ErrEndpointNotFound
	}
	return result, nil
}

// Get returns the registered definition for id
func (r *Registry) Get(id string) (models.Endpoint, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok {
		return models.Endpoint{}, false
	}
	return t.endpoint.Clone(), true
}

// List returns every registered definition ordered by creation time
func (r *Registry) List() []models.Endpoint {
	r.mu.Lock()
	endpoints := make([]models.Endpoint, 0, len(r.tasks))
	for _, t := range r.tasks {
		endpoints = append(endpoints, t.endpoint.Clone())
	}
	r.mu.Unlock()

	sort.Slice(endpoints, func(i, j int) bool {
		if endpoints[i].CreatedAt.Equal(endpoints[j].CreatedAt) {
			return endpoints[i].ID < endpoints[j].ID
		}
		return endpoints[i].CreatedAt.Before(endpoints[j].CreatedAt)
	})
	return endpoints
}

// ListActive returns the ids of all registered endpoints, sorted
func (r *Registry) ListActive() []string {
	r.mu.Lock()
	ids := make([]string, 0, len(r.tasks))
	for id := range r.tasks {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	sort.Strings(ids)
	return ids
}

// Len returns the number of registered endpoints
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

// StopAll stops every task, aborts in-flight probes and waits for the task
// goroutines to exit. The registry rejects registrations afterwards.
func (r *Registry) StopAll() {
	r.mu.Lock()
	r.closed = true
	tasks := r.tasks
	r.tasks = make(map[string]*task)
	r.mu.Unlock()

	for _, t := range tasks {
		t.stop()
	}
	r.cancel()
	r.wg.Wait()
	r.logger.Info("Monitor registry stopped", "endpoints", len(tasks))
}

func (r *Registry) loop(t *task) {
	defer r.wg.Done()

	r.runCheck(t)

	ticker := time.NewTicker(t.endpoint.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-t.ctx.Done():
			return
		case <-ticker.C:
			r.runCheck(t)
		}
	}
}

// runCheck probes once and delivers the result unless the task was stopped
// while the probe was in flight.
func (r *Registry) runCheck(t *task) (models.CheckResult, bool) {
	t.flight.Lock()
	defer t.flight.Unlock()

	if t.isStopped() {
		return models.CheckResult{}, false
	}

	result := r.execute(t.endpoint)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		r.logger.Debug("Discarded result for unregistered endpoint", "endpoint_id", t.endpoint.ID)
		return result, false
	}
	r.sink.HandleResult(t.endpoint, result)
	return result, true
}

func (r *Registry) execute(endpoint models.Endpoint) (result models.CheckResult) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Probe panicked", "endpoint_id", endpoint.ID, "panic", rec)
			result = models.CheckResult{
				ID:         uuid.NewString(),
				EndpointID: endpoint.ID,
				Timestamp:  time.Now(),
				Outcome:    models.OutcomeError,
				Error:      fmt.Sprintf("probe failed: %v", rec),
			}
		}
	}()
	return r.prober.Execute(r.ctx, endpoint)
}

func (t *task) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// stop marks the task stopped and cancels its schedule. It blocks only while
// a result for this endpoint is being delivered.
func (t *task) stop() {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
	t.cancel()
}
