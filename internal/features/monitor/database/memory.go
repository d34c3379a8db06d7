package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"apimon/internal/features/monitor/models"
)

// MemoryStore keeps everything in process memory. Nothing survives a restart.
type MemoryStore struct {
	mu        sync.RWMutex
	endpoints map[string]models.Endpoint
	checks    map[string][]models.CheckResult
	alerts    []models.Alert
	maxAlerts int
}

// NewMemoryStore creates an empty store keeping at most maxAlerts alerts
func NewMemoryStore(maxAlerts int) *MemoryStore {
	if maxAlerts < 1 {
		maxAlerts = 100
	}
	return &MemoryStore{
		endpoints: make(map[string]models.Endpoint),
		checks:    make(map[string][]models.CheckResult),
		maxAlerts: maxAlerts,
	}
}

func (m *MemoryStore) GetEndpoint(ctx context.Context, id string) (models.Endpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.endpoints[id]
	if !ok {
		return models.Endpoint{}, models.ErrEndpointNotFound
	}
	return e.Clone(), nil
}

func (m *MemoryStore) ListEndpoints(ctx context.Context) ([]models.Endpoint, error) {
	m.mu.RLock()
	endpoints := make([]models.Endpoint, 0, len(m.endpoints))
	for _, e := range m.endpoints {
		endpoints = append(endpoints, e.Clone())
	}
	m.mu.RUnlock()

	sort.Slice(endpoints, func(i, j int) bool {
		if endpoints[i].CreatedAt.Equal(endpoints[j].CreatedAt) {
			return endpoints[i].ID < endpoints[j].ID
		}
		return endpoints[i].CreatedAt.Before(endpoints[j].CreatedAt)
	})
	return endpoints, nil
}

func (m *MemoryStore) UpsertEndpoint(ctx context.Context, endpoint models.Endpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.endpoints[endpoint.ID] = endpoint.Clone()
	return nil
}

func (m *MemoryStore) DeleteEndpoint(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.endpoints[id]; !ok {
		return models.ErrEndpointNotFound
	}
	delete(m.endpoints, id)
	delete(m.checks, id)
	return nil
}

func (m *MemoryStore) AppendCheckResult(ctx context.Context, result models.CheckResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Kept ordered by timestamp for the range searches below
	results := m.checks[result.EndpointID]
	i := sort.Search(len(results), func(i int) bool { return results[i].Timestamp.After(result.Timestamp) })
	results = append(results, models.CheckResult{})
	copy(results[i+1:], results[i:])
	results[i] = result
	m.checks[result.EndpointID] = results
	return nil
}

func (m *MemoryStore) QueryCheckResults(ctx context.Context, endpointID string, since time.Time) ([]models.CheckResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.checks[endpointID]
	i := sort.Search(len(all), func(i int) bool { return !all[i].Timestamp.Before(since) })
	out := make([]models.CheckResult, len(all)-i)
	copy(out, all[i:])
	return out, nil
}

func (m *MemoryStore) PurgeCheckResults(ctx context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed int64
	for id, results := range m.checks {
		i := sort.Search(len(results), func(i int) bool { return !results[i].Timestamp.Before(before) })
		if i == 0 {
			continue
		}
		removed += int64(i)
		m.checks[id] = append([]models.CheckResult(nil), results[i:]...)
	}
	return removed, nil
}

func (m *MemoryStore) InsertAlert(ctx context.Context, alert models.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.alerts = append([]models.Alert{alert}, m.alerts...)
	if len(m.alerts) > m.maxAlerts {
		m.alerts = m.alerts[:m.maxAlerts]
	}
	return nil
}

func (m *MemoryStore) AcknowledgeAlert(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.alerts {
		if m.alerts[i].ID == id {
			m.alerts[i].Acknowledged = true
			return nil
		}
	}
	return models.ErrAlertNotFound
}

func (m *MemoryStore) ListAlerts(ctx context.Context, limit int) ([]models.Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 || limit > len(m.alerts) {
		limit = len(m.alerts)
	}
	out := make([]models.Alert, limit)
	copy(out, m.alerts[:limit])
	return out, nil
}

func (m *MemoryStore) Close() error {
	return nil
}
