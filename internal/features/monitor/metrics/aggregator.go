package metrics

import (
	"sync"
	"time"

	"apimon/internal/features/monitor/models"
)

// Aggregator derives per-endpoint and fleet metrics from check results. Each
// tracked endpoint has a short charting history and a longer window of
// retained results used for metrics.
type Aggregator struct {
	mu          sync.RWMutex
	historySize int
	retained    int
	series      map[string]*series
	now         func() time.Time
}

type series struct {
	history  *Ring[models.CheckResult]
	results  *Ring[models.CheckResult]
	lifetime models.Lifetime
}

// NewAggregator creates an aggregator. historySize bounds the charting
// history and retained bounds the results kept for metrics.
func NewAggregator(historySize, retained int) *Aggregator {
	if retained < historySize {
		retained = historySize
	}
	return &Aggregator{
		historySize: historySize,
		retained:    retained,
		series:      make(map[string]*series),
		now:         time.Now,
	}
}

// Track starts accepting results for id. Tracking an already tracked id
// keeps its state.
func (a *Aggregator) Track(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.series[id]; !ok {
		a.series[id] = a.newSeries()
	}
}

// Forget releases all state held for id
func (a *Aggregator) Forget(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.series, id)
}

// Tracked reports whether id is tracked
func (a *Aggregator) Tracked(id string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.series[id]
	return ok
}

// Record appends a result to its endpoint's history. Results for untracked
// endpoints are ignored and Record reports false.
func (a *Aggregator) Record(result models.CheckResult) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.series[result.EndpointID]
	if !ok {
		return false
	}
	s.push(result)
	return true
}

// Seed loads previously stored results, oldest first, into a tracked
// endpoint. Lifetime counters include seeded results.
func (a *Aggregator) Seed(id string, results []models.CheckResult) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.series[id]
	if !ok {
		s = a.newSeries()
		a.series[id] = s
	}
	for _, r := range results {
		s.push(r)
	}
}

// MetricsFor computes metrics for id over the trailing windowHours. A
// non-positive window covers every retained result.
func (a *Aggregator) MetricsFor(id string, windowHours float64) (models.EndpointMetrics, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	s, ok := a.series[id]
	if !ok {
		return models.EndpointMetrics{}, false
	}
	return a.compute(id, s, windowHours), true
}

// Lifetime returns the counters for id since it was tracked
func (a *Aggregator) Lifetime(id string) models.Lifetime {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if s, ok := a.series[id]; ok {
		return s.lifetime
	}
	return models.Lifetime{}
}

// Latest returns the newest result for id
func (a *Aggregator) Latest(id string) (models.CheckResult, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	s, ok := a.series[id]
	if !ok {
		return models.CheckResult{}, false
	}
	return s.history.Last()
}

// RecentErrorRate returns the failed share, in percent, of the last n results
func (a *Aggregator) RecentErrorRate(id string, n int) float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()

	s, ok := a.series[id]
	if !ok {
		return 0
	}
	recent := s.results.Tail(n)
	if len(recent) == 0 {
		return 0
	}
	failed := 0
	for _, r := range recent {
		if !r.Succeeded() {
			failed++
		}
	}
	return float64(failed) / float64(len(recent)) * 100
}

// History returns up to limit of the newest charting points for id, oldest
// first. A non-positive limit returns the whole history.
func (a *Aggregator) History(id string, limit int) ([]models.CheckResult, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	s, ok := a.series[id]
	if !ok {
		return nil, false
	}
	return s.history.Tail(limit), true
}

// FleetStats aggregates metrics across ids over the trailing windowHours
func (a *Aggregator) FleetStats(ids []string, windowHours float64) models.FleetStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := models.FleetStats{TotalEndpoints: len(ids), WindowHours: windowHours}
	var successful int
	var latencySum float64

	for _, id := range ids {
		s, ok := a.series[id]
		if !ok {
			stats.OfflineEndpoints++
			continue
		}
		m := a.compute(id, s, windowHours)
		switch m.Status {
		case models.StatusOnline:
			stats.OnlineEndpoints++
		case models.StatusDegraded:
			stats.DegradedEndpoints++
		default:
			stats.OfflineEndpoints++
		}
		stats.TotalChecks += m.TotalChecks
		successful += m.Successful
		latencySum += m.AvgLatencyMs * float64(m.Successful)
	}

	if stats.TotalChecks > 0 {
		stats.SuccessRate = float64(successful) / float64(stats.TotalChecks) * 100
	}
	if successful > 0 {
		stats.AvgLatencyAll = latencySum / float64(successful)
	}
	return stats
}

// PurgeOlderThan drops results older than days across all endpoints and
// returns the number of retained results removed
func (a *Aggregator) PurgeOlderThan(days int) int {
	cutoff := a.now().Add(-time.Duration(days) * 24 * time.Hour)
	older := func(r models.CheckResult) bool { return r.Timestamp.Before(cutoff) }

	a.mu.Lock()
	defer a.mu.Unlock()

	removed := 0
	for _, s := range a.series {
		removed += s.results.DropWhile(older)
		s.history.DropWhile(older)
	}
	return removed
}

func (a *Aggregator) newSeries() *series {
	return &series{
		history: NewRing[models.CheckResult](a.historySize),
		results: NewRing[models.CheckResult](a.retained),
	}
}

func (a *Aggregator) compute(id string, s *series, windowHours float64) models.EndpointMetrics {
	m := models.EndpointMetrics{EndpointID: id, WindowHours: windowHours}

	var cutoff time.Time
	if windowHours > 0 {
		cutoff = a.now().Add(-time.Duration(windowHours * float64(time.Hour)))
	}

	var latencySum int64
	for i := s.results.Len() - 1; i >= 0; i-- {
		r := s.results.At(i)
		if windowHours > 0 && r.Timestamp.Before(cutoff) {
			break
		}
		if m.LastCheckTime == nil {
			ts := r.Timestamp
			m.LastCheckTime = &ts
		}
		m.TotalChecks++
		if r.Succeeded() {
			m.Successful++
			latencySum += r.LatencyMs
		} else {
			m.Failed++
		}
	}

	if m.TotalChecks > 0 {
		m.Uptime = float64(m.Successful) / float64(m.TotalChecks) * 100
	}
	if m.Successful > 0 {
		m.AvgLatencyMs = float64(latencySum) / float64(m.Successful)
	}
	m.Status = models.ClassifyUptime(m.Uptime)
	return m
}

func (s *series) push(r models.CheckResult) {
	s.history.Push(r)
	s.results.Push(r)
	s.lifetime.TotalChecks++
	if r.Succeeded() {
		s.lifetime.Successful++
	}
}
