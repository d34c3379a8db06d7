package models

import "time"

// Status is the derived health classification of an endpoint
type Status string

const (
	StatusOnline   Status = "online"
	StatusDegraded Status = "degraded"
	StatusOffline  Status = "offline"
)

// Uptime thresholds, in percent
const (
	OnlineUptimeThreshold   = 99.0
	DegradedUptimeThreshold = 90.0
)

// ClassifyUptime maps an uptime percentage to a status. An endpoint with no
// checks in the window has uptime 0 and is therefore offline.
func ClassifyUptime(uptime float64) Status {
	switch {
	case uptime >= OnlineUptimeThreshold:
		return StatusOnline
	case uptime >= DegradedUptimeThreshold:
		return StatusDegraded
	default:
		return StatusOffline
	}
}

// EndpointMetrics is derived from the check results of one endpoint in a window
type EndpointMetrics struct {
	EndpointID    string     `json:"endpoint_id"`
	WindowHours   float64    `json:"window_hours"`
	Uptime        float64    `json:"uptime"`
	AvgLatencyMs  float64    `json:"avg_response_time"`
	TotalChecks   int        `json:"total_requests"`
	Successful    int        `json:"successful_requests"`
	Failed        int        `json:"failed_requests"`
	LastCheckTime *time.Time `json:"last_check_time,omitempty"`
	Status        Status     `json:"current_status"`
}

// ErrorRate returns the failed share of checks, in percent
func (m EndpointMetrics) ErrorRate() float64 {
	if m.TotalChecks == 0 {
		return 0
	}
	return float64(m.Failed) / float64(m.TotalChecks) * 100
}

// Lifetime counts every check recorded for an endpoint since it was tracked
type Lifetime struct {
	TotalChecks uint64 `json:"total_checks"`
	Successful  uint64 `json:"successful_checks"`
}

// FleetStats summarises every registered endpoint for the dashboard
type FleetStats struct {
	TotalEndpoints    int     `json:"total_endpoints"`
	OnlineEndpoints   int     `json:"online_endpoints"`
	OfflineEndpoints  int     `json:"offline_endpoints"`
	DegradedEndpoints int     `json:"degraded_endpoints"`
	AvgLatencyAll     float64 `json:"avg_response_time_all"`
	TotalChecks       int     `json:"total_requests"`
	SuccessRate       float64 `json:"success_rate"`
	WindowHours       float64 `json:"window_hours"`
}

// EngineStatus reports what the engine is currently doing
type EngineStatus struct {
	Running     bool      `json:"running"`
	Active      []string  `json:"active_endpoints"`
	Count       int       `json:"count"`
	Subscribers int       `json:"subscribers"`
	StartedAt   time.Time `json:"started_at"`
}

// PurgeResult counts check results removed by a retention run
type PurgeResult struct {
	Days          int   `json:"days"`
	MemoryRemoved int   `json:"memory_removed"`
	StoreRemoved  int64 `json:"store_removed"`
}
