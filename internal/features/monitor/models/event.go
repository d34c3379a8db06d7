package models

import "time"

// EventType names the kind of payload carried by an Event
type EventType string

const (
	EventSnapshot        EventType = "snapshot"
	EventStatusUpdate    EventType = "status_update"
	EventHistoryPoint    EventType = "history_point"
	EventAlert           EventType = "alert"
	EventEndpointAdded   EventType = "endpoint_added"
	EventEndpointRemoved EventType = "endpoint_removed"
)

// Event is delivered to live subscribers
type Event struct {
	Type       EventType `json:"type"`
	EndpointID string    `json:"endpoint_id,omitempty"`
	Payload    any       `json:"payload"`
	Timestamp  time.Time `json:"timestamp"`
}

// EndpointStatus is an endpoint definition with its latest derived state
type EndpointStatus struct {
	Endpoint   Endpoint        `json:"endpoint"`
	Metrics    EndpointMetrics `json:"metrics"`
	Lifetime   Lifetime        `json:"lifetime"`
	LastResult *CheckResult    `json:"last_result,omitempty"`
}

// EndpointHistory is the charting history of one endpoint, oldest first
type EndpointHistory struct {
	EndpointID string        `json:"endpoint_id"`
	Points     []CheckResult `json:"points"`
}

// Snapshot is the full current state sent to newly connected subscribers
type Snapshot struct {
	Endpoints []EndpointStatus  `json:"endpoints"`
	History   []EndpointHistory `json:"history"`
	Stats     FleetStats        `json:"stats"`
}
