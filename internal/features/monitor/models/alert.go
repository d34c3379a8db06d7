package models

import "time"

// AlertKind identifies the rule that raised an alert
type AlertKind string

const (
	AlertDown          AlertKind = "endpoint_down"
	AlertSlowResponse  AlertKind = "slow_response"
	AlertHighErrorRate AlertKind = "high_error_rate"
	AlertRecovered     AlertKind = "endpoint_recovered"
)

// Severity ranks alerts for display and notification
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Alert is one notable event. EndpointName is a snapshot taken when the
// alert fired and does not follow later renames.
type Alert struct {
	ID           string    `json:"id"`
	EndpointID   string    `json:"endpoint_id"`
	EndpointName string    `json:"endpoint_name"`
	Kind         AlertKind `json:"type"`
	Severity     Severity  `json:"severity"`
	Message      string    `json:"message"`
	Timestamp    time.Time `json:"timestamp"`
	Acknowledged bool      `json:"acknowledged"`
}

// GroupedAlert collapses identical alerts into one entry
type GroupedAlert struct {
	Alert
	Count int `json:"count"`
}
