package models

import "time"

// Outcome classifies one probe
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeError   Outcome = "error"
	OutcomeTimeout Outcome = "timeout"
)

// CheckResult is the immutable record of one probe against one endpoint
type CheckResult struct {
	ID         string    `json:"id"`
	EndpointID string    `json:"endpoint_id"`
	Timestamp  time.Time `json:"timestamp"`
	Outcome    Outcome   `json:"status"`
	StatusCode int       `json:"status_code,omitempty"`
	LatencyMs  int64     `json:"response_time"`
	Error      string    `json:"error_message,omitempty"`
}

// Succeeded reports whether the probe met the endpoint's expectations
func (r CheckResult) Succeeded() bool {
	return r.Outcome == OutcomeSuccess
}
