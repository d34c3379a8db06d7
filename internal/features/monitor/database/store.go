package database

import (
	"context"
	"time"

	"apimon/internal/features/monitor/models"
)

// Store persists endpoint definitions, check results and alerts. The engine
// treats it as best-effort: failures are logged and never roll back
// in-memory state.
type Store interface {
	GetEndpoint(ctx context.Context, id string) (models.Endpoint, error)
	ListEndpoints(ctx context.Context) ([]models.Endpoint, error)
	UpsertEndpoint(ctx context.Context, endpoint models.Endpoint) error
	DeleteEndpoint(ctx context.Context, id string) error

	AppendCheckResult(ctx context.Context, result models.CheckResult) error
	// QueryCheckResults returns results at or after since, oldest first
	QueryCheckResults(ctx context.Context, endpointID string, since time.Time) ([]models.CheckResult, error)
	// PurgeCheckResults removes results older than before and returns the count
	PurgeCheckResults(ctx context.Context, before time.Time) (int64, error)

	InsertAlert(ctx context.Context, alert models.Alert) error
	AcknowledgeAlert(ctx context.Context, id string) error
	// ListAlerts returns up to limit alerts, newest first
	ListAlerts(ctx context.Context, limit int) ([]models.Alert, error)

	Close() error
}
