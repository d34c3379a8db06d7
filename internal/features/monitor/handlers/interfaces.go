package handlers

import (
	"context"

	"apimon/internal/features/monitor/fanout"
	"apimon/internal/features/monitor/models"
)

// MonitorService is the engine control surface the API serves
type MonitorService interface {
	AddEndpoint(ctx context.Context, input models.EndpointCreate) (models.Endpoint, error)
	UpdateEndpoint(ctx context.Context, id string, update models.EndpointUpdate) (models.Endpoint, error)
	RemoveEndpoint(ctx context.Context, id string) error
	GetEndpoint(id string) (models.EndpointStatus, error)
	ListEndpoints() []models.EndpointStatus
	CheckNow(id string) (models.CheckResult, error)
	GetMetrics(id string, windowHours float64) (models.EndpointMetrics, error)
	GetFleetStats() models.FleetStats
	GetHistory(id string, limit int) ([]models.CheckResult, error)
	GetAlerts() []models.Alert
	GetGroupedAlerts() []models.GroupedAlert
	AcknowledgeAlert(ctx context.Context, id string) (models.Alert, error)
	Status() models.EngineStatus
}

// EventSource hands out live event subscriptions
type EventSource interface {
	Subscribe() *fanout.Subscription
	Unsubscribe(sub *fanout.Subscription)
}
