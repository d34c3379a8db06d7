package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"apimon/internal/core"
	"apimon/internal/features/monitor/models"
)

// DatabaseService is the SQLite-backed Store
type DatabaseService struct {
	db *core.Database
}

// NewDatabaseService creates a store on an already migrated database
func NewDatabaseService(db *core.Database) *DatabaseService {
	return &DatabaseService{
		db: db,
	}
}

const endpointColumns = `id, name, url, method, expected_status, headers, timeout_ms, interval_ms, created_at, updated_at`

// GetEndpoint retrieves a specific endpoint by ID
func (s *DatabaseService) GetEndpoint(ctx context.Context, id string) (models.Endpoint, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+endpointColumns+` FROM monitor_endpoints WHERE id = ?`, id)

	endpoint, err := scanEndpoint(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Endpoint{}, models.ErrEndpointNotFound
	}
	if err != nil {
		return models.Endpoint{}, fmt.Errorf("failed to get endpoint %s: %w", id, err)
	}
	return endpoint, nil
}

// ListEndpoints retrieves all endpoints ordered by creation time
func (s *DatabaseService) ListEndpoints(ctx context.Context) ([]models.Endpoint, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+endpointColumns+` FROM monitor_endpoints ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list endpoints: %w", err)
	}
	defer rows.Close()

	var endpoints []models.Endpoint
	for rows.Next() {
		endpoint, err := scanEndpoint(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan endpoint: %w", err)
		}
		endpoints = append(endpoints, endpoint)
	}
	return endpoints, rows.Err()
}

// UpsertEndpoint inserts or replaces an endpoint definition
func (s *DatabaseService) UpsertEndpoint(ctx context.Context, e models.Endpoint) error {
	headers, err := json.Marshal(e.Headers)
	if err != nil {
		return fmt.Errorf("failed to encode headers: %w", err)
	}

	query := `
		INSERT INTO monitor_endpoints (` + endpointColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			url = excluded.url,
			method = excluded.method,
			expected_status = excluded.expected_status,
			headers = excluded.headers,
			timeout_ms = excluded.timeout_ms,
			interval_ms = excluded.interval_ms,
			updated_at = excluded.updated_at
	`
	_, err = s.db.ExecContext(ctx, query,
		e.ID, e.Name, e.URL, e.Method, e.ExpectedStatusCode, string(headers),
		e.TimeoutMs, e.IntervalMs, e.CreatedAt.UnixMilli(), e.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to upsert endpoint %s: %w", e.ID, err)
	}
	return nil
}

// DeleteEndpoint removes an endpoint and its check results
func (s *DatabaseService) DeleteEndpoint(ctx context.Context, id string) error {
	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM monitor_checks WHERE endpoint_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete checks for %s: %w", id, err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM monitor_endpoints WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete endpoint %s: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return models.ErrEndpointNotFound
		}
		return nil
	})
}

// AppendCheckResult stores a new check result
func (s *DatabaseService) AppendCheckResult(ctx context.Context, r models.CheckResult) error {
	query := `
		INSERT INTO monitor_checks (id, endpoint_id, checked_at, outcome, status_code, latency_ms, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.EndpointID, r.Timestamp.UnixMilli(), string(r.Outcome),
		nullInt(r.StatusCode), r.LatencyMs, nullString(r.Error))
	if err != nil {
		return fmt.Errorf("failed to store check result: %w", err)
	}
	return nil
}

// QueryCheckResults returns results for an endpoint since a point in time, oldest first
func (s *DatabaseService) QueryCheckResults(ctx context.Context, endpointID string, since time.Time) ([]models.CheckResult, error) {
	query := `
		SELECT id, endpoint_id, checked_at, outcome, status_code, latency_ms, error_message
		FROM monitor_checks
		WHERE endpoint_id = ? AND checked_at >= ?
		ORDER BY checked_at, rowid
	`
	rows, err := s.db.QueryContext(ctx, query, endpointID, since.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to query check results: %w", err)
	}
	defer rows.Close()

	var results []models.CheckResult
	for rows.Next() {
		var r models.CheckResult
		var checkedAt int64
		var outcome string
		var statusCode sql.NullInt64
		var errMsg sql.NullString

		if err := rows.Scan(&r.ID, &r.EndpointID, &checkedAt, &outcome, &statusCode, &r.LatencyMs, &errMsg); err != nil {
			return nil, fmt.Errorf("failed to scan check result: %w", err)
		}
		r.Timestamp = time.UnixMilli(checkedAt)
		r.Outcome = models.Outcome(outcome)
		r.StatusCode = int(statusCode.Int64)
		r.Error = errMsg.String
		results = append(results, r)
	}
	return results, rows.Err()
}

// PurgeCheckResults deletes results older than before
func (s *DatabaseService) PurgeCheckResults(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM monitor_checks WHERE checked_at < ?`, before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to purge check results: %w", err)
	}
	return res.RowsAffected()
}

// InsertAlert stores a new alert
func (s *DatabaseService) InsertAlert(ctx context.Context, a models.Alert) error {
	query := `
		INSERT INTO monitor_alerts (id, endpoint_id, endpoint_name, kind, severity, message, created_at, acknowledged)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		a.ID, a.EndpointID, a.EndpointName, string(a.Kind), string(a.Severity),
		a.Message, a.Timestamp.UnixMilli(), a.Acknowledged)
	if err != nil {
		return fmt.Errorf("failed to store alert: %w", err)
	}
	return nil
}

// AcknowledgeAlert marks an alert as acknowledged
func (s *DatabaseService) AcknowledgeAlert(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE monitor_alerts SET acknowledged = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to acknowledge alert %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrAlertNotFound
	}
	return nil
}

// ListAlerts returns the newest alerts first
func (s *DatabaseService) ListAlerts(ctx context.Context, limit int) ([]models.Alert, error) {
	query := `
		SELECT id, endpoint_id, endpoint_name, kind, severity, message, created_at, acknowledged
		FROM monitor_alerts
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		var a models.Alert
		var kind, severity string
		var createdAt int64

		if err := rows.Scan(&a.ID, &a.EndpointID, &a.EndpointName, &kind, &severity, &a.Message, &createdAt, &a.Acknowledged); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		a.Kind = models.AlertKind(kind)
		a.Severity = models.Severity(severity)
		a.Timestamp = time.UnixMilli(createdAt)
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// Close closes the underlying database
func (s *DatabaseService) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEndpoint(row scanner) (models.Endpoint, error) {
	var e models.Endpoint
	var headers string
	var createdAt, updatedAt int64

	err := row.Scan(&e.ID, &e.Name, &e.URL, &e.Method, &e.ExpectedStatusCode, &headers,
		&e.TimeoutMs, &e.IntervalMs, &createdAt, &updatedAt)
	if err != nil {
		return models.Endpoint{}, err
	}

	e.Headers = map[string]string{}
	if headers != "" {
		if err := json.Unmarshal([]byte(headers), &e.Headers); err != nil {
			return models.Endpoint{}, fmt.Errorf("failed to decode headers: %w", err)
		}
		if e.Headers == nil {
			e.Headers = map[string]string{}
		}
	}
	e.CreatedAt = time.UnixMilli(createdAt)
	e.UpdatedAt = time.UnixMilli(updatedAt)
	return e, nil
}

func nullInt(v int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(v), Valid: v != 0}
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
