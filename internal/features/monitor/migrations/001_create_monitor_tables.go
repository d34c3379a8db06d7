package migrations

import (
	"apimon/internal/core"
)

// Migration001CreateMonitorTables creates the endpoint, check and alert tables
var Migration001CreateMonitorTables = core.Migration{
	Version:     1,
	Name:        "create_monitor_tables",
	Description: "Create endpoint, check result and alert tables",
	UpSQL: `
		-- Monitored endpoints
		CREATE TABLE IF NOT EXISTS monitor_endpoints (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			url TEXT NOT NULL,
			method TEXT NOT NULL DEFAULT 'GET',
			expected_status INTEGER NOT NULL DEFAULT 200,
			headers TEXT NOT NULL DEFAULT '{}',
			timeout_ms INTEGER NOT NULL,
			interval_ms INTEGER NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);

		-- Check results, timestamps in unix milliseconds
		CREATE TABLE IF NOT EXISTS monitor_checks (
			id TEXT PRIMARY KEY,
			endpoint_id TEXT NOT NULL REFERENCES monitor_endpoints(id) ON DELETE CASCADE,
			checked_at INTEGER NOT NULL,
			outcome TEXT NOT NULL,
			status_code INTEGER,
			latency_ms INTEGER NOT NULL,
			error_message TEXT
		);

		-- Alerts keep the endpoint name as it was when they fired
		CREATE TABLE IF NOT EXISTS monitor_alerts (
			id TEXT PRIMARY KEY,
			endpoint_id TEXT NOT NULL,
			endpoint_name TEXT NOT NULL,
			kind TEXT NOT NULL,
			severity TEXT NOT NULL,
			message TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			acknowledged BOOLEAN NOT NULL DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS idx_monitor_checks_endpoint_time ON monitor_checks(endpoint_id, checked_at);
		CREATE INDEX IF NOT EXISTS idx_monitor_checks_time ON monitor_checks(checked_at);
		CREATE INDEX IF NOT EXISTS idx_monitor_alerts_created_at ON monitor_alerts(created_at);
	`,
	DownSQL: `
		DROP INDEX IF EXISTS idx_monitor_alerts_created_at;
		DROP INDEX IF EXISTS idx_monitor_checks_time;
		DROP INDEX IF EXISTS idx_monitor_checks_endpoint_time;

		DROP TABLE IF EXISTS monitor_alerts;
		DROP TABLE IF EXISTS monitor_checks;
		DROP TABLE IF EXISTS monitor_endpoints;
	`,
}
