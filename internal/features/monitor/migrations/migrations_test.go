package migrations

import (
	"context"
	"testing"

	"apimon/internal/core"
)

var monitorTables = []string{"monitor_endpoints", "monitor_checks", "monitor_alerts"}

func openTestDB(t *testing.T) *core.Database {
	t.Helper()
	db, err := core.OpenSQLite(":memory:", core.NewDiscardLogger())
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func tableExists(t *testing.T, db *core.Database, table string) bool {
	t.Helper()
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
	if err != nil {
		t.Fatalf("Failed to check table %s: %v", table, err)
	}
	return count == 1
}

func TestMonitorMigrations(t *testing.T) {
	db := openTestDB(t)
	manager := NewManager(db, core.NewDiscardLogger())
	ctx := context.Background()

	if err := manager.Migrate(ctx); err != nil {
		t.Fatalf("Failed to apply migrations: %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM migrations").Scan(&count); err != nil {
		t.Fatalf("Failed to query migrations table: %v", err)
	}
	expected := len(manager.Migrations())
	if count != expected {
		t.Errorf("Expected %d migrations, got %d", expected, count)
	}

	for _, table := range monitorTables {
		if !tableExists(t, db, table) {
			t.Errorf("Table %s was not created", table)
		}
	}

	// Migrations are idempotent
	if err := manager.Migrate(ctx); err != nil {
		t.Fatalf("Failed to re-apply migrations: %v", err)
	}
	if err := db.QueryRow("SELECT COUNT(*) FROM migrations").Scan(&count); err != nil {
		t.Fatalf("Failed to query migrations table: %v", err)
	}
	if count != expected {
		t.Errorf("Expected %d migrations after re-apply, got %d", expected, count)
	}

	pending, err := manager.GetPendingMigrations(ctx)
	if err != nil {
		t.Fatalf("Failed to get pending migrations: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("Expected no pending migrations, got %d", len(pending))
	}
}

func TestMigrationRollback(t *testing.T) {
	db := openTestDB(t)
	manager := NewManager(db, core.NewDiscardLogger())
	ctx := context.Background()

	if err := manager.Migrate(ctx); err != nil {
		t.Fatalf("Failed to apply migrations: %v", err)
	}
	if err := manager.Rollback(ctx); err != nil {
		t.Fatalf("Failed to rollback migrations: %v", err)
	}

	for _, table := range monitorTables {
		if tableExists(t, db, table) {
			t.Errorf("Table %s was not removed during rollback", table)
		}
	}

	status, err := manager.Status(ctx)
	if err != nil {
		t.Fatalf("Failed to get status: %v", err)
	}
	if status.AppliedCount != 0 {
		t.Errorf("Expected no applied migrations, got %d", status.AppliedCount)
	}

	if err := manager.Rollback(ctx); err == nil {
		t.Error("Expected an error when nothing is left to roll back")
	}
}
