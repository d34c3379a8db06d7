package monitor

import (
	"context"
	"fmt"

	"apimon/internal/core"
	"apimon/internal/features/monitor/database"
	"apimon/internal/features/monitor/migrations"
)

// OpenStore opens the configured persistence backend. SQLite databases are
// migrated before use.
func OpenStore(ctx context.Context, cfg core.DatabaseConfig, maxAlerts int, logger *core.Logger) (database.Store, error) {
	switch cfg.Driver {
	case core.DriverSQLite:
		db, err := core.OpenSQLite(cfg.Path, logger)
		if err != nil {
			return nil, core.NewDatabaseError("failed to open database", err)
		}
		if err := migrations.NewManager(db, logger).Migrate(ctx); err != nil {
			db.Close()
			return nil, core.NewDatabaseError("failed to migrate database", err)
		}
		logger.Info("Using SQLite store", "path", cfg.Path)
		db.LogStats()
		return database.NewDatabaseService(db), nil

	case core.DriverRedis:
		store, err := database.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, maxAlerts)
		if err != nil {
			return nil, core.NewDatabaseError("failed to open redis store", err)
		}
		logger.Info("Using Redis store", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
		return store, nil

	case core.DriverMemory:
		logger.Warn("Using in-memory store, nothing survives a restart")
		return database.NewMemoryStore(maxAlerts), nil

	default:
		return nil, core.NewConfigurationError(fmt.Sprintf("unknown store driver: %q", cfg.Driver), nil)
	}
}
