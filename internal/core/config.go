package core

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents the main configuration for the API monitor
type Config struct {
	Server        ServerConfig        `json:"server"`
	Database      DatabaseConfig      `json:"database"`
	Log           LogConfig           `json:"log"`
	Monitor       MonitorConfig       `json:"monitor"`
	Retention     RetentionConfig     `json:"retention"`
	Notifications NotificationsConfig `json:"notifications"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Port           int      `json:"port"`
	Host           string   `json:"host"`
	AllowedOrigins []string `json:"allowed_origins"`
}

// DatabaseConfig contains persistence configuration
type DatabaseConfig struct {
	Driver        string `json:"driver"`
	Path          string `json:"path"`
	RedisAddr     string `json:"redis_addr"`
	RedisPassword string `json:"-"`
	RedisDB       int    `json:"redis_db"`
}

// LogConfig contains logging configuration
type LogConfig struct {
	Level string `json:"level"`
}

// MonitorConfig contains the monitoring engine configuration
type MonitorConfig struct {
	DefaultInterval       time.Duration `json:"default_interval"`
	DefaultTimeout        time.Duration `json:"default_timeout"`
	HistorySize           int           `json:"history_size"`
	RetainedResults       int           `json:"retained_results"`
	AlertHistorySize      int           `json:"alert_history_size"`
	SlowThresholdMs       int64         `json:"slow_threshold_ms"`
	ErrorRateThreshold    float64       `json:"error_rate_threshold"`
	ErrorRateSampleSize   int           `json:"error_rate_sample_size"`
	StatusWindowHours     float64       `json:"status_window_hours"`
	SubscriberBuffer      int           `json:"subscriber_buffer"`
	SnapshotHistoryPoints int           `json:"snapshot_history_points"`
	UserAgent             string        `json:"user_agent"`
	SeedFile              string        `json:"seed_file"`
}

// RetentionConfig contains check result retention configuration
type RetentionConfig struct {
	Enabled  bool   `json:"enabled"`
	Days     int    `json:"days"`
	Schedule string `json:"schedule"`
}

// NotificationsConfig contains alert email configuration
type NotificationsConfig struct {
	Enabled        bool   `json:"enabled"`
	SMTP2GOAPIKey  string `json:"-"`
	SMTP2GOSender  string `json:"smtp2go_sender"`
	AlertRecipient string `json:"alert_recipient"`
}

// Supported persistence drivers
const (
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Port:           getEnvAsInt("APIMON_PORT", 4000),
			Host:           getEnvOrDefault("APIMON_HOST", "0.0.0.0"),
			AllowedOrigins: getEnvAsList("APIMON_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			Driver:        strings.ToLower(getEnvOrDefault("APIMON_STORE", DriverSQLite)),
			Path:          getEnvOrDefault("APIMON_DB_PATH", "./apimon.db"),
			RedisAddr:     getEnvOrDefault("APIMON_REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnvOrDefault("APIMON_REDIS_PASSWORD", ""),
			RedisDB:       getEnvAsInt("APIMON_REDIS_DB", 0),
		},
		Log: LogConfig{
			Level: getEnvOrDefault("APIMON_LOG_LEVEL", "info"),
		},
		Monitor: MonitorConfig{
			DefaultInterval:       getEnvAsDuration("APIMON_DEFAULT_INTERVAL", 30*time.Second),
			DefaultTimeout:        getEnvAsDuration("APIMON_DEFAULT_TIMEOUT", 10*time.Second),
			HistorySize:           getEnvAsInt("APIMON_HISTORY_SIZE", 200),
			RetainedResults:       getEnvAsInt("APIMON_RETAINED_RESULTS", 10000),
			AlertHistorySize:      getEnvAsInt("APIMON_ALERT_HISTORY_SIZE", 100),
			SlowThresholdMs:       int64(getEnvAsInt("APIMON_SLOW_THRESHOLD_MS", 1000)),
			ErrorRateThreshold:    getEnvAsFloat("APIMON_ERROR_RATE_THRESHOLD", 10),
			ErrorRateSampleSize:   getEnvAsInt("APIMON_ERROR_RATE_SAMPLES", 20),
			StatusWindowHours:     getEnvAsFloat("APIMON_STATUS_WINDOW_HOURS", 24),
			SubscriberBuffer:      getEnvAsInt("APIMON_SUBSCRIBER_BUFFER", 256),
			SnapshotHistoryPoints: getEnvAsInt("APIMON_SNAPSHOT_POINTS", 30),
			UserAgent:             getEnvOrDefault("APIMON_USER_AGENT", "apimon/1.0"),
			SeedFile:              getEnvOrDefault("APIMON_SEED_FILE", ""),
		},
		Retention: RetentionConfig{
			Enabled:  getEnvAsBool("APIMON_ENABLE_RETENTION", true),
			Days:     getEnvAsInt("APIMON_RETENTION_DAYS", 30),
			Schedule: getEnvOrDefault("APIMON_RETENTION_SCHEDULE", "@every 1h"),
		},
		Notifications: NotificationsConfig{
			Enabled:        getEnvAsBool("APIMON_ENABLE_NOTIFICATIONS", false),
			SMTP2GOAPIKey:  getEnvOrDefault("APIMON_SMTP2GO_API_KEY", ""),
			SMTP2GOSender:  getEnvOrDefault("APIMON_SMTP2GO_SENDER", "API Monitor <alerts@localhost>"),
			AlertRecipient: getEnvOrDefault("APIMON_ALERT_RECIPIENT", ""),
		},
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return NewConfigurationError(fmt.Sprintf("invalid server port: %d", c.Server.Port), nil)
	}

	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return NewConfigurationError("database path is required", nil)
		}
	case DriverRedis:
		if c.Database.RedisAddr == "" {
			return NewConfigurationError("redis address is required when APIMON_STORE=redis", nil)
		}
	case DriverMemory:
	default:
		return NewConfigurationError(fmt.Sprintf("unknown store driver: %q", c.Database.Driver), nil)
	}

	if c.Monitor.DefaultInterval <= 0 {
		return NewConfigurationError("default check interval must be positive", nil)
	}

	if c.Monitor.DefaultTimeout <= 0 {
		return NewConfigurationError("default check timeout must be positive", nil)
	}

	if c.Retention.Enabled && c.Retention.Days <= 0 {
		return NewConfigurationError("retention days must be positive when retention is enabled", nil)
	}

	// Validate notification config if enabled
	if c.Notifications.Enabled {
		if c.Notifications.SMTP2GOAPIKey == "" {
			return NewConfigurationError("SMTP2GO API key is required when notifications are enabled", nil)
		}
		if c.Notifications.AlertRecipient == "" {
			return NewConfigurationError("alert recipient is required when notifications are enabled", nil)
		}
	}

	return nil
}

// IsFeatureEnabled checks if a feature is enabled
func (c *Config) IsFeatureEnabled(featureName string) bool {
	switch strings.ToLower(featureName) {
	case "monitor":
		return true
	case "retention":
		return c.Retention.Enabled
	case "notifications":
		return c.Notifications.Enabled
	default:
		return false
	}
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go duration strings ("30s") or plain seconds ("30")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var items []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}
