package core

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.Server.Port != 4000 || config.Database.Driver != DriverSQLite {
		t.Errorf("Unexpected defaults %+v", config)
	}
	if config.Monitor.DefaultInterval != 30*time.Second || config.Monitor.HistorySize != 200 {
		t.Errorf("Unexpected monitor defaults %+v", config.Monitor)
	}
	if !config.Retention.Enabled || config.Notifications.Enabled {
		t.Errorf("Expected retention on and notifications off by default")
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("APIMON_PORT", "9090")
	t.Setenv("APIMON_STORE", "Memory")
	t.Setenv("APIMON_DEFAULT_INTERVAL", "45")
	t.Setenv("APIMON_DEFAULT_TIMEOUT", "2s")
	t.Setenv("APIMON_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com,")
	t.Setenv("APIMON_ENABLE_RETENTION", "no")

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.Server.Port != 9090 || config.Database.Driver != DriverMemory {
		t.Errorf("Expected env overrides, got %+v", config.Server)
	}
	if config.Monitor.DefaultInterval != 45*time.Second || config.Monitor.DefaultTimeout != 2*time.Second {
		t.Errorf("Expected durations from env, got %+v", config.Monitor)
	}
	if len(config.Server.AllowedOrigins) != 2 || config.Server.AllowedOrigins[1] != "https://b.example.com" {
		t.Errorf("Unexpected origins %v", config.Server.AllowedOrigins)
	}
	if config.Retention.Enabled || config.IsFeatureEnabled("retention") {
		t.Error("Expected retention disabled")
	}
}

func TestConfigValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server:    ServerConfig{Port: 4000},
			Database:  DatabaseConfig{Driver: DriverSQLite, Path: "test.db"},
			Monitor:   MonitorConfig{DefaultInterval: time.Second, DefaultTimeout: time.Second},
			Retention: RetentionConfig{Enabled: true, Days: 30},
		}
	}

	tests := []struct {
		name   string
		modify func(c *Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 70000 }},
		{"unknown driver", func(c *Config) { c.Database.Driver = "postgres" }},
		{"redis without addr", func(c *Config) { c.Database.Driver = DriverRedis; c.Database.RedisAddr = "" }},
		{"zero interval", func(c *Config) { c.Monitor.DefaultInterval = 0 }},
		{"zero retention", func(c *Config) { c.Retention.Days = 0 }},
		{"notifications without key", func(c *Config) { c.Notifications.Enabled = true; c.Notifications.AlertRecipient = "ops@example.com" }},
	}

	if err := base().Validate(); err != nil {
		t.Fatalf("Expected base config to be valid, got %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.modify(c)
			err := c.Validate()
			if !IsCode(err, ErrCodeConfiguration) {
				t.Errorf("Expected configuration error, got %v", err)
			}
		})
	}
}
