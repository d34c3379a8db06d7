package monitor

import (
	"fmt"
	"time"

	"apimon/internal/core"
)

// Config represents monitor feature configuration
type Config struct {
	DefaultInterval       time.Duration
	DefaultTimeout        time.Duration
	HistorySize           int
	RetainedResults       int
	AlertHistorySize      int
	SlowThresholdMs       int64
	ErrorRateThreshold    float64
	ErrorRateSampleSize   int
	StatusWindowHours     float64
	SubscriberBuffer      int
	SnapshotHistoryPoints int
	UserAgent             string
	AllowedOrigins        []string
	StoreTimeout          time.Duration
}

// NewConfig creates monitor config from core config
func NewConfig(coreConfig *core.Config) *Config {
	m := coreConfig.Monitor
	return &Config{
		DefaultInterval:       m.DefaultInterval,
		DefaultTimeout:        m.DefaultTimeout,
		HistorySize:           m.HistorySize,
		RetainedResults:       m.RetainedResults,
		AlertHistorySize:      m.AlertHistorySize,
		SlowThresholdMs:       m.SlowThresholdMs,
		ErrorRateThreshold:    m.ErrorRateThreshold,
		ErrorRateSampleSize:   m.ErrorRateSampleSize,
		StatusWindowHours:     m.StatusWindowHours,
		SubscriberBuffer:      m.SubscriberBuffer,
		SnapshotHistoryPoints: m.SnapshotHistoryPoints,
		UserAgent:             m.UserAgent,
		AllowedOrigins:        coreConfig.Server.AllowedOrigins,
		StoreTimeout:          5 * time.Second,
	}
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		DefaultInterval:       30 * time.Second,
		DefaultTimeout:        10 * time.Second,
		HistorySize:           200,
		RetainedResults:       10000,
		AlertHistorySize:      100,
		SlowThresholdMs:       1000,
		ErrorRateThreshold:    10,
		ErrorRateSampleSize:   20,
		StatusWindowHours:     24,
		SubscriberBuffer:      256,
		SnapshotHistoryPoints: 30,
		UserAgent:             "apimon/1.0",
		StoreTimeout:          5 * time.Second,
	}
}

// Validate validates the monitor configuration
func (c *Config) Validate() error {
	if c.DefaultInterval <= 0 || c.DefaultTimeout <= 0 {
		return fmt.Errorf("default interval and timeout must be positive")
	}

	if c.HistorySize < 1 {
		return fmt.Errorf("history size must be at least 1")
	}

	if c.RetainedResults < c.HistorySize {
		return fmt.Errorf("retained results (%d) must be at least the history size (%d)", c.RetainedResults, c.HistorySize)
	}

	if c.AlertHistorySize < 1 {
		return fmt.Errorf("alert history size must be at least 1")
	}

	if c.ErrorRateThreshold < 0 || c.ErrorRateThreshold > 100 {
		return fmt.Errorf("error rate threshold must be between 0 and 100")
	}

	if c.ErrorRateSampleSize < 1 {
		return fmt.Errorf("error rate sample size must be at least 1")
	}

	if c.SubscriberBuffer < 1 {
		return fmt.Errorf("subscriber buffer must be at least 1")
	}

	return nil
}
