package retention

import (
	"fmt"

	"apimon/internal/core"

	"github.com/robfig/cron/v3"
)

// Config represents retention feature configuration
type Config struct {
	Enabled  bool
	Days     int
	Schedule string
}

// NewConfig creates retention config from core config
func NewConfig(coreConfig *core.Config) *Config {
	return &Config{
		Enabled:  coreConfig.Retention.Enabled,
		Days:     coreConfig.Retention.Days,
		Schedule: coreConfig.Retention.Schedule,
	}
}

// Validate validates the retention configuration
func (c *Config) Validate() error {
	if c.Days <= 0 {
		return fmt.Errorf("retention days must be positive, got %d", c.Days)
	}

	if _, err := cron.ParseStandard(c.Schedule); err != nil {
		return fmt.Errorf("invalid retention schedule %q: %w", c.Schedule, err)
	}

	return nil
}
