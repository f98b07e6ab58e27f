package launchcampaign

import (
	"fmt"
	"time"

	"recruit-workers/internal/common/config"
	"recruit-workers/internal/pipeline/campaign"
)

type Config struct {
	Enabled         bool          `mapstructure:"enabled"`
	MaxJobsActive   int           `mapstructure:"max_jobs_active"`
	Timeout         time.Duration `mapstructure:"timeout"`
	DefaultPriority string        `mapstructure:"default_priority"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		MaxJobsActive:   2,
		Timeout:         60 * time.Second,
		DefaultPriority: campaign.DefaultPriority,
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.DefaultPriority == "" {
		return fmt.Errorf("default_priority is required")
	}
	return nil
}

func ConfigFromApp(app *config.Config) *Config {
	cfg := DefaultConfig()
	if app == nil {
		return cfg
	}
	if wc, ok := app.Workers[TaskType]; ok {
		cfg.Enabled = wc.Enabled
		if wc.MaxJobsActive > 0 {
			cfg.MaxJobsActive = wc.MaxJobsActive
		}
		if wc.Timeout > 0 {
			cfg.Timeout = config.GetDuration(wc.Timeout)
		}
	}
	if app.Pipeline.DefaultPriority != "" {
		cfg.DefaultPriority = app.Pipeline.DefaultPriority
	}
	return cfg
}
