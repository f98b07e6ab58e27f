package resolveduplicates

import (
	"fmt"
	"time"

	"recruit-workers/internal/common/config"
	"recruit-workers/internal/pipeline/identity"
)

type Config struct {
	Enabled          bool              `mapstructure:"enabled"`
	MaxJobsActive    int               `mapstructure:"max_jobs_active"`
	Timeout          time.Duration     `mapstructure:"timeout"`
	IdentityStrategy identity.Strategy `mapstructure:"identity_strategy"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:          true,
		MaxJobsActive:    5,
		Timeout:          30 * time.Second,
		IdentityStrategy: identity.DefaultStrategy,
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if _, err := identity.ParseStrategy(string(c.IdentityStrategy)); err != nil {
		return err
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
	if app.Pipeline.IdentityStrategy != "" {
		cfg.IdentityStrategy = identity.Strategy(app.Pipeline.IdentityStrategy)
	}
	return cfg
}
