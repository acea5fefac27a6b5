package scheduler

import (
	"time"

	"github.com/smallbiznis/mailroom/internal/config"
)

// Config controls the scheduler interval and fee job limits.
type Config struct {
	Enabled       bool
	RunInterval   time.Duration
	RecalcTimeout time.Duration
	LockTTL       time.Duration
	LockPrefix    string
}

func DefaultConfig() Config {
	return Config{
		Enabled:       true,
		RunInterval:   time.Hour,
		RecalcTimeout: 5 * time.Minute,
		LockTTL:       10 * time.Minute,
		LockPrefix:    "mailroom:scheduler:",
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		Enabled:       cfg.Scheduler.Enabled,
		RunInterval:   cfg.Scheduler.RecalcInterval,
		RecalcTimeout: cfg.Scheduler.RecalcTimeout,
		LockTTL:       cfg.Scheduler.LockTTL,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.RecalcTimeout <= 0 {
		c.RecalcTimeout = defaults.RecalcTimeout
	}
	if c.LockTTL <= 0 {
		c.LockTTL = defaults.LockTTL
	}
	// The lock must outlive the job it guards.
	if c.LockTTL < c.RecalcTimeout {
		c.LockTTL = c.RecalcTimeout
	}
	if c.LockPrefix == "" {
		c.LockPrefix = defaults.LockPrefix
	}
	return c
}
