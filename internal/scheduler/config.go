package scheduler

import (
	"time"
)

// Config controls the recalculation loop.
type Config struct {
	RunInterval    time.Duration
	BatchSize      int
	StaleThreshold time.Duration
}

func DefaultConfig() Config {
	return Config{
		RunInterval:    15 * time.Minute,
		BatchSize:      50,
		StaleThreshold: time.Hour,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.StaleThreshold <= 0 {
		c.StaleThreshold = defaults.StaleThreshold
	}
	return c
}
