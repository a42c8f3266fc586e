package scheduler

import (
	"strings"
	"time"

	"github.com/smallbiznis/roomlease/internal/config"
)

// Config controls the background sweeps.
type Config struct {
	Enabled     bool
	OverdueSpec string
	JobTimeout  time.Duration
	LockTTL     time.Duration
}

func DefaultConfig() Config {
	return Config{
		OverdueSpec: "@every 1h",
		JobTimeout:  30 * time.Second,
		LockTTL:     5 * time.Minute,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		Enabled:     cfg.OverdueSweepEnabled,
		OverdueSpec: cfg.OverdueSweepSpec,
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if strings.TrimSpace(c.OverdueSpec) == "" {
		c.OverdueSpec = defaults.OverdueSpec
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.LockTTL <= 0 {
		c.LockTTL = defaults.LockTTL
	}
	// The lease must outlive the job it guards.
	if c.LockTTL < c.JobTimeout {
		c.LockTTL = c.JobTimeout
	}
	return c
}
