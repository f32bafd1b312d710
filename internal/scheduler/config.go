package scheduler

import (
	"time"

	"github.com/dfund/marketplace/internal/config"
)

const (
	JobPurgeSessions             = "purge_sessions"
	JobCloseExpiredOpportunities = "close_expired_opportunities"
)

// Config controls scheduler intervals and batch sizes.
type Config struct {
	Enabled          bool
	RunInterval      time.Duration
	BatchSize        int
	JobTimeout       time.Duration
	SessionRetention time.Duration
	EnabledJobs      []string
}

func DefaultConfig() Config {
	return Config{
		Enabled:          true,
		RunInterval:      time.Minute,
		BatchSize:        100,
		JobTimeout:       30 * time.Second,
		SessionRetention: 7 * 24 * time.Hour,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		Enabled:          cfg.Scheduler.Enabled,
		RunInterval:      cfg.Scheduler.RunInterval,
		BatchSize:        cfg.Scheduler.BatchSize,
		SessionRetention: cfg.Scheduler.SessionRetention,
		EnabledJobs:      cfg.Scheduler.EnabledJobs,
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.SessionRetention < 0 {
		c.SessionRetention = defaults.SessionRetention
	}
	return c
}
