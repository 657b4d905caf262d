package archival

import (
	"time"

	"github.com/bomizzel/helpdesk/internal/config"
)

// Config controls archival runs and the recurring scheduler.
type Config struct {
	Enabled                  bool
	AgeThresholdDays         int
	MaxRecordsPerRun         int
	OnlyWhenApproachingLimit bool
	LimitThresholdPercent    float64
	Interval                 time.Duration
	// TenantParallelism bounds how many tenants one run processes at once.
	TenantParallelism int
}

func DefaultConfig() Config {
	return Config{
		Enabled:                  false,
		AgeThresholdDays:         30,
		MaxRecordsPerRun:         100,
		OnlyWhenApproachingLimit: true,
		LimitThresholdPercent:    80,
		Interval:                 24 * time.Hour,
		TenantParallelism:        4,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.AgeThresholdDays <= 0 {
		c.AgeThresholdDays = defaults.AgeThresholdDays
	}
	if c.MaxRecordsPerRun <= 0 {
		c.MaxRecordsPerRun = defaults.MaxRecordsPerRun
	}
	if c.LimitThresholdPercent <= 0 {
		c.LimitThresholdPercent = defaults.LimitThresholdPercent
	}
	if c.Interval <= 0 {
		c.Interval = defaults.Interval
	}
	if c.TenantParallelism <= 0 {
		c.TenantParallelism = defaults.TenantParallelism
	}
	return c
}

// FromAppConfig maps the process environment onto an archival config.
func FromAppConfig(cfg config.Config) Config {
	return Config{
		Enabled:                  cfg.ArchivalEnabled,
		AgeThresholdDays:         cfg.ArchivalAgeThresholdDays,
		MaxRecordsPerRun:         cfg.ArchivalMaxRecordsPerRun,
		OnlyWhenApproachingLimit: cfg.ArchivalOnlyWhenApproachingLimit,
		LimitThresholdPercent:    cfg.ArchivalLimitThresholdPercent,
		Interval:                 cfg.ArchivalInterval,
	}.withDefaults()
}
