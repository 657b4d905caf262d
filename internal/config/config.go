// Package config loads engine configuration from environment variables.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// Config holds every recognized runtime option with its default applied.
type Config struct {
	// Environment is the deployment environment name (development, production).
	Environment string
	// HTTPAddr is the listen address of the API server.
	HTTPAddr string
	// DatabaseDSN is the connection string handed to the gorm driver.
	DatabaseDSN string

	// ArchivalEnabled arms the recurring archival scheduler at startup.
	ArchivalEnabled bool
	// ArchivalInterval is the period between scheduled archival runs.
	ArchivalInterval time.Duration
	// ArchivalAgeThresholdDays is the minimum age of a completed ticket
	// before it becomes an archival candidate.
	ArchivalAgeThresholdDays int
	// ArchivalMaxRecordsPerRun caps how many tickets one run archives per tenant.
	ArchivalMaxRecordsPerRun int
	// ArchivalOnlyWhenApproachingLimit gates archival on quota pressure.
	ArchivalOnlyWhenApproachingLimit bool
	// ArchivalLimitThresholdPercent is the quota usage percentage that
	// counts as "approaching the limit".
	ArchivalLimitThresholdPercent float64

	// ExportRoot is the directory export artifacts are written under.
	ExportRoot string
	// ExportTTL is how long a generated artifact stays downloadable.
	ExportTTL time.Duration

	// TracingEnabled turns the OTLP exporter on.
	TracingEnabled  bool
	TracingEndpoint string
	TracingProtocol string
	TracingSampling float64
}

// Load reads configuration from the process environment.
func Load() Config {
	return Config{
		Environment: envString("HELPDESK_ENV", "development"),
		HTTPAddr:    envString("HELPDESK_HTTP_ADDR", ":8080"),
		DatabaseDSN: envString("HELPDESK_DB_DSN", "helpdesk.db"),

		ArchivalEnabled:                  envBool("HELPDESK_ARCHIVAL_ENABLED", false),
		ArchivalInterval:                 envDuration("HELPDESK_ARCHIVAL_INTERVAL", 24*time.Hour),
		ArchivalAgeThresholdDays:         envInt("HELPDESK_ARCHIVAL_AGE_DAYS", 30),
		ArchivalMaxRecordsPerRun:         envInt("HELPDESK_ARCHIVAL_MAX_RECORDS", 100),
		ArchivalOnlyWhenApproachingLimit: envBool("HELPDESK_ARCHIVAL_ONLY_NEAR_LIMIT", true),
		ArchivalLimitThresholdPercent:    envFloat("HELPDESK_ARCHIVAL_LIMIT_THRESHOLD", 80),

		ExportRoot: envString("HELPDESK_EXPORT_ROOT", "exports"),
		ExportTTL:  envDuration("HELPDESK_EXPORT_TTL", 24*time.Hour),

		TracingEnabled:  envBool("HELPDESK_TRACING_ENABLED", false),
		TracingEndpoint: envString("HELPDESK_TRACING_ENDPOINT", "localhost:4317"),
		TracingProtocol: envString("HELPDESK_TRACING_PROTOCOL", "grpc"),
		TracingSampling: envFloat("HELPDESK_TRACING_SAMPLING", 1),
	}
}

// IsProduction reports whether the process runs in the production environment.
func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func envString(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envFloat(key string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func envDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
