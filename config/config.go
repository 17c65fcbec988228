// Package config provides configuration management for goenviron.
package config

import (
	"time"

	"github.com/victoralfred/goenviron/observability"
	"github.com/victoralfred/goenviron/pool"
	"github.com/victoralfred/goenviron/resilience"
)

// Config is the main configuration for goenviron.
type Config struct {
	CircuitBreaker  resilience.CircuitBreakerConfig
	RateLimiter     resilience.RateLimiterConfig
	Telemetry       observability.TelemetryConfig
	ProfilePath     string
	ProfileBasePath string
	Fetch           FetchConfig
	Audit           observability.AuditConfig
	Pool            pool.Config
}

// FetchConfig configures remote snapshot fetching.
type FetchConfig struct {
	DefaultTimeout time.Duration
	MaxConcurrent  int
	EnableMetrics  bool
	EnableTracing  bool
	EnableAudit    bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Fetch: FetchConfig{
			DefaultTimeout: 30 * time.Second,
			MaxConcurrent:  100,
			EnableMetrics:  true,
			EnableTracing:  true,
			EnableAudit:    true,
		},
		Pool:            pool.DefaultConfig(),
		RateLimiter:     resilience.DefaultRateLimiterConfig(),
		CircuitBreaker:  resilience.DefaultCircuitBreakerConfig(),
		Telemetry:       observability.DefaultTelemetryConfig(),
		Audit:           observability.DefaultAuditConfig(),
		ProfilePath:     "profiles.yaml",
		ProfileBasePath: "/etc/goenviron",
	}
}

// DevelopmentConfig returns configuration suitable for development.
func DevelopmentConfig() Config {
	cfg := DefaultConfig()
	cfg.Fetch.DefaultTimeout = 60 * time.Second
	cfg.RateLimiter.DefaultLimit = 1000
	cfg.RateLimiter.DefaultBurst = 2000
	cfg.CircuitBreaker.FailureThreshold = 10
	cfg.Audit.LogLevel = observability.AuditLogAll
	return cfg
}

// ProductionConfig returns configuration suitable for production.
func ProductionConfig() Config {
	cfg := DefaultConfig()
	cfg.Fetch.DefaultTimeout = 30 * time.Second
	cfg.Fetch.MaxConcurrent = 50
	cfg.RateLimiter.DefaultLimit = 100
	cfg.RateLimiter.DefaultBurst = 150
	cfg.CircuitBreaker.FailureThreshold = 5
	cfg.CircuitBreaker.Timeout = 60 * time.Second
	cfg.Audit.LogLevel = observability.AuditLogFailures
	return cfg
}

// Validate validates the configuration, normalizing out-of-range values.
func (c *Config) Validate() error {
	if c.Fetch.DefaultTimeout <= 0 {
		c.Fetch.DefaultTimeout = 30 * time.Second
	}

	if c.Fetch.MaxConcurrent <= 0 {
		c.Fetch.MaxConcurrent = 100
	}

	if c.Pool.Workers <= 0 {
		c.Pool.Workers = 1
	}

	if c.Pool.QueueSize <= 0 {
		c.Pool.QueueSize = c.Pool.Workers * 10
	}

	return nil
}
