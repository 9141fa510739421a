package internal

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/flagon/pkg/health"
)

// Default health check paths.
const (
	defaultLivenessPath  = "/health/live"
	defaultReadinessPath = "/health/ready"
)

// healthConfig holds health check endpoint configuration.
type healthConfig struct {
	checks        health.Checks
	livenessPath  string
	readinessPath string
	timeout       time.Duration
}

func newHealthConfig() *healthConfig {
	return &healthConfig{
		livenessPath:  defaultLivenessPath,
		readinessPath: defaultReadinessPath,
		checks:        make(health.Checks),
	}
}

// HealthOption configures health check endpoints.
type HealthOption func(*healthConfig)

// WithLivenessPath sets a custom liveness endpoint path.
// Defaults to "/health/live".
func WithLivenessPath(path string) HealthOption {
	return func(c *healthConfig) {
		if path != "" {
			c.livenessPath = path
		}
	}
}

// WithReadinessPath sets a custom readiness endpoint path.
// Defaults to "/health/ready".
func WithReadinessPath(path string) HealthOption {
	return func(c *healthConfig) {
		if path != "" {
			c.readinessPath = path
		}
	}
}

// WithReadinessTimeout bounds a readiness check. Defaults to 5 seconds.
func WithReadinessTimeout(d time.Duration) HealthOption {
	return func(c *healthConfig) {
		c.timeout = d
	}
}

// WithReadinessCheck adds a named readiness check.
// Checks run in parallel during a readiness check.
//
// Example:
//
//	flagon.WithReadinessCheck("redis", flagon.RedisCheck(client))
func WithReadinessCheck(name string, fn health.CheckFunc) HealthOption {
	return func(c *healthConfig) {
		if name != "" && fn != nil {
			c.checks[name] = fn
		}
	}
}

// RedisCheck pings a Redis server.
func RedisCheck(client redis.UniversalClient) health.CheckFunc {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}

// registerHealth adds the health views. They go through the normal
// dispatch, so hooks and error handlers apply to them as well.
func (a *App) registerHealth() {
	if a.health == nil {
		return
	}
	cfg := a.health
	a.AddURLRule(cfg.livenessPath, "health_live", func(c Context) (any, error) {
		if wantsJSONReport(c) {
			return c.JSON(&health.Report{Status: health.StatusHealthy})
		}
		return "OK", nil
	})
	a.AddURLRule(cfg.readinessPath, "health_ready", func(c Context) (any, error) {
		opts := []health.Option{health.WithLogger(c.Logger())}
		if cfg.timeout > 0 {
			opts = append(opts, health.WithTimeout(cfg.timeout))
		}
		report := health.Run(c, cfg.checks, opts...)

		status := http.StatusOK
		if !report.Healthy() {
			status = http.StatusServiceUnavailable
		}
		if wantsJSONReport(c) {
			resp, err := c.JSON(report)
			if err != nil {
				return nil, err
			}
			resp.StatusCode = status
			return resp, nil
		}
		if report.Healthy() {
			return WithStatus("OK", status), nil
		}
		return WithStatus("Service Unavailable", status), nil
	})
}

func wantsJSONReport(c Context) bool {
	return c.Query("format") == "json" || c.Request().WantsJSON()
}
