package internal

import (
	"context"
	"log/slog"
	"time"
)

// RunOption configures the server runtime.
type RunOption func(*serverConfig)

// appRoute binds an App to a host pattern or a path prefix.
type appRoute struct {
	pattern string
	app     *App
}

// serverConfig is what Run needs to compose the applications and serve them.
type serverConfig struct {
	address         string
	logger          *slog.Logger
	shutdownTimeout time.Duration
	startupHooks    []func(context.Context) error
	shutdownHooks   []func(context.Context) error
	domains         []appRoute
	mounts          []appRoute
	fallback        *App
	baseCtx         context.Context
}

// newServerConfig applies opts over the default shutdown timeout.
func newServerConfig(opts ...RunOption) *serverConfig {
	cfg := &serverConfig{
		shutdownTimeout: defaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Address is the TCP address to listen on. Empty means ":8080".
func Address(addr string) RunOption {
	return func(c *serverConfig) {
		if addr != "" {
			c.address = addr
		}
	}
}

// Logger receives the server lifecycle records. Without it they are
// discarded.
func Logger(l *slog.Logger) RunOption {
	return func(c *serverConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// ShutdownTimeout bounds connection draining and the shutdown hooks
// together. Non-positive values keep the 30 second default.
func ShutdownTimeout(d time.Duration) RunOption {
	return func(c *serverConfig) {
		if d > 0 {
			c.shutdownTimeout = d
		}
	}
}

// StartupHook registers a function run before the server accepts
// connections. A failing hook aborts startup.
func StartupHook(fn func(context.Context) error) RunOption {
	return func(c *serverConfig) {
		if fn != nil {
			c.startupHooks = append(c.startupHooks, fn)
		}
	}
}

// ShutdownHook registers fn to run after connections are drained. Hooks
// run in registration order and all of them run, even after a failure.
//
// Example:
//
//	flagon.ShutdownHook(func(context.Context) error { return redisClient.Close() })
func ShutdownHook(fn func(context.Context) error) RunOption {
	return func(c *serverConfig) {
		if fn != nil {
			c.shutdownHooks = append(c.shutdownHooks, fn)
		}
	}
}

// Domain serves app for requests whose Host matches pattern, either exact
// ("api.example.com") or with a leading wildcard label ("*.example.com").
//
// Example:
//
//	flagon.Run(
//	    flagon.Domain("api.acme.com", apiApp),
//	    flagon.Domain("*.acme.com", tenantApp),
//	)
func Domain(pattern string, app *App) RunOption {
	return func(c *serverConfig) {
		if pattern != "" && app != nil {
			c.domains = append(c.domains, appRoute{pattern: pattern, app: app})
		}
	}
}

// Mount serves app under a path prefix. The app sees the prefix as its
// script root, so URLFor includes it.
func Mount(prefix string, app *App) RunOption {
	return func(c *serverConfig) {
		if prefix != "" && app != nil {
			c.mounts = append(c.mounts, appRoute{pattern: prefix, app: app})
		}
	}
}

// Fallback serves whatever no domain or mount claimed. Without domains
// and mounts it is served directly.
func Fallback(app *App) RunOption {
	return func(c *serverConfig) {
		if app != nil {
			c.fallback = app
		}
	}
}

// WithContext sets the parent of the signal context. Cancelling it shuts
// the server down.
func WithContext(ctx context.Context) RunOption {
	return func(c *serverConfig) {
		if ctx != nil {
			c.baseCtx = ctx
		}
	}
}
