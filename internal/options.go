package internal

import (
	"io/fs"
	"log/slog"

	"github.com/dmitrymomot/flagon/pkg/config"
	"github.com/dmitrymomot/flagon/pkg/logger"
)

// Option configures the application.
type Option func(*App)

// WithName sets the application name. It is added to every log entry.
func WithName(name string) Option {
	return func(a *App) {
		if name != "" {
			a.name = name
		}
	}
}

// WithConfig merges settings into the configuration. Only upper-case keys
// are taken.
//
// Example:
//
//	flagon.New(
//	    flagon.WithConfig(map[string]any{
//	        "SERVER_NAME":   "example.com",
//	        "TRUSTED_HOSTS": []string{"example.com", ".example.com"},
//	    }),
//	)
func WithConfig(settings map[string]any) Option {
	return func(a *App) {
		a.config.FromMapping(settings)
	}
}

// WithConfigFile loads settings from a YAML or JSON file. A missing file
// is ignored when silent is set; any other failure panics.
func WithConfigFile(path string, silent bool) Option {
	return func(a *App) {
		if _, err := a.config.FromFile(path, nil, silent); err != nil {
			panic(&SetupError{Method: "WithConfigFile", Err: err})
		}
	}
}

// WithConfigStruct loads the `config` tagged fields of v.
func WithConfigStruct(v any) Option {
	return func(a *App) {
		if err := a.config.FromStruct(v); err != nil {
			panic(&SetupError{Method: "WithConfigStruct", Err: err})
		}
	}
}

// WithEnvPrefix loads settings from environment variables starting with
// prefix, after reading .env files when present.
//
// Example:
//
//	// FLAGON_SECRET_KEY=... FLAGON_DEBUG=true
//	flagon.New(flagon.WithEnvPrefix("FLAGON"))
func WithEnvPrefix(prefix string) Option {
	return func(a *App) {
		if err := config.LoadDotEnv(); err != nil {
			panic(&SetupError{Method: "WithEnvPrefix", Err: err})
		}
		if err := a.config.FromPrefixedEnv(prefix); err != nil {
			panic(&SetupError{Method: "WithEnvPrefix", Err: err})
		}
	}
}

// WithDebug toggles debug mode.
func WithDebug(debug bool) Option {
	return func(a *App) {
		a.config.Set("DEBUG", debug)
	}
}

// WithTesting toggles testing mode. Unhandled errors propagate to the
// caller in testing mode.
func WithTesting(testing bool) Option {
	return func(a *App) {
		a.config.Set("TESTING", testing)
	}
}

// WithSecretKey sets the key used to sign session cookies. Older keys
// given as fallbacks are still accepted when reading.
func WithSecretKey(secret string, fallbacks ...string) Option {
	return func(a *App) {
		a.config.Set("SECRET_KEY", secret)
		if len(fallbacks) > 0 {
			a.config.Set("SECRET_KEY_FALLBACKS", fallbacks)
		}
	}
}

// WithLogger creates a logger with a component name and optional extractors.
// The component name is added to every log entry for easy filtering.
// Extractors pull values from context (e.g., request_id, endpoint).
//
// Example:
//
//	flagon.New(
//	    flagon.WithLogger("api", flagon.EndpointExtractor(), requestIDExtractor),
//	)
func WithLogger(component string, extractors ...logger.ContextExtractor) Option {
	return func(a *App) {
		a.logger = logger.New(extractors...).With("component", component)
	}
}

// WithCustomLogger sets a fully custom logger.
func WithCustomLogger(l *slog.Logger) Option {
	return func(a *App) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithSentry logs locally and reports errors to Sentry.
//
// Example:
//
//	flagon.New(
//	    flagon.WithSentry(logger.SentryConfig{DSN: os.Getenv("SENTRY_DSN")}),
//	)
func WithSentry(cfg logger.SentryConfig, extractors ...logger.ContextExtractor) Option {
	return func(a *App) {
		a.logger = logger.NewWithSentry(cfg, extractors...)
	}
}

// WithMiddleware adds middleware around the whole dispatch. Middleware runs
// outside the request context and is applied in the order provided.
func WithMiddleware(mw ...Middleware) Option {
	return func(a *App) {
		a.middlewares = append(a.middlewares, mw...)
	}
}

// WithHandlers registers handlers that declare routes.
// Each handler's Routes method is called during setup.
func WithHandlers(h ...Handler) Option {
	return func(a *App) {
		a.handlers = append(a.handlers, h...)
	}
}

// WithExtensions initialises extensions against the application once all
// other options are applied.
func WithExtensions(ext ...Extension) Option {
	return func(a *App) {
		for _, e := range ext {
			if e != nil {
				a.pendingExtensions = append(a.pendingExtensions, e)
			}
		}
	}
}

// WithSessionInterface replaces the signed cookie session.
//
// Example:
//
//	store := session.NewRedisStore(client)
//	flagon.New(
//	    flagon.WithSecretKey(secret),
//	    flagon.WithSessionInterface(flagon.NewServerSideSessionInterface(store)),
//	)
func WithSessionInterface(si SessionInterface) Option {
	return func(a *App) {
		if si != nil {
			a.sessionInterface = si
		}
	}
}

// WithTemplates loads html/template files matching patterns from fsys.
//
// Example:
//
//	//go:embed templates
//	var templates embed.FS
//
//	flagon.New(flagon.WithTemplates(templates, "templates/*.html"))
func WithTemplates(fsys fs.FS, patterns ...string) Option {
	return func(a *App) {
		a.templates = NewFSLoader(fsys, patterns...)
	}
}

// WithTemplateLoader sets a custom template loader.
func WithTemplateLoader(l TemplateLoader) Option {
	return func(a *App) {
		if l != nil {
			a.templates = l
		}
	}
}

// WithJSONProvider replaces the JSON encoder.
func WithJSONProvider(p JSONProvider) Option {
	return func(a *App) {
		if p != nil {
			a.jsonProvider = p
		}
	}
}

// WithSubdomainMatching matches rules by subdomain of SERVER_NAME.
func WithSubdomainMatching(enabled bool) Option {
	return func(a *App) {
		a.subdomainMatching = enabled
	}
}

// WithHealthChecks enables health check endpoints with optional configuration.
// Liveness (/health/live): Always returns OK if process is running.
// Readiness (/health/ready): Runs all configured checks.
//
// Example:
//
//	flagon.WithHealthChecks(
//	    flagon.WithReadinessCheck("redis", flagon.RedisCheck(client)),
//	)
func WithHealthChecks(opts ...HealthOption) Option {
	return func(a *App) {
		cfg := newHealthConfig()
		for _, opt := range opts {
			opt(cfg)
		}
		a.health = cfg
	}
}
