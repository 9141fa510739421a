package flagon

import (
	"context"
	"io/fs"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/flagon/internal"
	"github.com/dmitrymomot/flagon/pkg/health"
)

// Application options

// WithName sets the application name. Log records carry it as "app".
func WithName(name string) Option {
	return internal.WithName(name)
}

// WithConfig merges settings into the configuration.
// Keys must be upper case; other keys are ignored.
func WithConfig(settings map[string]any) Option {
	return internal.WithConfig(settings)
}

// WithConfigFile loads settings from a YAML or JSON file.
// With silent set a missing file is not an error.
func WithConfigFile(path string, silent bool) Option {
	return internal.WithConfigFile(path, silent)
}

// WithConfigStruct loads the `config` tagged fields of v.
func WithConfigStruct(v any) Option {
	return internal.WithConfigStruct(v)
}

// WithEnvPrefix loads environment variables starting with prefix.
// A .env file is read first when present.
//
// Example:
//
//	// SHOP_SECRET_KEY=... SHOP_DEBUG=true
//	flagon.New(flagon.WithEnvPrefix("SHOP"))
func WithEnvPrefix(prefix string) Option {
	return internal.WithEnvPrefix(prefix)
}

// WithSecretKey sets SECRET_KEY and optional fallbacks used to verify
// cookies signed with older keys.
func WithSecretKey(secret string, fallbacks ...string) Option {
	return internal.WithSecretKey(secret, fallbacks...)
}

// WithDebug enables debug mode.
func WithDebug(debug bool) Option {
	return internal.WithDebug(debug)
}

// WithTesting enables testing mode: unhandled errors propagate to the
// caller instead of rendering a 500 page.
func WithTesting(testing bool) Option {
	return internal.WithTesting(testing)
}

// WithLogger configures a JSON logger for component with extractors adding
// request-scoped attributes.
//
// Example:
//
//	flagon.WithLogger("shop", flagon.EndpointExtractor())
func WithLogger(component string, extractors ...ContextExtractor) Option {
	return internal.WithLogger(component, extractors...)
}

// WithCustomLogger sets the application logger.
func WithCustomLogger(l *slog.Logger) Option {
	return internal.WithCustomLogger(l)
}

// WithSentry configures a logger that also reports errors to Sentry.
func WithSentry(cfg SentryConfig, extractors ...ContextExtractor) Option {
	return internal.WithSentry(cfg, extractors...)
}

// WithHandlers registers handlers that declare routes.
func WithHandlers(h ...Handler) Option {
	return internal.WithHandlers(h...)
}

// WithMiddleware wraps the dispatch in HTTP middleware.
// The first middleware is the outermost.
func WithMiddleware(mw ...Middleware) Option {
	return internal.WithMiddleware(mw...)
}

// WithExtensions initializes extensions on the new application.
func WithExtensions(ext ...Extension) Option {
	return internal.WithExtensions(ext...)
}

// WithSessionInterface replaces the session interface.
func WithSessionInterface(si SessionInterface) Option {
	return internal.WithSessionInterface(si)
}

// WithJSONProvider replaces the JSON provider.
func WithJSONProvider(p JSONProvider) Option {
	return internal.WithJSONProvider(p)
}

// WithTemplates loads templates from fsys.
func WithTemplates(fsys fs.FS, patterns ...string) Option {
	return internal.WithTemplates(fsys, patterns...)
}

// WithTemplateLoader sets a custom template loader.
func WithTemplateLoader(l TemplateLoader) Option {
	return internal.WithTemplateLoader(l)
}

// WithSubdomainMatching enables subdomain matching against SERVER_NAME.
func WithSubdomainMatching(enabled bool) Option {
	return internal.WithSubdomainMatching(enabled)
}

// WithHealthChecks registers liveness and readiness endpoints.
//
// Example:
//
//	flagon.WithHealthChecks(
//	    flagon.WithReadinessCheck("redis", flagon.RedisCheck(client)),
//	)
func WithHealthChecks(opts ...HealthOption) Option {
	return internal.WithHealthChecks(opts...)
}

// WithLivenessPath sets the liveness endpoint path.
func WithLivenessPath(path string) HealthOption {
	return internal.WithLivenessPath(path)
}

// WithReadinessPath sets the readiness endpoint path.
func WithReadinessPath(path string) HealthOption {
	return internal.WithReadinessPath(path)
}

// WithReadinessTimeout bounds the readiness checks.
func WithReadinessTimeout(d time.Duration) HealthOption {
	return internal.WithReadinessTimeout(d)
}

// WithReadinessCheck adds a named readiness check.
func WithReadinessCheck(name string, fn health.CheckFunc) HealthOption {
	return internal.WithReadinessCheck(name, fn)
}

// RedisCheck pings a Redis server.
func RedisCheck(client redis.UniversalClient) health.CheckFunc {
	return internal.RedisCheck(client)
}

// Route options

// EndpointName sets the endpoint of a rule.
func EndpointName(name string) RouteOption {
	return internal.EndpointName(name)
}

// Methods sets the methods of a rule.
func Methods(methods ...string) RouteOption {
	return internal.Methods(methods...)
}

// Defaults sets default view arguments of a rule.
func Defaults(values map[string]string) RouteOption {
	return internal.Defaults(values)
}

// RouteSubdomain binds a rule to a subdomain.
func RouteSubdomain(subdomain string) RouteOption {
	return internal.RouteSubdomain(subdomain)
}

// AutomaticOptions turns the automatic OPTIONS answer on or off.
func AutomaticOptions(enabled bool) RouteOption {
	return internal.AutomaticOptions(enabled)
}

// Blueprint options

// URLPrefix prefixes every rule of a blueprint.
func URLPrefix(prefix string) BlueprintOption {
	return internal.URLPrefix(prefix)
}

// Subdomain binds a blueprint to a subdomain.
func Subdomain(subdomain string) BlueprintOption {
	return internal.Subdomain(subdomain)
}

// BlueprintName registers a blueprint under another name.
func BlueprintName(name string) BlueprintOption {
	return internal.BlueprintName(name)
}

// URLDefaultValues sets default view arguments for every blueprint rule.
func URLDefaultValues(values map[string]string) BlueprintOption {
	return internal.URLDefaultValues(values)
}

// URL options

// External builds an absolute URL.
func External() URLOption { return internal.External() }

// Anchor appends a fragment.
func Anchor(anchor string) URLOption { return internal.Anchor(anchor) }

// Method picks the rule matching method.
func Method(method string) URLOption { return internal.Method(method) }

// Scheme sets the scheme of an external URL.
func Scheme(scheme string) URLOption { return internal.Scheme(scheme) }

// Run options

// Address sets the listen address. Defaults to ":8080".
func Address(addr string) RunOption {
	return internal.Address(addr)
}

// Domain routes requests for host pattern to app.
func Domain(pattern string, app *App) RunOption {
	return internal.Domain(pattern, app)
}

// Mount serves app under prefix.
func Mount(prefix string, app *App) RunOption {
	return internal.Mount(prefix, app)
}

// Fallback serves requests no domain or mount matched.
func Fallback(app *App) RunOption {
	return internal.Fallback(app)
}

// Logger sets the server logger.
func Logger(l *slog.Logger) RunOption {
	return internal.Logger(l)
}

// WithContext sets the base context used for signal handling.
func WithContext(ctx context.Context) RunOption {
	return internal.WithContext(ctx)
}

// StartupHook runs fn before the server starts listening.
func StartupHook(fn func(context.Context) error) RunOption {
	return internal.StartupHook(fn)
}

// ShutdownHook runs fn during graceful shutdown.
func ShutdownHook(fn func(context.Context) error) RunOption {
	return internal.ShutdownHook(fn)
}

// ShutdownTimeout bounds graceful shutdown. Defaults to 30 seconds.
func ShutdownTimeout(d time.Duration) RunOption {
	return internal.ShutdownTimeout(d)
}
