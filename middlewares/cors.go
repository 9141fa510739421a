package middlewares

import (
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrymomot/flagon/internal"
	"github.com/dmitrymomot/flagon/pkg/config"
)

// DefaultCORSMaxAge is how long browsers may cache a preflight answer.
const DefaultCORSMaxAge = 12 * time.Hour

// CORSConfig is the policy of the CORS extension.
//
// CORS starts from the application settings CORS_ORIGINS, CORS_METHODS,
// CORS_ALLOW_HEADERS, CORS_EXPOSE_HEADERS, CORS_SUPPORTS_CREDENTIALS and
// CORS_MAX_AGE; options given to CORS override them. List settings accept
// a []string or a comma separated string.
type CORSConfig struct {
	// AllowOrigins lists the accepted origins. "*" accepts any origin.
	AllowOrigins []string

	// AllowOriginFunc decides per origin and replaces AllowOrigins.
	AllowOriginFunc func(origin string) bool

	AllowMethods  []string
	AllowHeaders  []string
	ExposeHeaders []string

	// AllowCredentials sends Access-Control-Allow-Credentials and echoes
	// the request origin instead of "*".
	AllowCredentials bool

	// MaxAge is sent as Access-Control-Max-Age on preflight answers.
	MaxAge time.Duration
}

// defaultCORSConfig accepts any origin without credentials.
func defaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       DefaultCORSMaxAge,
	}
}

// fromSettings overrides cfg with the CORS_ application settings.
func (cfg *CORSConfig) fromSettings(settings *config.Config) error {
	lists := map[string]*[]string{
		"CORS_ORIGINS":        &cfg.AllowOrigins,
		"CORS_METHODS":        &cfg.AllowMethods,
		"CORS_ALLOW_HEADERS":  &cfg.AllowHeaders,
		"CORS_EXPOSE_HEADERS": &cfg.ExposeHeaders,
	}
	for key, dst := range lists {
		raw, ok := settings.Lookup(key)
		if !ok {
			continue
		}
		switch v := raw.(type) {
		case []string:
			*dst = slices.Clone(v)
		case string:
			*dst = splitList(v)
		case []any:
			out := make([]string, 0, len(v))
			for _, item := range v {
				out = append(out, fmt.Sprint(item))
			}
			*dst = out
		default:
			return fmt.Errorf("%w: %s is %T", config.ErrTypeMismatch, key, raw)
		}
	}
	if settings.Has("CORS_SUPPORTS_CREDENTIALS") {
		b, err := settings.Bool("CORS_SUPPORTS_CREDENTIALS")
		if err != nil {
			return err
		}
		cfg.AllowCredentials = b
	}
	if settings.Has("CORS_MAX_AGE") {
		d, err := settings.Duration("CORS_MAX_AGE")
		if err != nil {
			return err
		}
		cfg.MaxAge = d
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// CORSOption overrides one field of the policy.
type CORSOption func(*CORSConfig)

// WithAllowOrigins replaces the accepted origins.
func WithAllowOrigins(origins ...string) CORSOption {
	return func(cfg *CORSConfig) { cfg.AllowOrigins = origins }
}

// WithAllowOriginFunc decides per origin, ignoring the origin list.
func WithAllowOriginFunc(fn func(origin string) bool) CORSOption {
	return func(cfg *CORSConfig) { cfg.AllowOriginFunc = fn }
}

// WithAllowMethods replaces the methods announced on preflight.
func WithAllowMethods(methods ...string) CORSOption {
	return func(cfg *CORSConfig) { cfg.AllowMethods = methods }
}

// WithAllowHeaders replaces the request headers announced on preflight.
func WithAllowHeaders(headers ...string) CORSOption {
	return func(cfg *CORSConfig) { cfg.AllowHeaders = headers }
}

// WithExposeHeaders lists response headers scripts may read.
func WithExposeHeaders(headers ...string) CORSOption {
	return func(cfg *CORSConfig) { cfg.ExposeHeaders = headers }
}

// WithAllowCredentials lets browsers send cookies cross-origin.
func WithAllowCredentials() CORSOption {
	return func(cfg *CORSConfig) { cfg.AllowCredentials = true }
}

// WithMaxAge sets how long a preflight answer may be cached.
func WithMaxAge(duration time.Duration) CORSOption {
	return func(cfg *CORSConfig) { cfg.MaxAge = duration }
}

// CORS returns an extension handling Cross-Origin Resource Sharing.
// Preflight requests from accepted origins are answered with 204 before
// the view runs; every response to an accepted origin gets the CORS headers.
//
// Example:
//
//	app := flagon.New(
//	    flagon.WithConfig(map[string]any{"CORS_ORIGINS": "https://app.acme.com"}),
//	    flagon.WithExtensions(middlewares.CORS(middlewares.WithAllowCredentials())),
//	)
func CORS(opts ...CORSOption) internal.Extension {
	return internal.ExtensionFunc(func(app *internal.App) error {
		cfg := defaultCORSConfig()
		if err := cfg.fromSettings(app.Config()); err != nil {
			return fmt.Errorf("cors: %w", err)
		}
		for _, opt := range opts {
			opt(&cfg)
		}
		p := newCORSPolicy(&cfg)
		app.Extensions().Set("cors", &cfg)
		app.BeforeRequest(p.preflight)
		app.AfterRequest(p.decorate)
		return nil
	})
}

type corsPolicy struct {
	cfg           *CORSConfig
	allowMethods  string
	allowHeaders  string
	exposeHeaders string
	maxAge        string
	hasWildcard   bool
}

func newCORSPolicy(cfg *CORSConfig) *corsPolicy {
	return &corsPolicy{
		cfg:           cfg,
		allowMethods:  strings.Join(cfg.AllowMethods, ", "),
		allowHeaders:  strings.Join(cfg.AllowHeaders, ", "),
		exposeHeaders: strings.Join(cfg.ExposeHeaders, ", "),
		maxAge:        strconv.Itoa(int(cfg.MaxAge.Seconds())),
		hasWildcard:   slices.Contains(cfg.AllowOrigins, "*"),
	}
}

// preflight short-circuits OPTIONS requests that carry
// Access-Control-Request-Method.
func (p *corsPolicy) preflight(c internal.Context) (any, error) {
	r := c.Request()
	if r.Method != http.MethodOptions || r.Header.Get("Access-Control-Request-Method") == "" {
		return nil, nil
	}
	origin := r.Header.Get("Origin")
	if origin == "" || !p.allowed(origin) {
		return nil, nil
	}

	resp := internal.NewResponse(nil, http.StatusNoContent, "")
	resp.AddVary("Access-Control-Request-Method", "Access-Control-Request-Headers")
	resp.Header.Set("Access-Control-Allow-Methods", p.allowMethods)
	resp.Header.Set("Access-Control-Allow-Headers", p.allowHeaders)
	if p.cfg.MaxAge > 0 {
		resp.Header.Set("Access-Control-Max-Age", p.maxAge)
	}
	return resp, nil
}

// decorate adds the origin headers. Responses to other origins are left
// alone and the browser blocks them.
func (p *corsPolicy) decorate(c internal.Context, resp *internal.Response) (*internal.Response, error) {
	origin := c.Header("Origin")
	if origin == "" || !p.allowed(origin) {
		return resp, nil
	}

	resp.AddVary("Origin")
	if p.cfg.AllowCredentials || !p.hasWildcard {
		resp.Header.Set("Access-Control-Allow-Origin", origin)
	} else {
		resp.Header.Set("Access-Control-Allow-Origin", "*")
	}
	if p.cfg.AllowCredentials {
		resp.Header.Set("Access-Control-Allow-Credentials", "true")
	}
	if p.exposeHeaders != "" {
		resp.Header.Set("Access-Control-Expose-Headers", p.exposeHeaders)
	}
	return resp, nil
}

// allowed applies AllowOriginFunc, which replaces AllowOrigins when set.
func (p *corsPolicy) allowed(origin string) bool {
	if p.cfg.AllowOriginFunc != nil {
		return p.cfg.AllowOriginFunc(origin)
	}
	return p.hasWildcard || slices.Contains(p.cfg.AllowOrigins, origin)
}
