package internal

import (
	"net/http"
	"reflect"
	"regexp"
	"runtime"
	"strings"
)

// Router is the interface handlers use to declare routes.
// Both *App and *Blueprint implement it.
type Router interface {
	// Route registers view for rule. Without Methods the rule accepts GET.
	Route(rule string, view ViewFunc, opts ...RouteOption)

	// GET registers a view for GET (and HEAD) requests.
	GET(rule string, view ViewFunc, opts ...RouteOption)

	// POST registers a view for POST requests.
	POST(rule string, view ViewFunc, opts ...RouteOption)

	// PUT registers a view for PUT requests.
	PUT(rule string, view ViewFunc, opts ...RouteOption)

	// PATCH registers a view for PATCH requests.
	PATCH(rule string, view ViewFunc, opts ...RouteOption)

	// DELETE registers a view for DELETE requests.
	DELETE(rule string, view ViewFunc, opts ...RouteOption)
}

// routeConfig collects per-rule options.
type routeConfig struct {
	defaults         map[string]string
	automaticOptions *bool
	endpoint         string
	subdomain        string
	methods          []string
	subdomainSet     bool
}

// RouteOption configures a URL rule.
type RouteOption func(*routeConfig)

// EndpointName sets the endpoint of the rule. Without it the endpoint is
// the view function's name.
func EndpointName(name string) RouteOption {
	return func(c *routeConfig) {
		c.endpoint = name
	}
}

// Methods sets the accepted HTTP methods.
func Methods(methods ...string) RouteOption {
	return func(c *routeConfig) {
		c.methods = append(c.methods, methods...)
	}
}

// Defaults sets view arguments that the pattern does not capture.
func Defaults(values map[string]string) RouteOption {
	return func(c *routeConfig) {
		if c.defaults == nil {
			c.defaults = make(map[string]string, len(values))
		}
		for k, v := range values {
			c.defaults[k] = v
		}
	}
}

// RouteSubdomain restricts the rule to a subdomain.
func RouteSubdomain(subdomain string) RouteOption {
	return func(c *routeConfig) {
		c.subdomain = subdomain
		c.subdomainSet = true
	}
}

// AutomaticOptions overrides whether OPTIONS requests are answered by the
// framework. By default they are, unless the rule lists OPTIONS itself.
func AutomaticOptions(enabled bool) RouteOption {
	return func(c *routeConfig) {
		c.automaticOptions = &enabled
	}
}

func newRouteConfig(opts []RouteOption) *routeConfig {
	cfg := &routeConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// methodOption adds method to the methods the rule accepts.
func methodOption(method string, opts []RouteOption) []RouteOption {
	return append([]RouteOption{Methods(method)}, opts...)
}

var closureName = regexp.MustCompile(`^func\d+$`)

// endpointFromView derives an endpoint name from a named function or
// method value. Anonymous functions have no usable name.
func endpointFromView(view ViewFunc) string {
	if view == nil {
		return ""
	}
	fn := runtime.FuncForPC(reflect.ValueOf(view).Pointer())
	if fn == nil {
		return ""
	}
	name := fn.Name()
	name = strings.TrimSuffix(name, "-fm")
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	if closureName.MatchString(name) {
		return ""
	}
	return name
}

// sameView compares views by code pointer. Distinct closures created from
// one function literal compare equal.
func sameView(a, b ViewFunc) bool {
	return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
}

// GET registers a view for GET requests.
func (a *App) GET(rule string, view ViewFunc, opts ...RouteOption) {
	a.Route(rule, view, methodOption(http.MethodGet, opts)...)
}

// POST registers a view for POST requests.
func (a *App) POST(rule string, view ViewFunc, opts ...RouteOption) {
	a.Route(rule, view, methodOption(http.MethodPost, opts)...)
}

// PUT registers a view for PUT requests.
func (a *App) PUT(rule string, view ViewFunc, opts ...RouteOption) {
	a.Route(rule, view, methodOption(http.MethodPut, opts)...)
}

// PATCH registers a view for PATCH requests.
func (a *App) PATCH(rule string, view ViewFunc, opts ...RouteOption) {
	a.Route(rule, view, methodOption(http.MethodPatch, opts)...)
}

// DELETE registers a view for DELETE requests.
func (a *App) DELETE(rule string, view ViewFunc, opts ...RouteOption) {
	a.Route(rule, view, methodOption(http.MethodDelete, opts)...)
}

// Route registers view for rule.
func (a *App) Route(rule string, view ViewFunc, opts ...RouteOption) {
	a.AddURLRule(rule, "", view, opts...)
}

// GET registers a view for GET requests.
func (b *Blueprint) GET(rule string, view ViewFunc, opts ...RouteOption) {
	b.Route(rule, view, methodOption(http.MethodGet, opts)...)
}

// POST registers a view for POST requests.
func (b *Blueprint) POST(rule string, view ViewFunc, opts ...RouteOption) {
	b.Route(rule, view, methodOption(http.MethodPost, opts)...)
}

// PUT registers a view for PUT requests.
func (b *Blueprint) PUT(rule string, view ViewFunc, opts ...RouteOption) {
	b.Route(rule, view, methodOption(http.MethodPut, opts)...)
}

// PATCH registers a view for PATCH requests.
func (b *Blueprint) PATCH(rule string, view ViewFunc, opts ...RouteOption) {
	b.Route(rule, view, methodOption(http.MethodPatch, opts)...)
}

// DELETE registers a view for DELETE requests.
func (b *Blueprint) DELETE(rule string, view ViewFunc, opts ...RouteOption) {
	b.Route(rule, view, methodOption(http.MethodDelete, opts)...)
}

// Route records view for rule; it is added when the blueprint is registered.
func (b *Blueprint) Route(rule string, view ViewFunc, opts ...RouteOption) {
	b.AddURLRule(rule, "", view, opts...)
}

var (
	_ Router = (*App)(nil)
	_ Router = (*Blueprint)(nil)
)
