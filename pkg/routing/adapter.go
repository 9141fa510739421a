package routing

import (
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strings"
)

// invalidSubdomain never matches a mux, so requests for a foreign host
// produce NotFound.
const invalidSubdomain = "<invalid>"

// BindOptions controls how an adapter is bound to a request.
type BindOptions struct {
	// ServerName is the host (without scheme) the application serves.
	// When empty the request host is used for building external URLs.
	ServerName string

	// ScriptName is the path prefix the application is mounted under.
	ScriptName string

	// Scheme overrides the scheme used for external URLs.
	Scheme string

	// DefaultSubdomain is used when subdomain matching is off.
	DefaultSubdomain string

	// SubdomainMatching derives the subdomain from the request host.
	SubdomainMatching bool
}

// Adapter matches and builds URLs for one request (or one app context).
type Adapter struct {
	m          *Map
	host       string
	serverName string
	scriptName string
	scheme     string
	subdomain  string
	method     string
	path       string
	rawQuery   string
}

// Bind returns an adapter for r.
func (m *Map) Bind(r *http.Request, opts BindOptions) *Adapter {
	a := &Adapter{
		m:          m,
		host:       r.Host,
		serverName: opts.ServerName,
		scriptName: strings.TrimSuffix(opts.ScriptName, "/"),
		scheme:     opts.Scheme,
		subdomain:  opts.DefaultSubdomain,
		method:     r.Method,
		path:       r.URL.Path,
		rawQuery:   r.URL.RawQuery,
	}
	if a.scheme == "" {
		a.scheme = requestScheme(r)
	}
	if a.path == "" {
		a.path = "/"
	}

	if opts.SubdomainMatching && opts.ServerName != "" {
		sub, ok := SplitSubdomain(r.Host, opts.ServerName)
		if !ok {
			sub = invalidSubdomain
		}
		a.subdomain = sub
	}
	return a
}

// BindTo returns an adapter that is not tied to a request, for building
// URLs from an application context.
func (m *Map) BindTo(serverName, scriptName, scheme string) (*Adapter, error) {
	if serverName == "" {
		return nil, ErrNoServerName
	}
	if scheme == "" {
		scheme = "http"
	}
	return &Adapter{
		m:          m,
		host:       serverName,
		serverName: serverName,
		scriptName: strings.TrimSuffix(scriptName, "/"),
		scheme:     scheme,
		method:     http.MethodGet,
		path:       "/",
	}, nil
}

// Subdomain returns the subdomain the adapter matches against.
func (a *Adapter) Subdomain() string {
	return a.subdomain
}

// Match resolves the bound request. On failure the error is one of
// *RequestRedirect, *MethodNotAllowed or *NotFound.
func (a *Adapter) Match() (*Rule, map[string]string, error) {
	return a.MatchPath(a.method, a.path)
}

// MatchPath resolves method and path against the adapter's subdomain.
func (a *Adapter) MatchPath(method, path string) (*Rule, map[string]string, error) {
	method = strings.ToUpper(method)

	if rule, args := a.m.find(a.subdomain, method, path); rule != nil {
		return rule, args, nil
	}

	if allowed := a.m.allowed(a.subdomain, path); len(allowed) > 0 {
		return nil, nil, &MethodNotAllowed{Method: method, Allowed: allowed}
	}

	if a.m.strictSlashes && !strings.HasSuffix(path, "/") {
		if len(a.m.allowed(a.subdomain, path+"/")) > 0 {
			target := a.scriptName + path + "/"
			if a.rawQuery != "" {
				target += "?" + a.rawQuery
			}
			return nil, nil, &RequestRedirect{NewURL: target, Code: a.m.redirectCode}
		}
	}

	return nil, nil, &NotFound{Path: path}
}

// AllowedMethods returns the methods routed for path ("" means the bound path).
func (a *Adapter) AllowedMethods(path string) []string {
	if path == "" {
		path = a.path
	}
	return a.m.allowed(a.subdomain, path)
}

// BuildOptions tunes URL building.
type BuildOptions struct {
	// Method selects among rules of the endpoint by accepted method.
	Method string

	// Scheme forces an external URL with the given scheme.
	Scheme string

	// Anchor is appended as the URL fragment.
	Anchor string

	// External returns an absolute URL.
	External bool
}

// Build returns the URL of endpoint. Values not used by the pattern are
// appended as a query string in sorted key order.
func (a *Adapter) Build(endpoint string, values map[string]any, opts BuildOptions) (string, error) {
	for _, rule := range a.m.RulesFor(endpoint) {
		if opts.Method != "" && !rule.Allows(opts.Method) {
			continue
		}
		path, used, ok := rule.build(values)
		if !ok {
			continue
		}

		u := a.scriptName + path
		if q := queryString(values, used); q != "" {
			u += "?" + q
		}
		if opts.Anchor != "" {
			u += "#" + url.PathEscape(opts.Anchor)
		}

		external := opts.External || opts.Scheme != "" || rule.Subdomain != a.subdomain
		if !external {
			return u, nil
		}

		scheme := a.scheme
		if opts.Scheme != "" {
			scheme = opts.Scheme
		}
		return fmt.Sprintf("%s://%s%s", scheme, a.hostFor(rule.Subdomain), u), nil
	}

	return "", &BuildError{Endpoint: endpoint, Values: values, Method: opts.Method}
}

// hostFor returns the host serving subdomain.
func (a *Adapter) hostFor(subdomain string) string {
	base := a.serverName
	if base == "" {
		base = a.host
		if a.subdomain != "" && a.subdomain != invalidSubdomain {
			base = strings.TrimPrefix(base, a.subdomain+".")
		}
	}
	if subdomain == "" {
		return base
	}
	return subdomain + "." + base
}

func queryString(values map[string]any, used map[string]bool) string {
	q := url.Values{}
	for _, k := range slices.Sorted(maps.Keys(values)) {
		if used[k] {
			continue
		}
		switch v := values[k].(type) {
		case nil:
		case []string:
			for _, s := range v {
				q.Add(k, s)
			}
		case []any:
			for _, s := range v {
				q.Add(k, stringify(s))
			}
		default:
			q.Add(k, stringify(v))
		}
	}
	return q.Encode()
}
