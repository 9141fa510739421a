package dispatcher

import (
	"cmp"
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/dmitrymomot/flagon/pkg/routing"
)

type scriptNameKey struct{}

// ScriptName returns the mount prefix of the request, or "" when the
// request was not routed through a mount.
func ScriptName(r *http.Request) string {
	if v, ok := r.Context().Value(scriptNameKey{}).(string); ok {
		return v
	}
	return ""
}

type mount struct {
	handler http.Handler
	prefix  string
}

// Dispatcher routes requests to handlers by host or path prefix.
type Dispatcher struct {
	exact    map[string]http.Handler // "api.example.com" -> handler
	wildcard map[string]http.Handler // "example.com" -> handler (for *.example.com)
	fallback http.Handler
	mounts   []mount // longest prefix first
}

// Option registers a route on a Dispatcher.
type Option func(*Dispatcher)

// Host routes requests whose Host matches pattern to h.
// Patterns are case-insensitive; a leading "*." matches one subdomain level.
func Host(pattern string, h http.Handler) Option {
	return func(d *Dispatcher) {
		pattern = strings.ToLower(strings.TrimSpace(pattern))
		if pattern == "" || h == nil {
			return
		}
		if domain, ok := strings.CutPrefix(pattern, "*."); ok {
			d.wildcard[domain] = h
			return
		}
		d.exact[pattern] = h
	}
}

// Mount routes requests under prefix to h with the prefix stripped.
func Mount(prefix string, h http.Handler) Option {
	return func(d *Dispatcher) {
		prefix = "/" + strings.Trim(prefix, "/")
		if prefix == "/" || h == nil {
			return
		}
		d.mounts = append(d.mounts, mount{prefix: prefix, handler: h})
	}
}

// New creates a dispatcher. fallback may be nil.
func New(fallback http.Handler, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		exact:    make(map[string]http.Handler),
		wildcard: make(map[string]http.Handler),
		fallback: fallback,
	}
	for _, opt := range opts {
		opt(d)
	}
	slices.SortStableFunc(d.mounts, func(a, b mount) int {
		return cmp.Compare(len(b.prefix), len(a.prefix))
	})
	return d
}

// ServeHTTP implements http.Handler.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h := d.hostHandler(r.Host); h != nil {
		h.ServeHTTP(w, r)
		return
	}

	for _, m := range d.mounts {
		rest, ok := strings.CutPrefix(r.URL.Path, m.prefix)
		if !ok || (rest != "" && rest[0] != '/') {
			continue
		}
		m.handler.ServeHTTP(w, stripPrefix(r, m.prefix, rest))
		return
	}

	if d.fallback != nil {
		d.fallback.ServeHTTP(w, r)
		return
	}
	http.NotFound(w, r)
}

func (d *Dispatcher) hostHandler(host string) http.Handler {
	host = routing.NormalizeHost(host)
	if h, ok := d.exact[host]; ok {
		return h
	}
	if _, domain, ok := strings.Cut(host, "."); ok {
		if h, ok := d.wildcard[domain]; ok {
			return h
		}
	}
	return nil
}

func stripPrefix(r *http.Request, prefix, rest string) *http.Request {
	if rest == "" {
		rest = "/"
	}
	script := ScriptName(r) + prefix

	r2 := r.WithContext(context.WithValue(r.Context(), scriptNameKey{}, script))
	u := *r.URL
	u.Path = rest
	if u.RawPath != "" {
		u.RawPath = strings.TrimPrefix(u.RawPath, prefix)
		if u.RawPath == "" {
			u.RawPath = "/"
		}
	}
	r2.URL = &u
	return r2
}
