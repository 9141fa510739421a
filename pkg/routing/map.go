package routing

import (
	"fmt"
	"net/http"
	"slices"
	"sync"

	"github.com/go-chi/chi/v5"
)

// standardMethods is the order used to compute allowed methods.
var standardMethods = []string{
	http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
	http.MethodPatch, http.MethodDelete, http.MethodOptions,
	http.MethodConnect, http.MethodTrace,
}

type routeKey struct {
	subdomain string
	pattern   string
	method    string
}

// Map is the set of URL rules of an application.
// It is safe for concurrent use; rules are normally added during setup only.
type Map struct {
	byEndpoint    map[string][]*Rule
	byRoute       map[routeKey]*Rule
	muxes         map[string]*chi.Mux
	rules         []*Rule
	methods       []string
	redirectCode  int
	mu            sync.RWMutex
	strictSlashes bool
}

// MapOption configures a Map.
type MapOption func(*Map)

// WithRedirectCode sets the status used for slash redirects. Defaults to 308.
func WithRedirectCode(code int) MapOption {
	return func(m *Map) {
		if code >= 300 && code < 400 {
			m.redirectCode = code
		}
	}
}

// WithStrictSlashes toggles redirects from "/path" to "/path/" when only
// the latter is routed. Enabled by default.
func WithStrictSlashes(strict bool) MapOption {
	return func(m *Map) {
		m.strictSlashes = strict
	}
}

// NewMap creates an empty map.
func NewMap(opts ...MapOption) *Map {
	m := &Map{
		byEndpoint:    make(map[string][]*Rule),
		byRoute:       make(map[routeKey]*Rule),
		muxes:         make(map[string]*chi.Mux),
		redirectCode:  http.StatusPermanentRedirect,
		strictSlashes: true,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Add validates rule and makes it matchable. When two rules share a
// pattern and method, the first one added wins for matching; both remain
// available for URL building.
func (m *Map) Add(rule *Rule) (err error) {
	if rule == nil {
		return fmt.Errorf("%w: nil rule", ErrInvalidRule)
	}
	if err := rule.normalize(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	mux, ok := m.muxes[rule.Subdomain]
	if !ok {
		mux = chi.NewMux()
		m.muxes[rule.Subdomain] = mux
	}

	// chi reports malformed patterns by panicking.
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", ErrInvalidRule, rec)
		}
	}()

	for _, method := range rule.Methods {
		key := routeKey{subdomain: rule.Subdomain, pattern: rule.Pattern, method: method}
		if _, exists := m.byRoute[key]; exists {
			continue
		}
		if !slices.Contains(standardMethods, method) {
			chi.RegisterMethod(method)
		}
		mux.MethodFunc(method, rule.Pattern, http.NotFound)
		m.byRoute[key] = rule
		if !slices.Contains(m.methods, method) {
			m.methods = append(m.methods, method)
		}
	}

	m.rules = append(m.rules, rule)
	m.byEndpoint[rule.Endpoint] = append(m.byEndpoint[rule.Endpoint], rule)
	return nil
}

// Rules returns all rules in the order they were added.
func (m *Map) Rules() []*Rule {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.rules)
}

// RulesFor returns the rules registered for endpoint.
func (m *Map) RulesFor(endpoint string) []*Rule {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.byEndpoint[endpoint])
}

// HasEndpoint reports whether any rule targets endpoint.
func (m *Map) HasEndpoint(endpoint string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byEndpoint[endpoint]) > 0
}

// find returns the rule matching method and path on the subdomain mux.
func (m *Map) find(subdomain, method, path string) (*Rule, map[string]string) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	mux, ok := m.muxes[subdomain]
	if !ok {
		return nil, nil
	}

	rctx := chi.NewRouteContext()
	pattern := mux.Find(rctx, method, path)
	if pattern == "" {
		return nil, nil
	}
	rule, ok := m.byRoute[routeKey{subdomain: subdomain, pattern: pattern, method: method}]
	if !ok {
		return nil, nil
	}

	args := make(map[string]string, len(rctx.URLParams.Keys)+len(rule.Defaults))
	for i, k := range rctx.URLParams.Keys {
		args[k] = rctx.URLParams.Values[i]
	}
	for k, v := range rule.Defaults {
		if _, ok := args[k]; !ok {
			args[k] = v
		}
	}
	return rule, args
}

// allowed lists the methods matching path on the subdomain mux.
func (m *Map) allowed(subdomain, path string) []string {
	m.mu.RLock()
	methods := slices.Clone(m.methods)
	m.mu.RUnlock()

	var out []string
	for _, method := range methods {
		if rule, _ := m.find(subdomain, method, path); rule != nil {
			out = append(out, method)
		}
	}
	slices.Sort(out)
	return out
}
