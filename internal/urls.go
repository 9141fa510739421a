package internal

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/dmitrymomot/flagon/pkg/routing"
)

type urlOptions struct {
	scheme   string
	anchor   string
	method   string
	external bool
}

// URLOption tunes URLFor.
type URLOption func(*urlOptions)

// External builds an absolute URL including scheme and host.
func External() URLOption {
	return func(o *urlOptions) {
		o.external = true
	}
}

// Scheme sets the scheme of an external URL.
func Scheme(scheme string) URLOption {
	return func(o *urlOptions) {
		o.scheme = scheme
	}
}

// Anchor appends a fragment.
func Anchor(anchor string) URLOption {
	return func(o *urlOptions) {
		o.anchor = anchor
	}
}

// Method selects the rule of the endpoint that accepts method.
func Method(method string) URLOption {
	return func(o *urlOptions) {
		o.method = method
	}
}

// URLFor builds the URL of endpoint. Values not used by the rule become
// query arguments.
//
// Inside a request the URL is relative unless External is given, and an
// endpoint starting with "." is resolved against the blueprint of the
// current request. Outside a request an application context is required,
// SERVER_NAME must be set and URLs are always external.
//
// When no rule can build the URL, the handlers registered with
// URLBuildErrorHandler are tried in order.
//
// Example:
//
//	u, err := c.URLFor(".show", map[string]any{"id": 42, "tab": "info"})
//	// /users/42?tab=info
func (a *App) URLFor(ctx context.Context, endpoint string, values map[string]any, opts ...URLOption) (string, error) {
	var o urlOptions
	for _, opt := range opts {
		opt(&o)
	}

	var adapter *routing.Adapter
	external := o.external

	if rc, err := CurrentRequestContext(ctx); err == nil && rc.app == a {
		adapter = rc.adapter
		if strings.HasPrefix(endpoint, ".") {
			if bp := rc.request.Blueprint(); bp != "" {
				endpoint = bp + endpoint
			} else {
				endpoint = endpoint[1:]
			}
		}
		if o.scheme != "" && !external {
			return "", ErrSchemeWithoutExternal
		}
	} else {
		ac, err := CurrentAppContext(ctx)
		if err != nil {
			return "", err
		}
		if ac.app != a {
			return "", fmt.Errorf("%w: the current application context belongs to %q", ErrOutsideAppContext, ac.app.name)
		}
		target := ac.target()
		if target.adapterErr != nil {
			return "", fmt.Errorf("unable to build URLs outside an active request without SERVER_NAME configured: %w", target.adapterErr)
		}
		adapter = target.adapter
		endpoint = strings.TrimPrefix(endpoint, ".")
		external = true
	}

	values = maps.Clone(values)
	if values == nil {
		values = make(map[string]any)
	}
	a.InjectURLDefaults(endpoint, values)

	u, err := adapter.Build(endpoint, values, routing.BuildOptions{
		Method:   o.method,
		Scheme:   o.scheme,
		Anchor:   o.anchor,
		External: external,
	})
	if err != nil {
		var be *routing.BuildError
		if errors.As(err, &be) {
			return a.handleURLBuildError(be, endpoint, values)
		}
		return "", err
	}
	return u, nil
}

// InjectURLDefaults calls the URL defaults functions for endpoint: the
// global ones first, then those of its blueprints from the outermost in.
func (a *App) InjectURLDefaults(endpoint string, values map[string]any) {
	scopes := []string{""}
	if i := strings.LastIndexByte(endpoint, '.'); i >= 0 {
		for _, bp := range slices.Backward(blueprintChain(endpoint[:i])) {
			scopes = append(scopes, bp)
		}
	}
	for _, scope := range scopes {
		for _, fn := range a.urlDefaults[scope] {
			fn(endpoint, values)
		}
	}
}

func (a *App) handleURLBuildError(err *routing.BuildError, endpoint string, values map[string]any) (string, error) {
	for _, h := range a.urlBuildErrorHandlers {
		u, herr := h(err, endpoint, values)
		if herr != nil {
			var be *routing.BuildError
			if errors.As(herr, &be) {
				err = be
				continue
			}
			return "", herr
		}
		if u != "" {
			return u, nil
		}
	}
	return "", err
}
