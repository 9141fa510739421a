package internal

import (
	"context"

	"github.com/dmitrymomot/flagon/pkg/ctxlocal"
	"github.com/dmitrymomot/flagon/pkg/session"
)

// The two context stacks. Application contexts may exist without a
// request (background work, tests), so they get a stack of their own.
var (
	appStack     = ctxlocal.New[*AppContext]("app context")
	requestStack = ctxlocal.New[*RequestContext]("request context")
)

// bindStacks attaches fresh slots for both stacks to ctx.
func bindStacks(ctx context.Context) context.Context {
	return requestStack.Bind(appStack.Bind(ctx))
}

// CurrentAppContext returns the active application context.
func CurrentAppContext(ctx context.Context) (*AppContext, error) {
	ac, ok := appStack.Top(ctx)
	if !ok {
		return nil, ErrOutsideAppContext
	}
	return ac, nil
}

// CurrentRequestContext returns the active request context.
func CurrentRequestContext(ctx context.Context) (*RequestContext, error) {
	rc, ok := requestStack.Top(ctx)
	if !ok {
		return nil, ErrOutsideRequestContext
	}
	return rc, nil
}

// CurrentApp returns the application of the active application context.
func CurrentApp(ctx context.Context) (*App, error) {
	ac, err := CurrentAppContext(ctx)
	if err != nil {
		return nil, err
	}
	return ac.app, nil
}

// CurrentRequest returns the request being handled.
func CurrentRequest(ctx context.Context) (*Request, error) {
	rc, err := CurrentRequestContext(ctx)
	if err != nil {
		return nil, err
	}
	return rc.request, nil
}

// CurrentSession returns the session of the request being handled,
// opening it on first use.
func CurrentSession(ctx context.Context) (*session.Session, error) {
	rc, err := CurrentRequestContext(ctx)
	if err != nil {
		return nil, err
	}
	return rc.Session(), nil
}

// G returns the globals of the active application context.
func G(ctx context.Context) (*Globals, error) {
	ac, err := CurrentAppContext(ctx)
	if err != nil {
		return nil, err
	}
	return ac.g, nil
}

// HasAppContext reports whether an application context is active.
func HasAppContext(ctx context.Context) bool {
	return appStack.Len(ctx) > 0
}

// HasRequestContext reports whether a request context is active.
func HasRequestContext(ctx context.Context) bool {
	return requestStack.Len(ctx) > 0
}

// CopyCurrentRequestContext returns a context for work that outlives the
// view, such as a goroutine started by it. The copy sees the same
// application and request contexts but owns its stacks, and it is not
// canceled when the request ends.
//
//	bg, err := flagon.CopyCurrentRequestContext(c)
//	if err != nil {
//	    return nil, err
//	}
//	go notify(bg)
func CopyCurrentRequestContext(ctx context.Context) (context.Context, error) {
	if !HasRequestContext(ctx) {
		return nil, ErrOutsideRequestContext
	}
	detached := context.WithoutCancel(ctx)
	return requestStack.Detach(appStack.Detach(detached)), nil
}
