package internal

import (
	"context"
	"net/http"

	"github.com/dmitrymomot/flagon/pkg/routing"
)

// ViewFunc handles a matched request. The returned value is converted into
// a Response by MakeResponse; a non-nil error is routed to the registered
// error handlers.
//
// Example:
//
//	func (h *Pages) show(c flagon.Context) (any, error) {
//	    page, err := h.repo.Page(c, c.Param("slug"))
//	    if err != nil {
//	        return nil, flagon.ErrNotFound("page not found", flagon.WithError(err))
//	    }
//	    return c.Render("page.html", map[string]any{"page": page})
//	}
type ViewFunc func(c Context) (any, error)

// BeforeRequestFunc runs before the view. A non-nil return value is used as
// the response and the view is not called.
type BeforeRequestFunc func(c Context) (any, error)

// AfterRequestFunc may modify or replace the response.
type AfterRequestFunc func(c Context, resp *Response) (*Response, error)

// TeardownFunc runs when the request context is popped. err is the
// unhandled error of the request, if any.
type TeardownFunc func(c Context, err error)

// AppTeardownFunc runs when the application context is popped.
type AppTeardownFunc func(ctx context.Context, err error)

// ErrorHandlerFunc converts an error into a response value.
type ErrorHandlerFunc func(c Context, err error) (any, error)

// URLValuePreprocessorFunc may modify the matched view arguments before
// before-request functions run.
type URLValuePreprocessorFunc func(endpoint string, values map[string]string)

// URLDefaultsFunc may fill in values when building a URL for endpoint.
type URLDefaultsFunc func(endpoint string, values map[string]any)

// ContextProcessorFunc returns values injected into every template. ctx is
// the request Context while a request is handled; app-wide processors also
// run with only an application context.
type ContextProcessorFunc func(ctx context.Context) map[string]any

// URLBuildErrorHandler is tried when URLFor cannot build a URL.
// A non-empty string is used as the URL. Returning a *routing.BuildError
// passes that error on to the next handler.
type URLBuildErrorHandler func(err *routing.BuildError, endpoint string, values map[string]any) (string, error)

// Middleware wraps the whole dispatch, outside of the context lifecycle.
type Middleware func(next http.Handler) http.Handler

// Handler declares routes on a router.
//
// Example:
//
//	type AuthHandler struct {
//	    repo *repository.Queries
//	}
//
//	func (h *AuthHandler) Routes(r flagon.Router) {
//	    r.GET("/login", h.showLogin)
//	    r.POST("/login", h.handleLogin)
//	}
type Handler interface {
	Routes(r Router)
}
