package internal

import (
	"context"
	"log/slog"
	"maps"

	"github.com/a-h/templ"

	"github.com/dmitrymomot/flagon/pkg/routing"
	"github.com/dmitrymomot/flagon/pkg/session"
)

// Component is a renderable view value, such as a templ component.
// Views may return one; it is rendered as HTML.
type Component = templ.Component

// Context provides request access and helper methods to views and hooks.
// It also implements context.Context; the application and request
// contexts are reachable from it with CurrentApp, CurrentRequest and G.
type Context interface {
	context.Context

	// Request returns the request being handled.
	Request() *Request

	// ResponseWriter returns the writer of the response. Views that write
	// to it directly bypass MakeResponse and the after-request functions
	// only see an empty response.
	ResponseWriter() *ResponseWriter

	// App returns the application handling the request.
	App() *App

	// G returns the globals of the application context.
	G() *Globals

	// Session returns the session, opened on first use.
	Session() *session.Session

	// Param returns the view argument by name.
	// Returns empty string if the argument doesn't exist.
	Param(name string) string

	// Params returns all view arguments.
	Params() map[string]string

	// Query returns the query parameter value by name.
	Query(name string) string

	// Form returns the form value by name.
	Form(name string) string

	// Header returns the request header value by name.
	Header(name string) string

	// Endpoint returns the matched endpoint, "" when routing failed.
	Endpoint() string

	// Blueprint returns the blueprint of the matched endpoint.
	Blueprint() string

	// URLFor builds the URL of endpoint. Endpoints starting with "." are
	// relative to the current blueprint.
	URLFor(endpoint string, values map[string]any, opts ...URLOption) (string, error)

	// Flash stores a message for the next request. The category defaults
	// to "message".
	Flash(message string, category ...string) error

	// FlashedMessages pops the flashed messages, optionally filtered by
	// category. Repeated calls within a request return the same messages.
	FlashedMessages(categories ...string) ([]FlashMessage, error)

	// Render renders the named template with data merged into the
	// template context.
	Render(name string, data map[string]any) (string, error)

	// JSON encodes v with the application's JSON provider.
	JSON(v any) (*Response, error)

	// Redirect creates a redirect response, 302 unless code is given.
	Redirect(location string, code ...int) *Response

	// Error creates an HTTPError to be returned from the view.
	Error(code int, message string, opts ...HTTPErrorOption) *HTTPError

	// Logger returns the application logger with request attributes.
	Logger() *slog.Logger

	// AfterThisRequest registers a function run after this request only.
	AfterThisRequest(fn AfterRequestFunc)
}

var _ Context = (*RequestContext)(nil)

// Request returns the request being handled.
func (rc *RequestContext) Request() *Request {
	return rc.request
}

// ResponseWriter returns the writer of the response.
func (rc *RequestContext) ResponseWriter() *ResponseWriter {
	return rc.writer
}

// App returns the application.
func (rc *RequestContext) App() *App {
	return rc.app
}

// G returns the globals of the current application context.
// Outside of a pushed context a detached namespace is returned.
func (rc *RequestContext) G() *Globals {
	if ac, ok := appStack.Top(rc.ctx); ok {
		return ac.G()
	}
	return newGlobals()
}

// Adapter returns the URL adapter bound to the request.
func (rc *RequestContext) Adapter() *routing.Adapter {
	return rc.adapter
}

func (rc *RequestContext) Param(name string) string {
	return rc.request.ViewArgs[name]
}

func (rc *RequestContext) Params() map[string]string {
	return maps.Clone(rc.request.ViewArgs)
}

func (rc *RequestContext) Query(name string) string {
	return rc.request.URL.Query().Get(name)
}

func (rc *RequestContext) Form(name string) string {
	return rc.request.FormValue(name)
}

func (rc *RequestContext) Header(name string) string {
	return rc.request.Header.Get(name)
}

func (rc *RequestContext) Endpoint() string {
	return rc.request.Endpoint()
}

func (rc *RequestContext) Blueprint() string {
	return rc.request.Blueprint()
}

func (rc *RequestContext) URLFor(endpoint string, values map[string]any, opts ...URLOption) (string, error) {
	return rc.app.URLFor(rc, endpoint, values, opts...)
}

func (rc *RequestContext) Flash(message string, category ...string) error {
	return Flash(rc, message, category...)
}

func (rc *RequestContext) FlashedMessages(categories ...string) ([]FlashMessage, error) {
	return FlashedMessages(rc, categories...)
}

func (rc *RequestContext) Render(name string, data map[string]any) (string, error) {
	return rc.app.RenderTemplate(rc, name, data)
}

func (rc *RequestContext) JSON(v any) (*Response, error) {
	return rc.app.jsonProvider.Response(rc, v)
}

func (rc *RequestContext) Redirect(location string, code ...int) *Response {
	return Redirect(location, code...)
}

func (rc *RequestContext) Error(code int, message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(code, message, opts...)
}

// Logger returns the application logger with the endpoint, method and
// path of the request attached.
func (rc *RequestContext) Logger() *slog.Logger {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.logger == nil {
		rc.logger = rc.app.logger.With(
			slog.String("endpoint", rc.request.Endpoint()),
			slog.String("method", rc.request.Method),
			slog.String("path", rc.request.URL.Path),
		)
	}
	return rc.logger
}
