package flagon

import (
	"context"
	"io"
	"io/fs"
	"net/http"

	"github.com/dmitrymomot/flagon/internal"
	"github.com/dmitrymomot/flagon/pkg/logger"
	"github.com/dmitrymomot/flagon/pkg/session"
)

// Type aliases - public API
type (
	// App is the central registry of views, hooks and configuration.
	App = internal.App

	// Blueprint groups routes and hooks that are registered on an App later.
	Blueprint = internal.Blueprint

	// Router is the interface handlers use to declare routes. Both App and
	// Blueprint implement it.
	Router = internal.Router

	// Context is passed to views and hooks. It is also a context.Context.
	Context = internal.Context

	// Handler declares routes on a router.
	Handler = internal.Handler

	// ViewFunc handles a matched request.
	ViewFunc = internal.ViewFunc

	// BeforeRequestFunc runs before the view; a non-nil value short-circuits it.
	BeforeRequestFunc = internal.BeforeRequestFunc

	// AfterRequestFunc may modify or replace the response.
	AfterRequestFunc = internal.AfterRequestFunc

	// TeardownFunc runs when a request context is popped.
	TeardownFunc = internal.TeardownFunc

	// AppTeardownFunc runs when an application context is popped.
	AppTeardownFunc = internal.AppTeardownFunc

	// ErrorHandlerFunc converts an error into a response value.
	ErrorHandlerFunc = internal.ErrorHandlerFunc

	// ContextProcessorFunc injects values into every template.
	ContextProcessorFunc = internal.ContextProcessorFunc

	// URLValuePreprocessorFunc may modify matched view arguments.
	URLValuePreprocessorFunc = internal.URLValuePreprocessorFunc

	// URLDefaultsFunc may fill in values when building URLs.
	URLDefaultsFunc = internal.URLDefaultsFunc

	// URLBuildErrorHandler is tried when URLFor cannot build a URL.
	URLBuildErrorHandler = internal.URLBuildErrorHandler

	// Middleware wraps the whole dispatch at the net/http level.
	Middleware = internal.Middleware

	// Option configures the application.
	Option = internal.Option

	// RunOption configures the server runtime.
	RunOption = internal.RunOption

	// RouteOption configures a URL rule.
	RouteOption = internal.RouteOption

	// BlueprintOption configures a blueprint or its registration.
	BlueprintOption = internal.BlueprintOption

	// URLOption configures URLFor.
	URLOption = internal.URLOption

	// HealthOption configures health check endpoints.
	HealthOption = internal.HealthOption

	// SetupState is passed to deferred blueprint setup functions.
	SetupState = internal.SetupState

	// SetupAction is a deferred blueprint setup function.
	SetupAction = internal.SetupAction

	// FormDataRoutingRedirect is raised in debug mode when a strict-slash
	// redirect would drop a request body.
	FormDataRoutingRedirect = internal.FormDataRoutingRedirect

	// AppContext binds an App and its globals to a context.
	AppContext = internal.AppContext

	// RequestContext holds the state of one request.
	RequestContext = internal.RequestContext

	// Globals is the per-application-context namespace known as g.
	Globals = internal.Globals

	// Request is the incoming request with routing information.
	Request = internal.Request

	// Response is the response object views and hooks work with.
	Response = internal.Response

	// ResponseWriter records the status and size of what was written.
	ResponseWriter = internal.ResponseWriter

	// Tuple carries a body with a status and/or headers.
	Tuple = internal.Tuple

	// Component is a renderable view value such as a templ component.
	Component = internal.Component

	// HTTPError is an error that renders as an HTTP response.
	HTTPError = internal.HTTPError

	// HTTPErrorOption configures an HTTPError.
	HTTPErrorOption = internal.HTTPErrorOption

	// PanicError wraps a value recovered from a panicking view or hook.
	PanicError = internal.PanicError

	// SetupError is panicked by setup methods called at the wrong time.
	SetupError = internal.SetupError

	// ErrorKind selects error handlers by error type.
	ErrorKind = internal.ErrorKind

	// Signals are the notifications an App emits.
	Signals = internal.Signals

	// TemplateEvent is the payload of the template signals.
	TemplateEvent = internal.TemplateEvent

	// TemplateLoader provides the template set views render from.
	TemplateLoader = internal.TemplateLoader

	// FSLoader loads html/template files from a file system.
	FSLoader = internal.FSLoader

	// FlashMessage is a message stored for the next request.
	FlashMessage = internal.FlashMessage

	// JSONProvider encodes and decodes JSON for an App.
	JSONProvider = internal.JSONProvider

	// DefaultJSONProvider is the encoding/json based provider.
	DefaultJSONProvider = internal.DefaultJSONProvider

	// SessionInterface opens and saves sessions.
	SessionInterface = internal.SessionInterface

	// SecureCookieSessionInterface keeps the session in a signed cookie.
	SecureCookieSessionInterface = internal.SecureCookieSessionInterface

	// ServerSideSessionInterface keeps the session in a Store.
	ServerSideSessionInterface = internal.ServerSideSessionInterface

	// Session is the per-user key/value store.
	Session = session.Session

	// SessionStore persists server-side sessions.
	SessionStore = session.Store

	// Extension adds behaviour to an application.
	Extension = internal.Extension

	// ExtensionFunc adapts a function to Extension.
	ExtensionFunc = internal.ExtensionFunc

	// Extensions stores per-application extension state.
	Extensions = internal.Extensions

	// Extractor tries sources in order and returns the first value found.
	Extractor = internal.Extractor

	// ExtractorSource reads one value from a request.
	ExtractorSource = internal.ExtractorSource

	// TestClient sends requests to an App without a network.
	TestClient = internal.TestClient

	// ContextExtractor extracts a slog attribute from context.
	// Used with WithLogger to add request-scoped values to logs.
	ContextExtractor = logger.ContextExtractor

	// SentryConfig configures Sentry error reporting.
	SentryConfig = logger.SentryConfig
)

// DefaultMimetype is the content type of string responses.
const DefaultMimetype = internal.DefaultMimetype

// AnyError selects handlers for every error.
var AnyError = internal.AnyError

// Errors returned (or panicked inside a SetupError) by the framework.
var (
	ErrOutsideAppContext     = internal.ErrOutsideAppContext
	ErrOutsideRequestContext = internal.ErrOutsideRequestContext
	ErrContextMismatch       = internal.ErrContextMismatch
	ErrContextNotPushed      = internal.ErrContextNotPushed
	ErrGlobalNotFound        = internal.ErrGlobalNotFound
	ErrGlobalType            = internal.ErrGlobalType
	ErrSetupFinished         = internal.ErrSetupFinished
	ErrBlueprintRegistered   = internal.ErrBlueprintRegistered
	ErrEmptyEndpoint         = internal.ErrEmptyEndpoint
	ErrEndpointOverwrite     = internal.ErrEndpointOverwrite
	ErrInvalidEndpoint       = internal.ErrInvalidEndpoint
	ErrBlueprintName         = internal.ErrBlueprintName
	ErrInvalidErrorKey       = internal.ErrInvalidErrorKey
	ErrNoViewFunction        = internal.ErrNoViewFunction
	ErrInvalidResponse       = internal.ErrInvalidResponse
	ErrNullSession           = internal.ErrNullSession
	ErrSchemeWithoutExternal = internal.ErrSchemeWithoutExternal
	ErrTemplateNotFound      = internal.ErrTemplateNotFound
	ErrNoTemplates           = internal.ErrNoTemplates
	ErrMissingKey            = internal.ErrMissingKey
	ErrNoApps                = internal.ErrNoApps
)

// Constructors

// New creates an application with the given options.
//
// Example:
//
//	app := flagon.New(
//	    flagon.WithName("shop"),
//	    flagon.WithSecretKey(os.Getenv("SECRET_KEY")),
//	    flagon.WithHandlers(handlers.NewPages(repo)),
//	)
//
//	err := app.Run(flagon.Address(":8080"))
func New(opts ...Option) *App {
	return internal.New(opts...)
}

// NewBlueprint creates a blueprint. The name must be non-empty and may
// not contain a dot.
//
// Example:
//
//	admin := flagon.NewBlueprint("admin", flagon.URLPrefix("/admin"))
//	admin.GET("/", dashboard)
//	app.RegisterBlueprint(admin)
func NewBlueprint(name string, opts ...BlueprintOption) *Blueprint {
	return internal.NewBlueprint(name, opts...)
}

// Run serves several applications from one server and blocks until
// shutdown.
//
// Example:
//
//	err := flagon.Run(
//	    flagon.Domain("api.acme.com", api),
//	    flagon.Mount("/admin", admin),
//	    flagon.Fallback(site),
//	    flagon.Address(":8080"),
//	)
func Run(opts ...RunOption) error {
	return internal.Run(opts...)
}

// NewResponse creates a response with body, status and content type.
// An empty content type means DefaultMimetype.
func NewResponse(body []byte, status int, contentType string) *Response {
	return internal.NewResponse(body, status, contentType)
}

// NewStreamResponse creates a response whose body is written by fn.
func NewStreamResponse(fn func(w io.Writer) error, status int, contentType string) *Response {
	return internal.NewStreamResponse(fn, status, contentType)
}

// Redirect creates a redirect response. The code defaults to 302.
func Redirect(location string, code ...int) *Response {
	return internal.Redirect(location, code...)
}

// WithStatus pairs a body with a status code or status line.
func WithStatus(body, status any) Tuple {
	return internal.WithStatus(body, status)
}

// WithHeaders pairs a body with extra headers.
func WithHeaders(body any, headers http.Header) Tuple {
	return internal.WithHeaders(body, headers)
}

// WithStatusHeaders pairs a body with a status and headers.
func WithStatusHeaders(body, status any, headers http.Header) Tuple {
	return internal.WithStatusHeaders(body, status, headers)
}

// NewSecureCookieSessionInterface returns the default session interface.
func NewSecureCookieSessionInterface() *SecureCookieSessionInterface {
	return internal.NewSecureCookieSessionInterface()
}

// NewServerSideSessionInterface creates a session interface backed by store.
//
// Example:
//
//	store := session.NewRedisStore(client)
//	flagon.WithSessionInterface(flagon.NewServerSideSessionInterface(store))
func NewServerSideSessionInterface(store SessionStore) *ServerSideSessionInterface {
	return internal.NewServerSideSessionInterface(store)
}

// NewFSLoader creates a template loader for the files of fsys matching
// patterns ("*.html" by default).
func NewFSLoader(fsys fs.FS, patterns ...string) *FSLoader {
	return internal.NewFSLoader(fsys, patterns...)
}

// NewDefaultJSONProvider creates the JSON provider an App uses by default.
func NewDefaultJSONProvider(app *App) *DefaultJSONProvider {
	return internal.NewDefaultJSONProvider(app)
}

// Context helpers

// CurrentApp returns the App of the active application context.
func CurrentApp(ctx context.Context) (*App, error) {
	return internal.CurrentApp(ctx)
}

// CurrentAppContext returns the active application context.
func CurrentAppContext(ctx context.Context) (*AppContext, error) {
	return internal.CurrentAppContext(ctx)
}

// CurrentRequestContext returns the active request context.
func CurrentRequestContext(ctx context.Context) (*RequestContext, error) {
	return internal.CurrentRequestContext(ctx)
}

// CurrentRequest returns the request of the active request context.
func CurrentRequest(ctx context.Context) (*Request, error) {
	return internal.CurrentRequest(ctx)
}

// CurrentSession returns the session of the active request context.
func CurrentSession(ctx context.Context) (*Session, error) {
	return internal.CurrentSession(ctx)
}

// G returns the globals of the active application context.
func G(ctx context.Context) (*Globals, error) {
	return internal.G(ctx)
}

// GlobalValue returns the global name as T.
//
// Example:
//
//	user, err := flagon.GlobalValue[*User](c.G(), "user")
func GlobalValue[T any](g *Globals, name string) (T, error) {
	return internal.GlobalValue[T](g, name)
}

// HasAppContext reports whether an application context is active.
func HasAppContext(ctx context.Context) bool {
	return internal.HasAppContext(ctx)
}

// HasRequestContext reports whether a request context is active.
func HasRequestContext(ctx context.Context) bool {
	return internal.HasRequestContext(ctx)
}

// CopyCurrentRequestContext returns a context that keeps the current
// request context reachable from another goroutine.
func CopyCurrentRequestContext(ctx context.Context) (context.Context, error) {
	return internal.CopyCurrentRequestContext(ctx)
}

// Flash stores a message for the next request.
func Flash(ctx context.Context, message string, category ...string) error {
	return internal.Flash(ctx, message, category...)
}

// FlashedMessages pops the flashed messages of the current request.
func FlashedMessages(ctx context.Context, categories ...string) ([]FlashMessage, error) {
	return internal.FlashedMessages(ctx, categories...)
}

// ExtensionState returns the state stored by the extension name.
func ExtensionState[T any](app *App, name string) (T, error) {
	return internal.ExtensionState[T](app, name)
}

// Param returns the view argument name converted to T.
// Returns the zero value if missing or not convertible.
//
// Example:
//
//	id := flagon.Param[int64](c, "id")
func Param[T ~string | ~int | ~int64 | ~float64 | ~bool](c Context, name string) T {
	return internal.Param[T](c, name)
}

// Query returns the query parameter name converted to T.
func Query[T ~string | ~int | ~int64 | ~float64 | ~bool](c Context, name string) T {
	return internal.Query[T](c, name)
}

// QueryDefault returns the query parameter name converted to T, or
// defaultValue when it is missing or not convertible.
func QueryDefault[T ~string | ~int | ~int64 | ~float64 | ~bool](c Context, name string, defaultValue T) T {
	return internal.QueryDefault(c, name, defaultValue)
}

// Errors

// ErrorType selects error handlers by the error type T.
//
// Example:
//
//	app.ErrorHandler(flagon.ErrorType[*ValidationError](), showForm)
func ErrorType[T error]() ErrorKind {
	return internal.ErrorType[T]()
}

// NewHTTPError creates an HTTP error with the given status.
func NewHTTPError(code int, message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.NewHTTPError(code, message, opts...)
}

// IsHTTPError reports whether err is or wraps an HTTP error.
func IsHTTPError(err error) bool {
	return internal.IsHTTPError(err)
}

// AsHTTPError extracts the HTTPError from err, or nil.
func AsHTTPError(err error) *HTTPError {
	return internal.AsHTTPError(err)
}

// StatusOf returns the HTTP status carried by err.
func StatusOf(err error) (int, bool) {
	return internal.StatusOf(err)
}

// ErrBadRequest creates a 400 error.
func ErrBadRequest(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrBadRequest(message, opts...)
}

// ErrUnauthorized creates a 401 error.
func ErrUnauthorized(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrUnauthorized(message, opts...)
}

// ErrForbidden creates a 403 error.
func ErrForbidden(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrForbidden(message, opts...)
}

// ErrNotFound creates a 404 error.
func ErrNotFound(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrNotFound(message, opts...)
}

// ErrMethodNotAllowed creates a 405 error.
func ErrMethodNotAllowed(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrMethodNotAllowed(message, opts...)
}

// ErrConflict creates a 409 error.
func ErrConflict(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrConflict(message, opts...)
}

// ErrRequestEntityTooLarge creates a 413 error.
func ErrRequestEntityTooLarge(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrRequestEntityTooLarge(message, opts...)
}

// ErrUnprocessable creates a 422 error.
func ErrUnprocessable(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrUnprocessable(message, opts...)
}

// ErrInternal creates a 500 error.
func ErrInternal(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrInternal(message, opts...)
}

// ErrServiceUnavailable creates a 503 error.
func ErrServiceUnavailable(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrServiceUnavailable(message, opts...)
}

// WithError sets the cause of an HTTP error.
func WithError(err error) HTTPErrorOption {
	return internal.WithError(err)
}

// WithTitle overrides the status text shown on the error page.
func WithTitle(title string) HTTPErrorOption {
	return internal.WithTitle(title)
}

// WithDetail adds a detail message.
func WithDetail(detail string) HTTPErrorOption {
	return internal.WithDetail(detail)
}

// WithErrorCode sets an application error code.
func WithErrorCode(code string) HTTPErrorOption {
	return internal.WithErrorCode(code)
}

// WithRequestID records the request id on the error.
func WithRequestID(id string) HTTPErrorOption {
	return internal.WithRequestID(id)
}

// WithHeader adds a header to the error response.
func WithHeader(key, value string) HTTPErrorOption {
	return internal.WithHeader(key, value)
}

// Extractors

// NewExtractor creates an extractor trying sources in order.
//
// Example:
//
//	token := flagon.NewExtractor(flagon.FromBearerToken(), flagon.FromCookie("token"))
//	v, ok := token.Extract(c)
func NewExtractor(sources ...ExtractorSource) Extractor {
	return internal.NewExtractor(sources...)
}

// FromHeader reads a request header.
func FromHeader(name string) ExtractorSource { return internal.FromHeader(name) }

// FromQuery reads a query parameter.
func FromQuery(name string) ExtractorSource { return internal.FromQuery(name) }

// FromCookie reads a cookie.
func FromCookie(name string) ExtractorSource { return internal.FromCookie(name) }

// FromParam reads a view argument.
func FromParam(name string) ExtractorSource { return internal.FromParam(name) }

// FromForm reads a form value.
func FromForm(name string) ExtractorSource { return internal.FromForm(name) }

// FromSession reads a session value.
func FromSession(key string) ExtractorSource { return internal.FromSession(key) }

// FromGlobal reads a value from g.
func FromGlobal(key string) ExtractorSource { return internal.FromGlobal(key) }

// FromBearerToken reads a Bearer token from the Authorization header.
func FromBearerToken() ExtractorSource { return internal.FromBearerToken() }

// LogExtractor adds the value found by e to log entries under key.
func LogExtractor(key string, e Extractor) ContextExtractor {
	return internal.LogExtractor(key, e)
}

// EndpointExtractor adds the matched endpoint to log entries.
func EndpointExtractor() ContextExtractor {
	return internal.EndpointExtractor()
}

// DefaultConfig returns the built-in configuration values.
func DefaultConfig() map[string]any {
	return internal.DefaultConfig()
}
