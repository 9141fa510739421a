package internal

import (
	"fmt"
	"html/template"
	"iter"
	"log/slog"
	"maps"
	"net/http"
	"reflect"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/flagon/pkg/config"
	"github.com/dmitrymomot/flagon/pkg/logger"
	"github.com/dmitrymomot/flagon/pkg/routing"
)

// Default server timeouts (hardcoded, opinionated).
const (
	defaultReadTimeout       = 15 * time.Second
	defaultWriteTimeout      = 30 * time.Second
	defaultIdleTimeout       = 120 * time.Second
	defaultReadHeaderTimeout = 5 * time.Second
	defaultMaxHeaderBytes    = 1 << 20 // 1MB
	defaultShutdownTimeout   = 30 * time.Second
)

// App is the central registry of an application: configuration, URL
// rules, view functions, hooks, error handlers and blueprints.
//
// Registration is only allowed until the first request is handled. After
// that the tables are read concurrently by every request and any setup
// method panics with a *SetupError.
type App struct {
	scaffold

	config           *config.Config
	urlMap           *routing.Map
	signals          *Signals
	logger           *slog.Logger
	extensions       *Extensions
	sessionInterface SessionInterface
	jsonProvider     JSONProvider
	templates        TemplateLoader
	health           *healthConfig
	handler          http.Handler

	blueprints      map[string]*Blueprint
	templateFilters template.FuncMap
	templateGlobals map[string]any

	name                  string
	blueprintOrder        []string
	teardownAppContext    []AppTeardownFunc
	urlBuildErrorHandlers []URLBuildErrorHandler
	middlewares           []Middleware
	handlers              []Handler
	pendingExtensions     []Extension

	handlerOnce       sync.Once
	gotFirstRequest   atomic.Bool
	subdomainMatching bool
}

// New creates an application with the given options.
//
// Example:
//
//	app := flagon.New(
//	    flagon.WithName("shop"),
//	    flagon.WithSecretKey(os.Getenv("SECRET_KEY")),
//	    flagon.WithHandlers(handlers.NewPages(repo)),
//	)
func New(opts ...Option) *App {
	a := &App{
		name:            "flagon",
		config:          config.New(DefaultConfig()),
		urlMap:          routing.NewMap(),
		signals:         newSignals(),
		logger:          logger.NewNope(),
		extensions:      newExtensions(),
		blueprints:      make(map[string]*Blueprint),
		templateFilters: make(template.FuncMap),
		templateGlobals: make(map[string]any),
	}
	a.scaffold = newScaffold(a.checkSetupFinished)
	a.sessionInterface = NewSecureCookieSessionInterface()
	a.jsonProvider = NewDefaultJSONProvider(a)

	for _, opt := range opts {
		opt(a)
	}

	a.logger = a.logger.With(slog.String("app", a.name))

	for _, ext := range a.pendingExtensions {
		if err := ext.Init(a); err != nil {
			panic(&SetupError{Method: "WithExtensions", Err: fmt.Errorf("%T: %w", ext, err)})
		}
	}
	a.pendingExtensions = nil

	a.registerHealth()
	for _, h := range a.handlers {
		h.Routes(a)
	}
	return a
}

// checkSetupFinished panics when called after the first request.
func (a *App) checkSetupFinished(method string) {
	if a.gotFirstRequest.Load() {
		panic(&SetupError{Method: method, Err: ErrSetupFinished})
	}
}

// AddURLRule connects a URL rule to an endpoint and its view.
//
// The endpoint defaults to the name of view. Methods default to GET; the
// rule also answers OPTIONS automatically unless PROVIDE_AUTOMATIC_OPTIONS
// is off, AutomaticOptions(false) is given or OPTIONS is listed. Binding an
// endpoint that already has a different view panics.
func (a *App) AddURLRule(pattern, endpoint string, view ViewFunc, opts ...RouteOption) {
	a.checkSetupFinished("AddURLRule")
	cfg := newRouteConfig(opts)

	if endpoint == "" {
		endpoint = cfg.endpoint
	}
	if endpoint == "" {
		endpoint = endpointFromView(view)
	}
	if endpoint == "" {
		panic(&SetupError{Method: "AddURLRule", Err: fmt.Errorf("%w: rule %q", ErrEmptyEndpoint, pattern)})
	}

	methods := make([]string, 0, len(cfg.methods)+1)
	for _, m := range cfg.methods {
		methods = append(methods, strings.ToUpper(m))
	}
	if len(methods) == 0 {
		methods = append(methods, http.MethodGet)
	}

	automatic := false
	switch {
	case cfg.automaticOptions != nil:
		automatic = *cfg.automaticOptions
	case slices.Contains(methods, http.MethodOptions):
	default:
		automatic = a.boolSetting("PROVIDE_AUTOMATIC_OPTIONS")
	}
	if automatic && !slices.Contains(methods, http.MethodOptions) {
		methods = append(methods, http.MethodOptions)
	}

	rule := &routing.Rule{
		Pattern:                 pattern,
		Endpoint:                endpoint,
		Methods:                 methods,
		Defaults:                maps.Clone(cfg.defaults),
		Subdomain:               cfg.subdomain,
		ProvideAutomaticOptions: automatic,
	}
	if view != nil {
		if old, ok := a.viewFunctions[endpoint]; ok && old != nil && !sameView(old, view) {
			panic(&SetupError{Method: "AddURLRule", Err: fmt.Errorf("%w: %s", ErrEndpointOverwrite, endpoint)})
		}
	}
	if err := a.urlMap.Add(rule); err != nil {
		panic(&SetupError{Method: "AddURLRule", Err: err})
	}
	if view != nil {
		a.viewFunctions[endpoint] = view
	}
}

// TeardownAppContext registers fn to run when an application context is
// popped. Functions run in reverse registration order.
func (a *App) TeardownAppContext(fn AppTeardownFunc) {
	a.checkSetupFinished("TeardownAppContext")
	if fn != nil {
		a.teardownAppContext = append(a.teardownAppContext, fn)
	}
}

// URLBuildErrorHandler registers fn to be tried when URLFor fails.
func (a *App) URLBuildErrorHandler(fn URLBuildErrorHandler) {
	a.checkSetupFinished("URLBuildErrorHandler")
	if fn != nil {
		a.urlBuildErrorHandlers = append(a.urlBuildErrorHandlers, fn)
	}
}

// TemplateFilter registers a template function under name. fn must be a
// function returning one value, or a value and an error.
func (a *App) TemplateFilter(name string, fn any) {
	a.checkSetupFinished("TemplateFilter")
	if name == "" || fn == nil {
		return
	}
	if t := reflect.TypeOf(fn); t.Kind() != reflect.Func || t.NumOut() == 0 || t.NumOut() > 2 {
		panic(&SetupError{Method: "TemplateFilter", Err: fmt.Errorf("filter %q is a %T, not a template function", name, fn)})
	}
	a.templateFilters[name] = fn
}

// TemplateGlobal makes value available to every template under name.
func (a *App) TemplateGlobal(name string, value any) {
	a.checkSetupFinished("TemplateGlobal")
	if name == "" {
		return
	}
	a.templateGlobals[name] = value
}

// Use appends HTTP middleware around the dispatch. Extensions use it from
// Init; the first middleware added is the outermost.
func (a *App) Use(mw ...Middleware) {
	a.checkSetupFinished("Use")
	for _, m := range mw {
		if m != nil {
			a.middlewares = append(a.middlewares, m)
		}
	}
}

// RegisterBlueprint registers bp on the application. Options given here
// override the ones bp was created with.
//
// Example:
//
//	admin := flagon.NewBlueprint("admin", flagon.URLPrefix("/admin"))
//	admin.GET("/", dashboard)
//	app.RegisterBlueprint(admin)
func (a *App) RegisterBlueprint(bp *Blueprint, opts ...BlueprintOption) {
	a.checkSetupFinished("RegisterBlueprint")
	if bp == nil {
		return
	}
	if err := bp.register(a, newBlueprintOptions(opts)); err != nil {
		panic(&SetupError{Method: "RegisterBlueprint", Blueprint: bp.name, Err: err})
	}
}

// Blueprints returns the registered blueprints by dotted name.
func (a *App) Blueprints() map[string]*Blueprint {
	return maps.Clone(a.blueprints)
}

// IterBlueprints yields the registered blueprints in registration order.
func (a *App) IterBlueprints() iter.Seq2[string, *Blueprint] {
	return func(yield func(string, *Blueprint) bool) {
		for _, name := range a.blueprintOrder {
			if !yield(name, a.blueprints[name]) {
				return
			}
		}
	}
}

// Name returns the application name.
func (a *App) Name() string {
	return a.name
}

// Config returns the configuration store.
func (a *App) Config() *config.Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// Signals returns the notification channels of the application.
func (a *App) Signals() *Signals {
	return a.signals
}

// Extensions returns the extension state bag.
func (a *App) Extensions() *Extensions {
	return a.extensions
}

// URLMap returns the URL rules of the application.
func (a *App) URLMap() *routing.Map {
	return a.urlMap
}

// JSONProvider returns the JSON encoder of the application.
func (a *App) JSONProvider() JSONProvider {
	return a.jsonProvider
}

// GotFirstRequest reports whether the application has started serving.
func (a *App) GotFirstRequest() bool {
	return a.gotFirstRequest.Load()
}

// ServeHTTP dispatches the request through the application middleware.
// Errors returned in propagation mode are re-panicked so a test server or
// a recovering middleware sees them; any other failure is logged.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handlerOnce.Do(a.buildHandler)
	a.handler.ServeHTTP(w, r)
}

// buildHandler freezes the middleware chain, so setup ends here even when
// a middleware answers without reaching dispatch.
func (a *App) buildHandler() {
	a.gotFirstRequest.Store(true)
	var h http.Handler = http.HandlerFunc(a.serve)
	for _, mw := range slices.Backward(a.middlewares) {
		h = mw(h)
	}
	a.handler = h
}

func (a *App) serve(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w)
	propagated, err := a.dispatch(rw, r)
	if err == nil {
		return
	}
	if propagated {
		panic(err)
	}
	a.logger.ErrorContext(r.Context(), "request failed",
		slog.Any("error", err),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)
	if !rw.Written() {
		http.Error(rw, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
