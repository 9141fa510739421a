package internal

import (
	"fmt"
	"maps"
	"strings"
)

// Blueprint groups views, hooks and error handlers that are registered on
// an application later, possibly several times under different names or
// URL prefixes. Hooks registered on a blueprint only apply to requests
// whose endpoint belongs to it or to one of its nested blueprints.
//
// Example:
//
//	api := flagon.NewBlueprint("api", flagon.URLPrefix("/api"))
//	api.BeforeRequest(requireToken)
//	api.GET("/users/{id}", showUser)
//
//	app.RegisterBlueprint(api)
//	// endpoint "api.showUser" is served at /api/users/{id}
type Blueprint struct {
	scaffold

	urlPrefix *string
	subdomain *string
	urlValues map[string]string

	name     string
	deferred []SetupAction
	children []childBlueprint

	registered bool
}

type childBlueprint struct {
	bp   *Blueprint
	opts *blueprintOptions
}

// SetupAction is run when a blueprint is registered on an application.
type SetupAction func(s *SetupState)

// SetupState is what a SetupAction sees of one registration.
type SetupState struct {
	// App is the application the blueprint is registered on.
	App *App

	// Blueprint is the blueprint being registered.
	Blueprint *Blueprint

	// URLDefaults are view arguments added to every rule of the blueprint.
	URLDefaults map[string]string

	// Name is the dotted name the blueprint is registered under.
	Name string

	// URLPrefix is prepended to every rule; "" means none.
	URLPrefix string

	// Subdomain is the default subdomain of every rule.
	Subdomain string

	// FirstRegistration is set the first time the blueprint is
	// registered on App.
	FirstRegistration bool
}

// AddURLRule adds a rule for the blueprint to the application. The
// endpoint is prefixed with the blueprint name and the rule with the URL
// prefix.
func (s *SetupState) AddURLRule(pattern, endpoint string, view ViewFunc, opts ...RouteOption) {
	if s.URLPrefix != "" {
		if pattern != "" {
			pattern = strings.TrimRight(s.URLPrefix, "/") + "/" + strings.TrimLeft(pattern, "/")
		} else {
			pattern = s.URLPrefix
		}
	}

	cfg := newRouteConfig(opts)
	if endpoint == "" {
		endpoint = cfg.endpoint
	}
	if endpoint == "" {
		endpoint = endpointFromView(view)
	}

	defaults := maps.Clone(s.URLDefaults)
	if defaults == nil {
		defaults = make(map[string]string, len(cfg.defaults))
	}
	maps.Copy(defaults, cfg.defaults)

	ruleOpts := append([]RouteOption{}, opts...)
	ruleOpts = append(ruleOpts, func(c *routeConfig) {
		c.defaults = defaults
		if !c.subdomainSet {
			c.subdomain = s.Subdomain
		}
	})
	s.App.AddURLRule(pattern, s.Name+"."+endpoint, view, ruleOpts...)
}

// BlueprintOption configures a blueprint or one registration of it.
type BlueprintOption func(*blueprintOptions)

type blueprintOptions struct {
	urlPrefix   *string
	subdomain   *string
	urlDefaults map[string]string
	name        string
	namePrefix  string
}

func newBlueprintOptions(opts []BlueprintOption) *blueprintOptions {
	o := &blueprintOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *blueprintOptions) clone() *blueprintOptions {
	c := *o
	c.urlDefaults = maps.Clone(o.urlDefaults)
	return &c
}

// URLPrefix mounts the rules of a blueprint under prefix.
func URLPrefix(prefix string) BlueprintOption {
	return func(o *blueprintOptions) {
		o.urlPrefix = &prefix
	}
}

// Subdomain serves the rules of a blueprint on a subdomain.
func Subdomain(subdomain string) BlueprintOption {
	return func(o *blueprintOptions) {
		o.subdomain = &subdomain
	}
}

// URLDefaultValues adds view arguments to every rule of a blueprint.
func URLDefaultValues(values map[string]string) BlueprintOption {
	return func(o *blueprintOptions) {
		if o.urlDefaults == nil {
			o.urlDefaults = make(map[string]string, len(values))
		}
		maps.Copy(o.urlDefaults, values)
	}
}

// BlueprintName registers a blueprint under another name, so that one
// blueprint can be registered more than once.
func BlueprintName(name string) BlueprintOption {
	return func(o *blueprintOptions) {
		o.name = name
	}
}

// NewBlueprint creates a blueprint. The name must not be empty or contain
// a dot; it prefixes the endpoints of the blueprint.
func NewBlueprint(name string, opts ...BlueprintOption) *Blueprint {
	if err := validBlueprintName(name); err != nil {
		panic(&SetupError{Method: "NewBlueprint", Blueprint: name, Err: err})
	}
	o := newBlueprintOptions(opts)
	b := &Blueprint{
		name:      name,
		urlPrefix: o.urlPrefix,
		subdomain: o.subdomain,
		urlValues: o.urlDefaults,
	}
	b.scaffold = newScaffold(b.checkRegistered)
	return b
}

func validBlueprintName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name must not be empty", ErrBlueprintName)
	}
	if strings.Contains(name, ".") {
		return fmt.Errorf("%w: %q must not contain a dot", ErrBlueprintName, name)
	}
	return nil
}

// Name returns the name the blueprint was created with.
func (b *Blueprint) Name() string {
	return b.name
}

func (b *Blueprint) checkRegistered(method string) {
	if b.registered {
		panic(&SetupError{Method: method, Blueprint: b.name, Err: ErrBlueprintRegistered})
	}
}

// Record adds an action that runs every time the blueprint is registered.
func (b *Blueprint) Record(action SetupAction) {
	b.checkRegistered("Record")
	if action != nil {
		b.deferred = append(b.deferred, action)
	}
}

// RecordOnce adds an action that runs on the first registration of the
// blueprint on an application only.
func (b *Blueprint) RecordOnce(action SetupAction) {
	b.checkRegistered("RecordOnce")
	if action == nil {
		return
	}
	b.deferred = append(b.deferred, func(s *SetupState) {
		if s.FirstRegistration {
			action(s)
		}
	})
}

// AddURLRule records a rule. It is added to the application with the
// blueprint's prefix when the blueprint is registered.
func (b *Blueprint) AddURLRule(pattern, endpoint string, view ViewFunc, opts ...RouteOption) {
	b.checkRegistered("AddURLRule")
	cfg := newRouteConfig(opts)
	if endpoint == "" {
		endpoint = cfg.endpoint
	}
	if endpoint == "" {
		endpoint = endpointFromView(view)
	}
	if endpoint == "" {
		panic(&SetupError{Method: "AddURLRule", Blueprint: b.name, Err: fmt.Errorf("%w: rule %q", ErrEmptyEndpoint, pattern)})
	}
	if strings.Contains(endpoint, ".") {
		panic(&SetupError{Method: "AddURLRule", Blueprint: b.name, Err: fmt.Errorf("%w: %q", ErrInvalidEndpoint, endpoint)})
	}
	b.Record(func(s *SetupState) {
		s.AddURLRule(pattern, endpoint, view, opts...)
	})
}

// Endpoint binds view to an endpoint of the blueprint without a URL rule.
func (b *Blueprint) Endpoint(endpoint string, view ViewFunc) {
	b.checkRegistered("Endpoint")
	if strings.Contains(endpoint, ".") {
		panic(&SetupError{Method: "Endpoint", Blueprint: b.name, Err: fmt.Errorf("%w: %q", ErrInvalidEndpoint, endpoint)})
	}
	b.scaffold.Endpoint(endpoint, view)
}

// RegisterBlueprint nests child under b. The child's name, URL prefix and
// subdomain are joined with the ones b is registered with.
func (b *Blueprint) RegisterBlueprint(child *Blueprint, opts ...BlueprintOption) {
	b.checkRegistered("RegisterBlueprint")
	if child == nil {
		return
	}
	if child == b {
		panic(&SetupError{Method: "RegisterBlueprint", Blueprint: b.name,
			Err: fmt.Errorf("%w: cannot register a blueprint on itself", ErrBlueprintName)})
	}
	b.children = append(b.children, childBlueprint{bp: child, opts: newBlueprintOptions(opts)})
}

// AppBeforeRequest registers fn for every request of the application.
func (b *Blueprint) AppBeforeRequest(fn BeforeRequestFunc) {
	b.RecordOnce(func(s *SetupState) { s.App.BeforeRequest(fn) })
}

// AppAfterRequest registers fn for every request of the application.
func (b *Blueprint) AppAfterRequest(fn AfterRequestFunc) {
	b.RecordOnce(func(s *SetupState) { s.App.AfterRequest(fn) })
}

// AppTeardownRequest registers fn for every request of the application.
func (b *Blueprint) AppTeardownRequest(fn TeardownFunc) {
	b.RecordOnce(func(s *SetupState) { s.App.TeardownRequest(fn) })
}

// AppErrorHandler registers an application-wide error handler.
func (b *Blueprint) AppErrorHandler(key any, fn ErrorHandlerFunc) {
	if _, _, err := classifyErrorKey(key); err != nil {
		panic(&SetupError{Method: "AppErrorHandler", Blueprint: b.name, Err: err})
	}
	b.RecordOnce(func(s *SetupState) { s.App.ErrorHandler(key, fn) })
}

// AppContextProcessor registers an application-wide context processor.
func (b *Blueprint) AppContextProcessor(fn ContextProcessorFunc) {
	b.RecordOnce(func(s *SetupState) { s.App.ContextProcessor(fn) })
}

// AppURLValuePreprocessor registers an application-wide URL value
// preprocessor.
func (b *Blueprint) AppURLValuePreprocessor(fn URLValuePreprocessorFunc) {
	b.RecordOnce(func(s *SetupState) { s.App.URLValuePreprocessor(fn) })
}

// AppURLDefaults registers an application-wide URL defaults function.
func (b *Blueprint) AppURLDefaults(fn URLDefaultsFunc) {
	b.RecordOnce(func(s *SetupState) { s.App.URLDefaults(fn) })
}

// AppTemplateFilter registers a template function on the application.
func (b *Blueprint) AppTemplateFilter(name string, fn any) {
	b.RecordOnce(func(s *SetupState) { s.App.TemplateFilter(name, fn) })
}

// AppTemplateGlobal registers a template global on the application.
func (b *Blueprint) AppTemplateGlobal(name string, value any) {
	b.RecordOnce(func(s *SetupState) { s.App.TemplateGlobal(name, value) })
}

// register merges the blueprint into app under its dotted name, runs the
// recorded actions and registers the nested blueprints.
func (b *Blueprint) register(app *App, opts *blueprintOptions) error {
	selfName := b.name
	if opts.name != "" {
		if err := validBlueprintName(opts.name); err != nil {
			return err
		}
		selfName = opts.name
	}
	name := strings.TrimLeft(opts.namePrefix+"."+selfName, ".")

	if existing, ok := app.blueprints[name]; ok && existing != b {
		return fmt.Errorf("%w: the name %q is already registered for a different blueprint, use BlueprintName to provide a unique name",
			ErrBlueprintName, name)
	}

	firstBlueprint := true
	for _, registered := range app.blueprints {
		if registered == b {
			firstBlueprint = false
			break
		}
	}
	_, seen := app.blueprints[name]
	firstName := !seen

	app.blueprints[name] = b
	if firstName {
		app.blueprintOrder = append(app.blueprintOrder, name)
	}
	b.registered = true

	state := b.setupState(app, opts, name, firstBlueprint)
	if firstBlueprint || firstName {
		b.merge(app, name)
	}
	for _, action := range b.deferred {
		action(state)
	}

	for _, child := range b.children {
		co := child.opts.clone()

		sub := co.subdomain
		if sub == nil {
			sub = child.bp.subdomain
		}
		switch {
		case state.Subdomain != "" && sub != nil && *sub != "":
			joined := *sub + "." + state.Subdomain
			co.subdomain = &joined
		case sub != nil:
			co.subdomain = sub
		case state.Subdomain != "":
			parent := state.Subdomain
			co.subdomain = &parent
		}

		prefix := co.urlPrefix
		if prefix == nil {
			prefix = child.bp.urlPrefix
		}
		switch {
		case state.URLPrefix != "" && prefix != nil:
			joined := strings.TrimRight(state.URLPrefix, "/") + "/" + strings.TrimLeft(*prefix, "/")
			co.urlPrefix = &joined
		case prefix != nil:
			co.urlPrefix = prefix
		case state.URLPrefix != "":
			parent := state.URLPrefix
			co.urlPrefix = &parent
		}

		co.namePrefix = name
		if err := child.bp.register(app, co); err != nil {
			return err
		}
	}
	return nil
}

func (b *Blueprint) setupState(app *App, opts *blueprintOptions, name string, first bool) *SetupState {
	s := &SetupState{
		App:               app,
		Blueprint:         b,
		Name:              name,
		FirstRegistration: first,
		URLDefaults:       maps.Clone(b.urlValues),
	}
	if s.URLDefaults == nil {
		s.URLDefaults = make(map[string]string)
	}
	maps.Copy(s.URLDefaults, opts.urlDefaults)

	if opts.subdomain != nil {
		s.Subdomain = *opts.subdomain
	} else if b.subdomain != nil {
		s.Subdomain = *b.subdomain
	}
	if opts.urlPrefix != nil {
		s.URLPrefix = *opts.urlPrefix
	} else if b.urlPrefix != nil {
		s.URLPrefix = *b.urlPrefix
	}
	return s
}

// merge copies the hook tables of b into app. The blueprint's own scope
// becomes name; any other scope is nested below it.
func (b *Blueprint) merge(app *App, name string) {
	key := func(scope string) string {
		if scope == "" {
			return name
		}
		return name + "." + scope
	}

	for endpoint, view := range b.viewFunctions {
		app.viewFunctions[key(endpoint)] = view
	}

	for scope, byCode := range b.errorHandlers {
		dst, ok := app.errorHandlers[key(scope)]
		if !ok {
			dst = make(map[int]*handlerTable, len(byCode))
			app.errorHandlers[key(scope)] = dst
		}
		for code, table := range byCode {
			if existing, ok := dst[code]; ok {
				existing.merge(table)
				continue
			}
			dst[code] = table.clone()
		}
	}

	mergeScoped(app.beforeRequest, b.beforeRequest, key)
	mergeScoped(app.afterRequest, b.afterRequest, key)
	mergeScoped(app.teardownRequest, b.teardownRequest, key)
	mergeScoped(app.contextProcessors, b.contextProcessors, key)
	mergeScoped(app.urlValuePreprocessors, b.urlValuePreprocessors, key)
	mergeScoped(app.urlDefaults, b.urlDefaults, key)
}

func mergeScoped[F any](dst, src map[string][]F, key func(string) string) {
	for scope, fns := range src {
		k := key(scope)
		dst[k] = append(dst[k], fns...)
	}
}
