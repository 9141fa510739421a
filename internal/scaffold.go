package internal

import (
	"errors"
	"fmt"
	"maps"
	"net/http"
	"reflect"
	"slices"
)

// ErrorKind identifies an error type as an error handler key.
type ErrorKind struct {
	t reflect.Type
}

// ErrorType returns the handler key for errors of type T. When T is an
// interface type, every error implementing it matches.
//
//	app.ErrorHandler(flagon.ErrorType[*ValidationError](), renderValidation)
func ErrorType[T error]() ErrorKind {
	return ErrorKind{t: reflect.TypeFor[T]()}
}

// AnyError matches every error. It is consulted after all more specific
// keys of the same scope.
var AnyError = ErrorKind{}

func (k ErrorKind) String() string {
	if k.t == nil {
		return "any error"
	}
	return k.t.String()
}

type sentinelHandler struct {
	err error
	fn  ErrorHandlerFunc
}

type typedHandler struct {
	t  reflect.Type
	fn ErrorHandlerFunc
}

// handlerTable holds the error handlers of one scope and status code.
type handlerTable struct {
	byType    map[reflect.Type]ErrorHandlerFunc
	any       ErrorHandlerFunc
	ifaces    []typedHandler
	sentinels []sentinelHandler
}

func newHandlerTable() *handlerTable {
	return &handlerTable{byType: make(map[reflect.Type]ErrorHandlerFunc)}
}

func (t *handlerTable) clone() *handlerTable {
	return &handlerTable{
		byType:    maps.Clone(t.byType),
		any:       t.any,
		ifaces:    slices.Clone(t.ifaces),
		sentinels: slices.Clone(t.sentinels),
	}
}

// merge adds the handlers of o; handlers of o win on conflicts.
func (t *handlerTable) merge(o *handlerTable) {
	maps.Copy(t.byType, o.byType)
	if o.any != nil {
		t.any = o.any
	}
	t.ifaces = append(t.ifaces, o.ifaces...)
	t.sentinels = append(t.sentinels, o.sentinels...)
}

// lookup walks chain from the outermost error inward and returns the first
// handler registered for one of its links. The catch-all comes last.
func (t *handlerTable) lookup(chain []error) ErrorHandlerFunc {
	for _, e := range chain {
		et := reflect.TypeOf(e)
		if fn, ok := t.byType[et]; ok {
			return fn
		}
		for _, s := range t.sentinels {
			if et == reflect.TypeOf(s.err) && et.Comparable() && e == s.err {
				return s.fn
			}
		}
		for _, h := range t.ifaces {
			if et.Implements(h.t) {
				return h.fn
			}
		}
	}
	return t.any
}

// errorChain flattens err depth-first over Unwrap() error and
// Unwrap() []error.
func errorChain(err error, unwrap bool) []error {
	if err == nil {
		return nil
	}
	if !unwrap {
		return []error{err}
	}
	var out []error
	var walk func(error)
	walk = func(e error) {
		if e == nil {
			return
		}
		out = append(out, e)
		switch u := e.(type) {
		case interface{ Unwrap() error }:
			walk(u.Unwrap())
		case interface{ Unwrap() []error }:
			for _, inner := range u.Unwrap() {
				walk(inner)
			}
		}
	}
	walk(err)
	return out
}

// scaffold holds the hook tables shared by App and Blueprint.
// Keys are scopes: "" is the owner itself, otherwise a dotted blueprint
// name.
type scaffold struct {
	guard                 func(method string)
	viewFunctions         map[string]ViewFunc
	errorHandlers         map[string]map[int]*handlerTable
	beforeRequest         map[string][]BeforeRequestFunc
	afterRequest          map[string][]AfterRequestFunc
	teardownRequest       map[string][]TeardownFunc
	contextProcessors     map[string][]ContextProcessorFunc
	urlValuePreprocessors map[string][]URLValuePreprocessorFunc
	urlDefaults           map[string][]URLDefaultsFunc
}

func newScaffold(guard func(method string)) scaffold {
	return scaffold{
		guard:                 guard,
		viewFunctions:         make(map[string]ViewFunc),
		errorHandlers:         make(map[string]map[int]*handlerTable),
		beforeRequest:         make(map[string][]BeforeRequestFunc),
		afterRequest:          make(map[string][]AfterRequestFunc),
		teardownRequest:       make(map[string][]TeardownFunc),
		contextProcessors:     make(map[string][]ContextProcessorFunc),
		urlValuePreprocessors: make(map[string][]URLValuePreprocessorFunc),
		urlDefaults:           make(map[string][]URLDefaultsFunc),
	}
}

// Endpoint binds view to an endpoint name without adding a URL rule.
func (s *scaffold) Endpoint(endpoint string, view ViewFunc) {
	s.guard("Endpoint")
	if endpoint == "" {
		panic(&SetupError{Method: "Endpoint", Err: ErrEmptyEndpoint})
	}
	s.viewFunctions[endpoint] = view
}

// BeforeRequest registers fn to run before each request.
func (s *scaffold) BeforeRequest(fn BeforeRequestFunc) {
	s.guard("BeforeRequest")
	if fn != nil {
		s.beforeRequest[""] = append(s.beforeRequest[""], fn)
	}
}

// AfterRequest registers fn to run after each successful dispatch.
// Functions of one scope run in reverse registration order.
func (s *scaffold) AfterRequest(fn AfterRequestFunc) {
	s.guard("AfterRequest")
	if fn != nil {
		s.afterRequest[""] = append(s.afterRequest[""], fn)
	}
}

// TeardownRequest registers fn to run when the request context is popped,
// whether or not the request failed.
func (s *scaffold) TeardownRequest(fn TeardownFunc) {
	s.guard("TeardownRequest")
	if fn != nil {
		s.teardownRequest[""] = append(s.teardownRequest[""], fn)
	}
}

// ContextProcessor registers fn to inject values into templates.
func (s *scaffold) ContextProcessor(fn ContextProcessorFunc) {
	s.guard("ContextProcessor")
	if fn != nil {
		s.contextProcessors[""] = append(s.contextProcessors[""], fn)
	}
}

// URLValuePreprocessor registers fn to run on the view arguments of
// matched requests.
func (s *scaffold) URLValuePreprocessor(fn URLValuePreprocessorFunc) {
	s.guard("URLValuePreprocessor")
	if fn != nil {
		s.urlValuePreprocessors[""] = append(s.urlValuePreprocessors[""], fn)
	}
}

// URLDefaults registers fn to fill in values when building URLs.
func (s *scaffold) URLDefaults(fn URLDefaultsFunc) {
	s.guard("URLDefaults")
	if fn != nil {
		s.urlDefaults[""] = append(s.urlDefaults[""], fn)
	}
}

// ErrorHandler registers fn for key, which is one of:
//   - an HTTP error status code (int), for example 404;
//   - an ErrorKind from ErrorType or AnyError;
//   - a sentinel error value, compared with ==.
//
// Sentinels that carry a status code are stored under that code.
func (s *scaffold) ErrorHandler(key any, fn ErrorHandlerFunc) {
	s.guard("ErrorHandler")
	if fn == nil {
		return
	}
	code, put, err := classifyErrorKey(key)
	if err != nil {
		panic(&SetupError{Method: "ErrorHandler", Err: err})
	}

	byCode, ok := s.errorHandlers[""]
	if !ok {
		byCode = make(map[int]*handlerTable)
		s.errorHandlers[""] = byCode
	}
	table, ok := byCode[code]
	if !ok {
		table = newHandlerTable()
		byCode[code] = table
	}
	put(table, fn)
}

func classifyErrorKey(key any) (int, func(*handlerTable, ErrorHandlerFunc), error) {
	switch k := key.(type) {
	case int:
		if k < 400 || k > 599 || http.StatusText(k) == "" {
			return 0, nil, fmt.Errorf("%w: %d is not a recognized HTTP error code", ErrInvalidErrorKey, k)
		}
		return k, func(t *handlerTable, fn ErrorHandlerFunc) { t.any = fn }, nil

	case ErrorKind:
		switch {
		case k.t == nil:
			return 0, func(t *handlerTable, fn ErrorHandlerFunc) { t.any = fn }, nil
		case k.t.Kind() == reflect.Interface:
			return 0, func(t *handlerTable, fn ErrorHandlerFunc) {
				t.ifaces = append(t.ifaces, typedHandler{t: k.t, fn: fn})
			}, nil
		default:
			return 0, func(t *handlerTable, fn ErrorHandlerFunc) { t.byType[k.t] = fn }, nil
		}

	case error:
		if !reflect.TypeOf(k).Comparable() {
			return 0, nil, fmt.Errorf("%w: sentinel of type %T is not comparable", ErrInvalidErrorKey, k)
		}
		code := 0
		var sc statusCoder
		if errors.As(k, &sc) {
			code = sc.StatusCode()
		}
		return code, func(t *handlerTable, fn ErrorHandlerFunc) {
			t.sentinels = append(t.sentinels, sentinelHandler{err: k, fn: fn})
		}, nil
	}
	return 0, nil, fmt.Errorf("%w: %T", ErrInvalidErrorKey, key)
}

// findErrorHandler searches codes (status, 0) x scopes (inner..outer, "")
// x the error chain.
func (s *scaffold) findErrorHandler(err error, scopes []string, unwrap bool) ErrorHandlerFunc {
	codes := []int{0}
	if code, ok := StatusOf(err); ok {
		codes = []int{code, 0}
	}
	chain := errorChain(err, unwrap)

	for _, code := range codes {
		for _, scope := range scopes {
			table := s.errorHandlers[scope][code]
			if table == nil {
				continue
			}
			if fn := table.lookup(chain); fn != nil {
				return fn
			}
		}
	}
	return nil
}
