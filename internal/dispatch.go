package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"

	"github.com/dmitrymomot/flagon/pkg/routing"
)

// Dispatch handles one request. It pushes a request context, runs the
// full dispatch and always pops the context again, passing the error that
// escaped dispatching (if any) to the teardown functions.
//
// A non-nil result is an error that was not turned into a response: an
// exception in propagation mode, or a failure to write the response.
func (a *App) Dispatch(w http.ResponseWriter, r *http.Request) error {
	_, err := a.dispatch(w, r)
	return err
}

// dispatch reports whether the returned error is a propagated exception.
func (a *App) dispatch(w http.ResponseWriter, r *http.Request) (propagated bool, err error) {
	rc := a.RequestContext(w, r)
	if err := rc.Push(); err != nil {
		return false, err
	}

	var live error
	defer func() {
		if rec := recover(); rec != nil {
			live = newPanicError(rec)
			err = live
		}
		if popErr := rc.Pop(live); popErr != nil {
			a.logger.ErrorContext(rc, "failed to pop request context", slog.Any("error", popErr))
			if err == nil {
				err = popErr
			}
		}
	}()

	resp, derr := a.fullDispatchRequest(rc)
	if derr != nil {
		live = derr
		resp, derr = a.HandleException(rc, derr)
		if derr != nil {
			return a.propagateExceptions(), derr
		}
	}

	if rc.writer.Written() {
		return false, nil
	}
	return false, resp.write(rc.writer, r.Method)
}

func (a *App) fullDispatchRequest(rc *RequestContext) (*Response, error) {
	a.gotFirstRequest.Store(true)
	a.signals.RequestStarted.Send(rc, a, rc)

	rv, err := safe(func() (any, error) {
		rv, err := a.PreprocessRequest(rc)
		if err != nil || rv != nil {
			return rv, err
		}
		return a.DispatchRequest(rc)
	})
	if err != nil {
		rv, err = a.HandleUserException(rc, err)
		if err != nil {
			return nil, err
		}
	}
	return safe(func() (*Response, error) {
		return a.FinalizeRequest(rc, rv, false)
	})
}

// PreprocessRequest runs the URL value preprocessors and then the
// before-request functions, global first and then the blueprints of the
// request from the outermost in. The first before-request function that
// returns a value stops the chain; that value becomes the response.
func (a *App) PreprocessRequest(rc *RequestContext) (any, error) {
	scopes := rc.scopes()
	endpoint := rc.request.Endpoint()

	for _, scope := range scopes {
		for _, fn := range a.urlValuePreprocessors[scope] {
			fn(endpoint, rc.request.ViewArgs)
		}
	}

	for _, scope := range scopes {
		for _, fn := range a.beforeRequest[scope] {
			rv, err := fn(rc)
			if err != nil {
				return nil, err
			}
			if !isNilValue(rv) {
				return rv, nil
			}
		}
	}
	return nil, nil
}

// DispatchRequest raises the routing error of the request, answers
// automatic OPTIONS requests, or calls the view of the matched endpoint.
func (a *App) DispatchRequest(rc *RequestContext) (any, error) {
	req := rc.request
	if req.RoutingError != nil {
		return nil, a.routingException(req)
	}

	rule := req.Rule
	if rule.ProvideAutomaticOptions && req.Method == http.MethodOptions {
		return optionsResponse(rc.adapter.AllowedMethods("")), nil
	}

	view, ok := a.viewFunctions[rule.Endpoint]
	if !ok || view == nil {
		return nil, fmt.Errorf("%w: %q", ErrNoViewFunction, rule.Endpoint)
	}
	return view(rc)
}

// routingException returns the routing error of req. In debug mode a
// redirect that would drop a request body becomes a
// *FormDataRoutingRedirect instead.
func (a *App) routingException(req *Request) error {
	err := req.RoutingError
	var redirect *routing.RequestRedirect
	if !a.Debug() || !errors.As(err, &redirect) {
		return err
	}
	if redirect.Code == http.StatusTemporaryRedirect || redirect.Code == http.StatusPermanentRedirect {
		return err
	}
	switch req.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return err
	}
	return &FormDataRoutingRedirect{
		Method: req.Method,
		URL:    req.URL.String(),
		NewURL: redirect.NewURL,
		Code:   redirect.Code,
	}
}

// HandleUserException handles an error returned by a hook or view.
// HTTP errors that are not trapped go to HandleHTTPException. Other
// errors are passed to the most specific registered handler; without
// one the error is returned unchanged.
func (a *App) HandleUserException(rc *RequestContext, err error) (any, error) {
	if IsHTTPError(err) && !a.TrapHTTPException(err) {
		return a.HandleHTTPException(rc, err)
	}

	handler := a.findErrorHandler(err, scopeChainInnerFirst(rc.request.Blueprints()), true)
	if handler == nil {
		return nil, err
	}
	return safe(func() (any, error) { return handler(rc, err) })
}

// HandleHTTPException handles an HTTP error. Redirects are returned as
// they are; otherwise a handler registered for the status code (or the
// error type) is called, and without one the error renders itself.
func (a *App) HandleHTTPException(rc *RequestContext, err error) (any, error) {
	var redirect *routing.RequestRedirect
	if errors.As(err, &redirect) {
		return err, nil
	}

	handler := a.findErrorHandler(err, scopeChainInnerFirst(rc.request.Blueprints()), true)
	if handler == nil {
		return err, nil
	}
	return safe(func() (any, error) { return handler(rc, err) })
}

// TrapHTTPException reports whether err should be handled like an
// ordinary error instead of being rendered as an HTTP error.
func (a *App) TrapHTTPException(err error) bool {
	if a.boolSetting("TRAP_HTTP_EXCEPTIONS") {
		return true
	}

	trapBadRequest, set := a.optionalBool("TRAP_BAD_REQUEST_ERRORS")
	if !set && a.Debug() && errors.Is(err, ErrMissingKey) {
		return true
	}
	if trapBadRequest {
		code, _ := StatusOf(err)
		return code == http.StatusBadRequest
	}
	return false
}

// HandleException handles an error no handler took care of. In
// propagation mode it is returned to the caller. Otherwise it is logged
// and turned into a 500 response, using a handler registered for 500
// when there is one.
func (a *App) HandleException(rc *RequestContext, err error) (*Response, error) {
	a.signals.GotRequestException.Send(rc, a, err)

	if a.propagateExceptions() {
		return nil, err
	}

	a.logException(rc, err)

	serverError := ErrInternal("", WithError(err))
	var rv any = serverError
	if handler := a.findErrorHandler(serverError, scopeChainInnerFirst(rc.request.Blueprints()), false); handler != nil {
		hv, herr := safe(func() (any, error) { return handler(rc, serverError) })
		if herr != nil {
			a.logger.ErrorContext(rc, "internal server error handler failed", slog.Any("error", herr))
		} else {
			rv = hv
		}
	}
	return a.FinalizeRequest(rc, rv, true)
}

// FinalizeRequest turns rv into a response and runs ProcessResponse.
// When called while handling an error, a failure of the after-request
// functions is logged and the unprocessed response is kept.
func (a *App) FinalizeRequest(rc *RequestContext, rv any, fromErrorHandler bool) (*Response, error) {
	resp, err := a.MakeResponse(rc, rv)
	if err != nil {
		return nil, err
	}

	processed, err := safe(func() (*Response, error) { return a.ProcessResponse(rc, resp) })
	if err == nil {
		a.signals.RequestFinished.Send(rc, a, processed)
		return processed, nil
	}
	if !fromErrorHandler {
		return nil, err
	}
	a.logger.ErrorContext(rc, "request finalizing failed with an error while handling an error",
		slog.Any("error", err))
	return resp, nil
}

// ProcessResponse runs the functions registered with AfterThisRequest in
// registration order, then the after-request functions of the request's
// blueprints from the innermost out and finally the global ones, each
// list in reverse registration order. The session is saved last.
func (a *App) ProcessResponse(rc *RequestContext, resp *Response) (*Response, error) {
	apply := func(fn AfterRequestFunc) error {
		next, err := fn(rc, resp)
		if err != nil {
			return err
		}
		if next == nil {
			return fmt.Errorf("%w: an after-request function returned a nil response", ErrInvalidResponse)
		}
		resp = next
		return nil
	}

	for _, fn := range rc.takeAfterThisRequest() {
		if err := apply(fn); err != nil {
			return nil, err
		}
	}
	for _, scope := range scopeChainInnerFirst(rc.request.Blueprints()) {
		for _, fn := range slices.Backward(a.afterRequest[scope]) {
			if err := apply(fn); err != nil {
				return nil, err
			}
		}
	}

	if s := rc.sessionIfOpened(); s != nil && !a.sessionInterface.IsNull(s) {
		if err := a.sessionInterface.Save(rc, a, s, resp); err != nil {
			return nil, fmt.Errorf("save session: %w", err)
		}
	}
	return resp, nil
}

// DoTeardownRequest runs the teardown functions of the request's
// blueprints from the innermost out, then the global ones, each list in
// reverse registration order. A panicking function is logged and the
// remaining ones still run.
func (a *App) DoTeardownRequest(rc *RequestContext, err error) {
	for _, scope := range scopeChainInnerFirst(rc.request.Blueprints()) {
		for _, fn := range slices.Backward(a.teardownRequest[scope]) {
			a.safeTeardown(rc, "request teardown", func() { fn(rc, err) })
		}
	}
	a.signals.RequestTearingDown.Send(rc, a, err)
}

func (a *App) logException(rc *RequestContext, err error) {
	attrs := []any{
		slog.Any("error", err),
		slog.String("endpoint", rc.request.Endpoint()),
	}
	var pe *PanicError
	if errors.As(err, &pe) {
		attrs = append(attrs, slog.String("stack", string(pe.Stack)))
	}
	a.logger.ErrorContext(rc, fmt.Sprintf("Exception on %s [%s]", rc.request.URL.Path, rc.request.Method), attrs...)
}

// safe calls fn and converts a panic into a *PanicError.
func safe[T any](fn func() (T, error)) (v T, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			var zero T
			v = zero
			err = newPanicError(rec)
		}
	}()
	return fn()
}
