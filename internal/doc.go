// Package internal provides the core types and implementation of the
// flagon framework.
//
// This package is internal and should not be used directly. Import
// "github.com/dmitrymomot/flagon" instead, which re-exports the public API.
//
// # Core Types
//
//   - App: central registry of rules, views, hooks, blueprints and config
//   - Blueprint: deferred registrations replayed onto an App under a name
//   - AppContext: binds an App to a task outside or around a request
//   - RequestContext: all state of one request; implements Context
//   - Context: what views and hooks receive; also a context.Context
//   - Response: the value after-request functions transform
//   - SessionInterface: how sessions are opened and saved
//
// # Contexts
//
// Every request pushes a RequestContext, and an AppContext when none is
// active for its application. Both live on stacks bound to the request's
// context.Context, so code deeper in the call chain reaches them with
// CurrentApp, CurrentRequest, CurrentSession and G:
//
//	func (r *Repo) Audit(ctx context.Context, action string) error {
//	    req, err := flagon.CurrentRequest(ctx)
//	    if err != nil {
//	        return err
//	    }
//	    return r.insert(ctx, action, req.RemoteAddr)
//	}
//
// Outside a request push an application context explicitly:
//
//	ac := app.AppContext()
//	ctx, err := ac.Push(context.Background())
//	if err != nil {
//	    return err
//	}
//	defer ac.Pop(ctx, nil)
//
// # Dispatch
//
// Dispatch runs the URL value preprocessors and before-request functions,
// the view, MakeResponse, the after-request functions and the session save.
// Errors from any step go to the most specific registered error handler:
// blueprint before app, exact error type before supertypes. Teardown
// functions run last and always.
//
// # Handler Pattern
//
// Handlers implement the Handler interface and declare routes:
//
//	type Pages struct {
//	    repo *repository.Queries
//	}
//
//	func (h *Pages) Routes(r internal.Router) {
//	    r.GET("/", h.index)
//	    r.Route("/login", h.login, internal.Methods("GET", "POST"))
//	}
//
// Handlers receive dependencies via constructor injection, not context helpers.
package internal
