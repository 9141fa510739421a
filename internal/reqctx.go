package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dmitrymomot/flagon/pkg/dispatcher"
	"github.com/dmitrymomot/flagon/pkg/routing"
	"github.com/dmitrymomot/flagon/pkg/session"
)

// RequestContext holds all state of one request. It is the Context handed
// to views and hooks and it is pushed on the request stack of its own
// context while the request is dispatched.
type RequestContext struct {
	ctx              context.Context
	app              *App
	request          *Request
	writer           *ResponseWriter
	adapter          *routing.Adapter
	session          *session.Session
	implicit         *AppContext
	depth            int
	logger           *slog.Logger
	startedAt        time.Time
	flashes          []FlashMessage
	afterThisRequest []AfterRequestFunc
	sessionOpened    bool
	flashesLoaded    bool
	sessionOpening   bool
	pushed           bool
	popped           bool
	mu               sync.Mutex
}

// RequestContext creates the context for r and matches its URL. The
// context is not active until pushed; Dispatch does both.
func (a *App) RequestContext(w http.ResponseWriter, r *http.Request) *RequestContext {
	ctx := bindStacks(r.Context())
	r = r.WithContext(ctx)

	if limit, ok := a.intSetting("MAX_CONTENT_LENGTH"); ok && limit > 0 && r.Body != nil {
		r.Body = http.MaxBytesReader(w, r.Body, int64(limit))
	}

	rc := &RequestContext{
		ctx:       ctx,
		app:       a,
		writer:    NewResponseWriter(w),
		startedAt: time.Now(),
		request: &Request{
			Request:       r,
			ViewArgs:      map[string]string{},
			maxFormMemory: a.maxFormMemory(),
		},
	}

	rc.adapter = a.urlMap.Bind(r, routing.BindOptions{
		ServerName:        a.stringSetting("SERVER_NAME"),
		ScriptName:        dispatcher.ScriptName(r),
		SubdomainMatching: a.subdomainMatching,
	})
	rc.match()
	return rc
}

// match resolves the URL. Failures are stored on the request and raised
// when it is dispatched, so before-request functions still run.
func (rc *RequestContext) match() {
	if hosts := rc.app.stringsSetting("TRUSTED_HOSTS"); len(hosts) > 0 && !hostTrusted(rc.request.Host, hosts) {
		rc.request.RoutingError = ErrBadRequest(
			fmt.Sprintf("Host %q is not trusted.", routing.NormalizeHost(rc.request.Host)),
			WithTitle("Security Error"),
		)
		return
	}

	rule, args, err := rc.adapter.Match()
	if err != nil {
		rc.request.RoutingError = err
		return
	}
	rc.request.Rule = rule
	if args != nil {
		rc.request.ViewArgs = args
	}
}

// Push makes rc the current request context. An application context for
// the same app is reused when active, otherwise one is pushed and popped
// together with rc.
func (rc *RequestContext) Push() error {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.pushed {
		return nil
	}

	if top, ok := appStack.Top(rc.ctx); !ok || top.app != rc.app {
		ac := rc.app.AppContext()
		if _, err := ac.Push(rc.ctx); err != nil {
			return err
		}
		rc.implicit = ac
	}

	rc.depth = requestStack.Len(rc.ctx)
	if err := requestStack.Push(rc.ctx, rc); err != nil {
		if rc.implicit != nil {
			_ = rc.implicit.Pop(rc.ctx, err)
			rc.implicit = nil
		}
		return err
	}
	rc.pushed = true
	return nil
}

// Pop runs the teardown functions with err, removes rc from the stack and
// pops the application context it pushed. Popping twice is a no-op.
// Request contexts left above rc are discarded with it; ErrContextMismatch
// is reported after the stack is unwound.
func (rc *RequestContext) Pop(err error) error {
	rc.mu.Lock()
	if !rc.pushed {
		rc.mu.Unlock()
		return fmt.Errorf("%w: request context", ErrContextNotPushed)
	}
	if rc.popped {
		rc.mu.Unlock()
		return nil
	}
	rc.popped = true
	rc.mu.Unlock()

	top, ok := requestStack.Top(rc.ctx)
	onTop := ok && top == rc

	rc.app.DoTeardownRequest(rc, err)

	var errs []error
	if requestStack.Len(rc.ctx) > rc.depth {
		if _, truncErr := requestStack.Truncate(rc.ctx, rc.depth); truncErr != nil {
			errs = append(errs, truncErr)
		}
	}
	if rc.implicit != nil {
		if popErr := rc.implicit.Pop(rc.ctx, err); popErr != nil {
			errs = append(errs, popErr)
		}
	}
	if !onTop {
		errs = append([]error{fmt.Errorf("%w: request context is not on top", ErrContextMismatch)}, errs...)
	}
	return errors.Join(errs...)
}

// StartedAt returns when the request context was created.
func (rc *RequestContext) StartedAt() time.Time {
	return rc.startedAt
}

// Session returns the session, opening it through the app's session
// interface on first use. When it cannot be opened a null session is used.
// Calls made while the session is being opened get a null session.
func (rc *RequestContext) Session() *session.Session {
	si := rc.app.sessionInterface

	rc.mu.Lock()
	if rc.sessionOpened || rc.sessionOpening {
		s := rc.session
		rc.mu.Unlock()
		if s == nil {
			s = si.MakeNull(rc.app)
		}
		return s
	}
	rc.sessionOpening = true
	rc.mu.Unlock()

	s, err := si.Open(rc, rc.app, rc.request.Request)
	if err != nil {
		rc.app.logger.WarnContext(rc, "failed to open session", slog.Any("error", err))
	}
	if s == nil {
		s = si.MakeNull(rc.app)
	}

	rc.mu.Lock()
	rc.session = s
	rc.sessionOpened = true
	rc.sessionOpening = false
	rc.mu.Unlock()
	return s
}

// sessionIfOpened returns the session when something accessed it.
func (rc *RequestContext) sessionIfOpened() *session.Session {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if !rc.sessionOpened {
		return nil
	}
	return rc.session
}

// AfterThisRequest registers fn to run after the response of this request
// is built. Functions run in registration order, before the registered
// after-request functions.
func (rc *RequestContext) AfterThisRequest(fn AfterRequestFunc) {
	if fn == nil {
		return
	}
	rc.mu.Lock()
	rc.afterThisRequest = append(rc.afterThisRequest, fn)
	rc.mu.Unlock()
}

func (rc *RequestContext) takeAfterThisRequest() []AfterRequestFunc {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	fns := rc.afterThisRequest
	rc.afterThisRequest = nil
	return fns
}

// Deadline implements context.Context.
func (rc *RequestContext) Deadline() (time.Time, bool) {
	return rc.ctx.Deadline()
}

// Done implements context.Context.
func (rc *RequestContext) Done() <-chan struct{} {
	return rc.ctx.Done()
}

// Err implements context.Context.
func (rc *RequestContext) Err() error {
	return rc.ctx.Err()
}

// Value implements context.Context.
func (rc *RequestContext) Value(key any) any {
	return rc.ctx.Value(key)
}

// scopes returns the scope chain of the request: global, then blueprints
// outer to inner.
func (rc *RequestContext) scopes() []string {
	return scopeChainOuterFirst(rc.request.Blueprints())
}

func scopeChainOuterFirst(innerFirst []string) []string {
	out := make([]string, 0, len(innerFirst)+1)
	out = append(out, "")
	for _, bp := range slices.Backward(innerFirst) {
		out = append(out, bp)
	}
	return out
}

func scopeChainInnerFirst(innerFirst []string) []string {
	return append(slices.Clone(innerFirst), "")
}

func hostTrusted(host string, trusted []string) bool {
	host = routing.NormalizeHost(host)
	for _, t := range trusted {
		t = routing.NormalizeHost(t)
		if t == host {
			return true
		}
		if strings.HasPrefix(t, ".") && (host == t[1:] || strings.HasSuffix(host, t)) {
			return true
		}
	}
	return false
}
