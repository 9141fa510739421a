package internal

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/dmitrymomot/flagon/pkg/routing"
)

// AppContext binds an application to a task for work that needs the
// application but not necessarily a request: CLI-style jobs, background
// goroutines and tests. A request pushes one implicitly when none is
// active for its app.
type AppContext struct {
	app        *App
	g          *Globals
	adapter    *routing.Adapter
	adapterErr error
	delegate   *AppContext
	// pushes records, per outstanding push, whether it added a stack entry.
	pushes    []bool
	delegated int
	mu        sync.Mutex
}

// AppContext creates an application context. It is not active until
// pushed.
//
// Example:
//
//	ac := app.AppContext()
//	ctx, err := ac.Push(context.Background())
//	if err != nil {
//	    return err
//	}
//	defer ac.Pop(ctx, nil)
func (a *App) AppContext() *AppContext {
	ac := &AppContext{app: a, g: newGlobals()}
	ac.adapter, ac.adapterErr = a.urlMap.BindTo(
		a.stringSetting("SERVER_NAME"),
		a.stringSetting("APPLICATION_ROOT"),
		a.stringSetting("PREFERRED_URL_SCHEME"),
	)
	return ac
}

// App returns the application.
func (ac *AppContext) App() *App {
	return ac.app
}

// G returns the globals namespace. An AppContext that joined an already
// active context of the same app shares its globals.
func (ac *AppContext) G() *Globals {
	return ac.target().g
}

func (ac *AppContext) target() *AppContext {
	ac.mu.Lock()
	defer ac.mu.Unlock()
	if ac.delegate != nil {
		return ac.delegate
	}
	return ac
}

// Push makes ac the current application context of ctx and returns the
// context to use from now on. Every push of the same context must be
// matched by a Pop; teardown runs once, at the last one. When the current
// context is another AppContext of the same app, ac joins it and shares
// its globals.
func (ac *AppContext) Push(ctx context.Context) (context.Context, error) {
	ctx = bindStacks(ctx)

	top, ok := appStack.Top(ctx)
	target := ac.target()
	switch {
	case target != ac:
		ac.mu.Lock()
		ac.delegated++
		ac.mu.Unlock()
	case ok && top != ac && top.app == ac.app && !ac.active():
		target = top
		ac.mu.Lock()
		ac.delegate = top
		ac.delegated++
		ac.mu.Unlock()
	}

	onTop := ok && top == target
	if !onTop {
		if err := appStack.Push(ctx, target); err != nil {
			return ctx, err
		}
	}

	target.mu.Lock()
	first := len(target.pushes) == 0
	target.pushes = append(target.pushes, !onTop)
	target.mu.Unlock()

	if first {
		ac.app.signals.AppContextPushed.Send(ctx, ac.app, target)
	}
	return ctx, nil
}

// active reports whether ac has outstanding pushes of its own.
func (ac *AppContext) active() bool {
	ac.mu.Lock()
	defer ac.mu.Unlock()
	return len(ac.pushes) > 0
}

// Pop releases one push. When the last push is released the teardown
// functions run in reverse registration order, each receiving err, and
// the context is removed. Popping a context that is not the current one
// fails with ErrContextMismatch.
func (ac *AppContext) Pop(ctx context.Context, err error) error {
	target := ac.target()

	top, ok := appStack.Top(ctx)
	if !ok {
		return fmt.Errorf("%w: application context", ErrContextNotPushed)
	}
	if top != target {
		return fmt.Errorf("%w: expected %p, found %p", ErrContextMismatch, target, top)
	}

	target.mu.Lock()
	if len(target.pushes) == 0 {
		target.mu.Unlock()
		return fmt.Errorf("%w: application context", ErrContextNotPushed)
	}
	ownsEntry := target.pushes[len(target.pushes)-1]
	target.pushes = target.pushes[:len(target.pushes)-1]
	last := len(target.pushes) == 0
	target.mu.Unlock()

	if target != ac {
		ac.mu.Lock()
		ac.delegated--
		if ac.delegated == 0 {
			ac.delegate = nil
		}
		ac.mu.Unlock()
	}

	if last {
		target.doTeardown(ctx, err)
		ac.app.signals.AppContextTearingDown.Send(ctx, ac.app, err)
	}
	if ownsEntry {
		if _, popErr := appStack.Pop(ctx); popErr != nil {
			return popErr
		}
	}
	if last {
		ac.app.signals.AppContextPopped.Send(ctx, ac.app, target)
	}
	return nil
}

// Run pushes ac, calls fn with the bound context and pops ac with the
// error fn returned.
func (ac *AppContext) Run(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	ctx, err = ac.Push(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if rec := recover(); rec != nil {
			perr := newPanicError(rec)
			_ = ac.Pop(ctx, perr)
			panic(rec)
		}
		if popErr := ac.Pop(ctx, err); popErr != nil && err == nil {
			err = popErr
		}
	}()
	return fn(ctx)
}

// URLFor builds a URL outside of a request. SERVER_NAME must be set.
func (ac *AppContext) URLFor(ctx context.Context, endpoint string, values map[string]any, opts ...URLOption) (string, error) {
	return ac.app.URLFor(ctx, endpoint, values, opts...)
}

// doTeardown runs every teardown function even when some of them panic.
func (ac *AppContext) doTeardown(ctx context.Context, err error) {
	for _, fn := range slices.Backward(ac.app.teardownAppContext) {
		ac.app.safeTeardown(ctx, "app context teardown", func() { fn(ctx, err) })
	}
}

// safeTeardown calls fn and logs a panic instead of propagating it.
func (a *App) safeTeardown(ctx context.Context, what string, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			pe := newPanicError(rec)
			a.logger.ErrorContext(ctx, what+" failed",
				slog.Any("error", pe),
				slog.String("stack", string(pe.Stack)),
			)
		}
	}()
	fn()
}
