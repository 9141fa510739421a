package internal_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/flagon/internal"
)

func TestAppContext_PushPop(t *testing.T) {
	t.Parallel()

	app := internal.New()
	_, err := internal.CurrentApp(context.Background())
	require.ErrorIs(t, err, internal.ErrOutsideAppContext)

	ac := app.AppContext()
	ctx, err := ac.Push(context.Background())
	require.NoError(t, err)

	got, err := internal.CurrentApp(ctx)
	require.NoError(t, err)
	assert.Same(t, app, got)
	assert.True(t, internal.HasAppContext(ctx))
	assert.False(t, internal.HasRequestContext(ctx))

	require.NoError(t, ac.Pop(ctx, nil))
	_, err = internal.CurrentApp(ctx)
	assert.ErrorIs(t, err, internal.ErrOutsideAppContext)
}

func TestAppContext_NestedSameAppIsRefCounted(t *testing.T) {
	t.Parallel()

	var teardowns int
	app := internal.New()
	app.TeardownAppContext(func(context.Context, error) { teardowns++ })

	outer := app.AppContext()
	ctx, err := outer.Push(context.Background())
	require.NoError(t, err)
	outer.G().Set("user", "gopher")

	inner := app.AppContext()
	ctx, err = inner.Push(ctx)
	require.NoError(t, err)

	ac, err := internal.CurrentAppContext(ctx)
	require.NoError(t, err)
	assert.Same(t, outer, ac)
	v, err := inner.G().Get("user")
	require.NoError(t, err)
	assert.Equal(t, "gopher", v)

	require.NoError(t, inner.Pop(ctx, nil))
	assert.Zero(t, teardowns)
	assert.True(t, internal.HasAppContext(ctx))

	require.NoError(t, outer.Pop(ctx, nil))
	assert.Equal(t, 1, teardowns)
	assert.False(t, internal.HasAppContext(ctx))
}

func TestAppContext_DifferentAppsStack(t *testing.T) {
	t.Parallel()

	first := internal.New(internal.WithName("first"))
	second := internal.New(internal.WithName("second"))

	ac1 := first.AppContext()
	ctx, err := ac1.Push(context.Background())
	require.NoError(t, err)
	ac2 := second.AppContext()
	ctx, err = ac2.Push(ctx)
	require.NoError(t, err)

	got, err := internal.CurrentApp(ctx)
	require.NoError(t, err)
	assert.Same(t, second, got)

	assert.ErrorIs(t, ac1.Pop(ctx, nil), internal.ErrContextMismatch)
	require.NoError(t, ac2.Pop(ctx, nil))

	got, err = internal.CurrentApp(ctx)
	require.NoError(t, err)
	assert.Same(t, first, got)
	require.NoError(t, ac1.Pop(ctx, nil))
}

func TestAppContext_InterleavedSamePush(t *testing.T) {
	t.Parallel()

	var teardowns int
	first := internal.New(internal.WithName("first"))
	first.TeardownAppContext(func(context.Context, error) { teardowns++ })
	second := internal.New(internal.WithName("second"))

	acA := first.AppContext()
	acB := second.AppContext()

	ctx, err := acA.Push(context.Background())
	require.NoError(t, err)
	ctx, err = acB.Push(ctx)
	require.NoError(t, err)
	ctx, err = acA.Push(ctx)
	require.NoError(t, err)

	got, err := internal.CurrentApp(ctx)
	require.NoError(t, err)
	assert.Same(t, first, got)

	require.NoError(t, acA.Pop(ctx, nil))
	assert.Zero(t, teardowns)
	got, err = internal.CurrentApp(ctx)
	require.NoError(t, err)
	assert.Same(t, second, got)

	require.NoError(t, acB.Pop(ctx, nil))
	assert.Zero(t, teardowns)
	assert.True(t, internal.HasAppContext(ctx))

	require.NoError(t, acA.Pop(ctx, nil))
	assert.Equal(t, 1, teardowns)
	assert.False(t, internal.HasAppContext(ctx))
}

func TestAppContext_TeardownReverseOrderAndIsolation(t *testing.T) {
	t.Parallel()

	var calls []string
	var got error
	boom := errors.New("boom")

	app := internal.New()
	app.TeardownAppContext(func(_ context.Context, err error) {
		calls = append(calls, "first")
		got = err
	})
	app.TeardownAppContext(func(context.Context, error) { panic("broken") })
	app.TeardownAppContext(func(context.Context, error) { calls = append(calls, "third") })

	err := app.AppContext().Run(context.Background(), func(context.Context) error { return boom })
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"third", "first"}, calls)
	assert.ErrorIs(t, got, boom)
}

func TestAppContext_PopWithoutPush(t *testing.T) {
	t.Parallel()

	app := internal.New()
	err := app.AppContext().Pop(context.Background(), nil)
	assert.ErrorIs(t, err, internal.ErrContextNotPushed)
}

func TestGlobals(t *testing.T) {
	t.Parallel()

	app := internal.New()
	err := app.AppContext().Run(context.Background(), func(ctx context.Context) error {
		g, err := internal.G(ctx)
		require.NoError(t, err)

		_, err = g.Get("missing")
		require.ErrorIs(t, err, internal.ErrGlobalNotFound)

		g.Set("db", "conn")
		assert.True(t, g.Has("db"))
		v, err := internal.GlobalValue[string](g, "db")
		require.NoError(t, err)
		assert.Equal(t, "conn", v)

		_, err = internal.GlobalValue[int](g, "db")
		require.ErrorIs(t, err, internal.ErrGlobalType)

		popped, err := g.Pop("db")
		require.NoError(t, err)
		assert.Equal(t, "conn", popped)
		fallback, err := g.Pop("db", "none")
		require.NoError(t, err)
		assert.Equal(t, "none", fallback)
		return nil
	})
	require.NoError(t, err)

	_, err = internal.G(context.Background())
	assert.ErrorIs(t, err, internal.ErrOutsideAppContext)
}

func TestRequestContext_ImplicitAppContext(t *testing.T) {
	t.Parallel()

	var appTeardowns int
	app := internal.New()
	app.TeardownAppContext(func(context.Context, error) { appTeardowns++ })
	app.GET("/", func(c internal.Context) (any, error) {
		req, err := internal.CurrentRequest(c)
		require.NoError(t, err)
		assert.Equal(t, "/", req.URL.Path)

		a, err := internal.CurrentApp(c)
		require.NoError(t, err)
		assert.Same(t, app, a)
		return "ok", nil
	}, internal.EndpointName("index"))

	rec := httptest.NewRecorder()
	require.NoError(t, app.Dispatch(rec, httptest.NewRequest(http.MethodGet, "/", nil)))
	assert.Equal(t, 1, appTeardowns)
}

func TestRequestContext_ReusesActiveAppContext(t *testing.T) {
	t.Parallel()

	var appTeardowns int
	app := internal.New()
	app.TeardownAppContext(func(context.Context, error) { appTeardowns++ })
	app.GET("/", func(c internal.Context) (any, error) {
		v, err := c.G().Get("preset")
		if err != nil {
			return nil, err
		}
		return v.(string), nil
	}, internal.EndpointName("index"))

	ac := app.AppContext()
	ctx, err := ac.Push(context.Background())
	require.NoError(t, err)
	ac.G().Set("preset", "from app context")

	rec := httptest.NewRecorder()
	req := httptest.NewRequestWithContext(ctx, http.MethodGet, "/", nil)
	require.NoError(t, app.Dispatch(rec, req))
	assert.Equal(t, "from app context", rec.Body.String())
	assert.Zero(t, appTeardowns)

	require.NoError(t, ac.Pop(ctx, nil))
	assert.Equal(t, 1, appTeardowns)
}

func TestRequestContext_PopIsIdempotent(t *testing.T) {
	t.Parallel()

	var teardowns int
	app := internal.New()
	app.TeardownRequest(func(internal.Context, error) { teardowns++ })

	rc, done, err := app.TestRequestContext(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.True(t, internal.HasRequestContext(rc))

	done()
	require.NoError(t, rc.Pop(nil))
	assert.Equal(t, 1, teardowns)
	assert.False(t, internal.HasRequestContext(rc))
	assert.False(t, internal.HasAppContext(rc))
}

func TestRequestContext_PopOutOfOrderUnwinds(t *testing.T) {
	t.Parallel()

	var teardowns int
	app := internal.New()
	app.TeardownRequest(func(internal.Context, error) { teardowns++ })

	outer, _, err := app.TestRequestContext(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	inner, _, err := app.TestRequestContext(httptest.NewRequestWithContext(outer, http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.True(t, internal.HasRequestContext(inner))

	err = outer.Pop(nil)
	require.ErrorIs(t, err, internal.ErrContextMismatch)
	assert.Equal(t, 1, teardowns)
	assert.False(t, internal.HasRequestContext(outer))
	assert.False(t, internal.HasAppContext(outer))

	require.NoError(t, outer.Pop(nil))
	assert.Equal(t, 1, teardowns)
}

func TestCopyCurrentRequestContext(t *testing.T) {
	t.Parallel()

	app := internal.New()
	app.GET("/", func(c internal.Context) (any, error) {
		ctx, err := internal.CopyCurrentRequestContext(c)
		require.NoError(t, err)

		done := make(chan string)
		go func() {
			req, err := internal.CurrentRequest(ctx)
			if err != nil {
				done <- err.Error()
				return
			}
			done <- req.URL.Path
		}()
		return <-done, nil
	}, internal.EndpointName("index"))

	rec := serve(t, app, http.MethodGet, "/")
	assert.Equal(t, "/", rec.Body.String())

	_, err := internal.CopyCurrentRequestContext(context.Background())
	assert.ErrorIs(t, err, internal.ErrOutsideRequestContext)
}

func TestSetupFinishedAfterFirstRequest(t *testing.T) {
	t.Parallel()

	app := internal.New()
	app.GET("/", text("ok"), internal.EndpointName("index"))
	serve(t, app, http.MethodGet, "/")
	require.True(t, app.GotFirstRequest())

	calls := map[string]func(){
		"AddURLRule":       func() { app.AddURLRule("/late", "late", text("late")) },
		"BeforeRequest":    func() { app.BeforeRequest(func(internal.Context) (any, error) { return nil, nil }) },
		"AfterRequest":     func() { app.AfterRequest(func(_ internal.Context, r *internal.Response) (*internal.Response, error) { return r, nil }) },
		"ErrorHandler":     func() { app.ErrorHandler(404, func(internal.Context, error) (any, error) { return "", nil }) },
		"ContextProcessor": func() { app.ContextProcessor(func(context.Context) map[string]any { return nil }) },
		"TeardownRequest":  func() { app.TeardownRequest(func(internal.Context, error) {}) },
	}
	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			defer func() {
				rec := recover()
				require.NotNil(t, rec, "%s must panic", name)
				err, ok := rec.(error)
				require.True(t, ok)
				assert.ErrorIs(t, err, internal.ErrSetupFinished)
				assert.Contains(t, err.Error(), name)
			}()
			call()
		})
	}
}

func TestSetupFinishedWhenMiddlewareAnswers(t *testing.T) {
	t.Parallel()

	app := internal.New()
	app.Use(func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
	})

	rec := serve(t, app, http.MethodGet, "/")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.True(t, app.GotFirstRequest())

	defer func() {
		rec := recover()
		require.NotNil(t, rec, "Use must panic")
		err, ok := rec.(error)
		require.True(t, ok)
		assert.ErrorIs(t, err, internal.ErrSetupFinished)
		assert.Contains(t, err.Error(), "Use")
	}()
	app.Use(func(next http.Handler) http.Handler { return next })
}
