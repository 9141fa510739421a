package middlewares_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/flagon/internal"
	"github.com/dmitrymomot/flagon/middlewares"
)

func TestTimeout(t *testing.T) {
	t.Parallel()

	t.Run("passes through when the view completes in time", func(t *testing.T) {
		t.Parallel()

		rec := do(newApp(middlewares.Timeout(time.Second)), httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "ok", rec.Body.String())
	})

	t.Run("views see the deadline", func(t *testing.T) {
		t.Parallel()

		app := internal.New(internal.WithExtensions(middlewares.Timeout(time.Minute)))
		app.AddURLRule("/", "index", func(c internal.Context) (any, error) {
			deadline, ok := c.Deadline()
			if !ok {
				return "none", nil
			}
			return time.Until(deadline).Round(time.Minute).String(), nil
		})

		rec := do(app, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, "1m0s", rec.Body.String())
	})

	t.Run("deadline errors become 503", func(t *testing.T) {
		t.Parallel()

		var caught error
		app := internal.New(internal.WithExtensions(middlewares.Timeout(10 * time.Millisecond)))
		app.AddURLRule("/", "index", func(c internal.Context) (any, error) {
			<-c.Done()
			return nil, c.Err()
		})
		app.Signals().GotRequestException.Connect(func(_ context.Context, _ any, err error) { caught = err })

		rec := do(app, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		require.Contains(t, rec.Body.String(), "request timeout after 10ms")
		require.Nil(t, caught)
	})

	t.Run("custom message", func(t *testing.T) {
		t.Parallel()

		app := internal.New(internal.WithExtensions(
			middlewares.Timeout(time.Millisecond, middlewares.WithTimeoutMessage("try again later")),
		))
		app.AddURLRule("/", "index", func(c internal.Context) (any, error) {
			<-c.Done()
			return nil, c.Err()
		})

		rec := do(app, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		require.Contains(t, rec.Body.String(), "try again later")
	})
}

func TestTimeoutError(t *testing.T) {
	t.Parallel()

	err := error(&middlewares.TimeoutError{Duration: time.Second})
	require.True(t, middlewares.IsTimeoutError(err))
	require.ErrorIs(t, err, context.DeadlineExceeded)

	te, ok := middlewares.AsTimeoutError(errors.Join(errors.New("other"), err))
	require.True(t, ok)
	require.Equal(t, time.Second, te.Duration)

	_, ok = middlewares.AsTimeoutError(errors.New("other"))
	require.False(t, ok)
}
