package internal_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/flagon/internal"
)

func TestHealth_Liveness(t *testing.T) {
	t.Parallel()

	app := internal.New(internal.WithHealthChecks())

	rec := serve(t, app, http.MethodGet, "/health/live")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	rec = serve(t, app, http.MethodGet, "/health/live?format=json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestHealth_Readiness(t *testing.T) {
	t.Parallel()

	healthy := true
	app := internal.New(internal.WithHealthChecks(
		internal.WithReadinessPath("/ready"),
		internal.WithReadinessTimeout(time.Second),
		internal.WithReadinessCheck("db", func(context.Context) error {
			if healthy {
				return nil
			}
			return errors.New("connection refused")
		}),
	))

	rec := serve(t, app, http.MethodGet, "/ready")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	healthy = false
	rec = serve(t, app, http.MethodGet, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "Service Unavailable", rec.Body.String())

	rec = serve(t, app, http.MethodGet, "/ready?format=json")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var report struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "unhealthy", report.Status)
}

func TestHealth_Disabled(t *testing.T) {
	t.Parallel()

	rec := serve(t, internal.New(), http.MethodGet, "/health/live")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
