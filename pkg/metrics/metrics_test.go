package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/flagon/pkg/metrics"
)

func TestRecorder(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	rec, err := metrics.New(metrics.WithRegistry(reg), metrics.WithNamespace("test"))
	require.NoError(t, err)

	rec.Started()
	rec.Finished(http.MethodGet, "index", 200, 15*time.Millisecond)
	rec.Started()
	rec.Finished(http.MethodGet, "", 404, time.Millisecond)
	rec.Exception("index", "*errors.errorString")

	count, err := testutil.GatherAndCount(reg, "test_requests_total")
	require.NoError(t, err)
	require.Equal(t, 2, count)

	count, err = testutil.GatherAndCount(reg, "test_exceptions_total")
	require.NoError(t, err)
	require.Equal(t, 1, count)

	w := httptest.NewRecorder()
	rec.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `test_requests_total{endpoint="<unmatched>",method="GET",status="404"} 1`)
	require.Contains(t, w.Body.String(), "test_requests_in_flight 0")
}

func TestNew_ReusesRegisteredCollectors(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	a, err := metrics.New(metrics.WithRegistry(reg))
	require.NoError(t, err)
	b, err := metrics.New(metrics.WithRegistry(reg))
	require.NoError(t, err)

	a.Started()
	a.Finished(http.MethodPost, "create", 201, time.Millisecond)
	b.Started()
	b.Finished(http.MethodPost, "create", 201, time.Millisecond)

	count, err := testutil.GatherAndCount(reg, "flagon_requests_total")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestRecorder_NilSafe(t *testing.T) {
	t.Parallel()

	var rec *metrics.Recorder
	rec.Started()
	rec.Finished(http.MethodGet, "x", 200, 0)
	rec.Exception("x", "boom")
}
