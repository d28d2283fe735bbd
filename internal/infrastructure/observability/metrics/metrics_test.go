package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserverCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveVerdict("engine_temperature", "overheating", "high", 0.002)
	m.ObserveVerdict("engine_temperature", "overheating", "high", 0.004)
	m.ObserveAssessment("location", "moderate", 0.01)
	m.ObserveSkippedCheck("assess_location", "weather")
	m.ObserveAlert("critical")
	m.ObserveSweep("ok")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.VerdictsTotal.WithLabelValues("engine_temperature", "overheating", "high")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AssessmentsTotal.WithLabelValues("location", "moderate")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SkippedChecks.WithLabelValues("assess_location", "weather")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AlertsTotal.WithLabelValues("critical")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SweepRuns.WithLabelValues("ok")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.VerdictDurationSec))
}

func TestMiddlewareRecordsStatus(t *testing.T) {
	m := New(prometheus.NewRegistry())
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/safety/location", nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("/api/v1/safety/*", http.MethodPost, "400")))
}

func TestNormalizeRoute(t *testing.T) {
	tests := map[string]string{
		"/ws":                        "/ws",
		"/metrics":                   "/metrics",
		"/api/v1/anomaly/evaluate":   "/api/v1/anomaly/*",
		"/api/v1/safety/route":       "/api/v1/safety/*",
		"/api/v1/telemetry":          "/api/v1/telemetry/*",
		"/api/v1/telemetry/history":  "/api/v1/telemetry/*",
		"/api/v1/profiles":           "/api/v1/*",
		"/favicon.ico":               "other",
	}
	for path, want := range tests {
		assert.Equal(t, want, NormalizeRoute(path), path)
	}
}
