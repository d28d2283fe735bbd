// Package metrics экспортирует метрики движков и HTTP слоя в Prometheus.
package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dreschagin/vessel-guard/internal/application/port"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles prometheus collectors used by the API and the sweeper.
type Metrics struct {
	RequestsTotal      *prometheus.CounterVec
	RequestDurationSec *prometheus.HistogramVec
	RateLimitDropped   prometheus.Counter
	VerdictsTotal      *prometheus.CounterVec
	VerdictDurationSec *prometheus.HistogramVec
	AssessmentsTotal   *prometheus.CounterVec
	AssessmentDuration *prometheus.HistogramVec
	SkippedChecks      *prometheus.CounterVec
	AlertsTotal        *prometheus.CounterVec
	SweepRuns          *prometheus.CounterVec
}

var _ port.EvaluationObserver = (*Metrics)(nil)

var engineBuckets = []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5}

func New(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vessel_guard_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"route", "method", "status"}),
		RequestDurationSec: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vessel_guard_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		RateLimitDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vessel_guard_ratelimit_dropped_total",
			Help: "Total number of requests dropped by rate limiter.",
		}),
		VerdictsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vessel_guard_anomaly_verdicts_total",
			Help: "Anomaly verdicts by parameter, anomaly type and severity.",
		}, []string{"parameter", "anomaly_type", "severity"}),
		VerdictDurationSec: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vessel_guard_anomaly_evaluation_seconds",
			Help:    "Anomaly evaluation duration in seconds.",
			Buckets: engineBuckets,
		}, []string{"parameter"}),
		AssessmentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vessel_guard_safety_assessments_total",
			Help: "Safety assessments by type and risk level.",
		}, []string{"assessment_type", "risk_level"}),
		AssessmentDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vessel_guard_safety_assessment_seconds",
			Help:    "Safety assessment duration in seconds.",
			Buckets: engineBuckets,
		}, []string{"assessment_type"}),
		SkippedChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vessel_guard_skipped_checks_total",
			Help: "Checks skipped because a data source was unavailable.",
		}, []string{"operation", "check"}),
		AlertsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vessel_guard_alerts_total",
			Help: "Alerts dispatched by severity.",
		}, []string{"severity"}),
		SweepRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vessel_guard_sweep_runs_total",
			Help: "Telemetry sweep runs by outcome.",
		}, []string{"status"}),
	}

	registry.MustRegister(
		m.RequestsTotal,
		m.RequestDurationSec,
		m.RateLimitDropped,
		m.VerdictsTotal,
		m.VerdictDurationSec,
		m.AssessmentsTotal,
		m.AssessmentDuration,
		m.SkippedChecks,
		m.AlertsTotal,
		m.SweepRuns,
	)

	return m
}

func (m *Metrics) ObserveVerdict(parameterName, anomalyType, severity string, seconds float64) {
	m.VerdictsTotal.WithLabelValues(parameterName, anomalyType, severity).Inc()
	m.VerdictDurationSec.WithLabelValues(parameterName).Observe(seconds)
}

func (m *Metrics) ObserveAssessment(assessmentType, riskLevel string, seconds float64) {
	m.AssessmentsTotal.WithLabelValues(assessmentType, riskLevel).Inc()
	m.AssessmentDuration.WithLabelValues(assessmentType).Observe(seconds)
}

func (m *Metrics) ObserveSkippedCheck(operation, check string) {
	m.SkippedChecks.WithLabelValues(operation, check).Inc()
}

func (m *Metrics) ObserveAlert(severity string) {
	m.AlertsTotal.WithLabelValues(severity).Inc()
}

// ObserveSweep учитывает завершенный прогон sweeper'а
func (m *Metrics) ObserveSweep(status string) {
	m.SweepRuns.WithLabelValues(status).Inc()
}

// ObserveRateLimited вызывается rate limiter'ом при отказе
func (m *Metrics) ObserveRateLimited() {
	m.RateLimitDropped.Inc()
}

func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startedAt := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		status := strconv.Itoa(wrapped.statusCode)
		route := NormalizeRoute(r.URL.Path)
		m.RequestsTotal.WithLabelValues(route, r.Method, status).Inc()
		m.RequestDurationSec.WithLabelValues(route, r.Method, status).Observe(time.Since(startedAt).Seconds())
	})
}

// NormalizeRoute сворачивает путь в ограниченный набор меток
func NormalizeRoute(path string) string {
	switch {
	case path == "/ws", path == "/healthz", path == "/readyz", path == "/metrics":
		return path
	case strings.HasPrefix(path, "/api/v1/anomaly/"):
		return "/api/v1/anomaly/*"
	case strings.HasPrefix(path, "/api/v1/safety/"):
		return "/api/v1/safety/*"
	case strings.HasPrefix(path, "/api/v1/telemetry"):
		return "/api/v1/telemetry/*"
	case path == "/api/v1" || strings.HasPrefix(path, "/api/v1/"):
		return "/api/v1/*"
	default:
		return "other"
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

// Hijack passes websocket upgrades through wrapped ResponseWriter.
func (rw *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}

func (rw *statusRecorder) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
