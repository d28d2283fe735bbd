package http

import (
	"context"
	"net/http"
	"time"

	"github.com/dreschagin/vessel-guard/internal/infrastructure/observability/metrics"
	"github.com/dreschagin/vessel-guard/internal/interfaces/http/handler"
	"github.com/dreschagin/vessel-guard/internal/interfaces/http/middleware"
	"github.com/dreschagin/vessel-guard/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReadinessCheck проверяет доступность зависимости (например, Postgres ping)
type ReadinessCheck func(ctx context.Context) error

// Handlers все обработчики API
type Handlers struct {
	Anomaly   *handler.AnomalyAPIHandler
	Safety    *handler.SafetyAPIHandler
	Telemetry *handler.TelemetryAPIHandler
	WebSocket *handler.WebSocketHandler
}

// Router настраивает маршруты приложения
type Router struct {
	mux       *http.ServeMux
	handlers  Handlers
	metrics   *metrics.Metrics
	gatherer  prometheus.Gatherer
	limiter   *middleware.IPRateLimiter
	readiness map[string]ReadinessCheck
	logger    *logger.Logger
}

// NewRouter создает новый router.
// metrics, limiter и readiness могут быть nil.
func NewRouter(
	handlers Handlers,
	metrics *metrics.Metrics,
	gatherer prometheus.Gatherer,
	limiter *middleware.IPRateLimiter,
	readiness map[string]ReadinessCheck,
	logger *logger.Logger,
) *Router {
	return &Router{
		mux:       http.NewServeMux(),
		handlers:  handlers,
		metrics:   metrics,
		gatherer:  gatherer,
		limiter:   limiter,
		readiness: readiness,
		logger:    logger,
	}
}

// Setup настраивает все маршруты
func (rt *Router) Setup() http.Handler {
	rt.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	rt.mux.HandleFunc("GET /readyz", rt.ready)
	if rt.gatherer != nil {
		rt.mux.Handle("GET /metrics", promhttp.HandlerFor(rt.gatherer, promhttp.HandlerOpts{}))
	}

	// WebSocket
	if rt.handlers.WebSocket != nil {
		rt.mux.HandleFunc("GET /ws", rt.handlers.WebSocket.HandleConnection)
	}

	// Детектор аномалий
	if h := rt.handlers.Anomaly; h != nil {
		rt.mux.HandleFunc("POST /api/v1/anomaly/evaluate", h.Evaluate)
		rt.mux.HandleFunc("GET /api/v1/anomaly/verdicts", h.ListVerdicts)
		rt.mux.HandleFunc("GET /api/v1/anomaly/profiles", h.Profiles)
	}

	// Движок безопасности
	if h := rt.handlers.Safety; h != nil {
		rt.mux.HandleFunc("POST /api/v1/safety/location", h.AssessLocation)
		rt.mux.HandleFunc("POST /api/v1/safety/route", h.AnalyzeRoute)
		rt.mux.HandleFunc("GET /api/v1/safety/equipment", h.CheckEquipment)
		rt.mux.HandleFunc("POST /api/v1/safety/emergency", h.HandleEmergency)
	}

	// Телеметрия
	if h := rt.handlers.Telemetry; h != nil {
		rt.mux.HandleFunc("POST /api/v1/telemetry", h.Ingest)
		rt.mux.HandleFunc("GET /api/v1/telemetry/history", h.History)
	}

	// Применяем middleware, снаружи внутрь:
	// RequestLog -> metrics -> Recovery -> RateLimit -> Compression -> mux
	var handler http.Handler = rt.mux
	if compress, err := middleware.Compression(); err == nil {
		handler = compress(handler)
	} else {
		rt.logger.Warn("Response compression disabled", "error", err.Error())
	}
	if rt.limiter != nil {
		var onReject func()
		if rt.metrics != nil {
			onReject = rt.metrics.ObserveRateLimited
		}
		handler = middleware.RateLimit(rt.limiter, onReject)(handler)
	}
	handler = middleware.Recovery(rt.logger)(handler)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(handler)
	}
	handler = middleware.RequestLog(rt.logger)(handler)

	return handler
}

func (rt *Router) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	failed := make(map[string]string)
	for name, check := range rt.readiness {
		if err := check(ctx); err != nil {
			rt.logger.FromContext(r.Context()).Warn("Readiness check failed", "check", name, "error", err.Error())
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		handler.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "not ready", "failed": failed})
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
