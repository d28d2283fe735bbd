package sweeper

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

// SharedRunHeader выставляется, если ручной запуск присоединился к идущему циклу
const SharedRunHeader = "X-Sweep-Shared"

// Handler служебный HTTP-интерфейс sweeper'а: пробы, итог последнего цикла,
// ручной запуск и /metrics
type Handler struct {
	runner  *Runner
	metrics http.Handler
}

// NewHandler metrics может быть nil
func NewHandler(runner *Runner, metrics http.Handler) *Handler {
	return &Handler{runner: runner, metrics: metrics}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.healthz)
	mux.HandleFunc("GET /readyz", h.readyz)
	mux.HandleFunc("GET /api/v1/sweeper/summary", h.summary)
	mux.HandleFunc("POST /api/v1/sweeper/run", h.run)
	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics)
	}
	return mux
}

// healthz процесс жив; состояние циклов только для информации
func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	s := h.runner.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":              "ok",
		"uptime":              time.Since(s.StartedAt).Round(time.Second).String(),
		"running":             s.Running,
		"consecutiveFailures": s.ConsecutiveFailures,
	})
}

func (h *Handler) readyz(w http.ResponseWriter, _ *http.Request) {
	if err := h.runner.Readiness(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "reason": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *Handler) summary(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.runner.Snapshot())
}

// run запускает цикл вне расписания. Отключение клиента цикл не прерывает:
// его итог может ждать плановый запуск.
func (h *Handler) run(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.runner.runTimeout+5*time.Second)
	defer cancel()

	summary, shared, err := h.runner.run(ctx)
	w.Header().Set(SharedRunHeader, strconv.FormatBool(shared))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(data)
}
