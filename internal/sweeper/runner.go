package sweeper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dreschagin/vessel-guard/pkg/logger"
	"golang.org/x/sync/singleflight"
)

// maxConsecutiveFailures после стольких неудачных циклов подряд sweeper не готов
const maxConsecutiveFailures = 3

// SweepObserver получает статус каждого цикла (ok / failed)
type SweepObserver interface {
	ObserveSweep(status string)
}

// Runner запускает циклы по таймеру и по запросу.
// Одновременно идет не больше одного цикла: ручной запуск во время
// планового присоединяется к нему и получает тот же итог.
type Runner struct {
	service    *Service
	log        *logger.Logger
	observer   SweepObserver
	interval   time.Duration
	runTimeout time.Duration
	now        func() time.Time

	flight singleflight.Group

	mu    sync.RWMutex
	state Snapshot
}

func NewRunner(service *Service, observer SweepObserver, interval, runTimeout time.Duration, log *logger.Logger) *Runner {
	if runTimeout <= 0 {
		runTimeout = 30 * time.Second
	}
	r := &Runner{
		service:    service,
		log:        log,
		observer:   observer,
		interval:   interval,
		runTimeout: runTimeout,
		now:        time.Now,
	}
	r.state = Snapshot{StartedAt: r.now(), Interval: interval}
	return r
}

func (r *Runner) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.setNextRun(r.now().Add(r.interval))
	for {
		select {
		case <-ticker.C:
			// ошибка уже в логе и в snapshot
			_, _ = r.RunOnce(ctx)
			r.setNextRun(r.now().Add(r.interval))
		case <-ctx.Done():
			return
		}
	}
}

// RunOnce выполняет цикл или дожидается уже идущего
func (r *Runner) RunOnce(ctx context.Context) (*CycleSummary, error) {
	summary, _, err := r.run(ctx)
	return summary, err
}

// run возвращает shared=true, если итог получен от чужого цикла.
// Общий цикл живет в контексте того, кто его начал.
func (r *Runner) run(ctx context.Context) (*CycleSummary, bool, error) {
	v, err, shared := r.flight.Do("sweep", func() (any, error) {
		return r.cycle(ctx)
	})
	if err != nil {
		return nil, shared, err
	}
	return v.(*CycleSummary), shared, nil
}

func (r *Runner) cycle(ctx context.Context) (*CycleSummary, error) {
	r.mu.Lock()
	r.state.Running = true
	r.mu.Unlock()

	runCtx, cancel := context.WithTimeout(ctx, r.runTimeout)
	defer cancel()
	summary, err := r.service.EvaluateActive(runCtx)
	finished := r.now()

	r.mu.Lock()
	r.state.Running = false
	r.state.LastRunAt = finished
	if err != nil {
		err = fmt.Errorf("sweep cycle failed: %w", err)
		r.state.LastError = err.Error()
		r.state.ConsecutiveFailures++
	} else {
		r.state.LastError = ""
		r.state.ConsecutiveFailures = 0
		r.state.LastSuccessAt = finished
		r.state.LastSummary = summary
	}
	failures := r.state.ConsecutiveFailures
	r.mu.Unlock()

	if err != nil {
		r.observe("failed")
		r.log.Error("Telemetry sweep failed", err, "consecutive_failures", failures)
		return nil, err
	}
	r.observe("ok")

	if summary.SeriesTotal == 0 {
		r.log.Debug("Telemetry sweep found no active series", "purged", summary.PurgedCount)
		return summary, nil
	}
	r.log.Info("Telemetry sweep completed",
		"series_total", summary.SeriesTotal,
		"anomalies", summary.AnomalyCount,
		"critical", summary.CriticalCount,
		"failed", summary.FailedCount,
		"stored", summary.StoredCount,
		"purged", summary.PurgedCount,
		"duration", summary.Duration.String())
	return summary, nil
}

// Snapshot копия состояния для /summary и проб
func (r *Runner) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := r.state
	if r.state.LastSummary != nil {
		copied := *r.state.LastSummary
		copied.Outcomes = append([]SeriesOutcome(nil), r.state.LastSummary.Outcomes...)
		out.LastSummary = &copied
	}
	return out
}

// Readiness nil, если последний успешный цикл свежий и серия неудач короче порога
func (r *Runner) Readiness() error {
	s := r.Snapshot()
	switch {
	case s.LastSuccessAt.IsZero():
		return fmt.Errorf("no successful sweep cycle yet")
	case s.ConsecutiveFailures >= maxConsecutiveFailures:
		return fmt.Errorf("%d sweep cycles failed in a row: %s", s.ConsecutiveFailures, s.LastError)
	case s.Interval > 0 && r.now().Sub(s.LastSuccessAt) > 3*s.Interval:
		return fmt.Errorf("last successful sweep at %s is stale", s.LastSuccessAt.UTC().Format(time.RFC3339))
	}
	return nil
}

func (r *Runner) setNextRun(at time.Time) {
	r.mu.Lock()
	r.state.NextRunAt = at
	r.mu.Unlock()
}

func (r *Runner) observe(status string) {
	if r.observer != nil {
		r.observer.ObserveSweep(status)
	}
}
