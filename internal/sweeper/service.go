// Package sweeper периодически оценивает все ряды телеметрии, получавшие
// показания за последний интервал, и очищает устаревшие показания.
package sweeper

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dreschagin/vessel-guard/internal/application/usecase"
	"github.com/dreschagin/vessel-guard/internal/domain/entity"
	"github.com/dreschagin/vessel-guard/internal/domain/repository"
	"github.com/dreschagin/vessel-guard/internal/domain/valueobject"
	"golang.org/x/sync/errgroup"
)

// Evaluator оценивает окно одного ряда (usecase.EvaluateAnomalyUseCase)
type Evaluator interface {
	Evaluate(ctx context.Context, cmd usecase.EvaluateAnomalyCommand) (*entity.AnomalyVerdict, error)
}

// BatchVerdictStore пакетная запись вердиктов цикла
type BatchVerdictStore interface {
	PutVerdicts(ctx context.Context, verdicts []*entity.AnomalyVerdict) error
}

type Options struct {
	WindowSize    int
	Lookback      time.Duration
	MaxSeries     int
	Retention     time.Duration
	SummaryWindow int
	Concurrency   int
}

func (o Options) withDefaults() Options {
	if o.WindowSize <= 0 {
		o.WindowSize = 20
	}
	if o.Lookback <= 0 {
		o.Lookback = 15 * time.Minute
	}
	if o.MaxSeries <= 0 {
		o.MaxSeries = 500
	}
	if o.SummaryWindow <= 0 {
		o.SummaryWindow = 50
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 8
	}
	return o
}

type Service struct {
	repo      repository.TelemetryRepository
	evaluator Evaluator
	store     BatchVerdictStore
	opts      Options
	now       func() time.Time
}

// NewService создает сервис; store может быть nil
func NewService(repo repository.TelemetryRepository, evaluator Evaluator, store BatchVerdictStore, opts Options) *Service {
	return &Service{
		repo:      repo,
		evaluator: evaluator,
		store:     store,
		opts:      opts.withDefaults(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// EvaluateActive оценивает последнее окно каждого активного ряда.
// Ошибка одного ряда попадает в outcome и не прерывает цикл.
func (s *Service) EvaluateActive(ctx context.Context) (*CycleSummary, error) {
	started := s.now()

	keys, err := s.repo.FindActiveSeries(ctx, started.Add(-s.opts.Lookback), s.opts.MaxSeries)
	if err != nil {
		return nil, fmt.Errorf("find active series: %w", err)
	}

	outcomes := make([]SeriesOutcome, len(keys))
	verdicts := make([]*entity.AnomalyVerdict, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for i, key := range keys {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i], verdicts[i] = s.evaluateSeries(gctx, key)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("sweep cancelled: %w", err)
	}

	summary := &CycleSummary{
		GeneratedAt: started,
		SeriesTotal: len(keys),
	}

	stored := make([]*entity.AnomalyVerdict, 0, len(verdicts))
	for i, verdict := range verdicts {
		if outcomes[i].Error != "" {
			summary.FailedCount++
		}
		if verdict == nil {
			continue
		}
		stored = append(stored, verdict)
		if verdict.AnomalyDetected() {
			summary.AnomalyCount++
		}
		if verdict.Severity() == valueobject.SeverityCritical {
			summary.CriticalCount++
		}
	}

	if s.store != nil && len(stored) > 0 {
		if err := s.store.PutVerdicts(ctx, stored); err != nil {
			return nil, fmt.Errorf("store verdicts: %w", err)
		}
		summary.StoredCount = len(stored)
	}

	if s.opts.Retention > 0 {
		purged, err := s.repo.DeleteOlderThan(ctx, started.Add(-s.opts.Retention))
		if err != nil {
			return nil, fmt.Errorf("purge old readings: %w", err)
		}
		summary.PurgedCount = purged
	}

	summary.Outcomes = topOutcomes(outcomes, s.opts.SummaryWindow)
	summary.Duration = s.now().Sub(started)
	return summary, nil
}

func (s *Service) evaluateSeries(ctx context.Context, key repository.SeriesKey) (SeriesOutcome, *entity.AnomalyVerdict) {
	outcome := SeriesOutcome{VesselID: key.VesselID, ParameterName: key.ParameterName}

	window, err := s.repo.FindWindow(ctx, key, s.opts.WindowSize)
	if err != nil {
		outcome.Error = fmt.Sprintf("load window: %v", err)
		return outcome, nil
	}
	if len(window) == 0 {
		return outcome, nil
	}

	samples := make([]float64, len(window))
	for i, reading := range window {
		samples[i] = reading.Value().Raw()
	}
	outcome.Samples = len(samples)

	verdict, err := s.evaluator.Evaluate(ctx, usecase.EvaluateAnomalyCommand{
		VesselID:      key.VesselID,
		ParameterName: key.ParameterName,
		Samples:       samples,
	})
	if err != nil {
		outcome.Error = fmt.Sprintf("evaluate: %v", err)
		return outcome, nil
	}

	outcome.AnomalyDetected = verdict.AnomalyDetected()
	outcome.AnomalyType = verdict.AnomalyType().String()
	outcome.Severity = verdict.Severity().String()
	outcome.Confidence = verdict.ConfidenceScore()
	outcome.EvaluatedAt = verdict.EvaluatedAt()
	return outcome, verdict
}

// topOutcomes оставляет limit самых значимых результатов: ошибки и аномалии первыми
func topOutcomes(outcomes []SeriesOutcome, limit int) []SeriesOutcome {
	sorted := append([]SeriesOutcome(nil), outcomes...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if (a.Error != "") != (b.Error != "") {
			return a.Error != ""
		}
		if a.AnomalyDetected != b.AnomalyDetected {
			return a.AnomalyDetected
		}
		ra, rb := valueobject.Severity(a.Severity).Rank(), valueobject.Severity(b.Severity).Rank()
		if ra != rb {
			return ra > rb
		}
		if a.VesselID != b.VesselID {
			return a.VesselID < b.VesselID
		}
		return a.ParameterName < b.ParameterName
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}
