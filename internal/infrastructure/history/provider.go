// Package history предоставляет историческую базу ряда телеметрии
// для сравнения z-score в детекторе аномалий.
package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dreschagin/vessel-guard/internal/application/port"
	"github.com/dreschagin/vessel-guard/internal/domain/repository"
	"github.com/dreschagin/vessel-guard/internal/domain/valueobject"
	rediscache "github.com/dreschagin/vessel-guard/internal/infrastructure/cache/redis"
	"github.com/dreschagin/vessel-guard/pkg/logger"
	"golang.org/x/sync/singleflight"
)

// RepositoryProvider считает базу по хранилищу показаний
type RepositoryProvider struct {
	repo repository.TelemetryRepository
	now  func() time.Time
}

var _ port.HistoricalContextProvider = (*RepositoryProvider)(nil)

func NewRepositoryProvider(repo repository.TelemetryRepository) *RepositoryProvider {
	return &RepositoryProvider{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// GetBaseline возвращает mean/stddev/count за последние windowDays суток
func (p *RepositoryProvider) GetBaseline(ctx context.Context, vesselID, parameterName string, windowDays int) (*valueobject.HistoricalBaseline, error) {
	window, err := valueobject.LookbackDays(p.now(), windowDays)
	if err != nil {
		return nil, fmt.Errorf("invalid baseline window: %w", err)
	}

	baseline, err := p.repo.AggregateBaseline(ctx, repository.SeriesKey{
		VesselID:      vesselID,
		ParameterName: parameterName,
	}, window)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate baseline: %w", err)
	}
	return baseline, nil
}

// cachedBaseline форма записи в кэше; Found=false кэширует отсутствие истории
type cachedBaseline struct {
	Found       bool    `json:"found"`
	Mean        float64 `json:"mean"`
	StdDev      float64 `json:"stdDev"`
	SampleCount int     `json:"sampleCount"`
}

// CachedProvider кэширует базу в port.Cache и склеивает параллельные запросы одного ряда
type CachedProvider struct {
	next  port.HistoricalContextProvider
	cache port.Cache
	group singleflight.Group
	log   *logger.Logger
	now   func() time.Time
}

var _ port.HistoricalContextProvider = (*CachedProvider)(nil)

func NewCachedProvider(next port.HistoricalContextProvider, cache port.Cache, log *logger.Logger) *CachedProvider {
	return &CachedProvider{
		next:  next,
		cache: cache,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (p *CachedProvider) GetBaseline(ctx context.Context, vesselID, parameterName string, windowDays int) (*valueobject.HistoricalBaseline, error) {
	key := rediscache.BaselineKey(vesselID, parameterName, windowDays, p.now())

	var cached cachedBaseline
	err := p.cache.Get(ctx, key, &cached)
	if err == nil {
		return cached.toBaseline()
	}
	if !errors.Is(err, port.ErrCacheMiss) && p.log != nil {
		p.log.Warn("Baseline cache read failed", "key", key, "error", err.Error())
	}

	v, err, _ := p.group.Do(key, func() (interface{}, error) {
		baseline, err := p.next.GetBaseline(ctx, vesselID, parameterName, windowDays)
		if err != nil {
			return nil, err
		}

		entry := cachedBaseline{Found: baseline != nil}
		if baseline != nil {
			entry.Mean = baseline.Mean()
			entry.StdDev = baseline.StdDev()
			entry.SampleCount = baseline.SampleCount()
		}
		if err := p.cache.Set(context.WithoutCancel(ctx), key, entry, time.Hour); err != nil && p.log != nil {
			p.log.Warn("Baseline cache write failed", "key", key, "error", err.Error())
		}
		return baseline, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*valueobject.HistoricalBaseline), nil
}

func (c cachedBaseline) toBaseline() (*valueobject.HistoricalBaseline, error) {
	if !c.Found {
		return nil, nil
	}
	baseline, err := valueobject.NewHistoricalBaseline(c.Mean, c.StdDev, c.SampleCount)
	if err != nil {
		return nil, fmt.Errorf("corrupt cached baseline: %w", err)
	}
	return &baseline, nil
}
