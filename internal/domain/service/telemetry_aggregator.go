package service

import (
	"errors"
	"sort"

	"github.com/dreschagin/vessel-guard/internal/domain/entity"
	"github.com/dreschagin/vessel-guard/internal/domain/repository"
)

// TelemetryAggregator предоставляет сервисы для агрегации показаний (Domain Service)
type TelemetryAggregator struct{}

// NewTelemetryAggregator создает новый TelemetryAggregator
func NewTelemetryAggregator() *TelemetryAggregator {
	return &TelemetryAggregator{}
}

// SeriesSummary сводная статистика ряда
type SeriesSummary struct {
	Count int
	Min   float64
	Max   float64
	Mean  float64
	P95   float64
}

// Values возвращает значения показаний в порядке времени снятия
func (a *TelemetryAggregator) Values(readings []*entity.TelemetryReading) []float64 {
	sorted := a.SortByTime(readings, false)
	values := make([]float64, len(sorted))
	for i, r := range sorted {
		values[i] = r.Value().Raw()
	}
	return values
}

// GroupBySeries группирует показания по судну и параметру
func (a *TelemetryAggregator) GroupBySeries(readings []*entity.TelemetryReading) map[repository.SeriesKey][]*entity.TelemetryReading {
	groups := make(map[repository.SeriesKey][]*entity.TelemetryReading)
	for _, r := range readings {
		key := repository.SeriesKey{VesselID: r.VesselID(), ParameterName: r.ParameterName()}
		groups[key] = append(groups[key], r)
	}
	return groups
}

// SortByTime сортирует показания по времени снятия
func (a *TelemetryAggregator) SortByTime(readings []*entity.TelemetryReading, descending bool) []*entity.TelemetryReading {
	sorted := make([]*entity.TelemetryReading, len(readings))
	copy(sorted, readings)

	sort.SliceStable(sorted, func(i, j int) bool {
		if descending {
			return sorted[i].RecordedAt().After(sorted[j].RecordedAt())
		}
		return sorted[i].RecordedAt().Before(sorted[j].RecordedAt())
	})

	return sorted
}

// Summarize вычисляет min/max/mean/p95 значений
func (a *TelemetryAggregator) Summarize(values []float64) (SeriesSummary, error) {
	if len(values) == 0 {
		return SeriesSummary{}, errors.New("no readings to aggregate")
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	index := int(float64(len(sorted)-1) * 0.95)

	return SeriesSummary{
		Count: len(values),
		Min:   sorted[0],
		Max:   sorted[len(sorted)-1],
		Mean:  Mean(values),
		P95:   sorted[index],
	}, nil
}
