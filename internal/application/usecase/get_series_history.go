package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/dreschagin/vessel-guard/internal/application/dto"
	"github.com/dreschagin/vessel-guard/internal/application/port"
	"github.com/dreschagin/vessel-guard/internal/domain/entity"
	"github.com/dreschagin/vessel-guard/internal/domain/repository"
	"github.com/dreschagin/vessel-guard/internal/domain/service"
	"github.com/dreschagin/vessel-guard/internal/domain/valueobject"
	"github.com/dreschagin/vessel-guard/pkg/logger"
)

// GetSeriesHistoryUseCase возвращает историю ряда с агрегатами и кешированием
type GetSeriesHistoryUseCase struct {
	repository repository.TelemetryRepository
	aggregator *service.TelemetryAggregator
	cache      port.Cache
	logger     *logger.Logger
}

// NewGetSeriesHistoryUseCase создает новый use case; cache может быть nil
func NewGetSeriesHistoryUseCase(
	repository repository.TelemetryRepository,
	aggregator *service.TelemetryAggregator,
	cache port.Cache,
	logger *logger.Logger,
) *GetSeriesHistoryUseCase {
	return &GetSeriesHistoryUseCase{
		repository: repository,
		aggregator: aggregator,
		cache:      cache,
		logger:     logger,
	}
}

// Execute выполняет получение истории ряда
func (uc *GetSeriesHistoryUseCase) Execute(
	ctx context.Context,
	key repository.SeriesKey,
	timeRange valueobject.Window,
) (*dto.SeriesHistoryDTO, error) {
	key.VesselID = strings.TrimSpace(key.VesselID)
	key.ParameterName = strings.TrimSpace(key.ParameterName)
	if key.VesselID == "" || key.ParameterName == "" {
		return nil, fmt.Errorf("%w: vessel id and parameter are required", service.ErrInvalidInput)
	}

	// Если кеш не настроен, используем стандартный путь
	if uc.cache == nil {
		return uc.executeWithoutCache(ctx, key, timeRange)
	}

	cacheKey := seriesHistoryPrefix(key) + timeRange.Span().String()

	var cached *dto.SeriesHistoryDTO
	if err := uc.cache.Get(ctx, cacheKey, &cached); err == nil && cached != nil {
		uc.logger.Debug("Cache hit for series history",
			"vessel_id", key.VesselID,
			"parameter", key.ParameterName)
		return cached, nil
	}

	history, err := uc.executeWithoutCache(ctx, key, timeRange)
	if err != nil {
		return nil, err
	}

	// Сохраняем в кеш (асинхронно, не блокируем ответ)
	go func() {
		if err := uc.cache.Set(context.WithoutCancel(ctx), cacheKey, history, 0); err != nil {
			uc.logger.Warn("Failed to cache series history", "error", err.Error())
		}
	}()

	return history, nil
}

func (uc *GetSeriesHistoryUseCase) executeWithoutCache(
	ctx context.Context,
	key repository.SeriesKey,
	timeRange valueobject.Window,
) (*dto.SeriesHistoryDTO, error) {
	readings, err := uc.repository.FindInWindow(ctx, key, timeRange)
	if err != nil {
		uc.logger.Error("Failed to fetch series history", err)
		return nil, fmt.Errorf("failed to fetch series history: %w", err)
	}

	history := &dto.SeriesHistoryDTO{
		VesselID:      key.VesselID,
		ParameterName: key.ParameterName,
		Points:        []dto.ReadingPointDTO{},
	}
	if len(readings) == 0 {
		return history, nil
	}

	sorted := uc.aggregator.SortByTime(readings, false)
	history.Points = toPoints(sorted)

	summary, err := uc.aggregator.Summarize(uc.aggregator.Values(sorted))
	if err != nil {
		return nil, fmt.Errorf("failed to summarize series: %w", err)
	}
	history.Count = summary.Count
	history.Min = summary.Min
	history.Max = summary.Max
	history.Mean = entity.RoundScore(summary.Mean)
	history.P95 = summary.P95

	return history, nil
}

// seriesHistoryPrefix общий префикс ключей истории ряда; ingest сбрасывает его
func seriesHistoryPrefix(key repository.SeriesKey) string {
	return fmt.Sprintf("telemetry:history:%s:%s:", key.VesselID, key.ParameterName)
}

func toPoints(readings []*entity.TelemetryReading) []dto.ReadingPointDTO {
	points := make([]dto.ReadingPointDTO, len(readings))
	for i, r := range readings {
		points[i] = dto.ReadingPointDTO{
			Value:      r.Value().Raw(),
			Unit:       r.Value().Unit(),
			RecordedAt: r.RecordedAt(),
		}
	}
	return points
}
