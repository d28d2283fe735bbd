package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dreschagin/vessel-guard/internal/application/dto"
	"github.com/dreschagin/vessel-guard/internal/application/port"
	"github.com/dreschagin/vessel-guard/internal/domain/entity"
	"github.com/dreschagin/vessel-guard/internal/domain/repository"
	"github.com/dreschagin/vessel-guard/internal/domain/service"
	"github.com/dreschagin/vessel-guard/internal/domain/valueobject"
	"github.com/dreschagin/vessel-guard/pkg/logger"
)

// IngestTelemetryCommand пакет показаний одного судна
type IngestTelemetryCommand struct {
	VesselID string
	Readings []dto.TelemetryReadingDTO
	Context  *service.DeviceContext
}

type IngestTelemetryConfig struct {
	// WindowSize количество последних показаний ряда, передаваемых детектору
	WindowSize int
}

// IngestTelemetryUseCase координирует валидацию, сохранение показаний
// и оценку последнего окна каждого затронутого ряда
type IngestTelemetryUseCase struct {
	repository repository.TelemetryRepository
	validator  *service.TelemetryValidator
	aggregator *service.TelemetryAggregator
	evaluator  *EvaluateAnomalyUseCase
	cache      port.Cache
	config     IngestTelemetryConfig
	logger     *logger.Logger
}

// NewIngestTelemetryUseCase создает новый use case.
// cache (может быть nil) тот же, что у GetSeriesHistoryUseCase: история затронутых рядов сбрасывается.
func NewIngestTelemetryUseCase(
	repository repository.TelemetryRepository,
	validator *service.TelemetryValidator,
	aggregator *service.TelemetryAggregator,
	evaluator *EvaluateAnomalyUseCase,
	cache port.Cache,
	config IngestTelemetryConfig,
	logger *logger.Logger,
) *IngestTelemetryUseCase {
	if config.WindowSize <= 0 {
		config.WindowSize = 20
	}
	return &IngestTelemetryUseCase{
		repository: repository,
		validator:  validator,
		aggregator: aggregator,
		evaluator:  evaluator,
		cache:      cache,
		config:     config,
		logger:     logger,
	}
}

// Execute выполняет прием пакета
func (uc *IngestTelemetryUseCase) Execute(ctx context.Context, cmd IngestTelemetryCommand) (*dto.IngestResultDTO, error) {
	vesselID := strings.TrimSpace(cmd.VesselID)
	if vesselID == "" {
		return nil, fmt.Errorf("%w: vessel id is required", service.ErrInvalidInput)
	}
	if len(cmd.Readings) == 0 {
		return nil, fmt.Errorf("%w: readings batch is empty", service.ErrInvalidInput)
	}

	result := &dto.IngestResultDTO{Verdicts: []*dto.AnomalyVerdictDTO{}}

	// 1. Конвертируем в Domain Entities
	readings := make([]*entity.TelemetryReading, 0, len(cmd.Readings))
	for i, raw := range cmd.Readings {
		reading, err := uc.toEntity(vesselID, raw)
		if err != nil {
			uc.logger.Warn("Skipping invalid reading", "index", i, "parameter", raw.ParameterName, "error", err.Error())
			result.Rejected++
			result.Errors = append(result.Errors, fmt.Sprintf("reading %d: %s", i, err.Error()))
			continue
		}
		readings = append(readings, reading)
	}

	if len(readings) == 0 {
		uc.logger.Warn("No valid readings to save", "vessel_id", vesselID)
		return result, nil
	}

	// 2. Сохраняем в репозитории (batch insert)
	if err := uc.repository.SaveBatch(ctx, readings); err != nil {
		uc.logger.Error("Failed to save telemetry batch", err)
		return nil, fmt.Errorf("failed to save telemetry: %w", err)
	}
	result.Accepted = len(readings)
	uc.logger.Debug("Telemetry saved to repository", "vessel_id", vesselID, "count", len(readings))

	// 3. Оцениваем последнее окно каждого затронутого ряда
	groups := uc.aggregator.GroupBySeries(readings)
	keys := make([]repository.SeriesKey, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].ParameterName < keys[j].ParameterName })

	uc.invalidateHistory(ctx, keys)

	for _, key := range keys {
		samples := uc.windowFor(ctx, key, groups[key])
		verdict, err := uc.evaluator.Evaluate(ctx, EvaluateAnomalyCommand{
			VesselID:      key.VesselID,
			ParameterName: key.ParameterName,
			Samples:       samples,
			Context:       cmd.Context,
		})
		if err != nil {
			uc.logger.Error("Failed to evaluate series", err, "parameter", key.ParameterName)
			continue
		}
		result.Verdicts = append(result.Verdicts, dto.FromVerdict(verdict))
	}

	return result, nil
}

func (uc *IngestTelemetryUseCase) toEntity(vesselID string, raw dto.TelemetryReadingDTO) (*entity.TelemetryReading, error) {
	value, err := valueobject.NewMeasurement(raw.Value, raw.Unit)
	if err != nil {
		return nil, err
	}
	reading, err := entity.NewTelemetryReading(vesselID, raw.ParameterName, value, raw.RecordedAt)
	if err != nil {
		return nil, err
	}
	for key, v := range raw.Metadata {
		reading.SetMetadata(key, v)
	}
	if err := uc.validator.Validate(reading); err != nil {
		return nil, err
	}
	return reading, nil
}

// windowFor берет последние показания ряда из хранилища;
// при ошибке чтения оценивается только текущий пакет
func (uc *IngestTelemetryUseCase) windowFor(
	ctx context.Context,
	key repository.SeriesKey,
	batch []*entity.TelemetryReading,
) []float64 {
	window, err := uc.repository.FindWindow(ctx, key, uc.config.WindowSize)
	if err != nil || len(window) == 0 {
		if err != nil {
			uc.logger.Warn("Failed to load series window, using current batch",
				"parameter", key.ParameterName, "error", err.Error())
		}
		return uc.aggregator.Values(batch)
	}
	return uc.aggregator.Values(window)
}

func (uc *IngestTelemetryUseCase) invalidateHistory(ctx context.Context, keys []repository.SeriesKey) {
	if uc.cache == nil {
		return
	}
	for _, key := range keys {
		if err := uc.cache.InvalidatePrefix(ctx, seriesHistoryPrefix(key)); err != nil {
			uc.logger.Warn("Failed to invalidate series history cache",
				"vessel_id", key.VesselID, "parameter", key.ParameterName, "error", err.Error())
		}
	}
}
