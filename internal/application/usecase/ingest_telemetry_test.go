package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dreschagin/vessel-guard/internal/application/dto"
	"github.com/dreschagin/vessel-guard/internal/application/port"
	"github.com/dreschagin/vessel-guard/internal/domain/service"
	"github.com/dreschagin/vessel-guard/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIngestUseCase(repo *memoryTelemetry, sink *recordingSink) *IngestTelemetryUseCase {
	return newCachedIngestUseCase(repo, sink, nil)
}

func newCachedIngestUseCase(repo *memoryTelemetry, sink *recordingSink, cache *memoryCache) *IngestTelemetryUseCase {
	tables := mustTables()
	log := logger.New("error")
	evaluator := NewEvaluateAnomalyUseCase(service.NewAnomalyDetector(tables.Profiles), nil, sink, nil,
		EvaluateAnomalyConfig{}, log)
	var c port.Cache
	if cache != nil {
		c = cache
	}
	return NewIngestTelemetryUseCase(repo, service.NewTelemetryValidator(tables.Profiles),
		service.NewTelemetryAggregator(), evaluator, c, IngestTelemetryConfig{WindowSize: 10}, log)
}

func oilCrashBatch(now time.Time) []dto.TelemetryReadingDTO {
	return []dto.TelemetryReadingDTO{
		{ParameterName: "oil_pressure", Value: 380, Unit: "kPa", RecordedAt: now.Add(-2 * time.Minute)},
		{ParameterName: "oil_pressure", Value: 400, Unit: "kPa", RecordedAt: now.Add(-4 * time.Minute)},
		{ParameterName: "oil_pressure", Value: 140, Unit: "kPa", RecordedAt: now.Add(-1 * time.Minute)},
		{ParameterName: "oil_pressure", Value: 390, Unit: "kPa", RecordedAt: now.Add(-3 * time.Minute)},
	}
}

func TestIngestTelemetry_StoresAndEvaluatesEachSeries(t *testing.T) {
	repo := &memoryTelemetry{}
	sink := &recordingSink{}
	uc := newIngestUseCase(repo, sink)
	now := time.Now().UTC()

	readings := append(oilCrashBatch(now),
		dto.TelemetryReadingDTO{ParameterName: "engine_speed", Value: 1800, Unit: "rpm", RecordedAt: now},
		dto.TelemetryReadingDTO{ParameterName: "oil_pressure", Value: 58, Unit: "psi", RecordedAt: now},
	)

	res, err := uc.Execute(context.Background(), IngestTelemetryCommand{VesselID: "vessel-1", Readings: readings})
	require.NoError(t, err)

	assert.Equal(t, 5, res.Accepted)
	assert.Equal(t, 1, res.Rejected)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "reading 5")
	assert.Len(t, repo.readings, 5)

	require.Len(t, res.Verdicts, 2)
	assert.Equal(t, "engine_speed", res.Verdicts[0].ParameterName)
	assert.False(t, res.Verdicts[0].AnomalyDetected)

	oil := res.Verdicts[1]
	assert.Equal(t, "oil_pressure", oil.ParameterName)
	assert.Equal(t, "vessel-1", oil.VesselID)
	assert.Contains(t, oil.DetectedAnomalies, "low_oil_pressure")
	assert.Equal(t, "critical", oil.Severity)
	assert.Len(t, sink.alerts, 1)
}

func TestIngestTelemetry_InvalidatesSeriesHistory(t *testing.T) {
	cache := newMemoryCache()
	cache.data["telemetry:history:vessel-1:oil_pressure:1h0m0s"] = &historyDTO{Count: 3}
	cache.data["telemetry:history:vessel-1:engine_speed:1h0m0s"] = &historyDTO{Count: 7}
	uc := newCachedIngestUseCase(&memoryTelemetry{}, &recordingSink{}, cache)

	_, err := uc.Execute(context.Background(), IngestTelemetryCommand{
		VesselID: "vessel-1",
		Readings: oilCrashBatch(time.Now().UTC()),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"telemetry:history:vessel-1:oil_pressure:"}, cache.invalidated)
	assert.NotContains(t, cache.data, "telemetry:history:vessel-1:oil_pressure:1h0m0s")
	assert.Contains(t, cache.data, "telemetry:history:vessel-1:engine_speed:1h0m0s")
}

func TestIngestTelemetry_WindowFallsBackToBatch(t *testing.T) {
	repo := &memoryTelemetry{findErr: errors.New("read replica down")}
	uc := newIngestUseCase(repo, &recordingSink{})

	res, err := uc.Execute(context.Background(), IngestTelemetryCommand{
		VesselID: "vessel-1",
		Readings: oilCrashBatch(time.Now().UTC()),
	})
	require.NoError(t, err)
	require.Len(t, res.Verdicts, 1)
	assert.Equal(t, "critical", res.Verdicts[0].Severity)
}

func TestIngestTelemetry_Validation(t *testing.T) {
	uc := newIngestUseCase(&memoryTelemetry{}, &recordingSink{})

	_, err := uc.Execute(context.Background(), IngestTelemetryCommand{Readings: oilCrashBatch(time.Now())})
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	_, err = uc.Execute(context.Background(), IngestTelemetryCommand{VesselID: "vessel-1"})
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}

func TestIngestTelemetry_AllRejectedIsNotAnError(t *testing.T) {
	repo := &memoryTelemetry{}
	uc := newIngestUseCase(repo, &recordingSink{})

	res, err := uc.Execute(context.Background(), IngestTelemetryCommand{
		VesselID: "vessel-1",
		Readings: []dto.TelemetryReadingDTO{
			{ParameterName: "coolant_temperature", Value: 80, Unit: "celsius", RecordedAt: time.Now().Add(time.Hour)},
		},
	})
	require.NoError(t, err)
	assert.Zero(t, res.Accepted)
	assert.Equal(t, 1, res.Rejected)
	assert.Empty(t, repo.readings)
	assert.Empty(t, res.Verdicts)
}

func TestIngestTelemetry_SaveFailure(t *testing.T) {
	uc := newIngestUseCase(&memoryTelemetry{saveErr: errors.New("disk full")}, &recordingSink{})

	_, err := uc.Execute(context.Background(), IngestTelemetryCommand{
		VesselID: "vessel-1",
		Readings: oilCrashBatch(time.Now().UTC()),
	})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, service.ErrInvalidInput)
}
