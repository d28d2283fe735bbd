package repository

import (
	"context"
	"time"

	"github.com/dreschagin/vessel-guard/internal/domain/entity"
	"github.com/dreschagin/vessel-guard/internal/domain/valueobject"
)

// SeriesKey идентифицирует временной ряд: судно + параметр
type SeriesKey struct {
	VesselID      string
	ParameterName string
}

// TelemetryRepository определяет интерфейс для работы с хранилищем показаний (Port)
// Реализация будет в Infrastructure слое
type TelemetryRepository interface {
	// SaveBatch сохраняет несколько показаний одной транзакцией
	SaveBatch(ctx context.Context, readings []*entity.TelemetryReading) error

	// FindWindow возвращает последние limit показаний ряда, от старых к новым
	FindWindow(ctx context.Context, key SeriesKey, limit int) ([]*entity.TelemetryReading, error)

	// FindInWindow находит показания ряда во временном диапазоне
	FindInWindow(ctx context.Context, key SeriesKey, timeRange valueobject.Window) ([]*entity.TelemetryReading, error)

	// AggregateBaseline считает mean/stddev/count ряда за диапазон.
	// Возвращает nil без ошибки, если показаний нет.
	AggregateBaseline(ctx context.Context, key SeriesKey, timeRange valueobject.Window) (*valueobject.HistoricalBaseline, error)

	// FindActiveSeries возвращает ряды, получавшие показания после since
	FindActiveSeries(ctx context.Context, since time.Time, limit int) ([]SeriesKey, error)

	// DeleteOlderThan удаляет показания старше указанного времени
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}
