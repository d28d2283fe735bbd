package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dreschagin/vessel-guard/internal/domain/entity"
	"github.com/dreschagin/vessel-guard/internal/domain/repository"
	"github.com/dreschagin/vessel-guard/internal/domain/valueobject"
	_ "github.com/lib/pq"
)

const telemetryColumns = `id, vessel_id, parameter_name, value, unit, metadata, recorded_at, created_at`

// PostgresTelemetryRepository реализует repository.TelemetryRepository для PostgreSQL
type PostgresTelemetryRepository struct {
	db *sql.DB
}

var _ repository.TelemetryRepository = (*PostgresTelemetryRepository)(nil)

// NewPostgresTelemetryRepository создает новый PostgreSQL repository
func NewPostgresTelemetryRepository(db *sql.DB) *PostgresTelemetryRepository {
	return &PostgresTelemetryRepository{
		db: db,
	}
}

// SaveBatch сохраняет несколько показаний одной транзакцией
func (r *PostgresTelemetryRepository) SaveBatch(ctx context.Context, readings []*entity.TelemetryReading) error {
	if len(readings) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO telemetry_readings (`+telemetryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, reading := range readings {
		model, err := ToDBModel(reading)
		if err != nil {
			return fmt.Errorf("failed to convert reading to DB model: %w", err)
		}

		_, err = stmt.ExecContext(ctx,
			model.ID,
			model.VesselID,
			model.ParameterName,
			model.Value,
			model.Unit,
			model.Metadata,
			model.RecordedAt,
			model.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert reading: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// FindWindow возвращает последние limit показаний ряда, от старых к новым
func (r *PostgresTelemetryRepository) FindWindow(
	ctx context.Context,
	key repository.SeriesKey,
	limit int,
) ([]*entity.TelemetryReading, error) {
	query := `
		SELECT ` + telemetryColumns + `
		FROM telemetry_readings
		WHERE vessel_id = $1 AND parameter_name = $2
		ORDER BY recorded_at DESC
		LIMIT $3
	`

	rows, err := r.db.QueryContext(ctx, query, key.VesselID, key.ParameterName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query telemetry window: %w", err)
	}
	defer rows.Close()

	readings, err := r.scanReadings(rows)
	if err != nil {
		return nil, err
	}

	// Разворачиваем: детектору нужен порядок от старых к новым
	for i, j := 0, len(readings)-1; i < j; i, j = i+1, j-1 {
		readings[i], readings[j] = readings[j], readings[i]
	}
	return readings, nil
}

// FindInWindow находит показания ряда во временном диапазоне
func (r *PostgresTelemetryRepository) FindInWindow(
	ctx context.Context,
	key repository.SeriesKey,
	timeRange valueobject.Window,
) ([]*entity.TelemetryReading, error) {
	query := `
		SELECT ` + telemetryColumns + `
		FROM telemetry_readings
		WHERE vessel_id = $1 AND parameter_name = $2 AND recorded_at BETWEEN $3 AND $4
		ORDER BY recorded_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query,
		key.VesselID,
		key.ParameterName,
		timeRange.From(),
		timeRange.To(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query telemetry: %w", err)
	}
	defer rows.Close()

	return r.scanReadings(rows)
}

// AggregateBaseline считает mean/stddev/count ряда за диапазон
func (r *PostgresTelemetryRepository) AggregateBaseline(
	ctx context.Context,
	key repository.SeriesKey,
	timeRange valueobject.Window,
) (*valueobject.HistoricalBaseline, error) {
	query := `
		SELECT COUNT(*), COALESCE(AVG(value), 0), COALESCE(STDDEV_POP(value), 0)
		FROM telemetry_readings
		WHERE vessel_id = $1 AND parameter_name = $2 AND recorded_at BETWEEN $3 AND $4
	`

	var (
		count  int
		mean   float64
		stdDev float64
	)
	err := r.db.QueryRowContext(ctx, query,
		key.VesselID,
		key.ParameterName,
		timeRange.From(),
		timeRange.To(),
	).Scan(&count, &mean, &stdDev)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate baseline: %w", err)
	}

	if count == 0 {
		return nil, nil
	}

	baseline, err := valueobject.NewHistoricalBaseline(mean, stdDev, count)
	if err != nil {
		return nil, fmt.Errorf("invalid baseline: %w", err)
	}
	return &baseline, nil
}

// FindActiveSeries возвращает ряды, получавшие показания после since
func (r *PostgresTelemetryRepository) FindActiveSeries(
	ctx context.Context,
	since time.Time,
	limit int,
) ([]repository.SeriesKey, error) {
	query := `
		SELECT vessel_id, parameter_name
		FROM telemetry_readings
		WHERE recorded_at >= $1
		GROUP BY vessel_id, parameter_name
		ORDER BY MAX(recorded_at) DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query active series: %w", err)
	}
	defer rows.Close()

	var keys []repository.SeriesKey
	for rows.Next() {
		var key repository.SeriesKey
		if err := rows.Scan(&key.VesselID, &key.ParameterName); err != nil {
			return nil, fmt.Errorf("failed to scan series key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return keys, nil
}

// DeleteOlderThan удаляет показания старше указанного времени
func (r *PostgresTelemetryRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM telemetry_readings WHERE recorded_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old readings: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return rowsAffected, nil
}

// scanReadings сканирует несколько строк в слайс показаний
func (r *PostgresTelemetryRepository) scanReadings(rows *sql.Rows) ([]*entity.TelemetryReading, error) {
	var readings []*entity.TelemetryReading

	for rows.Next() {
		model, err := ScanTelemetryRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reading row: %w", err)
		}

		reading, err := ToEntity(model)
		if err != nil {
			return nil, fmt.Errorf("failed to convert to entity: %w", err)
		}

		readings = append(readings, reading)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return readings, nil
}
