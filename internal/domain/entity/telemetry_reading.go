package entity

import (
	"errors"
	"strings"
	"time"

	"github.com/dreschagin/vessel-guard/internal/domain/valueobject"
	"github.com/google/uuid"
)

// TelemetryReading представляет одно показание датчика судна (Aggregate Root)
type TelemetryReading struct {
	id            string
	vesselID      string
	parameterName string
	value         valueobject.Measurement
	metadata      map[string]interface{}
	recordedAt    time.Time
	createdAt     time.Time
}

// NewTelemetryReading создает новое показание (Factory Method)
func NewTelemetryReading(
	vesselID string,
	parameterName string,
	value valueobject.Measurement,
	recordedAt time.Time,
) (*TelemetryReading, error) {
	vesselID = strings.TrimSpace(vesselID)
	if vesselID == "" {
		return nil, errors.New("vessel id is required")
	}

	parameterName = strings.TrimSpace(parameterName)
	if parameterName == "" {
		return nil, errors.New("parameter name is required")
	}

	now := time.Now().UTC()
	if recordedAt.IsZero() {
		recordedAt = now
	}

	return &TelemetryReading{
		id:            uuid.New().String(),
		vesselID:      vesselID,
		parameterName: parameterName,
		value:         value,
		metadata:      make(map[string]interface{}),
		recordedAt:    recordedAt.UTC(),
		createdAt:     now,
	}, nil
}

// ReconstructTelemetryReading восстанавливает показание из хранилища (для Repository)
func ReconstructTelemetryReading(
	id string,
	vesselID string,
	parameterName string,
	value valueobject.Measurement,
	metadata map[string]interface{},
	recordedAt, createdAt time.Time,
) *TelemetryReading {
	if metadata == nil {
		metadata = make(map[string]interface{})
	}

	return &TelemetryReading{
		id:            id,
		vesselID:      vesselID,
		parameterName: parameterName,
		value:         value,
		metadata:      metadata,
		recordedAt:    recordedAt,
		createdAt:     createdAt,
	}
}

// ID возвращает идентификатор показания
func (r *TelemetryReading) ID() string {
	return r.id
}

// VesselID возвращает идентификатор судна
func (r *TelemetryReading) VesselID() string {
	return r.vesselID
}

// ParameterName возвращает имя параметра
func (r *TelemetryReading) ParameterName() string {
	return r.parameterName
}

// Value возвращает значение показания
func (r *TelemetryReading) Value() valueobject.Measurement {
	return r.value
}

// Metadata возвращает копию метаданных
func (r *TelemetryReading) Metadata() map[string]interface{} {
	result := make(map[string]interface{}, len(r.metadata))
	for k, v := range r.metadata {
		result[k] = v
	}
	return result
}

// SetMetadata устанавливает метаданные
func (r *TelemetryReading) SetMetadata(key string, value interface{}) {
	r.metadata[key] = value
}

// RecordedAt возвращает время снятия показания
func (r *TelemetryReading) RecordedAt() time.Time {
	return r.recordedAt
}

// CreatedAt возвращает время создания записи
func (r *TelemetryReading) CreatedAt() time.Time {
	return r.createdAt
}

// IsStale проверяет, устарело ли показание
func (r *TelemetryReading) IsStale(threshold time.Duration) bool {
	return time.Since(r.recordedAt) > threshold
}
