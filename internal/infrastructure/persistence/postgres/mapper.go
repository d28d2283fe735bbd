package postgres

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/dreschagin/vessel-guard/internal/domain/entity"
	"github.com/dreschagin/vessel-guard/internal/domain/valueobject"
	"github.com/lib/pq"
)

// TelemetryDBModel представляет показание в БД
type TelemetryDBModel struct {
	ID            string
	VesselID      string
	ParameterName string
	Value         float64
	Unit          string
	Metadata      []byte // JSON
	RecordedAt    time.Time
	CreatedAt     time.Time
}

// ToDBModel конвертирует Domain Entity в DB Model
func ToDBModel(reading *entity.TelemetryReading) (*TelemetryDBModel, error) {
	var metadataBytes []byte
	var err error

	metadata := reading.Metadata()
	if len(metadata) > 0 {
		metadataBytes, err = json.Marshal(metadata)
		if err != nil {
			return nil, err
		}
	}

	return &TelemetryDBModel{
		ID:            reading.ID(),
		VesselID:      reading.VesselID(),
		ParameterName: reading.ParameterName(),
		Value:         reading.Value().Raw(),
		Unit:          reading.Value().Unit(),
		Metadata:      metadataBytes,
		RecordedAt:    reading.RecordedAt(),
		CreatedAt:     reading.CreatedAt(),
	}, nil
}

// ToEntity конвертирует DB Model в Domain Entity
func ToEntity(model *TelemetryDBModel) (*entity.TelemetryReading, error) {
	var metadata map[string]interface{}
	if len(model.Metadata) > 0 {
		if err := json.Unmarshal(model.Metadata, &metadata); err != nil {
			return nil, err
		}
	}

	value, err := valueobject.NewMeasurement(model.Value, model.Unit)
	if err != nil {
		return nil, err
	}

	return entity.ReconstructTelemetryReading(
		model.ID,
		model.VesselID,
		model.ParameterName,
		value,
		metadata,
		model.RecordedAt.UTC(),
		model.CreatedAt.UTC(),
	), nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// ScanTelemetryRow сканирует строку БД в TelemetryDBModel
func ScanTelemetryRow(row rowScanner) (*TelemetryDBModel, error) {
	var model TelemetryDBModel
	var metadata sql.NullString

	err := row.Scan(
		&model.ID,
		&model.VesselID,
		&model.ParameterName,
		&model.Value,
		&model.Unit,
		&metadata,
		&model.RecordedAt,
		&model.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if metadata.Valid {
		model.Metadata = []byte(metadata.String)
	}

	return &model, nil
}

// scanZone сканирует зону; distance_km - последняя колонка
func scanZone(row rowScanner) (entity.SafetyZone, error) {
	var (
		zone        entity.SafetyZone
		zoneType    string
		lat, lon    float64
		radius      sql.NullFloat64
		description sql.NullString
	)

	err := row.Scan(&zone.ID, &zone.Name, &zoneType, &lat, &lon, &radius, &zone.Active, &description, &zone.DistanceKm)
	if err != nil {
		return entity.SafetyZone{}, err
	}

	zone.ZoneType = valueobject.ZoneType(zoneType)
	if err := zone.ZoneType.Validate(); err != nil {
		return entity.SafetyZone{}, err
	}
	position, err := valueobject.NewPosition(lat, lon)
	if err != nil {
		return entity.SafetyZone{}, err
	}
	zone.Position = position
	zone.RadiusKm = radius.Float64
	zone.Description = description.String

	return zone, nil
}

func scanEquipment(row rowScanner) (entity.Equipment, error) {
	var (
		item   entity.Equipment
		status string
		due    sql.NullTime
	)

	if err := row.Scan(&item.ID, &item.VesselID, &item.Name, &item.EquipmentType, &status, &due); err != nil {
		return entity.Equipment{}, err
	}

	item.Status = valueobject.EquipmentStatus(status)
	if due.Valid {
		t := due.Time.UTC()
		item.NextInspectionDue = &t
	}
	return item, nil
}

func scanProtocol(row rowScanner) (entity.EmergencyProtocol, error) {
	var p entity.EmergencyProtocol
	var steps pq.StringArray

	if err := row.Scan(&p.ID, &p.EmergencyType, &p.Title, &steps, &p.Severity); err != nil {
		return entity.EmergencyProtocol{}, err
	}
	p.Steps = []string(steps)
	return p, nil
}

func scanContact(row rowScanner) (entity.EmergencyContact, error) {
	var c entity.EmergencyContact
	var phone, channel sql.NullString

	if err := row.Scan(&c.ID, &c.ContactType, &c.Name, &phone, &channel, &c.Active); err != nil {
		return entity.EmergencyContact{}, err
	}
	c.Phone = phone.String
	c.RadioChannel = channel.String
	return c, nil
}
