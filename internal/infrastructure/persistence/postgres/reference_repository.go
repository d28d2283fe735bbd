package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dreschagin/vessel-guard/internal/domain/entity"
	"github.com/dreschagin/vessel-guard/internal/domain/repository"
	"github.com/dreschagin/vessel-guard/internal/domain/valueobject"
	"github.com/lib/pq"
)

// haversineKm расстояние по дуге большого круга от ($1, $2) до строки зоны, км
const haversineKm = `6371 * 2 * ASIN(SQRT(
	POWER(SIN(RADIANS(latitude - $1) / 2), 2) +
	COS(RADIANS($1)) * COS(RADIANS(latitude)) * POWER(SIN(RADIANS(longitude - $2) / 2), 2)
))`

const zoneColumns = `id, name, zone_type, latitude, longitude, radius_km, is_active, description`

// ReferenceRepository справочники движка безопасности: зоны, оборудование,
// функция базовой оценки, протоколы и контакты экстренных служб
type ReferenceRepository struct {
	db *sql.DB
}

var (
	_ repository.ZoneRepository           = (*ReferenceRepository)(nil)
	_ repository.EquipmentRepository      = (*ReferenceRepository)(nil)
	_ repository.SafetyBaselineRepository = (*ReferenceRepository)(nil)
	_ repository.EmergencyRepository      = (*ReferenceRepository)(nil)
)

func NewReferenceRepository(db *sql.DB) *ReferenceRepository {
	return &ReferenceRepository{db: db}
}

// NearestZones возвращает все активные зоны в радиусе maxDistanceKm, ближайшие первыми.
// Без LIMIT: число гаваней в радиусе попадает в рекомендации как есть
func (r *ReferenceRepository) NearestZones(
	ctx context.Context,
	position valueobject.Position,
	zoneTypes []valueobject.ZoneType,
	maxDistanceKm float64,
) ([]entity.SafetyZone, error) {
	query := `
		SELECT ` + zoneColumns + `, distance_km
		FROM (
			SELECT ` + zoneColumns + `, ` + haversineKm + ` AS distance_km
			FROM safety_zones
			WHERE is_active AND zone_type = ANY($3)
		) z
		WHERE distance_km <= $4
		ORDER BY distance_km ASC
	`

	rows, err := r.db.QueryContext(ctx, query,
		position.Latitude(),
		position.Longitude(),
		pq.Array(valueobject.ZoneTypeStrings(zoneTypes)),
		maxDistanceKm,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query nearest zones: %w", err)
	}
	defer rows.Close()

	return scanZones(rows)
}

// ActiveZonesByType возвращает все активные зоны указанных типов
func (r *ReferenceRepository) ActiveZonesByType(
	ctx context.Context,
	zoneTypes []valueobject.ZoneType,
) ([]entity.SafetyZone, error) {
	query := `
		SELECT ` + zoneColumns + `, 0::double precision AS distance_km
		FROM safety_zones
		WHERE is_active AND zone_type = ANY($1)
		ORDER BY name ASC
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(valueobject.ZoneTypeStrings(zoneTypes)))
	if err != nil {
		return nil, fmt.Errorf("failed to query active zones: %w", err)
	}
	defer rows.Close()

	return scanZones(rows)
}

// EquipmentFor возвращает оборудование безопасности судна
func (r *ReferenceRepository) EquipmentFor(ctx context.Context, vesselID string) ([]entity.Equipment, error) {
	query := `
		SELECT id, vessel_id, name, equipment_type, status, next_inspection_due
		FROM safety_equipment
		WHERE vessel_id = $1
		ORDER BY name ASC
	`

	rows, err := r.db.QueryContext(ctx, query, vesselID)
	if err != nil {
		return nil, fmt.Errorf("failed to query equipment: %w", err)
	}
	defer rows.Close()

	var items []entity.Equipment
	for rows.Next() {
		item, err := scanEquipment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan equipment row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return items, nil
}

// BaselineScore вызывает хранимую функцию calculate_safety_score.
// NULL результат означает отсутствие оценки (ok=false).
func (r *ReferenceRepository) BaselineScore(
	ctx context.Context,
	vesselID string,
	position valueobject.Position,
) (float64, bool, error) {
	var score sql.NullFloat64
	err := r.db.QueryRowContext(ctx,
		`SELECT calculate_safety_score($1, $2, $3)`,
		vesselID,
		position.Latitude(),
		position.Longitude(),
	).Scan(&score)
	if err != nil {
		return 0, false, fmt.Errorf("failed to calculate baseline safety score: %w", err)
	}
	return score.Float64, score.Valid, nil
}

// ProtocolsFor возвращает протоколы для типа ЧС по убыванию severity
func (r *ReferenceRepository) ProtocolsFor(ctx context.Context, emergencyType string) ([]entity.EmergencyProtocol, error) {
	query := `
		SELECT id, emergency_type, title, steps, severity
		FROM emergency_protocols
		WHERE emergency_type = $1
		ORDER BY severity DESC
	`

	rows, err := r.db.QueryContext(ctx, query, emergencyType)
	if err != nil {
		return nil, fmt.Errorf("failed to query emergency protocols: %w", err)
	}
	defer rows.Close()

	var protocols []entity.EmergencyProtocol
	for rows.Next() {
		p, err := scanProtocol(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan protocol row: %w", err)
		}
		protocols = append(protocols, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return protocols, nil
}

// ActiveContacts возвращает активные контакты указанных типов
func (r *ReferenceRepository) ActiveContacts(ctx context.Context, contactTypes []string) ([]entity.EmergencyContact, error) {
	query := `
		SELECT id, contact_type, name, phone, radio_channel, is_active
		FROM emergency_contacts
		WHERE is_active AND contact_type = ANY($1)
		ORDER BY contact_type ASC, name ASC
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(contactTypes))
	if err != nil {
		return nil, fmt.Errorf("failed to query emergency contacts: %w", err)
	}
	defer rows.Close()

	var contacts []entity.EmergencyContact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contact row: %w", err)
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return contacts, nil
}

func scanZones(rows *sql.Rows) ([]entity.SafetyZone, error) {
	var zones []entity.SafetyZone
	for rows.Next() {
		zone, err := scanZone(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan zone row: %w", err)
		}
		zones = append(zones, zone)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return zones, nil
}
