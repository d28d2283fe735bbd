package repository

import (
	"context"

	"github.com/dreschagin/vessel-guard/internal/domain/entity"
	"github.com/dreschagin/vessel-guard/internal/domain/valueobject"
)

// ZoneRepository справочник зон безопасности (только чтение)
type ZoneRepository interface {
	// NearestZones возвращает активные зоны указанных типов в радиусе maxDistanceKm,
	// отсортированные по расстоянию
	NearestZones(ctx context.Context, position valueobject.Position, zoneTypes []valueobject.ZoneType, maxDistanceKm float64) ([]entity.SafetyZone, error)

	// ActiveZonesByType возвращает все активные зоны указанных типов без ограничения расстояния
	ActiveZonesByType(ctx context.Context, zoneTypes []valueobject.ZoneType) ([]entity.SafetyZone, error)
}

// EquipmentRepository хранилище оборудования безопасности
type EquipmentRepository interface {
	EquipmentFor(ctx context.Context, vesselID string) ([]entity.Equipment, error)
}

// SafetyBaselineRepository хранимая функция базовой оценки безопасности.
// ok=false означает, что функция не вернула результат.
type SafetyBaselineRepository interface {
	BaselineScore(ctx context.Context, vesselID string, position valueobject.Position) (score float64, ok bool, err error)
}

// EmergencyRepository протоколы и контакты экстренных служб
type EmergencyRepository interface {
	// ProtocolsFor возвращает протоколы для типа ЧС, по убыванию severity
	ProtocolsFor(ctx context.Context, emergencyType string) ([]entity.EmergencyProtocol, error)

	// ActiveContacts возвращает активные контакты указанных типов
	ActiveContacts(ctx context.Context, contactTypes []string) ([]entity.EmergencyContact, error)
}
