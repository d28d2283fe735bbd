package valueobject

import "fmt"

// ZoneType классифицирует зону безопасности (Value Object)
type ZoneType string

const (
	ZoneSafeHarbor        ZoneType = "safe_harbor"
	ZoneMarina            ZoneType = "marina"
	ZoneAnchorage         ZoneType = "anchorage"
	ZoneEmergencyServices ZoneType = "emergency_services"
	ZoneCoastGuard        ZoneType = "coast_guard"
	ZoneMedical           ZoneType = "medical"
	ZoneRestrictedArea    ZoneType = "restricted_area"
	ZoneShallowWater      ZoneType = "shallow_water"
	ZoneReefArea          ZoneType = "reef_area"
	ZonePiracyRisk        ZoneType = "piracy_risk"
)

// Validate проверяет валидность типа зоны
func (z ZoneType) Validate() error {
	switch z {
	case ZoneSafeHarbor, ZoneMarina, ZoneAnchorage, ZoneEmergencyServices, ZoneCoastGuard,
		ZoneMedical, ZoneRestrictedArea, ZoneShallowWater, ZoneReefArea, ZonePiracyRisk:
		return nil
	default:
		return fmt.Errorf("invalid zone type %q", string(z))
	}
}

// String возвращает строковое представление
func (z ZoneType) String() string {
	return string(z)
}

// IsHazard сообщает, что зона считается опасной для навигации.
func (z ZoneType) IsHazard() bool {
	switch z {
	case ZoneRestrictedArea, ZoneShallowWater, ZoneReefArea, ZonePiracyRisk:
		return true
	default:
		return false
	}
}

// SafeHarborZoneTypes возвращает типы укрытий, учитываемые при оценке местоположения.
func SafeHarborZoneTypes() []ZoneType {
	return []ZoneType{ZoneSafeHarbor, ZoneMarina, ZoneAnchorage, ZoneEmergencyServices}
}

// HazardZoneTypes возвращает типы опасных зон.
func HazardZoneTypes() []ZoneType {
	return []ZoneType{ZoneRestrictedArea, ZoneShallowWater, ZoneReefArea, ZonePiracyRisk}
}

// EmergencyServiceZoneTypes возвращает типы зон экстренных служб.
func EmergencyServiceZoneTypes() []ZoneType {
	return []ZoneType{ZoneEmergencyServices, ZoneCoastGuard, ZoneMedical}
}

// ZoneTypeStrings конвертирует список типов в строки (для SQL параметров).
func ZoneTypeStrings(types []ZoneType) []string {
	result := make([]string, len(types))
	for i, t := range types {
		result[i] = string(t)
	}
	return result
}
