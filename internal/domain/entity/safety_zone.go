package entity

import (
	"time"

	"github.com/dreschagin/vessel-guard/internal/domain/valueobject"
)

// SafetyZone справочная зона (гавань, опасный район, служба спасения).
// Движки только читают зоны.
type SafetyZone struct {
	ID          string
	Name        string
	ZoneType    valueobject.ZoneType
	Position    valueobject.Position
	RadiusKm    float64
	Active      bool
	Description string
	// DistanceKm заполняется при поиске по расстоянию, иначе 0.
	DistanceKm float64
}

// WeatherSnapshot текущие погодные условия в точке.
type WeatherSnapshot struct {
	Position         valueobject.Position
	Temperature      float64
	WindSpeedKnots   float64
	WindDirectionDeg float64
	VisibilityKm     float64
	WaveHeightMeters *float64
	SafetyScore      float64
	RiskLevel        valueobject.RiskLevel
	Warnings         []string
	ObservedAt       time.Time
}

// Equipment запись о единице оборудования безопасности судна.
type Equipment struct {
	ID                string
	VesselID          string
	Name              string
	EquipmentType     string
	Status            valueobject.EquipmentStatus
	NextInspectionDue *time.Time
}

// InspectionOverdue сообщает, что плановая проверка просрочена на момент now.
func (e Equipment) InspectionOverdue(now time.Time) bool {
	return e.NextInspectionDue != nil && e.NextInspectionDue.Before(now)
}

// EmergencyProtocol порядок действий для типа чрезвычайной ситуации.
type EmergencyProtocol struct {
	ID            string
	EmergencyType string
	Title         string
	Steps         []string
	Severity      int
}

// EmergencyContact контакт экстренной связи.
type EmergencyContact struct {
	ID           string
	ContactType  string
	Name         string
	Phone        string
	RadioChannel string
	Active       bool
}
