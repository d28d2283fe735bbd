package entity

import (
	"errors"
	"fmt"
	"time"

	"github.com/dreschagin/vessel-guard/internal/domain/valueobject"
	"github.com/google/uuid"
)

// AssessmentType определяет, какая операция создала оценку
type AssessmentType string

const (
	AssessmentLocation  AssessmentType = "location"
	AssessmentRoute     AssessmentType = "route"
	AssessmentEquipment AssessmentType = "equipment"
	AssessmentEmergency AssessmentType = "emergency"
)

// Validate проверяет тип оценки
func (t AssessmentType) Validate() error {
	switch t {
	case AssessmentLocation, AssessmentRoute, AssessmentEquipment, AssessmentEmergency:
		return nil
	default:
		return fmt.Errorf("invalid assessment type %q", string(t))
	}
}

// RouteAnalysis результат анализа перехода.
// Погода берется только в средней точке маршрута (WeatherSampling = "midpoint").
type RouteAnalysis struct {
	Origin          valueobject.Position
	Destination     valueobject.Position
	Midpoint        valueobject.Position
	DistanceNM      float64
	BearingDeg      float64
	EstimatedHours  float64
	AverageSpeedKn  float64
	HazardCount     int
	HazardZones     []SafetyZone
	MidpointWeather *WeatherSnapshot
	WeatherSampling string
}

// EquipmentSummary сводка проверки оборудования
type EquipmentSummary struct {
	Total   int
	Failed  int
	Expired int
	Overdue int
	Items   []Equipment
}

// SafetyAssessmentParams собирает поля оценки для фабрики
type SafetyAssessmentParams struct {
	ID              string
	VesselID        string
	AssessmentType  AssessmentType
	Position        *valueobject.Position
	SafetyScore     float64
	RiskLevel       valueobject.RiskLevel
	Recommendations []string
	NearestHarbors  []SafetyZone
	WeatherData     *WeatherSnapshot
	RouteAnalysis   *RouteAnalysis
	Equipment       *EquipmentSummary
	SkippedChecks   []string
	AssessedAt      time.Time
}

// SafetyAssessment результат оценки безопасности (Aggregate Root).
// Не изменяется после создания.
type SafetyAssessment struct {
	id              string
	vesselID        string
	assessmentType  AssessmentType
	position        *valueobject.Position
	safetyScore     float64
	riskLevel       valueobject.RiskLevel
	recommendations []string
	nearestHarbors  []SafetyZone
	weatherData     *WeatherSnapshot
	routeAnalysis   *RouteAnalysis
	equipment       *EquipmentSummary
	skippedChecks   []string
	assessedAt      time.Time
}

// NewSafetyAssessment создает оценку, ограничивая safetyScore диапазоном [0,100]
func NewSafetyAssessment(p SafetyAssessmentParams) (*SafetyAssessment, error) {
	if err := p.AssessmentType.Validate(); err != nil {
		return nil, err
	}
	if err := p.RiskLevel.Validate(); err != nil {
		return nil, err
	}
	if p.Recommendations == nil {
		return nil, errors.New("recommendations must not be nil")
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.AssessedAt.IsZero() {
		p.AssessedAt = time.Now().UTC()
	}

	return &SafetyAssessment{
		id:              p.ID,
		vesselID:        p.VesselID,
		assessmentType:  p.AssessmentType,
		position:        p.Position,
		safetyScore:     RoundScore(clampPercent(p.SafetyScore)),
		riskLevel:       p.RiskLevel,
		recommendations: append([]string{}, p.Recommendations...),
		nearestHarbors:  append([]SafetyZone(nil), p.NearestHarbors...),
		weatherData:     p.WeatherData,
		routeAnalysis:   p.RouteAnalysis,
		equipment:       p.Equipment,
		skippedChecks:   append([]string(nil), p.SkippedChecks...),
		assessedAt:      p.AssessedAt,
	}, nil
}

// ID возвращает идентификатор оценки
func (a *SafetyAssessment) ID() string { return a.id }

// VesselID возвращает идентификатор судна (пустой для анализа маршрута)
func (a *SafetyAssessment) VesselID() string { return a.vesselID }

// Type возвращает тип оценки
func (a *SafetyAssessment) Type() AssessmentType { return a.assessmentType }

// Position возвращает позицию оценки или nil
func (a *SafetyAssessment) Position() *valueobject.Position { return a.position }

// SafetyScore возвращает итоговый балл [0,100]
func (a *SafetyAssessment) SafetyScore() float64 { return a.safetyScore }

// RiskLevel возвращает уровень риска
func (a *SafetyAssessment) RiskLevel() valueobject.RiskLevel { return a.riskLevel }

// Recommendations возвращает копию рекомендаций
func (a *SafetyAssessment) Recommendations() []string {
	return append([]string{}, a.recommendations...)
}

// NearestHarbors возвращает найденные укрытия
func (a *SafetyAssessment) NearestHarbors() []SafetyZone {
	return append([]SafetyZone(nil), a.nearestHarbors...)
}

// WeatherData возвращает погоду, использованную при оценке
func (a *SafetyAssessment) WeatherData() *WeatherSnapshot { return a.weatherData }

// RouteAnalysis возвращает анализ маршрута или nil
func (a *SafetyAssessment) RouteAnalysis() *RouteAnalysis { return a.routeAnalysis }

// Equipment возвращает сводку оборудования или nil
func (a *SafetyAssessment) Equipment() *EquipmentSummary { return a.equipment }

// SkippedChecks возвращает пропущенные проверки
func (a *SafetyAssessment) SkippedChecks() []string {
	return append([]string(nil), a.skippedChecks...)
}

// AssessedAt возвращает время оценки
func (a *SafetyAssessment) AssessedAt() time.Time { return a.assessedAt }
