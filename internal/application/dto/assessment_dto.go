package dto

import (
	"time"

	"github.com/dreschagin/vessel-guard/internal/domain/entity"
	"github.com/dreschagin/vessel-guard/internal/domain/valueobject"
)

// PositionDTO координаты WGS84
type PositionDTO struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ToPosition валидирует координаты
func (p PositionDTO) ToPosition() (valueobject.Position, error) {
	return valueobject.NewPosition(p.Latitude, p.Longitude)
}

func fromPosition(p valueobject.Position) PositionDTO {
	return PositionDTO{Latitude: p.Latitude(), Longitude: p.Longitude()}
}

// ZoneDTO зона безопасности
type ZoneDTO struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	ZoneType    string      `json:"zoneType"`
	Position    PositionDTO `json:"position"`
	RadiusKm    float64     `json:"radiusKm,omitempty"`
	DistanceKm  float64     `json:"distanceKm,omitempty"`
	Description string      `json:"description,omitempty"`
}

// WeatherDTO погодные условия с оценкой
type WeatherDTO struct {
	Temperature      float64   `json:"temperature"`
	WindSpeedKnots   float64   `json:"windSpeedKnots"`
	WindDirectionDeg float64   `json:"windDirectionDeg"`
	VisibilityKm     float64   `json:"visibilityKm"`
	WaveHeightMeters *float64  `json:"waveHeightMeters,omitempty"`
	SafetyScore      float64   `json:"safetyScore"`
	RiskLevel        string    `json:"riskLevel"`
	Warnings         []string  `json:"warnings"`
	ObservedAt       time.Time `json:"observedAt"`
}

// RouteAnalysisDTO результат анализа перехода
type RouteAnalysisDTO struct {
	Origin          PositionDTO `json:"origin"`
	Destination     PositionDTO `json:"destination"`
	Midpoint        PositionDTO `json:"midpoint"`
	DistanceNM      float64     `json:"distanceNm"`
	BearingDeg      float64     `json:"bearingDeg"`
	EstimatedHours  float64     `json:"estimatedHours"`
	AverageSpeedKn  float64     `json:"averageSpeedKnots"`
	HazardCount     int         `json:"hazardCount"`
	HazardZones     []ZoneDTO   `json:"hazardZones,omitempty"`
	MidpointWeather *WeatherDTO `json:"midpointWeather,omitempty"`
	WeatherSampling string      `json:"weatherSampling"`
}

// EquipmentDTO единица оборудования
type EquipmentDTO struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	EquipmentType     string     `json:"equipmentType"`
	Status            string     `json:"status"`
	NextInspectionDue *time.Time `json:"nextInspectionDue,omitempty"`
}

// EquipmentSummaryDTO сводка проверки оборудования
type EquipmentSummaryDTO struct {
	Total   int            `json:"total"`
	Failed  int            `json:"failed"`
	Expired int            `json:"expired"`
	Overdue int            `json:"overdue"`
	Items   []EquipmentDTO `json:"items"`
}

// SafetyAssessmentDTO представляет оценку безопасности.
// Имена JSON полей являются внешним контрактом.
type SafetyAssessmentDTO struct {
	ID              string               `json:"id"`
	VesselID        string               `json:"vesselId,omitempty"`
	AssessmentType  string               `json:"assessmentType"`
	Position        *PositionDTO         `json:"position,omitempty"`
	SafetyScore     float64              `json:"safetyScore"`
	RiskLevel       string               `json:"riskLevel"`
	Recommendations []string             `json:"recommendations"`
	NearestHarbors  []ZoneDTO            `json:"nearestHarbors,omitempty"`
	WeatherData     *WeatherDTO          `json:"weatherData,omitempty"`
	RouteAnalysis   *RouteAnalysisDTO    `json:"routeAnalysis,omitempty"`
	Equipment       *EquipmentSummaryDTO `json:"equipment,omitempty"`
	SkippedChecks   []string             `json:"skippedChecks,omitempty"`
	AssessedAt      time.Time            `json:"assessedAt"`
}

// FromAssessment конвертирует Domain Entity в DTO
func FromAssessment(a *entity.SafetyAssessment) *SafetyAssessmentDTO {
	out := &SafetyAssessmentDTO{
		ID:              a.ID(),
		VesselID:        a.VesselID(),
		AssessmentType:  string(a.Type()),
		SafetyScore:     a.SafetyScore(),
		RiskLevel:       a.RiskLevel().String(),
		Recommendations: a.Recommendations(),
		NearestHarbors:  FromZones(a.NearestHarbors()),
		WeatherData:     FromWeather(a.WeatherData()),
		SkippedChecks:   a.SkippedChecks(),
		AssessedAt:      a.AssessedAt(),
	}
	if p := a.Position(); p != nil {
		pos := fromPosition(*p)
		out.Position = &pos
	}
	if r := a.RouteAnalysis(); r != nil {
		out.RouteAnalysis = &RouteAnalysisDTO{
			Origin:          fromPosition(r.Origin),
			Destination:     fromPosition(r.Destination),
			Midpoint:        fromPosition(r.Midpoint),
			DistanceNM:      r.DistanceNM,
			BearingDeg:      r.BearingDeg,
			EstimatedHours:  r.EstimatedHours,
			AverageSpeedKn:  r.AverageSpeedKn,
			HazardCount:     r.HazardCount,
			HazardZones:     FromZones(r.HazardZones),
			MidpointWeather: FromWeather(r.MidpointWeather),
			WeatherSampling: r.WeatherSampling,
		}
	}
	if e := a.Equipment(); e != nil {
		summary := &EquipmentSummaryDTO{
			Total:   e.Total,
			Failed:  e.Failed,
			Expired: e.Expired,
			Overdue: e.Overdue,
			Items:   make([]EquipmentDTO, 0, len(e.Items)),
		}
		for _, item := range e.Items {
			summary.Items = append(summary.Items, EquipmentDTO{
				ID:                item.ID,
				Name:              item.Name,
				EquipmentType:     item.EquipmentType,
				Status:            item.Status.String(),
				NextInspectionDue: item.NextInspectionDue,
			})
		}
		out.Equipment = summary
	}
	return out
}

// FromZones конвертирует зоны; nil для пустого списка
func FromZones(zones []entity.SafetyZone) []ZoneDTO {
	if len(zones) == 0 {
		return nil
	}
	out := make([]ZoneDTO, len(zones))
	for i, z := range zones {
		out[i] = ZoneDTO{
			ID:          z.ID,
			Name:        z.Name,
			ZoneType:    z.ZoneType.String(),
			Position:    fromPosition(z.Position),
			RadiusKm:    z.RadiusKm,
			DistanceKm:  z.DistanceKm,
			Description: z.Description,
		}
	}
	return out
}

// FromWeather конвертирует погодный снимок
func FromWeather(w *entity.WeatherSnapshot) *WeatherDTO {
	if w == nil {
		return nil
	}
	warnings := w.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	return &WeatherDTO{
		Temperature:      w.Temperature,
		WindSpeedKnots:   w.WindSpeedKnots,
		WindDirectionDeg: w.WindDirectionDeg,
		VisibilityKm:     w.VisibilityKm,
		WaveHeightMeters: w.WaveHeightMeters,
		SafetyScore:      w.SafetyScore,
		RiskLevel:        w.RiskLevel.String(),
		Warnings:         warnings,
		ObservedAt:       w.ObservedAt,
	}
}
