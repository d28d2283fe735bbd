package service

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/dreschagin/vessel-guard/internal/domain/entity"
	"github.com/dreschagin/vessel-guard/internal/domain/valueobject"
)

// SafetyScorer движок оценки безопасности (Domain Service).
// Все методы чистые: данные справочников передаются на вход.
type SafetyScorer struct {
	weights SafetyWeights
	now     func() time.Time
}

// NewSafetyScorer создает движок с таблицей весов
func NewSafetyScorer(weights SafetyWeights) *SafetyScorer {
	return &SafetyScorer{
		weights: weights,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Weights возвращает таблицу весов
func (s *SafetyScorer) Weights() SafetyWeights {
	return s.weights
}

// LocationInput результаты запросов для оценки местоположения.
// nil BaselineScore или Weather означают, что данные недоступны.
type LocationInput struct {
	VesselID      string
	Position      valueobject.Position
	BaselineScore *float64
	Harbors       []entity.SafetyZone
	Weather       *entity.WeatherSnapshot
	Hazards       []entity.SafetyZone
	SkippedChecks []string
}

// AssessLocation комбинирует базовый балл, погоду, укрытия и опасные зоны
func (s *SafetyScorer) AssessLocation(in LocationInput) (*entity.SafetyAssessment, error) {
	w := s.weights.Location

	score := w.DefaultBaseline
	if in.BaselineScore != nil {
		score = clamp(*in.BaselineScore, 0, 100)
	}

	recommendations := make([]string, 0, 3)
	if in.Weather != nil {
		switch in.Weather.RiskLevel {
		case valueobject.RiskHigh:
			score -= w.WeatherHighPenalty
			recommendations = append(recommendations,
				"High weather risk: consider delaying departure or moving to sheltered waters")
		case valueobject.RiskExtreme, valueobject.RiskCritical:
			score -= w.WeatherExtremePenalty
			recommendations = append(recommendations,
				"Extreme weather conditions: seek safe harbor immediately")
		}
	}

	if len(in.Harbors) > 0 {
		score += w.HarborBonus
		nearest := in.Harbors[0]
		recommendations = append(recommendations,
			fmt.Sprintf("%d safe harbor(s) nearby; nearest is %s at %.1f km",
				len(in.Harbors), nearest.Name, nearest.DistanceKm))
	}

	if len(in.Hazards) > 0 {
		score -= w.HazardPenalty * float64(len(in.Hazards))
		recommendations = append(recommendations,
			fmt.Sprintf("Caution: %d navigation hazard zone(s) active in the area", len(in.Hazards)))
	}

	score = clamp(score, 0, 100)
	position := in.Position

	return entity.NewSafetyAssessment(entity.SafetyAssessmentParams{
		VesselID:        in.VesselID,
		AssessmentType:  entity.AssessmentLocation,
		Position:        &position,
		SafetyScore:     score,
		RiskLevel:       tierFor(score, w.Tiers, valueobject.RiskCritical),
		Recommendations: recommendations,
		NearestHarbors:  in.Harbors,
		WeatherData:     in.Weather,
		SkippedChecks:   in.SkippedChecks,
		AssessedAt:      s.now(),
	})
}

// RouteInput данные для анализа маршрута
type RouteInput struct {
	VesselID        string
	Origin          valueobject.Position
	Destination     valueobject.Position
	MidpointWeather *entity.WeatherSnapshot
	Hazards         []entity.SafetyZone
	SkippedChecks   []string
}

// AnalyzeRoute оценивает переход по расстоянию, погоде в средней точке и опасным зонам
func (s *SafetyScorer) AnalyzeRoute(in RouteInput) (*entity.SafetyAssessment, error) {
	w := s.weights.Route

	distance := DistanceNM(in.Origin, in.Destination)
	score := w.Baseline
	if in.MidpointWeather != nil {
		switch in.MidpointWeather.RiskLevel {
		case valueobject.RiskHigh:
			score -= w.WeatherHighPenalty
		case valueobject.RiskExtreme, valueobject.RiskCritical:
			score -= w.WeatherExtremePenalty
		}
	}
	score -= w.HazardPenalty * float64(len(in.Hazards))
	score = math.Max(score, 0)

	recommendations := make([]string, 0, 2)
	if score < w.ConcernThreshold {
		recommendations = append(recommendations,
			fmt.Sprintf("Route safety concern (score %.0f): review the forecast and consider an alternative route or departure time", score))
	}
	if len(in.Hazards) > 0 {
		recommendations = append(recommendations,
			fmt.Sprintf("Navigation hazards: %d hazard zone(s) flagged, plan waypoints to keep clear", len(in.Hazards)))
	}

	origin := in.Origin
	analysis := &entity.RouteAnalysis{
		Origin:          in.Origin,
		Destination:     in.Destination,
		Midpoint:        RouteMidpoint(in.Origin, in.Destination),
		DistanceNM:      entity.RoundScore(distance),
		BearingDeg:      entity.RoundScore(InitialBearing(in.Origin, in.Destination)),
		EstimatedHours:  entity.RoundScore(distance / w.AverageSpeedKnots),
		AverageSpeedKn:  w.AverageSpeedKnots,
		HazardCount:     len(in.Hazards),
		HazardZones:     in.Hazards,
		MidpointWeather: in.MidpointWeather,
		WeatherSampling: "midpoint",
	}

	return entity.NewSafetyAssessment(entity.SafetyAssessmentParams{
		VesselID:        in.VesselID,
		AssessmentType:  entity.AssessmentRoute,
		Position:        &origin,
		SafetyScore:     score,
		RiskLevel:       tierFor(score, w.Tiers, valueobject.RiskHigh),
		Recommendations: recommendations,
		WeatherData:     in.MidpointWeather,
		RouteAnalysis:   analysis,
		SkippedChecks:   in.SkippedChecks,
		AssessedAt:      s.now(),
	})
}

// CheckEquipment оценивает состояние оборудования безопасности на момент now
func (s *SafetyScorer) CheckEquipment(vesselID string, items []entity.Equipment, now time.Time) (*entity.SafetyAssessment, error) {
	w := s.weights.Equipment

	summary := &entity.EquipmentSummary{Total: len(items), Items: append([]entity.Equipment(nil), items...)}
	for _, item := range items {
		switch item.Status {
		case valueobject.EquipmentFailed:
			summary.Failed++
		case valueobject.EquipmentExpired:
			summary.Expired++
		}
		if item.InspectionOverdue(now) {
			summary.Overdue++
		}
	}

	score := w.Baseline -
		w.FailedPenalty*float64(summary.Failed) -
		w.ExpiredPenalty*float64(summary.Expired) -
		w.OverduePenalty*float64(summary.Overdue)
	score = math.Max(score, 0)

	recommendations := make([]string, 0, 3)
	if summary.Failed > 0 {
		recommendations = append(recommendations,
			fmt.Sprintf("Urgent: %d failed safety equipment item(s) must be repaired or replaced before departure", summary.Failed))
	}
	if summary.Expired > 0 {
		recommendations = append(recommendations,
			fmt.Sprintf("Warning: %d expired safety equipment item(s) need replacement", summary.Expired))
	}
	if summary.Overdue > 0 {
		recommendations = append(recommendations,
			fmt.Sprintf("Schedule inspection for %d item(s) past their inspection date", summary.Overdue))
	}

	return entity.NewSafetyAssessment(entity.SafetyAssessmentParams{
		VesselID:        vesselID,
		AssessmentType:  entity.AssessmentEquipment,
		SafetyScore:     score,
		RiskLevel:       tierFor(score, s.weights.Location.Tiers, valueobject.RiskCritical),
		Recommendations: recommendations,
		Equipment:       summary,
		AssessedAt:      s.now(),
	})
}

// EmergencyInput результаты запросов для обработки ЧС
type EmergencyInput struct {
	VesselID        string
	EmergencyType   string
	Position        valueobject.Position
	Protocols       []entity.EmergencyProtocol
	Contacts        []entity.EmergencyContact
	NearestServices []entity.SafetyZone
	SkippedChecks   []string
}

// BuildEmergencyResponse упорядочивает протоколы по убыванию severity
// и формирует срочную рекомендацию
func (s *SafetyScorer) BuildEmergencyResponse(in EmergencyInput) (*entity.EmergencyResponse, error) {
	emergencyType := strings.TrimSpace(in.EmergencyType)
	if emergencyType == "" {
		return nil, fmt.Errorf("%w: emergency type is required", ErrInvalidInput)
	}

	protocols := append([]entity.EmergencyProtocol(nil), in.Protocols...)
	sort.SliceStable(protocols, func(i, j int) bool {
		return protocols[i].Severity > protocols[j].Severity
	})

	contacts := make([]entity.EmergencyContact, 0, len(in.Contacts))
	for _, c := range in.Contacts {
		if c.Active {
			contacts = append(contacts, c)
		}
	}

	now := s.now()
	recommendation, err := entity.NewEmergencyRecommendation(in.VesselID, emergencyType, protocols, in.NearestServices, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	return &entity.EmergencyResponse{
		VesselID:        in.VesselID,
		EmergencyType:   emergencyType,
		Position:        in.Position,
		Protocols:       protocols,
		Contacts:        contacts,
		NearestServices: append([]entity.SafetyZone(nil), in.NearestServices...),
		Recommendation:  recommendation,
		SkippedChecks:   append([]string(nil), in.SkippedChecks...),
		HandledAt:       now,
	}, nil
}

// WeatherConditions сырые данные погодного провайдера
type WeatherConditions struct {
	Temperature      float64
	WindSpeedKnots   float64
	WindDirectionDeg float64
	VisibilityKm     float64
	WaveHeightMeters *float64
	ObservedAt       time.Time
}

// ScoreWeather рассчитывает балл, уровень риска и предупреждения для погоды
func (s *SafetyScorer) ScoreWeather(position valueobject.Position, c WeatherConditions) entity.WeatherSnapshot {
	w := s.weights.Weather
	score := 100.0
	warnings := make([]string, 0, 3)

	switch {
	case c.WindSpeedKnots > w.GaleWindKnots:
		score -= w.GalePenalty
		warnings = append(warnings, fmt.Sprintf("Gale force winds %.0f kn", c.WindSpeedKnots))
	case c.WindSpeedKnots > w.StrongWindKnots:
		score -= w.StrongWindPenalty
		warnings = append(warnings, fmt.Sprintf("Strong winds %.0f kn", c.WindSpeedKnots))
	case c.WindSpeedKnots > w.ModerateWindKnots:
		score -= w.ModerateWindPenalty
	}

	switch {
	case c.VisibilityKm < w.PoorVisibilityKm:
		score -= w.PoorVisibilityPenalty
		warnings = append(warnings, fmt.Sprintf("Poor visibility %.1f km", c.VisibilityKm))
	case c.VisibilityKm < w.ReducedVisibilityKm:
		score -= w.ReducedVisibilityPenalty
		warnings = append(warnings, fmt.Sprintf("Reduced visibility %.1f km", c.VisibilityKm))
	}

	if c.WaveHeightMeters != nil {
		switch waves := *c.WaveHeightMeters; {
		case waves > w.RoughSeaMeters:
			score -= w.RoughSeaPenalty
			warnings = append(warnings, fmt.Sprintf("Rough seas %.1f m", waves))
		case waves > w.ModerateSeaMeters:
			score -= w.ModerateSeaPenalty
			warnings = append(warnings, fmt.Sprintf("Moderate seas %.1f m", waves))
		}
	}

	score = clamp(score, 0, 100)
	observedAt := c.ObservedAt
	if observedAt.IsZero() {
		observedAt = s.now()
	}

	var waves *float64
	if c.WaveHeightMeters != nil {
		v := *c.WaveHeightMeters
		waves = &v
	}

	return entity.WeatherSnapshot{
		Position:         position,
		Temperature:      c.Temperature,
		WindSpeedKnots:   c.WindSpeedKnots,
		WindDirectionDeg: c.WindDirectionDeg,
		VisibilityKm:     c.VisibilityKm,
		WaveHeightMeters: waves,
		SafetyScore:      score,
		RiskLevel:        tierFor(score, w.Tiers, valueobject.RiskExtreme),
		Warnings:         warnings,
		ObservedAt:       observedAt,
	}
}

// tierFor переводит балл в уровень риска; ниже всех границ возвращается bottom.
// Нулевая граница High означает отсутствие уровня high перед bottom.
func tierFor(score float64, tiers ScoreTiers, bottom valueobject.RiskLevel) valueobject.RiskLevel {
	switch {
	case score >= tiers.Low:
		return valueobject.RiskLow
	case score >= tiers.Moderate:
		return valueobject.RiskModerate
	case tiers.High > 0 && score >= tiers.High:
		return valueobject.RiskHigh
	default:
		return bottom
	}
}
