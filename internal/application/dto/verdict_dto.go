package dto

import (
	"time"

	"github.com/dreschagin/vessel-guard/internal/domain/entity"
	"github.com/dreschagin/vessel-guard/internal/domain/valueobject"
)

// MaintenanceSuggestionDTO рекомендуемое обслуживание
type MaintenanceSuggestionDTO struct {
	Urgency       string   `json:"urgency"`
	EstimatedCost float64  `json:"estimatedCost"`
	Parts         []string `json:"parts,omitempty"`
}

// AnomalyVerdictDTO представляет вердикт детектора для передачи между слоями.
// Имена JSON полей являются внешним контрактом.
type AnomalyVerdictDTO struct {
	ID                    string                    `json:"id"`
	VesselID              string                    `json:"vesselId,omitempty"`
	ParameterName         string                    `json:"parameterName"`
	AnomalyDetected       bool                      `json:"anomalyDetected"`
	AnomalyType           string                    `json:"anomalyType"`
	DetectedAnomalies     []string                  `json:"detectedAnomalies,omitempty"`
	ConfidenceScore       float64                   `json:"confidenceScore"`
	Severity              string                    `json:"severity"`
	PredictedFailureRisk  float64                   `json:"predictedFailureRisk"`
	RecommendedActions    []string                  `json:"recommendedActions"`
	MaintenanceSuggestion *MaintenanceSuggestionDTO `json:"maintenanceSuggestion,omitempty"`
	SkippedChecks         []string                  `json:"skippedChecks,omitempty"`
	EvaluatedAt           time.Time                 `json:"evaluatedAt"`
}

// FromVerdict конвертирует Domain Entity в DTO
func FromVerdict(v *entity.AnomalyVerdict) *AnomalyVerdictDTO {
	out := &AnomalyVerdictDTO{
		ID:                   v.ID(),
		VesselID:             v.VesselID(),
		ParameterName:        v.ParameterName(),
		AnomalyDetected:      v.AnomalyDetected(),
		AnomalyType:          v.AnomalyType().String(),
		ConfidenceScore:      v.ConfidenceScore(),
		Severity:             v.Severity().String(),
		PredictedFailureRisk: v.PredictedFailureRisk(),
		RecommendedActions:   v.RecommendedActions(),
		SkippedChecks:        v.SkippedChecks(),
		EvaluatedAt:          v.EvaluatedAt(),
	}
	for _, t := range v.DetectedAnomalies() {
		out.DetectedAnomalies = append(out.DetectedAnomalies, t.String())
	}
	if m := v.MaintenanceSuggestion(); m != nil {
		out.MaintenanceSuggestion = &MaintenanceSuggestionDTO{
			Urgency:       m.Urgency.String(),
			EstimatedCost: m.EstimatedCost,
			Parts:         m.Parts,
		}
	}
	return out
}

// ToVerdicts конвертирует слайс Entity в слайс DTO
func ToVerdicts(verdicts []*entity.AnomalyVerdict) []*AnomalyVerdictDTO {
	dtos := make([]*AnomalyVerdictDTO, len(verdicts))
	for i, v := range verdicts {
		dtos[i] = FromVerdict(v)
	}
	return dtos
}

// ToEntity восстанавливает вердикт из DTO (кеш, архив)
func (d *AnomalyVerdictDTO) ToEntity() (*entity.AnomalyVerdict, error) {
	detected := make([]valueobject.AnomalyType, 0, len(d.DetectedAnomalies))
	for _, t := range d.DetectedAnomalies {
		detected = append(detected, valueobject.AnomalyType(t))
	}

	var maintenance *entity.MaintenanceSuggestion
	if d.MaintenanceSuggestion != nil {
		maintenance = &entity.MaintenanceSuggestion{
			Urgency:       valueobject.MaintenanceUrgency(d.MaintenanceSuggestion.Urgency),
			EstimatedCost: d.MaintenanceSuggestion.EstimatedCost,
			Parts:         d.MaintenanceSuggestion.Parts,
		}
	}

	return entity.NewAnomalyVerdict(entity.AnomalyVerdictParams{
		ID:                    d.ID,
		VesselID:              d.VesselID,
		ParameterName:         d.ParameterName,
		AnomalyDetected:       d.AnomalyDetected,
		AnomalyType:           valueobject.AnomalyType(d.AnomalyType),
		DetectedAnomalies:     detected,
		ConfidenceScore:       d.ConfidenceScore,
		Severity:              valueobject.Severity(d.Severity),
		PredictedFailureRisk:  d.PredictedFailureRisk,
		RecommendedActions:    d.RecommendedActions,
		MaintenanceSuggestion: maintenance,
		SkippedChecks:         d.SkippedChecks,
		EvaluatedAt:           d.EvaluatedAt,
	})
}

// VerdictPageDTO страница истории вердиктов
type VerdictPageDTO struct {
	Items      []*AnomalyVerdictDTO `json:"items"`
	NextCursor string               `json:"nextCursor,omitempty"`
}
