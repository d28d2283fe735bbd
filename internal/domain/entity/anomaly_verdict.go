package entity

import (
	"errors"
	"fmt"
	"time"

	"github.com/dreschagin/vessel-guard/internal/domain/valueobject"
	"github.com/google/uuid"
)

// MaintenanceSuggestion описывает рекомендуемое обслуживание (Value Object)
type MaintenanceSuggestion struct {
	Urgency       valueobject.MaintenanceUrgency
	EstimatedCost float64
	Parts         []string
}

// Validate проверяет предложение по обслуживанию
func (m MaintenanceSuggestion) Validate() error {
	if err := m.Urgency.Validate(); err != nil {
		return err
	}
	if m.EstimatedCost < 0 {
		return errors.New("estimated cost cannot be negative")
	}
	return nil
}

// AnomalyVerdictParams собирает поля вердикта для фабрики.
// ID и EvaluatedAt заполняются автоматически, если не заданы.
type AnomalyVerdictParams struct {
	ID                    string
	VesselID              string
	ParameterName         string
	AnomalyDetected       bool
	AnomalyType           valueobject.AnomalyType
	DetectedAnomalies     []valueobject.AnomalyType
	ConfidenceScore       float64
	Severity              valueobject.Severity
	PredictedFailureRisk  float64
	RecommendedActions    []string
	MaintenanceSuggestion *MaintenanceSuggestion
	SkippedChecks         []string
	EvaluatedAt           time.Time
}

// AnomalyVerdict результат одной оценки сигнала (Aggregate Root).
// Не изменяется после создания.
type AnomalyVerdict struct {
	id                    string
	vesselID              string
	parameterName         string
	anomalyDetected       bool
	anomalyType           valueobject.AnomalyType
	detectedAnomalies     []valueobject.AnomalyType
	confidenceScore       float64
	severity              valueobject.Severity
	predictedFailureRisk  float64
	recommendedActions    []string
	maintenanceSuggestion *MaintenanceSuggestion
	skippedChecks         []string
	evaluatedAt           time.Time
}

// NewAnomalyVerdict создает вердикт (Factory Method).
// Оценки ограничиваются [0,1] и фиксируются до ScorePrecision знаков.
func NewAnomalyVerdict(p AnomalyVerdictParams) (*AnomalyVerdict, error) {
	if p.AnomalyType == "" {
		p.AnomalyType = valueobject.AnomalyNone
	}
	if err := p.AnomalyType.Validate(); err != nil {
		return nil, err
	}
	for _, t := range p.DetectedAnomalies {
		if err := t.Validate(); err != nil {
			return nil, err
		}
	}
	if err := p.Severity.Validate(); err != nil {
		return nil, err
	}
	if len(p.RecommendedActions) == 0 {
		return nil, errors.New("verdict requires at least one recommended action")
	}
	if p.MaintenanceSuggestion != nil {
		if err := p.MaintenanceSuggestion.Validate(); err != nil {
			return nil, fmt.Errorf("invalid maintenance suggestion: %w", err)
		}
	}

	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.EvaluatedAt.IsZero() {
		p.EvaluatedAt = time.Now().UTC()
	}

	var maintenance *MaintenanceSuggestion
	if p.MaintenanceSuggestion != nil {
		m := *p.MaintenanceSuggestion
		m.EstimatedCost = RoundScore(m.EstimatedCost)
		m.Parts = append([]string(nil), m.Parts...)
		maintenance = &m
	}

	return &AnomalyVerdict{
		id:                    p.ID,
		vesselID:              p.VesselID,
		parameterName:         p.ParameterName,
		anomalyDetected:       p.AnomalyDetected,
		anomalyType:           p.AnomalyType,
		detectedAnomalies:     append([]valueobject.AnomalyType(nil), p.DetectedAnomalies...),
		confidenceScore:       RoundScore(clampUnit(p.ConfidenceScore)),
		severity:              p.Severity,
		predictedFailureRisk:  RoundScore(clampUnit(p.PredictedFailureRisk)),
		recommendedActions:    append([]string(nil), p.RecommendedActions...),
		maintenanceSuggestion: maintenance,
		skippedChecks:         append([]string(nil), p.SkippedChecks...),
		evaluatedAt:           p.EvaluatedAt,
	}, nil
}

// WithVessel возвращает копию вердикта, привязанную к судну.
func (v *AnomalyVerdict) WithVessel(vesselID string) *AnomalyVerdict {
	clone := *v
	clone.vesselID = vesselID
	return &clone
}

func (v *AnomalyVerdict) ID() string { return v.id }
func (v *AnomalyVerdict) VesselID() string { return v.vesselID }
func (v *AnomalyVerdict) ParameterName() string { return v.parameterName }
func (v *AnomalyVerdict) AnomalyDetected() bool { return v.anomalyDetected }
func (v *AnomalyVerdict) AnomalyType() valueobject.AnomalyType { return v.anomalyType }
func (v *AnomalyVerdict) ConfidenceScore() float64 { return v.confidenceScore }
func (v *AnomalyVerdict) Severity() valueobject.Severity { return v.severity }
func (v *AnomalyVerdict) PredictedFailureRisk() float64 { return v.predictedFailureRisk }
func (v *AnomalyVerdict) EvaluatedAt() time.Time { return v.evaluatedAt }

// DetectedAnomalies возвращает все сработавшие типы в порядке правил
func (v *AnomalyVerdict) DetectedAnomalies() []valueobject.AnomalyType {
	return append([]valueobject.AnomalyType(nil), v.detectedAnomalies...)
}

// RecommendedActions возвращает копию списка рекомендаций
func (v *AnomalyVerdict) RecommendedActions() []string {
	return append([]string(nil), v.recommendedActions...)
}

// SkippedChecks возвращает проверки, пропущенные из-за недоступности источников
func (v *AnomalyVerdict) SkippedChecks() []string {
	return append([]string(nil), v.skippedChecks...)
}

// MaintenanceSuggestion возвращает копию предложения по обслуживанию или nil
func (v *AnomalyVerdict) MaintenanceSuggestion() *MaintenanceSuggestion {
	if v.maintenanceSuggestion == nil {
		return nil
	}
	m := *v.maintenanceSuggestion
	m.Parts = append([]string(nil), m.Parts...)
	return &m
}

// Includes сообщает, сработал ли указанный тип аномалии.
func (v *AnomalyVerdict) Includes(t valueobject.AnomalyType) bool {
	if v.anomalyType == t {
		return true
	}
	for _, d := range v.detectedAnomalies {
		if d == t {
			return true
		}
	}
	return false
}

// RequiresAlert сообщает, нужна ли эскалация: severity high/critical и confidence > 0.6.
func (v *AnomalyVerdict) RequiresAlert() bool {
	return v.anomalyDetected &&
		v.severity.AtLeast(valueobject.SeverityHigh) &&
		v.confidenceScore > 0.6
}
