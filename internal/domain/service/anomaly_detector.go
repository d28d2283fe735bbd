package service

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dreschagin/vessel-guard/internal/domain/entity"
	"github.com/dreschagin/vessel-guard/internal/domain/valueobject"
)

const (
	ActionContinueMonitoring = "Continue monitoring"
	ActionMonitorTrends      = "Monitor parameter trends"

	// CheckHistorical имя проверки в skippedChecks
	CheckHistorical = "historical_comparison"
)

// DeviceContext условия эксплуатации в момент оценки (необязательно)
type DeviceContext struct {
	RoughWeather        bool
	HighPerformanceMode bool
}

// AnomalyInput входные данные одной оценки сигнала.
// Samples упорядочены от старых к новым.
type AnomalyInput struct {
	VesselID      string
	ParameterName string
	Samples       []float64
	Baseline      *valueobject.HistoricalBaseline
	// BaselineUnavailable выставляется, если источник истории вернул ошибку или таймаут.
	BaselineUnavailable bool
	Context             *DeviceContext
}

// AnomalyDetector детектор аномалий телеметрии (Domain Service).
// Чистая функция от входных данных и неизменяемой таблицы профилей.
type AnomalyDetector struct {
	profiles *ProfileRegistry
	now      func() time.Time
}

// NewAnomalyDetector создает детектор поверх загруженной таблицы профилей
func NewAnomalyDetector(profiles *ProfileRegistry) *AnomalyDetector {
	return &AnomalyDetector{
		profiles: profiles,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Profiles возвращает таблицу профилей
func (d *AnomalyDetector) Profiles() *ProfileRegistry {
	return d.profiles
}

// evaluation накапливает результаты проходов правил
type evaluation struct {
	detected    bool
	primary     valueobject.AnomalyType
	types       []valueobject.AnomalyType
	confidence  float64
	risk        float64
	floor       valueobject.Severity
	actions     []string
	maintenance *entity.MaintenanceSuggestion
}

func (e *evaluation) flag(t valueobject.AnomalyType, confidence, risk float64, action string) {
	e.detected = true
	e.primary = mergeAnomalyType(e.primary, t)
	e.types = append(e.types, t)
	e.confidence = math.Max(e.confidence, confidence)
	e.risk = math.Max(e.risk, risk)
	e.actions = append(e.actions, action)
}

func (e *evaluation) raise(s valueobject.Severity) {
	e.floor = valueobject.MaxSeverity(e.floor, s)
}

func (e *evaluation) suggest(m entity.MaintenanceSuggestion) {
	if e.maintenance == nil || m.Urgency.Rank() > e.maintenance.Urgency.Rank() {
		e.maintenance = &m
	}
}

// mergeAnomalyType выбирает основной тип: специфичное правило параметра
// важнее общих проверок, несколько общих проверок дают multiple_anomalies.
func mergeAnomalyType(current, next valueobject.AnomalyType) valueobject.AnomalyType {
	switch {
	case current == valueobject.AnomalyNone:
		return next
	case current.IsPattern():
		return current
	case next.IsPattern():
		return next
	default:
		return valueobject.AnomalyMultiple
	}
}

// Evaluate оценивает окно показаний параметра
func (d *AnomalyDetector) Evaluate(in AnomalyInput) (*entity.AnomalyVerdict, error) {
	name := strings.TrimSpace(in.ParameterName)
	if name == "" {
		return nil, fmt.Errorf("%w: parameter name is required", ErrInvalidInput)
	}
	if len(in.Samples) == 0 {
		return nil, fmt.Errorf("%w: sample window is empty", ErrInvalidInput)
	}
	for i, v := range in.Samples {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: sample %d is not a finite number", ErrInvalidInput, i)
		}
	}

	profile, ok := d.profiles.Lookup(name)
	if !ok {
		return entity.NewAnomalyVerdict(entity.AnomalyVerdictParams{
			VesselID:           in.VesselID,
			ParameterName:      name,
			AnomalyType:        valueobject.AnomalyUnknownParameter,
			Severity:           valueobject.SeverityLow,
			RecommendedActions: []string{ActionMonitorTrends},
			EvaluatedAt:        d.now(),
		})
	}

	settings := d.profiles.Engine()
	samples := append([]float64(nil), in.Samples...)
	ev := &evaluation{primary: valueobject.AnomalyNone, floor: valueobject.SeverityLow}

	d.checkRange(ev, profile, samples)
	d.checkVariance(ev, profile, samples)
	d.checkTrend(ev, profile, samples, settings)
	d.checkPatterns(ev, profile, samples)
	d.checkHistory(ev, in.Baseline, samples, settings)
	d.adjustForContext(ev, name, in.Context, settings)

	var skipped []string
	if in.BaselineUnavailable {
		ev.confidence *= settings.DegradedProviderFactor
		skipped = append(skipped, CheckHistorical)
	}

	risk := entity.RoundScore(clamp(ev.risk, 0, 1))
	severity := valueobject.SeverityLow
	if ev.detected {
		severity = valueobject.MaxSeverity(valueobject.SeverityForRisk(risk), ev.floor)
	}

	actions := ev.actions
	if len(actions) == 0 {
		actions = []string{ActionContinueMonitoring}
	}

	return entity.NewAnomalyVerdict(entity.AnomalyVerdictParams{
		VesselID:              in.VesselID,
		ParameterName:         name,
		AnomalyDetected:       ev.detected,
		AnomalyType:           ev.primary,
		DetectedAnomalies:     ev.types,
		ConfidenceScore:       clamp(ev.confidence, 0, 1),
		Severity:              severity,
		PredictedFailureRisk:  risk,
		RecommendedActions:    actions,
		MaintenanceSuggestion: ev.maintenance,
		SkippedChecks:         skipped,
		EvaluatedAt:           d.now(),
	})
}

// checkRange: риск растет с удалением от границы диапазона
func (d *AnomalyDetector) checkRange(ev *evaluation, p ParameterProfile, samples []float64) {
	latest := samples[len(samples)-1]
	var distance float64
	switch {
	case latest < p.Range.Low:
		distance = p.Range.Low - latest
	case latest > p.Range.High:
		distance = latest - p.Range.High
	default:
		return
	}

	ratio := distance / (p.Range.High - p.Range.Low)
	ev.flag(valueobject.AnomalyOutOfRange,
		math.Min(0.8+0.2*ratio, 1),
		math.Min(0.7+0.3*ratio, 1),
		fmt.Sprintf("%s reading %s is outside the normal range [%g, %g]: verify sensor and inspect the system",
			p.Name, formatReading(latest, p.Unit), p.Range.Low, p.Range.High))
	ev.raise(valueobject.SeverityHigh)
}

func (d *AnomalyDetector) checkVariance(ev *evaluation, p ParameterProfile, samples []float64) {
	if len(samples) < 2 {
		return
	}
	variance := PopulationVariance(samples)
	if variance <= p.VarianceThreshold {
		return
	}
	ev.flag(valueobject.AnomalyHighVariance, 0.6, 0.5,
		fmt.Sprintf("Unstable %s readings (variance %.2f above %.2f): check sensor connections and system stability",
			p.Name, variance, p.VarianceThreshold))
	ev.raise(valueobject.SeverityMedium)
}

// checkTrend: для температуры опасен рост, для давления падение.
// Для прочих параметров наклон нормируется на ширину диапазона.
func (d *AnomalyDetector) checkTrend(ev *evaluation, p ParameterProfile, samples []float64, s EngineSettings) {
	slope := OLSSlope(samples, s.TrendMinPoints)
	if math.Abs(slope) <= s.TrendSlopeThreshold {
		return
	}

	switch {
	case isTemperatureParameter(p.Name) && slope > 0:
		ev.flag(valueobject.AnomalyTrend, 0.75, 0.8,
			fmt.Sprintf("Rising temperature trend (+%.2f per reading): check cooling system", slope))
		ev.raise(valueobject.SeverityHigh)
	case isPressureParameter(p.Name) && slope < 0:
		ev.flag(valueobject.AnomalyTrend, 0.85, 0.9,
			fmt.Sprintf("Dropping pressure trend (%.2f per reading): inspect immediately", slope))
		ev.raise(valueobject.SeverityCritical)
	case math.Abs(slope)/(p.Range.High-p.Range.Low) > s.TrendSlopeThreshold:
		ev.flag(valueobject.AnomalyTrend, 0.6, 0.4,
			fmt.Sprintf("Sustained %s trend (%+.2f per reading): schedule an inspection", p.Name, slope))
	}
}

func (d *AnomalyDetector) checkPatterns(ev *evaluation, p ParameterProfile, samples []float64) {
	latest := samples[len(samples)-1]

	switch p.Name {
	case "engine_speed":
		rule := p.Rules.SuddenDrop
		if rule == nil {
			return
		}
		drop := DropRatio(samples)
		if drop <= rule.Threshold {
			return
		}
		ev.flag(valueobject.AnomalySuddenRPMDrop, 0.8, rule.RiskWeight,
			fmt.Sprintf("Sudden RPM drop of %.0f%%: check fuel supply, filters and engine load", drop*100))
		ev.suggest(maintenanceFor(valueobject.UrgencyImmediate, rule))

	case "oil_pressure":
		rule := p.Rules.LowPressure
		if rule == nil || latest >= rule.Threshold {
			return
		}
		ev.flag(valueobject.AnomalyLowOilPressure, 0.9, rule.RiskWeight,
			fmt.Sprintf("Oil pressure %s below %g: stop engine immediately and check oil level",
				formatReading(latest, p.Unit), rule.Threshold))
		ev.suggest(maintenanceFor(valueobject.UrgencyImmediate, rule))

	case "coolant_temperature":
		rule := p.Rules.Overheating
		if rule == nil || latest <= rule.Threshold {
			return
		}
		ev.flag(valueobject.AnomalyEngineOverheating, 0.95, rule.RiskWeight,
			fmt.Sprintf("Engine overheating at %s: reduce engine load and check cooling system",
				formatReading(latest, p.Unit)))
		ev.suggest(maintenanceFor(valueobject.UrgencyImmediate, rule))

	case "alternator_voltage":
		rule := p.Rules.Undercharging
		if rule == nil || latest >= rule.Threshold {
			return
		}
		ev.flag(valueobject.AnomalyChargingSystemFailure, 0.7, rule.RiskWeight,
			fmt.Sprintf("Alternator output %s below %g: inspect alternator, regulator and belt within 24 hours",
				formatReading(latest, p.Unit), rule.Threshold))
		ev.suggest(maintenanceFor(valueobject.UrgencyWithin24h, rule))
	}
}

func (d *AnomalyDetector) checkHistory(ev *evaluation, baseline *valueobject.HistoricalBaseline, samples []float64, s EngineSettings) {
	if baseline == nil {
		return
	}
	z, ok := ZScore(Mean(samples), baseline.Mean(), baseline.StdDev())
	if !ok || z <= s.ZScoreThreshold {
		return
	}
	ev.flag(valueobject.AnomalyHistoricalDeviation,
		math.Min(z/s.ZScoreScale, 1),
		s.HistoricalRisk,
		fmt.Sprintf("Readings deviate from historical baseline (z-score %.2f over %d samples)", z, baseline.SampleCount()))
}

func (d *AnomalyDetector) adjustForContext(ev *evaluation, name string, ctx *DeviceContext, s EngineSettings) {
	if ctx == nil || !ev.detected {
		return
	}
	if ctx.RoughWeather {
		ev.confidence *= s.RoughWeatherFactor
		ev.actions = append(ev.actions, "Rough weather may affect readings: confirm once conditions settle")
	}
	if ctx.HighPerformanceMode && isTemperatureParameter(name) {
		ev.confidence *= s.HighPerformanceFactor
		ev.actions = append(ev.actions, "High-performance mode: elevated temperatures are partly expected")
	}
}

func maintenanceFor(urgency valueobject.MaintenanceUrgency, rule *IndicatorRule) entity.MaintenanceSuggestion {
	return entity.MaintenanceSuggestion{
		Urgency:       urgency,
		EstimatedCost: rule.EstimatedCost,
		Parts:         append([]string(nil), rule.Parts...),
	}
}

func isTemperatureParameter(name string) bool {
	return strings.Contains(name, "temperature")
}

func isPressureParameter(name string) bool {
	return strings.Contains(name, "pressure")
}

func formatReading(v float64, unit string) string {
	if unit == "" {
		return fmt.Sprintf("%.2f", v)
	}
	return fmt.Sprintf("%.2f %s", v, unit)
}
