package usecase

import (
	"context"
	"time"

	"github.com/dreschagin/vessel-guard/internal/application/dto"
	"github.com/dreschagin/vessel-guard/internal/application/port"
	"github.com/dreschagin/vessel-guard/internal/domain/entity"
	"github.com/dreschagin/vessel-guard/internal/domain/repository"
	"github.com/dreschagin/vessel-guard/internal/domain/service"
	"github.com/dreschagin/vessel-guard/pkg/logger"
)

// SafetySources справочники и провайдеры движка безопасности.
// Любое поле может быть nil: соответствующая проверка пропускается.
type SafetySources struct {
	Zones     repository.ZoneRepository
	Equipment repository.EquipmentRepository
	Baselines repository.SafetyBaselineRepository
	Emergency repository.EmergencyRepository
	Weather   port.WeatherProvider
	Reports   port.ReportArchive
}

type SafetyConfig struct {
	ProviderTimeout   time.Duration
	HarborRadiusKm    float64
	EmergencyRadiusKm float64
	ReportKeyPrefix   string
}

func (c SafetyConfig) withDefaults() SafetyConfig {
	if c.ProviderTimeout <= 0 {
		c.ProviderTimeout = defaultProviderTimeout
	}
	if c.HarborRadiusKm <= 0 {
		c.HarborRadiusKm = 100
	}
	if c.EmergencyRadiusKm <= 0 {
		c.EmergencyRadiusKm = 200
	}
	if c.ReportKeyPrefix == "" {
		c.ReportKeyPrefix = "emergencies"
	}
	return c
}

// safetyRunner общая часть use case'ов движка безопасности
type safetyRunner struct {
	scorer   *service.SafetyScorer
	sources  SafetySources
	sink     port.Sink
	observer port.EvaluationObserver
	config   SafetyConfig
	logger   *logger.Logger
}

func newSafetyRunner(
	scorer *service.SafetyScorer,
	sources SafetySources,
	sink port.Sink,
	observer port.EvaluationObserver,
	config SafetyConfig,
	log *logger.Logger,
) safetyRunner {
	return safetyRunner{
		scorer:   scorer,
		sources:  sources,
		sink:     sinkOrDiscard(sink),
		observer: observerOrNoop(observer),
		config:   config.withDefaults(),
		logger:   log,
	}
}

// skip помечает проверку пропущенной; err == nil означает, что источник не настроен
func (r *safetyRunner) skip(skipped *skipList, operation, check string, err error) {
	skipped.add(check)
	r.observer.ObserveSkippedCheck(operation, check)
	if err != nil {
		r.logger.Warn("Safety lookup failed, check skipped",
			"operation", operation,
			"check", check,
			"error", err.Error())
	}
}

// record сохраняет оценку через sink; ошибки только логируются
func (r *safetyRunner) record(ctx context.Context, assessment *entity.SafetyAssessment, started time.Time) *dto.SafetyAssessmentDTO {
	r.observer.ObserveAssessment(string(assessment.Type()), assessment.RiskLevel().String(),
		time.Since(started).Seconds())

	if err := r.sink.RecordAssessment(context.WithoutCancel(ctx), assessment); err != nil {
		r.logger.Error("Failed to record safety assessment", err,
			"assessment_id", assessment.ID(),
			"type", assessment.Type())
	}

	r.logger.Debug("Safety assessment completed",
		"type", assessment.Type(),
		"vessel_id", assessment.VesselID(),
		"score", assessment.SafetyScore(),
		"risk_level", assessment.RiskLevel())

	return dto.FromAssessment(assessment)
}
