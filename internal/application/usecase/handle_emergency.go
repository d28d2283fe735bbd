package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/dreschagin/vessel-guard/internal/application/dto"
	"github.com/dreschagin/vessel-guard/internal/application/port"
	"github.com/dreschagin/vessel-guard/internal/domain/entity"
	"github.com/dreschagin/vessel-guard/internal/domain/service"
	"github.com/dreschagin/vessel-guard/internal/domain/valueobject"
	"github.com/dreschagin/vessel-guard/pkg/logger"
)

// GeneralContactType контакты, возвращаемые для любой чрезвычайной ситуации
const GeneralContactType = "general"

type HandleEmergencyCommand struct {
	VesselID      string
	EmergencyType string
	Latitude      float64
	Longitude     float64
}

// HandleEmergencyUseCase собирает протоколы, контакты и ближайшие службы,
// сохраняет срочную рекомендацию, поднимает alert и архивирует отчет
type HandleEmergencyUseCase struct {
	safetyRunner
}

func NewHandleEmergencyUseCase(
	scorer *service.SafetyScorer,
	sources SafetySources,
	sink port.Sink,
	observer port.EvaluationObserver,
	config SafetyConfig,
	logger *logger.Logger,
) *HandleEmergencyUseCase {
	return &HandleEmergencyUseCase{safetyRunner: newSafetyRunner(scorer, sources, sink, observer, config, logger)}
}

func (uc *HandleEmergencyUseCase) Execute(ctx context.Context, cmd HandleEmergencyCommand) (*dto.EmergencyResponseDTO, error) {
	started := time.Now()

	vesselID := strings.TrimSpace(cmd.VesselID)
	if vesselID == "" {
		return nil, fmt.Errorf("%w: vessel id is required", service.ErrInvalidInput)
	}
	emergencyType := strings.TrimSpace(cmd.EmergencyType)
	if emergencyType == "" {
		return nil, fmt.Errorf("%w: emergency type is required", service.ErrInvalidInput)
	}
	position, err := valueobject.NewPosition(cmd.Latitude, cmd.Longitude)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", service.ErrInvalidInput, err)
	}

	input := service.EmergencyInput{
		VesselID:      vesselID,
		EmergencyType: emergencyType,
		Position:      position,
	}
	skipped := &skipList{}
	const op = "handle_emergency"

	var wg sync.WaitGroup

	wg.Go(func() {
		if uc.sources.Emergency == nil {
			uc.skip(skipped, op, CheckProtocols, nil)
			return
		}
		callCtx, cancel := withTimeout(ctx, uc.config.ProviderTimeout)
		defer cancel()
		protocols, err := uc.sources.Emergency.ProtocolsFor(callCtx, emergencyType)
		if err != nil {
			uc.skip(skipped, op, CheckProtocols, err)
			return
		}
		input.Protocols = protocols
	})

	wg.Go(func() {
		if uc.sources.Emergency == nil {
			uc.skip(skipped, op, CheckContacts, nil)
			return
		}
		callCtx, cancel := withTimeout(ctx, uc.config.ProviderTimeout)
		defer cancel()
		contacts, err := uc.sources.Emergency.ActiveContacts(callCtx, []string{emergencyType, GeneralContactType})
		if err != nil {
			uc.skip(skipped, op, CheckContacts, err)
			return
		}
		input.Contacts = contacts
	})

	wg.Go(func() {
		if uc.sources.Zones == nil {
			uc.skip(skipped, op, CheckServices, nil)
			return
		}
		callCtx, cancel := withTimeout(ctx, uc.config.ProviderTimeout)
		defer cancel()
		services, err := uc.sources.Zones.NearestZones(callCtx, position,
			valueobject.EmergencyServiceZoneTypes(), uc.config.EmergencyRadiusKm)
		if err != nil {
			uc.skip(skipped, op, CheckServices, err)
			return
		}
		input.NearestServices = services
	})

	wg.Wait()
	input.SkippedChecks = skipped.list()

	response, err := uc.scorer.BuildEmergencyResponse(input)
	if err != nil {
		return nil, err
	}

	sinkCtx := context.WithoutCancel(ctx)
	if err := uc.sink.RecordRecommendation(sinkCtx, response.Recommendation); err != nil {
		uc.logger.Error("Failed to record emergency recommendation", err,
			"vessel_id", vesselID,
			"recommendation_id", response.Recommendation.ID)
	}

	uc.archive(sinkCtx, response)

	result := dto.FromEmergencyResponse(response)
	alert := port.Alert{
		Source:   "safety_engine",
		VesselID: vesselID,
		Severity: valueobject.SeverityCritical,
		Message: fmt.Sprintf("Emergency %s reported by vessel %s at %s",
			emergencyType, vesselID, position),
		Payload:   result,
		CreatedAt: response.HandledAt,
	}
	if err := uc.sink.Alert(sinkCtx, alert); err != nil {
		uc.logger.Error("Failed to dispatch emergency alert", err, "vessel_id", vesselID)
	}

	uc.observer.ObserveAssessment(string(entity.AssessmentEmergency), valueobject.RiskCritical.String(),
		time.Since(started).Seconds())
	uc.logger.Warn("Emergency handled",
		"vessel_id", vesselID,
		"emergency_type", emergencyType,
		"protocols", len(response.Protocols),
		"services", len(response.NearestServices))

	return result, nil
}

// archive сохраняет полный отчет в архив; ReportURL заполняется при успехе
func (uc *HandleEmergencyUseCase) archive(ctx context.Context, response *entity.EmergencyResponse) {
	if uc.sources.Reports == nil {
		return
	}

	body, err := json.Marshal(dto.FromEmergencyResponse(response))
	if err != nil {
		uc.logger.Error("Failed to encode emergency report", err)
		return
	}

	key := path.Join(
		strings.Trim(uc.config.ReportKeyPrefix, "/"),
		reportKeySegment(response.VesselID),
		fmt.Sprintf("%s_%s.json", response.HandledAt.UTC().Format("20060102T150405Z"), reportKeySegment(response.EmergencyType)),
	)

	callCtx, cancel := withTimeout(ctx, uc.config.ProviderTimeout)
	defer cancel()
	url, err := uc.sources.Reports.Archive(callCtx, port.EmergencyReport{
		Key:           key,
		VesselID:      response.VesselID,
		EmergencyType: response.EmergencyType,
		Body:          body,
	})
	if err != nil {
		uc.observer.ObserveSkippedCheck("handle_emergency", CheckReportArchive)
		uc.logger.Error("Failed to archive emergency report", err, "key", key)
		response.SkippedChecks = append(response.SkippedChecks, CheckReportArchive)
		return
	}
	response.ReportURL = url
}

// reportKeySegment заменяет все, кроме [A-Za-z0-9_-], на '_',
// чтобы идентификаторы из запроса не выходили за префикс отчетов
func reportKeySegment(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
