package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dreschagin/vessel-guard/internal/application/dto"
	"github.com/dreschagin/vessel-guard/internal/application/port"
	"github.com/dreschagin/vessel-guard/internal/domain/service"
	"github.com/dreschagin/vessel-guard/pkg/logger"
)

// CheckEquipmentUseCase оценивает состояние оборудования безопасности судна
type CheckEquipmentUseCase struct {
	safetyRunner
	now func() time.Time
}

func NewCheckEquipmentUseCase(
	scorer *service.SafetyScorer,
	sources SafetySources,
	sink port.Sink,
	observer port.EvaluationObserver,
	config SafetyConfig,
	logger *logger.Logger,
) *CheckEquipmentUseCase {
	return &CheckEquipmentUseCase{
		safetyRunner: newSafetyRunner(scorer, sources, sink, observer, config, logger),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (uc *CheckEquipmentUseCase) Execute(ctx context.Context, vesselID string) (*dto.SafetyAssessmentDTO, error) {
	started := time.Now()

	vesselID = strings.TrimSpace(vesselID)
	if vesselID == "" {
		return nil, fmt.Errorf("%w: vessel id is required", service.ErrInvalidInput)
	}
	if uc.sources.Equipment == nil {
		return nil, fmt.Errorf("equipment store is not configured")
	}

	callCtx, cancel := withTimeout(ctx, uc.config.ProviderTimeout)
	defer cancel()
	items, err := uc.sources.Equipment.EquipmentFor(callCtx, vesselID)
	if err != nil {
		uc.logger.Error("Failed to load safety equipment", err, "vessel_id", vesselID)
		return nil, fmt.Errorf("failed to load equipment: %w", err)
	}

	assessment, err := uc.scorer.CheckEquipment(vesselID, items, uc.now())
	if err != nil {
		return nil, fmt.Errorf("failed to check equipment: %w", err)
	}
	return uc.record(ctx, assessment, started), nil
}
