package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dreschagin/vessel-guard/internal/application/dto"
	"github.com/dreschagin/vessel-guard/internal/application/port"
	"github.com/dreschagin/vessel-guard/internal/domain/service"
	"github.com/dreschagin/vessel-guard/internal/domain/valueobject"
	"github.com/dreschagin/vessel-guard/pkg/logger"
)

type AssessLocationCommand struct {
	VesselID  string
	Latitude  float64
	Longitude float64
}

// AssessLocationUseCase параллельно запрашивает базовый балл, гавани,
// погоду и опасные зоны, затем считает оценку местоположения
type AssessLocationUseCase struct {
	safetyRunner
}

func NewAssessLocationUseCase(
	scorer *service.SafetyScorer,
	sources SafetySources,
	sink port.Sink,
	observer port.EvaluationObserver,
	config SafetyConfig,
	logger *logger.Logger,
) *AssessLocationUseCase {
	return &AssessLocationUseCase{safetyRunner: newSafetyRunner(scorer, sources, sink, observer, config, logger)}
}

func (uc *AssessLocationUseCase) Execute(ctx context.Context, cmd AssessLocationCommand) (*dto.SafetyAssessmentDTO, error) {
	started := time.Now()

	vesselID := strings.TrimSpace(cmd.VesselID)
	if vesselID == "" {
		return nil, fmt.Errorf("%w: vessel id is required", service.ErrInvalidInput)
	}
	position, err := valueobject.NewPosition(cmd.Latitude, cmd.Longitude)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", service.ErrInvalidInput, err)
	}

	input := service.LocationInput{VesselID: vesselID, Position: position}
	skipped := &skipList{}
	const op = "assess_location"

	var wg sync.WaitGroup

	wg.Go(func() {
		if uc.sources.Baselines == nil {
			uc.skip(skipped, op, CheckBaselineScore, nil)
			return
		}
		callCtx, cancel := withTimeout(ctx, uc.config.ProviderTimeout)
		defer cancel()
		score, ok, err := uc.sources.Baselines.BaselineScore(callCtx, vesselID, position)
		if err != nil {
			uc.skip(skipped, op, CheckBaselineScore, err)
			return
		}
		if ok {
			input.BaselineScore = &score
		}
	})

	wg.Go(func() {
		if uc.sources.Zones == nil {
			uc.skip(skipped, op, CheckNearbyHarbors, nil)
			return
		}
		callCtx, cancel := withTimeout(ctx, uc.config.ProviderTimeout)
		defer cancel()
		harbors, err := uc.sources.Zones.NearestZones(callCtx, position,
			valueobject.SafeHarborZoneTypes(), uc.config.HarborRadiusKm)
		if err != nil {
			uc.skip(skipped, op, CheckNearbyHarbors, err)
			return
		}
		input.Harbors = harbors
	})

	wg.Go(func() {
		if uc.sources.Weather == nil {
			uc.skip(skipped, op, CheckWeather, nil)
			return
		}
		callCtx, cancel := withTimeout(ctx, uc.config.ProviderTimeout)
		defer cancel()
		weather, err := uc.sources.Weather.CurrentWeather(callCtx, position)
		if err != nil {
			uc.skip(skipped, op, CheckWeather, err)
			return
		}
		input.Weather = weather
	})

	wg.Go(func() {
		if uc.sources.Zones == nil {
			uc.skip(skipped, op, CheckHazardZones, nil)
			return
		}
		callCtx, cancel := withTimeout(ctx, uc.config.ProviderTimeout)
		defer cancel()
		// опасные зоны учитываются все активные, без радиуса
		hazards, err := uc.sources.Zones.ActiveZonesByType(callCtx, valueobject.HazardZoneTypes())
		if err != nil {
			uc.skip(skipped, op, CheckHazardZones, err)
			return
		}
		input.Hazards = hazards
	})

	wg.Wait()
	input.SkippedChecks = skipped.list()

	assessment, err := uc.scorer.AssessLocation(input)
	if err != nil {
		return nil, fmt.Errorf("failed to assess location: %w", err)
	}
	return uc.record(ctx, assessment, started), nil
}
