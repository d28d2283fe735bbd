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

type AnalyzeRouteCommand struct {
	VesselID    string
	Origin      dto.PositionDTO
	Destination dto.PositionDTO
}

// AnalyzeRouteUseCase оценивает переход: погода в средней точке и активные опасные зоны
type AnalyzeRouteUseCase struct {
	safetyRunner
}

func NewAnalyzeRouteUseCase(
	scorer *service.SafetyScorer,
	sources SafetySources,
	sink port.Sink,
	observer port.EvaluationObserver,
	config SafetyConfig,
	logger *logger.Logger,
) *AnalyzeRouteUseCase {
	return &AnalyzeRouteUseCase{safetyRunner: newSafetyRunner(scorer, sources, sink, observer, config, logger)}
}

func (uc *AnalyzeRouteUseCase) Execute(ctx context.Context, cmd AnalyzeRouteCommand) (*dto.SafetyAssessmentDTO, error) {
	started := time.Now()

	origin, err := cmd.Origin.ToPosition()
	if err != nil {
		return nil, fmt.Errorf("%w: origin: %v", service.ErrInvalidInput, err)
	}
	destination, err := cmd.Destination.ToPosition()
	if err != nil {
		return nil, fmt.Errorf("%w: destination: %v", service.ErrInvalidInput, err)
	}

	input := service.RouteInput{
		VesselID:    strings.TrimSpace(cmd.VesselID),
		Origin:      origin,
		Destination: destination,
	}
	skipped := &skipList{}
	const op = "analyze_route"

	var wg sync.WaitGroup

	wg.Go(func() {
		if uc.sources.Weather == nil {
			uc.skip(skipped, op, CheckWeather, nil)
			return
		}
		callCtx, cancel := withTimeout(ctx, uc.config.ProviderTimeout)
		defer cancel()
		weather, err := uc.sources.Weather.CurrentWeather(callCtx, service.RouteMidpoint(origin, destination))
		if err != nil {
			uc.skip(skipped, op, CheckWeather, err)
			return
		}
		input.MidpointWeather = weather
	})

	wg.Go(func() {
		if uc.sources.Zones == nil {
			uc.skip(skipped, op, CheckHazardZones, nil)
			return
		}
		callCtx, cancel := withTimeout(ctx, uc.config.ProviderTimeout)
		defer cancel()
		// глобальная выборка: маршрут штрафуется за каждую активную опасную зону, близость к отрезку не проверяется
		hazards, err := uc.sources.Zones.ActiveZonesByType(callCtx, valueobject.HazardZoneTypes())
		if err != nil {
			uc.skip(skipped, op, CheckHazardZones, err)
			return
		}
		input.Hazards = hazards
	})

	wg.Wait()
	input.SkippedChecks = skipped.list()

	assessment, err := uc.scorer.AnalyzeRoute(input)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze route: %w", err)
	}
	return uc.record(ctx, assessment, started), nil
}
