package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dreschagin/vessel-guard/internal/application/dto"
	"github.com/dreschagin/vessel-guard/internal/application/port"
	"github.com/dreschagin/vessel-guard/internal/domain/entity"
	"github.com/dreschagin/vessel-guard/internal/domain/service"
	"github.com/dreschagin/vessel-guard/internal/domain/valueobject"
	"github.com/dreschagin/vessel-guard/pkg/logger"
)

// EvaluateAnomalyCommand окно показаний одного параметра
type EvaluateAnomalyCommand struct {
	VesselID      string
	ParameterName string
	Samples       []float64
	Context       *service.DeviceContext
}

type EvaluateAnomalyConfig struct {
	ProviderTimeout    time.Duration
	BaselineWindowDays int
}

// EvaluateAnomalyUseCase получает историческую базу, запускает детектор
// и передает вердикт в sink (запись + эскалация)
type EvaluateAnomalyUseCase struct {
	detector *service.AnomalyDetector
	history  port.HistoricalContextProvider
	sink     port.Sink
	observer port.EvaluationObserver
	config   EvaluateAnomalyConfig
	logger   *logger.Logger
}

// NewEvaluateAnomalyUseCase создает новый use case.
// history, sink и observer могут быть nil.
func NewEvaluateAnomalyUseCase(
	detector *service.AnomalyDetector,
	history port.HistoricalContextProvider,
	sink port.Sink,
	observer port.EvaluationObserver,
	config EvaluateAnomalyConfig,
	logger *logger.Logger,
) *EvaluateAnomalyUseCase {
	if config.BaselineWindowDays <= 0 {
		config.BaselineWindowDays = 30
	}
	return &EvaluateAnomalyUseCase{
		detector: detector,
		history:  history,
		sink:     sinkOrDiscard(sink),
		observer: observerOrNoop(observer),
		config:   config,
		logger:   logger,
	}
}

// Execute выполняет оценку и возвращает DTO
func (uc *EvaluateAnomalyUseCase) Execute(ctx context.Context, cmd EvaluateAnomalyCommand) (*dto.AnomalyVerdictDTO, error) {
	verdict, err := uc.Evaluate(ctx, cmd)
	if err != nil {
		return nil, err
	}
	return dto.FromVerdict(verdict), nil
}

// Evaluate выполняет оценку и возвращает вердикт
func (uc *EvaluateAnomalyUseCase) Evaluate(ctx context.Context, cmd EvaluateAnomalyCommand) (*entity.AnomalyVerdict, error) {
	started := time.Now()
	name := strings.TrimSpace(cmd.ParameterName)

	input := service.AnomalyInput{
		VesselID:      strings.TrimSpace(cmd.VesselID),
		ParameterName: name,
		Samples:       cmd.Samples,
		Context:       cmd.Context,
	}

	if uc.shouldFetchBaseline(input) {
		baseline, err := uc.fetchBaseline(ctx, input.VesselID, name)
		if err != nil {
			uc.logger.Warn("Historical baseline unavailable, evaluating without it",
				"vessel_id", input.VesselID,
				"parameter", name,
				"error", err.Error())
			input.BaselineUnavailable = true
			uc.observer.ObserveSkippedCheck("anomaly", service.CheckHistorical)
		} else {
			input.Baseline = baseline
		}
	}

	verdict, err := uc.detector.Evaluate(input)
	if err != nil {
		return nil, err
	}

	uc.observer.ObserveVerdict(name, verdict.AnomalyType().String(), verdict.Severity().String(),
		time.Since(started).Seconds())
	uc.logger.Debug("Anomaly evaluation completed",
		"vessel_id", input.VesselID,
		"parameter", name,
		"anomaly_type", verdict.AnomalyType(),
		"severity", verdict.Severity(),
		"confidence", verdict.ConfidenceScore())

	uc.publish(ctx, verdict)
	return verdict, nil
}

func (uc *EvaluateAnomalyUseCase) shouldFetchBaseline(in service.AnomalyInput) bool {
	if uc.history == nil || in.VesselID == "" || in.ParameterName == "" || len(in.Samples) == 0 {
		return false
	}
	_, known := uc.detector.Profiles().Lookup(in.ParameterName)
	return known
}

func (uc *EvaluateAnomalyUseCase) fetchBaseline(ctx context.Context, vesselID, name string) (*valueobject.HistoricalBaseline, error) {
	callCtx, cancel := withTimeout(ctx, uc.config.ProviderTimeout)
	defer cancel()
	return uc.history.GetBaseline(callCtx, vesselID, name, uc.config.BaselineWindowDays)
}

// publish передает вердикт в sink; ошибки записи только логируются
func (uc *EvaluateAnomalyUseCase) publish(ctx context.Context, verdict *entity.AnomalyVerdict) {
	ctx = context.WithoutCancel(ctx)

	if err := uc.sink.RecordVerdict(ctx, verdict); err != nil {
		uc.logger.Error("Failed to record anomaly verdict", err, "verdict_id", verdict.ID())
	}

	if !verdict.RequiresAlert() {
		return
	}

	alert := port.Alert{
		Source:   "anomaly_engine",
		VesselID: verdict.VesselID(),
		Severity: verdict.Severity(),
		Message: fmt.Sprintf("%s %s on %s (confidence %.2f, failure risk %.2f)",
			verdict.Severity(), verdict.AnomalyType(), verdict.ParameterName(),
			verdict.ConfidenceScore(), verdict.PredictedFailureRisk()),
		Payload:   dto.FromVerdict(verdict),
		CreatedAt: verdict.EvaluatedAt(),
	}
	if err := uc.sink.Alert(ctx, alert); err != nil {
		uc.logger.Error("Failed to dispatch anomaly alert", err, "verdict_id", verdict.ID())
		return
	}
	uc.logger.Warn("Anomaly alert raised",
		"vessel_id", verdict.VesselID(),
		"parameter", verdict.ParameterName(),
		"severity", verdict.Severity())
}
