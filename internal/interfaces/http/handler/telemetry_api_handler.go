package handler

import (
	"net/http"
	"time"

	"github.com/dreschagin/vessel-guard/internal/application/dto"
	"github.com/dreschagin/vessel-guard/internal/application/usecase"
	"github.com/dreschagin/vessel-guard/internal/domain/repository"
	"github.com/dreschagin/vessel-guard/internal/domain/valueobject"
	"github.com/dreschagin/vessel-guard/pkg/logger"
)

// TelemetryAPIHandler обрабатывает прием показаний и историю рядов
type TelemetryAPIHandler struct {
	ingestUC    *usecase.IngestTelemetryUseCase
	historyUC   *usecase.GetSeriesHistoryUseCase
	maxDuration time.Duration
	logger      *logger.Logger
}

// NewTelemetryAPIHandler создает новый handler
func NewTelemetryAPIHandler(
	ingestUC *usecase.IngestTelemetryUseCase,
	historyUC *usecase.GetSeriesHistoryUseCase,
	maxDuration time.Duration,
	logger *logger.Logger,
) *TelemetryAPIHandler {
	if maxDuration <= 0 {
		maxDuration = 7 * 24 * time.Hour
	}

	return &TelemetryAPIHandler{
		ingestUC:    ingestUC,
		historyUC:   historyUC,
		maxDuration: maxDuration,
		logger:      logger,
	}
}

// Ingest принимает пакет показаний и возвращает вердикты затронутых рядов
func (h *TelemetryAPIHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var batch dto.TelemetryBatchDTO
	if err := decodeJSON(w, r, &batch); err != nil {
		writeError(w, r, h.logger, "ingest telemetry", err)
		return
	}

	result, err := h.ingestUC.Execute(r.Context(), usecase.IngestTelemetryCommand{
		VesselID: batch.VesselID,
		Readings: batch.Readings,
		Context:  toDeviceContext(batch.Context),
	})
	if err != nil {
		writeError(w, r, h.logger, "ingest telemetry", err)
		return
	}

	status := http.StatusAccepted
	if result.Accepted == 0 {
		status = http.StatusUnprocessableEntity
	}
	WriteJSON(w, status, result)
}

// History возвращает показания ряда за последний duration
func (h *TelemetryAPIHandler) History(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	vesselID := query.Get("vesselId")
	parameter := query.Get("parameter")
	durationStr := query.Get("duration")

	if vesselID == "" || parameter == "" || durationStr == "" {
		http.Error(w, "Missing required parameters: vesselId, parameter, duration", http.StatusBadRequest)
		return
	}

	duration, err := time.ParseDuration(durationStr)
	if err != nil {
		http.Error(w, "Invalid duration format", http.StatusBadRequest)
		return
	}
	window, err := valueobject.Lookback(time.Now(), duration)
	if err != nil || window.Exceeds(h.maxDuration) {
		http.Error(w, "Duration out of allowed range", http.StatusBadRequest)
		return
	}

	history, err := h.historyUC.Execute(r.Context(), repository.SeriesKey{
		VesselID:      vesselID,
		ParameterName: parameter,
	}, window)
	if err != nil {
		writeError(w, r, h.logger, "fetch series history", err)
		return
	}

	WriteJSON(w, http.StatusOK, history)
}
