package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dreschagin/vessel-guard/internal/application/dto"
	"github.com/dreschagin/vessel-guard/internal/application/usecase"
	"github.com/dreschagin/vessel-guard/internal/domain/service"
	"github.com/dreschagin/vessel-guard/pkg/logger"
)

// AnomalyAPIHandler обрабатывает запросы к детектору аномалий
type AnomalyAPIHandler struct {
	evaluateUC     *usecase.EvaluateAnomalyUseCase
	listVerdictsUC *usecase.ListVerdictsUseCase
	profiles       *service.ProfileRegistry
	logger         *logger.Logger
}

// ProfileDTO краткое описание профиля параметра
type ProfileDTO struct {
	Name              string  `json:"name"`
	Unit              string  `json:"unit"`
	RangeLow          float64 `json:"rangeLow"`
	RangeHigh         float64 `json:"rangeHigh"`
	VarianceThreshold float64 `json:"varianceThreshold"`
}

func NewAnomalyAPIHandler(
	evaluateUC *usecase.EvaluateAnomalyUseCase,
	listVerdictsUC *usecase.ListVerdictsUseCase,
	profiles *service.ProfileRegistry,
	logger *logger.Logger,
) *AnomalyAPIHandler {
	return &AnomalyAPIHandler{
		evaluateUC:     evaluateUC,
		listVerdictsUC: listVerdictsUC,
		profiles:       profiles,
		logger:         logger,
	}
}

// Evaluate оценивает окно показаний одного параметра
func (h *AnomalyAPIHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req dto.EvaluateAnomalyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, "evaluate anomaly", err)
		return
	}

	verdict, err := h.evaluateUC.Execute(r.Context(), usecase.EvaluateAnomalyCommand{
		VesselID:      req.VesselID,
		ParameterName: req.ParameterName,
		Samples:       req.Samples,
		Context:       toDeviceContext(req.Context),
	})
	if err != nil {
		writeError(w, r, h.logger, "evaluate anomaly", err)
		return
	}

	WriteJSON(w, http.StatusOK, verdict)
}

// ListVerdicts возвращает историю вердиктов судна постранично
func (h *AnomalyAPIHandler) ListVerdicts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	cmd := usecase.ListVerdictsCommand{
		VesselID:      query.Get("vesselId"),
		ParameterName: query.Get("parameter"),
		Cursor:        query.Get("cursor"),
	}

	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			WriteJSON(w, http.StatusBadRequest, ErrorResponse{Error: "limit must be a non-negative integer"})
			return
		}
		cmd.Limit = limit
	}

	var err error
	if cmd.From, err = parseTimeParam(query.Get("from")); err != nil {
		WriteJSON(w, http.StatusBadRequest, ErrorResponse{Error: "from must be RFC3339"})
		return
	}
	if cmd.To, err = parseTimeParam(query.Get("to")); err != nil {
		WriteJSON(w, http.StatusBadRequest, ErrorResponse{Error: "to must be RFC3339"})
		return
	}

	page, err := h.listVerdictsUC.Execute(r.Context(), cmd)
	if errors.Is(err, usecase.ErrVerdictStoreDisabled) {
		WriteJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		writeError(w, r, h.logger, "list verdicts", err)
		return
	}

	WriteJSON(w, http.StatusOK, page)
}

// Profiles перечисляет известные параметры телеметрии
func (h *AnomalyAPIHandler) Profiles(w http.ResponseWriter, _ *http.Request) {
	names := h.profiles.Names()
	items := make([]ProfileDTO, 0, len(names))
	for _, name := range names {
		profile, _ := h.profiles.Lookup(name)
		items = append(items, ProfileDTO{
			Name:              name,
			Unit:              profile.Unit,
			RangeLow:          profile.Range.Low,
			RangeHigh:         profile.Range.High,
			VarianceThreshold: profile.VarianceThreshold,
		})
	}
	WriteJSON(w, http.StatusOK, items)
}

func toDeviceContext(raw *dto.DeviceContextDTO) *service.DeviceContext {
	if raw == nil {
		return nil
	}
	return &service.DeviceContext{
		RoughWeather:        raw.RoughWeather,
		HighPerformanceMode: raw.HighPerformanceMode,
	}
}

func parseTimeParam(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, raw)
}
