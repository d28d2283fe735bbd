package handler

import (
	"net/http"

	"github.com/dreschagin/vessel-guard/internal/application/dto"
	"github.com/dreschagin/vessel-guard/internal/application/usecase"
	"github.com/dreschagin/vessel-guard/pkg/logger"
)

// SafetyAPIHandler обрабатывает запросы к движку безопасности
type SafetyAPIHandler struct {
	assessLocationUC  *usecase.AssessLocationUseCase
	analyzeRouteUC    *usecase.AnalyzeRouteUseCase
	checkEquipmentUC  *usecase.CheckEquipmentUseCase
	handleEmergencyUC *usecase.HandleEmergencyUseCase
	logger            *logger.Logger
}

func NewSafetyAPIHandler(
	assessLocationUC *usecase.AssessLocationUseCase,
	analyzeRouteUC *usecase.AnalyzeRouteUseCase,
	checkEquipmentUC *usecase.CheckEquipmentUseCase,
	handleEmergencyUC *usecase.HandleEmergencyUseCase,
	logger *logger.Logger,
) *SafetyAPIHandler {
	return &SafetyAPIHandler{
		assessLocationUC:  assessLocationUC,
		analyzeRouteUC:    analyzeRouteUC,
		checkEquipmentUC:  checkEquipmentUC,
		handleEmergencyUC: handleEmergencyUC,
		logger:            logger,
	}
}

func (h *SafetyAPIHandler) AssessLocation(w http.ResponseWriter, r *http.Request) {
	var req dto.AssessLocationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, "assess location", err)
		return
	}
	if req.Latitude == nil || req.Longitude == nil {
		WriteJSON(w, http.StatusBadRequest, ErrorResponse{Error: "latitude and longitude are required"})
		return
	}

	assessment, err := h.assessLocationUC.Execute(r.Context(), usecase.AssessLocationCommand{
		VesselID:  req.VesselID,
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
	})
	if err != nil {
		writeError(w, r, h.logger, "assess location", err)
		return
	}
	WriteJSON(w, http.StatusOK, assessment)
}

func (h *SafetyAPIHandler) AnalyzeRoute(w http.ResponseWriter, r *http.Request) {
	var req dto.AnalyzeRouteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, "analyze route", err)
		return
	}
	if req.Origin == nil || req.Destination == nil {
		WriteJSON(w, http.StatusBadRequest, ErrorResponse{Error: "origin and destination are required"})
		return
	}

	assessment, err := h.analyzeRouteUC.Execute(r.Context(), usecase.AnalyzeRouteCommand{
		VesselID:    req.VesselID,
		Origin:      *req.Origin,
		Destination: *req.Destination,
	})
	if err != nil {
		writeError(w, r, h.logger, "analyze route", err)
		return
	}
	WriteJSON(w, http.StatusOK, assessment)
}

// CheckEquipment GET ?vesselId=
func (h *SafetyAPIHandler) CheckEquipment(w http.ResponseWriter, r *http.Request) {
	assessment, err := h.checkEquipmentUC.Execute(r.Context(), r.URL.Query().Get("vesselId"))
	if err != nil {
		writeError(w, r, h.logger, "check equipment", err)
		return
	}
	WriteJSON(w, http.StatusOK, assessment)
}

func (h *SafetyAPIHandler) HandleEmergency(w http.ResponseWriter, r *http.Request) {
	var req dto.EmergencyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, "handle emergency", err)
		return
	}
	if req.Latitude == nil || req.Longitude == nil {
		WriteJSON(w, http.StatusBadRequest, ErrorResponse{Error: "latitude and longitude are required"})
		return
	}

	response, err := h.handleEmergencyUC.Execute(r.Context(), usecase.HandleEmergencyCommand{
		VesselID:      req.VesselID,
		EmergencyType: req.EmergencyType,
		Latitude:      *req.Latitude,
		Longitude:     *req.Longitude,
	})
	if err != nil {
		writeError(w, r, h.logger, "handle emergency", err)
		return
	}
	WriteJSON(w, http.StatusOK, response)
}
