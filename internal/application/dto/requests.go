package dto

// EvaluateAnomalyRequest запрос на оценку окна сигнала
type EvaluateAnomalyRequest struct {
	VesselID      string            `json:"vesselId"`
	ParameterName string            `json:"parameterName"`
	Samples       []float64         `json:"samples"`
	Context       *DeviceContextDTO `json:"context,omitempty"`
}

// AssessLocationRequest запрос оценки местоположения.
// Координаты указателями: отсутствие поля отличается от нуля.
type AssessLocationRequest struct {
	VesselID  string   `json:"vesselId"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// AnalyzeRouteRequest запрос анализа маршрута
type AnalyzeRouteRequest struct {
	VesselID    string       `json:"vesselId"`
	Origin      *PositionDTO `json:"origin"`
	Destination *PositionDTO `json:"destination"`
}

// EmergencyRequest сигнал бедствия
type EmergencyRequest struct {
	VesselID      string   `json:"vesselId"`
	EmergencyType string   `json:"emergencyType"`
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
}
