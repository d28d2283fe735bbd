package dto

import "time"

// TelemetryReadingDTO одно входящее показание датчика
type TelemetryReadingDTO struct {
	ParameterName string                 `json:"parameterName"`
	Value         float64                `json:"value"`
	Unit          string                 `json:"unit"`
	RecordedAt    time.Time              `json:"recordedAt"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

// TelemetryBatchDTO пакет показаний одного судна
type TelemetryBatchDTO struct {
	VesselID string                `json:"vesselId"`
	Readings []TelemetryReadingDTO `json:"readings"`
	Context  *DeviceContextDTO     `json:"context,omitempty"`
}

// DeviceContextDTO условия эксплуатации
type DeviceContextDTO struct {
	RoughWeather        bool `json:"roughWeather"`
	HighPerformanceMode bool `json:"highPerformanceMode"`
}

// IngestResultDTO результат приема пакета
type IngestResultDTO struct {
	Accepted int                  `json:"accepted"`
	Rejected int                  `json:"rejected"`
	Errors   []string             `json:"errors,omitempty"`
	Verdicts []*AnomalyVerdictDTO `json:"verdicts"`
}

// ReadingPointDTO точка временного ряда
type ReadingPointDTO struct {
	Value      float64   `json:"value"`
	Unit       string    `json:"unit"`
	RecordedAt time.Time `json:"recordedAt"`
}

// SeriesHistoryDTO представляет исторические данные ряда с агрегатами
type SeriesHistoryDTO struct {
	VesselID      string            `json:"vesselId"`
	ParameterName string            `json:"parameterName"`
	Points        []ReadingPointDTO `json:"points"`
	Count         int               `json:"count"`
	Min           float64           `json:"min"`
	Max           float64           `json:"max"`
	Mean          float64           `json:"mean"`
	P95           float64           `json:"p95"`
}
