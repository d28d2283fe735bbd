package sweeper

import "time"

// SeriesOutcome результат оценки одного ряда за цикл
type SeriesOutcome struct {
	VesselID        string    `json:"vesselId"`
	ParameterName   string    `json:"parameterName"`
	Samples         int       `json:"samples"`
	AnomalyDetected bool      `json:"anomalyDetected"`
	AnomalyType     string    `json:"anomalyType,omitempty"`
	Severity        string    `json:"severity,omitempty"`
	Confidence      float64   `json:"confidence"`
	EvaluatedAt     time.Time `json:"evaluatedAt"`
	Error           string    `json:"error,omitempty"`
}

// CycleSummary итог одного прохода sweeper'а
type CycleSummary struct {
	GeneratedAt   time.Time       `json:"generatedAt"`
	Duration      time.Duration   `json:"duration"`
	SeriesTotal   int             `json:"seriesTotal"`
	AnomalyCount  int             `json:"anomalyCount"`
	CriticalCount int             `json:"criticalCount"`
	FailedCount   int             `json:"failedCount"`
	StoredCount   int             `json:"storedCount"`
	PurgedCount   int64           `json:"purgedCount"`
	Outcomes      []SeriesOutcome `json:"outcomes"`
}

// Snapshot состояние Runner'а
type Snapshot struct {
	StartedAt           time.Time     `json:"startedAt"`
	Interval            time.Duration `json:"interval"`
	Running             bool          `json:"running"`
	NextRunAt           time.Time     `json:"nextRunAt,omitzero"`
	LastRunAt           time.Time     `json:"lastRunAt,omitzero"`
	LastSuccessAt       time.Time     `json:"lastSuccessAt,omitzero"`
	ConsecutiveFailures int           `json:"consecutiveFailures"`
	LastError           string        `json:"lastError,omitempty"`
	LastSummary         *CycleSummary `json:"lastSummary,omitempty"`
}
