package valueobject

import "fmt"

// AnomalyType is the closed set of verdict classifications.
type AnomalyType string

const (
	AnomalyNone                  AnomalyType = "none"
	AnomalyUnknownParameter      AnomalyType = "unknown_parameter"
	AnomalyOutOfRange            AnomalyType = "out_of_range"
	AnomalyHighVariance          AnomalyType = "high_variance"
	AnomalyMultiple              AnomalyType = "multiple_anomalies"
	AnomalyTrend                 AnomalyType = "trend_anomaly"
	AnomalySuddenRPMDrop         AnomalyType = "sudden_rpm_drop"
	AnomalyLowOilPressure        AnomalyType = "low_oil_pressure"
	AnomalyEngineOverheating     AnomalyType = "engine_overheating"
	AnomalyChargingSystemFailure AnomalyType = "charging_system_failure"
	AnomalyHistoricalDeviation   AnomalyType = "historical_deviation"
)

func (t AnomalyType) Validate() error {
	switch t {
	case AnomalyNone, AnomalyUnknownParameter, AnomalyOutOfRange, AnomalyHighVariance,
		AnomalyMultiple, AnomalyTrend, AnomalySuddenRPMDrop, AnomalyLowOilPressure,
		AnomalyEngineOverheating, AnomalyChargingSystemFailure, AnomalyHistoricalDeviation:
		return nil
	default:
		return fmt.Errorf("invalid anomaly type %q", string(t))
	}
}

func (t AnomalyType) String() string {
	return string(t)
}

// IsPattern reports whether the type comes from a parameter-specific failure rule.
func (t AnomalyType) IsPattern() bool {
	switch t {
	case AnomalySuddenRPMDrop, AnomalyLowOilPressure, AnomalyEngineOverheating, AnomalyChargingSystemFailure:
		return true
	default:
		return false
	}
}
