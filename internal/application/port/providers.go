package port

import (
	"context"

	"github.com/dreschagin/vessel-guard/internal/domain/entity"
	"github.com/dreschagin/vessel-guard/internal/domain/valueobject"
)

// HistoricalContextProvider возвращает статистику ряда за последние windowDays дней.
// nil без ошибки означает, что истории нет.
type HistoricalContextProvider interface {
	GetBaseline(ctx context.Context, vesselID, parameterName string, windowDays int) (*valueobject.HistoricalBaseline, error)
}

// WeatherProvider возвращает текущую погоду в точке с рассчитанным safety score.
type WeatherProvider interface {
	CurrentWeather(ctx context.Context, position valueobject.Position) (*entity.WeatherSnapshot, error)
}

// EvaluationObserver собирает метрики процесса (Prometheus).
type EvaluationObserver interface {
	ObserveVerdict(parameterName string, anomalyType, severity string, seconds float64)
	ObserveAssessment(assessmentType, riskLevel string, seconds float64)
	ObserveSkippedCheck(operation, check string)
	ObserveAlert(severity string)
}
