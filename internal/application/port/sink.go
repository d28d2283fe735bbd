package port

import (
	"context"
	"time"

	"github.com/dreschagin/vessel-guard/internal/domain/entity"
	"github.com/dreschagin/vessel-guard/internal/domain/valueobject"
)

// Alert событие эскалации для внешних каналов
type Alert struct {
	ID        string
	Source    string
	VesselID  string
	Severity  valueobject.Severity
	Message   string
	Payload   interface{}
	CreatedAt time.Time
}

// Sink принимает результаты движков: запись и алертинг.
// Ошибки Sink не должны менять результат, возвращаемый вызывающему.
type Sink interface {
	RecordVerdict(ctx context.Context, verdict *entity.AnomalyVerdict) error
	RecordAssessment(ctx context.Context, assessment *entity.SafetyAssessment) error
	RecordRecommendation(ctx context.Context, recommendation *entity.Recommendation) error
	Alert(ctx context.Context, alert Alert) error
}
