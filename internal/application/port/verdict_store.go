package port

import (
	"context"
	"time"

	"github.com/dreschagin/vessel-guard/internal/domain/entity"
)

// VerdictListQuery определяет параметры выборки истории вердиктов судна.
type VerdictListQuery struct {
	VesselID      string
	ParameterName string
	Limit         int
	Cursor        string
	From          time.Time
	To            time.Time
}

// VerdictListPage содержит результат выборки и курсор следующей страницы.
type VerdictListPage struct {
	Items      []*entity.AnomalyVerdict
	NextCursor string
}

// VerdictStore определяет интерфейс хранения вердиктов детектора аномалий.
type VerdictStore interface {
	PutVerdict(ctx context.Context, verdict *entity.AnomalyVerdict) error
	ListByVessel(ctx context.Context, query VerdictListQuery) (VerdictListPage, error)
}

// AssessmentRecorder сохраняет результаты оценок безопасности.
type AssessmentRecorder interface {
	SaveAssessment(ctx context.Context, assessment *entity.SafetyAssessment) error
}

// RecommendationRecorder сохраняет рекомендации для экипажа.
type RecommendationRecorder interface {
	SaveRecommendation(ctx context.Context, recommendation *entity.Recommendation) error
}
