package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dreschagin/vessel-guard/internal/application/dto"
	"github.com/dreschagin/vessel-guard/internal/application/port"
	"github.com/dreschagin/vessel-guard/internal/domain/entity"
	"github.com/lib/pq"
)

// RecordRepository сохраняет оценки безопасности и рекомендации экипажу
type RecordRepository struct {
	db *sql.DB
}

var (
	_ port.AssessmentRecorder     = (*RecordRepository)(nil)
	_ port.RecommendationRecorder = (*RecordRepository)(nil)
)

func NewRecordRepository(db *sql.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

// SaveAssessment сохраняет оценку; детали (погода, маршрут, оборудование) хранятся в JSONB
func (r *RecordRepository) SaveAssessment(ctx context.Context, assessment *entity.SafetyAssessment) error {
	details, err := json.Marshal(dto.FromAssessment(assessment))
	if err != nil {
		return fmt.Errorf("failed to encode assessment details: %w", err)
	}

	var lat, lon sql.NullFloat64
	if p := assessment.Position(); p != nil {
		lat = sql.NullFloat64{Float64: p.Latitude(), Valid: true}
		lon = sql.NullFloat64{Float64: p.Longitude(), Valid: true}
	}

	var vesselID sql.NullString
	if assessment.VesselID() != "" {
		vesselID = sql.NullString{String: assessment.VesselID(), Valid: true}
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO safety_assessments
			(id, vessel_id, assessment_type, latitude, longitude, safety_score, risk_level,
			 recommendations, skipped_checks, details, assessed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		assessment.ID(),
		vesselID,
		string(assessment.Type()),
		lat,
		lon,
		assessment.SafetyScore(),
		assessment.RiskLevel().String(),
		pq.Array(assessment.Recommendations()),
		pq.Array(assessment.SkippedChecks()),
		details,
		assessment.AssessedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert safety assessment: %w", err)
	}
	return nil
}

// SaveRecommendation сохраняет рекомендацию экипажу
func (r *RecordRepository) SaveRecommendation(ctx context.Context, rec *entity.Recommendation) error {
	var metadata []byte
	if len(rec.Metadata) > 0 {
		var err error
		if metadata, err = json.Marshal(rec.Metadata); err != nil {
			return fmt.Errorf("failed to encode recommendation metadata: %w", err)
		}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO recommendations
			(id, vessel_id, recommendation_type, priority, title, description,
			 time_sensitivity_hours, expires_at, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		rec.ID,
		rec.VesselID,
		rec.RecommendationType,
		rec.Priority,
		rec.Title,
		rec.Description,
		rec.TimeSensitivityHours,
		rec.ExpiresAt,
		metadata,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert recommendation: %w", err)
	}
	return nil
}
