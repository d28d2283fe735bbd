// Package alerting реализует Sink: запись результатов движков и рассылку alert'ов
// по всем настроенным каналам (хранилища, NATS, WebSocket, CloudWatch).
package alerting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dreschagin/vessel-guard/internal/application/dto"
	"github.com/dreschagin/vessel-guard/internal/application/port"
	"github.com/dreschagin/vessel-guard/internal/domain/entity"
	"github.com/dreschagin/vessel-guard/internal/domain/valueobject"
	"github.com/dreschagin/vessel-guard/pkg/logger"
	"github.com/google/uuid"
)

// Options каналы доставки. Любой канал может быть nil.
type Options struct {
	Verdicts        port.VerdictStore
	Assessments     port.AssessmentRecorder
	Recommendations port.RecommendationRecorder
	Broker          port.AlertBroker
	Live            port.LiveFeed
	Metrics         port.ScoreRecorder
	Observer        port.EvaluationObserver
	SubjectPrefix   string
}

// Dispatcher раздает результаты по каналам; ошибки каналов объединяются через errors.Join
type Dispatcher struct {
	opts   Options
	logger *logger.Logger
	now    func() time.Time
}

var _ port.Sink = (*Dispatcher)(nil)

func NewDispatcher(opts Options, log *logger.Logger) *Dispatcher {
	opts.SubjectPrefix = strings.Trim(strings.TrimSpace(opts.SubjectPrefix), ".")
	if opts.SubjectPrefix == "" {
		opts.SubjectPrefix = "vessel"
	}
	return &Dispatcher{
		opts:   opts,
		logger: log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// AlertSubject возвращает subject брокера для уровня severity
func (d *Dispatcher) AlertSubject(severity string) string {
	return fmt.Sprintf("%s.alerts.%s", d.opts.SubjectPrefix, severity)
}

func (d *Dispatcher) RecordVerdict(ctx context.Context, verdict *entity.AnomalyVerdict) error {
	var errs []error

	if d.opts.Verdicts != nil {
		if err := d.opts.Verdicts.PutVerdict(ctx, verdict); err != nil {
			errs = append(errs, fmt.Errorf("verdict store: %w", err))
		}
	}

	if d.opts.Live != nil && verdict.AnomalyDetected() {
		d.opts.Live.PushVerdict(dto.FromVerdict(verdict))
	}

	if d.opts.Metrics != nil {
		dims := map[string]string{"Parameter": verdict.ParameterName()}
		if verdict.VesselID() != "" {
			dims["VesselId"] = verdict.VesselID()
		}
		if err := d.opts.Metrics.Record(ctx,
			port.ScoreDatum{Name: "AnomalyConfidence", Value: verdict.ConfidenceScore(), Dimensions: dims, Timestamp: verdict.EvaluatedAt()},
			port.ScoreDatum{Name: "PredictedFailureRisk", Value: verdict.PredictedFailureRisk(), Dimensions: dims, Timestamp: verdict.EvaluatedAt()},
		); err != nil {
			errs = append(errs, fmt.Errorf("metrics: %w", err))
		}
	}

	return errors.Join(errs...)
}

func (d *Dispatcher) RecordAssessment(ctx context.Context, assessment *entity.SafetyAssessment) error {
	var errs []error

	if d.opts.Assessments != nil {
		if err := d.opts.Assessments.SaveAssessment(ctx, assessment); err != nil {
			errs = append(errs, fmt.Errorf("assessment store: %w", err))
		}
	}

	if d.opts.Metrics != nil {
		dims := map[string]string{"AssessmentType": string(assessment.Type())}
		if assessment.VesselID() != "" {
			dims["VesselId"] = assessment.VesselID()
		}
		datum := port.ScoreDatum{
			Name:       "SafetyScore",
			Value:      assessment.SafetyScore(),
			Dimensions: dims,
			Timestamp:  assessment.AssessedAt(),
		}
		if err := d.opts.Metrics.Record(ctx, datum); err != nil {
			errs = append(errs, fmt.Errorf("metrics: %w", err))
		}
	}

	return errors.Join(errs...)
}

func (d *Dispatcher) RecordRecommendation(ctx context.Context, recommendation *entity.Recommendation) error {
	if d.opts.Recommendations == nil || recommendation == nil {
		return nil
	}
	if err := d.opts.Recommendations.SaveRecommendation(ctx, recommendation); err != nil {
		return fmt.Errorf("recommendation store: %w", err)
	}
	return nil
}

// Alert рассылает alert в брокер и подключенным клиентам
func (d *Dispatcher) Alert(ctx context.Context, alert port.Alert) error {
	if err := alert.Severity.Validate(); err != nil {
		return fmt.Errorf("invalid alert: %w", err)
	}
	if alert.ID == "" {
		alert.ID = uuid.New().String()
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = d.now()
	}

	payload := &dto.AlertDTO{
		ID:        alert.ID,
		Timestamp: alert.CreatedAt,
		Level:     alert.Severity.String(),
		Source:    alert.Source,
		VesselID:  alert.VesselID,
		Message:   alert.Message,
		Payload:   alert.Payload,
	}

	var errs []error
	if d.opts.Broker != nil {
		headers := map[string]string{"Alert-Source": alert.Source}
		if alert.VesselID != "" {
			headers["Vessel-Id"] = alert.VesselID
		}
		err := d.opts.Broker.Publish(ctx, port.BrokerMessage{
			Subject:  d.AlertSubject(payload.Level),
			ID:       alert.ID,
			Headers:  headers,
			Body:     payload,
			AwaitAck: alert.Severity.AtLeast(valueobject.SeverityCritical),
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("alert broker: %w", err))
		}
	}
	if d.opts.Live != nil {
		d.opts.Live.PushAlert(payload)
	}
	if d.opts.Observer != nil {
		d.opts.Observer.ObserveAlert(payload.Level)
	}

	if d.logger != nil {
		d.logger.Info("Alert dispatched",
			"alert_id", alert.ID,
			"source", alert.Source,
			"severity", payload.Level,
			"vessel_id", alert.VesselID)
	}

	return errors.Join(errs...)
}
