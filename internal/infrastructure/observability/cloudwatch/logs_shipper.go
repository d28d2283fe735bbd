package cloudwatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"

	"github.com/dreschagin/vessel-guard/internal/application/port"
)

const (
	maxLogEventsPerRequest = 10000
	maxLogBatchBytes       = 1048576
	maxLogEventSize        = 256000
	// накладные расходы CloudWatch Logs на одно событие при подсчете размера пачки
	logEventOverhead = 26
)

// LogsShipperConfig параметры отправки журнала в CloudWatch Logs
type LogsShipperConfig struct {
	LogGroupName    string
	LogStreamName   string
	Region          string
	Endpoint        string // LocalStack
	AccessKeyID     string
	SecretAccessKey string

	QueueSize     int // 0 = 8 * BatchSize
	BatchSize     int // при таком числе записей в очереди отправка не ждет тика
	FlushInterval time.Duration

	AutoCreate    bool
	RetentionDays int32  // только для созданной группы, 0 = бессрочно
	Service       string // vessel-guard-api, telemetry-sweeper
}

type logsAPI interface {
	PutLogEvents(ctx context.Context, params *cloudwatchlogs.PutLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutLogEventsOutput, error)
	CreateLogGroup(ctx context.Context, params *cloudwatchlogs.CreateLogGroupInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogGroupOutput, error)
	CreateLogStream(ctx context.Context, params *cloudwatchlogs.CreateLogStreamInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogStreamOutput, error)
	PutRetentionPolicy(ctx context.Context, params *cloudwatchlogs.PutRetentionPolicyInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutRetentionPolicyOutput, error)
}

// поднимаются из fields на верхний уровень события для Logs Insights
var promotedFields = []string{"vessel_id", "parameter", "assessment_type", "severity", "status"}

// LogsShipper очередь записей журнала с фоновой отправкой пачками.
// Enqueue никогда не блокирует логгер: при полной очереди запись теряется.
type LogsShipper struct {
	client  logsAPI
	group   string
	stream  string
	service string

	queue     chan port.LogRecord
	batchSize int
	kick      chan struct{}
	dropped   atomic.Int64

	// sendMu сериализует PutLogEvents: от него зависит sequenceToken
	sendMu        sync.Mutex
	sequenceToken *string

	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

var _ port.LogSink = (*LogsShipper)(nil)

// NewLogsShipper создает группу и поток (если AutoCreate) и запускает фоновую отправку
func NewLogsShipper(ctx context.Context, cfg LogsShipperConfig) (*LogsShipper, error) {
	switch {
	case cfg.LogGroupName == "":
		return nil, errors.New("log group name is required")
	case cfg.LogStreamName == "":
		return nil, errors.New("log stream name is required")
	case cfg.Region == "":
		return nil, errors.New("region is required")
	}

	awsCfg, err := buildAWSConfig(ctx, cfg.Region, cfg.Endpoint, cfg.AccessKeyID, cfg.SecretAccessKey)
	if err != nil {
		return nil, fmt.Errorf("failed to build AWS config: %w", err)
	}

	s := newLogsShipper(cloudwatchlogs.NewFromConfig(awsCfg), cfg)
	if cfg.AutoCreate {
		if err := s.ensureDestination(ctx, cfg.RetentionDays); err != nil {
			return nil, err
		}
	}

	go s.run()
	return s, nil
}

func newLogsShipper(client logsAPI, cfg LogsShipperConfig) *LogsShipper {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 8 * cfg.BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 5 * time.Second
	}
	return &LogsShipper{
		client:    client,
		group:     cfg.LogGroupName,
		stream:    cfg.LogStreamName,
		service:   cfg.Service,
		queue:     make(chan port.LogRecord, cfg.QueueSize),
		batchSize: cfg.BatchSize,
		kick:      make(chan struct{}, 1),
		interval:  cfg.FlushInterval,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func (s *LogsShipper) Enqueue(record port.LogRecord) bool {
	select {
	case s.queue <- record:
	default:
		s.dropped.Add(1)
		return false
	}
	if len(s.queue) >= s.batchSize {
		select {
		case s.kick <- struct{}{}:
		default:
		}
	}
	return true
}

// Dropped число записей, потерянных из-за переполнения очереди или сбоя отправки
func (s *LogsShipper) Dropped() int64 { return s.dropped.Load() }

// Flush забирает все, что сейчас в очереди, и отправляет.
// Записи неудачной пачки учитываются в Dropped.
func (s *LogsShipper) Flush(ctx context.Context) error {
	records := s.drain()
	if len(records) == 0 {
		return nil
	}

	sort.SliceStable(records, func(i, j int) bool { return records[i].Time.Before(records[j].Time) })
	events := make([]types.InputLogEvent, 0, len(records))
	for _, record := range records {
		event, err := s.toEvent(record)
		if err != nil {
			s.dropped.Add(1)
			continue
		}
		events = append(events, event)
	}

	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	for _, batch := range splitLogBatches(events) {
		if err := s.put(ctx, batch); err != nil {
			s.dropped.Add(int64(len(batch)))
			return fmt.Errorf("failed to ship %d log events: %w", len(batch), err)
		}
	}
	return nil
}

// Close останавливает фоновую отправку и досылает остаток
func (s *LogsShipper) Close(ctx context.Context) error {
	close(s.stop)
	<-s.done
	return s.Flush(ctx)
}

func (s *LogsShipper) run() {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
		case <-s.kick:
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		// через логгер ошибку не пишем: запись вернулась бы в эту же очередь
		_ = s.Flush(ctx)
		cancel()
	}
}

func (s *LogsShipper) drain() []port.LogRecord {
	var records []port.LogRecord
	for {
		select {
		case record := <-s.queue:
			records = append(records, record)
		default:
			return records
		}
	}
}

// splitLogBatches режет события по лимитам PutLogEvents: число и суммарный размер
func splitLogBatches(events []types.InputLogEvent) [][]types.InputLogEvent {
	var batches [][]types.InputLogEvent
	start, size := 0, 0
	for i, event := range events {
		eventSize := len(aws.ToString(event.Message)) + logEventOverhead
		if i > start && (i-start == maxLogEventsPerRequest || size+eventSize > maxLogBatchBytes) {
			batches = append(batches, events[start:i])
			start, size = i, 0
		}
		size += eventSize
	}
	if start < len(events) {
		batches = append(batches, events[start:])
	}
	return batches
}

func (s *LogsShipper) put(ctx context.Context, events []types.InputLogEvent) error {
	backoff := initialBackoff
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		out, err := s.client.PutLogEvents(ctx, &cloudwatchlogs.PutLogEventsInput{
			LogGroupName:  aws.String(s.group),
			LogStreamName: aws.String(s.stream),
			LogEvents:     events,
			SequenceToken: s.sequenceToken,
		})
		if err == nil {
			s.sequenceToken = out.NextSequenceToken
			return nil
		}

		var badToken *types.InvalidSequenceTokenException
		if errors.As(err, &badToken) {
			s.sequenceToken = badToken.ExpectedSequenceToken
			continue
		}
		lastErr = err

		if attempt < maxRetries-1 {
			select {
			case <-time.After(backoff):
				backoff *= 2
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	if lastErr == nil {
		lastErr = errors.New("sequence token kept changing")
	}
	return fmt.Errorf("failed after %d attempts: %w", maxRetries, lastErr)
}

// logEvent JSON-форма события в CloudWatch Logs
type logEvent struct {
	Timestamp string         `json:"timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Service   string         `json:"service,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	Promoted  map[string]any `json:"-"`
	Fields    map[string]any `json:"fields,omitempty"`
}

func (e logEvent) MarshalJSON() ([]byte, error) {
	type plain logEvent
	raw, err := json.Marshal(plain(e))
	if err != nil || len(e.Promoted) == 0 {
		return raw, err
	}
	merged := make(map[string]json.RawMessage, 8)
	if err := json.Unmarshal(raw, &merged); err != nil {
		return nil, err
	}
	for key, value := range e.Promoted {
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		merged[key] = encoded
	}
	return json.Marshal(merged)
}

func (s *LogsShipper) toEvent(record port.LogRecord) (types.InputLogEvent, error) {
	event := logEvent{
		Timestamp: record.Time.UTC().Format(time.RFC3339Nano),
		Level:     string(record.Level),
		Message:   record.Message,
		Service:   s.service,
		RequestID: record.RequestID,
		Fields:    record.Fields,
	}
	for _, key := range promotedFields {
		if v, ok := record.Fields[key]; ok {
			if event.Promoted == nil {
				event.Promoted = make(map[string]any, len(promotedFields))
			}
			event.Promoted[key] = v
		}
	}

	raw, err := json.Marshal(event)
	if err != nil {
		return types.InputLogEvent{}, fmt.Errorf("failed to encode log record: %w", err)
	}
	message := string(raw)
	if len(message) > maxLogEventSize {
		message = message[:maxLogEventSize-3] + "..."
	}
	return types.InputLogEvent{
		Message:   aws.String(message),
		Timestamp: aws.Int64(record.Time.UnixMilli()),
	}, nil
}

// ensureDestination создает группу и поток; уже существующие не ошибка
func (s *LogsShipper) ensureDestination(ctx context.Context, retentionDays int32) error {
	var exists *types.ResourceAlreadyExistsException

	_, err := s.client.CreateLogGroup(ctx, &cloudwatchlogs.CreateLogGroupInput{LogGroupName: aws.String(s.group)})
	switch {
	case err == nil && retentionDays > 0:
		if _, err := s.client.PutRetentionPolicy(ctx, &cloudwatchlogs.PutRetentionPolicyInput{
			LogGroupName:    aws.String(s.group),
			RetentionInDays: aws.Int32(retentionDays),
		}); err != nil {
			return fmt.Errorf("failed to set log retention: %w", err)
		}
	case err != nil && !errors.As(err, &exists):
		return fmt.Errorf("failed to create log group %s: %w", s.group, err)
	}

	_, err = s.client.CreateLogStream(ctx, &cloudwatchlogs.CreateLogStreamInput{
		LogGroupName:  aws.String(s.group),
		LogStreamName: aws.String(s.stream),
	})
	if err != nil && !errors.As(err, &exists) {
		return fmt.Errorf("failed to create log stream %s: %w", s.stream, err)
	}
	return nil
}
