package cloudwatch

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/dreschagin/vessel-guard/internal/application/port"
	"github.com/dreschagin/vessel-guard/pkg/logger"
)

const maxMetricsPerRequest = 1000

// ScorePublisherConfig параметры отправки баллов в CloudWatch Metrics
type ScorePublisherConfig struct {
	Namespace         string
	Region            string
	Endpoint          string
	AccessKeyID       string
	SecretAccessKey   string
	DefaultDimensions map[string]string

	// Period ширина бакета агрегации; точки одного ряда внутри бакета
	// уходят одним StatisticSet
	Period time.Duration
	// MaxSeries число накопленных рядов, при котором отправка не ждет тика
	MaxSeries         int
	FlushInterval     time.Duration
	StorageResolution int32 // 1 или 60
}

type putMetricDataAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

type seriesKey struct {
	name   string
	dims   string
	bucket int64
}

// aggregate статистика одного ряда за бакет
type aggregate struct {
	name   string
	unit   types.StandardUnit
	dims   []types.Dimension
	bucket time.Time
	count  float64
	sum    float64
	min    float64
	max    float64
}

func (a *aggregate) add(value float64) {
	if a.count == 0 {
		a.min, a.max = value, value
	} else {
		a.min = math.Min(a.min, value)
		a.max = math.Max(a.max, value)
	}
	a.count++
	a.sum += value
}

func (a *aggregate) merge(other *aggregate) {
	if a.count == 0 {
		a.min, a.max = other.min, other.max
	} else {
		a.min = math.Min(a.min, other.min)
		a.max = math.Max(a.max, other.max)
	}
	a.count += other.count
	a.sum += other.sum
}

// ScorePublisher сворачивает баллы в статистики по (метрика, измерения, бакет)
// и периодически отправляет их PutMetricData.
// Ряды с VesselId не раздувают число запросов: на судно уходит одна точка в бакет.
type ScorePublisher struct {
	client     putMetricDataAPI
	namespace  string
	defaults   map[string]string
	period     time.Duration
	maxSeries  int
	resolution int32
	logger     *logger.Logger
	now        func() time.Time

	mu      sync.Mutex
	pending map[seriesKey]*aggregate
	kick    chan struct{}

	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

var _ port.ScoreRecorder = (*ScorePublisher)(nil)

func NewScorePublisher(ctx context.Context, cfg ScorePublisherConfig, log *logger.Logger) (*ScorePublisher, error) {
	if cfg.Namespace == "" {
		return nil, errors.New("namespace is required")
	}
	if cfg.Region == "" {
		return nil, errors.New("region is required")
	}

	awsCfg, err := buildAWSConfig(ctx, cfg.Region, cfg.Endpoint, cfg.AccessKeyID, cfg.SecretAccessKey)
	if err != nil {
		return nil, fmt.Errorf("failed to build AWS config: %w", err)
	}

	p := newScorePublisher(cloudwatch.NewFromConfig(awsCfg), cfg, log)
	go p.run()
	return p, nil
}

func newScorePublisher(client putMetricDataAPI, cfg ScorePublisherConfig, log *logger.Logger) *ScorePublisher {
	if cfg.Period <= 0 {
		cfg.Period = time.Minute
	}
	if cfg.MaxSeries <= 0 {
		cfg.MaxSeries = 500
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 10 * time.Second
	}
	if cfg.StorageResolution != 1 {
		cfg.StorageResolution = 60
	}
	return &ScorePublisher{
		client:     client,
		namespace:  cfg.Namespace,
		defaults:   cfg.DefaultDimensions,
		period:     cfg.Period,
		maxSeries:  cfg.MaxSeries,
		resolution: cfg.StorageResolution,
		logger:     log,
		now:        time.Now,
		pending:    make(map[seriesKey]*aggregate),
		kick:       make(chan struct{}, 1),
		interval:   cfg.FlushInterval,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Record добавляет точки в текущие бакеты; точка без имени или с NaN отвергается целиком
func (p *ScorePublisher) Record(_ context.Context, data ...port.ScoreDatum) error {
	for _, datum := range data {
		if datum.Name == "" {
			return errors.New("metric name is required")
		}
		if math.IsNaN(datum.Value) || math.IsInf(datum.Value, 0) {
			return fmt.Errorf("metric %s: value is not finite", datum.Name)
		}
	}

	p.mu.Lock()
	for _, datum := range data {
		at := datum.Timestamp
		if at.IsZero() {
			at = p.now()
		}
		bucket := at.UTC().Truncate(p.period)
		dims := p.dimensions(datum.Dimensions)
		key := seriesKey{name: datum.Name, dims: canonicalDims(dims), bucket: bucket.Unix()}

		agg, ok := p.pending[key]
		if !ok {
			agg = &aggregate{name: datum.Name, unit: mapUnit(datum.Unit), dims: dims, bucket: bucket}
			p.pending[key] = agg
		}
		agg.add(datum.Value)
	}
	full := len(p.pending) >= p.maxSeries
	p.mu.Unlock()

	if full {
		select {
		case p.kick <- struct{}{}:
		default:
		}
	}
	return nil
}

// Flush отправляет накопленные статистики. Неотправленное возвращается
// в буфер и уйдет со следующей попыткой.
func (p *ScorePublisher) Flush(ctx context.Context) error {
	p.mu.Lock()
	batch := p.pending
	p.pending = make(map[seriesKey]*aggregate, len(batch))
	p.mu.Unlock()
	if len(batch) == 0 {
		return nil
	}

	keys := make([]seriesKey, 0, len(batch))
	for key := range batch {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.name != b.name {
			return a.name < b.name
		}
		if a.dims != b.dims {
			return a.dims < b.dims
		}
		return a.bucket < b.bucket
	})

	for start := 0; start < len(keys); start += maxMetricsPerRequest {
		end := min(start+maxMetricsPerRequest, len(keys))
		chunk := make([]types.MetricDatum, 0, end-start)
		for _, key := range keys[start:end] {
			chunk = append(chunk, p.toDatum(batch[key]))
		}
		if err := p.put(ctx, chunk); err != nil {
			p.restore(batch, keys[start:])
			return fmt.Errorf("failed to publish %d score series: %w", len(keys)-start, err)
		}
	}
	return nil
}

func (p *ScorePublisher) restore(batch map[seriesKey]*aggregate, keys []seriesKey) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, key := range keys {
		if existing, ok := p.pending[key]; ok {
			existing.merge(batch[key])
			continue
		}
		p.pending[key] = batch[key]
	}
}

// Pending число рядов, ожидающих отправки
func (p *ScorePublisher) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

func (p *ScorePublisher) Close(ctx context.Context) error {
	close(p.stop)
	<-p.done
	return p.Flush(ctx)
}

func (p *ScorePublisher) run() {
	defer close(p.done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
		case <-p.kick:
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := p.Flush(ctx); err != nil && p.logger != nil {
			p.logger.Warn("CloudWatch score flush failed", "error", err.Error(), "pending", p.Pending())
		}
		cancel()
	}
}

func (p *ScorePublisher) put(ctx context.Context, data []types.MetricDatum) error {
	backoff := initialBackoff
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := p.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(p.namespace),
			MetricData: data,
		})
		if err == nil {
			return nil
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
	return fmt.Errorf("failed after %d attempts: %w", maxRetries, lastErr)
}

func (p *ScorePublisher) toDatum(agg *aggregate) types.MetricDatum {
	return types.MetricDatum{
		MetricName: aws.String(agg.name),
		Unit:       agg.unit,
		Timestamp:  aws.Time(agg.bucket),
		Dimensions: agg.dims,
		StatisticValues: &types.StatisticSet{
			SampleCount: aws.Float64(agg.count),
			Sum:         aws.Float64(agg.sum),
			Minimum:     aws.Float64(agg.min),
			Maximum:     aws.Float64(agg.max),
		},
		StorageResolution: aws.Int32(p.resolution),
	}
}

// dimensions объединяет измерения по умолчанию с измерениями точки.
// Пустые значения CloudWatch отвергает, они пропускаются.
func (p *ScorePublisher) dimensions(extra map[string]string) []types.Dimension {
	merged := make(map[string]string, len(p.defaults)+len(extra))
	for k, v := range p.defaults {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}

	names := make([]string, 0, len(merged))
	for k, v := range merged {
		if v != "" {
			names = append(names, k)
		}
	}
	sort.Strings(names)

	dims := make([]types.Dimension, 0, len(names))
	for _, name := range names {
		dims = append(dims, types.Dimension{Name: aws.String(name), Value: aws.String(merged[name])})
	}
	return dims
}

func canonicalDims(dims []types.Dimension) string {
	var b strings.Builder
	for _, d := range dims {
		b.WriteString(aws.ToString(d.Name))
		b.WriteByte('=')
		b.WriteString(aws.ToString(d.Value))
		b.WriteByte(';')
	}
	return b.String()
}

func mapUnit(unit string) types.StandardUnit {
	switch strings.ToLower(unit) {
	case "%", "percent":
		return types.StandardUnitPercent
	case "ms":
		return types.StandardUnitMilliseconds
	case "s":
		return types.StandardUnitSeconds
	case "count":
		return types.StandardUnitCount
	default:
		return types.StandardUnitNone
	}
}
