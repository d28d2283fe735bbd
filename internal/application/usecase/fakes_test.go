package usecase

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dreschagin/vessel-guard/internal/application/dto"
	"github.com/dreschagin/vessel-guard/internal/application/port"
	"github.com/dreschagin/vessel-guard/internal/domain/entity"
	"github.com/dreschagin/vessel-guard/internal/domain/repository"
	"github.com/dreschagin/vessel-guard/internal/domain/service"
	"github.com/dreschagin/vessel-guard/internal/domain/valueobject"
)

func mustTables() *service.Tables {
	tables, err := service.LoadEmbeddedTables()
	if err != nil {
		panic(err)
	}
	return tables
}

func mustPosition(lat, lon float64) valueobject.Position {
	p, err := valueobject.NewPosition(lat, lon)
	if err != nil {
		panic(err)
	}
	return p
}

// recordingSink запоминает все обращения к Sink
type recordingSink struct {
	mu              sync.Mutex
	verdicts        []*entity.AnomalyVerdict
	assessments     []*entity.SafetyAssessment
	recommendations []*entity.Recommendation
	alerts          []port.Alert
	err             error
}

func (s *recordingSink) RecordVerdict(_ context.Context, v *entity.AnomalyVerdict) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verdicts = append(s.verdicts, v)
	return s.err
}

func (s *recordingSink) RecordAssessment(_ context.Context, a *entity.SafetyAssessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assessments = append(s.assessments, a)
	return s.err
}

func (s *recordingSink) RecordRecommendation(_ context.Context, r *entity.Recommendation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recommendations = append(s.recommendations, r)
	return s.err
}

func (s *recordingSink) Alert(_ context.Context, a port.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, a)
	return s.err
}

type fakeHistory struct {
	baseline *valueobject.HistoricalBaseline
	err      error
	block    bool
	calls    int
}

func (f *fakeHistory) GetBaseline(ctx context.Context, _, _ string, _ int) (*valueobject.HistoricalBaseline, error) {
	f.calls++
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.baseline, f.err
}

type fakeWeather struct {
	snapshot *entity.WeatherSnapshot
	err      error
	block    bool
	asked    []valueobject.Position
	mu       sync.Mutex
}

func (f *fakeWeather) CurrentWeather(ctx context.Context, p valueobject.Position) (*entity.WeatherSnapshot, error) {
	f.mu.Lock()
	f.asked = append(f.asked, p)
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.snapshot, f.err
}

// fakeZones отбирает зоны по типу; NearestZones учитывает DistanceKm зоны как расстояние до судна
type fakeZones struct {
	zones []entity.SafetyZone
	err   error
}

func (f *fakeZones) filter(types []valueobject.ZoneType) []entity.SafetyZone {
	var out []entity.SafetyZone
	for _, z := range f.zones {
		for _, t := range types {
			if z.ZoneType == t && z.Active {
				out = append(out, z)
			}
		}
	}
	return out
}

func (f *fakeZones) NearestZones(_ context.Context, _ valueobject.Position, types []valueobject.ZoneType, maxKm float64) ([]entity.SafetyZone, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []entity.SafetyZone
	for _, z := range f.filter(types) {
		if z.DistanceKm <= maxKm {
			out = append(out, z)
		}
	}
	return out, nil
}

func (f *fakeZones) ActiveZonesByType(_ context.Context, types []valueobject.ZoneType) ([]entity.SafetyZone, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.filter(types), nil
}

type fakeBaselines struct {
	score float64
	ok    bool
	err   error
}

func (f *fakeBaselines) BaselineScore(context.Context, string, valueobject.Position) (float64, bool, error) {
	return f.score, f.ok, f.err
}

type fakeEquipment struct {
	items []entity.Equipment
	err   error
}

func (f *fakeEquipment) EquipmentFor(context.Context, string) ([]entity.Equipment, error) {
	return f.items, f.err
}

type fakeEmergency struct {
	protocols    []entity.EmergencyProtocol
	contacts     []entity.EmergencyContact
	askedTypes   []string
	protocolsErr error
	mu           sync.Mutex
}

func (f *fakeEmergency) ProtocolsFor(context.Context, string) ([]entity.EmergencyProtocol, error) {
	return f.protocols, f.protocolsErr
}

func (f *fakeEmergency) ActiveContacts(_ context.Context, types []string) ([]entity.EmergencyContact, error) {
	f.mu.Lock()
	f.askedTypes = append([]string(nil), types...)
	f.mu.Unlock()
	return f.contacts, nil
}

type fakeArchive struct {
	reports []port.EmergencyReport
	err     error
}

func (f *fakeArchive) Archive(_ context.Context, report port.EmergencyReport) (string, error) {
	f.reports = append(f.reports, report)
	if f.err != nil {
		return "", f.err
	}
	return "https://reports.example.com/" + report.Key, nil
}

// memoryTelemetry in-memory TelemetryRepository
type memoryTelemetry struct {
	mu       sync.Mutex
	readings []*entity.TelemetryReading
	saveErr  error
	findErr  error
}

func (m *memoryTelemetry) SaveBatch(_ context.Context, readings []*entity.TelemetryReading) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readings = append(m.readings, readings...)
	return nil
}

func (m *memoryTelemetry) series(key repository.SeriesKey) []*entity.TelemetryReading {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.TelemetryReading
	for _, r := range m.readings {
		if r.VesselID() == key.VesselID && r.ParameterName() == key.ParameterName {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RecordedAt().Before(out[j].RecordedAt()) })
	return out
}

func (m *memoryTelemetry) FindWindow(_ context.Context, key repository.SeriesKey, limit int) ([]*entity.TelemetryReading, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	out := m.series(key)
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (m *memoryTelemetry) FindInWindow(_ context.Context, key repository.SeriesKey, tr valueobject.Window) ([]*entity.TelemetryReading, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	var out []*entity.TelemetryReading
	for _, r := range m.series(key) {
		if tr.Includes(r.RecordedAt()) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memoryTelemetry) AggregateBaseline(context.Context, repository.SeriesKey, valueobject.Window) (*valueobject.HistoricalBaseline, error) {
	return nil, nil
}

func (m *memoryTelemetry) FindActiveSeries(context.Context, time.Time, int) ([]repository.SeriesKey, error) {
	return nil, nil
}

func (m *memoryTelemetry) DeleteOlderThan(context.Context, time.Time) (int64, error) {
	return 0, nil
}

type historyDTO = dto.SeriesHistoryDTO

// memoryCache port.Cache поверх map
type memoryCache struct {
	mu          sync.Mutex
	data        map[string]any
	sets        chan string
	invalidated []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string]any{}, sets: make(chan string, 8)}
}

func (c *memoryCache) Get(_ context.Context, key string, dest any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return port.ErrCacheMiss
	}
	if target, ok := dest.(**historyDTO); ok {
		*target = v.(*historyDTO)
	}
	return nil
}

func (c *memoryCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	c.mu.Lock()
	c.data[key] = value
	c.mu.Unlock()
	c.sets <- key
	return nil
}

func (c *memoryCache) InvalidatePrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, prefix)
	for key := range c.data {
		if strings.HasPrefix(key, prefix) {
			delete(c.data, key)
		}
	}
	return nil
}

func (c *memoryCache) Close() error { return nil }
