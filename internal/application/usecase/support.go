package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dreschagin/vessel-guard/internal/application/port"
	"github.com/dreschagin/vessel-guard/internal/domain/entity"
)

// Имена проверок, попадающих в skippedChecks при отказе источника
const (
	CheckBaselineScore = "baseline_score"
	CheckNearbyHarbors = "nearby_harbors"
	CheckWeather       = "weather"
	CheckHazardZones   = "hazard_zones"
	CheckProtocols     = "emergency_protocols"
	CheckContacts      = "emergency_contacts"
	CheckServices      = "emergency_services"
	CheckReportArchive = "report_archive"
)

const defaultProviderTimeout = 3 * time.Second

// withTimeout ограничивает один вызов внешнего источника
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = defaultProviderTimeout
	}
	return context.WithTimeout(ctx, d)
}

// skipList собирает пропущенные проверки из параллельных запросов
type skipList struct {
	mu     sync.Mutex
	checks []string
}

func (s *skipList) add(check string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks = append(s.checks, check)
}

func (s *skipList) list() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]string(nil), s.checks...)
	sort.Strings(out)
	return out
}

// discardSink используется, когда запись результатов не настроена (CLI)
type discardSink struct{}

func (discardSink) RecordVerdict(context.Context, *entity.AnomalyVerdict) error { return nil }
func (discardSink) RecordAssessment(context.Context, *entity.SafetyAssessment) error { return nil }
func (discardSink) RecordRecommendation(context.Context, *entity.Recommendation) error { return nil }
func (discardSink) Alert(context.Context, port.Alert) error { return nil }

type noopObserver struct{}

func (noopObserver) ObserveVerdict(string, string, string, float64) {}
func (noopObserver) ObserveAssessment(string, string, float64) {}
func (noopObserver) ObserveSkippedCheck(string, string) {}
func (noopObserver) ObserveAlert(string) {}

func sinkOrDiscard(sink port.Sink) port.Sink {
	if sink == nil {
		return discardSink{}
	}
	return sink
}

func observerOrNoop(observer port.EvaluationObserver) port.EvaluationObserver {
	if observer == nil {
		return noopObserver{}
	}
	return observer
}
