package valueobject

import "fmt"

// Severity представляет уровень серьезности аномалии (Value Object)
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Validate проверяет валидность уровня
func (s Severity) Validate() error {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return nil
	default:
		return fmt.Errorf("invalid severity %q", string(s))
	}
}

// String возвращает строковое представление
func (s Severity) String() string {
	return string(s)
}

// Rank возвращает порядковый номер уровня: low < medium < high < critical.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// AtLeast сообщает, что уровень не ниже other.
func (s Severity) AtLeast(other Severity) bool {
	return s.Rank() >= other.Rank()
}

// MaxSeverity возвращает более серьезный из двух уровней.
func MaxSeverity(a, b Severity) Severity {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// SeverityForRisk переводит риск отказа в уровень по фиксированным границам:
// >=0.9 critical, >=0.7 high, >=0.4 medium, иначе low.
func SeverityForRisk(risk float64) Severity {
	switch {
	case risk >= 0.9:
		return SeverityCritical
	case risk >= 0.7:
		return SeverityHigh
	case risk >= 0.4:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// AllSeverities возвращает уровни в порядке возрастания
func AllSeverities() []Severity {
	return []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
}
