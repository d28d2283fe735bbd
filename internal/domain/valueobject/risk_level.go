package valueobject

import "fmt"

// RiskLevel представляет уровень риска оценки безопасности (Value Object).
// Погодные снимки используют extreme, оценки местоположения используют critical.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
	RiskExtreme  RiskLevel = "extreme"
)

// Validate проверяет валидность уровня риска
func (r RiskLevel) Validate() error {
	switch r {
	case RiskLow, RiskModerate, RiskHigh, RiskCritical, RiskExtreme:
		return nil
	default:
		return fmt.Errorf("invalid risk level %q", string(r))
	}
}

// String возвращает строковое представление
func (r RiskLevel) String() string {
	return string(r)
}

// Rank упорядочивает уровни; critical и extreme равнозначны.
func (r RiskLevel) Rank() int {
	switch r {
	case RiskLow:
		return 1
	case RiskModerate:
		return 2
	case RiskHigh:
		return 3
	case RiskCritical, RiskExtreme:
		return 4
	default:
		return 0
	}
}
