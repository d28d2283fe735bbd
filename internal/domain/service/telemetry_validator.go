package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dreschagin/vessel-guard/internal/domain/entity"
)

// maxClockSkew допустимое опережение времени показания относительно сервера
const maxClockSkew = 5 * time.Minute

// TelemetryValidator предоставляет сервисы для валидации показаний (Domain Service)
type TelemetryValidator struct {
	profiles *ProfileRegistry
	now      func() time.Time
}

// NewTelemetryValidator создает новый TelemetryValidator
func NewTelemetryValidator(profiles *ProfileRegistry) *TelemetryValidator {
	return &TelemetryValidator{
		profiles: profiles,
		now:      time.Now,
	}
}

// Validate выполняет полную валидацию показания
func (v *TelemetryValidator) Validate(reading *entity.TelemetryReading) error {
	if reading == nil {
		return errors.New("reading cannot be nil")
	}

	// Проверка времени
	if reading.RecordedAt().IsZero() {
		return errors.New("recorded_at cannot be zero")
	}

	// Показание не может быть из будущего (с учетом расхождения часов)
	if reading.RecordedAt().After(v.now().Add(maxClockSkew)) {
		return errors.New("recorded_at cannot be in the future")
	}

	// Единица измерения должна совпадать с профилем, если указана
	return v.ValidateUnit(reading.ParameterName(), reading.Value().Unit())
}

// ValidateUnit проверяет, соответствует ли единица измерения профилю параметра.
// Для неизвестных параметров и пустой единицы проверка не выполняется.
func (v *TelemetryValidator) ValidateUnit(parameterName, unit string) error {
	if unit == "" {
		return nil
	}
	profile, ok := v.profiles.Lookup(parameterName)
	if !ok || profile.Unit == "" {
		return nil
	}
	if !strings.EqualFold(profile.Unit, unit) {
		return fmt.Errorf("invalid unit %q for %s, expected %q", unit, parameterName, profile.Unit)
	}
	return nil
}

// ValidateBatch валидирует группу показаний
func (v *TelemetryValidator) ValidateBatch(readings []*entity.TelemetryReading) []error {
	var errs []error

	for i, reading := range readings {
		if err := v.Validate(reading); err != nil {
			errs = append(errs, fmt.Errorf("reading %d: %w", i, err))
		}
	}

	return errs
}
