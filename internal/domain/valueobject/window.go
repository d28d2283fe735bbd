package valueobject

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidWindow окно наблюдения задано неверно
var ErrInvalidWindow = errors.New("invalid observation window")

// Window окно наблюдения [from, to] в UTC.
// Используется для выборки истории ряда и расчета исторической базы.
type Window struct {
	from time.Time
	to   time.Time
}

func NewWindow(from, to time.Time) (Window, error) {
	if from.IsZero() || to.IsZero() {
		return Window{}, fmt.Errorf("%w: bounds must be set", ErrInvalidWindow)
	}
	if to.Before(from) {
		return Window{}, fmt.Errorf("%w: %s is after %s", ErrInvalidWindow,
			from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339))
	}
	return Window{from: from.UTC(), to: to.UTC()}, nil
}

// Lookback окно длиной span, заканчивающееся в now
func Lookback(now time.Time, span time.Duration) (Window, error) {
	if span <= 0 {
		return Window{}, fmt.Errorf("%w: span must be positive, got %s", ErrInvalidWindow, span)
	}
	return NewWindow(now.Add(-span), now)
}

// LookbackDays окно исторической базы в days суток
func LookbackDays(now time.Time, days int) (Window, error) {
	return Lookback(now, time.Duration(days)*24*time.Hour)
}

func (w Window) From() time.Time { return w.from }
func (w Window) To() time.Time   { return w.to }

func (w Window) Span() time.Duration { return w.to.Sub(w.from) }

// Includes границы входят в окно
func (w Window) Includes(t time.Time) bool {
	return !t.Before(w.from) && !t.After(w.to)
}

// Exceeds окно длиннее limit (limit <= 0 снимает ограничение)
func (w Window) Exceeds(limit time.Duration) bool {
	return limit > 0 && w.Span() > limit
}
