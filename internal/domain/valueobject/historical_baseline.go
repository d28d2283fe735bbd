package valueobject

import "errors"

// HistoricalBaseline содержит агрегированную статистику параметра за окно (Value Object)
type HistoricalBaseline struct {
	mean        float64
	stdDev      float64
	sampleCount int
}

// NewHistoricalBaseline создает базу с валидацией
func NewHistoricalBaseline(mean, stdDev float64, sampleCount int) (HistoricalBaseline, error) {
	if sampleCount <= 0 {
		return HistoricalBaseline{}, errors.New("sample count must be positive")
	}
	if stdDev < 0 {
		return HistoricalBaseline{}, errors.New("standard deviation cannot be negative")
	}
	return HistoricalBaseline{mean: mean, stdDev: stdDev, sampleCount: sampleCount}, nil
}

// Mean возвращает среднее значение
func (b HistoricalBaseline) Mean() float64 {
	return b.mean
}

// StdDev возвращает стандартное отклонение
func (b HistoricalBaseline) StdDev() float64 {
	return b.stdDev
}

// SampleCount возвращает количество наблюдений
func (b HistoricalBaseline) SampleCount() int {
	return b.sampleCount
}

// Usable сообщает, пригодна ли база для z-score сравнения.
func (b HistoricalBaseline) Usable() bool {
	return b.sampleCount > 0 && b.stdDev > 0
}
