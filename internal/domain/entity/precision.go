package entity

import "github.com/shopspring/decimal"

// ScorePrecision is the number of decimal places kept for every persisted score.
const ScorePrecision int32 = 4

// RoundScore fixes v to ScorePrecision decimal places so that the value survives a
// text round-trip through the record stores unchanged.
func RoundScore(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(ScorePrecision).Float64()
	return f
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
