package service

import "math"

// Mean среднее арифметическое; 0 для пустого среза
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	total := 0.0
	for _, v := range xs {
		total += v
	}
	return total / float64(len(xs))
}

// PopulationVariance дисперсия генеральной совокупности (деление на n, не n-1)
func PopulationVariance(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	mean := Mean(xs)
	var sum float64
	for _, v := range xs {
		sum += (v - mean) * (v - mean)
	}
	return sum / float64(len(xs))
}

// StandardDeviation стандартное отклонение по PopulationVariance
func StandardDeviation(xs []float64) float64 {
	return math.Sqrt(PopulationVariance(xs))
}

// OLSSlope наклон b прямой value = a + b*index по методу наименьших квадратов.
// Меньше minPoints точек дают 0
func OLSSlope(xs []float64, minPoints int) float64 {
	n := len(xs)
	if n < minPoints || n < 2 {
		return 0
	}
	xMean := float64(n-1) / 2
	yMean := Mean(xs)

	var num, den float64
	for i, y := range xs {
		dx := float64(i) - xMean
		num += dx * (y - yMean)
		den += dx * dx
	}
	if den == 0 {
		return 0
	}
	return num / den
}

// ZScore |value-mean|/stdDev; ok=false, если stdDev не положительно
func ZScore(value, mean, stdDev float64) (z float64, ok bool) {
	if stdDev <= 0 {
		return 0, false
	}
	return math.Abs(value-mean) / stdDev, true
}

// DropRatio (prev-latest)/prev по двум последним значениям; 0, если не определено
func DropRatio(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	prev := xs[len(xs)-2]
	latest := xs[len(xs)-1]
	if prev <= 0 {
		return 0
	}
	return (prev - latest) / prev
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
