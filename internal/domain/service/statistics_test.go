package service

import (
	"math"
	"testing"
)

func TestStatistics(t *testing.T) {
	window := []float64{2, 4, 4, 4, 5, 5, 7, 9}

	if got := Mean(window); got != 5 {
		t.Fatalf("expected mean 5, got %v", got)
	}
	if got := PopulationVariance(window); got != 4 {
		t.Fatalf("expected population variance 4, got %v", got)
	}
	if got := StandardDeviation(window); got != 2 {
		t.Fatalf("expected stddev 2, got %v", got)
	}
	if got := Mean(nil); got != 0 {
		t.Fatalf("expected mean of empty window to be 0, got %v", got)
	}
}

func TestOLSSlope(t *testing.T) {
	tests := []struct {
		name      string
		values    []float64
		minPoints int
		want      float64
	}{
		{name: "perfect line", values: []float64{1, 2, 3, 4}, minPoints: 3, want: 1},
		{name: "falling", values: []float64{400, 390, 380, 140}, minPoints: 3, want: -79},
		{name: "flat", values: []float64{5, 5, 5}, minPoints: 3, want: 0},
		{name: "too short", values: []float64{1, 9}, minPoints: 3, want: 0},
		{name: "single", values: []float64{1}, minPoints: 1, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OLSSlope(tt.values, tt.minPoints); math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("expected slope %v, got %v", tt.want, got)
			}
		})
	}
}

func TestZScore(t *testing.T) {
	if _, ok := ZScore(10, 5, 0); ok {
		t.Fatalf("expected zero stddev to be rejected")
	}
	z, ok := ZScore(2, 10, 2)
	if !ok || z != 4 {
		t.Fatalf("expected z=4, got %v (ok=%v)", z, ok)
	}
}

func TestDropRatio(t *testing.T) {
	if got := DropRatio([]float64{2000, 1000}); got != 0.5 {
		t.Fatalf("expected 0.5, got %v", got)
	}
	if got := DropRatio([]float64{1000, 2000}); got != -1 {
		t.Fatalf("expected -1 for a rise, got %v", got)
	}
	if got := DropRatio([]float64{0, 10}); got != 0 {
		t.Fatalf("expected 0 for zero previous value, got %v", got)
	}
	if got := DropRatio([]float64{10}); got != 0 {
		t.Fatalf("expected 0 for single sample, got %v", got)
	}
}
