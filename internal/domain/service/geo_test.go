package service

import (
	"math"
	"testing"

	"github.com/dreschagin/vessel-guard/internal/domain/valueobject"
)

func mustPosition(t *testing.T, lat, lon float64) valueobject.Position {
	t.Helper()
	p, err := valueobject.NewPosition(lat, lon)
	if err != nil {
		t.Fatalf("invalid position: %v", err)
	}
	return p
}

func TestDistanceNM(t *testing.T) {
	origin := mustPosition(t, 0, 0)
	oneDegreeEast := mustPosition(t, 0, 1)

	want := EarthRadiusNM * math.Pi / 180
	if got := DistanceNM(origin, oneDegreeEast); math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected %.6f nm, got %.6f", want, got)
	}
	if got := DistanceNM(origin, origin); got != 0 {
		t.Fatalf("expected zero distance, got %v", got)
	}
}

func TestDistanceKm(t *testing.T) {
	// Marseille -> Ajaccio, roughly 300 km
	marseille := mustPosition(t, 43.2965, 5.3698)
	ajaccio := mustPosition(t, 41.9192, 8.7386)

	got := DistanceKm(marseille, ajaccio)
	if got < 290 || got > 340 {
		t.Fatalf("expected ~315 km, got %.1f", got)
	}
}

func TestInitialBearing(t *testing.T) {
	origin := mustPosition(t, 10, 10)

	tests := []struct {
		name string
		to   valueobject.Position
		want float64
	}{
		{name: "north", to: mustPosition(t, 11, 10), want: 0},
		{name: "south", to: mustPosition(t, 9, 10), want: 180},
		{name: "west", to: mustPosition(t, 10, 9), want: 270},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InitialBearing(origin, tt.to)
			if math.Abs(got-tt.want) > 0.5 {
				t.Fatalf("expected bearing ~%v, got %v", tt.want, got)
			}
		})
	}
}

func TestRouteMidpoint(t *testing.T) {
	tests := []struct {
		name    string
		a, b    [2]float64
		wantLat float64
		wantLon float64
	}{
		{"equator", [2]float64{0, 0}, [2]float64{0, 1}, 0, 0.5},
		{"meridian", [2]float64{10, 20}, [2]float64{30, 20}, 20, 20},
		{"antimeridian", [2]float64{-17, 179.9}, [2]float64{-17, -179.9}, -17, 180},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := mustPosition(t, tt.a[0], tt.a[1])
			b := mustPosition(t, tt.b[0], tt.b[1])
			mid := RouteMidpoint(a, b)

			if math.Abs(mid.Latitude()-tt.wantLat) > 1e-3 {
				t.Fatalf("expected latitude ~%v, got %v", tt.wantLat, mid.Latitude())
			}
			if math.Abs(math.Abs(mid.Longitude())-math.Abs(tt.wantLon)) > 1e-3 {
				t.Fatalf("expected longitude ~%v, got %v", tt.wantLon, mid.Longitude())
			}
			half := DistanceKm(a, b) / 2
			if math.Abs(DistanceKm(a, mid)-half) > 0.01 || math.Abs(DistanceKm(mid, b)-half) > 0.01 {
				t.Fatalf("midpoint %s is not halfway: %v / %v of %v",
					mid, DistanceKm(a, mid), DistanceKm(mid, b), 2*half)
			}
		})
	}
}

func TestRouteMidpoint_OffEquatorLiesOnGreatCircle(t *testing.T) {
	a := mustPosition(t, 40, 2)
	b := mustPosition(t, 42, 6)
	mid := RouteMidpoint(a, b)

	// среднее координат (41,4) лежит в стороне от дуги большого круга
	if math.Abs(DistanceKm(a, mid)-DistanceKm(mid, b)) > 0.01 {
		t.Fatalf("midpoint %s is not equidistant", mid)
	}
	if DistanceKm(a, mid)+DistanceKm(mid, b)-DistanceKm(a, b) > 0.01 {
		t.Fatalf("midpoint %s is off the great circle", mid)
	}
}
