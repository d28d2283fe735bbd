package service

import (
	"math"

	"github.com/dreschagin/vessel-guard/internal/domain/valueobject"
)

const (
	// EarthRadiusNM радиус Земли в морских милях
	EarthRadiusNM = 3440.065
	// EarthRadiusKm радиус Земли в километрах
	EarthRadiusKm = 6371.0
)

func haversine(a, b valueobject.Position, radius float64) float64 {
	lat1 := toRadians(a.Latitude())
	lat2 := toRadians(b.Latitude())
	dLat := lat2 - lat1
	dLon := toRadians(b.Longitude() - a.Longitude())

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * radius * math.Asin(math.Min(1, math.Sqrt(h)))
}

// DistanceNM расстояние по большому кругу в морских милях
func DistanceNM(a, b valueobject.Position) float64 {
	return haversine(a, b, EarthRadiusNM)
}

// DistanceKm расстояние по большому кругу в километрах
func DistanceKm(a, b valueobject.Position) float64 {
	return haversine(a, b, EarthRadiusKm)
}

// InitialBearing начальный курс из a в b, градусы [0,360)
func InitialBearing(a, b valueobject.Position) float64 {
	lat1 := toRadians(a.Latitude())
	lat2 := toRadians(b.Latitude())
	dLon := toRadians(b.Longitude() - a.Longitude())

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	bearing := toDegrees(math.Atan2(y, x))
	return math.Mod(bearing+360, 360)
}

// RouteMidpoint середина дуги большого круга между a и b.
// Погода маршрута оценивается только в этой точке.
func RouteMidpoint(a, b valueobject.Position) valueobject.Position {
	lat1 := toRadians(a.Latitude())
	lat2 := toRadians(b.Latitude())
	dLon := toRadians(b.Longitude() - a.Longitude())

	bx := math.Cos(lat2) * math.Cos(dLon)
	by := math.Cos(lat2) * math.Sin(dLon)
	lat := math.Atan2(math.Sin(lat1)+math.Sin(lat2), math.Hypot(math.Cos(lat1)+bx, by))
	lon := toRadians(a.Longitude()) + math.Atan2(by, math.Cos(lat1)+bx)

	mid, _ := valueobject.NewPosition(toDegrees(lat), normalizeLongitude(toDegrees(lon)))
	return mid
}

// normalizeLongitude приводит долготу к [-180,180)
func normalizeLongitude(deg float64) float64 {
	return math.Mod(math.Mod(deg+180, 360)+360, 360) - 180
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

func toDegrees(rad float64) float64 {
	return rad * 180 / math.Pi
}
