package valueobject

import (
	"fmt"
	"math"
)

// Position is a WGS84 latitude/longitude pair in decimal degrees.
type Position struct {
	lat float64
	lon float64
}

// NewPosition validates the coordinate ranges.
func NewPosition(lat, lon float64) (Position, error) {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return Position{}, fmt.Errorf("coordinates must be numbers")
	}
	if lat < -90 || lat > 90 {
		return Position{}, fmt.Errorf("latitude %.6f out of range [-90, 90]", lat)
	}
	if lon < -180 || lon > 180 {
		return Position{}, fmt.Errorf("longitude %.6f out of range [-180, 180]", lon)
	}
	return Position{lat: lat, lon: lon}, nil
}

func (p Position) Latitude() float64 {
	return p.lat
}

func (p Position) Longitude() float64 {
	return p.lon
}

func (p Position) String() string {
	return fmt.Sprintf("%.5f,%.5f", p.lat, p.lon)
}
