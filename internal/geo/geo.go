package geo

import (
	"fmt"
	"math"
)

// EarthRadiusMeters is the mean Earth radius used for surface distances.
const EarthRadiusMeters = 6371000.0

// GeoPoint is a position in degrees. Alt is meters above the vehicle's home
// point, not above sea level.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
	Alt float64 `json:"alt"`
}

func (p GeoPoint) String() string {
	return fmt.Sprintf("(%.6f, %.6f, %.1fm)", p.Lat, p.Lon, p.Alt)
}

// Validate rejects coordinates outside the WGS84 degree ranges.
func (p GeoPoint) Validate() error {
	for _, v := range []float64{p.Lat, p.Lon, p.Alt} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("coordinate %v is not a finite number", v)
		}
	}
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("latitude %.6f out of range [-90, 90]", p.Lat)
	}
	if p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("longitude %.6f out of range [-180, 180]", p.Lon)
	}
	return nil
}

// ValidateTarget is Validate plus the rule that a flight target sits above
// its home point.
func (p GeoPoint) ValidateTarget() error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.Alt <= 0 {
		return fmt.Errorf("altitude must be positive, got %.1fm above home", p.Alt)
	}
	return nil
}

// DistanceMeters returns the haversine great-circle distance between a and b.
// Altitude is ignored.
func DistanceMeters(a, b GeoPoint) float64 {
	phi1 := radians(a.Lat)
	phi2 := radians(b.Lat)
	dPhi := radians(b.Lat - a.Lat)
	dLambda := radians(b.Lon - a.Lon)

	sinPhi := math.Sin(dPhi / 2)
	sinLambda := math.Sin(dLambda / 2)
	h := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLambda*sinLambda

	// rounding can push h a hair outside [0, 1] near antipodes
	h = math.Min(1, math.Max(0, h))

	return EarthRadiusMeters * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
