package sim

import (
	"math"

	"flyto/internal/geo"
)

// vec3 is a local ENU offset in meters: X east, Y north, Z up.
type vec3 struct{ X, Y, Z float64 }

func (v vec3) sub(o vec3) vec3 { return vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

func (v vec3) horizontalNorm() float64 { return math.Hypot(v.X, v.Y) }

// GeoRef projects between geodetic coordinates and a flat local frame
// anchored at the home point. Good enough over the few kilometres a
// mission covers.
type GeoRef struct {
	OriginLat float64
	OriginLon float64
}

const metersPerDegLat = 111_320.0

func (g GeoRef) metersPerDegLon() float64 {
	return metersPerDegLat * math.Cos(g.OriginLat*math.Pi/180.0)
}

func (g GeoRef) toLocal(p geo.GeoPoint) vec3 {
	return vec3{
		X: (p.Lon - g.OriginLon) * g.metersPerDegLon(),
		Y: (p.Lat - g.OriginLat) * metersPerDegLat,
		Z: p.Alt,
	}
}

func (g GeoRef) toGeo(v vec3) geo.GeoPoint {
	return geo.GeoPoint{
		Lat: g.OriginLat + v.Y/metersPerDegLat,
		Lon: g.OriginLon + v.X/g.metersPerDegLon(),
		Alt: v.Z,
	}
}

func headingDeg(v vec3) float64 {
	// 0=north, 90=east
	if math.Abs(v.X) < 1e-9 && math.Abs(v.Y) < 1e-9 {
		return 0
	}
	deg := math.Atan2(v.X, v.Y) * 180.0 / math.Pi
	if deg < 0 {
		deg += 360
	}
	return deg
}
