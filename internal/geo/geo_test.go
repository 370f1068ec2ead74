package geo

import (
	"math"
	"testing"
)

func TestDistanceMetersSamePoint(t *testing.T) {
	points := []GeoPoint{
		{},
		{Lat: -35.3605, Lon: 149.168, Alt: 15},
		{Lat: 90, Lon: 0},
		{Lat: -90, Lon: 180},
		{Lat: 51.5, Lon: -0.12, Alt: 300},
	}
	for _, p := range points {
		if d := DistanceMeters(p, p); d != 0 {
			t.Errorf("DistanceMeters(%v, %v) = %v, want 0", p, p, d)
		}
	}
}

func TestDistanceMetersSymmetric(t *testing.T) {
	pairs := [][2]GeoPoint{
		{{Lat: -35.363261, Lon: 149.165230}, {Lat: -35.3605, Lon: 149.168}},
		{{Lat: 0, Lon: 0}, {Lat: 0.3, Lon: 0}},
		{{Lat: 40.7128, Lon: -74.0060}, {Lat: 51.5074, Lon: -0.1278}},
		{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 180}},
		{{Lat: 10, Lon: 20}, {Lat: -10, Lon: -160}},
	}
	for _, pair := range pairs {
		ab := DistanceMeters(pair[0], pair[1])
		ba := DistanceMeters(pair[1], pair[0])
		if math.Abs(ab-ba) > 1e-6 {
			t.Errorf("asymmetric distance for %v <-> %v: %v vs %v", pair[0], pair[1], ab, ba)
		}
	}
}

func TestDistanceMetersKnownValues(t *testing.T) {
	testCases := []struct {
		name string
		a, b GeoPoint
		want float64
	}{
		{
			name: "0.3 degrees of latitude at the equator",
			a:    GeoPoint{Lat: 0, Lon: 0},
			b:    GeoPoint{Lat: 0.3, Lon: 0},
			want: EarthRadiusMeters * 0.3 * math.Pi / 180, // ~33358 m
		},
		{
			name: "0.3 degrees of longitude at the equator",
			a:    GeoPoint{Lat: 0, Lon: 10},
			b:    GeoPoint{Lat: 0, Lon: 10.3},
			want: 33358,
		},
		{
			name: "antipodal points",
			a:    GeoPoint{Lat: 0, Lon: 0},
			b:    GeoPoint{Lat: 0, Lon: 180},
			want: math.Pi * EarthRadiusMeters,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := DistanceMeters(tc.a, tc.b)
			if math.IsNaN(got) {
				t.Fatalf("got NaN")
			}
			if math.Abs(got-tc.want)/tc.want > 0.01 {
				t.Errorf("DistanceMeters = %.1f, want %.1f (within 1%%)", got, tc.want)
			}
		})
	}
}

func TestDistanceMetersIgnoresAltitude(t *testing.T) {
	a := GeoPoint{Lat: -35.36, Lon: 149.16, Alt: 0}
	b := GeoPoint{Lat: -35.36, Lon: 149.16, Alt: 500}
	if d := DistanceMeters(a, b); d != 0 {
		t.Errorf("vertical separation produced distance %v, want 0", d)
	}
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		p       GeoPoint
		wantErr bool
	}{
		{name: "reference target", p: GeoPoint{Lat: -35.3605, Lon: 149.168, Alt: 15}},
		{name: "poles and date line", p: GeoPoint{Lat: 90, Lon: -180}},
		{name: "latitude too large", p: GeoPoint{Lat: 91}, wantErr: true},
		{name: "longitude too small", p: GeoPoint{Lon: -180.5}, wantErr: true},
		{name: "NaN altitude", p: GeoPoint{Alt: math.NaN()}, wantErr: true},
		{name: "infinite latitude", p: GeoPoint{Lat: math.Inf(1)}, wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.p.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestValidateTarget(t *testing.T) {
	testCases := []struct {
		name    string
		p       GeoPoint
		wantErr bool
	}{
		{name: "reference target", p: GeoPoint{Lat: -35.3605, Lon: 149.168, Alt: 15}},
		{name: "ground level", p: GeoPoint{Lat: -35.3605, Lon: 149.168}, wantErr: true},
		{name: "below home", p: GeoPoint{Lat: -35.3605, Lon: 149.168, Alt: -5}, wantErr: true},
		{name: "bad latitude", p: GeoPoint{Lat: 91, Alt: 15}, wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.p.ValidateTarget()
			if (err != nil) != tc.wantErr {
				t.Errorf("ValidateTarget() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}
