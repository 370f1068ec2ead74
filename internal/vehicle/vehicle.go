// Package vehicle defines the link to a flight controller and the transports
// that implement it.
package vehicle

import (
	"context"
	"fmt"
	"strings"

	"flyto/internal/geo"
)

type FlightMode int

const (
	ModeOther FlightMode = iota
	ModeGuided
)

func (m FlightMode) String() string {
	if m == ModeGuided {
		return "GUIDED"
	}
	return "OTHER"
}

// ParseFlightMode maps a controller mode name onto the modes the sequencer
// cares about. Anything that is not GUIDED is ModeOther.
func ParseFlightMode(s string) (FlightMode, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ModeOther, fmt.Errorf("empty flight mode")
	}
	if strings.EqualFold(s, "GUIDED") {
		return ModeGuided, nil
	}
	return ModeOther, nil
}

// Link is the command and telemetry interface of one vehicle. Every read goes
// to the vehicle; implementations do not cache.
type Link interface {
	IsArmable(ctx context.Context) (bool, error)
	// BatteryLevel returns the remaining charge in percent. ok is false when
	// the vehicle reports no battery telemetry.
	BatteryLevel(ctx context.Context) (level float64, ok bool, err error)
	// CurrentPosition returns the position with altitude relative to home.
	CurrentPosition(ctx context.Context) (geo.GeoPoint, error)
	FlightMode(ctx context.Context) (FlightMode, error)
	SetFlightMode(ctx context.Context, mode FlightMode) error
	Arm(ctx context.Context) error
	IsArmed(ctx context.Context) (bool, error)
	Takeoff(ctx context.Context, altitudeMeters float64) error
	GoTo(ctx context.Context, target geo.GeoPoint) error
	Close() error
}

// Snapshot is a point-in-time read of the vehicle.
type Snapshot struct {
	Position     geo.GeoPoint
	Armable      bool
	Armed        bool
	Battery      float64
	BatteryKnown bool
	Mode         FlightMode
}

// ReadSnapshot queries every field from the link.
func ReadSnapshot(ctx context.Context, l Link) (Snapshot, error) {
	var s Snapshot
	var err error
	if s.Position, err = l.CurrentPosition(ctx); err != nil {
		return Snapshot{}, err
	}
	if s.Armable, err = l.IsArmable(ctx); err != nil {
		return Snapshot{}, err
	}
	if s.Armed, err = l.IsArmed(ctx); err != nil {
		return Snapshot{}, err
	}
	if s.Battery, s.BatteryKnown, err = l.BatteryLevel(ctx); err != nil {
		return Snapshot{}, err
	}
	if s.Mode, err = l.FlightMode(ctx); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}
