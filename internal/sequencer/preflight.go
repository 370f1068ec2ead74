package sequencer

import (
	"fmt"

	"flyto/internal/geo"
)

type Reason int

const (
	ReasonNone Reason = iota
	ReasonNotArmable
	ReasonBatteryLow
	ReasonTargetTooFar
	ReasonPositionUnknown
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "ok"
	case ReasonNotArmable:
		return "not_armable"
	case ReasonBatteryLow:
		return "battery_low"
	case ReasonTargetTooFar:
		return "target_too_far"
	case ReasonPositionUnknown:
		return "position_unknown"
	}
	return "unknown"
}

func (r Reason) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// PreflightResult is Ok when Reason is ReasonNone. Measurements taken before
// the check short-circuited are filled in.
type PreflightResult struct {
	Reason Reason `json:"reason"`

	Battery      float64 `json:"battery,omitempty"`
	BatteryKnown bool    `json:"battery_known"`

	Position      geo.GeoPoint `json:"position"`
	Distance      float64      `json:"distance_m,omitempty"`
	DistanceKnown bool         `json:"distance_known"`
}

func (r PreflightResult) OK() bool { return r.Reason == ReasonNone }

func (r PreflightResult) String() string {
	switch r.Reason {
	case ReasonNone:
		return "pre-flight check passed"
	case ReasonNotArmable:
		return "vehicle is not armable"
	case ReasonBatteryLow:
		if !r.BatteryKnown {
			return "battery level unreadable"
		}
		return fmt.Sprintf("battery too low: %.0f%%", r.Battery)
	case ReasonTargetTooFar:
		return fmt.Sprintf("target too far: %.1fm", r.Distance)
	case ReasonPositionUnknown:
		return "vehicle position unknown"
	}
	return "unknown pre-flight result"
}

// Policy holds the safety thresholds applied while sequencing.
type Policy struct {
	// MinBatteryPercent rejects missions when the reported battery is below it.
	MinBatteryPercent float64
	// MaxDistanceMeters rejects targets further than this from the vehicle.
	MaxDistanceMeters float64
	// AirborneAltitudeMeters is the altitude above home at or above which the
	// vehicle counts as already flying; arming and takeoff are skipped.
	AirborneAltitudeMeters float64
	// TakeoffCompletionRatio is the fraction of the target altitude that ends
	// the takeoff wait.
	TakeoffCompletionRatio float64
}

func DefaultPolicy() Policy {
	return Policy{
		MinBatteryPercent:      30,
		MaxDistanceMeters:      2000,
		AirborneAltitudeMeters: 2,
		TakeoffCompletionRatio: 0.95,
	}
}
