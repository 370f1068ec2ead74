package sim

import (
	"errors"
	"time"
)

type Mode string

const (
	ModeStabilize Mode = "STABILIZE"
	ModeGuided    Mode = "GUIDED"
)

func (m Mode) Valid() bool {
	return m == ModeStabilize || m == ModeGuided
}

// MsgpackContentType selects the msgpack encoding of VehicleState on /state.
const MsgpackContentType = "application/msgpack"

// VehicleState is the wire form of the simulated vehicle, also served by the
// HTTP API as JSON or msgpack. Alt is relative to home.
type VehicleState struct {
	Lat float64 `json:"lat" msgpack:"lat"`
	Lon float64 `json:"lon" msgpack:"lon"`
	Alt float64 `json:"alt" msgpack:"alt"` // meters above home

	Vx float64 `json:"vx" msgpack:"vx"`
	Vy float64 `json:"vy" msgpack:"vy"`
	Vz float64 `json:"vz" msgpack:"vz"`

	HeadingDeg float64 `json:"headingDeg" msgpack:"headingDeg"`

	Armable bool     `json:"armable" msgpack:"armable"`
	Armed   bool     `json:"armed" msgpack:"armed"`
	Mode    Mode     `json:"mode" msgpack:"mode"`
	Battery *float64 `json:"battery,omitempty" msgpack:"battery,omitempty"` // percent, nil when telemetry is unavailable

	ActiveCommand string    `json:"activeCommand,omitempty" msgpack:"activeCommand,omitempty"`
	TS            time.Time `json:"ts" msgpack:"ts"`
}

var (
	ErrNotArmable      = errors.New("vehicle is not armable")
	ErrNotArmed        = errors.New("vehicle is not armed")
	ErrNotGuided       = errors.New("vehicle is not in GUIDED mode")
	ErrUnknownMode     = errors.New("unknown flight mode")
	ErrInvalidAltitude = errors.New("altitude must be positive")
	ErrUnknownCommand  = errors.New("unknown command")
)
