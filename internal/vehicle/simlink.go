package vehicle

import (
	"context"
	"sync"

	"flyto/internal/geo"
	"flyto/internal/sim"
)

// SimLink drives an in-process simulator engine. The engine must be running.
type SimLink struct {
	eng *sim.Engine

	mu     sync.RWMutex
	closed bool
}

func NewSimLink(eng *sim.Engine) *SimLink {
	return &SimLink{eng: eng}
}

func (l *SimLink) IsArmable(ctx context.Context) (bool, error) {
	st, err := l.state(ctx, "is_armable")
	return st.Armable, err
}

func (l *SimLink) BatteryLevel(ctx context.Context) (float64, bool, error) {
	st, err := l.state(ctx, "battery_level")
	if err != nil || st.Battery == nil {
		return 0, false, err
	}
	return *st.Battery, true, nil
}

func (l *SimLink) CurrentPosition(ctx context.Context) (geo.GeoPoint, error) {
	st, err := l.state(ctx, "current_position")
	if err != nil {
		return geo.GeoPoint{}, err
	}
	return geo.GeoPoint{Lat: st.Lat, Lon: st.Lon, Alt: st.Alt}, nil
}

func (l *SimLink) FlightMode(ctx context.Context) (FlightMode, error) {
	st, err := l.state(ctx, "flight_mode")
	if err != nil {
		return ModeOther, err
	}
	if st.Mode == sim.ModeGuided {
		return ModeGuided, nil
	}
	return ModeOther, nil
}

func (l *SimLink) SetFlightMode(ctx context.Context, mode FlightMode) error {
	return l.do(ctx, "set_mode", sim.SetModeCommand{Mode: simMode(mode)})
}

func (l *SimLink) Arm(ctx context.Context) error {
	return l.do(ctx, "arm", sim.ArmCommand{})
}

func (l *SimLink) IsArmed(ctx context.Context) (bool, error) {
	st, err := l.state(ctx, "is_armed")
	return st.Armed, err
}

func (l *SimLink) Takeoff(ctx context.Context, altitudeMeters float64) error {
	return l.do(ctx, "takeoff", sim.TakeoffCommand{Alt: altitudeMeters})
}

func (l *SimLink) GoTo(ctx context.Context, target geo.GeoPoint) error {
	return l.do(ctx, "goto", sim.GoToCommand{Lat: target.Lat, Lon: target.Lon, Alt: target.Alt})
}

// Close detaches the link. The engine keeps running.
func (l *SimLink) Close() error {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	return nil
}

func (l *SimLink) isClosed() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.closed
}

func (l *SimLink) state(ctx context.Context, op string) (sim.VehicleState, error) {
	if l.isClosed() {
		return sim.VehicleState{}, &LinkError{Op: op, Addr: "sim", Err: ErrClosed}
	}
	st, err := l.eng.State(ctx)
	if err != nil {
		return sim.VehicleState{}, &LinkError{Op: op, Addr: "sim", Err: err}
	}
	return st, nil
}

func (l *SimLink) do(ctx context.Context, op string, cmd sim.Command) error {
	if l.isClosed() {
		return &LinkError{Op: op, Addr: "sim", Err: ErrClosed}
	}
	if err := l.eng.Do(ctx, cmd); err != nil {
		return &LinkError{Op: op, Addr: "sim", Err: err}
	}
	return nil
}
