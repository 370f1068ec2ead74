package sim

import (
	"context"
	"fmt"
	"math"
	"time"

	"flyto/internal/geo"
)

type stateReq struct {
	reply chan VehicleState
}

type cmdReq struct {
	cmd   Command
	reply chan error
}

// Engine simulates a single multicopter. All vehicle state is owned by the
// goroutine in Run; callers talk to it over channels.
type Engine struct {
	cfg Config
	geo GeoRef

	cmdCh      chan cmdReq
	stateReqCh chan stateReq
}

type Config struct {
	HomeLat float64
	HomeLon float64
	TickHz  float64

	// ArmableAfter is how long the vehicle needs after start before its
	// pre-arm checks pass.
	ArmableAfter time.Duration
	// ArmDelay is the time between an accepted arm request and Armed.
	ArmDelay time.Duration

	BatteryPercent     float64
	BatteryDrainPerSec float64
	NoBatteryTelemetry bool

	InitialAlt  float64
	InitialMode Mode

	ClimbRate   float64 // m/s
	CruiseSpeed float64 // m/s
}

func DefaultConfig() Config {
	return Config{
		HomeLat:            -35.363261,
		HomeLon:            149.165230,
		TickHz:             20,
		ArmableAfter:       2 * time.Second,
		ArmDelay:           time.Second,
		BatteryPercent:     100,
		BatteryDrainPerSec: 0.05,
		InitialMode:        ModeStabilize,
		ClimbRate:          2.5,
		CruiseSpeed:        10,
	}
}

func New(cfg Config) *Engine {
	if cfg.TickHz <= 0 {
		cfg.TickHz = 20
	}
	if cfg.ClimbRate <= 0 {
		cfg.ClimbRate = 2.5
	}
	if cfg.CruiseSpeed <= 0 {
		cfg.CruiseSpeed = 10
	}
	if !cfg.InitialMode.Valid() {
		cfg.InitialMode = ModeStabilize
	}
	return &Engine{
		cfg:        cfg,
		geo:        GeoRef{OriginLat: cfg.HomeLat, OriginLon: cfg.HomeLon},
		cmdCh:      make(chan cmdReq, 16),
		stateReqCh: make(chan stateReq, 16),
	}
}

// Home returns the launch point at ground level.
func (e *Engine) Home() geo.GeoPoint {
	return geo.GeoPoint{Lat: e.cfg.HomeLat, Lon: e.cfg.HomeLon}
}

// Do submits a command and waits for the engine to accept or reject it.
func (e *Engine) Do(ctx context.Context, cmd Command) error {
	req := cmdReq{cmd: cmd, reply: make(chan error, 1)}
	select {
	case e.cmdCh <- req:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) State(ctx context.Context) (VehicleState, error) {
	req := stateReq{reply: make(chan VehicleState, 1)}
	select {
	case e.stateReqCh <- req:
	case <-ctx.Done():
		return VehicleState{}, ctx.Err()
	}

	select {
	case st := <-req.reply:
		return st, nil
	case <-ctx.Done():
		return VehicleState{}, ctx.Err()
	}
}

func (e *Engine) Run(ctx context.Context) error {
	now := time.Now()
	var elapsed time.Duration

	pos := vec3{Z: e.cfg.InitialAlt}
	vel := vec3{}

	mode := e.cfg.InitialMode
	armed := e.cfg.InitialAlt > 0
	armPending := false
	var armRemaining time.Duration
	battery := e.cfg.BatteryPercent

	var active Command
	var target vec3

	const posTolM = 0.5
	const altTolM = 0.05

	buildSnapshot := func(ts time.Time) VehicleState {
		p := e.geo.toGeo(pos)
		st := VehicleState{
			Lat: p.Lat, Lon: p.Lon, Alt: p.Alt,
			Vx: vel.X, Vy: vel.Y, Vz: vel.Z,
			HeadingDeg: headingDeg(vel),
			Armable:    elapsed >= e.cfg.ArmableAfter,
			Armed:      armed,
			Mode:       mode,
			TS:         ts,
		}
		if !e.cfg.NoBatteryTelemetry {
			b := battery
			st.Battery = &b
		}
		if active != nil {
			st.ActiveCommand = string(active.Type())
		}
		return st
	}

	apply := func(cmd Command) error {
		switch c := cmd.(type) {
		case SetModeCommand:
			if !c.Mode.Valid() {
				return fmt.Errorf("%w: %q", ErrUnknownMode, c.Mode)
			}
			if c.Mode != ModeGuided {
				active = nil
			}
			mode = c.Mode
			return nil

		case ArmCommand:
			if armed || armPending {
				return nil
			}
			if elapsed < e.cfg.ArmableAfter {
				return ErrNotArmable
			}
			if mode != ModeGuided {
				return ErrNotGuided
			}
			armPending = true
			armRemaining = e.cfg.ArmDelay
			return nil

		case TakeoffCommand:
			if c.Alt <= 0 {
				return ErrInvalidAltitude
			}
			if mode != ModeGuided {
				return ErrNotGuided
			}
			if !armed {
				return ErrNotArmed
			}
			active = c
			target = vec3{X: pos.X, Y: pos.Y, Z: c.Alt}
			return nil

		case GoToCommand:
			if mode != ModeGuided {
				return ErrNotGuided
			}
			if !armed {
				return ErrNotArmed
			}
			active = c
			target = e.geo.toLocal(geo.GeoPoint{Lat: c.Lat, Lon: c.Lon, Alt: c.Alt})
			return nil
		}
		return fmt.Errorf("%w: %T", ErrUnknownCommand, cmd)
	}

	moveToward := func(cur, des, maxStep float64) float64 {
		diff := des - cur
		if diff > maxStep {
			return cur + maxStep
		}
		if diff < -maxStep {
			return cur - maxStep
		}
		return des
	}

	tick := time.NewTicker(time.Duration(float64(time.Second) / e.cfg.TickHz))
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case req := <-e.stateReqCh:
			req.reply <- buildSnapshot(now)

		case req := <-e.cmdCh:
			req.reply <- apply(req.cmd)

		case t := <-tick.C:
			dt := t.Sub(now).Seconds()
			if dt <= 0 {
				dt = 1.0 / e.cfg.TickHz
			}
			now = t
			elapsed += time.Duration(dt * float64(time.Second))

			if armPending {
				armRemaining -= time.Duration(dt * float64(time.Second))
				if armRemaining <= 0 {
					armPending = false
					armed = true
				}
			}
			if armed {
				battery = math.Max(0, battery-e.cfg.BatteryDrainPerSec*dt)
			}

			prev := pos
			if active != nil {
				delta := target.sub(pos)
				h := delta.horizontalNorm()
				step := e.cfg.CruiseSpeed * dt
				if h <= step || h <= posTolM {
					pos.X, pos.Y = target.X, target.Y
				} else {
					pos.X += delta.X / h * step
					pos.Y += delta.Y / h * step
				}
				pos.Z = moveToward(pos.Z, target.Z, e.cfg.ClimbRate*dt)

				if target.sub(pos).horizontalNorm() <= posTolM && math.Abs(target.Z-pos.Z) <= altTolM {
					active = nil
				}
			}
			vel = vec3{X: (pos.X - prev.X) / dt, Y: (pos.Y - prev.Y) / dt, Z: (pos.Z - prev.Z) / dt}
		}
	}
}
