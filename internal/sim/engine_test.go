package sim

import (
	"context"
	"errors"
	"testing"
	"time"

	"flyto/internal/geo"
)

func startEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	eng := New(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = eng.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return eng
}

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.TickHz = 200
	cfg.ArmableAfter = 0
	cfg.ArmDelay = 10 * time.Millisecond
	cfg.ClimbRate = 100
	cfg.CruiseSpeed = 2000
	return cfg
}

func waitState(t *testing.T, eng *Engine, cond func(VehicleState) bool) VehicleState {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	for {
		st, err := eng.State(ctx)
		if err != nil {
			t.Fatalf("State: %v", err)
		}
		if cond(st) {
			return st
		}
		select {
		case <-ctx.Done():
			t.Fatalf("condition not reached, last state %+v", st)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestArmRequiresGuidedMode(t *testing.T) {
	eng := startEngine(t, fastConfig())
	ctx := context.Background()

	if err := eng.Do(ctx, ArmCommand{}); !errors.Is(err, ErrNotGuided) {
		t.Fatalf("arm in STABILIZE: got %v, want ErrNotGuided", err)
	}
	if err := eng.Do(ctx, SetModeCommand{Mode: ModeGuided}); err != nil {
		t.Fatalf("set mode: %v", err)
	}
	if err := eng.Do(ctx, ArmCommand{}); err != nil {
		t.Fatalf("arm: %v", err)
	}
	waitState(t, eng, func(st VehicleState) bool { return st.Armed })
}

func TestArmRejectedBeforeWarmup(t *testing.T) {
	cfg := fastConfig()
	cfg.ArmableAfter = time.Hour
	eng := startEngine(t, cfg)
	ctx := context.Background()

	st, err := eng.State(ctx)
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if st.Armable {
		t.Fatalf("vehicle armable before warm-up")
	}
	_ = eng.Do(ctx, SetModeCommand{Mode: ModeGuided})
	if err := eng.Do(ctx, ArmCommand{}); !errors.Is(err, ErrNotArmable) {
		t.Fatalf("got %v, want ErrNotArmable", err)
	}
}

func TestTakeoffAndGoTo(t *testing.T) {
	eng := startEngine(t, fastConfig())
	ctx := context.Background()

	if err := eng.Do(ctx, TakeoffCommand{Alt: 15}); !errors.Is(err, ErrNotGuided) {
		t.Fatalf("takeoff before guided: got %v", err)
	}
	_ = eng.Do(ctx, SetModeCommand{Mode: ModeGuided})
	if err := eng.Do(ctx, TakeoffCommand{Alt: 15}); !errors.Is(err, ErrNotArmed) {
		t.Fatalf("takeoff before arm: got %v", err)
	}
	if err := eng.Do(ctx, ArmCommand{}); err != nil {
		t.Fatalf("arm: %v", err)
	}
	waitState(t, eng, func(st VehicleState) bool { return st.Armed })

	if err := eng.Do(ctx, TakeoffCommand{Alt: 15}); err != nil {
		t.Fatalf("takeoff: %v", err)
	}
	waitState(t, eng, func(st VehicleState) bool { return st.Alt >= 15*0.95 })

	target := geo.GeoPoint{Lat: -35.3605, Lon: 149.168, Alt: 15}
	if err := eng.Do(ctx, GoToCommand{Lat: target.Lat, Lon: target.Lon, Alt: target.Alt}); err != nil {
		t.Fatalf("goto: %v", err)
	}
	st := waitState(t, eng, func(st VehicleState) bool { return st.ActiveCommand == "" })
	if d := geo.DistanceMeters(geo.GeoPoint{Lat: st.Lat, Lon: st.Lon}, target); d > 1 {
		t.Errorf("vehicle stopped %.1fm from target", d)
	}
}

func TestBatteryTelemetry(t *testing.T) {
	cfg := fastConfig()
	cfg.BatteryPercent = 42
	eng := startEngine(t, cfg)
	st, err := eng.State(context.Background())
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if st.Battery == nil || *st.Battery != 42 {
		t.Fatalf("battery = %v, want 42", st.Battery)
	}

	cfg.NoBatteryTelemetry = true
	eng = startEngine(t, cfg)
	st, err = eng.State(context.Background())
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if st.Battery != nil {
		t.Fatalf("battery = %v, want nil", *st.Battery)
	}
}

func TestUnknownMode(t *testing.T) {
	eng := startEngine(t, fastConfig())
	if err := eng.Do(context.Background(), SetModeCommand{Mode: "ACRO"}); !errors.Is(err, ErrUnknownMode) {
		t.Fatalf("got %v, want ErrUnknownMode", err)
	}
}

func TestGeoRefRoundTrip(t *testing.T) {
	g := GeoRef{OriginLat: -35.363261, OriginLon: 149.165230}
	p := geo.GeoPoint{Lat: -35.3605, Lon: 149.168, Alt: 15}
	back := g.toGeo(g.toLocal(p))
	if d := geo.DistanceMeters(p, back); d > 0.01 {
		t.Errorf("round trip drifted %.4fm", d)
	}
	if back.Alt != p.Alt {
		t.Errorf("alt = %v, want %v", back.Alt, p.Alt)
	}
}
