package vehicle

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"flyto/internal/geo"
	"flyto/internal/sim"
	"flyto/internal/sim/api"
)

func startSim(t *testing.T, cfg sim.Config) *sim.Engine {
	t.Helper()
	eng := sim.New(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = eng.Run(ctx) }()
	t.Cleanup(cancel)
	return eng
}

func fastSimConfig() sim.Config {
	cfg := sim.DefaultConfig()
	cfg.TickHz = 200
	cfg.ArmableAfter = 0
	cfg.ArmDelay = 0
	cfg.ClimbRate = 200
	cfg.BatteryPercent = 87
	return cfg
}

func TestParseFlightMode(t *testing.T) {
	testCases := []struct {
		in      string
		want    FlightMode
		wantErr bool
	}{
		{in: "GUIDED", want: ModeGuided},
		{in: "guided", want: ModeGuided},
		{in: "STABILIZE", want: ModeOther},
		{in: "LOITER", want: ModeOther},
		{in: " ", want: ModeOther, wantErr: true},
	}
	for _, tc := range testCases {
		got, err := ParseFlightMode(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseFlightMode(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
		}
		if got != tc.want {
			t.Errorf("ParseFlightMode(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeAddress(t *testing.T) {
	testCases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "127.0.0.1:14550", want: "http://127.0.0.1:14550"},
		{in: "http://drone.local:8080/", want: "http://drone.local:8080"},
		{in: "udp://127.0.0.1:14550", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range testCases {
		got, err := normalizeAddress(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("normalizeAddress(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			continue
		}
		if got != tc.want {
			t.Errorf("normalizeAddress(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestConnectAndDriveOverHTTP(t *testing.T) {
	eng := startSim(t, fastSimConfig())
	ts := httptest.NewServer(api.NewServer(eng).Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	link, err := Connect(ctx, ts.URL, WithConnectTimeout(time.Second))
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer link.Close()

	snap, err := ReadSnapshot(ctx, link)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if !snap.Armable || snap.Armed || snap.Mode != ModeOther {
		t.Errorf("unexpected initial snapshot %+v", snap)
	}
	if !snap.BatteryKnown || snap.Battery != 87 {
		t.Errorf("battery = %v (known=%v), want 87", snap.Battery, snap.BatteryKnown)
	}

	if err := link.Arm(ctx); !errors.Is(err, ErrLink) {
		t.Fatalf("arm outside GUIDED: got %v, want ErrLink", err)
	}
	if err := link.SetFlightMode(ctx, ModeGuided); err != nil {
		t.Fatalf("SetFlightMode: %v", err)
	}
	if m, err := link.FlightMode(ctx); err != nil || m != ModeGuided {
		t.Fatalf("FlightMode = %v, %v", m, err)
	}
	if err := link.Arm(ctx); err != nil {
		t.Fatalf("Arm: %v", err)
	}
	for {
		armed, err := link.IsArmed(ctx)
		if err != nil {
			t.Fatalf("IsArmed: %v", err)
		}
		if armed {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if err := link.Takeoff(ctx, 10); err != nil {
		t.Fatalf("Takeoff: %v", err)
	}
	if err := link.GoTo(ctx, geo.GeoPoint{Lat: -35.3605, Lon: 149.168, Alt: 10}); err != nil {
		t.Fatalf("GoTo: %v", err)
	}

	_ = link.Close()
	if _, err := link.IsArmed(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("after Close: got %v, want ErrClosed", err)
	}
}

func TestConnectTimesOut(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, `{"error":"booting"}`, http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	_, err := Connect(context.Background(), ts.URL,
		WithConnectTimeout(100*time.Millisecond),
		WithRetryInterval(10*time.Millisecond))
	if !errors.Is(err, ErrLink) {
		t.Fatalf("got %v, want ErrLink", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error %v does not carry the deadline", err)
	}
	if hits.Load() < 2 {
		t.Errorf("health endpoint hit %d times, want retries", hits.Load())
	}
}

func TestConnectRejectsBadAddress(t *testing.T) {
	_, err := Connect(context.Background(), "serial:///dev/ttyUSB0")
	var le *LinkError
	if !errors.As(err, &le) || le.Op != "connect" {
		t.Fatalf("got %v, want connect LinkError", err)
	}
}

func TestSimLink(t *testing.T) {
	cfg := fastSimConfig()
	cfg.NoBatteryTelemetry = true
	link := NewSimLink(startSim(t, cfg))
	ctx := context.Background()

	if _, ok, err := link.BatteryLevel(ctx); err != nil || ok {
		t.Errorf("BatteryLevel ok = %v, err = %v; want no telemetry", ok, err)
	}
	pos, err := link.CurrentPosition(ctx)
	if err != nil {
		t.Fatalf("CurrentPosition: %v", err)
	}
	if pos.Lat != cfg.HomeLat || pos.Lon != cfg.HomeLon || pos.Alt != 0 {
		t.Errorf("position = %v, want home", pos)
	}
	if err := link.Takeoff(ctx, 5); !errors.Is(err, sim.ErrNotGuided) {
		t.Errorf("Takeoff: got %v, want ErrNotGuided", err)
	}
	_ = link.Close()
	if err := link.Arm(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("Arm after Close: got %v", err)
	}
}
