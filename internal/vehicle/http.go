package vehicle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"flyto/internal/geo"
	"flyto/internal/sim"
)

// HTTPLink talks to a vehicle that exposes the simulator's JSON API.
type HTTPLink struct {
	base   string
	client *http.Client

	mu     sync.RWMutex
	closed bool
}

// NewHTTPLink builds a link for address, which may be "host:port" or a full
// http(s) URL. It does not contact the vehicle.
func NewHTTPLink(address string, client *http.Client) (*HTTPLink, error) {
	base, err := normalizeAddress(address)
	if err != nil {
		return nil, err
	}
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &HTTPLink{base: base, client: client}, nil
}

func normalizeAddress(address string) (string, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", fmt.Errorf("empty link address")
	}
	if !strings.Contains(address, "://") {
		address = "http://" + address
	}
	u, err := url.Parse(address)
	if err != nil {
		return "", fmt.Errorf("parse link address: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported link scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("link address %q has no host", address)
	}
	return strings.TrimRight(u.String(), "/"), nil
}

func (l *HTTPLink) Addr() string { return l.base }

// Ping checks that the vehicle endpoint answers its health check.
func (l *HTTPLink) Ping(ctx context.Context) error {
	resp, err := l.do(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return l.fail("ping", err)
	}
	resp.Body.Close()
	return nil
}

func (l *HTTPLink) IsArmable(ctx context.Context) (bool, error) {
	st, err := l.state(ctx, "is_armable")
	return st.Armable, err
}

func (l *HTTPLink) BatteryLevel(ctx context.Context) (float64, bool, error) {
	st, err := l.state(ctx, "battery_level")
	if err != nil || st.Battery == nil {
		return 0, false, err
	}
	return *st.Battery, true, nil
}

func (l *HTTPLink) CurrentPosition(ctx context.Context) (geo.GeoPoint, error) {
	st, err := l.state(ctx, "current_position")
	if err != nil {
		return geo.GeoPoint{}, err
	}
	return geo.GeoPoint{Lat: st.Lat, Lon: st.Lon, Alt: st.Alt}, nil
}

func (l *HTTPLink) FlightMode(ctx context.Context) (FlightMode, error) {
	st, err := l.state(ctx, "flight_mode")
	if err != nil {
		return ModeOther, err
	}
	m, err := ParseFlightMode(string(st.Mode))
	if err != nil {
		return ModeOther, l.fail("flight_mode", err)
	}
	return m, nil
}

func (l *HTTPLink) SetFlightMode(ctx context.Context, mode FlightMode) error {
	return l.command(ctx, "set_mode", "/command/mode", sim.SetModeCommand{Mode: simMode(mode)})
}

func (l *HTTPLink) Arm(ctx context.Context) error {
	return l.command(ctx, "arm", "/command/arm", sim.ArmCommand{})
}

func (l *HTTPLink) IsArmed(ctx context.Context) (bool, error) {
	st, err := l.state(ctx, "is_armed")
	return st.Armed, err
}

func (l *HTTPLink) Takeoff(ctx context.Context, altitudeMeters float64) error {
	return l.command(ctx, "takeoff", "/command/takeoff", sim.TakeoffCommand{Alt: altitudeMeters})
}

func (l *HTTPLink) GoTo(ctx context.Context, target geo.GeoPoint) error {
	return l.command(ctx, "goto", "/command/goto", sim.GoToCommand{Lat: target.Lat, Lon: target.Lon, Alt: target.Alt})
}

func (l *HTTPLink) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	l.client.CloseIdleConnections()
	return nil
}

func (l *HTTPLink) state(ctx context.Context, op string) (sim.VehicleState, error) {
	var st sim.VehicleState
	resp, err := l.do(ctx, http.MethodGet, "/state", nil)
	if err != nil {
		return st, l.fail(op, err)
	}
	defer resp.Body.Close()
	// Servers that only speak JSON ignore the msgpack preference.
	if strings.HasPrefix(resp.Header.Get("Content-Type"), sim.MsgpackContentType) {
		err = msgpack.NewDecoder(resp.Body).Decode(&st)
	} else {
		err = json.NewDecoder(resp.Body).Decode(&st)
	}
	if err != nil {
		return sim.VehicleState{}, l.fail(op, fmt.Errorf("decode state: %w", err))
	}
	return st, nil
}

func (l *HTTPLink) command(ctx context.Context, op, path string, body any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return l.fail(op, err)
	}
	resp, err := l.do(ctx, http.MethodPost, path, b)
	if err != nil {
		return l.fail(op, err)
	}
	resp.Body.Close()
	return nil
}

// do performs a request and turns non-2xx answers into errors carrying the
// server's message.
func (l *HTTPLink) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	l.mu.RLock()
	closed := l.closed
	l.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, l.base+path, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", sim.MsgpackContentType+", application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&e)
		if e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return nil, fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode, e.Error)
	}
	return resp, nil
}

func (l *HTTPLink) fail(op string, err error) error {
	return &LinkError{Op: op, Addr: l.base, Err: err}
}

func simMode(m FlightMode) sim.Mode {
	if m == ModeGuided {
		return sim.ModeGuided
	}
	return sim.ModeStabilize
}
