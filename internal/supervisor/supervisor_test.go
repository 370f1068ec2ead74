package supervisor

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"flyto/internal/geo"
	"flyto/internal/sequencer"
	"flyto/internal/sim"
	"flyto/internal/vehicle"
)

var target = geo.GeoPoint{Lat: -35.3605, Lon: 149.168, Alt: 15}

func startSim(t *testing.T, ctx context.Context, armDelay time.Duration) *sim.Engine {
	t.Helper()
	cfg := sim.DefaultConfig()
	cfg.TickHz = 200
	cfg.ArmableAfter = 0
	cfg.ArmDelay = armDelay
	cfg.ClimbRate = 500
	eng := sim.New(cfg)
	go func() { _ = eng.Run(ctx) }()
	return eng
}

func fastConfig() sequencer.Config {
	cfg := sequencer.DefaultConfig()
	cfg.PollInterval = 5 * time.Millisecond
	cfg.ArmTimeout = 2 * time.Second
	cfg.TakeoffTimeout = 2 * time.Second
	return cfg
}

func waitResult(t *testing.T, s *Supervisor) MissionResult {
	t.Helper()
	select {
	case res := <-s.Results():
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for mission result")
	}
	return MissionResult{}
}

func TestStatusOf(t *testing.T) {
	testCases := []struct {
		outcome string
		want    Status
	}{
		{"done", StatusSucceeded},
		{"rejected", StatusRejected},
		{"timed_out", StatusTimedOut},
		{"cancelled", StatusCancelled},
		{"aborted", StatusFailed},
		{"failed", StatusFailed},
	}
	for _, tc := range testCases {
		if got := statusOf(tc.outcome); got != tc.want {
			t.Errorf("statusOf(%q) = %s, want %s", tc.outcome, got, tc.want)
		}
	}
}

func TestMissionsRunInOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eng := startSim(t, ctx, 10*time.Millisecond)

	var mu sync.Mutex
	seen := map[string][]sequencer.State{}
	s := New(vehicle.NewSimLink(eng), fastConfig(), WithTransitionHook(func(id string, tr sequencer.Transition) {
		mu.Lock()
		seen[id] = append(seen[id], tr.To)
		mu.Unlock()
	}))
	go func() { _ = s.Run(ctx) }()

	first, err := s.Submit("first", target)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	far := geo.GeoPoint{Lat: -35.0, Lon: 149.168, Alt: 15}
	second, err := s.Submit("far", far)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(first) != 8 || first == second {
		t.Errorf("ids = %q, %q", first, second)
	}

	res := waitResult(t, s)
	if res.MissionID != first || res.Status != StatusSucceeded || res.Error != "" {
		t.Fatalf("first result = %+v", res)
	}
	res = waitResult(t, s)
	if res.MissionID != second || res.Status != StatusRejected {
		t.Fatalf("second result = %+v", res)
	}
	if res.Report.Preflight.Reason != sequencer.ReasonTargetTooFar {
		t.Errorf("reason = %v, want target_too_far", res.Report.Preflight.Reason)
	}

	mu.Lock()
	got := seen[first]
	mu.Unlock()
	want := []sequencer.State{sequencer.Validating, sequencer.Arming, sequencer.TakingOff, sequencer.Cruising, sequencer.Done}
	if len(got) != len(want) {
		t.Fatalf("transitions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("transition %d = %v, want %v", i, got[i], want[i])
		}
	}

	ms := s.Missions()
	if len(ms) != 2 || ms[0].Status != StatusSucceeded || ms[1].Status != StatusRejected {
		t.Errorf("missions = %+v", ms)
	}
}

func TestCancelRunningMission(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eng := startSim(t, ctx, time.Hour)

	cfg := fastConfig()
	cfg.ArmTimeout = 0
	s := New(vehicle.NewSimLink(eng), cfg)

	// Hold the queue so the pending cancel below cannot race the worker.
	id, err := s.Submit("", target)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	pending, err := s.Submit("", target)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got, err := s.Cancel(pending); err != nil || got != pending {
		t.Fatalf("Cancel(pending) = %q, %v", got, err)
	}

	if _, err := s.Cancel(""); err == nil {
		t.Error("expected error cancelling with nothing running")
	}

	go func() { _ = s.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for {
		if m, ok := s.Current(); ok && m.State == sequencer.Arming {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("mission never reached arming")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if got, err := s.Cancel(""); err != nil || got != id {
		t.Fatalf("Cancel() = %q, %v", got, err)
	}
	res := waitResult(t, s)
	if res.MissionID != id || res.Status != StatusCancelled {
		t.Fatalf("result = %+v", res)
	}

	res = waitResult(t, s)
	if res.MissionID != pending || res.Status != StatusCancelled || res.Report != nil {
		t.Fatalf("pending result = %+v, want cancelled with no report", res)
	}
	if res.Error == "" {
		t.Error("pending result has no error message")
	}

	if _, err := s.Cancel(id); err == nil || !strings.Contains(err.Error(), "already") {
		t.Errorf("err = %v, want already finished", err)
	}
	if _, err := s.Cancel("nope"); err == nil {
		t.Error("expected error for unknown id")
	}
}

func TestSubmitRejectsInvalidTarget(t *testing.T) {
	s := New(nil, fastConfig())
	for _, p := range []geo.GeoPoint{
		{Lat: 123, Alt: 15},
		{Lat: -35.3605, Lon: 149.168, Alt: -5},
		{Lat: -35.3605, Lon: 149.168, Alt: 0},
	} {
		if id, err := s.Submit("", p); err == nil {
			t.Errorf("Submit(%v) = %q, want invalid target error", p, id)
		}
	}
	if ms := s.Missions(); len(ms) != 0 {
		t.Errorf("invalid targets were queued: %+v", ms)
	}
}

type closeCounter struct {
	vehicle.Link
	closed int
}

func (c *closeCounter) Close() error {
	c.closed++
	return c.Link.Close()
}

func TestReleaseLinkOnStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	eng := startSim(t, ctx, 10*time.Millisecond)

	link := &closeCounter{Link: vehicle.NewSimLink(eng)}
	cfg := fastConfig()
	cfg.ReleaseLink = true
	s := New(link, cfg)

	done := make(chan struct{})
	go func() {
		_ = s.Run(ctx)
		close(done)
	}()

	if _, err := s.Submit("", target); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res := waitResult(t, s); res.Status != StatusSucceeded {
		t.Fatalf("result = %+v", res)
	}
	if link.closed != 0 {
		t.Errorf("link closed %d times during missions", link.closed)
	}

	cancel()
	<-done
	if link.closed != 1 {
		t.Errorf("link closed %d times, want 1", link.closed)
	}
}

func TestSubmitQueueFull(t *testing.T) {
	s := New(nil, fastConfig())
	for i := 0; i < queueSize; i++ {
		if _, err := s.Submit("", target); err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
	}
	if _, err := s.Submit("", target); err != ErrQueueFull {
		t.Errorf("err = %v, want ErrQueueFull", err)
	}
	if got := len(s.Missions()); got != queueSize {
		t.Errorf("remembered %d missions, want %d", got, queueSize)
	}
}
