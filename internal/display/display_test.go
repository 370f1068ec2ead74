package display

import (
	"strings"
	"testing"
	"time"

	"flyto/internal/geo"
	"flyto/internal/metrics"
	"flyto/internal/sequencer"
	"flyto/internal/supervisor"
	"flyto/internal/targets"
	"flyto/internal/vehicle"
)

func TestFormatPreflight(t *testing.T) {
	res := sequencer.PreflightResult{
		Reason:        sequencer.ReasonTargetTooFar,
		Battery:       80,
		BatteryKnown:  true,
		Position:      geo.GeoPoint{Lat: -35.36, Lon: 149.16},
		Distance:      2500,
		DistanceKnown: true,
	}
	out := FormatPreflight(res)
	for _, want := range []string{"target too far: 2500.0m", "Battery:  80%", "Distance: 2500.0 m"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	out = FormatPreflight(sequencer.PreflightResult{Reason: sequencer.ReasonNotArmable})
	if strings.Contains(out, "Battery") || strings.Contains(out, "Distance") {
		t.Errorf("not-armable output should not report later checks:\n%s", out)
	}
}

func TestFormatReport(t *testing.T) {
	rep := &sequencer.Report{
		MissionID:      "abcd1234",
		Target:         geo.GeoPoint{Lat: 1, Lon: 2, Alt: 15},
		State:          sequencer.Done,
		SkippedTakeoff: true,
		Transitions: []sequencer.Transition{
			{From: sequencer.Idle, To: sequencer.Validating, At: time.Now(), Reason: "mission start"},
			{From: sequencer.Validating, To: sequencer.Cruising, At: time.Now(), Reason: strings.Repeat("x", 200)},
		},
	}
	out := FormatReport(rep)
	for _, want := range []string{"Mission abcd1234", "Final state: done", "already airborne", "validating"} {
		if !strings.Contains(strings.ToLower(out), strings.ToLower(want)) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if !strings.Contains(out, "...") || strings.Contains(out, strings.Repeat("x", 200)) {
		t.Errorf("expected long reason to be truncated:\n%s", out)
	}
	if FormatReport(nil) != "No report available." {
		t.Error("nil report")
	}
}

func TestFormatTransition(t *testing.T) {
	got := FormatTransition("id1", sequencer.Transition{From: sequencer.Arming, To: sequencer.TimedOut, Reason: "arming: timed out"})
	want := "[id1] arming -> timed_out (arming: timed out)"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatResultAndMissions(t *testing.T) {
	res := supervisor.MissionResult{MissionID: "m1", Name: "field", Status: supervisor.StatusRejected, Error: "pre-flight rejected: battery too low: 25%"}
	if got := FormatResult(res); got != "Mission m1 (field): REJECTED - pre-flight rejected: battery too low: 25%" {
		t.Errorf("FormatResult = %q", got)
	}

	if FormatMissions(nil) != "No missions submitted." {
		t.Error("empty missions")
	}
	out := FormatMissions([]supervisor.Mission{{ID: "m1", Status: supervisor.StatusRunning, State: sequencer.TakingOff}})
	if !strings.Contains(out, "RUNNING") || !strings.Contains(out, "taking_off") {
		t.Errorf("FormatMissions = %q", out)
	}
}

func TestFormatTargets(t *testing.T) {
	out := FormatTargets([]targets.NamedTarget{{Name: "lake", Point: geo.GeoPoint{Lat: 1, Lon: 2, Alt: 30}}})
	if !strings.Contains(out, "lake") || !strings.Contains(out, "30.0m") {
		t.Errorf("FormatTargets = %q", out)
	}
}

func TestFormatMissionMetrics(t *testing.T) {
	mm := &metrics.MissionMetrics{
		DurationMs: 1500,
		Outcome:    "timed_out",
		Phases: []metrics.PhaseMetrics{
			{Phase: "arming", DurationMs: 1200, Polls: 30, Success: false},
		},
	}
	out := FormatMissionMetrics(mm)
	if !strings.Contains(out, "outcome=timed_out") || !strings.Contains(out, "[err]") || !strings.Contains(out, "30 polls") {
		t.Errorf("FormatMissionMetrics = %q", out)
	}
	if FormatMissionMetrics(nil) != "No metrics available." {
		t.Error("nil metrics")
	}
}

func TestFormatSnapshot(t *testing.T) {
	got := FormatSnapshot(vehicle.Snapshot{
		Position: geo.GeoPoint{Lat: 1, Lon: 2, Alt: 3},
		Armable:  true,
		Mode:     vehicle.ModeGuided,
	})
	want := "Vehicle at (1.000000, 2.000000, 3.0m)  mode=GUIDED armable=true armed=false battery=unknown"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
