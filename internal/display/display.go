package display

import (
	"fmt"
	"strings"

	"flyto/internal/sequencer"
	"flyto/internal/supervisor"
	"flyto/internal/targets"
	"flyto/internal/vehicle"
)

const maxReasonLength = 100

func FormatPreflight(res sequencer.PreflightResult) string {
	var sb strings.Builder
	sb.WriteString("Pre-flight check:\n")
	sb.WriteString("--------------------------------------------------\n")
	sb.WriteString(fmt.Sprintf("  Result:   %s\n", res))
	if res.BatteryKnown {
		sb.WriteString(fmt.Sprintf("  Battery:  %.0f%%\n", res.Battery))
	} else if res.Reason != sequencer.ReasonNotArmable {
		sb.WriteString("  Battery:  unknown\n")
	}
	if res.DistanceKnown {
		sb.WriteString(fmt.Sprintf("  Position: %s\n", res.Position))
		sb.WriteString(fmt.Sprintf("  Distance: %.1f m\n", res.Distance))
	}
	sb.WriteString("--------------------------------------------------")
	return sb.String()
}

func FormatSnapshot(snap vehicle.Snapshot) string {
	battery := "unknown"
	if snap.BatteryKnown {
		battery = fmt.Sprintf("%.0f%%", snap.Battery)
	}
	return fmt.Sprintf("Vehicle at %s  mode=%s armable=%v armed=%v battery=%s",
		snap.Position, snap.Mode, snap.Armable, snap.Armed, battery)
}

func FormatTransition(id string, t sequencer.Transition) string {
	prefix := ""
	if id != "" {
		prefix = "[" + id + "] "
	}
	return fmt.Sprintf("%s%s -> %s (%s)", prefix, t.From, t.To, truncate(t.Reason))
}

func FormatReport(rep *sequencer.Report) string {
	if rep == nil {
		return "No report available."
	}
	var sb strings.Builder
	if rep.MissionID != "" {
		sb.WriteString(fmt.Sprintf("Mission %s to %s\n", rep.MissionID, rep.Target))
	} else {
		sb.WriteString(fmt.Sprintf("Mission to %s\n", rep.Target))
	}
	sb.WriteString("--------------------------------------------------\n")
	sb.WriteString(fmt.Sprintf("  Final state: %s\n", rep.State))
	sb.WriteString(fmt.Sprintf("  Pre-flight:  %s\n", rep.Preflight))
	if rep.SkippedTakeoff {
		sb.WriteString("  Already airborne, arming and takeoff skipped\n")
	}
	for _, t := range rep.Transitions {
		sb.WriteString(fmt.Sprintf("  %-10s -> %-10s %s\n", t.From, t.To, truncate(t.Reason)))
	}
	sb.WriteString("--------------------------------------------------")
	return sb.String()
}

func FormatResult(res supervisor.MissionResult) string {
	name := res.Name
	if name == "" {
		name = res.Target.String()
	}
	line := fmt.Sprintf("Mission %s (%s): %s", res.MissionID, name, res.Status)
	if res.Error != "" {
		line += " - " + truncate(res.Error)
	}
	return line
}

func FormatMissions(ms []supervisor.Mission) string {
	if len(ms) == 0 {
		return "No missions submitted."
	}
	var sb strings.Builder
	for _, m := range ms {
		name := m.Name
		if name == "" {
			name = "-"
		}
		sb.WriteString(fmt.Sprintf("%-8s  %-10s %-11s %-12s %s\n", m.ID, m.Status, m.State, name, m.Target))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func FormatTargets(list []targets.NamedTarget) string {
	if len(list) == 0 {
		return "No targets loaded."
	}
	var sb strings.Builder
	sb.WriteString("Known targets:\n")
	for _, t := range list {
		sb.WriteString(fmt.Sprintf("  - %-16s %s\n", t.Name, t.Point))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func truncate(s string) string {
	s = strings.ReplaceAll(s, "\n", "\\n")
	if len(s) > maxReasonLength {
		return s[:maxReasonLength] + "..."
	}
	return s
}
