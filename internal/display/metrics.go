package display

import (
	"fmt"
	"strings"

	"flyto/internal/metrics"
)

func FormatMissionMetrics(mm *metrics.MissionMetrics) string {
	if mm == nil {
		return "No metrics available."
	}
	var sb strings.Builder
	sb.WriteString("Mission metrics:\n")
	sb.WriteString(fmt.Sprintf("- Total: %d ms  (outcome=%s)\n", mm.DurationMs, mm.Outcome))
	for _, p := range mm.Phases {
		status := "ok"
		if !p.Success {
			status = "err"
		}
		sb.WriteString(fmt.Sprintf("    • %-12s %6d ms  %4d polls  [%s]\n",
			p.Phase, p.DurationMs, p.Polls, status))
	}
	return sb.String()
}
