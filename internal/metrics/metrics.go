package metrics

import "time"

type PhaseMetrics struct {
	Phase      string    `json:"phase"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	DurationMs int64     `json:"duration_ms"`
	Polls      int       `json:"polls"`
	Success    bool      `json:"success"`
	Err        string    `json:"err,omitempty"`
}

type MissionMetrics struct {
	MissionID  string         `json:"mission_id"`
	Start      time.Time      `json:"start"`
	End        time.Time      `json:"end"`
	DurationMs int64          `json:"duration_ms"`
	Succeeded  bool           `json:"succeeded"`
	Outcome    string         `json:"outcome"`
	Phases     []PhaseMetrics `json:"phases"`
}

// Compute derived fields for a phase.
func (p *PhaseMetrics) Finalize() {
	p.DurationMs = p.End.Sub(p.Start).Milliseconds()
}

func (m *MissionMetrics) Finalize() {
	m.DurationMs = m.End.Sub(m.Start).Milliseconds()
}

// Phase returns the recorded metrics for the named phase, if any.
func (m *MissionMetrics) Phase(name string) (PhaseMetrics, bool) {
	for _, p := range m.Phases {
		if p.Phase == name {
			return p, true
		}
	}
	return PhaseMetrics{}, false
}
