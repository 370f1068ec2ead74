package supervisor

import (
	"flyto/internal/geo"
	"flyto/internal/sequencer"
)

type MissionResult struct {
	MissionID string            `json:"mission_id"`
	Name      string            `json:"name,omitempty"`
	Target    geo.GeoPoint      `json:"target"`
	Status    Status            `json:"status"`
	Error     string            `json:"error,omitempty"`
	Report    *sequencer.Report `json:"report,omitempty"`
}
