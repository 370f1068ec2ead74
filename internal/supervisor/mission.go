package supervisor

import (
	"time"

	"flyto/internal/geo"
	"flyto/internal/sequencer"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusRunning   Status = "RUNNING"
	StatusSucceeded Status = "SUCCEEDED"
	StatusRejected  Status = "REJECTED"
	StatusTimedOut  Status = "TIMED_OUT"
	StatusCancelled Status = "CANCELLED"
	StatusFailed    Status = "FAILED"
)

func (s Status) Terminal() bool {
	return s != StatusPending && s != StatusRunning
}

type Mission struct {
	ID          string          `json:"id"`
	Name        string          `json:"name,omitempty"`
	Target      geo.GeoPoint    `json:"target"`
	Status      Status          `json:"status"`
	State       sequencer.State `json:"state"`
	SubmittedAt time.Time       `json:"submitted_at"`
}

// statusOf maps a mission outcome to its queue status.
func statusOf(outcome string) Status {
	switch outcome {
	case "done":
		return StatusSucceeded
	case "rejected":
		return StatusRejected
	case "timed_out":
		return StatusTimedOut
	case "cancelled":
		return StatusCancelled
	}
	return StatusFailed
}
