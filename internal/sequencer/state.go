package sequencer

import "time"

type State int

const (
	Idle State = iota
	Validating
	Arming
	TakingOff
	Cruising
	Done

	// Aborted ends a mission before any vehicle command was issued: a
	// pre-flight rejection or a link failure while validating.
	Aborted
	TimedOut
	Cancelled
	// Failed ends a mission whose link failed after commands were issued.
	Failed
)

var stateNames = map[State]string{
	Idle:       "idle",
	Validating: "validating",
	Arming:     "arming",
	TakingOff:  "taking_off",
	Cruising:   "cruising",
	Done:       "done",
	Aborted:    "aborted",
	TimedOut:   "timed_out",
	Cancelled:  "cancelled",
	Failed:     "failed",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "unknown"
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s State) Terminal() bool {
	switch s {
	case Done, Aborted, TimedOut, Cancelled, Failed:
		return true
	}
	return false
}

type Transition struct {
	From   State     `json:"from"`
	To     State     `json:"to"`
	At     time.Time `json:"at"`
	Reason string    `json:"reason,omitempty"`
}
