package sequencer

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrPreflightRejected = errors.New("pre-flight check rejected")
	ErrTimedOut          = errors.New("timed out")
	ErrAlreadyStarted    = errors.New("sequencer already started")
)

type RejectedError struct {
	Result PreflightResult
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("pre-flight rejected: %s", e.Result)
}

func (e *RejectedError) Is(target error) bool { return target == ErrPreflightRejected }

// TimeoutError reports a wait that did not finish within its bound.
type TimeoutError struct {
	Phase State
	After time.Duration
	Polls int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: timed out after %s (%d polls)", e.Phase, e.After, e.Polls)
}

func (e *TimeoutError) Is(target error) bool { return target == ErrTimedOut }
