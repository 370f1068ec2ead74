package vehicle

import (
	"errors"
	"fmt"
)

var (
	ErrLink   = errors.New("vehicle link error")
	ErrClosed = errors.New("link closed")
)

// LinkError reports a failed connection or link operation.
type LinkError struct {
	Op   string
	Addr string
	Err  error
}

func (e *LinkError) Error() string {
	if e.Addr == "" {
		return fmt.Sprintf("link %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("link %s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *LinkError) Unwrap() error { return e.Err }

func (e *LinkError) Is(target error) bool { return target == ErrLink }
