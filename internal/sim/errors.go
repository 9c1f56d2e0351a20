package sim

import (
	"errors"
	"fmt"
)

var (
	// ErrTickFailed marks a tick that did not complete. It is transient: the
	// runner retries after Config.RetryDelay.
	ErrTickFailed = errors.New("sim: tick failed")

	ErrInvalidConfig = errors.New("sim: invalid config")
	ErrQueueFull     = errors.New("sim: command queue full")
)

// TickError wraps a failed tick with the tick number it was attempting.
type TickError struct {
	Tick    int
	Wrapped error
}

func (e *TickError) Error() string {
	return fmt.Sprintf("tick %d: %v", e.Tick, e.Wrapped)
}

func (e *TickError) Unwrap() error {
	return e.Wrapped
}
