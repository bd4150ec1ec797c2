// Package power puts the host to sleep and reports when it wakes up.
package power

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnsupported means the driver cannot work on this host.
var ErrUnsupported = errors.New("power driver unsupported on this platform")

// Executor performs the sleep action.
type Executor interface {
	Name() string
	SleepNow(ctx context.Context) error
}

// ActionError is a failed sleep invocation.
type ActionError struct {
	Driver string
	Err    error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("sleep via %s failed: %v", e.Driver, e.Err)
}

func (e *ActionError) Unwrap() error { return e.Err }

type Config struct {
	// Driver is one of auto, login1, systemd, command, noop.
	Driver string
	// Command overrides the argv used by the command driver.
	Command []string
	// WatchWake enables resume notifications (linux/logind only).
	WatchWake bool
}
