//go:build linux

package power

import (
	"context"
	"fmt"

	sdbus "github.com/coreos/go-systemd/v22/dbus"
)

const suspendTarget = "suspend.target"

// Systemd starts suspend.target through the systemd manager.
type Systemd struct {
	conn *sdbus.Conn
}

func newSystemd(ctx context.Context) (Executor, error) {
	conn, err := sdbus.NewSystemConnectionContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to systemd: %w", err)
	}
	return &Systemd{conn: conn}, nil
}

func (*Systemd) Name() string { return "systemd" }

func (s *Systemd) SleepNow(ctx context.Context) error {
	done := make(chan string, 1)
	if _, err := s.conn.StartUnitContext(ctx, suspendTarget, "replace", done); err != nil {
		return &ActionError{Driver: s.Name(), Err: err}
	}
	select {
	case res := <-done:
		if res != "done" {
			return &ActionError{Driver: s.Name(), Err: fmt.Errorf("job %s: %s", suspendTarget, res)}
		}
		return nil
	case <-ctx.Done():
		return &ActionError{Driver: s.Name(), Err: ctx.Err()}
	}
}

func (s *Systemd) Close() error {
	s.conn.Close()
	return nil
}
