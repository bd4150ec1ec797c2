//go:build linux

package power

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	login1Dest      = "org.freedesktop.login1"
	login1Path      = dbus.ObjectPath("/org/freedesktop/login1")
	login1Interface = "org.freedesktop.login1.Manager"
)

// Login1 asks systemd-logind to suspend over the system bus.
type Login1 struct {
	conn *dbus.Conn
	obj  dbus.BusObject
}

func newLogin1(ctx context.Context) (Executor, error) {
	conn, err := dbus.ConnectSystemBus(dbus.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("connect system bus: %w", err)
	}
	l := &Login1{conn: conn, obj: conn.Object(login1Dest, login1Path)}

	pctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	var can string
	if err := l.obj.CallWithContext(pctx, login1Interface+".CanSuspend", 0).Store(&can); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("CanSuspend: %w", err)
	}
	// "challenge" means polkit will decide at call time.
	if can != "yes" && can != "challenge" {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: logind CanSuspend=%s", ErrUnsupported, can)
	}
	return l, nil
}

func (*Login1) Name() string { return "login1" }

func (l *Login1) SleepNow(ctx context.Context) error {
	// interactive=false: never block on a polkit prompt.
	if err := l.obj.CallWithContext(ctx, login1Interface+".Suspend", 0, false).Err; err != nil {
		return &ActionError{Driver: l.Name(), Err: err}
	}
	return nil
}

func (l *Login1) Close() error { return l.conn.Close() }
