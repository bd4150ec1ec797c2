// Package autostart registers the daemon as a login item (XDG autostart
// entry, LaunchAgent or Startup shortcut, depending on the OS).
package autostart

import (
	"fmt"
	"os"
	"path/filepath"

	goautostart "github.com/emersion/go-autostart"

	"sleeptimer/pkg/logx"
)

const (
	AppName        = "sleeptimer"
	AppDisplayName = "Sleep Timer"
)

// item is the subset of *goautostart.App the registrar drives.
type item interface {
	IsEnabled() bool
	Enable() error
	Disable() error
}

// Registrar manages the login item. The OS entry is the source of truth:
// after a failed change IsRegistered reports what actually happened.
type Registrar struct {
	app item
	log logx.Logger
}

// New registers exec (the daemon's argv) under the default app name. An
// empty exec uses the running executable with "run".
func New(exec []string, log logx.Logger) (*Registrar, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	if len(exec) == 0 {
		self, err := Executable()
		if err != nil {
			return nil, err
		}
		exec = []string{self, "run"}
	}
	return &Registrar{
		app: &goautostart.App{Name: AppName, DisplayName: AppDisplayName, Exec: exec},
		log: log,
	}, nil
}

// Executable is the resolved path of the running binary.
func Executable() (string, error) {
	p, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("autostart: locate executable: %w", err)
	}
	if r, err := filepath.EvalSymlinks(p); err == nil {
		p = r
	}
	return p, nil
}

func (r *Registrar) IsRegistered() bool { return r.app.IsEnabled() }

func (r *Registrar) Register() error {
	if r.app.IsEnabled() {
		return nil
	}
	if err := r.app.Enable(); err != nil {
		r.log.Warn("autostart register failed", logx.Err(err))
		return fmt.Errorf("autostart: register: %w", err)
	}
	r.log.Info("autostart enabled")
	return nil
}

func (r *Registrar) Unregister() error {
	if !r.app.IsEnabled() {
		return nil
	}
	if err := r.app.Disable(); err != nil {
		r.log.Warn("autostart unregister failed", logx.Err(err))
		return fmt.Errorf("autostart: unregister: %w", err)
	}
	r.log.Info("autostart disabled")
	return nil
}

// Sync makes the login item match enable and returns the resulting state,
// which differs from enable only when err is non-nil.
func (r *Registrar) Sync(enable bool) (bool, error) {
	var err error
	if enable {
		err = r.Register()
	} else {
		err = r.Unregister()
	}
	return r.IsRegistered(), err
}
