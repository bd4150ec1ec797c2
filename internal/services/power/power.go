package power

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"sleeptimer/pkg/logx"
)

const probeTimeout = 2 * time.Second

// New builds the configured executor. "auto" prefers logind, then the
// systemd manager, then the platform command. Bus connections opened by the
// executor live until ctx is done.
func New(ctx context.Context, cfg Config, log logx.Logger) (Executor, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "noop", "none", "dry-run":
		return Noop{Log: log}, nil
	case "command":
		return NewCommand(cfg.Command, runtime.GOOS)
	case "login1":
		return newLogin1(ctx)
	case "systemd":
		return newSystemd(ctx)
	case "", "auto":
		return auto(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("unknown power driver %q", cfg.Driver)
	}
}

func auto(ctx context.Context, cfg Config, log logx.Logger) (Executor, error) {
	ex, err := newLogin1(ctx)
	if err == nil {
		return ex, nil
	}
	log.Debug("login1 unavailable", logx.Err(err))

	ex, err = newSystemd(ctx)
	if err == nil {
		return ex, nil
	}
	log.Debug("systemd manager unavailable", logx.Err(err))

	return NewCommand(cfg.Command, runtime.GOOS)
}

// Noop logs instead of sleeping (dry-run).
type Noop struct{ Log logx.Logger }

func (Noop) Name() string { return "noop" }

func (n Noop) SleepNow(ctx context.Context) error {
	_ = ctx
	n.Log.Info("sleep requested (dry-run)")
	return nil
}
