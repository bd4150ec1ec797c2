//go:build !linux

package power

import (
	"context"
	"time"

	"sleeptimer/pkg/logx"
)

func newLogin1(ctx context.Context) (Executor, error) {
	_ = ctx
	return nil, ErrUnsupported
}

func newSystemd(ctx context.Context) (Executor, error) {
	_ = ctx
	return nil, ErrUnsupported
}

// WatchWake is only implemented on linux.
func WatchWake(ctx context.Context, log logx.Logger, onWake func(at time.Time)) error {
	_, _, _ = ctx, log, onWake
	return ErrUnsupported
}
