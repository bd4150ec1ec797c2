//go:build linux

package power

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coreos/go-systemd/v22/login1"

	"sleeptimer/pkg/logx"
)

const prepareForSleep = "PrepareForSleep"

// WatchWake calls onWake each time logind reports that the host resumed.
// It returns when ctx is done or the bus connection drops.
func WatchWake(ctx context.Context, log logx.Logger, onWake func(at time.Time)) error {
	conn, err := login1.New()
	if err != nil {
		return fmt.Errorf("%w: logind: %v", ErrUnsupported, err)
	}
	defer conn.Close()

	signals := conn.Subscribe(prepareForSleep)
	log.Debug("watching for resume")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sig, ok := <-signals:
			if !ok {
				return errors.New("logind signal channel closed")
			}
			if sig == nil || len(sig.Body) == 0 {
				continue
			}
			// Body[0] is true before suspend and false after resume.
			sleeping, ok := sig.Body[0].(bool)
			if !ok {
				continue
			}
			if sleeping {
				log.Info("host is going to sleep")
				continue
			}
			log.Info("host resumed")
			onWake(time.Now())
		}
	}
}
