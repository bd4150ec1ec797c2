package notify

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"sleeptimer/pkg/logx"
)

// LogSink writes warnings to the structured log. It is always installed so a
// headless host still leaves a trace.
type LogSink struct{ Log logx.Logger }

func (LogSink) Name() string { return "log" }

func (s LogSink) Send(ctx context.Context, m Message) error {
	_ = ctx
	s.Log.Warn(m.Body, logx.String("title", m.Title))
	return nil
}

// ErrNoDesktop is returned when no desktop notifier exists for the host.
var ErrNoDesktop = errors.New("no desktop notifier for this platform")

// DesktopSink shows a native notification through the platform's CLI helper.
type DesktopSink struct {
	// GOOS selects the helper (runtime.GOOS when empty).
	GOOS string
	// Run executes argv; exec.CommandContext when nil.
	Run func(ctx context.Context, argv []string) error
}

func (DesktopSink) Name() string { return "desktop" }

func (s DesktopSink) Send(ctx context.Context, m Message) error {
	argv, err := DesktopCommand(s.goos(), m)
	if err != nil {
		return err
	}
	run := s.Run
	if run == nil {
		run = runCommand
	}
	if err := run(ctx, argv); err != nil {
		return fmt.Errorf("%s: %w", argv[0], err)
	}
	return nil
}

func (s DesktopSink) goos() string {
	if s.GOOS != "" {
		return s.GOOS
	}
	return runtime.GOOS
}

// DesktopCommand builds the helper invocation for goos.
func DesktopCommand(goos string, m Message) ([]string, error) {
	switch goos {
	case "linux", "freebsd", "openbsd", "netbsd":
		return []string{"notify-send", "--app-name=sleeptimer", "--urgency=critical", m.Title, m.Body}, nil
	case "darwin":
		script := fmt.Sprintf("display notification %s with title %s", appleScriptString(m.Body), appleScriptString(m.Title))
		return []string{"osascript", "-e", script}, nil
	default:
		return nil, ErrNoDesktop
	}
}

func appleScriptString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

func runCommand(ctx context.Context, argv []string) error {
	out, err := exec.CommandContext(ctx, argv[0], argv[1:]...).CombinedOutput()
	if err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}
