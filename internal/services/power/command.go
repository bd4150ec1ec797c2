package power

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// DefaultCommand is the stock sleep invocation for goos.
func DefaultCommand(goos string) ([]string, error) {
	switch goos {
	case "darwin":
		return []string{"pmset", "sleepnow"}, nil
	case "linux":
		return []string{"systemctl", "suspend"}, nil
	case "freebsd":
		return []string{"acpiconf", "-s", "3"}, nil
	case "windows":
		return []string{"rundll32.exe", "powrprof.dll,SetSuspendState", "0,1,0"}, nil
	default:
		return nil, ErrUnsupported
	}
}

// Command runs an external program to sleep the host.
type Command struct {
	Argv []string
	// Run executes argv; exec.CommandContext when nil.
	Run func(ctx context.Context, argv []string) error
}

// NewCommand uses argv, or the platform default when argv is empty.
func NewCommand(argv []string, goos string) (*Command, error) {
	if len(argv) == 0 {
		def, err := DefaultCommand(goos)
		if err != nil {
			return nil, err
		}
		argv = def
	}
	if strings.TrimSpace(argv[0]) == "" {
		return nil, fmt.Errorf("power.command: empty program name")
	}
	return &Command{Argv: append([]string(nil), argv...)}, nil
}

func (*Command) Name() string { return "command" }

func (c *Command) SleepNow(ctx context.Context) error {
	run := c.Run
	if run == nil {
		run = runArgv
	}
	if err := run(ctx, c.Argv); err != nil {
		return &ActionError{Driver: c.Name(), Err: err}
	}
	return nil
}

func runArgv(ctx context.Context, argv []string) error {
	out, err := exec.CommandContext(ctx, argv[0], argv[1:]...).CombinedOutput()
	if err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("%s: %w: %s", argv[0], err, msg)
		}
		return fmt.Errorf("%s: %w", argv[0], err)
	}
	return nil
}
