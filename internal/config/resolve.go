package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"sleeptimer/internal/services/notify"
	"sleeptimer/internal/services/power"
	"sleeptimer/internal/services/sleeptimer"
	"sleeptimer/internal/storage"
	"sleeptimer/internal/trigger"
	logx "sleeptimer/pkg/logx"
)

const (
	DefaultControlAddr = "127.0.0.1:7412"
	DefaultStoragePath = "./sleeptimer-data/schedule.json"
	DefaultTick        = time.Second
)

// Default is the configuration written on first run.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
			File:    LoggingFile{Path: "./sleeptimer.log"},
		},
		Timer: TimerConfig{
			WarnBefore:    "60s",
			Snooze:        "5m",
			RearmDelay:    "2s",
			NotBefore:     "10s",
			Tick:          "1s",
			ActionTimeout: "30s",
		},
		Storage: StorageConfig{Driver: "file", Path: DefaultStoragePath},
		Notifier: NotifierConfig{
			Enabled:     true,
			RatePerSec:  1,
			QueueSize:   16,
			DedupWindow: "30s",
			Title:       sleeptimer.DefaultWarnTitle,
			Body:        sleeptimer.DefaultWarnBody,
			Desktop:     true,
		},
		Power:   PowerConfig{Driver: "auto", WatchWake: true},
		Control: ControlConfig{Enabled: true, Addr: DefaultControlAddr},
	}
}

// Validate checks everything that can be checked without side effects.
// It is used at startup and as the Watch validator.
func Validate(c *Config) error {
	if c == nil {
		return errors.New("config is nil")
	}
	var errs []error
	if !logx.ValidLevel(c.Logging.Level) {
		errs = append(errs, fmt.Errorf("logging.level: unknown level %q", c.Logging.Level))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Timing(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Tick(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.StorageSettings(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.NotifySettings(); err != nil {
		errs = append(errs, err)
	}
	if c.Notifier.Telegram.Enabled && (strings.TrimSpace(c.Notifier.Telegram.Token) == "" || c.Notifier.Telegram.ChatID == 0) {
		errs = append(errs, errors.New("notifier.telegram: token and chat_id are required when enabled"))
	}
	switch strings.ToLower(strings.TrimSpace(c.Power.Driver)) {
	case "", "auto", "login1", "systemd", "command", "noop", "none", "dry-run":
	default:
		errs = append(errs, fmt.Errorf("power.driver: unknown driver %q", c.Power.Driver))
	}
	if err := c.validateControl(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (c *Config) validateControl() error {
	if !c.Control.Enabled {
		return nil
	}
	host, _, err := net.SplitHostPort(c.ControlAddr())
	if err != nil {
		return fmt.Errorf("control.addr: %w", err)
	}
	if isLoopback(host) || strings.TrimSpace(c.Control.Token) != "" {
		return nil
	}
	return fmt.Errorf("control.addr: %q is not loopback; set control.token", c.ControlAddr())
}

func isLoopback(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func (c *Config) ControlAddr() string {
	if a := strings.TrimSpace(c.Control.Addr); a != "" {
		return a
	}
	return DefaultControlAddr
}

// Location resolves timer.timezone; empty means the host's local zone.
func (c *Config) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.Timer.Timezone)
	if tz == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("timer.timezone: %w", err)
	}
	return loc, nil
}

func (c *Config) Timing() (trigger.Config, error) {
	var (
		out trigger.Config
		err error
	)
	if out.WarnBefore, err = duration("timer.warn_before", c.Timer.WarnBefore, trigger.DefaultWarnBefore); err != nil {
		return out, err
	}
	if out.Snooze, err = duration("timer.snooze", c.Timer.Snooze, trigger.DefaultSnooze); err != nil {
		return out, err
	}
	if out.RearmDelay, err = duration("timer.rearm_delay", c.Timer.RearmDelay, trigger.DefaultRearmDelay); err != nil {
		return out, err
	}
	if out.NotBefore, err = duration("timer.not_before", c.Timer.NotBefore, 0); err != nil {
		return out, err
	}
	return out, nil
}

func (c *Config) Tick() (time.Duration, error) {
	d, err := duration("timer.tick", c.Timer.Tick, DefaultTick)
	if err != nil {
		return 0, err
	}
	if d < time.Second {
		return 0, fmt.Errorf("timer.tick: must be at least 1s, got %s", d)
	}
	return d, nil
}

// Service is the scheduling service configuration.
func (c *Config) Service() (sleeptimer.Config, error) {
	timing, err := c.Timing()
	if err != nil {
		return sleeptimer.Config{}, err
	}
	action, err := duration("timer.action_timeout", c.Timer.ActionTimeout, 0)
	if err != nil {
		return sleeptimer.Config{}, err
	}
	return sleeptimer.Config{
		Timing:        timing,
		WarnTitle:     strings.TrimSpace(c.Notifier.Title),
		WarnBody:      strings.TrimSpace(c.Notifier.Body),
		ActionTimeout: action,
	}, nil
}

func (c *Config) Log() logx.Config {
	return logx.Config{
		Level:   c.Logging.Level,
		Console: c.Logging.Console,
		File:    logx.FileConfig{Enabled: c.Logging.File.Enabled, Path: c.Logging.File.Path},
	}
}

func (c *Config) StorageSettings() (storage.Config, error) {
	busy, err := duration("storage.busy_timeout", c.Storage.BusyTimeout, 0)
	if err != nil {
		return storage.Config{}, err
	}
	path := strings.TrimSpace(c.Storage.Path)
	driver := strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	if path == "" && (driver == "file" || driver == "sqlite" || driver == "sqlite3") {
		path = DefaultStoragePath
	}
	return storage.Config{Driver: driver, Path: path, BusyTimeout: busy}, nil
}

func (c *Config) NotifySettings() (notify.Config, error) {
	n := c.Notifier
	out := notify.Config{
		Enabled:    n.Enabled,
		Workers:    n.Workers,
		QueueSize:  n.QueueSize,
		RatePerSec: n.RatePerSec,
		RetryMax:   n.RetryMax,
	}
	var err error
	if out.RetryBase, err = duration("notifier.retry_base", n.RetryBase, 0); err != nil {
		return out, err
	}
	if out.SendTimeout, err = duration("notifier.send_timeout", n.SendTimeout, 0); err != nil {
		return out, err
	}
	if out.DedupWindow, err = duration("notifier.dedup_window", n.DedupWindow, 0); err != nil {
		return out, err
	}
	return out, nil
}

func (c *Config) TelegramSettings() notify.TelegramConfig {
	t := c.Notifier.Telegram
	return notify.TelegramConfig{
		Token:    strings.TrimSpace(t.Token),
		ChatID:   t.ChatID,
		ThreadID: t.ThreadID,
		APIURL:   strings.TrimSpace(t.APIURL),
	}
}

func (c *Config) PowerSettings() power.Config {
	return power.Config{
		Driver:    c.Power.Driver,
		Command:   c.Power.Command,
		WatchWake: c.Power.WatchWake,
	}
}

// duration parses a config duration ("90s", "5m"); a bare number counts
// seconds. Empty or zero yields def. field names the key in errors.
func duration(field, raw string, def time.Duration) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		n, nerr := strconv.ParseInt(s, 10, 64)
		if nerr != nil {
			return 0, fmt.Errorf("%s: invalid duration %q", field, raw)
		}
		d = time.Duration(n) * time.Second
	}
	switch {
	case d < 0:
		return 0, fmt.Errorf("%s: must not be negative, got %s", field, s)
	case d == 0:
		return def, nil
	}
	return d, nil
}
