package config

import (
	"reflect"
	"strings"

	logx "sleeptimer/pkg/logx"
)

// Change summarises a config reload.
type Change struct {
	// Sections that differ, in file order.
	Sections []string
	// Restart lists changed sections that only take effect after a restart.
	Restart []string
	// Fields are safe to log (tokens are reported as set/unset only).
	Fields []logx.Field
}

func (c Change) Empty() bool { return len(c.Sections) == 0 }

// Has reports whether section changed.
func (c Change) Has(section string) bool {
	for _, s := range c.Sections {
		if s == section {
			return true
		}
	}
	return false
}

// SummarizeConfigChange compares two configs section by section.
func SummarizeConfigChange(oldCfg, newCfg *Config) Change {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}
	var ch Change
	mark := func(section string, restart bool, fields ...logx.Field) {
		ch.Sections = append(ch.Sections, section)
		if restart {
			ch.Restart = append(ch.Restart, section)
		}
		ch.Fields = append(ch.Fields, fields...)
	}

	if oldCfg.Logging != newCfg.Logging {
		mark("logging", false,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}
	if oldCfg.Timer != newCfg.Timer {
		restart := strings.TrimSpace(oldCfg.Timer.Timezone) != strings.TrimSpace(newCfg.Timer.Timezone) ||
			strings.TrimSpace(oldCfg.Timer.Tick) != strings.TrimSpace(newCfg.Timer.Tick)
		mark("timer", restart,
			logx.String("timer.warn_before", newCfg.Timer.WarnBefore),
			logx.String("timer.snooze", newCfg.Timer.Snooze),
			logx.String("timer.timezone", newCfg.Timer.Timezone),
		)
	}
	if oldCfg.Storage != newCfg.Storage {
		mark("storage", true,
			logx.String("storage.driver", newCfg.Storage.Driver),
			logx.String("storage.path", newCfg.Storage.Path),
		)
	}
	if oldCfg.Notifier != newCfg.Notifier {
		// Sinks and workers are built once.
		restart := oldCfg.Notifier.Desktop != newCfg.Notifier.Desktop ||
			oldCfg.Notifier.Telegram != newCfg.Notifier.Telegram ||
			oldCfg.Notifier.Workers != newCfg.Notifier.Workers
		mark("notifier", restart,
			logx.Bool("notifier.enabled", newCfg.Notifier.Enabled),
			logx.Bool("notifier.desktop", newCfg.Notifier.Desktop),
			logx.Bool("notifier.telegram_enabled", newCfg.Notifier.Telegram.Enabled),
			logx.Bool("notifier.telegram_token_set", strings.TrimSpace(newCfg.Notifier.Telegram.Token) != ""),
		)
	}
	if !reflect.DeepEqual(oldCfg.Power, newCfg.Power) {
		mark("power", true,
			logx.String("power.driver", newCfg.Power.Driver),
			logx.Bool("power.watch_wake", newCfg.Power.WatchWake),
		)
	}
	if oldCfg.Control != newCfg.Control {
		mark("control", true,
			logx.Bool("control.enabled", newCfg.Control.Enabled),
			logx.String("control.addr", newCfg.ControlAddr()),
			logx.Bool("control.token_set", strings.TrimSpace(newCfg.Control.Token) != ""),
			logx.Bool("control.pprof", newCfg.Control.Pprof),
		)
	}
	if oldCfg.Autostart != newCfg.Autostart {
		mark("autostart", false,
			logx.Bool("autostart.manage", newCfg.Autostart.Manage),
			logx.Bool("autostart.enabled", newCfg.Autostart.Enabled),
		)
	}
	if len(ch.Sections) > 0 {
		ch.Fields = append(ch.Fields, logx.String("changed", strings.Join(ch.Sections, ",")))
	}
	return ch
}
