package config

// Config is the on-disk daemon configuration (JSON, or YAML by extension).
//
// All durations are Go duration strings (e.g. "500ms", "10s", "5m").
type Config struct {
	Logging   LoggingConfig   `json:"logging"`
	Timer     TimerConfig     `json:"timer"`
	Storage   StorageConfig   `json:"storage"`
	Notifier  NotifierConfig  `json:"notifier"`
	Power     PowerConfig     `json:"power"`
	Control   ControlConfig   `json:"control"`
	Autostart AutostartConfig `json:"autostart"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// TimerConfig holds the countdown knobs.
//
// Defaults (when fields are omitted/zero):
//   - warn_before: 60s
//   - snooze: 5m
//   - rearm_delay: 2s
//   - not_before: 10s
//   - tick: 1s
//   - timezone: host local time
type TimerConfig struct {
	Timezone   string `json:"timezone,omitempty"`
	WarnBefore string `json:"warn_before,omitempty"`
	Snooze     string `json:"snooze,omitempty"`
	RearmDelay string `json:"rearm_delay,omitempty"`
	NotBefore  string `json:"not_before,omitempty"`
	Tick       string `json:"tick,omitempty"`
	// ActionTimeout bounds one sleep invocation.
	ActionTimeout string `json:"action_timeout,omitempty"`
}

// StorageConfig selects the persistence driver.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./sleeptimer-data/schedule.json" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite
}

// NotifierConfig controls the async warning pipeline.
type NotifierConfig struct {
	Enabled     bool   `json:"enabled"`
	Workers     int    `json:"workers,omitempty"`
	QueueSize   int    `json:"queue_size,omitempty"`
	RatePerSec  int    `json:"rate_per_sec,omitempty"`
	RetryMax    int    `json:"retry_max,omitempty"`
	RetryBase   string `json:"retry_base,omitempty"`
	SendTimeout string `json:"send_timeout,omitempty"`
	DedupWindow string `json:"dedup_window,omitempty"`

	Title string `json:"title,omitempty"`
	Body  string `json:"body,omitempty"`

	// Desktop enables notify-send / osascript delivery.
	Desktop  bool           `json:"desktop"`
	Telegram TelegramConfig `json:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `json:"enabled"`
	Token    string `json:"token,omitempty"` // never logged
	ChatID   int64  `json:"chat_id,omitempty"`
	ThreadID int    `json:"thread_id,omitempty"`
	APIURL   string `json:"api_url,omitempty"`
}

type PowerConfig struct {
	// Driver is one of auto, login1, systemd, command, noop.
	Driver    string   `json:"driver"`
	Command   []string `json:"command,omitempty"`
	WatchWake bool     `json:"watch_wake"`
}

// ControlConfig controls the local HTTP API.
//
// Security note:
//   - Prefer binding to localhost (the default).
//   - A non-loopback address requires a token.
type ControlConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"`  // default: "127.0.0.1:7412"
	Token   string `json:"token,omitempty"` // optional bearer token (do not log)
	// Pprof mounts /debug/pprof/ on the same listener.
	Pprof bool `json:"pprof,omitempty"`
}

// AutostartConfig controls the login item. When Manage is false the login
// item is left alone at startup.
type AutostartConfig struct {
	Manage  bool `json:"manage"`
	Enabled bool `json:"enabled"`
}
