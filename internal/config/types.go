package config

// Config is the on-disk service configuration (JSON or YAML).
//
// All durations are Go duration strings ("500ms", "10s", "1m").
type Config struct {
	Logging   LoggingConfig   `json:"logging"`
	Storage   StorageConfig   `json:"storage"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Notifier  NotifierConfig  `json:"notifier"`
	Platform  PlatformConfig  `json:"platform"`

	// Defaults seeds the notification settings until the user saves their
	// own. Omitted fields keep the built-in defaults.
	Defaults *DefaultsConfig `json:"defaults,omitempty"`
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

// StorageConfig selects the key-value backend.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./data/ordernotify.db" }
type StorageConfig struct {
	Driver      string `json:"driver"` // file | sqlite | memory
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite only
}

type SchedulerConfig struct {
	// Timezone decides where a calendar day starts for the daily cap.
	// Empty means the host's local zone.
	Timezone string `json:"timezone,omitempty"`
	// MinInterval is used when the configured frequency is unusable.
	// Default "1m".
	MinInterval string `json:"min_interval,omitempty"`
	// Autostart enables notifications and starts the schedule on boot.
	Autostart bool `json:"autostart,omitempty"`
}

// NotifierConfig tunes the async dispatch pipeline.
//
// Defaults: workers 1, queue_size 64, rate_per_sec 1, send_timeout "10s".
type NotifierConfig struct {
	Workers     int     `json:"workers,omitempty"`
	QueueSize   int     `json:"queue_size,omitempty"`
	RatePerSec  float64 `json:"rate_per_sec,omitempty"`
	SendTimeout string  `json:"send_timeout,omitempty"`
}

type PlatformConfig struct {
	Kind string `json:"kind"` // console | telegram
	// Permission is the console platform's answer: granted | denied.
	Permission  string         `json:"permission,omitempty"`
	DefaultIcon string         `json:"default_icon,omitempty"`
	Telegram    TelegramConfig `json:"telegram"`
}

type TelegramConfig struct {
	Token       string `json:"token"`
	ChatID      int64  `json:"chat_id"`
	ThreadID    int    `json:"thread_id,omitempty"`
	PollTimeout string `json:"poll_timeout,omitempty"`
}

type DefaultsConfig struct {
	Frequency        *string  `json:"frequency,omitempty"`
	MaxNotifications *int     `json:"maxNotifications,omitempty"`
	OrderThreshold   *float64 `json:"orderThreshold,omitempty"`
	CustomBody       *string  `json:"customBody,omitempty"`
	StoreName        *string  `json:"storeName,omitempty"`
	CustomLogo       *string  `json:"customLogo,omitempty"`
}
