package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"ordernotify/internal/settings"
	logx "ordernotify/pkg/logx"
)

// Runtime holds the parsed, defaulted values derived from a Config.
type Runtime struct {
	Location    *time.Location
	MinInterval time.Duration
	BusyTimeout time.Duration
	SendTimeout time.Duration
	PollTimeout time.Duration
	DefaultIcon string
	Settings    settings.Settings
}

// DefaultIcon is shown when no custom logo is set.
const DefaultIcon = "/shopify-logo.jpg"

// Resolve parses and checks cfg. It is used both at boot and as the reload
// validator, so a bad edit never replaces a working config.
func Resolve(cfg *Config) (Runtime, error) {
	if cfg == nil {
		return Runtime{}, errors.New("config is nil")
	}
	var rt Runtime
	var err error

	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)) {
	case "", "memory", "none":
	case "file", "sqlite", "sqlite3":
		if strings.TrimSpace(cfg.Storage.Path) == "" {
			return rt, errors.New("storage.path is required for driver " + cfg.Storage.Driver)
		}
	default:
		return rt, fmt.Errorf("storage.driver: unknown driver %q", cfg.Storage.Driver)
	}
	if rt.BusyTimeout, err = ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout); err != nil {
		return rt, err
	}

	rt.Location = time.Local
	if tz := strings.TrimSpace(cfg.Scheduler.Timezone); tz != "" {
		if rt.Location, err = time.LoadLocation(tz); err != nil {
			return rt, fmt.Errorf("scheduler.timezone: %w", err)
		}
	}
	if rt.MinInterval, err = ParseDurationOrDefault("scheduler.min_interval", cfg.Scheduler.MinInterval, time.Minute); err != nil {
		return rt, err
	}
	if rt.MinInterval < time.Second {
		return rt, errors.New("scheduler.min_interval must be at least 1s")
	}

	if cfg.Notifier.Workers < 0 || cfg.Notifier.QueueSize < 0 || cfg.Notifier.RatePerSec < 0 {
		return rt, errors.New("notifier: workers, queue_size and rate_per_sec must be >= 0")
	}
	if rt.SendTimeout, err = ParseDurationOrDefault("notifier.send_timeout", cfg.Notifier.SendTimeout, 10*time.Second); err != nil {
		return rt, err
	}

	switch PlatformKind(cfg) {
	case "console":
		switch strings.ToLower(strings.TrimSpace(cfg.Platform.Permission)) {
		case "", "granted", "denied":
		default:
			return rt, fmt.Errorf("platform.permission: want granted or denied, got %q", cfg.Platform.Permission)
		}
	case "telegram":
		if cfg.TelegramToken() == "" {
			return rt, errors.New("platform.telegram.token is required")
		}
		if cfg.Platform.Telegram.ChatID == 0 {
			return rt, errors.New("platform.telegram.chat_id is required")
		}
	default:
		return rt, fmt.Errorf("platform.kind: unknown platform %q", cfg.Platform.Kind)
	}
	if rt.PollTimeout, err = ParseDurationOrDefault("platform.telegram.poll_timeout", cfg.Platform.Telegram.PollTimeout, 10*time.Second); err != nil {
		return rt, err
	}

	rt.DefaultIcon = strings.TrimSpace(cfg.Platform.DefaultIcon)
	if rt.DefaultIcon == "" {
		rt.DefaultIcon = DefaultIcon
	}

	rt.Settings = cfg.InitialSettings()
	if err := settings.Validate(rt.Settings); err != nil {
		return rt, fmt.Errorf("defaults: %w", err)
	}
	return rt, nil
}

// PlatformKind returns the normalized platform kind ("console" when empty).
func PlatformKind(cfg *Config) string {
	k := strings.ToLower(strings.TrimSpace(cfg.Platform.Kind))
	if k == "" {
		return "console"
	}
	return k
}

// InitialSettings overlays the configured defaults on the built-in ones.
func (c *Config) InitialSettings() settings.Settings {
	s := settings.Defaults()
	d := c.Defaults
	if d == nil {
		return s
	}
	if d.Frequency != nil {
		s.Frequency = *d.Frequency
	}
	if d.MaxNotifications != nil {
		s.MaxNotifications = *d.MaxNotifications
	}
	if d.OrderThreshold != nil {
		s.OrderThreshold = *d.OrderThreshold
	}
	if d.CustomBody != nil {
		s.CustomBody = *d.CustomBody
	}
	if d.StoreName != nil {
		s.StoreName = *d.StoreName
	}
	if d.CustomLogo != nil && strings.TrimSpace(*d.CustomLogo) != "" {
		v := *d.CustomLogo
		s.CustomLogo = &v
	}
	return s
}

// TelegramToken returns the bot token. A value of the form "env:NAME" is
// read from the environment so the file can be committed without secrets.
func (c *Config) TelegramToken() string {
	tok := strings.TrimSpace(c.Platform.Telegram.Token)
	if name, ok := strings.CutPrefix(tok, "env:"); ok {
		return strings.TrimSpace(os.Getenv(strings.TrimSpace(name)))
	}
	return tok
}

// LogxConfig maps the logging section onto logx.
func (c *Config) LogxConfig() logx.Config {
	return logx.Config{
		Level:   c.Logging.Level,
		Console: c.Logging.Console,
		File:    logx.FileConfig{Enabled: c.Logging.File.Enabled, Path: c.Logging.File.Path},
	}
}
