package config

import (
	"reflect"
	"strings"

	logx "ordernotify/pkg/logx"
)

// SummarizeConfigChange returns (1) the changed sections, (2) safe
// structured attrs for logging (never the bot token) and (3) the changed
// fields that only take effect after a restart.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field, []string) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 6)
	attrs := make([]logx.Field, 0, 16)
	restart := make([]string, 0, 4)

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	if oldCfg.Storage != newCfg.Storage {
		changed = append(changed, "storage")
		restart = append(restart, "storage")
		attrs = append(attrs,
			logx.String("storage.driver", newCfg.Storage.Driver),
			logx.String("storage.path", newCfg.Storage.Path),
		)
	}

	if oldCfg.Scheduler != newCfg.Scheduler {
		changed = append(changed, "scheduler")
		attrs = append(attrs,
			logx.String("scheduler.timezone", strings.TrimSpace(newCfg.Scheduler.Timezone)),
			logx.String("scheduler.min_interval", strings.TrimSpace(newCfg.Scheduler.MinInterval)),
		)
		if oldCfg.Scheduler.Autostart != newCfg.Scheduler.Autostart {
			restart = append(restart, "scheduler.autostart")
		}
	}

	if oldCfg.Notifier != newCfg.Notifier {
		changed = append(changed, "notifier")
		attrs = append(attrs,
			logx.Int("notifier.workers", newCfg.Notifier.Workers),
			logx.Int("notifier.queue_size", newCfg.Notifier.QueueSize),
			logx.Float64("notifier.rate_per_sec", newCfg.Notifier.RatePerSec),
			logx.String("notifier.send_timeout", strings.TrimSpace(newCfg.Notifier.SendTimeout)),
		)
		if oldCfg.Notifier.Workers != newCfg.Notifier.Workers || oldCfg.Notifier.QueueSize != newCfg.Notifier.QueueSize {
			restart = append(restart, "notifier.workers/queue_size")
		}
	}

	op, np := oldCfg.Platform, newCfg.Platform
	if op != np {
		changed = append(changed, "platform")
		attrs = append(attrs,
			logx.String("platform.kind", PlatformKind(newCfg)),
			logx.String("platform.permission", np.Permission),
			logx.String("platform.default_icon", np.DefaultIcon),
			logx.Bool("platform.telegram.token_set", strings.TrimSpace(np.Telegram.Token) != ""),
			logx.Int64("platform.telegram.chat_id", np.Telegram.ChatID),
		)
		if PlatformKind(oldCfg) != PlatformKind(newCfg) || op.Telegram != np.Telegram {
			restart = append(restart, "platform.kind/telegram")
		}
	}

	if !reflect.DeepEqual(oldCfg.Defaults, newCfg.Defaults) {
		// Seeds only; saved user settings win.
		changed = append(changed, "defaults")
	}

	return changed, attrs, restart
}
