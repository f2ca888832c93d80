package app

import (
	"strings"
	"time"

	"ordernotify/internal/config"
	"ordernotify/internal/notifier"
	"ordernotify/internal/platform/console"
	"ordernotify/internal/presenter"
	"ordernotify/internal/storage"
	kit "ordernotify/internal/transport"
	tgadapter "ordernotify/internal/transport/telegram/adapter"
)

func mapStorageConfig(cfg *config.Config, rt config.Runtime) storage.Config {
	return storage.Config{
		Driver:      strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)),
		Path:        strings.TrimSpace(cfg.Storage.Path),
		BusyTimeout: rt.BusyTimeout,
	}
}

func mapNotifierConfig(cfg *config.Config, rt config.Runtime) notifier.Config {
	return notifier.Config{
		Workers:     cfg.Notifier.Workers,
		QueueSize:   cfg.Notifier.QueueSize,
		RatePerSec:  cfg.Notifier.RatePerSec,
		SendTimeout: rt.SendTimeout,
	}
}

func mapConsoleConfig(cfg *config.Config) console.Config {
	return console.Config{Permission: cfg.Platform.Permission}
}

func mapAdapterConfig(cfg *config.Config, rt config.Runtime) tgadapter.Config {
	return tgadapter.Config{Token: cfg.TelegramToken(), PollTimeout: rt.PollTimeout}
}

func mapPresenterConfig(cfg *config.Config, rt config.Runtime) presenter.Config {
	pc := presenter.Config{
		CommandTimeout: 15 * time.Second,
		Location:       rt.Location,
	}
	if config.PlatformKind(cfg) == "telegram" {
		pc.Chat = kit.ChatTarget{ChatID: cfg.Platform.Telegram.ChatID, ThreadID: cfg.Platform.Telegram.ThreadID}
	} else {
		pc.Local = true
	}
	return pc
}
