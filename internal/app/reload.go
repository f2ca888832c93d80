package app

import (
	"context"
	"strings"
	"time"

	"ordernotify/internal/config"
	"ordernotify/internal/eventbus"
	logx "ordernotify/pkg/logx"
)

// reloadLoop applies validated config reloads to the running components.
// Storage, platform kind, bot token and worker counts need a restart.
func (a *App) reloadLoop(ctx context.Context) error {
	sub := a.cfgm.Subscribe(8)
	defer a.cfgm.Unsubscribe(sub)

	lastApplied := a.cfgm.Get()
	for {
		select {
		case <-ctx.Done():
			return nil
		case newCfg, ok := <-sub:
			if !ok {
				return nil
			}
			newCfg = drainLatest(sub, newCfg)
			a.applyConfig(lastApplied, newCfg)
			lastApplied = newCfg
		}
	}
}

// drainLatest coalesces a burst of reloads into the newest one.
func drainLatest(sub <-chan *config.Config, cur *config.Config) *config.Config {
	for {
		select {
		case newer, ok := <-sub:
			if !ok || newer == nil {
				return cur
			}
			cur = newer
		default:
			return cur
		}
	}
}

func (a *App) applyConfig(oldCfg, newCfg *config.Config) {
	sections, attrs, restart := config.SummarizeConfigChange(oldCfg, newCfg)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}

	rt, err := config.Resolve(newCfg)
	if err != nil {
		// The manager validated it already; keep running on the old one.
		a.log.Warn("config reload unusable; keeping previous", logx.Err(err))
		return
	}
	a.logs.Apply(newCfg.LogxConfig())
	a.sched.Apply(rt.Location, rt.MinInterval, rt.DefaultIcon)
	a.notif.Apply(mapNotifierConfig(newCfg, rt))
	if a.consolePlat != nil {
		a.consolePlat.Apply(mapConsoleConfig(newCfg))
	}
	a.pres.Apply(mapPresenterConfig(newCfg, rt))

	if len(restart) > 0 {
		a.log.Warn("config changes need a restart to take effect", logx.String("fields", strings.Join(restart, ",")))
	}
	a.bus.Publish(eventbus.Event{Type: eventbus.TypeConfigReload, Time: time.Now(), Data: sections})
	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config reloaded", fields...)
}
