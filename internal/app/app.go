package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"ordernotify/internal/config"
	"ordernotify/internal/eventbus"
	"ordernotify/internal/history"
	"ordernotify/internal/notifier"
	"ordernotify/internal/platform"
	"ordernotify/internal/platform/console"
	tgplatform "ordernotify/internal/platform/telegram"
	"ordernotify/internal/presenter"
	"ordernotify/internal/runtime/supervisor"
	"ordernotify/internal/scheduler"
	"ordernotify/internal/settings"
	"ordernotify/internal/storage"
	kit "ordernotify/internal/transport"
	consoletransport "ordernotify/internal/transport/console"
	tgadapter "ordernotify/internal/transport/telegram/adapter"
	logx "ordernotify/pkg/logx"
)

type App struct {
	cfgm *config.ConfigManager
	sup  *supervisor.Supervisor

	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus

	store    storage.Store
	settings *settings.Store
	history  *history.Log

	transport   kit.Adapter
	platform    platform.Platform
	consolePlat *console.Platform // nil unless platform.kind=console

	notif *notifier.Service
	sched *scheduler.Scheduler
	pres  *presenter.Presenter

	updates chan kit.Update
}

type options struct {
	in  io.Reader
	out io.Writer
}

type Option func(*options)

// WithIO sets the terminal used by the console platform and transport.
// Default: stdin/stdout.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(o *options) { o.in, o.out = in, out }
}

// New loads the config and wires every component. Nothing runs until Start.
func New(cfgPath string, opts ...Option) (*App, error) {
	o := options{in: os.Stdin, out: logx.Stdout()}
	for _, opt := range opts {
		opt(&o)
	}

	cfgm := config.NewConfigManager(cfgPath)
	// Boot and hot reload share one validation path.
	cfgm.SetValidator(func(c *config.Config) error {
		_, err := config.Resolve(c)
		return err
	})
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	rt, err := config.Resolve(cfg)
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(cfg.LogxConfig())
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	cleanup := func() { _ = logSvc.Close() }

	bus := eventbus.New()

	store, err := storage.Open(mapStorageConfig(cfg, rt), log.With(logx.String("comp", "storage")))
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("open storage: %w", err)
	}
	cleanup = func() { _ = store.Close(); _ = logSvc.Close() }

	st := settings.NewStore(store, rt.Settings, log.With(logx.String("comp", "settings")))
	hist := history.New(store, log.With(logx.String("comp", "history")))

	a := &App{
		cfgm:     cfgm,
		log:      log.With(logx.String("comp", "app")),
		logs:     logSvc,
		bus:      bus,
		store:    store,
		settings: st,
		history:  hist,
		updates:  make(chan kit.Update, 64),
	}

	switch config.PlatformKind(cfg) {
	case "telegram":
		ad, err := tgadapter.New(mapAdapterConfig(cfg, rt), log.With(logx.String("comp", "telegram")))
		if err != nil {
			cleanup()
			return nil, err
		}
		target := kit.ChatTarget{ChatID: cfg.Platform.Telegram.ChatID, ThreadID: cfg.Platform.Telegram.ThreadID}
		a.transport = ad
		a.platform = tgplatform.New(ad, target, log.With(logx.String("comp", "platform")))
	default:
		cp := console.New(mapConsoleConfig(cfg), o.out, log.With(logx.String("comp", "platform")))
		a.consolePlat = cp
		a.platform = cp
		a.transport = consoletransport.New(o.in, o.out, log.With(logx.String("comp", "console")))
	}

	a.notif = notifier.New(mapNotifierConfig(cfg, rt), a.platform, bus, log.With(logx.String("comp", "notifier")))

	a.sched, err = scheduler.New(scheduler.Options{
		Settings:    st,
		History:     hist,
		Flags:       store,
		Permission:  a.platform,
		Dispatcher:  a.notif,
		Bus:         bus,
		Log:         log.With(logx.String("comp", "scheduler")),
		Location:    rt.Location,
		MinInterval: rt.MinInterval,
		DefaultIcon: rt.DefaultIcon,
	})
	if err != nil {
		cleanup()
		return nil, err
	}

	a.pres = presenter.New(mapPresenterConfig(cfg, rt), a.sched, st, hist, a.transport, bus, log.With(logx.String("comp", "presenter")))
	return a, nil
}

func (a *App) Scheduler() *scheduler.Scheduler { return a.sched }

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))
	run := a.sup.Context()

	if _, err := a.settings.Load(ctx); err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if _, err := a.history.Load(ctx); err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	a.notif.Start(run)

	if err := a.sched.Restore(ctx); err != nil {
		a.log.Warn("scheduler restore failed; starting disabled", logx.Err(err))
	}
	if a.cfgm.Get().Scheduler.Autostart {
		a.autostart(ctx)
	}

	if err := a.transport.Start(run, a.updates); err != nil {
		return fmt.Errorf("start transport: %w", err)
	}
	if mu, ok := a.transport.(kit.CommandMenuUpdater); ok {
		a.sup.Go("commands.menu", func(c context.Context) error {
			mctx, cancel := context.WithTimeout(c, 10*time.Second)
			defer cancel()
			if err := mu.UpdateMenuCommands(mctx, a.pres.MenuCommands()); err != nil {
				a.log.Warn("command menu update failed", logx.Err(err))
			}
			return nil
		})
	}

	a.sup.Go("presenter.run", func(c context.Context) error { return a.pres.Run(c, a.updates) })
	a.sup.Go("presenter.advisories", a.pres.RelayAdvisories)
	a.sup.Go("eventbus.log", a.logEvents)
	a.sup.Go("config.reload", a.reloadLoop)
	a.sup.Go("config.watch", a.cfgm.Watch)

	sdNotify(a.log, "READY=1")
	snap := a.sched.Snapshot()
	a.log.Info("app started",
		logx.String("platform", a.platform.Name()),
		logx.String("state", snap.State.String()),
		logx.Int("history", a.history.Len()),
	)
	return nil
}

// autostart brings the scheduler to Active on boot.
func (a *App) autostart(ctx context.Context) {
	if a.sched.State() == scheduler.Disabled {
		if err := a.sched.Enable(ctx); err != nil {
			a.log.Warn("autostart: enable failed", logx.Err(err))
			return
		}
	}
	if a.sched.State() != scheduler.Active {
		if err := a.sched.Start(ctx); err != nil {
			a.log.Warn("autostart: start failed", logx.Err(err))
		}
	}
}

func (a *App) logEvents(ctx context.Context) error {
	events, unsub := a.bus.Subscribe(128)
	defer unsub()
	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-events:
			if !ok {
				return nil
			}
			a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time))
		}
	}
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	sdNotify(a.log, "STOPPING=1")
	a.log.Info("stopping", logx.String("reason", string(reason)))

	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		stepCtx, cancel := context.WithTimeout(ctx, max)
		defer cancel()

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
		case <-stepCtx.Done():
			// fn must honor stepCtx; report the straggler and move on.
			a.log.Warn("stop step deadline reached (continuing)",
				logx.String("name", name),
				logx.Err(stepCtx.Err()),
				logx.Duration("elapsed", time.Since(start)),
			)
		}
	}

	// Timer first so no tick races the notifier drain. The notifier workers
	// run under the app context, so they drain before it is canceled.
	step("scheduler", 2*time.Second, a.sched.Close)
	step("notifier", 2*time.Second, func(c context.Context) error { a.notif.Stop(c); return nil })
	a.sup.Cancel()
	step("transport", 2*time.Second, a.transport.Stop)
	step("storage", time.Second, func(context.Context) error { return a.store.Close() })
	step("supervisor", 2*time.Second, a.sup.Wait)

	a.log.Info("stopped")
	return a.logs.Close()
}
