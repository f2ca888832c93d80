package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"ordernotify/internal/clock"
	"ordernotify/internal/eventbus"
	"ordernotify/internal/history"
	"ordernotify/internal/order"
	"ordernotify/internal/platform"
	"ordernotify/internal/settings"
	"ordernotify/internal/storage"
	logx "ordernotify/pkg/logx"
)

// PermissionRequester asks the platform for permission to notify.
type PermissionRequester interface {
	RequestPermission(ctx context.Context) (bool, error)
}

// Dispatcher hands a notification to the delivery pipeline without waiting
// for the platform.
type Dispatcher interface {
	Dispatch(ctx context.Context, n platform.Notification) (string, error)
}

// Options wires the scheduler. Settings, History, Flags, Permission and
// Dispatcher are required.
type Options struct {
	Settings   *settings.Store
	History    *history.Log
	Flags      storage.Store
	Permission PermissionRequester
	Dispatcher Dispatcher

	Generator   *order.Generator // default: real clock, time-seeded
	Clock       clock.Clock      // default: clock.Real
	Bus         eventbus.Bus
	Log         logx.Logger
	Location    *time.Location // calendar day for the daily cap; default time.Local
	MinInterval time.Duration  // fallback for malformed frequencies; default MinInterval
	DefaultIcon string
}

type Scheduler struct {
	settings   *settings.Store
	history    *history.Log
	flags      storage.Store
	permission PermissionRequester
	dispatcher Dispatcher
	gen        *order.Generator
	clock      clock.Clock
	bus        eventbus.Bus
	log        logx.Logger

	// tickMu serializes Tick and SendTest against each other.
	tickMu sync.Mutex

	mu           sync.Mutex
	loc          *time.Location
	minInterval  time.Duration
	defaultIcon  string
	state        State
	cron         *cron.Cron
	cronRunning  bool
	entry        cron.EntryID
	interval     time.Duration
	frequency    string
	dailyCount   int
	lastResetDay string
}

func New(opts Options) (*Scheduler, error) {
	switch {
	case opts.Settings == nil:
		return nil, errors.New("scheduler: settings store is required")
	case opts.History == nil:
		return nil, errors.New("scheduler: history log is required")
	case opts.Flags == nil:
		return nil, errors.New("scheduler: flag storage is required")
	case opts.Permission == nil:
		return nil, errors.New("scheduler: permission requester is required")
	case opts.Dispatcher == nil:
		return nil, errors.New("scheduler: dispatcher is required")
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Generator == nil {
		opts.Generator = order.NewGenerator(opts.Clock, nil)
	}
	if opts.Bus == nil {
		opts.Bus = eventbus.Nop()
	}
	if opts.Log.IsZero() {
		opts.Log = logx.Nop()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.MinInterval <= 0 {
		opts.MinInterval = MinInterval
	}
	s := &Scheduler{
		settings:    opts.Settings,
		history:     opts.History,
		flags:       opts.Flags,
		permission:  opts.Permission,
		dispatcher:  opts.Dispatcher,
		gen:         opts.Generator,
		clock:       opts.Clock,
		bus:         opts.Bus,
		log:         opts.Log,
		loc:         opts.Location,
		minInterval: opts.MinInterval,
		defaultIcon: opts.DefaultIcon,
	}
	s.cron = s.newCronLocked()
	return s, nil
}

func (s *Scheduler) newCronLocked() *cron.Cron {
	cl := cronLogger{log: s.log}
	return cron.New(
		cron.WithLocation(s.loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
}

// Apply updates runtime tunables. A location change replaces the cron
// runner and reinstalls the timer when Active.
func (s *Scheduler) Apply(loc *time.Location, minInterval time.Duration, defaultIcon string) {
	s.mu.Lock()
	if minInterval > 0 {
		s.minInterval = minInterval
	}
	s.defaultIcon = defaultIcon
	if loc == nil || loc.String() == s.loc.String() {
		s.mu.Unlock()
		return
	}
	s.loc = loc
	old, wasRunning := s.cron, s.cronRunning
	s.cron = s.newCronLocked()
	s.cronRunning = false
	s.entry = 0
	if s.state == Active {
		s.installLocked(s.settings.Current().Frequency)
	}
	s.mu.Unlock()

	// A tick in flight on the old runner needs s.mu, so wait unlocked.
	if wasRunning {
		<-old.Stop().Done()
	}
	s.log.Info("scheduler timezone changed", logx.String("tz", loc.String()))
}

// Restore re-enters the persisted state after a restart: enabled resumes
// Idle and enabled+active resumes the schedule. Permission is not asked
// again.
func (s *Scheduler) Restore(ctx context.Context) error {
	enabled, err := s.readFlag(ctx, KeyEnabled)
	if err != nil {
		return err
	}
	active, err := s.readFlag(ctx, KeyScheduleActive)
	if err != nil {
		return err
	}
	if !enabled {
		s.log.Info("restored", logx.String("state", Disabled.String()))
		return nil
	}
	s.mu.Lock()
	if s.state == Disabled {
		s.state = Idle
	}
	s.mu.Unlock()
	if active {
		return s.Start(ctx)
	}
	s.publishState(Idle)
	s.log.Info("restored", logx.String("state", Idle.String()))
	return nil
}

// Enable asks for permission. On grant the scheduler becomes Idle, the flag
// is persisted and the welcome order is emitted. It is a no-op unless
// Disabled.
func (s *Scheduler) Enable(ctx context.Context) error {
	s.mu.Lock()
	if s.state != Disabled {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	granted, err := s.permission.RequestPermission(ctx)
	if err != nil || !granted {
		msg := "notification permission was not granted"
		if err != nil {
			msg = "notification permission request failed: " + err.Error()
		}
		s.advise(KindPermissionDenied, msg, err)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		}
		return ErrPermissionDenied
	}

	s.mu.Lock()
	if s.state != Disabled {
		s.mu.Unlock()
		return nil
	}
	s.state = Idle
	s.mu.Unlock()

	s.writeFlag(ctx, KeyEnabled, true)
	s.publishState(Idle)
	s.log.Info("notifications enabled")

	cfg := s.settings.Current()
	s.tickMu.Lock()
	defer s.tickMu.Unlock()
	if err := s.emit(ctx, s.gen.Welcome(cfg.StoreName), cfg); err != nil {
		s.log.Warn("welcome notification failed", logx.Err(err))
	}
	return nil
}

// Disable stops any schedule and returns to Disabled.
func (s *Scheduler) Disable(ctx context.Context) error {
	s.mu.Lock()
	if s.state == Disabled {
		s.mu.Unlock()
		return nil
	}
	s.removeTimerLocked()
	s.state = Disabled
	s.mu.Unlock()

	s.writeFlag(ctx, KeyEnabled, false)
	s.writeFlag(ctx, KeyScheduleActive, false)
	s.publishState(Disabled)
	s.log.Info("notifications disabled")
	return nil
}

// Start installs the repeating timer. Calling it while Active replaces the
// timer, so at most one exists.
func (s *Scheduler) Start(ctx context.Context) error {
	cfg := s.settings.Current()

	s.mu.Lock()
	if s.state == Disabled {
		s.mu.Unlock()
		return ErrDisabled
	}
	s.rolloverLocked()
	d, ok := s.installLocked(cfg.Frequency)
	s.state = Active
	s.mu.Unlock()

	if !ok {
		s.advise(KindMalformedFrequency,
			fmt.Sprintf("frequency %q is not usable; running every %s", cfg.Frequency, d), nil)
	}
	s.writeFlag(ctx, KeyScheduleActive, true)
	s.publishState(Active)
	s.log.Info("schedule started", logx.String("frequency", cfg.Frequency), logx.Duration("interval", d))
	return nil
}

// Stop removes the timer and returns to Idle. It is a no-op unless Active.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.state != Active {
		s.mu.Unlock()
		return nil
	}
	s.removeTimerLocked()
	s.state = Idle
	s.mu.Unlock()

	s.writeFlag(ctx, KeyScheduleActive, false)
	s.publishState(Idle)
	s.log.Info("schedule stopped")
	return nil
}

// Tick runs one timer fire. It does nothing unless Active.
func (s *Scheduler) Tick(ctx context.Context) error {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	cfg := s.settings.Current()

	s.mu.Lock()
	if s.state != Active {
		s.mu.Unlock()
		return nil
	}
	s.rolloverLocked()
	if s.dailyCount >= cfg.MaxNotifications {
		count := s.dailyCount
		s.mu.Unlock()
		s.log.Debug("daily cap reached; skipping", logx.Int("count", count), logx.Int("cap", cfg.MaxNotifications))
		return nil
	}
	s.mu.Unlock()

	o := s.gen.Generate(cfg.StoreName, cfg.OrderThreshold)
	if amt, err := order.ParseAmount(o.Amount); err != nil || amt < cfg.OrderThreshold {
		s.log.Debug("order below threshold; skipping", logx.String("amount", o.Amount), logx.Float64("threshold", cfg.OrderThreshold))
		return nil
	}

	err := s.emit(ctx, o, cfg)

	s.mu.Lock()
	s.dailyCount++
	s.mu.Unlock()
	return err
}

// SendTest emits one random order now without touching the daily counter
// or the schedule.
func (s *Scheduler) SendTest(ctx context.Context) error {
	if s.State() == Disabled {
		return ErrDisabled
	}
	s.tickMu.Lock()
	defer s.tickMu.Unlock()
	cfg := s.settings.Current()
	return s.emit(ctx, s.gen.Generate(cfg.StoreName, cfg.OrderThreshold), cfg)
}

// UpdateSettings validates and saves next. When Active and the frequency
// changed the timer is reinstalled. A storage failure keeps next in memory
// and is reported as an advisory.
func (s *Scheduler) UpdateSettings(ctx context.Context, next settings.Settings) error {
	prev := s.settings.Current()
	if err := s.settings.Save(ctx, next); err != nil {
		var ve settings.ValidationError
		if errors.As(err, &ve) {
			return err
		}
		s.advise(KindPersistence, "settings were not saved: "+err.Error(), err)
	}
	if prev.Frequency == next.Frequency {
		return nil
	}
	s.mu.Lock()
	if s.state != Active {
		s.mu.Unlock()
		return nil
	}
	d, ok := s.installLocked(next.Frequency)
	s.mu.Unlock()
	if !ok {
		s.advise(KindMalformedFrequency,
			fmt.Sprintf("frequency %q is not usable; running every %s", next.Frequency, d), nil)
	}
	s.log.Info("schedule rescheduled", logx.String("frequency", next.Frequency), logx.Duration("interval", d))
	return nil
}

func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Scheduler) Snapshot() Snapshot {
	cfg := s.settings.Current()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rolloverLocked()
	snap := Snapshot{
		State:        s.state,
		DailyCount:   s.dailyCount,
		DailyCap:     cfg.MaxNotifications,
		LastResetDay: s.lastResetDay,
		Frequency:    cfg.Frequency,
	}
	entries := s.cron.Entries()
	snap.Timers = len(entries)
	if s.entry != 0 {
		snap.Interval = s.interval
		snap.Frequency = s.frequency
		if e := s.cron.Entry(s.entry); e.Valid() {
			snap.NextRun = e.Next
		}
	}
	return snap
}

// Close stops the cron runner and waits for a running tick.
func (s *Scheduler) Close(ctx context.Context) error {
	s.mu.Lock()
	c, running := s.cron, s.cronRunning
	s.cronRunning = false
	s.mu.Unlock()
	if !running {
		return nil
	}
	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// installLocked replaces the timer with one for freq and reports whether
// freq parsed.
func (s *Scheduler) installLocked(freq string) (time.Duration, bool) {
	s.removeTimerLocked()
	d, ok := ResolveInterval(freq, s.minInterval)
	s.entry = s.cron.Schedule(cron.Every(d), cron.FuncJob(s.fire))
	s.interval = d
	s.frequency = freq
	if !s.cronRunning {
		s.cron.Start()
		s.cronRunning = true
	}
	return d, ok
}

func (s *Scheduler) removeTimerLocked() {
	if s.entry != 0 {
		s.cron.Remove(s.entry)
		s.entry = 0
	}
	s.interval = 0
	s.frequency = ""
}

func (s *Scheduler) fire() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.Tick(ctx); err != nil {
		s.log.Warn("tick failed", logx.Err(err))
	}
}

func (s *Scheduler) rolloverLocked() {
	today := s.clock.Now().In(s.loc).Format("2006-01-02")
	if today != s.lastResetDay {
		if s.lastResetDay != "" {
			s.log.Debug("daily counter reset", logx.String("day", today), logx.Int("previous", s.dailyCount))
		}
		s.dailyCount = 0
		s.lastResetDay = today
	}
}

// emit formats, dispatches and records o. The order is recorded even when
// dispatch fails.
func (s *Scheduler) emit(ctx context.Context, o order.Order, cfg settings.Settings) error {
	s.mu.Lock()
	icon := s.defaultIcon
	s.mu.Unlock()
	if logo := cfg.Logo(); logo != "" {
		icon = logo
	}
	n := platform.ForOrder(o, order.Format(cfg.Body(), o), icon, s.clock.Now().UnixMilli())

	id, dispatchErr := s.dispatcher.Dispatch(ctx, n)
	if dispatchErr != nil {
		s.advise(KindDispatch, fmt.Sprintf("order %s was not dispatched: %v", o.OrderID, dispatchErr), dispatchErr)
	}
	if err := s.history.Append(ctx, o); err != nil {
		s.advise(KindPersistence, "history was not saved: "+err.Error(), err)
	}
	s.bus.Publish(eventbus.Event{Type: eventbus.TypeOrderEmitted, Data: o})
	s.log.Info("order notification emitted",
		logx.String("id", id),
		logx.String("order_id", o.OrderID),
		logx.String("amount", o.Amount),
		logx.Int("items", o.Items),
	)
	if dispatchErr != nil {
		return fmt.Errorf("%w: %v", ErrDispatch, dispatchErr)
	}
	return nil
}

func (s *Scheduler) readFlag(ctx context.Context, key string) (bool, error) {
	v, ok, err := s.flags.Get(ctx, key)
	if err != nil {
		s.advise(KindPersistence, "could not read "+key+": "+err.Error(), err)
		return false, fmt.Errorf("%w: read %s: %v", ErrPersistence, key, err)
	}
	return ok && v == "true", nil
}

func (s *Scheduler) writeFlag(ctx context.Context, key string, v bool) {
	val := "false"
	if v {
		val = "true"
	}
	if err := s.flags.Set(ctx, key, val); err != nil {
		s.advise(KindPersistence, "could not save "+key+": "+err.Error(), err)
	}
}

func (s *Scheduler) advise(kind AdvisoryKind, msg string, err error) {
	a := Advisory{Kind: kind, Message: msg, Err: err}
	s.log.Warn("advisory", logx.String("kind", string(kind)), logx.String("msg", msg), logx.Err(err))
	s.bus.Publish(eventbus.Event{Type: eventbus.TypeAdvisory, Data: a})
}

func (s *Scheduler) publishState(st State) {
	s.bus.Publish(eventbus.Event{Type: eventbus.TypeStateChanged, Data: st})
}
