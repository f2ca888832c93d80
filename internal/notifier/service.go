package notifier

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"ordernotify/internal/eventbus"
	"ordernotify/internal/platform"
	rtsup "ordernotify/internal/runtime/supervisor"
	logx "ordernotify/pkg/logx"
)

type job struct {
	n platform.Notification
}

// Service is safe for concurrent use.
type Service struct {
	mu sync.Mutex

	log      logx.Logger
	platform platform.Platform
	bus      eventbus.Bus

	cfg     Config
	limiter *rate.Limiter

	accepting bool
	sendWG    sync.WaitGroup
	queue     chan job
	sup       *rtsup.Supervisor

	sent   atomic.Uint64
	failed atomic.Uint64
}

// Stats counts deliveries since start.
type Stats struct {
	Sent    uint64
	Failed  uint64
	Queued  int
	Running bool
}

func New(cfg Config, p platform.Platform, bus eventbus.Bus, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	if bus == nil {
		bus = eventbus.Nop()
	}
	s := &Service{platform: p, bus: bus, log: log}
	s.applyLocked(cfg)
	return s
}

// Apply swaps rate and timeout settings. Queue size and worker count take
// effect on the next Start.
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	s.applyLocked(cfg)
	s.mu.Unlock()
}

func (s *Service) applyLocked(cfg Config) {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 1
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	burst := int(cfg.RatePerSec)
	if burst < 1 {
		burst = 1
	}
	s.cfg = cfg
	s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), burst)
}

// Start launches the workers. It is idempotent.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queue != nil {
		return
	}
	s.queue = make(chan job, s.cfg.QueueSize)
	s.accepting = true
	s.sup = rtsup.New(ctx, rtsup.WithLogger(s.log))

	q := s.queue
	for i := 0; i < s.cfg.Workers; i++ {
		s.sup.GoRestart(fmt.Sprintf("notifier.worker.%d", i), func(c context.Context) error {
			return s.workerLoop(c, q)
		})
	}
}

// Stop refuses new dispatches and drains the queue until ctx is done.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	q, sup := s.queue, s.sup
	if q == nil || !s.accepting {
		s.mu.Unlock()
		return
	}
	s.accepting = false
	s.mu.Unlock()

	// In-flight enqueues finish before the queue closes.
	s.sendWG.Wait()
	close(q)
	if err := sup.Wait(ctx); err != nil {
		s.log.Warn("notifier drain incomplete", logx.Int("dropped", len(q)), logx.Err(err))
	}
	sup.Cancel()

	s.mu.Lock()
	s.queue = nil
	s.sup = nil
	s.mu.Unlock()
}

// Dispatch assigns n a delivery id and queues it. It never waits for the
// platform.
func (s *Service) Dispatch(ctx context.Context, n platform.Notification) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	if !s.accepting || s.queue == nil {
		s.mu.Unlock()
		return "", ErrStopped
	}
	q := s.queue
	s.sendWG.Add(1)
	s.mu.Unlock()
	defer s.sendWG.Done()

	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	select {
	case q <- job{n: n}:
		return n.ID, nil
	default:
		s.publish(eventbus.TypeDropped, n, ErrQueueFull)
		return n.ID, ErrQueueFull
	}
}

func (s *Service) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Sent:    s.sent.Load(),
		Failed:  s.failed.Load(),
		Queued:  len(s.queue),
		Running: s.queue != nil,
	}
}

func (s *Service) workerLoop(ctx context.Context, q <-chan job) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case j, ok := <-q:
			if !ok {
				return nil
			}
			s.deliver(ctx, j.n)
		}
	}
}

func (s *Service) deliver(ctx context.Context, n platform.Notification) {
	s.mu.Lock()
	lim, timeout, p := s.limiter, s.cfg.SendTimeout, s.platform
	s.mu.Unlock()

	if err := lim.Wait(ctx); err != nil {
		return
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	err := p.Deliver(callCtx, n)
	cancel()

	log := s.log.With(logx.String("id", n.ID), logx.String("order_id", n.Metadata.OrderID))
	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return
		}
		s.failed.Add(1)
		log.Warn("notification delivery failed", logx.Err(err))
		s.publish(eventbus.TypeFailed, n, err)
		return
	}
	s.sent.Add(1)
	log.Debug("notification delivered")
	s.publish(eventbus.TypeSent, n, nil)
}

func (s *Service) publish(typ string, n platform.Notification, err error) {
	now := time.Now()
	ev := DeliveryEvent{
		ID:      n.ID,
		Tag:     n.Tag,
		OrderID: n.Metadata.OrderID,
		At:      now,
	}
	if s.platform != nil {
		ev.Platform = s.platform.Name()
	}
	if err != nil {
		ev.Error = err.Error()
	}
	s.bus.Publish(eventbus.Event{Type: typ, Time: now, Data: ev})
}
