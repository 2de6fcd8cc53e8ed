package sched

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"

	"delaytimer/internal/eventbus"
	"delaytimer/internal/executor"
	"delaytimer/internal/runtime/supervisor"
	"delaytimer/internal/storage"
	"delaytimer/internal/wheel"
	logx "delaytimer/pkg/logx"
)

// Config sizes the scheduler.
type Config struct {
	// BusCapacity bounds the event channel. It should exceed the largest
	// expected per-tick fan-out; when it fills, the wheel driver waits
	// (firing is delayed, never dropped) while façade calls fail fast with
	// ErrQueueFull. <=0 means 256.
	BusCapacity int

	// HistorySize bounds the in-memory finished-instance history.
	// <=0 means 200.
	HistorySize int

	// JournalBuffer bounds the asynchronous journal queue. <=0 means 128.
	JournalBuffer int
}

func (c Config) withDefaults() Config {
	if c.BusCapacity <= 0 {
		c.BusCapacity = 256
	}
	if c.HistorySize <= 0 {
		c.HistorySize = 200
	}
	if c.JournalBuffer <= 0 {
		c.JournalBuffer = 128
	}
	return c
}

type Option func(*Scheduler)

// WithExecutor replaces the default serial executor.
func WithExecutor(e executor.Executor) Option {
	return func(s *Scheduler) { s.exec = e }
}

// WithClock injects the clock; tests use a fake.
func WithClock(c clockwork.Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithBus replaces the observation fanout bus.
func WithBus(b eventbus.Bus) Option {
	return func(s *Scheduler) { s.bus = b }
}

// WithStore enables the run-history journal.
func WithStore(st storage.Store) Option {
	return func(s *Scheduler) { s.store = st }
}

// Scheduler is the public façade. It owns the wheel driver and the event
// loop; external callers interact only through the event bus.
type Scheduler struct {
	mu  sync.Mutex
	cfg Config
	log logx.Logger

	clock clockwork.Clock
	exec  executor.Executor
	bus   eventbus.Bus
	store storage.Store

	wheel  *wheel.Wheel
	reg    *registry
	events chan event

	sup      *supervisor.Supervisor
	loopDone chan struct{}
	journal  chan storage.RunRecord

	started atomic.Bool
	stopped atomic.Bool

	// Lifetime counters for diagnostics.
	fired          atomic.Uint64
	skipped        atomic.Uint64
	finished       atomic.Uint64
	failed         atomic.Uint64
	journalDropped atomic.Uint64

	// Saturation warnings are throttled so a hot loop cannot flood the log.
	warnLimit *rate.Limiter

	hmu     sync.Mutex
	history []HistoryItem
}

func New(cfg Config, log logx.Logger, opts ...Option) *Scheduler {
	cfg = cfg.withDefaults()
	s := &Scheduler{
		cfg:       cfg,
		log:       log,
		clock:     clockwork.NewRealClock(),
		bus:       eventbus.New(),
		wheel:     wheel.New(),
		reg:       newRegistry(),
		events:    make(chan event, cfg.BusCapacity),
		loopDone:  make(chan struct{}),
		journal:   make(chan storage.RunRecord, cfg.JournalBuffer),
		warnLimit: rate.NewLimiter(rate.Every(5*time.Second), 1),
	}
	for _, o := range opts {
		o(s)
	}
	if s.exec == nil {
		e, _ := executor.New(executor.Config{Kind: executor.KindSerial})
		s.exec = e
	}
	return s
}

// Start launches the wheel driver and the event loop. Tasks may be added
// before Start; their events queue on the bus and apply once the loop runs.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrStarted
	}

	s.mu.Lock()
	s.sup = supervisor.New(ctx,
		supervisor.WithLogger(s.log.With(logx.String("comp", "sched"))),
		supervisor.WithCancelOnError(true),
	)
	sup := s.sup
	s.mu.Unlock()

	driver := wheel.NewDriver(s.clock, s.wheel, s.emitFire, s.log.With(logx.String("comp", "wheel")))
	sup.Go("wheel.driver", driver.Run)
	sup.Go("event.loop", s.runLoop)
	if s.store != nil {
		sup.Go0("journal", s.runJournal)
	}

	s.log.Info("scheduler started",
		logx.Int("bus_capacity", cap(s.events)),
		logx.Int("history_size", s.cfg.HistorySize),
		logx.Bool("journal", s.store != nil),
	)
	return nil
}

// AddTask registers (or replaces) a task. The call enqueues and returns; the
// effect is observed through events and Snapshot.
func (s *Scheduler) AddTask(t Task) error {
	if err := t.validate(); err != nil {
		return err
	}
	return s.submit(event{kind: evAddTask, task: t, taskID: t.ID})
}

// UpdateTask replaces a registered task in place. Updating an unknown id
// behaves like AddTask.
func (s *Scheduler) UpdateTask(t Task) error {
	if err := t.validate(); err != nil {
		return err
	}
	return s.submit(event{kind: evUpdateTask, task: t, taskID: t.ID})
}

// RemoveTask evicts the task from its slot, cancels its live instances and
// deletes it. Removing an unknown id is a no-op.
func (s *Scheduler) RemoveTask(id uint64) error {
	if id == 0 {
		return ErrInvalidTaskID
	}
	return s.submit(event{kind: evRemoveTask, taskID: id})
}

// CancelInstance cooperatively cancels one in-flight instance.
func (s *Scheduler) CancelInstance(id, instance uint64) error {
	if id == 0 {
		return ErrInvalidTaskID
	}
	return s.submit(event{kind: evCancelInstance, taskID: id, instanceID: instance})
}

// Events subscribes to the observation bus.
func (s *Scheduler) Events() (<-chan eventbus.Event, func()) {
	return s.bus.Subscribe(64)
}

// Stop cancels every live instance, stops the wheel and returns when the
// event loop has drained, bounded by ctx. No new work is accepted once Stop
// has been initiated.
func (s *Scheduler) Stop(ctx context.Context) error {
	if !s.stopped.CompareAndSwap(false, true) {
		return ErrStopped
	}

	s.mu.Lock()
	sup := s.sup
	s.mu.Unlock()

	if sup == nil {
		// Never started: nothing to drain.
		return nil
	}

	// The loop consumes everything queued before the stop marker, then
	// cancels live instances and exits; the driver exits on supervisor
	// cancel right after.
	select {
	case s.events <- event{kind: evStop}:
	case <-ctx.Done():
		sup.Cancel()
		return ctx.Err()
	}

	select {
	case <-s.loopDone:
	case <-ctx.Done():
		sup.Cancel()
		return ctx.Err()
	}
	sup.Cancel()
	if err := sup.Wait(ctx); err != nil && err != context.Canceled {
		s.log.Warn("scheduler workers exited dirty", logx.Err(err))
	}

	if err := s.exec.Stop(ctx); err != nil {
		s.log.Warn("executor stop timed out", logx.Err(err))
	}

	s.bus.Publish(eventbus.Event{Topic: eventbus.SchedulerStopped, Time: s.clock.Now()})
	s.log.Info("scheduler stopped")
	return nil
}

// submit is the façade-side producer: non-blocking, fail-fast.
func (s *Scheduler) submit(ev event) error {
	if s.stopped.Load() {
		return ErrStopped
	}
	select {
	case s.events <- ev:
		return nil
	default:
		if s.warnLimit.Allow() {
			s.log.Warn("event queue full, rejecting operation",
				logx.Int("queue_len", len(s.events)),
				logx.Int("queue_cap", cap(s.events)),
			)
		}
		return ErrQueueFull
	}
}

// emitFire is the driver-side producer: blocking, so a saturated bus delays
// firing rather than dropping it.
func (s *Scheduler) emitFire(ctx context.Context, id uint64, at time.Time) {
	select {
	case s.events <- event{kind: evFireTask, taskID: id, at: at}:
	case <-ctx.Done():
	}
}

func (s *Scheduler) runJournal(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			// Drain what is already queued before giving up.
			for {
				select {
				case rec := <-s.journal:
					s.appendJournal(rec)
				default:
					return
				}
			}
		case rec := <-s.journal:
			s.appendJournal(rec)
		}
	}
}

func (s *Scheduler) appendJournal(rec storage.RunRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.store.AppendRun(ctx, rec); err != nil {
		s.log.Warn("journal append failed", logx.Uint64("task", rec.TaskID), logx.Err(err))
	}
}
