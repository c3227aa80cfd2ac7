// Package scheduler provides cancellable deferred actions keyed by identity.
//
// A Scheduler holds at most one registration per key. Each registration moves
// through Scheduled -> Fired or Scheduled -> Cancelled and never re-enters
// Scheduled; scheduling the same key again creates a new registration and
// cancels the old one. When the timer fires, the action runs only if the
// registration that armed the timer is still the live one for its key, so a
// cancel that races a fire always wins.
//
// Timing is delegated to a TimerService. LoopTimer drains due registrations
// when its owner calls Tick, which keeps every callback on one goroutine;
// RealTimer uses runtime timers for callers that want wall-clock firing
// without a drive loop.
//
// Example:
//
//	timer := scheduler.NewLoopTimer(nil)
//	s := scheduler.New[string](timer, scheduler.WithName("enemy"))
//	s.Schedule("enemy-1", 10*time.Second, func() { destroy("enemy-1") })
//	s.Cancel("enemy-1") // rescued before the grace period ran out
package scheduler

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/lifepool/pkg/logger"
	"github.com/ajitpratap0/lifepool/pkg/metrics"
)

// TaskHandle identifies one registration. Handles are never reused by a
// Scheduler.
type TaskHandle uint64

// Stats summarizes scheduler activity since creation.
type Stats struct {
	Pending   int   `json:"pending"`
	Scheduled int64 `json:"scheduled"`
	Fired     int64 `json:"fired"`
	Cancelled int64 `json:"cancelled"`
}

type registration struct {
	handle   TaskHandle
	timer    TimerHandle
	deadline time.Time
}

// Scheduler is a keyed registry of deferred actions. It is safe for
// concurrent use; actions run without any scheduler lock held, so they may
// call back into the scheduler.
type Scheduler[K comparable] struct {
	mu     sync.Mutex
	timer  TimerService
	tasks  map[K]registration
	seq    TaskHandle
	stats  Stats
	name   string
	clock  func() time.Time
	logger *zap.Logger
}

// Option configures a Scheduler.
type Option func(*options)

type options struct {
	name   string
	clock  func() time.Time
	logger *zap.Logger
}

// WithName sets the name used in logs and metrics.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithClock sets the clock used to report deadlines. It should match the
// clock driving the TimerService.
func WithClock(clock func() time.Time) Option {
	return func(o *options) { o.clock = clock }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New creates a Scheduler on top of timer.
func New[K comparable](timer TimerService, opts ...Option) *Scheduler[K] {
	o := options{name: "default"}
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		if lt, ok := timer.(*LoopTimer); ok {
			o.clock = lt.Now
		} else {
			o.clock = time.Now
		}
	}
	if o.logger == nil {
		o.logger = logger.Component("scheduler")
	}
	return &Scheduler[K]{
		timer:  timer,
		tasks:  make(map[K]registration),
		name:   o.name,
		clock:  o.clock,
		logger: o.logger.With(zap.String("scheduler", o.name)),
	}
}

// Schedule registers action to run after delay unless key is cancelled first.
// An existing registration for key is cancelled and replaced.
func (s *Scheduler[K]) Schedule(key K, delay time.Duration, action func()) TaskHandle {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.tasks[key]; ok {
		s.timer.Cancel(old.timer)
		delete(s.tasks, key)
		s.stats.Cancelled++
		metrics.ObserveTask(s.name, "cancelled", len(s.tasks))
	}

	s.seq++
	h := s.seq
	reg := registration{
		handle:   h,
		deadline: s.clock().Add(delay),
	}
	reg.timer = s.timer.Schedule(delay, func() { s.fire(key, h, action) })
	s.tasks[key] = reg
	s.stats.Scheduled++
	metrics.ObserveTask(s.name, "scheduled", len(s.tasks))

	s.logger.Debug("task scheduled",
		zap.Any("key", key),
		zap.Uint64("handle", uint64(h)),
		zap.Duration("delay", delay))
	return h
}

func (s *Scheduler[K]) fire(key K, h TaskHandle, action func()) {
	s.mu.Lock()
	reg, ok := s.tasks[key]
	if !ok || reg.handle != h {
		s.mu.Unlock()
		return
	}
	delete(s.tasks, key)
	s.stats.Fired++
	metrics.ObserveTask(s.name, "fired", len(s.tasks))
	s.mu.Unlock()

	s.logger.Debug("task fired", zap.Any("key", key), zap.Uint64("handle", uint64(h)))
	action()
}

// Cancel removes the registration for key. It returns false when nothing
// was registered, including when the task already fired.
func (s *Scheduler[K]) Cancel(key K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	reg, ok := s.tasks[key]
	if !ok {
		return false
	}
	s.timer.Cancel(reg.timer)
	delete(s.tasks, key)
	s.stats.Cancelled++
	metrics.ObserveTask(s.name, "cancelled", len(s.tasks))

	s.logger.Debug("task cancelled", zap.Any("key", key), zap.Uint64("handle", uint64(reg.handle)))
	return true
}

// Scheduled reports whether key has a live registration.
func (s *Scheduler[K]) Scheduled(key K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[key]
	return ok
}

// Deadline returns when the registration for key is due.
func (s *Scheduler[K]) Deadline(key K) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg, ok := s.tasks[key]
	return reg.deadline, ok
}

// Len returns the number of live registrations.
func (s *Scheduler[K]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Stats returns a snapshot of the scheduler counters.
func (s *Scheduler[K]) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stats
	st.Pending = len(s.tasks)
	return st
}

// Name returns the scheduler name.
func (s *Scheduler[K]) Name() string {
	return s.name
}
