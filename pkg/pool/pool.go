package pool

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/lifepool/pkg/logger"
	"github.com/ajitpratap0/lifepool/pkg/metrics"
	"github.com/ajitpratap0/lifepool/pkg/scheduler"
)

// ItemState tags which collection of its pool an item belongs to.
type ItemState int

const (
	// StateIdle means the item was returned and can be handed out again.
	StateIdle ItemState = iota
	// StateInUse means the item is held by a caller.
	StateInUse
	// StatePendingDestruction means teardown is scheduled but the item is still rescuable.
	StatePendingDestruction
)

func (s ItemState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInUse:
		return "in_use"
	case StatePendingDestruction:
		return "pending_destruction"
	default:
		return fmt.Sprintf("item_state(%d)", int(s))
	}
}

// TaskKey identifies a deferred teardown: the owning pool and the item.
type TaskKey[T comparable] struct {
	Pool string
	Item T
}

// Stats is a point-in-time view of a pool.
type Stats struct {
	Name      string `json:"name"`
	Category  string `json:"category"`
	Capacity  int    `json:"capacity"`
	Idle      int    `json:"idle"`
	InUse     int    `json:"in_use"`
	Pending   int    `json:"pending_destruction"`
	Hits      int64  `json:"hits"`
	Rescues   int64  `json:"rescues"`
	Misses    int64  `json:"misses"`
	Evictions int64  `json:"evictions"`
	Destroyed int64  `json:"destroyed"`
}

// Pool is a bounded pool of interchangeable items of type T. Items must be
// comparable handles (typically pointers) because the pool tracks them by
// identity. A Pool is safe for concurrent use.
type Pool[T comparable] struct {
	mu       sync.Mutex
	name     string
	category string
	max      int
	grace    time.Duration

	idle    []T // tail is the most recently returned
	inUse   []T
	pending []T // head is the oldest request
	state   map[T]ItemState

	// pendingGen records which destroy request put an item in pending; a
	// deferred teardown only acts on the generation it was scheduled for.
	pendingGen map[T]uint64
	gen        uint64

	executor  DestroyExecutor[T]
	scheduler *scheduler.Scheduler[TaskKey[T]]
	logger    *zap.Logger

	hits, rescues, misses, evictions, destroyed int64
}

// NewPool creates a pool named name. Deferred teardown goes through sched,
// which may be shared by several pools. A nil executor makes destruction a
// no-op and is logged as a warning.
func NewPool[T comparable](name string, sched *scheduler.Scheduler[TaskKey[T]], executor DestroyExecutor[T], opts ...Option) *Pool[T] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.Component("pool")
	}
	log := o.logger.With(zap.String("pool", name), zap.String("category", o.category))

	if o.capacity <= 0 {
		log.Warn("pool capacity must be positive, using default",
			zap.Int("configured", o.capacity),
			zap.Int("default", DefaultCapacity))
		o.capacity = DefaultCapacity
	}
	if o.grace < 0 {
		log.Warn("grace delay must not be negative, using default",
			zap.Duration("configured", o.grace),
			zap.Duration("default", DefaultGraceDelay))
		o.grace = DefaultGraceDelay
	}
	if executor == nil {
		log.Warn("pool has no destroy executor, teardown will be a no-op")
		executor = noopExecutor[T]{}
	}

	return &Pool[T]{
		name:       name,
		category:   o.category,
		max:        o.capacity,
		grace:      o.grace,
		state:      make(map[T]ItemState),
		pendingGen: make(map[T]uint64),
		executor:   executor,
		scheduler:  sched,
		logger:     log,
	}
}

// Name returns the pool name.
func (p *Pool[T]) Name() string { return p.name }

// Capacity returns the maximum number of idle plus in-use items.
func (p *Pool[T]) Capacity() int { return p.max }

// GetObject hands out an item. The oldest pending item is rescued first
// (its teardown is cancelled), otherwise the most recently returned idle
// item is used. ok is false when the pool holds neither; fabricating a new
// item is then up to the caller.
func (p *Pool[T]) GetObject() (item T, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	defer p.publish()

	if len(p.pending) > 0 {
		item = p.pending[0]
		p.pending = slices.Delete(p.pending, 0, 1)
		p.rescue(item)
		p.inUse = append(p.inUse, item)
		p.state[item] = StateInUse
		p.rescues++
		metrics.ObservePoolOp(p.name, p.category, metrics.OpGet, metrics.ResultRescue)
		p.logger.Debug("rescued pending item", zap.Any("item", item))
		p.enforceCapacity()
		return item, true
	}

	if n := len(p.idle); n > 0 {
		item = p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.inUse = append(p.inUse, item)
		p.state[item] = StateInUse
		p.hits++
		metrics.ObservePoolOp(p.name, p.category, metrics.OpGet, metrics.ResultHit)
		return item, true
	}

	p.misses++
	metrics.ObservePoolOp(p.name, p.category, metrics.OpGet, metrics.ResultMiss)
	var zero T
	return zero, false
}

// Register puts a freshly fabricated item under the pool's management as
// in use. Registering an idle or pending item moves it to in use; a pending
// item is rescued.
func (p *Pool[T]) Register(item T) {
	p.mu.Lock()
	defer p.mu.Unlock()
	defer p.publish()

	st, tracked := p.state[item]
	if tracked && st == StateInUse {
		return
	}
	if tracked {
		p.detach(item, st)
	}
	p.inUse = append(p.inUse, item)
	p.state[item] = StateInUse
	p.enforceCapacity()
}

// RecycleObject returns item to idle. Items the pool has never seen are
// adopted, and a pending item is rescued back to idle. If the pool is then
// over capacity the earliest-inserted idle items are evicted into pending
// destruction until it is not.
func (p *Pool[T]) RecycleObject(item T) {
	p.mu.Lock()
	defer p.mu.Unlock()
	defer p.publish()

	st, tracked := p.state[item]
	switch {
	case !tracked:
		p.logger.Debug("adopting untracked item on recycle", zap.Any("item", item))
	case st == StateIdle:
		p.logger.Warn("item already idle, ignoring recycle", zap.Any("item", item))
		metrics.ObservePoolOp(p.name, p.category, metrics.OpRecycle, metrics.ResultNoop)
		return
	default:
		p.detach(item, st)
	}

	p.idle = append(p.idle, item)
	p.state[item] = StateIdle
	metrics.ObservePoolOp(p.name, p.category, metrics.OpRecycle, metrics.ResultOK)
	p.enforceCapacity()
}

// RequestDestroy moves item into pending destruction and schedules its
// teardown after the grace delay. An item that is already pending keeps its
// original deadline.
func (p *Pool[T]) RequestDestroy(item T) {
	p.mu.Lock()
	defer p.mu.Unlock()
	defer p.publish()

	st, tracked := p.state[item]
	if tracked && st == StatePendingDestruction {
		metrics.ObservePoolOp(p.name, p.category, metrics.OpRequestDestroy, metrics.ResultNoop)
		return
	}
	if tracked {
		p.detach(item, st)
	}
	p.toPending(item)
	metrics.ObservePoolOp(p.name, p.category, metrics.OpRequestDestroy, metrics.ResultOK)
}

// DestroyImmediately removes item from the pool, cancels any scheduled
// teardown and calls the executor synchronously. It returns false, without
// calling the executor, if the pool does not track item.
func (p *Pool[T]) DestroyImmediately(item T) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	defer p.publish()

	st, tracked := p.state[item]
	if !tracked {
		p.logger.Warn("item not tracked by pool, nothing to destroy", zap.Any("item", item))
		metrics.ObservePoolOp(p.name, p.category, metrics.OpDestroyImmediately, metrics.ResultNoop)
		return false
	}
	p.detach(item, st)
	delete(p.state, item)
	p.destroy(item)
	metrics.ObservePoolOp(p.name, p.category, metrics.OpDestroyImmediately, metrics.ResultOK)
	return true
}

// DestroyAll cancels every scheduled teardown of the pool, destroys every
// tracked item once (idle, then in use, then pending) and empties the pool.
// The pool itself stays usable. It returns the number of items destroyed.
func (p *Pool[T]) DestroyAll() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	defer p.publish()

	for _, item := range p.pending {
		p.scheduler.Cancel(TaskKey[T]{Pool: p.name, Item: item})
	}

	n := 0
	for _, set := range [][]T{p.idle, p.inUse, p.pending} {
		for _, item := range set {
			p.destroy(item)
			n++
		}
	}

	p.idle = nil
	p.inUse = nil
	p.pending = nil
	clear(p.state)
	clear(p.pendingGen)

	metrics.ObservePoolOp(p.name, p.category, metrics.OpDestroyAll, metrics.ResultOK)
	p.logger.Info("destroyed all pool items", zap.Int("count", n))
	return n
}

// SweepOldest moves the earliest-inserted idle item into pending
// destruction regardless of capacity. It is the periodic maintenance pass
// and reports whether an item was moved.
func (p *Pool[T]) SweepOldest() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	defer p.publish()

	if len(p.idle) == 0 {
		return false
	}
	item := p.idle[0]
	p.idle = slices.Delete(p.idle, 0, 1)
	p.toPending(item)
	metrics.ObservePoolOp(p.name, p.category, metrics.OpSweep, metrics.ResultOK)
	return true
}

// State reports which collection item is in.
func (p *Pool[T]) State(item T) (ItemState, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	st, ok := p.state[item]
	return st, ok
}

// Items returns copies of the three collections in their internal order.
func (p *Pool[T]) Items() (idle, inUse, pending []T) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.idle), slices.Clone(p.inUse), slices.Clone(p.pending)
}

// Stats returns a snapshot of the pool.
func (p *Pool[T]) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.statsLocked()
}

// Print logs the pool's partition sizes and pending order. It is a
// diagnostic and changes nothing.
func (p *Pool[T]) Print() {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := p.statsLocked()
	p.logger.Info("pool state",
		zap.Int("capacity", st.Capacity),
		zap.Int("idle", st.Idle),
		zap.Int("in_use", st.InUse),
		zap.Int("pending_destruction", st.Pending),
		zap.Any("idle_order", p.idle),
		zap.Any("pending_order", p.pending),
		zap.Int64("hits", st.Hits),
		zap.Int64("rescues", st.Rescues),
		zap.Int64("misses", st.Misses),
		zap.Int64("evictions", st.Evictions),
		zap.Int64("destroyed", st.Destroyed))
}

func (p *Pool[T]) statsLocked() Stats {
	return Stats{
		Name:      p.name,
		Category:  p.category,
		Capacity:  p.max,
		Idle:      len(p.idle),
		InUse:     len(p.inUse),
		Pending:   len(p.pending),
		Hits:      p.hits,
		Rescues:   p.rescues,
		Misses:    p.misses,
		Evictions: p.evictions,
		Destroyed: p.destroyed,
	}
}

// enforceCapacity evicts idle items, earliest inserted first, while idle
// plus in-use exceeds capacity. In-use items are held by callers and are
// never evicted, so the pool can stay over capacity while idle is empty.
func (p *Pool[T]) enforceCapacity() {
	for len(p.idle)+len(p.inUse) > p.max && len(p.idle) > 0 {
		victim := p.idle[0]
		p.idle = slices.Delete(p.idle, 0, 1)
		p.toPending(victim)
		p.evictions++
		metrics.ObservePoolOp(p.name, p.category, metrics.OpEvict, metrics.ResultOK)
		p.logger.Debug("evicted idle item", zap.Any("item", victim), zap.Int("capacity", p.max))
	}
}

// detach removes item from the collection st names, cancelling its
// teardown if it was pending. The state entry is left for the caller.
func (p *Pool[T]) detach(item T, st ItemState) {
	switch st {
	case StateIdle:
		p.idle = remove(p.idle, item)
	case StateInUse:
		p.inUse = remove(p.inUse, item)
	case StatePendingDestruction:
		p.pending = remove(p.pending, item)
		p.rescue(item)
	}
}

func (p *Pool[T]) rescue(item T) {
	delete(p.pendingGen, item)
	p.scheduler.Cancel(TaskKey[T]{Pool: p.name, Item: item})
}

func (p *Pool[T]) toPending(item T) {
	p.pending = append(p.pending, item)
	p.state[item] = StatePendingDestruction
	p.gen++
	gen := p.gen
	p.pendingGen[item] = gen
	p.scheduler.Schedule(TaskKey[T]{Pool: p.name, Item: item}, p.grace, func() {
		p.expire(item, gen)
	})
}

// expire runs when a deferred teardown fires.
func (p *Pool[T]) expire(item T, gen uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if st, ok := p.state[item]; !ok || st != StatePendingDestruction || p.pendingGen[item] != gen {
		p.logger.Warn("item was rescued or destroyed before its grace period ended", zap.Any("item", item))
		return
	}
	p.pending = remove(p.pending, item)
	delete(p.pendingGen, item)
	delete(p.state, item)
	p.destroy(item)
	p.publish()
}

func (p *Pool[T]) destroy(item T) {
	p.executor.Destroy(item)
	p.destroyed++
	metrics.ObservePoolOp(p.name, p.category, metrics.OpDestroyed, metrics.ResultOK)
	p.logger.Debug("destroyed item", zap.Any("item", item))
}

func (p *Pool[T]) publish() {
	metrics.SetPoolItems(p.name, p.category, len(p.idle), len(p.inUse), len(p.pending))
}

func remove[T comparable](s []T, item T) []T {
	if i := slices.Index(s, item); i >= 0 {
		return slices.Delete(s, i, i+1)
	}
	return s
}
