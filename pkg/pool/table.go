package pool

import (
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/lifepool/pkg/logger"
	"github.com/ajitpratap0/lifepool/pkg/scheduler"
)

// Table maps pool names to pools of one item type. Pools are created lazily
// on first use and share one scheduler and one destroy executor.
type Table[T comparable] struct {
	mu    sync.RWMutex
	pools map[string]*Pool[T]

	opts      options
	poolOpts  []Option
	executor  DestroyExecutor[T]
	scheduler *scheduler.Scheduler[TaskKey[T]]
	logger    *zap.Logger
}

// NewTable creates an empty table whose pools schedule teardown on timer.
func NewTable[T comparable](timer scheduler.TimerService, executor DestroyExecutor[T], opts ...Option) *Table[T] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.Component("pool_table")
	}
	log := o.logger.With(zap.String("category", o.category))
	if o.capacity <= 0 {
		log.Warn("default pool capacity must be positive, using default",
			zap.Int("configured", o.capacity),
			zap.Int("default", DefaultCapacity))
		o.capacity = DefaultCapacity
	}
	if executor == nil {
		log.Warn("pool table has no destroy executor, teardown will be a no-op")
		executor = noopExecutor[T]{}
	}

	return &Table[T]{
		pools:    make(map[string]*Pool[T]),
		opts:     o,
		poolOpts: []Option{WithGraceDelay(o.grace), WithCategory(o.category), WithLogger(o.logger)},
		executor: executor,
		scheduler: scheduler.New[TaskKey[T]](timer,
			scheduler.WithName(o.category),
			scheduler.WithLogger(o.logger)),
		logger: log,
	}
}

// Load takes an item from the named pool, creating the pool with its
// configured or default capacity if needed. ok is false when the pool has
// nothing to hand out.
func (t *Table[T]) Load(name string) (T, bool) {
	return t.get(name, t.capacityFor(name)).GetObject()
}

// LoadWithCapacity is Load with an explicit capacity for a pool created by
// this call. An existing pool keeps its capacity.
func (t *Table[T]) LoadWithCapacity(name string, capacity int) (T, bool) {
	return t.get(name, capacity).GetObject()
}

// Register records a freshly fabricated item as in use by the named pool.
func (t *Table[T]) Register(name string, item T) {
	t.get(name, t.capacityFor(name)).Register(item)
}

// Recycle returns item to the named pool. It returns false if no pool has
// that name.
func (t *Table[T]) Recycle(name string, item T) bool {
	p := t.lookup(name, "recycle")
	if p == nil {
		return false
	}
	p.RecycleObject(item)
	return true
}

// RequestDestroy schedules teardown of item in the named pool. It returns
// false if no pool has that name.
func (t *Table[T]) RequestDestroy(name string, item T) bool {
	p := t.lookup(name, "request_destroy")
	if p == nil {
		return false
	}
	p.RequestDestroy(item)
	return true
}

// DestroyImmediately tears item down now. It returns false if no pool has
// that name or the pool does not track item.
func (t *Table[T]) DestroyImmediately(name string, item T) bool {
	p := t.lookup(name, "destroy_immediately")
	if p == nil {
		return false
	}
	return p.DestroyImmediately(item)
}

// DestroyAll empties the named pool, destroying every item. It returns
// false if no pool has that name.
func (t *Table[T]) DestroyAll(name string) bool {
	p := t.lookup(name, "destroy_all")
	if p == nil {
		return false
	}
	p.DestroyAll()
	return true
}

// DestroyEverything runs DestroyAll on every pool and returns the number of
// items destroyed.
func (t *Table[T]) DestroyEverything() int {
	n := 0
	for _, p := range t.snapshot() {
		n += p.DestroyAll()
	}
	return n
}

// Sweep moves the oldest idle item of every pool into pending destruction.
// It returns how many items were moved.
func (t *Table[T]) Sweep() int {
	n := 0
	for _, p := range t.snapshot() {
		if p.SweepOldest() {
			n++
		}
	}
	return n
}

// Executor returns the executor shared by every pool in the table.
func (t *Table[T]) Executor() DestroyExecutor[T] { return t.executor }

// Pool returns the named pool if it exists.
func (t *Table[T]) Pool(name string) (*Pool[T], bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.pools[name]
	return p, ok
}

// Names returns the pool names in sorted order.
func (t *Table[T]) Names() []string {
	t.mu.RLock()
	names := make([]string, 0, len(t.pools))
	for name := range t.pools {
		names = append(names, name)
	}
	t.mu.RUnlock()
	slices.Sort(names)
	return names
}

// Stats returns the stats of every pool sorted by name.
func (t *Table[T]) Stats() []Stats {
	pools := t.snapshot()
	out := make([]Stats, 0, len(pools))
	for _, p := range pools {
		out = append(out, p.Stats())
	}
	return out
}

// Scheduler returns the scheduler shared by the table's pools.
func (t *Table[T]) Scheduler() *scheduler.Scheduler[TaskKey[T]] {
	return t.scheduler
}

// Print logs the named pool. Unknown names are logged as a warning.
func (t *Table[T]) Print(name string) bool {
	p := t.lookup(name, "print")
	if p == nil {
		return false
	}
	p.Print()
	return true
}

// PrintAll logs every pool.
func (t *Table[T]) PrintAll() {
	for _, p := range t.snapshot() {
		p.Print()
	}
}

func (t *Table[T]) capacityFor(name string) int {
	if c, ok := t.opts.capacities[name]; ok {
		return c
	}
	return t.opts.capacity
}

func (t *Table[T]) lookup(name, op string) *Pool[T] {
	t.mu.RLock()
	p, ok := t.pools[name]
	t.mu.RUnlock()
	if !ok {
		t.logger.Warn("no pool with that name",
			zap.String("pool", name),
			zap.String("operation", op))
		return nil
	}
	return p
}

func (t *Table[T]) get(name string, capacity int) *Pool[T] {
	t.mu.RLock()
	p, ok := t.pools[name]
	t.mu.RUnlock()
	if ok {
		return p
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.pools[name]; ok {
		return p
	}
	opts := append(slices.Clone(t.poolOpts), WithCapacity(capacity))
	p = NewPool(name, t.scheduler, t.executor, opts...)
	t.pools[name] = p
	t.logger.Debug("created pool", zap.String("pool", name), zap.Int("capacity", p.Capacity()))
	return p
}

// snapshot returns the pools sorted by name without holding the table lock
// during pool operations.
func (t *Table[T]) snapshot() []*Pool[T] {
	t.mu.RLock()
	pools := make([]*Pool[T], 0, len(t.pools))
	for _, p := range t.pools {
		pools = append(pools, p)
	}
	t.mu.RUnlock()
	slices.SortFunc(pools, func(a, b *Pool[T]) int {
		switch {
		case a.name < b.name:
			return -1
		case a.name > b.name:
			return 1
		}
		return 0
	})
	return pools
}
