// Package registry is the entry point of lifepool. A Registry routes
// requests by Key to one of two pool tables (items and values) or to the
// resource cache, fabricates items when a pool is empty, and owns the
// timer that drives deferred teardown.
//
// A Registry is an ordinary value: construct as many as needed and Close
// each when done.
package registry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ajitpratap0/lifepool/pkg/cache"
	"github.com/ajitpratap0/lifepool/pkg/config"
	"github.com/ajitpratap0/lifepool/pkg/logger"
	"github.com/ajitpratap0/lifepool/pkg/metrics"
	"github.com/ajitpratap0/lifepool/pkg/observability"
	"github.com/ajitpratap0/lifepool/pkg/pool"
	"github.com/ajitpratap0/lifepool/pkg/poolerrors"
	"github.com/ajitpratap0/lifepool/pkg/scheduler"
)

// Registry owns the pools and caches of one application.
type Registry[T comparable, R any] struct {
	cfg    *config.Config
	timer  scheduler.TimerService
	loop   *scheduler.LoopTimer // nil unless the timer is cooperative
	owned  *scheduler.RealTimer // stopped on Close
	items  *pool.Table[T]
	values *pool.Table[T]
	cache  *cache.Cache[R]

	itemFactory  ItemFactory[T]
	valueFactory ItemFactory[T]

	tracer trace.Tracer
	logger *zap.Logger

	mu     sync.RWMutex
	closed bool
}

// New builds a registry from cfg. A nil cfg means config.Default().
func New[T comparable, R any](cfg *config.Config, collab Collaborators[T, R], opts ...Option) (*Registry[T, R], error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.Component("registry")
	}
	if o.tracer == nil {
		o.tracer = observability.Tracer()
	}
	if cfg == nil {
		cfg = config.Default()
	}
	cfg.Normalize(o.logger)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r := &Registry[T, R]{
		cfg:          cfg,
		itemFactory:  collab.ItemFactory,
		valueFactory: collab.ValueFactory,
		tracer:       o.tracer,
		logger:       o.logger,
	}

	switch {
	case o.timer != nil:
		r.timer = o.timer
	case cfg.Scheduler.Mode == config.ModeReal:
		r.owned = scheduler.NewRealTimer()
		r.timer = r.owned
	default:
		r.timer = scheduler.NewLoopTimer(nil)
	}
	r.loop, _ = r.timer.(*scheduler.LoopTimer)

	tableOpts := func(c Category) []pool.Option {
		return []pool.Option{
			pool.WithDefaultCapacity(cfg.Pools.DefaultCapacity),
			pool.WithCapacities(cfg.Pools.Capacities),
			pool.WithGraceDelay(cfg.Pools.GraceDelay),
			pool.WithCategory(c.String()),
			pool.WithLogger(o.logger),
		}
	}
	r.items = pool.NewTable(r.timer, collab.ItemExecutor, tableOpts(CategoryItem)...)
	r.values = pool.NewTable(r.timer, collab.ValueExecutor, tableOpts(CategoryValue)...)

	if collab.ResourceProvider != nil {
		r.cache = cache.New("resources", collab.ResourceProvider,
			cache.WithCapacity(cfg.Cache.Capacity),
			cache.WithLogger(o.logger))
	}
	return r, nil
}

// Config returns the normalized configuration the registry runs with.
func (r *Registry[T, R]) Config() *config.Config { return r.cfg }

// Cache returns the resource cache, or nil if no provider was configured.
func (r *Registry[T, R]) Cache() *cache.Cache[R] { return r.cache }

// Load hands out an item for key, fabricating one with the category's
// factory when the pool is empty. Resource keys are rejected; use
// LoadResource.
func (r *Registry[T, R]) Load(ctx context.Context, key Key) (item T, err error) {
	ctx, span := observability.StartSpan(ctx, r.tracer, "registry.Load")
	span.SetAttribute("pool", key.Name)
	span.SetAttribute("category", key.Category.String())
	defer func() {
		if err != nil {
			span.Fail(err)
		}
		span.End()
	}()

	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return item, closedError(key)
	}
	tbl, factory, err := r.route(key)
	if err != nil {
		r.mu.RUnlock()
		return item, err
	}
	got, ok := tbl.Load(key.Name)
	r.mu.RUnlock()
	if ok {
		span.SetAttribute("hit", true)
		return got, nil
	}
	span.SetAttribute("hit", false)

	if factory == nil {
		return item, poolerrors.New(poolerrors.ErrorTypeFactory, "pool is empty and no factory is configured").
			WithDetail("key", key.String())
	}

	timer := metrics.NewTimer(key.Category.String())
	item, err = factory.Instantiate(ctx, key.Name)
	timer.ObserveFabrication()
	if err != nil {
		r.logger.Warn("failed to fabricate item", zap.Stringer("key", key), zap.Error(err))
		return item, poolerrors.Wrap(err, poolerrors.ErrorTypeFactory, "fabricate item").
			WithDetail("key", key.String())
	}

	// Close may have run while the factory was busy; the pools are already
	// emptied, so the new item goes straight to the executor.
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.logger.Warn("registry closed during fabrication, destroying item", zap.Stringer("key", key))
		tbl.Executor().Destroy(item)
		var zero T
		return zero, closedError(key)
	}
	tbl.Register(key.Name, item)
	return item, nil
}

func closedError(key Key) *poolerrors.Error {
	return poolerrors.New(poolerrors.ErrorTypeClosed, "registry is closed").
		WithDetail("key", key.String())
}

// LoadResource returns the cached resource called name.
func (r *Registry[T, R]) LoadResource(ctx context.Context, name string) (R, error) {
	ctx, span := observability.StartSpan(ctx, r.tracer, "registry.LoadResource")
	span.SetAttribute("resource", name)
	defer span.End()

	var zero R
	if r.isClosed() {
		err := poolerrors.New(poolerrors.ErrorTypeClosed, "registry is closed").
			WithDetail("resource", name)
		span.Fail(err)
		return zero, err
	}
	if r.cache == nil {
		err := poolerrors.New(poolerrors.ErrorTypeValidation, "no resource provider configured").
			WithDetail("resource", name)
		span.Fail(err)
		return zero, err
	}
	res, err := r.cache.Load(ctx, name)
	if err != nil {
		span.Fail(err)
		return zero, err
	}
	return res, nil
}

// Recycle returns item to the pool addressed by key.
func (r *Registry[T, R]) Recycle(key Key, item T) bool {
	tbl := r.table(key, "recycle")
	return tbl != nil && tbl.Recycle(key.Name, item)
}

// RequestDestroy schedules teardown of item after the grace delay.
func (r *Registry[T, R]) RequestDestroy(key Key, item T) bool {
	tbl := r.table(key, "request_destroy")
	return tbl != nil && tbl.RequestDestroy(key.Name, item)
}

// DestroyImmediately tears item down now.
func (r *Registry[T, R]) DestroyImmediately(key Key, item T) bool {
	tbl := r.table(key, "destroy_immediately")
	return tbl != nil && tbl.DestroyImmediately(key.Name, item)
}

// DestroyAll empties the pool addressed by key.
func (r *Registry[T, R]) DestroyAll(key Key) bool {
	tbl := r.table(key, "destroy_all")
	return tbl != nil && tbl.DestroyAll(key.Name)
}

// Tick runs the teardowns that are due. It does nothing unless the
// registry runs on a cooperative timer.
func (r *Registry[T, R]) Tick() int {
	if r.loop == nil {
		return 0
	}
	return r.loop.Tick()
}

// Sweep moves the oldest idle item of every pool into pending destruction.
func (r *Registry[T, R]) Sweep() int {
	if r.isClosed() {
		return 0
	}
	return r.items.Sweep() + r.values.Sweep()
}

// Run drives Tick and, when enabled, Sweep until ctx is done.
func (r *Registry[T, R]) Run(ctx context.Context) error {
	var tick <-chan time.Time
	if r.loop != nil {
		t := time.NewTicker(r.cfg.Scheduler.TickInterval)
		defer t.Stop()
		tick = t.C
	}
	var sweep <-chan time.Time
	if r.cfg.Scheduler.SweepEnabled {
		t := time.NewTicker(r.cfg.Scheduler.SweepInterval)
		defer t.Stop()
		sweep = t.C
	}

	r.logger.Info("registry loop started",
		zap.String("mode", r.cfg.Scheduler.Mode),
		zap.Bool("sweep_enabled", r.cfg.Scheduler.SweepEnabled))
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("registry loop stopped")
			return nil
		case <-tick:
			r.Tick()
		case <-sweep:
			if n := r.Sweep(); n > 0 {
				r.logger.Debug("swept idle items", zap.Int("count", n))
			}
		}
	}
}

// Close destroys every pooled item, unloads every cached resource and
// rejects further loads. Calling Close again does nothing.
func (r *Registry[T, R]) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	n := r.items.DestroyEverything() + r.values.DestroyEverything()
	unloaded := 0
	if r.cache != nil {
		unloaded = r.cache.Purge(ctx)
	}
	if r.owned != nil {
		r.owned.Stop()
	}
	r.logger.Info("registry closed", zap.Int("destroyed", n), zap.Int("unloaded", unloaded))
	return nil
}

func (r *Registry[T, R]) isClosed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.closed
}

func (r *Registry[T, R]) route(key Key) (*pool.Table[T], ItemFactory[T], error) {
	switch key.Category {
	case CategoryItem:
		return r.items, r.itemFactory, nil
	case CategoryValue:
		return r.values, r.valueFactory, nil
	default:
		return nil, nil, poolerrors.New(poolerrors.ErrorTypeValidation, "key does not address a pool").
			WithDetail("key", key.String())
	}
}

func (r *Registry[T, R]) table(key Key, op string) *pool.Table[T] {
	if r.isClosed() {
		r.logger.Warn("registry is closed", zap.Stringer("key", key), zap.String("operation", op))
		return nil
	}
	tbl, _, err := r.route(key)
	if err != nil {
		r.logger.Warn("operation not supported for key", zap.Stringer("key", key), zap.String("operation", op))
		return nil
	}
	return tbl
}
