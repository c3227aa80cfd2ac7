// Package cache holds at most one canonical instance of each named
// resource, loaded on demand from a ResourceProvider and evicted in
// insertion order once the cache is over capacity.
//
// Concurrent misses for the same name are collapsed so the provider is
// called once. Cached resources are never recycled or destroyed by the
// cache itself; eviction hands them back to the provider's Unload.
package cache

import (
	"context"
	"errors"
	"slices"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ajitpratap0/lifepool/pkg/logger"
	"github.com/ajitpratap0/lifepool/pkg/metrics"
	"github.com/ajitpratap0/lifepool/pkg/poolerrors"
)

// DefaultCapacity applies when no capacity, or an invalid one, is configured.
const DefaultCapacity = 10

// ResourceProvider loads and unloads named resources.
type ResourceProvider[T any] interface {
	Load(ctx context.Context, name string) (T, error)
	Unload(ctx context.Context, name string, resource T)
}

// Stats is a point-in-time view of a cache.
type Stats struct {
	Name      string   `json:"name"`
	Capacity  int      `json:"capacity"`
	Entries   int      `json:"entries"`
	Order     []string `json:"order"`
	Hits      int64    `json:"hits"`
	Misses    int64    `json:"misses"`
	Failures  int64    `json:"failures"`
	Evictions int64    `json:"evictions"`
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	capacity int
	logger   *zap.Logger
}

// WithCapacity sets the maximum number of cached resources.
func WithCapacity(n int) Option {
	return func(o *options) { o.capacity = n }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Cache is a bounded name to resource map. It is safe for concurrent use.
type Cache[T any] struct {
	mu       sync.Mutex
	name     string
	max      int
	entries  map[string]T
	order    []string // insertion order, head is evicted first
	provider ResourceProvider[T]
	group    singleflight.Group
	logger   *zap.Logger

	hits, misses, failures, evictions int64
}

// New creates a cache named name over provider.
func New[T any](name string, provider ResourceProvider[T], opts ...Option) *Cache[T] {
	o := options{capacity: DefaultCapacity}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.Component("cache")
	}
	log := o.logger.With(zap.String("cache", name))
	if o.capacity <= 0 {
		log.Warn("cache capacity must be positive, using default",
			zap.Int("configured", o.capacity),
			zap.Int("default", DefaultCapacity))
		o.capacity = DefaultCapacity
	}
	return &Cache[T]{
		name:     name,
		max:      o.capacity,
		entries:  make(map[string]T),
		provider: provider,
		logger:   log,
	}
}

// Name returns the cache name.
func (c *Cache[T]) Name() string { return c.name }

// Load returns the cached resource for name, loading it from the provider
// on a miss. A provider failure is returned as a not-found error and
// nothing is cached, so a later Load asks the provider again. If ctx is
// done before the load finishes, Load returns ctx.Err() and the load still
// completes for the other callers waiting on it.
func (c *Cache[T]) Load(ctx context.Context, name string) (T, error) {
	c.mu.Lock()
	if r, ok := c.entries[name]; ok {
		c.hits++
		n := len(c.entries)
		c.mu.Unlock()
		metrics.ObserveCache(c.name, metrics.ResultHit, n)
		return r, nil
	}
	c.mu.Unlock()

	// The shared load outlives any single caller; each caller stops waiting
	// when its own ctx is done.
	ch := c.group.DoChan(name, func() (interface{}, error) {
		return c.load(context.WithoutCancel(ctx), name)
	})
	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		r, _ := res.Val.(T)
		return r, nil
	}
}

func (c *Cache[T]) load(ctx context.Context, name string) (T, error) {
	c.mu.Lock()
	if r, ok := c.entries[name]; ok {
		c.hits++
		c.mu.Unlock()
		return r, nil
	}
	c.misses++
	c.mu.Unlock()

	r, err := c.provider.Load(ctx, name)
	if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		var zero T
		return zero, err
	}
	if err != nil {
		c.mu.Lock()
		c.failures++
		n := len(c.entries)
		c.mu.Unlock()
		metrics.ObserveCache(c.name, metrics.ResultNotFound, n)
		c.logger.Warn("resource could not be loaded", zap.String("resource", name), zap.Error(err))
		var zero T
		return zero, poolerrors.Wrap(err, poolerrors.ErrorTypeNotFound, "resource not found").
			WithDetail("cache", c.name).
			WithDetail("resource", name)
	}

	c.mu.Lock()
	c.entries[name] = r
	c.order = append(c.order, name)
	var evicted []string
	var evictedRes []T
	for len(c.order) > c.max {
		victim := c.order[0]
		c.order = slices.Delete(c.order, 0, 1)
		evicted = append(evicted, victim)
		evictedRes = append(evictedRes, c.entries[victim])
		delete(c.entries, victim)
		c.evictions++
	}
	n := len(c.entries)
	c.mu.Unlock()

	metrics.ObserveCache(c.name, metrics.ResultMiss, n)
	for i, victim := range evicted {
		metrics.ObserveCache(c.name, metrics.ResultEvicted, n)
		c.logger.Debug("evicted resource", zap.String("resource", victim))
		c.provider.Unload(ctx, victim, evictedRes[i])
	}
	return r, nil
}

// Contains reports whether name is cached.
func (c *Cache[T]) Contains(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[name]
	return ok
}

// Len returns the number of cached resources.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Order returns the cached names, oldest first.
func (c *Cache[T]) Order() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.order)
}

// Stats returns a snapshot of the cache.
func (c *Cache[T]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Name:      c.name,
		Capacity:  c.max,
		Entries:   len(c.entries),
		Order:     slices.Clone(c.order),
		Hits:      c.hits,
		Misses:    c.misses,
		Failures:  c.failures,
		Evictions: c.evictions,
	}
}

// Print logs the cache contents.
func (c *Cache[T]) Print() {
	st := c.Stats()
	c.logger.Info("cache state",
		zap.Int("capacity", st.Capacity),
		zap.Strings("order", st.Order),
		zap.Int64("hits", st.Hits),
		zap.Int64("misses", st.Misses),
		zap.Int64("failures", st.Failures),
		zap.Int64("evictions", st.Evictions))
}

// Purge unloads every cached resource, oldest first, and empties the cache.
func (c *Cache[T]) Purge(ctx context.Context) int {
	c.mu.Lock()
	order := c.order
	entries := c.entries
	c.order = nil
	c.entries = make(map[string]T)
	c.mu.Unlock()

	for _, name := range order {
		c.provider.Unload(ctx, name, entries[name])
	}
	metrics.ObserveCache(c.name, metrics.ResultOK, 0)
	return len(order)
}
