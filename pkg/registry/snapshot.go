package registry

import (
	"go.uber.org/zap"

	"github.com/ajitpratap0/lifepool/pkg/cache"
	"github.com/ajitpratap0/lifepool/pkg/pool"
	"github.com/ajitpratap0/lifepool/pkg/scheduler"
)

// Snapshot is a serializable view of a registry.
type Snapshot struct {
	Items      []pool.Stats    `json:"items"`
	Values     []pool.Stats    `json:"values"`
	Cache      *cache.Stats    `json:"cache,omitempty"`
	Schedulers []SchedulerStat `json:"schedulers"`
	Closed     bool            `json:"closed"`
}

// SchedulerStat is the teardown scheduler state of one category.
type SchedulerStat struct {
	Category string `json:"category"`
	scheduler.Stats
}

// Snapshot captures the state of every pool, the cache and the schedulers.
func (r *Registry[T, R]) Snapshot() Snapshot {
	s := Snapshot{
		Items:  r.items.Stats(),
		Values: r.values.Stats(),
		Schedulers: []SchedulerStat{
			{Category: CategoryItem.String(), Stats: r.items.Scheduler().Stats()},
			{Category: CategoryValue.String(), Stats: r.values.Scheduler().Stats()},
		},
		Closed: r.isClosed(),
	}
	if r.cache != nil {
		st := r.cache.Stats()
		s.Cache = &st
	}
	return s
}

// Print logs the pool or cache addressed by key. It returns false for
// unknown pools.
func (r *Registry[T, R]) Print(key Key) bool {
	switch key.Category {
	case CategoryItem:
		return r.items.Print(key.Name)
	case CategoryValue:
		return r.values.Print(key.Name)
	case CategoryResource:
		if r.cache == nil || !r.cache.Contains(key.Name) {
			r.logger.Warn("resource is not cached", zap.Stringer("key", key))
			return false
		}
		r.cache.Print()
		return true
	}
	r.logger.Warn("unknown category", zap.Stringer("key", key))
	return false
}

// PrintAll logs every pool and the cache.
func (r *Registry[T, R]) PrintAll() {
	r.items.PrintAll()
	r.values.PrintAll()
	if r.cache != nil {
		r.cache.Print()
	}
}
