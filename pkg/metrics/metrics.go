// Package metrics exposes Prometheus collectors for the lifepool engine:
// pool item partitions, hit/rescue/miss ratios, evictions, deferred
// destruction outcomes and resource cache behaviour.
//
// # Overview
//
// Collectors are package-level and registered with the default Prometheus
// registry through promauto, so any process that serves promhttp.Handler()
// exports them without extra wiring. Components record through the small
// helpers below instead of touching the vectors directly.
//
// # Basic Usage
//
//	metrics.ObservePoolOp("enemy", "item", metrics.OpGet, metrics.ResultRescue)
//	metrics.SetPoolItems("enemy", "item", idle, inUse, pending)
//
//	timer := metrics.NewTimer("item")
//	item, err := factory.Instantiate(ctx, name)
//	timer.ObserveFabrication()
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "lifepool"

// Pool operation names used as the "operation" label.
const (
	OpGet                = "get"
	OpRecycle            = "recycle"
	OpRequestDestroy     = "request_destroy"
	OpDestroyImmediately = "destroy_immediately"
	OpDestroyAll         = "destroy_all"
	OpEvict              = "evict"
	OpSweep              = "sweep"
	OpDestroyed          = "destroyed"
)

// Result label values.
const (
	ResultHit      = "hit"
	ResultRescue   = "rescue"
	ResultMiss     = "miss"
	ResultOK       = "ok"
	ResultNoop     = "noop"
	ResultNotFound = "not_found"
	ResultEvicted  = "evicted"
)

var (
	// PoolOperations counts pool operations by outcome.
	// Labels: pool, category, operation, result
	PoolOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "operations_total",
			Help:      "Total pool operations by outcome",
		},
		[]string{"pool", "category", "operation", "result"},
	)

	// PoolItems tracks the current partition of a pool.
	// Labels: pool, category, state (idle, in_use, pending_destruction)
	PoolItems = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "items",
			Help:      "Items per pool and state",
		},
		[]string{"pool", "category", "state"},
	)

	// CacheOperations counts resource cache lookups and evictions.
	// Labels: cache, result
	CacheOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "operations_total",
			Help:      "Total resource cache operations by outcome",
		},
		[]string{"cache", "result"},
	)

	// CacheEntries tracks how many resources a cache holds.
	CacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "entries",
			Help:      "Resources currently held by the cache",
		},
		[]string{"cache"},
	)

	// SchedulerTasks counts deferred task transitions.
	// Labels: scheduler, outcome (scheduled, fired, cancelled)
	SchedulerTasks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "tasks_total",
			Help:      "Deferred task transitions",
		},
		[]string{"scheduler", "outcome"},
	)

	// SchedulerPending tracks registrations that have neither fired nor been cancelled.
	SchedulerPending = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "pending_tasks",
			Help:      "Registered deferred tasks awaiting their deadline",
		},
		[]string{"scheduler"},
	)

	// FabricationLatency tracks how long ItemFactory.Instantiate takes on a pool miss.
	FabricationLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "fabrication_duration_seconds",
			Help:      "Duration of item fabrication on pool misses",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		},
		[]string{"category"},
	)
)

// ObservePoolOp increments the operation counter for a pool.
func ObservePoolOp(pool, category, operation, result string) {
	PoolOperations.WithLabelValues(pool, category, operation, result).Inc()
}

// SetPoolItems publishes the current partition sizes of a pool.
func SetPoolItems(pool, category string, idle, inUse, pending int) {
	PoolItems.WithLabelValues(pool, category, "idle").Set(float64(idle))
	PoolItems.WithLabelValues(pool, category, "in_use").Set(float64(inUse))
	PoolItems.WithLabelValues(pool, category, "pending_destruction").Set(float64(pending))
}

// ObserveCache increments the cache counter for result and publishes the entry count.
func ObserveCache(cache, result string, entries int) {
	CacheOperations.WithLabelValues(cache, result).Inc()
	CacheEntries.WithLabelValues(cache).Set(float64(entries))
}

// ObserveTask increments the scheduler transition counter and publishes pending registrations.
func ObserveTask(scheduler, outcome string, pending int) {
	SchedulerTasks.WithLabelValues(scheduler, outcome).Inc()
	SchedulerPending.WithLabelValues(scheduler).Set(float64(pending))
}

// Timer measures a fabrication call.
type Timer struct {
	start    time.Time
	category string
}

// NewTimer starts timing immediately.
func NewTimer(category string) *Timer {
	return &Timer{
		start:    time.Now(),
		category: category,
	}
}

// Stop returns the elapsed duration since creation.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}

// ObserveFabrication records the elapsed time in FabricationLatency and returns it.
func (t *Timer) ObserveFabrication() time.Duration {
	d := t.Stop()
	FabricationLatency.WithLabelValues(t.category).Observe(d.Seconds())
	return d
}
