package pool

import (
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultCapacity applies when no capacity, or an invalid one, is configured.
	DefaultCapacity = 10
	// DefaultGraceDelay is how long a pending item stays rescuable.
	DefaultGraceDelay = 10 * time.Second
	// DefaultCategory labels pools created without a category.
	DefaultCategory = "default"
)

// Option configures a Pool or a Table.
type Option func(*options)

type options struct {
	capacity   int
	capacities map[string]int
	grace      time.Duration
	category   string
	logger     *zap.Logger
}

func defaultOptions() options {
	return options{
		capacity: DefaultCapacity,
		grace:    DefaultGraceDelay,
		category: DefaultCategory,
	}
}

// WithCapacity sets the capacity of a Pool, or the default capacity of the
// pools a Table creates.
func WithCapacity(n int) Option {
	return func(o *options) { o.capacity = n }
}

// WithDefaultCapacity is an alias of WithCapacity that reads better on tables.
func WithDefaultCapacity(n int) Option {
	return WithCapacity(n)
}

// WithCapacities sets per-name capacities for a Table. They override the
// default capacity but not a capacity passed to LoadWithCapacity.
func WithCapacities(caps map[string]int) Option {
	return func(o *options) {
		o.capacities = make(map[string]int, len(caps))
		for k, v := range caps {
			o.capacities[k] = v
		}
	}
}

// WithGraceDelay sets how long an item waits in pending destruction.
func WithGraceDelay(d time.Duration) Option {
	return func(o *options) { o.grace = d }
}

// WithCategory sets the category label used in logs and metrics.
func WithCategory(category string) Option {
	return func(o *options) { o.category = category }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}
