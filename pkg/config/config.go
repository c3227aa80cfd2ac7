package config

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/lifepool/pkg/logger"
	"github.com/ajitpratap0/lifepool/pkg/observability"
	"github.com/ajitpratap0/lifepool/pkg/poolerrors"
)

// Scheduler modes.
const (
	// ModeLoop drains due teardowns from the registry's tick loop.
	ModeLoop = "loop"
	// ModeReal fires teardowns on runtime timers.
	ModeReal = "real"
)

// Defaults applied by Default and Normalize.
const (
	DefaultPoolCapacity  = 10
	DefaultCacheCapacity = 10
	DefaultGraceDelay    = 10 * time.Second
	DefaultTickInterval  = 100 * time.Millisecond
	DefaultSweepInterval = 20 * time.Second
)

// Config is the root configuration of a lifepool registry and its CLI.
type Config struct {
	// Pools configures the pooled categories
	Pools PoolsConfig `yaml:"pools" json:"pools"`
	// Cache configures the resource cache
	Cache CacheConfig `yaml:"cache" json:"cache"`
	// Scheduler controls how deferred teardown and sweeps are driven
	Scheduler SchedulerConfig `yaml:"scheduler" json:"scheduler"`
	// Logging is passed to logger.Init
	Logging logger.Config `yaml:"logging" json:"logging"`
	// Observability configures tracing and the metrics endpoint
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

// PoolsConfig contains pool sizing and teardown settings.
type PoolsConfig struct {
	// DefaultCapacity bounds idle plus in-use items of pools without an entry in Capacities
	DefaultCapacity int `yaml:"default_capacity" json:"default_capacity"`
	// Capacities overrides the capacity per pool name
	Capacities map[string]int `yaml:"capacities" json:"capacities"`
	// GraceDelay is how long a destroy request can be rescued
	GraceDelay time.Duration `yaml:"grace_delay" json:"grace_delay"`
}

// CacheConfig contains resource cache settings.
type CacheConfig struct {
	// Capacity bounds the number of cached resources
	Capacity int `yaml:"capacity" json:"capacity"`
}

// SchedulerConfig controls the timer and the periodic sweep.
type SchedulerConfig struct {
	// Mode is "loop" or "real"
	Mode string `yaml:"mode" json:"mode"`
	// TickInterval is how often Run drains due teardowns in loop mode
	TickInterval time.Duration `yaml:"tick_interval" json:"tick_interval"`
	// SweepEnabled turns on the periodic oldest-idle sweep
	SweepEnabled bool `yaml:"sweep_enabled" json:"sweep_enabled"`
	// SweepInterval is the period of the sweep
	SweepInterval time.Duration `yaml:"sweep_interval" json:"sweep_interval"`
}

// ObservabilityConfig contains tracing and metrics endpoint settings.
type ObservabilityConfig struct {
	Tracing observability.TracingConfig `yaml:"tracing" json:"tracing"`
	// MetricsAddr serves Prometheus /metrics when set (e.g. ":9090")
	MetricsAddr string `yaml:"metrics_addr" json:"metrics_addr"`
}

// Default returns a configuration with the stock values.
func Default() *Config {
	return &Config{
		Pools: PoolsConfig{
			DefaultCapacity: DefaultPoolCapacity,
			Capacities:      make(map[string]int),
			GraceDelay:      DefaultGraceDelay,
		},
		Cache: CacheConfig{
			Capacity: DefaultCacheCapacity,
		},
		Scheduler: SchedulerConfig{
			Mode:          ModeLoop,
			TickInterval:  DefaultTickInterval,
			SweepEnabled:  true,
			SweepInterval: DefaultSweepInterval,
		},
		Logging: logger.DefaultConfig(),
		Observability: ObservabilityConfig{
			Tracing: observability.DefaultTracingConfig(),
		},
	}
}

// Normalize replaces out-of-range sizes and durations with defaults and
// logs a warning for each. It never fails.
func (c *Config) Normalize(log *zap.Logger) {
	if log == nil {
		log = logger.Component("config")
	}
	warn := func(field string, got, want interface{}) {
		log.Warn("invalid configuration value, using default",
			zap.String("field", field),
			zap.Any("configured", got),
			zap.Any("default", want))
	}

	if c.Pools.DefaultCapacity <= 0 {
		warn("pools.default_capacity", c.Pools.DefaultCapacity, DefaultPoolCapacity)
		c.Pools.DefaultCapacity = DefaultPoolCapacity
	}
	for name, n := range c.Pools.Capacities {
		if n <= 0 {
			warn("pools.capacities."+name, n, c.Pools.DefaultCapacity)
			c.Pools.Capacities[name] = c.Pools.DefaultCapacity
		}
	}
	if c.Pools.GraceDelay < 0 {
		warn("pools.grace_delay", c.Pools.GraceDelay, DefaultGraceDelay)
		c.Pools.GraceDelay = DefaultGraceDelay
	}
	if c.Cache.Capacity <= 0 {
		warn("cache.capacity", c.Cache.Capacity, DefaultCacheCapacity)
		c.Cache.Capacity = DefaultCacheCapacity
	}
	if c.Scheduler.Mode == "" {
		c.Scheduler.Mode = ModeLoop
	}
	if c.Scheduler.TickInterval <= 0 {
		warn("scheduler.tick_interval", c.Scheduler.TickInterval, DefaultTickInterval)
		c.Scheduler.TickInterval = DefaultTickInterval
	}
	if c.Scheduler.SweepInterval <= 0 {
		warn("scheduler.sweep_interval", c.Scheduler.SweepInterval, DefaultSweepInterval)
		c.Scheduler.SweepInterval = DefaultSweepInterval
	}
}

// Validate rejects values Normalize cannot repair.
func (c *Config) Validate() error {
	switch c.Scheduler.Mode {
	case ModeLoop, ModeReal:
	default:
		return poolerrors.New(poolerrors.ErrorTypeConfig,
			fmt.Sprintf("scheduler.mode must be %q or %q", ModeLoop, ModeReal)).
			WithDetail("mode", c.Scheduler.Mode)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return poolerrors.New(poolerrors.ErrorTypeConfig, "logging.level must be debug, info, warn or error").
			WithDetail("level", c.Logging.Level)
	}
	switch c.Logging.Encoding {
	case "", "json", "console":
	default:
		return poolerrors.New(poolerrors.ErrorTypeConfig, "logging.encoding must be json or console").
			WithDetail("encoding", c.Logging.Encoding)
	}
	if r := c.Observability.Tracing.SamplingRate; r < 0 || r > 1 {
		return poolerrors.New(poolerrors.ErrorTypeConfig, "observability.tracing.sampling_rate must be within [0, 1]").
			WithDetail("sampling_rate", r)
	}
	return nil
}

// CapacityFor returns the configured capacity of the named pool.
func (p *PoolsConfig) CapacityFor(name string) int {
	if n, ok := p.Capacities[name]; ok {
		return n
	}
	return p.DefaultCapacity
}
