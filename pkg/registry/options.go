package registry

import (
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ajitpratap0/lifepool/pkg/scheduler"
)

// Option configures a Registry.
type Option func(*options)

type options struct {
	timer  scheduler.TimerService
	logger *zap.Logger
	tracer trace.Tracer
}

// WithTimer overrides the timer chosen from the scheduler mode. Passing a
// *scheduler.LoopTimer keeps Tick and Run draining it.
func WithTimer(t scheduler.TimerService) Option {
	return func(o *options) { o.timer = t }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithTracer sets the tracer used for Load spans.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) { o.tracer = t }
}
