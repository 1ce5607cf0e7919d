package rxfn

import (
	"log/slog"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/KasperOmsK/rxfn/internal/logging"
	"github.com/KasperOmsK/rxfn/internal/metrics"
)

// Option configures the runtime-wide settings applied by Configure.
type Option func(*options)

// options holds the runtime-wide configuration. A value is never mutated once
// published through current.
type options struct {
	logger      Logger
	metrics     MetricsCollector
	onUnhandled func(error)
	scheduler   Scheduler
}

var current atomic.Pointer[options]

// Configure applies opts on top of the current configuration.
//
// Configure is safe to call concurrently with running subscriptions; each
// subscription reads the configuration when it needs it, so changes apply to
// work that starts afterwards.
//
// Example:
//
//	rxfn.Configure(
//	    rxfn.WithLogger(rxfn.NewSlogLogger(logger)),
//	    rxfn.WithMetrics(rxfn.NewPrometheusMetrics(reg, "myapp")),
//	)
func Configure(opts ...Option) {
	for {
		old := current.Load()
		next := &options{}
		if old != nil {
			*next = *old
		}
		for _, opt := range opts {
			opt(next)
		}
		if current.CompareAndSwap(old, next) {
			return
		}
	}
}

// ResetConfiguration restores the defaults: slog.Default() logging, no
// metrics, unhandled errors logged, lazily started DefaultScheduler.
func ResetConfiguration() {
	current.Store(nil)
}

// WithLogger sets the logger used for diagnostics and unhandled errors.
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(collector MetricsCollector) Option {
	return func(o *options) {
		o.metrics = collector
	}
}

// WithUnhandledErrorHandler replaces the default handling of errors that
// reach a subscriber without an error callback. The default logs them at
// error level.
func WithUnhandledErrorHandler(handler func(error)) Option {
	return func(o *options) {
		o.onUnhandled = handler
	}
}

// WithDefaultScheduler sets the scheduler used by time-based functions that
// receive a nil Scheduler.
func WithDefaultScheduler(s Scheduler) Option {
	return func(o *options) {
		o.scheduler = s
	}
}

// NewSlogLogger adapts a *slog.Logger to Logger. A nil logger means slog.Default().
func NewSlogLogger(logger *slog.Logger) Logger {
	return logging.NewSlog(logger)
}

// NewNopLogger returns a Logger that discards everything.
func NewNopLogger() Logger {
	return logging.NewNop()
}

// NewPrometheusMetrics returns a MetricsCollector registering its metrics on
// reg (prometheus.DefaultRegisterer if nil) under namespace ("rxfn" if empty).
func NewPrometheusMetrics(reg prometheus.Registerer, namespace string) MetricsCollector {
	return metrics.NewPrometheus(reg, namespace)
}

var nopMetrics = metrics.NewNop()

func settings() *options {
	if o := current.Load(); o != nil {
		return o
	}

	return &options{}
}

func (o *options) log() Logger {
	if o.logger != nil {
		return o.logger
	}

	return logging.NewSlogDefault()
}

func (o *options) stats() MetricsCollector {
	if o.metrics != nil {
		return o.metrics
	}

	return nopMetrics
}

// reportUnhandled hands err to the configured handler. Errors are never
// dropped silently: without a handler they are logged.
func reportUnhandled(err error) {
	cfg := settings()
	cfg.stats().RecordUnhandledError()
	if cfg.onUnhandled != nil {
		cfg.onUnhandled(err)
		return
	}
	cfg.log().Error("unhandled error in observable", "error", err)
}
