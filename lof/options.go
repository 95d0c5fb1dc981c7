package lof

import (
	"log/slog"
	"runtime"

	"github.com/viant/sqlite-lof/metrics"
)

type options struct {
	workers int
	logger  *slog.Logger
	metrics *metrics.Collector
}

func defaultOptions() options {
	return options{
		workers: runtime.GOMAXPROCS(0),
		logger:  slog.New(slog.DiscardHandler),
	}
}

// Option configures an Engine.
type Option func(*options)

// WithWorkers sets how many goroutines share the per-record work of a phase.
// Values below 1 select runtime.GOMAXPROCS(0).
func WithWorkers(n int) Option {
	return func(o *options) {
		if n < 1 {
			n = runtime.GOMAXPROCS(0)
		}
		o.workers = n
	}
}

// WithLogger sets the structured logger. If nil is passed, logs are discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = slog.New(slog.DiscardHandler)
		}
		o.logger = logger
	}
}

// WithMetrics sets the Prometheus collector. nil disables metrics.
func WithMetrics(c *metrics.Collector) Option {
	return func(o *options) { o.metrics = c }
}
