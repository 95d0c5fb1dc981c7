// Package metrics exposes Prometheus collectors for lof engine runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Run status label values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Collector groups the engine collectors. A nil *Collector is valid and
// records nothing.
type Collector struct {
	// Runs counts engine invocations, labelled by status.
	Runs *prometheus.CounterVec

	// PhaseDuration measures each engine phase.
	PhaseDuration *prometheus.HistogramVec

	// RecordsScored counts records that received a LOF score.
	RecordsScored prometheus.Counter
}

// NewCollector creates and registers the collectors with reg. A nil reg
// creates unregistered collectors.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		Runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lof_runs_total",
				Help: "Total number of outlier scoring runs",
			},
			[]string{"status"},
		),
		PhaseDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "lof_phase_duration_seconds",
				Help: "Duration of lof engine phases in seconds",
				// quadratic neighbor search dominates; buckets reach minutes
				Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 0.5, 1, 5, 15, 60, 300},
			},
			[]string{"phase"},
		),
		RecordsScored: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "lof_records_scored_total",
				Help: "Total number of records scored",
			},
		),
	}
}

// Default is registered with the Prometheus default registerer.
var Default = NewCollector(prometheus.DefaultRegisterer)

// ObservePhase records the duration of one engine phase.
func (c *Collector) ObservePhase(phase string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.PhaseDuration.WithLabelValues(phase).Observe(elapsed.Seconds())
}

// ObserveRun records a finished run. records is added to RecordsScored only
// for successful runs.
func (c *Collector) ObserveRun(err error, records int) {
	if c == nil {
		return
	}
	if err != nil {
		c.Runs.WithLabelValues(StatusError).Inc()
		return
	}
	c.Runs.WithLabelValues(StatusOK).Inc()
	c.RecordsScored.Add(float64(records))
}
