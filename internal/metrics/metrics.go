// Package metrics holds the engine's Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Set bundles the engine collectors registered on one registerer.
type Set struct {
	Instants  prometheus.Counter
	Aborts    prometheus.Counter
	Steps     prometheus.Counter
	Emissions prometheus.Counter
	Duration  prometheus.Histogram
}

// New creates and registers the collectors.
func New(reg prometheus.Registerer) *Set {
	s := &Set{
		Instants: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "instantx",
			Name:      "instants_total",
			Help:      "Completed instants.",
		}),
		Aborts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "instantx",
			Name:      "instant_aborts_total",
			Help:      "Instants that failed with an error.",
		}),
		Steps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "instantx",
			Name:      "steps_total",
			Help:      "Continuation steps executed.",
		}),
		Emissions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "instantx",
			Name:      "emissions_total",
			Help:      "Signal emissions.",
		}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "instantx",
			Name:      "instant_duration_seconds",
			Help:      "Wall-clock duration of one instant.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 12),
		}),
	}
	reg.MustRegister(s.Instants, s.Aborts, s.Steps, s.Emissions, s.Duration)
	return s
}

// ObserveInstant records one completed instant.
func (s *Set) ObserveInstant(d time.Duration, steps, emissions int64) {
	s.Instants.Inc()
	s.Steps.Add(float64(steps))
	s.Emissions.Add(float64(emissions))
	s.Duration.Observe(d.Seconds())
}

// IncAbort records a failed instant.
func (s *Set) IncAbort() { s.Aborts.Inc() }
