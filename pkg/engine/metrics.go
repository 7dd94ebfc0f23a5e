package engine

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the engine's prometheus collectors.
type Metrics struct {
	Evaluations prometheus.Counter
	Failures    prometheus.Counter
	Generations prometheus.Counter
	Attempts    prometheus.Counter
	BestFitness prometheus.Gauge
	EvalSeconds prometheus.Histogram
}

// NewMetrics creates the collectors and registers them on reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Evaluations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "evogp_evaluations_total",
			Help: "Candidate trees scored.",
		}),
		Failures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "evogp_failed_evaluations_total",
			Help: "Candidate trees that could not be scored.",
		}),
		Generations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "evogp_generations_total",
			Help: "Generations completed, including initial populations.",
		}),
		Attempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "evogp_attempts_total",
			Help: "Restarts from a fresh population.",
		}),
		BestFitness: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "evogp_best_fitness",
			Help: "Best combined fitness of the current attempt.",
		}),
		EvalSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "evogp_evaluation_seconds",
			Help:    "Time spent scoring one candidate.",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.Evaluations, m.Failures, m.Generations, m.Attempts, m.BestFitness, m.EvalSeconds} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}
	return m, nil
}
