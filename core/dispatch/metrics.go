package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	solveOutcomes   *prometheus.CounterVec
	solveIterations prometheus.Histogram
	systemLambda    prometheus.Gauge
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, prometheus.Histogram, prometheus.Gauge) {
	out := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eld_solve_total",
			Help: "Number of economic dispatch solves by outcome",
		},
		[]string{"outcome"},
	)
	iter := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "eld_solve_iterations",
			Help:    "Lambda iterations needed by successful solves",
			Buckets: prometheus.ExponentialBuckets(1, 2, 16),
		},
	)
	lambda := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "eld_system_lambda",
			Help: "System marginal cost of the last successful solve",
		},
	)
	return out, iter, lambda
}

func init() {
	solveOutcomes, solveIterations, systemLambda = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers solver metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(solveOutcomes, solveIterations, systemLambda)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	solveOutcomes, solveIterations, systemLambda = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}

func observe(res Result, err error) {
	solveOutcomes.WithLabelValues(Outcome(err)).Inc()
	if err != nil {
		return
	}
	solveIterations.Observe(float64(res.Iterations))
	systemLambda.Set(res.Lambda)
}

// Dispatch runs Solve and records the outcome in the solver metrics.
func Dispatch(req Request) (Result, error) {
	res, err := Solve(req)
	observe(res, err)
	return res, err
}
