package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/eld/core/metrics"
)

// PromSink records dispatch events in Prometheus metrics.
type PromSink struct {
	rows      *prometheus.CounterVec
	output    *prometheus.GaugeVec
	cost      prometheus.Gauge
	lambda    prometheus.Gauge
	batchTime prometheus.Histogram
	batches   prometheus.Counter
}

// NewPromSink registers dispatch metrics on the default Prometheus registerer.
// The HTTP endpoint is started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// already registered by a previous sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	rows, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "eld_dispatch_rows_total",
		Help: "Total number of dispatched forecast rows by outcome",
	}, []string{"outcome"}))
	if err != nil {
		return nil, err
	}
	output, err := register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "eld_generator_output_mw",
		Help: "Last dispatched output per generator",
	}, []string{"generator"}))
	if err != nil {
		return nil, err
	}
	cost, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "eld_dispatch_cost",
		Help: "Total generation cost of the last dispatched row",
	}))
	if err != nil {
		return nil, err
	}
	lambda, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "eld_dispatch_lambda",
		Help: "Incremental cost of the last dispatched row",
	}))
	if err != nil {
		return nil, err
	}
	batchTime, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "eld_batch_duration_seconds",
		Help:    "Wall time of a batch run",
		Buckets: prometheus.DefBuckets,
	}))
	if err != nil {
		return nil, err
	}
	batches, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "eld_batches_total",
		Help: "Number of completed batch runs",
	}))
	if err != nil {
		return nil, err
	}
	return &PromSink{rows: rows, output: output, cost: cost, lambda: lambda, batchTime: batchTime, batches: batches}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		var zero C
		return zero, err
	}
	return c, nil
}

// RecordDispatch counts rows by outcome and exposes the latest successful
// dispatch. Events are applied in order so the gauges hold the last row.
func (s *PromSink) RecordDispatch(events []coremetrics.DispatchEvent) error {
	for _, ev := range events {
		s.rows.WithLabelValues(ev.Outcome).Inc()
		if ev.OutputsMW == nil {
			continue
		}
		for i, id := range ev.Generators {
			s.output.WithLabelValues(id).Set(ev.OutputsMW[i])
		}
		s.cost.Set(ev.TotalCost)
		s.lambda.Set(ev.Lambda)
	}
	return nil
}

// RecordBatch observes the batch duration.
func (s *PromSink) RecordBatch(ev coremetrics.BatchEvent) error {
	s.batches.Inc()
	s.batchTime.Observe(ev.Duration.Seconds())
	return nil
}
