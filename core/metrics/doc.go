// Package metrics defines the sink interfaces used to export dispatch
// outcomes. Concrete sinks (Prometheus, InfluxDB) live in infra/metrics and
// register themselves with the factory; NewMetricsSink returns a MultiSink
// when several sinks are configured.
package metrics
