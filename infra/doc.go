// Package infra contains technical adapters such as the MQTT setpoint
// publisher and the Prometheus and InfluxDB sinks. These packages should
// depend only on the interfaces defined in the core packages.
package infra
