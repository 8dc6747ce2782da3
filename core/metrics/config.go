package metrics

import "github.com/kilianp07/eld/core/factory"

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
	// ListenAddr exposes /metrics when non-empty (e.g. ":9090").
	ListenAddr string `json:"listen_addr"`
}
