package config

import (
	"fmt"

	"github.com/kilianp07/eld/core/factory"
)

// LoggingConfig defines settings for the dispatch audit log store.
type LoggingConfig struct {
	Enabled bool `json:"enabled"`
	// Backend selects the log store type: "jsonl" or "sqlite".
	Backend string `json:"backend"`
	// Path is the file location of the log store.
	Path string `json:"path"`
}

// SetDefaults applies sane defaults.
func (c *LoggingConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "jsonl"
	}
	if c.Path == "" {
		c.Path = "dispatch.log"
	}
}

// Validate checks mandatory fields.
func (c LoggingConfig) Validate() error {
	if c.Backend != "jsonl" && c.Backend != "sqlite" {
		return fmt.Errorf("unknown backend %s", c.Backend)
	}
	if c.Path == "" {
		return fmt.Errorf("path is required")
	}
	return nil
}

// ModuleConfig returns the store description understood by
// logging.NewLogStore.
func (c LoggingConfig) ModuleConfig() factory.ModuleConfig {
	return factory.ModuleConfig{Type: c.Backend, Conf: map[string]any{"path": c.Path}}
}
