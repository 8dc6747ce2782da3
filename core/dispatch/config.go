package dispatch

import (
	"fmt"
	"runtime"
)

// Config defines solver and batch settings.
type Config struct {
	Tolerance     float64 `json:"tolerance"`
	MaxIterations int     `json:"max_iterations"`
	// Workers bounds the number of rows dispatched concurrently.
	Workers int `json:"workers"`
}

// SetDefaults applies batch defaults to unset fields.
func (c *Config) SetDefaults() {
	if c.Tolerance == 0 {
		c.Tolerance = DefaultTolerance
	}
	if c.MaxIterations == 0 {
		c.MaxIterations = DefaultBatchMaxIterations
	}
	if c.Workers == 0 {
		c.Workers = runtime.NumCPU()
	}
}

// Validate checks the settings are usable.
func (c Config) Validate() error {
	if c.Tolerance <= 0 {
		return fmt.Errorf("tolerance must be positive")
	}
	if c.MaxIterations <= 0 {
		return fmt.Errorf("max_iterations must be positive")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}
	return nil
}
