package mqtt

import "time"

// Publisher sends generator setpoints for one dispatched time step.
type Publisher interface {
	// PublishSetpoints sends the output in MW of every generator, keyed by
	// generator identifier, for the step starting at ts.
	PublishSetpoints(runID string, ts time.Time, setpointsMW map[string]float64) error
}
