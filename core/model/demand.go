package model

import "time"

// DemandPoint is one forecast step: the load to be served at Timestamp.
// Err is set when the demand value of the step could not be read; such a
// point is reported as a failed row and never dispatched.
type DemandPoint struct {
	Timestamp time.Time `json:"timestamp"`
	DemandMW  float64   `json:"demand_mw"`
	Err       error     `json:"-"`
}
