package model

import (
	"fmt"
	"math"
)

// CostCurve is a quadratic fuel cost A + B*P + C*P^2.
type CostCurve struct {
	A float64 `json:"a"` // fixed cost
	B float64 `json:"b"` // linear coefficient
	C float64 `json:"c"` // quadratic coefficient, must be positive
}

// Cost returns the fuel cost at output p.
func (c CostCurve) Cost(p float64) float64 {
	return c.A + c.B*p + c.C*(p*p)
}

// Marginal returns the incremental cost dCost/dP at output p.
func (c CostCurve) Marginal(p float64) float64 {
	return c.B + 2*c.C*p
}

// Generator is a dispatchable unit with box limits in MW.
type Generator struct {
	ID    string    `json:"id"`
	MinMW float64   `json:"min_mw"`
	MaxMW float64   `json:"max_mw"`
	Cost  CostCurve `json:"cost"`
}

// OutputAt returns the cost-optimal output for the system marginal cost
// lambda, clamped to the generator limits.
func (g Generator) OutputAt(lambda float64) float64 {
	p := (lambda - g.Cost.B) / (2 * g.Cost.C)
	return math.Min(math.Max(p, g.MinMW), g.MaxMW)
}

// Validate checks that the limits and cost curve are usable by the solver.
func (g Generator) Validate() error {
	for _, v := range []float64{g.MinMW, g.MaxMW, g.Cost.A, g.Cost.B, g.Cost.C} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("non-finite parameter")
		}
	}
	if g.MinMW < 0 {
		return fmt.Errorf("min output %v is negative", g.MinMW)
	}
	if g.MinMW > g.MaxMW {
		return fmt.Errorf("min output %v exceeds max output %v", g.MinMW, g.MaxMW)
	}
	if g.Cost.C <= 0 {
		return fmt.Errorf("quadratic cost coefficient must be positive, got %v", g.Cost.C)
	}
	return nil
}

// Fleet is an ordered set of generators. Outputs are reported by index.
type Fleet []Generator

// Bounds returns the total minimum and maximum output of the fleet.
func (f Fleet) Bounds() (min, max float64) {
	for _, g := range f {
		min += g.MinMW
		max += g.MaxMW
	}
	return min, max
}

// Label returns the display identifier of the generator at index i.
func (f Fleet) Label(i int) string {
	if f[i].ID != "" {
		return f[i].ID
	}
	return fmt.Sprintf("G%d", i+1)
}

// Labels returns the display identifiers for every generator in order.
func (f Fleet) Labels() []string {
	out := make([]string, len(f))
	for i := range f {
		out[i] = f.Label(i)
	}
	return out
}
