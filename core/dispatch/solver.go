package dispatch

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/kilianp07/eld/core/model"
)

const (
	// DefaultTolerance is the accepted power mismatch in MW.
	DefaultTolerance = 1e-3
	// DefaultMaxIterations bounds a single dispatch.
	DefaultMaxIterations = 5000
	// DefaultBatchMaxIterations bounds each row of a batch run.
	DefaultBatchMaxIterations = 20000

	// step decay starts once the iteration index exceeds stepDecayAfter.
	stepDecayAfter = 10
	stepDecay      = 0.95
	lambdaFloor    = 0.5
	lambdaCeil     = 1.5
)

// Request is a single economic dispatch problem. Zero Tolerance or
// MaxIterations select the package defaults.
type Request struct {
	DemandMW      float64
	Fleet         model.Fleet
	Tolerance     float64
	MaxIterations int
}

// Result is the cost-optimal allocation for a Request. OutputsMW follows the
// fleet order.
type Result struct {
	OutputsMW  []float64 `json:"outputs_mw"`
	TotalCost  float64   `json:"total_cost"`
	Lambda     float64   `json:"lambda"`
	Iterations int       `json:"iterations"`
}

// iterState is one point of the lambda search. Each iteration derives a new
// state from the previous one.
type iterState struct {
	Lambda    float64
	Step      float64
	Iteration int
}

// lambdaSearch holds the quantities fixed for the duration of one solve.
type lambdaSearch struct {
	fleet       model.Fleet
	demand      float64
	lambdaMin   float64
	lambdaMax   float64
	sensitivity float64 // sum of dP/dlambda over all units
}

func newLambdaSearch(fleet model.Fleet, demand float64) lambdaSearch {
	lo := make([]float64, len(fleet))
	hi := make([]float64, len(fleet))
	var sens float64
	for i, g := range fleet {
		lo[i] = g.Cost.Marginal(g.MinMW)
		hi[i] = g.Cost.Marginal(g.MaxMW)
		sens += 1 / (2 * g.Cost.C)
	}
	return lambdaSearch{
		fleet:       fleet,
		demand:      demand,
		lambdaMin:   floats.Min(lo),
		lambdaMax:   floats.Max(hi),
		sensitivity: sens,
	}
}

func (ls lambdaSearch) start() iterState {
	return iterState{
		Lambda: (ls.lambdaMin + ls.lambdaMax) / 2,
		Step:   (ls.lambdaMax - ls.lambdaMin) / 4,
	}
}

// evaluate returns the clamped outputs at lambda and the signed mismatch
// between their sum and the demand.
func (ls lambdaSearch) evaluate(lambda float64) ([]float64, float64) {
	p := make([]float64, len(ls.fleet))
	var total float64
	for i, g := range ls.fleet {
		p[i] = g.OutputAt(lambda)
		total += p[i]
	}
	return p, total - ls.demand
}

// advance applies one damped correction given the mismatch observed at
// s.Lambda.
func (ls lambdaSearch) advance(s iterState, mismatch float64) iterState {
	step := s.Step
	if s.Iteration > stepDecayAfter {
		step *= stepDecay
	}
	lambda := s.Lambda - mismatch*step/ls.sensitivity
	lambda = math.Min(math.Max(lambda, ls.lambdaMin*lambdaFloor), ls.lambdaMax*lambdaCeil)
	return iterState{Lambda: lambda, Step: step, Iteration: s.Iteration + 1}
}

// Solve allocates DemandMW across the fleet at minimum total fuel cost using
// lambda iteration. It has no side effects and is safe for concurrent use.
//
// Errors match ErrInvalidInput, ErrInfeasible or ErrNotConverged and carry
// details as *InvalidInputError, *InfeasibleError or *NotConvergedError.
func Solve(req Request) (Result, error) {
	req = req.withDefaults()
	if err := req.validate(); err != nil {
		return Result{}, err
	}
	lo, hi := req.Fleet.Bounds()
	if req.DemandMW < lo || req.DemandMW > hi {
		return Result{}, &InfeasibleError{DemandMW: req.DemandMW, MinMW: lo, MaxMW: hi}
	}

	ls := newLambdaSearch(req.Fleet, req.DemandMW)
	// At either fleet limit every unit sits on its bound and no search is needed.
	if req.DemandMW == lo || req.DemandMW == hi {
		return ls.pinned(req.DemandMW == hi), nil
	}
	s := ls.start()
	var mismatch float64
	for s.Iteration < req.MaxIterations {
		var outputs []float64
		outputs, mismatch = ls.evaluate(s.Lambda)
		if math.Abs(mismatch) <= req.Tolerance {
			return Result{
				OutputsMW:  outputs,
				TotalCost:  totalCost(req.Fleet, outputs),
				Lambda:     s.Lambda,
				Iterations: s.Iteration + 1,
			}, nil
		}
		s = ls.advance(s, mismatch)
	}
	return Result{}, &NotConvergedError{Iterations: req.MaxIterations, MismatchMW: mismatch, Lambda: s.Lambda}
}

// pinned returns the allocation with every unit at its max (atMax) or min limit.
func (ls lambdaSearch) pinned(atMax bool) Result {
	outputs := make([]float64, len(ls.fleet))
	lambda := ls.lambdaMin
	for i, g := range ls.fleet {
		outputs[i] = g.MinMW
		if atMax {
			outputs[i] = g.MaxMW
		}
	}
	if atMax {
		lambda = ls.lambdaMax
	}
	return Result{
		OutputsMW:  outputs,
		TotalCost:  totalCost(ls.fleet, outputs),
		Lambda:     lambda,
		Iterations: 1,
	}
}

func totalCost(fleet model.Fleet, outputs []float64) float64 {
	var cost float64
	for i, g := range fleet {
		cost += g.Cost.Cost(outputs[i])
	}
	return cost
}

func (r Request) withDefaults() Request {
	if r.Tolerance == 0 {
		r.Tolerance = DefaultTolerance
	}
	if r.MaxIterations == 0 {
		r.MaxIterations = DefaultMaxIterations
	}
	return r
}

func (r Request) validate() error {
	if err := ValidateFleet(r.Fleet); err != nil {
		return err
	}
	if !(r.Tolerance > 0) || math.IsInf(r.Tolerance, 0) {
		return &InvalidInputError{Generator: -1, Reason: "tolerance must be positive"}
	}
	if r.MaxIterations < 0 {
		return &InvalidInputError{Generator: -1, Reason: "max iterations must be positive"}
	}
	if math.IsNaN(r.DemandMW) || math.IsInf(r.DemandMW, 0) || r.DemandMW <= 0 {
		return &InvalidInputError{Generator: -1, Reason: "demand must be a positive finite value"}
	}
	return nil
}

// ValidateFleet checks every generator of the fleet. It is exported so batch
// callers can reject a bad configuration before dispatching any row.
func ValidateFleet(fleet model.Fleet) error {
	if len(fleet) == 0 {
		return &InvalidInputError{Generator: -1, Reason: "empty generator fleet"}
	}
	for i, g := range fleet {
		if err := g.Validate(); err != nil {
			return &InvalidInputError{Generator: i, Reason: err.Error()}
		}
	}
	seen := make(map[string]bool, len(fleet))
	for i, id := range fleet.Labels() {
		if seen[id] {
			return &InvalidInputError{Generator: i, Reason: fmt.Sprintf("duplicate id %q", id)}
		}
		seen[id] = true
	}
	return nil
}
