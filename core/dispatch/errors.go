package dispatch

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput indicates a malformed fleet or solver configuration.
	ErrInvalidInput = errors.New("invalid dispatch input")
	// ErrInfeasible indicates the demand lies outside the fleet's output range.
	ErrInfeasible = errors.New("demand outside feasible range")
	// ErrNotConverged indicates the lambda iteration exhausted its budget.
	ErrNotConverged = errors.New("lambda iteration did not converge")
)

// InvalidInputError describes why a request was rejected before solving.
// Generator is the offending fleet index or -1 when the problem is not
// specific to one unit.
type InvalidInputError struct {
	Generator int
	Reason    string
}

func (e *InvalidInputError) Error() string {
	if e.Generator >= 0 {
		return fmt.Sprintf("%v: generator %d: %s", ErrInvalidInput, e.Generator, e.Reason)
	}
	return fmt.Sprintf("%v: %s", ErrInvalidInput, e.Reason)
}

func (e *InvalidInputError) Is(target error) bool { return target == ErrInvalidInput }

// InfeasibleError carries the requested demand and the achievable range.
type InfeasibleError struct {
	DemandMW float64
	MinMW    float64
	MaxMW    float64
}

func (e *InfeasibleError) Error() string {
	return fmt.Sprintf("load demand %g MW is out of feasible range (%g to %g MW)", e.DemandMW, e.MinMW, e.MaxMW)
}

func (e *InfeasibleError) Is(target error) bool { return target == ErrInfeasible }

// NotConvergedError reports the state of the search when the budget ran out.
type NotConvergedError struct {
	Iterations int
	MismatchMW float64
	Lambda     float64
}

func (e *NotConvergedError) Error() string {
	return fmt.Sprintf("lambda iteration did not converge after %d iterations, final power mismatch: %.2f MW", e.Iterations, e.MismatchMW)
}

func (e *NotConvergedError) Is(target error) bool { return target == ErrNotConverged }

// Outcome classifies a solver error into a short label used for metrics and
// logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInfeasible):
		return "infeasible"
	case errors.Is(err, ErrNotConverged):
		return "not_converged"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	default:
		return "error"
	}
}
