package dispatch

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/eld/core/model"
)

func testFleet() model.Fleet {
	return model.Fleet{
		{MinMW: 500, MaxMW: 2500, Cost: model.CostCurve{A: 50, B: 20, C: 0.002}},
		{MinMW: 1000, MaxMW: 3500, Cost: model.CostCurve{A: 40, B: 18, C: 0.0015}},
		{MinMW: 500, MaxMW: 1500, Cost: model.CostCurve{A: 60, B: 22, C: 0.0025}},
		{MinMW: 100, MaxMW: 1500, Cost: model.CostCurve{A: 30, B: 15, C: 0.001}},
	}
}

func assertFeasible(t *testing.T, fleet model.Fleet, demand, tol float64, res Result) {
	t.Helper()
	require.Len(t, res.OutputsMW, len(fleet))
	var sum float64
	for i, p := range res.OutputsMW {
		assert.GreaterOrEqual(t, p, fleet[i].MinMW, "generator %d below min", i)
		assert.LessOrEqual(t, p, fleet[i].MaxMW, "generator %d above max", i)
		sum += p
	}
	assert.LessOrEqual(t, math.Abs(sum-demand), tol)
}

func TestSolve_ReferenceScenario(t *testing.T) {
	fleet := testFleet()
	res, err := Solve(Request{DemandMW: 5711.158, Fleet: fleet})
	require.NoError(t, err)
	assertFeasible(t, fleet, 5711.158, DefaultTolerance, res)

	expected := []float64{1258.8800296519214, 2345.1733728692284, 607.104023721537, 1500}
	for i, p := range expected {
		assert.InDelta(t, p, res.OutputsMW[i], 1e-6)
	}
	assert.InDelta(t, 118017.76314694065, res.TotalCost, 1e-6)
	assert.InDelta(t, 25.035520118607685, res.Lambda, 1e-9)
	assert.Equal(t, 27, res.Iterations)
}

func TestSolve_FeasibilityBoundary(t *testing.T) {
	fleet := testFleet()
	min, max := fleet.Bounds()

	res, err := Solve(Request{DemandMW: min, Fleet: fleet})
	require.NoError(t, err)
	for i, g := range fleet {
		assert.Equal(t, g.MinMW, res.OutputsMW[i])
	}
	assert.InDelta(t, 43315.0, res.TotalCost, 1e-9)

	res, err = Solve(Request{DemandMW: max, Fleet: fleet})
	require.NoError(t, err)
	for i, g := range fleet {
		assert.Equal(t, g.MaxMW, res.OutputsMW[i])
	}

	for _, d := range []float64{math.Nextafter(min, 0), math.Nextafter(max, math.Inf(1))} {
		_, err := Solve(Request{DemandMW: d, Fleet: fleet})
		require.ErrorIs(t, err, ErrInfeasible)
		var inf *InfeasibleError
		require.True(t, errors.As(err, &inf))
		assert.Equal(t, d, inf.DemandMW)
		assert.Equal(t, min, inf.MinMW)
		assert.Equal(t, max, inf.MaxMW)
	}
}

func TestSolve_BoundaryDemandPinsUnits(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	single := model.Fleet{{MinMW: 374, MaxMW: 490, Cost: model.CostCurve{B: 24.37, C: 0.00386}}}
	fleets := []model.Fleet{single}
	for n := 0; n < 200; n++ {
		fleet := make(model.Fleet, 1+rng.Intn(5))
		for i := range fleet {
			lo := rng.Float64() * 500
			fleet[i] = model.Generator{
				MinMW: lo,
				MaxMW: lo + 1 + rng.Float64()*1000,
				Cost:  model.CostCurve{A: rng.Float64() * 100, B: 10 + rng.Float64()*20, C: 0.0005 + rng.Float64()*0.005},
			}
		}
		fleets = append(fleets, fleet)
	}

	for n, fleet := range fleets {
		lo, hi := fleet.Bounds()
		res, err := Solve(Request{DemandMW: lo, Fleet: fleet})
		require.NoError(t, err, "fleet %d at min", n)
		for i, g := range fleet {
			assert.Equal(t, g.MinMW, res.OutputsMW[i], "fleet %d unit %d", n, i)
		}
		assert.InDelta(t, totalCost(fleet, res.OutputsMW), res.TotalCost, 1e-9)

		res, err = Solve(Request{DemandMW: hi, Fleet: fleet})
		require.NoError(t, err, "fleet %d at max", n)
		for i, g := range fleet {
			assert.Equal(t, g.MaxMW, res.OutputsMW[i], "fleet %d unit %d", n, i)
		}
	}

	res, err := Solve(Request{DemandMW: 374, Fleet: single})
	require.NoError(t, err)
	assert.InDelta(t, 24.37+2*0.00386*374, res.Lambda, 1e-12)
}

func TestSolve_EqualMarginalCost(t *testing.T) {
	fleet := testFleet()
	for d := 2200.0; d <= 8800; d += 300 {
		res, err := Solve(Request{DemandMW: d, Fleet: fleet})
		require.NoError(t, err, "demand %v", d)
		assertFeasible(t, fleet, d, DefaultTolerance, res)
		var marginals []float64
		for i, g := range fleet {
			p := res.OutputsMW[i]
			if p <= g.MinMW || p >= g.MaxMW {
				continue
			}
			marginals = append(marginals, g.Cost.Marginal(p))
		}
		for _, m := range marginals {
			assert.InDelta(t, marginals[0], m, 1e-9, "demand %v", d)
			assert.InDelta(t, res.Lambda, m, 1e-9, "demand %v", d)
		}
	}
}

func TestSolve_Deterministic(t *testing.T) {
	req := Request{DemandMW: 6000, Fleet: testFleet()}
	a, errA := Solve(req)
	b, errB := Solve(req)
	require.NoError(t, errA)
	require.NoError(t, errB)
	assert.Equal(t, a, b)
}

func TestSolve_CostMonotonicInDemand(t *testing.T) {
	fleet := testFleet()
	prev := math.Inf(-1)
	for d := 2100.0; d <= 8800; d += 100 {
		res, err := Solve(Request{DemandMW: d, Fleet: fleet})
		require.NoError(t, err, "demand %v", d)
		assert.GreaterOrEqual(t, res.TotalCost, prev, "demand %v", d)
		prev = res.TotalCost
	}
}

func TestSolve_NotConverged(t *testing.T) {
	fleet := testFleet()
	_, err := Solve(Request{DemandMW: 5711.158, Fleet: fleet, MaxIterations: 1})
	require.ErrorIs(t, err, ErrNotConverged)
	var nc *NotConvergedError
	require.True(t, errors.As(err, &nc))
	assert.Equal(t, 1, nc.Iterations)
	assert.InDelta(t, -1527.824667, nc.MismatchMW, 1e-6)

	// The decaying step freezes lambda before it reaches the ceiling region.
	_, err = Solve(Request{DemandMW: 8950, Fleet: fleet})
	assert.ErrorIs(t, err, ErrNotConverged)
}

func TestSolve_InvalidInput(t *testing.T) {
	fleet := testFleet()
	zeroC := testFleet()
	zeroC[2].Cost.C = 0
	inverted := testFleet()
	inverted[1].MinMW, inverted[1].MaxMW = 4000, 3500

	dup := testFleet()
	dup[0].ID, dup[3].ID = "A", "A"

	cases := map[string]Request{
		"empty fleet":        {DemandMW: 100},
		"duplicate ids":      {DemandMW: 5000, Fleet: dup},
		"zero quadratic":     {DemandMW: 5000, Fleet: zeroC},
		"inverted limits":    {DemandMW: 5000, Fleet: inverted},
		"negative tolerance": {DemandMW: 5000, Fleet: fleet, Tolerance: -1},
		"negative budget":    {DemandMW: 5000, Fleet: fleet, MaxIterations: -5},
		"zero demand":        {DemandMW: 0, Fleet: fleet},
		"nan demand":         {DemandMW: math.NaN(), Fleet: fleet},
	}
	for name, req := range cases {
		_, err := Solve(req)
		assert.ErrorIs(t, err, ErrInvalidInput, name)
		assert.NotErrorIs(t, err, ErrInfeasible, name)
	}

	_, err := Solve(Request{DemandMW: 5000, Fleet: zeroC})
	var inv *InvalidInputError
	require.True(t, errors.As(err, &inv))
	assert.Equal(t, 2, inv.Generator)

	_, err = Solve(Request{DemandMW: 5000, Fleet: dup})
	require.True(t, errors.As(err, &inv))
	assert.Equal(t, 3, inv.Generator)
	assert.Contains(t, inv.Reason, `duplicate id "A"`)
}

func TestSolve_DoesNotMutateFleet(t *testing.T) {
	fleet := testFleet()
	_, err := Solve(Request{DemandMW: 5000, Fleet: fleet})
	require.NoError(t, err)
	assert.Equal(t, testFleet(), fleet)
}

func TestLambdaSearch_Transition(t *testing.T) {
	ls := newLambdaSearch(testFleet(), 5000)
	s := ls.start()
	assert.InDelta(t, 22.6, s.Lambda, 1e-12)
	assert.InDelta(t, 3.7, s.Step, 1e-12)

	next := ls.advance(s, 0)
	assert.Equal(t, s.Lambda, next.Lambda)
	assert.Equal(t, s.Step, next.Step)
	assert.Equal(t, 1, next.Iteration)

	late := ls.advance(iterState{Lambda: 22.6, Step: 1, Iteration: stepDecayAfter + 1}, 0)
	assert.InDelta(t, stepDecay, late.Step, 1e-15)

	low := ls.advance(s, 1e9)
	assert.InDelta(t, ls.lambdaMin*lambdaFloor, low.Lambda, 1e-12)
	high := ls.advance(s, -1e9)
	assert.InDelta(t, ls.lambdaMax*lambdaCeil, high.Lambda, 1e-12)
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", Outcome(nil))
	assert.Equal(t, "infeasible", Outcome(&InfeasibleError{}))
	assert.Equal(t, "not_converged", Outcome(&NotConvergedError{}))
	assert.Equal(t, "invalid_input", Outcome(&InvalidInputError{Generator: -1}))
	assert.Equal(t, "error", Outcome(errors.New("x")))
}
