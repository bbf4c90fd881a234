// SPDX-License-Identifier: MIT
package solver_test

import (
	"context"
	"math"
	"testing"

	"github.com/katalvlaran/epec/matrix"
	"github.com/katalvlaran/epec/solver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var inf = math.Inf(1)

func terms(pairs ...float64) []solver.Term {
	out := make([]solver.Term, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, solver.Term{Var: int(pairs[i]), Coef: pairs[i+1]})
	}

	return out
}

// TestSolveLP covers optimal, infeasible, unbounded and presolve paths.
func TestSolveLP(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := solver.NewEnv()

	t.Run("optimal vertex", func(t *testing.T) {
		m := solver.NewModel()
		x, y := m.AddVar(0, inf), m.AddVar(0, inf)
		m.SetCost(x, -1)
		m.SetCost(y, -1)
		m.AddRow(terms(0, 1, 1, 2), solver.LessEq, 4)
		m.AddRow(terms(0, 3, 1, 1), solver.LessEq, 6)

		res, err := env.SolveLP(ctx, m)
		require.NoError(t, err)
		assert.InDelta(t, 1.6, res.X[x], 1e-7)
		assert.InDelta(t, 1.2, res.X[y], 1e-7)
		assert.InDelta(t, -2.8, res.Objective, 1e-7)
	})

	// Chvátal's example: Dantzig pricing with the largest-coefficient rule
	// cycles on it from the slack basis.
	t.Run("cycling degenerate vertex", func(t *testing.T) {
		m := solver.NewModel()
		m.AddVars(4, 0, inf)
		for j, c := range []float64{-10, 57, 9, 24} {
			m.SetCost(j, c)
		}
		m.AddRow(terms(0, 0.5, 1, -5.5, 2, -2.5, 3, 9), solver.LessEq, 0)
		m.AddRow(terms(0, 0.5, 1, -1.5, 2, -0.5, 3, 1), solver.LessEq, 0)
		m.AddRow(terms(0, 1), solver.LessEq, 1)

		res, err := env.SolveLP(ctx, m)
		require.NoError(t, err)
		assert.InDelta(t, -1, res.Objective, 1e-7)
		assert.LessOrEqual(t, m.Violation(res.X), 1e-7)
	})

	t.Run("infeasible", func(t *testing.T) {
		m := solver.NewModel()
		m.AddVars(2, 0, inf)
		m.AddRow(terms(0, 1, 1, 1), solver.LessEq, 1)
		m.AddRow(terms(0, 1, 1, 1), solver.GreaterEq, 2)

		_, err := env.SolveLP(ctx, m)
		require.ErrorIs(t, err, solver.ErrInfeasible)
	})

	t.Run("unbounded", func(t *testing.T) {
		m := solver.NewModel()
		m.AddVars(2, 0, inf)
		m.SetCost(0, -1)
		m.AddRow(terms(0, 1, 1, -1), solver.LessEq, 1)

		_, err := env.SolveLP(ctx, m)
		require.ErrorIs(t, err, solver.ErrUnbounded)
	})

	t.Run("dependent equalities", func(t *testing.T) {
		m := solver.NewModel()
		m.AddVars(2, 0, inf)
		m.SetCost(0, 1)
		m.AddRow(terms(0, 1, 1, 1), solver.Equal, 1)
		m.AddRow(terms(0, 2, 1, 2), solver.Equal, 2)

		res, err := env.SolveLP(ctx, m)
		require.NoError(t, err)
		assert.InDelta(t, 0, res.X[0], 1e-9)
		assert.InDelta(t, 1, res.X[1], 1e-9)
	})

	t.Run("inconsistent dependent equalities", func(t *testing.T) {
		m := solver.NewModel()
		m.AddVars(2, 0, inf)
		m.AddRow(terms(0, 1, 1, 1), solver.Equal, 1)
		m.AddRow(terms(0, 2, 1, 2), solver.Equal, 3)

		_, err := env.SolveLP(ctx, m)
		require.ErrorIs(t, err, solver.ErrInfeasible)
	})

	t.Run("square system", func(t *testing.T) {
		m := solver.NewModel()
		m.AddVars(2, 0, inf)
		m.AddRow(terms(0, 1, 1, 1), solver.Equal, 2)
		m.AddRow(terms(0, 1, 1, -1), solver.Equal, 0)

		res, err := env.SolveLP(ctx, m)
		require.NoError(t, err)
		assert.InDeltaSlice(t, []float64{1, 1}, res.X, 1e-9)
	})

	t.Run("fixed variable and finite upper bound", func(t *testing.T) {
		m := solver.NewModel()
		x := m.AddVar(2, 2)
		y := m.AddVar(0, 5)
		m.SetCost(y, 1)
		m.AddRow(terms(0, 1, 1, 1), solver.GreaterEq, 3)

		res, err := env.SolveLP(ctx, m)
		require.NoError(t, err)
		assert.Equal(t, 2.0, res.X[x])
		assert.InDelta(t, 1, res.X[y], 1e-9)
	})

	t.Run("empty row with positive rhs", func(t *testing.T) {
		m := solver.NewModel()
		m.AddVar(0, inf)
		m.AddRow(nil, solver.GreaterEq, 1)

		_, err := env.SolveLP(ctx, m)
		require.ErrorIs(t, err, solver.ErrInfeasible)
	})
}

// TestSolveMILP solves a small knapsack and an infeasible parity model.
func TestSolveMILP(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := solver.NewEnv()

	m := solver.NewModel()
	a, b, c := m.AddBinary(), m.AddBinary(), m.AddBinary()
	m.SetCost(a, -5)
	m.SetCost(b, -4)
	m.SetCost(c, -3)
	m.AddRow(terms(0, 2, 1, 3, 2, 1), solver.LessEq, 5)

	res, err := env.SolveMILP(ctx, m)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 0}, res.X)
	assert.InDelta(t, -9, res.Objective, 1e-9)
	assert.Positive(t, res.Nodes)

	// 2a + 2b = 3 has a fractional relaxation but no integral point
	p := solver.NewModel()
	p.AddBinary()
	p.AddBinary()
	p.AddRow(terms(0, 2, 1, 2), solver.Equal, 3)
	_, err = env.SolveMILP(ctx, p)
	require.ErrorIs(t, err, solver.ErrInfeasible)
}

// TestSolveQP projects a point onto a half-plane.
func TestSolveQP(t *testing.T) {
	t.Parallel()

	m := solver.NewModel()
	m.AddVars(2, 0, inf)
	h, err := matrix.NewDenseFrom([][]float64{{2, 0}, {0, 2}})
	require.NoError(t, err)
	m.SetQuadratic(h)
	m.SetCost(0, -2)
	m.SetCost(1, -4)
	m.SetConstant(5)
	m.AddRow(terms(0, 1, 1, 1), solver.LessEq, 2)

	res, err := solver.NewEnv().SolveQP(context.Background(), m, nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, res.X[0], 1e-5)
	assert.InDelta(t, 1.5, res.X[1], 1e-5)
	assert.InDelta(t, 0.5, res.Objective, 1e-5)

	bad := solver.NewModel()
	bad.AddBinary()
	_, err = solver.NewEnv().SolveQP(context.Background(), bad, nil)
	require.ErrorIs(t, err, solver.ErrInvalidModel)
}

// TestSessionGuard checks single use, Close idempotence and release accounting.
func TestSessionGuard(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := solver.NewEnv()
	m := solver.NewModel()
	m.AddVar(0, 1)

	s := env.Acquire()
	require.EqualValues(t, 1, env.Active())
	_, err := s.SolveLP(ctx, m)
	require.NoError(t, err)
	_, err = s.SolveLP(ctx, m)
	require.ErrorIs(t, err, solver.ErrSessionSpent)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	require.EqualValues(t, 0, env.Active())
	_, err = s.SolveLP(ctx, m)
	require.ErrorIs(t, err, solver.ErrSessionClosed)

	// released on the error path too
	bad := solver.NewModel()
	bad.AddVar(math.Inf(-1), 0)
	_, err = env.SolveLP(ctx, bad)
	require.ErrorIs(t, err, solver.ErrInvalidModel)
	require.EqualValues(t, 0, env.Active())

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = env.SolveMILP(cancelled, m)
	require.ErrorIs(t, err, context.Canceled)
	require.EqualValues(t, 0, env.Active())
}

func TestOptionPanics(t *testing.T) {
	t.Parallel()

	require.Panics(t, func() { solver.WithFeasibilityTolerance(0) })
	require.Panics(t, func() { solver.WithMaxNodes(0) })
	require.Panics(t, func() { solver.WithQPTermination(1e-8, 0) })
	require.NotPanics(t, func() { solver.NewEnv(solver.WithLogger(nil), nil) })
}
