// SPDX-License-Identifier: MIT
package epec_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/katalvlaran/epec/epec"
	"github.com/katalvlaran/epec/matrix"
	"github.com/katalvlaran/epec/nash"
	"github.com/katalvlaran/epec/qp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tol = 1e-6

func dense(t *testing.T, rows [][]float64) *matrix.Dense {
	t.Helper()
	m, err := matrix.NewDenseFrom(rows)
	require.NoError(t, err)

	return m
}

// leaderGame is one follower min y² + (c0 + x)y under a leader variable
// 0 ≤ x ≤ capacity. Joint LCP columns: [y, x].
func leaderGame(t *testing.T, c0, capacity float64) *nash.Game {
	t.Helper()
	p := qp.New()
	require.NoError(t, p.Set(
		dense(t, [][]float64{{2}}),
		dense(t, [][]float64{{1}}),
		matrix.Zeros(0, 1), matrix.Zeros(0, 1),
		[]float64{c0}, nil,
	))
	g, err := nash.New([]*qp.Program{p},
		nash.WithLeaderVars(1),
		nash.WithLeaderConstraints(dense(t, [][]float64{{0, 1}}), []float64{capacity}))
	require.NoError(t, err)

	return g
}

// uncoupled: each leader minimizes y - x with y = (10 - x)/2, so x = 5.
func uncoupled(t *testing.T) []epec.Leader {
	return []epec.Leader{
		{Name: "north", Game: leaderGame(t, -10, 5), Cost: []float64{1, -1}},
		{Name: "south", Game: leaderGame(t, -10, 5), Cost: []float64{1, -1}},
	}
}

// switching: leader "a" prefers the interior follower pattern at x_b = 0
// and the corner one at x_b = 4; leader "b" always plays x_b = 4.
func switching(t *testing.T) []epec.Leader {
	return []epec.Leader{
		{
			Name:        "a",
			Game:        leaderGame(t, -2, 4),
			Cost:        []float64{-5, -1},
			Interaction: dense(t, [][]float64{{0.5}, {0}}),
		},
		{Name: "b", Game: leaderGame(t, -2, 4), Cost: []float64{0, -1}},
	}
}

func TestUncoupledLeadersConvergeInOnePass(t *testing.T) {
	t.Parallel()

	c, err := epec.New(uncoupled(t))
	require.NoError(t, err)

	rep, err := c.Solve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, epec.EquilibriumFound, rep.Status)
	assert.Equal(t, epec.EquilibriumFound, c.Status())
	assert.Equal(t, 1, rep.Stats.Passes)
	assert.Equal(t, []int{1, 1}, rep.Stats.PolyhedraAdded)
	assert.Equal(t, [][]int{{1, 1}}, rep.Stats.History)

	require.Len(t, rep.Decisions, 2)
	for i := range rep.Decisions {
		assert.InDeltaSlice(t, []float64{2.5, 5}, rep.Decisions[i], tol)
		assert.InDeltaSlice(t, []float64{5}, rep.LeaderVars[i], tol)
		assert.InDelta(t, -2.5, rep.Values[i], tol)
	}
	assert.InDelta(t, 0, rep.MaxRegret, tol)

	_, err = uuid.Parse(rep.RunID)
	assert.NoError(t, err)
}

func TestDeviationGrowsApproximation(t *testing.T) {
	t.Parallel()

	for _, policy := range []epec.AddPolicy{epec.MostViolatedFirst, epec.RoundRobin, epec.AllLeaders} {
		c, err := epec.New(switching(t), epec.WithAddPolicy(policy))
		require.NoError(t, err)

		rep, err := c.Solve(context.Background())
		require.NoError(t, err, policy.String())
		assert.Equal(t, epec.EquilibriumFound, rep.Status, policy.String())
		assert.Equal(t, 2, rep.Stats.Passes, policy.String())
		assert.Equal(t, []int{2, 1}, rep.Stats.PolyhedraAdded, policy.String())
		assert.Equal(t, [][]int{{2, 1}, {2, 1}}, rep.Stats.History, policy.String())
		assert.InDeltaSlice(t, []float64{4}, rep.LeaderVars[0], tol, policy.String())
		assert.InDeltaSlice(t, []float64{4}, rep.LeaderVars[1], tol, policy.String())
		assert.InDeltaSlice(t, []float64{-4, -4}, rep.Values, tol, policy.String())
	}
}

// An empty restricted region falls back to the full best response.
func TestEmptyRestrictedRegionAddsFullResponse(t *testing.T) {
	t.Parallel()

	leaders := []epec.Leader{
		{Name: "a", Game: leaderGame(t, -2, 4), Cost: []float64{0, -1}},
		{
			Name:     "b",
			Game:     leaderGame(t, -2, 0),
			Cost:     []float64{-1, 0},
			Coupling: dense(t, [][]float64{{1}}),
		},
	}
	c, err := epec.New(leaders)
	require.NoError(t, err)

	rep, err := c.Solve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, epec.EquilibriumFound, rep.Status)
	assert.Equal(t, 1, rep.Stats.Passes)
	assert.Equal(t, []int{1, 2}, rep.Stats.PolyhedraAdded)
	assert.InDeltaSlice(t, []float64{0, 0}, rep.Decisions[1], tol)
}

func TestDeterministicAcrossWorkers(t *testing.T) {
	t.Parallel()

	var reports []*epec.Report
	for _, w := range []int{1, 2, 4} {
		c, err := epec.New(switching(t), epec.WithWorkers(w))
		require.NoError(t, err)
		rep, err := c.Solve(context.Background())
		require.NoError(t, err)
		reports = append(reports, rep)
	}
	for _, rep := range reports[1:] {
		assert.Equal(t, reports[0].Status, rep.Status)
		assert.Equal(t, reports[0].Stats.History, rep.Stats.History)
		for i := range rep.Decisions {
			assert.InDeltaSlice(t, reports[0].Decisions[i], rep.Decisions[i], 1e-9)
		}
	}
}

func TestRepeatedRunsMatch(t *testing.T) {
	t.Parallel()

	c, err := epec.New(switching(t), epec.WithWorkers(1))
	require.NoError(t, err)
	first, err := c.Solve(context.Background())
	require.NoError(t, err)
	second, err := c.Solve(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.Stats.Passes, second.Stats.Passes)
	assert.Equal(t, first.Stats.History, second.Stats.History)
	assert.Equal(t, first.Decisions, second.Decisions)

	other, err := epec.New(switching(t), epec.WithWorkers(1))
	require.NoError(t, err)
	third, err := other.Solve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.Stats.Passes, third.Stats.Passes)
	assert.Equal(t, first.Decisions, third.Decisions)
}

func TestApproximationsOnlyGrow(t *testing.T) {
	t.Parallel()

	c, err := epec.New(switching(t), epec.WithAddPolicy(epec.AllLeaders))
	require.NoError(t, err)
	rep, err := c.Solve(context.Background())
	require.NoError(t, err)
	require.Zero(t, rep.Stats.Recoveries)

	for k := 1; k < len(rep.Stats.History); k++ {
		for i := range rep.Stats.History[k] {
			assert.GreaterOrEqual(t, rep.Stats.History[k][i], rep.Stats.History[k-1][i])
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("iteration limit", func(t *testing.T) {
		c, err := epec.New(switching(t), epec.WithMaxIterations(1))
		require.NoError(t, err)
		rep, err := c.Solve(ctx)
		require.NoError(t, err)
		assert.Equal(t, epec.IterationLimitReached, rep.Status)
		assert.Equal(t, 1, rep.Stats.Passes)
	})

	t.Run("time limit", func(t *testing.T) {
		c, err := epec.New(switching(t), epec.WithTimeLimit(time.Nanosecond))
		require.NoError(t, err)
		rep, err := c.Solve(ctx)
		require.NoError(t, err)
		assert.Equal(t, epec.TimeLimitReached, rep.Status)
		assert.Zero(t, rep.Stats.Passes)
		// expired before the first best response
		assert.Nil(t, rep.Decisions)
	})

	t.Run("time limit during enumeration", func(t *testing.T) {
		for _, a := range []epec.Algorithm{epec.FullEnumeration, epec.CombinatorialPNE} {
			c, err := epec.New(switching(t), epec.WithAlgorithm(a), epec.WithEnumeration(true),
				epec.WithTimeLimit(time.Nanosecond))
			require.NoError(t, err)
			rep, err := c.Solve(ctx)
			require.NoError(t, err, a.String())
			assert.Equal(t, epec.TimeLimitReached, rep.Status, a.String())
			assert.Equal(t, epec.TimeLimitReached, c.Status(), a.String())
		}
	})

	t.Run("no equilibrium", func(t *testing.T) {
		// x ≤ -1 contradicts x ≥ 0
		infeasible := leaderGame(t, -2, -1)

		c, err := epec.New([]epec.Leader{{Game: infeasible, Cost: []float64{0, 0}}})
		require.NoError(t, err)
		rep, err := c.Solve(ctx)
		require.NoError(t, err)
		assert.Equal(t, epec.NoEquilibrium, rep.Status)
		assert.Nil(t, rep.Decisions)
	})

	t.Run("cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		c, err := epec.New(uncoupled(t))
		require.NoError(t, err)
		_, err = c.Solve(cctx)
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestFullEnumeration(t *testing.T) {
	t.Parallel()

	c, err := epec.New(switching(t), epec.WithAlgorithm(epec.FullEnumeration), epec.WithEnumeration(true))
	require.NoError(t, err)
	rep, err := c.Solve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, epec.EquilibriumFound, rep.Status)
	assert.InDeltaSlice(t, []float64{4}, rep.LeaderVars[0], tol)
	require.Len(t, rep.Vertices, 2)
	for _, vs := range rep.Vertices {
		assert.NotEmpty(t, vs)
	}
}

func TestCombinatorialPNE(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("seed patterns already agree", func(t *testing.T) {
		c, err := epec.New(uncoupled(t), epec.WithAlgorithm(epec.CombinatorialPNE))
		require.NoError(t, err)
		rep, err := c.Solve(ctx)
		require.NoError(t, err)
		assert.Equal(t, epec.EquilibriumFound, rep.Status)
		assert.Equal(t, 1, rep.Stats.Passes)
		for i := range rep.Decisions {
			assert.InDeltaSlice(t, []float64{2.5, 5}, rep.Decisions[i], tol)
		}
	})

	// a: [interior, corner], b: [corner, interior]; the third combination
	// (corner, corner) is the equilibrium.
	t.Run("walks combinations", func(t *testing.T) {
		c, err := epec.New(switching(t), epec.WithAlgorithm(epec.CombinatorialPNE))
		require.NoError(t, err)
		rep, err := c.Solve(ctx)
		require.NoError(t, err)
		assert.Equal(t, epec.EquilibriumFound, rep.Status)
		assert.Equal(t, 3, rep.Stats.Passes)
		assert.Equal(t, []int{2, 2}, rep.Stats.PolyhedraAdded)
		assert.Equal(t, [][]int{{2, 2}, {2, 2}, {2, 2}}, rep.Stats.History)
		assert.InDeltaSlice(t, []float64{4}, rep.LeaderVars[0], tol)
		assert.InDeltaSlice(t, []float64{4}, rep.LeaderVars[1], tol)
		assert.InDeltaSlice(t, []float64{-4, -4}, rep.Values, tol)
		assert.InDelta(t, 0, rep.MaxRegret, tol)
	})

	t.Run("pass budget", func(t *testing.T) {
		c, err := epec.New(switching(t), epec.WithAlgorithm(epec.CombinatorialPNE), epec.WithMaxIterations(2))
		require.NoError(t, err)
		rep, err := c.Solve(ctx)
		require.NoError(t, err)
		assert.Equal(t, epec.IterationLimitReached, rep.Status)
		assert.Equal(t, 2, rep.Stats.Passes)
	})

	t.Run("empty region", func(t *testing.T) {
		c, err := epec.New([]epec.Leader{{Game: leaderGame(t, -2, -1), Cost: []float64{0, 0}}},
			epec.WithAlgorithm(epec.CombinatorialPNE))
		require.NoError(t, err)
		rep, err := c.Solve(ctx)
		require.NoError(t, err)
		assert.Equal(t, epec.NoEquilibrium, rep.Status)
		assert.Nil(t, rep.Decisions)
	})
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	_, err := epec.New(nil)
	assert.ErrorIs(t, err, epec.ErrNoLeaders)

	_, err = epec.New([]epec.Leader{{Cost: []float64{1}}})
	assert.ErrorIs(t, err, epec.ErrNilGame)

	_, err = epec.New([]epec.Leader{{Game: leaderGame(t, -2, 4), Cost: []float64{1}}})
	assert.ErrorIs(t, err, nash.ErrInconsistentCoupling)

	leaders := switching(t)
	leaders[0].Interaction = dense(t, [][]float64{{1, 1}, {0, 0}})
	_, err = epec.New(leaders)
	assert.ErrorIs(t, err, nash.ErrInconsistentCoupling)

	leaders = switching(t)
	leaders[1].Coupling = dense(t, [][]float64{{1}, {1}})
	_, err = epec.New(leaders)
	assert.ErrorIs(t, err, nash.ErrInconsistentCoupling)
}

func TestOptionPanicsAndParsers(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { epec.WithWorkers(0) })
	assert.Panics(t, func() { epec.WithTimeLimit(-time.Second) })
	assert.Panics(t, func() { epec.WithMaxIterations(0) })
	assert.Panics(t, func() { epec.WithRetryBudget(-1) })
	assert.Panics(t, func() { epec.WithTolerance(0) })

	p, err := epec.ParseAddPolicy("round-robin")
	require.NoError(t, err)
	assert.Equal(t, epec.RoundRobin, p)
	_, err = epec.ParseAddPolicy("random")
	assert.Error(t, err)

	r, err := epec.ParseRecovery("abort")
	require.NoError(t, err)
	assert.Equal(t, epec.Abort, r)

	a, err := epec.ParseAlgorithm("full-enumeration")
	require.NoError(t, err)
	assert.Equal(t, epec.FullEnumeration, a)
	a, err = epec.ParseAlgorithm("combinatorial-pne")
	require.NoError(t, err)
	assert.Equal(t, epec.CombinatorialPNE, a)
	assert.Equal(t, "combinatorial-pne", epec.CombinatorialPNE.String())

	assert.Equal(t, "EquilibriumFound", epec.EquilibriumFound.String())
	assert.True(t, epec.NumericalFailure.Terminal())
	assert.False(t, epec.Iterating.Terminal())
}
