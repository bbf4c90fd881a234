// SPDX-License-Identifier: MIT
package qp_test

import (
	"context"
	"testing"

	"github.com/katalvlaran/epec/lcp"
	"github.com/katalvlaran/epec/matrix"
	"github.com/katalvlaran/epec/qp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dense(t *testing.T, rows [][]float64) *matrix.Dense {
	t.Helper()
	m, err := matrix.NewDenseFrom(rows)
	require.NoError(t, err)

	return m
}

// capped is min y² + (x - 4)y s.t. y ≤ 3, y ≥ 0.
func capped(t *testing.T) *qp.Program {
	t.Helper()
	p := qp.New()
	require.NoError(t, p.Set(
		dense(t, [][]float64{{2}}),
		dense(t, [][]float64{{1}}),
		dense(t, [][]float64{{0}}),
		dense(t, [][]float64{{1}}),
		[]float64{-4}, []float64{3},
	))

	return p
}

func TestNewIsEmpty(t *testing.T) {
	t.Parallel()

	ny, nx, m := qp.New().Size()
	assert.Zero(t, ny)
	assert.Zero(t, nx)
	assert.Zero(t, m)
}

func TestSetAndKKT(t *testing.T) {
	t.Parallel()

	p := capped(t)
	ny, nx, m := p.Size()
	assert.Equal(t, []int{1, 1, 1}, []int{ny, nx, m})

	M, N, q := p.KKT()
	assert.True(t, matrix.AllClose(dense(t, [][]float64{{2, 1}, {-1, 0}}), M))
	assert.True(t, matrix.AllClose(dense(t, [][]float64{{1}, {0}}), N))
	assert.Equal(t, []float64{-4, 3}, q)
}

func TestSetMismatchKeepsPreviousData(t *testing.T) {
	t.Parallel()

	p := capped(t)
	M0, N0, q0 := p.KKT()

	cases := []struct {
		name       string
		Q, C, A, B [][]float64
		c, b       []float64
	}{
		{"Q not ny×ny", [][]float64{{2, 0}}, [][]float64{{1}}, [][]float64{{0}}, [][]float64{{1}}, []float64{-4}, []float64{3}},
		{"C rows", [][]float64{{2}}, [][]float64{{1}, {1}}, [][]float64{{0}}, [][]float64{{1}}, []float64{-4}, []float64{3}},
		{"A cols differ from C", [][]float64{{2}}, [][]float64{{1}}, [][]float64{{0, 1}}, [][]float64{{1}}, []float64{-4}, []float64{3}},
		{"B cols", [][]float64{{2}}, [][]float64{{1}}, [][]float64{{0}}, [][]float64{{1, 1}}, []float64{-4}, []float64{3}},
		{"b length", [][]float64{{2}}, [][]float64{{1}}, [][]float64{{0}}, [][]float64{{1}}, []float64{-4}, []float64{3, 4}},
	}
	for _, tc := range cases {
		err := p.Set(dense(t, tc.Q), dense(t, tc.C), dense(t, tc.A), dense(t, tc.B), tc.c, tc.b)
		require.ErrorIs(t, err, qp.ErrDimensionMismatch, tc.name)

		M, N, q := p.KKT()
		assert.True(t, matrix.AllClose(M0, M), tc.name)
		assert.True(t, matrix.AllClose(N0, N), tc.name)
		assert.Equal(t, q0, q, tc.name)
	}

	err := p.Set(nil, dense(t, [][]float64{{1}}), dense(t, [][]float64{{0}}), dense(t, [][]float64{{1}}), []float64{-4}, []float64{3})
	require.ErrorIs(t, err, qp.ErrDimensionMismatch)
}

func TestSetNonConvex(t *testing.T) {
	t.Parallel()

	p := capped(t)
	err := p.Set(
		dense(t, [][]float64{{1, 2}, {2, 1}}),
		dense(t, [][]float64{{0}, {0}}),
		matrix.Zeros(0, 1), matrix.Zeros(0, 2),
		[]float64{0, 0}, nil,
	)
	require.ErrorIs(t, err, qp.ErrNonConvex)

	ny, _, _ := p.Size()
	assert.Equal(t, 1, ny)
}

func TestSetZeroSizedBlocks(t *testing.T) {
	t.Parallel()

	p := qp.New()
	require.NoError(t, p.Set(
		dense(t, [][]float64{{1, 0}, {0, 1}}),
		matrix.Zeros(2, 0),
		matrix.Zeros(0, 0),
		matrix.Zeros(0, 2),
		[]float64{-1, 1}, nil,
	))
	ny, nx, m := p.Size()
	assert.Equal(t, []int{2, 0, 0}, []int{ny, nx, m})

	l, err := p.SolveFixed(nil)
	require.NoError(t, err)
	sol, err := l.SolveAsMIP(context.Background(), lcp.Fixing{})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 0}, sol.Z, 1e-6)
}

func TestSolveFixed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p := capped(t)

	t.Run("interior optimum", func(t *testing.T) {
		l, err := p.SolveFixed([]float64{0})
		require.NoError(t, err)
		assert.Equal(t, []float64{-4, 3}, l.Q())

		sol, err := l.SolveAsMIP(ctx, lcp.Fixing{})
		require.NoError(t, err)
		assert.InDeltaSlice(t, []float64{2, 0}, sol.Z, 1e-6)
	})

	t.Run("cap binds", func(t *testing.T) {
		l, err := p.SolveFixed([]float64{-4})
		require.NoError(t, err)

		sol, err := l.SolveAsMIP(ctx, lcp.Fixing{})
		require.NoError(t, err)
		assert.InDeltaSlice(t, []float64{3, 2}, sol.Z, 1e-6)
		assert.True(t, p.Feasible(sol.Z[:1], []float64{-4}, 1e-9))
	})

	t.Run("wrong parameter length", func(t *testing.T) {
		_, err := p.SolveFixed([]float64{1, 2})
		require.ErrorIs(t, err, qp.ErrDimensionMismatch)
	})
}

func TestObjectiveAndFeasible(t *testing.T) {
	t.Parallel()

	p := capped(t)
	f, err := p.Objective([]float64{2}, []float64{0})
	require.NoError(t, err)
	assert.InDelta(t, -4, f, 1e-12)

	_, err = p.Objective([]float64{2, 1}, []float64{0})
	assert.ErrorIs(t, err, qp.ErrDimensionMismatch)

	assert.True(t, p.Feasible([]float64{3}, []float64{0}, 1e-9))
	assert.False(t, p.Feasible([]float64{3.5}, []float64{0}, 1e-9))
	assert.False(t, p.Feasible([]float64{-1}, []float64{0}, 1e-9))
}

func TestWithPSDTolerancePanics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { qp.WithPSDTolerance(-1) })
	assert.NotPanics(t, func() { qp.New(qp.WithPSDTolerance(0)) })
}
