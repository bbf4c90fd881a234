// SPDX-License-Identifier: MIT
package matrix_test

import (
	"testing"

	"github.com/katalvlaran/epec/matrix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDense(t *testing.T, rows [][]float64) *matrix.Dense {
	t.Helper()
	m, err := matrix.NewDenseFrom(rows)
	require.NoError(t, err)

	return m
}

func TestMatVecAndAXPY(t *testing.T) {
	t.Parallel()

	m := mustDense(t, [][]float64{{1, 2}, {3, 4}, {5, 6}})
	y, err := matrix.MatVec(m, []float64{1, -1})
	require.NoError(t, err)
	assert.Equal(t, []float64{-1, -1, -1}, y)

	_, err = matrix.MatVec(m, []float64{1})
	require.ErrorIs(t, err, matrix.ErrDimensionMismatch)

	z, err := matrix.AXPY([]float64{1, 1, 1}, m, []float64{0, 1})
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 5, 7}, z)

	// zero-column matrix maps the empty vector to zeros
	e, err := matrix.MatVec(matrix.Zeros(2, 0), nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0}, e)
}

func TestMulTranspose(t *testing.T) {
	t.Parallel()

	a := mustDense(t, [][]float64{{1, 2, 3}, {4, 5, 6}})
	at, err := matrix.Transpose(a)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 4}, {2, 5}, {3, 6}}, at.ToRows())

	p, err := matrix.Mul(a, at)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{14, 32}, {32, 77}}, p.ToRows())

	_, err = matrix.Mul(a, a)
	require.ErrorIs(t, err, matrix.ErrDimensionMismatch)

	s, err := matrix.Add(a, matrix.Scale(a, -1))
	require.NoError(t, err)
	assert.True(t, matrix.AllClose(s, matrix.Zeros(2, 3)))
}

// TestBlock assembles a KKT-shaped matrix with an empty block column.
func TestBlock(t *testing.T) {
	t.Parallel()

	q := mustDense(t, [][]float64{{2, 0}, {0, 2}})
	b := mustDense(t, [][]float64{{1, 1}})
	bt, err := matrix.Transpose(b)
	require.NoError(t, err)
	negB := matrix.Scale(b, -1)

	m, err := matrix.Block([][]*matrix.Dense{
		{q, bt, matrix.Zeros(2, 0)},
		{negB, matrix.Zeros(1, 1), matrix.Zeros(1, 0)},
	})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{2, 0, 1}, {0, 2, 1}, {-1, -1, 0}}, m.ToRows())

	_, err = matrix.Block([][]*matrix.Dense{{q, matrix.Zeros(1, 1)}})
	require.ErrorIs(t, err, matrix.ErrDimensionMismatch)

	_, err = matrix.Block([][]*matrix.Dense{{q, nil}})
	require.ErrorIs(t, err, matrix.ErrNilMatrix)
}

func TestAllClose(t *testing.T) {
	t.Parallel()

	a := mustDense(t, [][]float64{{1, 2}})
	b := mustDense(t, [][]float64{{1, 2 + 1e-6}})
	assert.False(t, matrix.AllClose(a, b))
	assert.True(t, matrix.AllClose(a, b, matrix.WithEpsilon(1e-5)))
	assert.False(t, matrix.AllClose(a, matrix.Zeros(2, 1)))
}
