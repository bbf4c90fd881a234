// SPDX-License-Identifier: MIT
// Package matrix_test contains unit tests for Dense storage and validators.
package matrix_test

import (
	"errors"
	"math"
	"testing"

	"github.com/katalvlaran/epec/matrix"
	"github.com/stretchr/testify/require"
)

// TestNewDenseShapes covers empty, regular and negative shapes.
func TestNewDenseShapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		rows, cols int
		wantErr    error
	}{
		{"empty", 0, 0, nil},
		{"zero rows", 0, 3, nil},
		{"zero cols", 2, 0, nil},
		{"regular", 2, 3, nil},
		{"negative rows", -1, 2, matrix.ErrInvalidDimensions},
		{"negative cols", 2, -1, matrix.ErrInvalidDimensions},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			m, err := matrix.NewDense(tc.rows, tc.cols)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			r, c := m.Shape()
			require.Equal(t, tc.rows, r)
			require.Equal(t, tc.cols, c)
		})
	}
}

// TestDenseAtSet checks bounds and the finite-value guard.
func TestDenseAtSet(t *testing.T) {
	t.Parallel()

	m := matrix.Zeros(2, 2)
	require.NoError(t, m.Set(1, 0, 3.5))
	v, err := m.At(1, 0)
	require.NoError(t, err)
	require.Equal(t, 3.5, v)

	_, err = m.At(2, 0)
	require.True(t, errors.Is(err, matrix.ErrOutOfRange))
	require.ErrorIs(t, m.Set(0, -1, 1), matrix.ErrOutOfRange)
	require.ErrorIs(t, m.Set(0, 0, math.NaN()), matrix.ErrNaNInf)
	require.ErrorIs(t, m.Set(0, 0, math.Inf(1)), matrix.ErrNaNInf)
}

// TestNewDenseFrom covers ragged input, NaN policy and the round trip to rows.
func TestNewDenseFrom(t *testing.T) {
	t.Parallel()

	rows := [][]float64{{1, 2}, {3, 4}}
	m, err := matrix.NewDenseFrom(rows)
	require.NoError(t, err)
	require.Equal(t, rows, m.ToRows())

	_, err = matrix.NewDenseFrom([][]float64{{1, 2}, {3}})
	require.ErrorIs(t, err, matrix.ErrInvalidDimensions)

	_, err = matrix.NewDenseFrom([][]float64{{math.Inf(-1)}})
	require.ErrorIs(t, err, matrix.ErrNaNInf)

	m, err = matrix.NewDenseFrom([][]float64{{math.Inf(-1)}}, matrix.WithNoValidateNaNInf())
	require.NoError(t, err)
	v, _ := m.At(0, 0)
	require.True(t, math.IsInf(v, -1))

	m, err = matrix.NewDenseFrom(nil)
	require.NoError(t, err)
	require.Equal(t, 0, m.Rows())
}

// TestCopyIsIndependent ensures Copy/Clone do not alias storage.
func TestCopyIsIndependent(t *testing.T) {
	t.Parallel()

	m := matrix.Identity(2)
	cp := m.Copy()
	require.NoError(t, cp.Set(0, 1, 7))
	v, _ := m.At(0, 1)
	require.Zero(t, v)

	row := m.RowView(1)
	row[0] = 9
	v, _ = m.At(1, 0)
	require.Equal(t, 9.0, v)
}

// TestValidators covers shape, square, vector and symmetry checks.
func TestValidators(t *testing.T) {
	t.Parallel()

	sq := matrix.Identity(3)
	rect := matrix.Zeros(2, 3)
	var nilDense *matrix.Dense

	require.NoError(t, matrix.ValidateShape(rect, 2, 3))
	require.ErrorIs(t, matrix.ValidateShape(rect, 3, 2), matrix.ErrDimensionMismatch)
	require.ErrorIs(t, matrix.ValidateShape(nilDense, 0, 0), matrix.ErrNilMatrix)
	require.ErrorIs(t, matrix.ValidateSquare(rect), matrix.ErrNonSquare)
	require.NoError(t, matrix.ValidateSquare(sq))
	require.NoError(t, matrix.ValidateVecLen(nil, 0))
	require.ErrorIs(t, matrix.ValidateVecLen([]float64{1}, 2), matrix.ErrDimensionMismatch)
	require.ErrorIs(t, matrix.ValidateFinite([]float64{1, math.NaN()}), matrix.ErrNaNInf)

	asym, err := matrix.NewDenseFrom([][]float64{{1, 2}, {0, 1}})
	require.NoError(t, err)
	require.ErrorIs(t, matrix.ValidateSymmetric(asym, 1e-9), matrix.ErrAsymmetry)
	require.NoError(t, matrix.ValidateSymmetric(sq, 0))
}

// TestWithEpsilonPanics guards the option constructor contract.
func TestWithEpsilonPanics(t *testing.T) {
	t.Parallel()

	require.Panics(t, func() { matrix.WithEpsilon(-1) })
	require.Panics(t, func() { matrix.WithEpsilon(math.NaN()) })
	require.NotPanics(t, func() { matrix.WithEpsilon(0) })
	require.Equal(t, 1e-3, matrix.NewOptions(matrix.WithEpsilon(1e-3)).Eps())
	require.Equal(t, matrix.DefaultEpsilon, matrix.NewOptions().Eps())
}
