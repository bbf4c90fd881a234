// SPDX-License-Identifier: MIT

// Package matrix - basic linear algebra kernels on *Dense.
//
// Purpose:
//   - MatVec, Mul, Transpose, Add, Scale: the operations needed to build KKT
//     systems (M = [[Q, Bᵀ], [-B, 0]]) and to shift LCP vectors (q + N·x).
//   - Block: assemble a matrix from a grid of sub-blocks.
//
// Determinism:
//   - Fixed i→j→k loop orders; results are bit-for-bit reproducible.
//
// Operands are never mutated; every kernel allocates its result.
package matrix

import (
	"fmt"
	"math"
)

const (
	opMatVec    = "MatVec"
	opMul       = "Mul"
	opAdd       = "Add"
	opBlock     = "Block"
	opAXPY      = "AXPY"
	opTranspose = "Transpose"
)

func matrixErrorf(tag string, err error) error {
	return fmt.Errorf("%s: %w", tag, err)
}

// MatVec computes y = m * x for a column vector x.
//
// Contract: m non-nil; len(x) == m.Cols(). A nil x is accepted only when
// m has zero columns.
// Complexity: Time O(r*c), Space O(r).
func MatVec(m *Dense, x []float64) ([]float64, error) {
	if m == nil {
		return nil, matrixErrorf(opMatVec, ErrNilMatrix)
	}
	if len(x) != m.c {
		return nil, matrixErrorf(opMatVec, ErrDimensionMismatch)
	}
	y := make([]float64, m.r)
	var (
		i, j, base int
		acc, xv    float64
	)
	for i = 0; i < m.r; i++ {
		acc = 0
		base = i * m.c
		for j = 0; j < m.c; j++ {
			xv = x[j]
			if xv != 0 { // skip zero multiplications
				acc += m.data[base+j] * xv
			}
		}
		y[i] = acc
	}

	return y, nil
}

// AXPY returns y + m*x as a new vector (the affine map used for q + N·x).
func AXPY(y []float64, m *Dense, x []float64) ([]float64, error) {
	mx, err := MatVec(m, x)
	if err != nil {
		return nil, matrixErrorf(opAXPY, err)
	}
	if len(y) != len(mx) {
		return nil, matrixErrorf(opAXPY, ErrDimensionMismatch)
	}
	for i := range mx {
		mx[i] += y[i]
	}

	return mx, nil
}

// Mul returns a*b. Requires a.Cols() == b.Rows().
// Complexity: Time O(r*n*c), Space O(r*c).
func Mul(a, b *Dense) (*Dense, error) {
	if a == nil || b == nil {
		return nil, matrixErrorf(opMul, ErrNilMatrix)
	}
	if a.c != b.r {
		return nil, matrixErrorf(opMul, ErrDimensionMismatch)
	}
	out := Zeros(a.r, b.c)
	var (
		i, j, k int
		aik     float64
	)
	// i→k→j keeps the inner loop on contiguous rows of b and out.
	for i = 0; i < a.r; i++ {
		for k = 0; k < a.c; k++ {
			aik = a.data[i*a.c+k]
			if aik == 0 {
				continue
			}
			for j = 0; j < b.c; j++ {
				out.data[i*b.c+j] += aik * b.data[k*b.c+j]
			}
		}
	}

	return out, nil
}

// Transpose returns mᵀ.
func Transpose(m *Dense) (*Dense, error) {
	if m == nil {
		return nil, matrixErrorf(opTranspose, ErrNilMatrix)
	}
	out := Zeros(m.c, m.r)
	for i := 0; i < m.r; i++ {
		for j := 0; j < m.c; j++ {
			out.data[j*m.r+i] = m.data[i*m.c+j]
		}
	}

	return out, nil
}

// Add returns a + b for same-shaped operands.
func Add(a, b *Dense) (*Dense, error) {
	if a == nil || b == nil {
		return nil, matrixErrorf(opAdd, ErrNilMatrix)
	}
	if a.r != b.r || a.c != b.c {
		return nil, matrixErrorf(opAdd, ErrDimensionMismatch)
	}
	out := a.Copy()
	for i := range out.data {
		out.data[i] += b.data[i]
	}

	return out, nil
}

// Scale returns alpha*m.
func Scale(m *Dense, alpha float64) *Dense {
	out := m.Copy()
	for i := range out.data {
		out.data[i] *= alpha
	}

	return out
}

// Block assembles a matrix from a rectangular grid of blocks.
// All blocks of one grid row must share their row count and all blocks of one
// grid column must share their column count; zero-sized blocks are fine.
//
// Errors: ErrNilMatrix on a nil block, ErrDimensionMismatch on ragged grids.
func Block(grid [][]*Dense) (*Dense, error) {
	if len(grid) == 0 {
		return Zeros(0, 0), nil
	}
	nbc := len(grid[0])
	rowH := make([]int, len(grid))
	colW := make([]int, nbc)
	for bi, brow := range grid {
		if len(brow) != nbc {
			return nil, matrixErrorf(opBlock, ErrDimensionMismatch)
		}
		for bj, blk := range brow {
			if blk == nil {
				return nil, matrixErrorf(opBlock, fmt.Errorf("block (%d,%d): %w", bi, bj, ErrNilMatrix))
			}
			if bj == 0 {
				rowH[bi] = blk.r
			} else if blk.r != rowH[bi] {
				return nil, matrixErrorf(opBlock, fmt.Errorf("block (%d,%d) rows: %w", bi, bj, ErrDimensionMismatch))
			}
			if bi == 0 {
				colW[bj] = blk.c
			} else if blk.c != colW[bj] {
				return nil, matrixErrorf(opBlock, fmt.Errorf("block (%d,%d) cols: %w", bi, bj, ErrDimensionMismatch))
			}
		}
	}
	var rows, cols int
	for _, h := range rowH {
		rows += h
	}
	for _, w := range colW {
		cols += w
	}
	out := Zeros(rows, cols)
	r0 := 0
	for bi, brow := range grid {
		c0 := 0
		for bj, blk := range brow {
			for i := 0; i < blk.r; i++ {
				copy(out.data[(r0+i)*cols+c0:(r0+i)*cols+c0+blk.c], blk.data[i*blk.c:(i+1)*blk.c])
			}
			c0 += colW[bj]
		}
		r0 += rowH[bi]
	}

	return out, nil
}

// AllClose reports whether a and b have equal shapes and every entry differs
// by at most eps (DefaultEpsilon unless overridden).
func AllClose(a, b Matrix, opts ...Option) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Rows() != b.Rows() || a.Cols() != b.Cols() {
		return false
	}
	eps := NewOptions(opts...).eps
	for i := 0; i < a.Rows(); i++ {
		for j := 0; j < a.Cols(); j++ {
			x, _ := a.At(i, j)
			y, _ := b.At(i, j)
			if math.Abs(x-y) > eps {
				return false
			}
		}
	}

	return true
}
