// Package ops provides factorizations for the matrix package.
package ops

import (
	"errors"
	"fmt"
	"math"

	"github.com/katalvlaran/epec/matrix"
)

// ErrSingular is returned when a pivot vanishes during elimination.
var ErrSingular = errors.New("ops: matrix is singular")

// singularTol is the relative pivot threshold (pivot <= tol * max|a|).
const singularTol = 1e-12

// LU holds a partial-pivoting factorization P·A = L·U in one packed buffer.
type LU struct {
	n    int
	lu   []float64 // L below the diagonal (unit diagonal implied), U on and above
	perm []int     // perm[i] = original row placed at position i
}

// Factorize computes P·A = L·U with row partial pivoting.
// Blueprint:
//
//	Stage 1 (Validate): m must be square.
//	Stage 2 (Prepare): copy m into a packed buffer, identity permutation.
//	Stage 3 (Execute): for each column pick the largest |pivot|, swap, eliminate.
//
// Errors: matrix.ErrNonSquare, ErrSingular.
// Complexity: O(n³) time, O(n²) memory.
func Factorize(m *matrix.Dense) (*LU, error) {
	// Stage 1: Validate input is square
	if err := matrix.ValidateSquare(m); err != nil {
		return nil, fmt.Errorf("LU: %w", err)
	}
	n := m.Rows()

	// Stage 2: Prepare the packed buffer and scale reference
	f := &LU{n: n, lu: make([]float64, n*n), perm: make([]int, n)}
	var scale float64
	for i := 0; i < n; i++ {
		copy(f.lu[i*n:(i+1)*n], m.RowView(i))
		f.perm[i] = i
		for _, v := range m.RowView(i) {
			scale = math.Max(scale, math.Abs(v))
		}
	}
	tol := singularTol * math.Max(scale, 1)

	// Stage 3: Execute elimination
	var (
		i, j, k, p int
		piv, l     float64
	)
	for k = 0; k < n; k++ {
		p = k
		piv = math.Abs(f.lu[k*n+k])
		for i = k + 1; i < n; i++ {
			if v := math.Abs(f.lu[i*n+k]); v > piv {
				p, piv = i, v
			}
		}
		if piv <= tol {
			return nil, fmt.Errorf("LU: column %d: %w", k, ErrSingular)
		}
		if p != k {
			for j = 0; j < n; j++ {
				f.lu[k*n+j], f.lu[p*n+j] = f.lu[p*n+j], f.lu[k*n+j]
			}
			f.perm[k], f.perm[p] = f.perm[p], f.perm[k]
		}
		for i = k + 1; i < n; i++ {
			l = f.lu[i*n+k] / f.lu[k*n+k]
			f.lu[i*n+k] = l
			if l == 0 {
				continue
			}
			for j = k + 1; j < n; j++ {
				f.lu[i*n+j] -= l * f.lu[k*n+j]
			}
		}
	}

	return f, nil
}

// Solve returns x with A·x = b using the stored factorization.
func (f *LU) Solve(b []float64) ([]float64, error) {
	if err := matrix.ValidateVecLen(b, f.n); err != nil {
		return nil, fmt.Errorf("LU.Solve: %w", err)
	}
	n := f.n
	x := make([]float64, n)
	// forward substitution on the permuted rhs (unit L)
	for i := 0; i < n; i++ {
		s := b[f.perm[i]]
		for k := 0; k < i; k++ {
			s -= f.lu[i*n+k] * x[k]
		}
		x[i] = s
	}
	// backward substitution on U
	for i := n - 1; i >= 0; i-- {
		s := x[i]
		for k := i + 1; k < n; k++ {
			s -= f.lu[i*n+k] * x[k]
		}
		x[i] = s / f.lu[i*n+i]
	}

	return x, nil
}

// Solve is the one-shot form of Factorize + LU.Solve.
func Solve(a *matrix.Dense, b []float64) ([]float64, error) {
	f, err := Factorize(a)
	if err != nil {
		return nil, err
	}

	return f.Solve(b)
}
