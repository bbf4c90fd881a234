// SPDX-License-Identifier: MIT

package qp

import (
	"fmt"
	"sync"

	"github.com/katalvlaran/epec/lcp"
	"github.com/katalvlaran/epec/matrix"
	"github.com/katalvlaran/epec/matrix/ops"
)

// Program is a parametrized convex QP. The zero value is not usable; call New.
// All methods are safe for concurrent use.
type Program struct {
	mu sync.RWMutex

	quad  *matrix.Dense // Q  ny×ny
	cross *matrix.Dense // C  ny×nx
	consX *matrix.Dense // A  m×nx
	consY *matrix.Dense // B  m×ny
	c     []float64     // ny
	b     []float64     // m

	opts Options
}

// New returns an empty (0×0) program.
func New(opts ...Option) *Program {
	o := Options{psdTol: DefaultPSDTolerance}
	for _, fn := range opts {
		if fn != nil {
			fn(&o)
		}
	}

	return &Program{
		quad:  matrix.Zeros(0, 0),
		cross: matrix.Zeros(0, 0),
		consX: matrix.Zeros(0, 0),
		consY: matrix.Zeros(0, 0),
		opts:  o,
	}
}

// Set replaces all data at once. ny = len(c), nx = C.Cols(), m = len(b).
// On error the previous data is kept.
//
// Errors: ErrDimensionMismatch, ErrNonConvex.
func (p *Program) Set(Q, C, A, B *matrix.Dense, c, b []float64) error {
	for i, m := range []*matrix.Dense{Q, C, A, B} {
		if err := matrix.ValidateNotNil(m); err != nil {
			return fmt.Errorf("qp.Set: %s: %w: %v", "QCAB"[i:i+1], ErrDimensionMismatch, err)
		}
	}
	ny, nx, m := len(c), C.Cols(), len(b)
	for _, chk := range []struct {
		name       string
		mat        *matrix.Dense
		rows, cols int
	}{
		{"Q", Q, ny, ny},
		{"C", C, ny, nx},
		{"A", A, m, nx},
		{"B", B, m, ny},
	} {
		if err := matrix.ValidateShape(chk.mat, chk.rows, chk.cols); err != nil {
			return fmt.Errorf("qp.Set: %s is %dx%d, want %dx%d: %w",
				chk.name, chk.mat.Rows(), chk.mat.Cols(), chk.rows, chk.cols, ErrDimensionMismatch)
		}
	}
	if err := matrix.ValidateFinite(c); err != nil {
		return fmt.Errorf("qp.Set: c: %w: %v", ErrDimensionMismatch, err)
	}
	if err := matrix.ValidateFinite(b); err != nil {
		return fmt.Errorf("qp.Set: b: %w: %v", ErrDimensionMismatch, err)
	}
	if err := ops.ValidatePSD(Q, matrix.WithEpsilon(p.opts.psdTol)); err != nil {
		return fmt.Errorf("qp.Set: %w: %v", ErrNonConvex, err)
	}

	p.mu.Lock()
	p.quad, p.cross, p.consX, p.consY = Q.Copy(), C.Copy(), A.Copy(), B.Copy()
	p.c = append([]float64(nil), c...)
	p.b = append([]float64(nil), b...)
	p.mu.Unlock()

	return nil
}

// Size returns the own dimension, the parameter dimension and the
// constraint count.
func (p *Program) Size() (ny, nx, ncons int) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return len(p.c), p.cross.Cols(), len(p.b)
}

// KKT returns M = [[Q, Bᵀ], [-B, 0]], N = [C; -A] and q = [c; b].
func (p *Program) KKT() (M, N *matrix.Dense, q []float64) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	m := len(p.b)
	bt, _ := matrix.Transpose(p.consY)
	M, _ = matrix.Block([][]*matrix.Dense{
		{p.quad, bt},
		{matrix.Scale(p.consY, -1), matrix.Zeros(m, m)},
	})
	N, _ = matrix.Block([][]*matrix.Dense{
		{p.cross},
		{matrix.Scale(p.consX, -1)},
	})
	q = make([]float64, 0, len(p.c)+m)
	q = append(append(q, p.c...), p.b...)

	return M, N, q
}

// SolveFixed substitutes x for the parameters and returns the LCP
// (M, q + Nx) with pairs {i, i}. It does not solve it.
func (p *Program) SolveFixed(x []float64, opts ...lcp.Option) (*lcp.LCP, error) {
	M, N, q := p.KKT()
	if err := matrix.ValidateVecLen(x, N.Cols()); err != nil {
		return nil, fmt.Errorf("qp.SolveFixed: %w: %v", ErrDimensionMismatch, err)
	}
	qx, err := matrix.AXPY(q, N, x)
	if err != nil {
		return nil, fmt.Errorf("qp.SolveFixed: %w: %v", ErrDimensionMismatch, err)
	}
	pairs := make([]lcp.Pair, len(qx))
	for i := range pairs {
		pairs[i] = lcp.Pair{Eq: i, Var: i}
	}

	return lcp.New(M, qx, pairs, opts...)
}

// Objective returns ½ yᵀQy + (c + Cx)ᵀy.
func (p *Program) Objective(y, x []float64) (float64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if len(y) != len(p.c) || len(x) != p.cross.Cols() {
		return 0, fmt.Errorf("qp.Objective: len(y)=%d len(x)=%d, want %d and %d: %w",
			len(y), len(x), len(p.c), p.cross.Cols(), ErrDimensionMismatch)
	}
	lin, _ := matrix.AXPY(p.c, p.cross, x)
	qy, _ := matrix.MatVec(p.quad, y)
	var f float64
	for i, v := range y {
		f += v * (0.5*qy[i] + lin[i])
	}

	return f, nil
}

// Feasible reports whether y ≥ 0 and Ax + By ≤ b hold within tol.
func (p *Program) Feasible(y, x []float64, tol float64) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if len(y) != len(p.c) || len(x) != p.cross.Cols() {
		return false
	}
	for _, v := range y {
		if v < -tol {
			return false
		}
	}
	ax, _ := matrix.MatVec(p.consX, x)
	by, _ := matrix.MatVec(p.consY, y)
	for i := range p.b {
		if ax[i]+by[i] > p.b[i]+tol {
			return false
		}
	}

	return true
}
