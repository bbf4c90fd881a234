// SPDX-License-Identifier: MIT

package lcp

import (
	"fmt"
	"math"

	"github.com/katalvlaran/epec/matrix"
)

// Pair couples row Eq (its slack w_Eq) with column Var (z_Var).
type Pair struct {
	Eq  int
	Var int
}

// Fixing pins one side of selected pairs to zero.
// Eqs lists rows with w_i = 0, Vars lists columns with z_j = 0.
// A pair may appear in both.
type Fixing struct {
	Eqs  []int
	Vars []int
}

// Len returns the number of fixed sides.
func (f Fixing) Len() int { return len(f.Eqs) + len(f.Vars) }

// Solution is a point (w, z) of an LCP.
type Solution struct {
	Z []float64
	W []float64
}

// LCP is an immutable linear complementarity problem with optional cuts.
type LCP struct {
	m     *matrix.Dense
	q     []float64
	pairs []Pair

	eqPair  []int // row -> pair index
	varPair []int // column -> pair index, -1 for leader columns
	leaders []int

	opts Options
}

// New validates and builds an LCP. M is copied.
//
// Errors: ErrDimensionMismatch (nil M, len(q) ≠ rows, len(pairs) ≠ rows,
// fewer columns than rows, bad cut shapes, non-finite data),
// ErrInvalidPairs (out-of-range or repeated indices).
func New(m *matrix.Dense, q []float64, pairs []Pair, opts ...Option) (*LCP, error) {
	if err := matrix.ValidateNotNil(m); err != nil {
		return nil, fmt.Errorf("lcp.New: %w: %v", ErrDimensionMismatch, err)
	}
	nEq, nVar := m.Shape()
	if len(q) != nEq || len(pairs) != nEq || nVar < nEq {
		return nil, fmt.Errorf("lcp.New: M %dx%d, len(q)=%d, len(pairs)=%d: %w",
			nEq, nVar, len(q), len(pairs), ErrDimensionMismatch)
	}
	if err := matrix.ValidateFinite(q); err != nil {
		return nil, fmt.Errorf("lcp.New: q: %w: %v", ErrDimensionMismatch, err)
	}

	l := &LCP{
		m:       m.Copy(),
		q:       append([]float64(nil), q...),
		pairs:   append([]Pair(nil), pairs...),
		eqPair:  make([]int, nEq),
		varPair: make([]int, nVar),
		opts:    gatherOptions(opts),
	}
	for i := range l.eqPair {
		l.eqPair[i] = -1
	}
	for j := range l.varPair {
		l.varPair[j] = -1
	}
	for k, p := range pairs {
		if p.Eq < 0 || p.Eq >= nEq || p.Var < 0 || p.Var >= nVar {
			return nil, fmt.Errorf("lcp.New: pair %d %+v out of range: %w", k, p, ErrInvalidPairs)
		}
		if l.eqPair[p.Eq] >= 0 || l.varPair[p.Var] >= 0 {
			return nil, fmt.Errorf("lcp.New: pair %d %+v reuses an index: %w", k, p, ErrInvalidPairs)
		}
		l.eqPair[p.Eq] = k
		l.varPair[p.Var] = k
	}
	for j, k := range l.varPair {
		if k < 0 {
			l.leaders = append(l.leaders, j)
		}
	}

	if a := l.opts.cutA; a != nil {
		if a.Cols() != nVar || a.Rows() != len(l.opts.cutB) {
			return nil, fmt.Errorf("lcp.New: cuts %dx%d with len(b)=%d, want %d columns: %w",
				a.Rows(), a.Cols(), len(l.opts.cutB), nVar, ErrDimensionMismatch)
		}
		l.opts.cutA = a.Copy()
	} else if len(l.opts.cutB) > 0 {
		return nil, fmt.Errorf("lcp.New: cut rhs without matrix: %w", ErrDimensionMismatch)
	}

	return l, nil
}

// WithQ returns a copy of l with a different q. M, pairs, cuts and
// options are shared.
func (l *LCP) WithQ(q []float64) (*LCP, error) {
	if len(q) != len(l.q) {
		return nil, fmt.Errorf("lcp.WithQ: len(q)=%d, want %d: %w", len(q), len(l.q), ErrDimensionMismatch)
	}
	if err := matrix.ValidateFinite(q); err != nil {
		return nil, fmt.Errorf("lcp.WithQ: %w: %v", ErrDimensionMismatch, err)
	}
	cp := *l
	cp.q = append([]float64(nil), q...)

	return &cp, nil
}

// NumEq returns the number of rows (and pairs).
func (l *LCP) NumEq() int { return l.m.Rows() }

// NumVar returns the number of columns.
func (l *LCP) NumVar() int { return l.m.Cols() }

// M returns a copy of the matrix.
func (l *LCP) M() *matrix.Dense { return l.m.Copy() }

// Q returns a copy of q.
func (l *LCP) Q() []float64 { return append([]float64(nil), l.q...) }

// Pairs returns a copy of the complementary pairs.
func (l *LCP) Pairs() []Pair { return append([]Pair(nil), l.pairs...) }

// LeaderColumns returns the unpaired columns in increasing order.
func (l *LCP) LeaderColumns() []int { return append([]int(nil), l.leaders...) }

// Eps returns the zero tolerance.
func (l *LCP) Eps() float64 { return l.opts.eps }

// W returns Mz + q.
func (l *LCP) W(z []float64) ([]float64, error) {
	w, err := matrix.AXPY(l.q, l.m, z)
	if err != nil {
		return nil, fmt.Errorf("lcp.W: %w", err)
	}

	return w, nil
}

// ErrorCheck recomputes w - (Mz + q), the signs of w and z, min(w_i, z_j)
// for every pair and the cut residuals, and returns whether the largest
// violation is within eps together with that violation.
func (l *LCP) ErrorCheck(sol Solution) (bool, float64) {
	if len(sol.Z) != l.NumVar() || len(sol.W) != l.NumEq() {
		return false, math.Inf(1)
	}
	w, err := l.W(sol.Z)
	if err != nil {
		return false, math.Inf(1)
	}

	var viol float64
	bump := func(v float64) {
		if math.IsNaN(v) {
			v = math.Inf(1)
		}
		if v > viol {
			viol = v
		}
	}
	for i := range w {
		bump(math.Abs(w[i] - sol.W[i]))
		bump(-sol.W[i])
	}
	for _, z := range sol.Z {
		bump(-z)
	}
	for _, p := range l.pairs {
		bump(math.Min(sol.W[p.Eq], sol.Z[p.Var]))
	}
	if a := l.opts.cutA; a != nil {
		az, _ := matrix.MatVec(a, sol.Z)
		for r, v := range az {
			bump(v - l.opts.cutB[r])
		}
	}

	return viol <= l.opts.eps, viol
}

// validateFixing checks that every index is in range.
func (l *LCP) validateFixing(fix Fixing) error {
	for _, i := range fix.Eqs {
		if i < 0 || i >= l.NumEq() {
			return fmt.Errorf("fixing row %d out of range [0,%d): %w", i, l.NumEq(), ErrDimensionMismatch)
		}
	}
	for _, j := range fix.Vars {
		if j < 0 || j >= l.NumVar() {
			return fmt.Errorf("fixing column %d out of range [0,%d): %w", j, l.NumVar(), ErrDimensionMismatch)
		}
	}

	return nil
}
