// SPDX-License-Identifier: MIT

// Package solver - LP backend.
//
// lp.Simplex solves  min cᵀy  s.t.  Ay = b, y ≥ 0  and is strict about its
// input: A must have full row rank, no zero rows or columns and at most as
// many rows as columns. The presolve below turns an arbitrary Model into that
// shape:
//
//	Stage 1: shift x = lb + y, substitute fixed variables (ub - lb <= tol).
//	Stage 2: add one slack per inequality and one bound row per finite ub.
//	Stage 3: drop zero rows (infeasible when their rhs is not ~0).
//	Stage 4: row-echelon reduction of [A|b] with partial pivoting; rows that
//	         vanish are dependent (infeasible when their rhs is not ~0).
//	Stage 5: drop zero columns (a negative cost marks an unbounded ray).
//	Stage 6: square systems are solved directly; the rest go to lp.Simplex
//	         on a perturbed right-hand side, then the basis it ends on is
//	         re-solved against the original one.
//	Stage 7: map back to x and check every original row.
package solver

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/katalvlaran/epec/matrix"
	"github.com/katalvlaran/epec/matrix/ops"
)

const (
	pivotTol = 1e-10 // relative pivot threshold in the echelon reduction
	snapTol  = 1e-13 // relative magnitude snapped to exact zero

	// perturbation is the relative size of the shift w in b + A·w.
	perturbation = 1e-9
	// simplexTol is the reduced-cost tolerance handed to lp.Simplex.
	simplexTol = 1e-10
	// golden spreads the entries of w so that no two are equal.
	golden = 0.6180339887498949
)

// standardForm is the presolved LP handed to lp.Simplex.
type standardForm struct {
	a      [][]float64 // rows over all columns (structural, slack, bound slack)
	b      []float64
	c      []float64
	colVar []int     // structural column k -> model variable
	base   []float64 // x_j = base_j + y_col(j)
	colOf  []int     // model variable -> structural column, -1 when fixed
	shift  float64   // objective constant after substitution
}

// buildStandardForm performs stages 1-2 for the bounds (lb, ub).
func buildStandardForm(m *Model, lb, ub []float64, tol float64) (*standardForm, error) {
	n := m.NumVars()
	sf := &standardForm{base: make([]float64, n), colOf: make([]int, n)}

	// Stage 1: shift and substitute fixed variables.
	for j := 0; j < n; j++ {
		if ub[j] < lb[j]-tol {
			return nil, fmt.Errorf("var %d: bounds [%g,%g]: %w", j, lb[j], ub[j], ErrInfeasible)
		}
		sf.base[j] = lb[j]
		if ub[j]-lb[j] <= tol {
			sf.colOf[j] = -1
			continue
		}
		sf.colOf[j] = len(sf.colVar)
		sf.colVar = append(sf.colVar, j)
	}

	// Stage 2: count slack columns then fill rows.
	nS := len(sf.colVar)
	nSlack := 0
	for _, r := range m.rows {
		if r.Sense != Equal {
			nSlack++
		}
	}
	nUB := 0
	for _, j := range sf.colVar {
		if !math.IsInf(ub[j], 1) {
			nUB++
		}
	}
	nCols := nS + nSlack + nUB
	sf.c = make([]float64, nCols)
	sf.shift = m.constant
	for j := 0; j < n; j++ {
		sf.shift += m.cost[j] * sf.base[j]
		if k := sf.colOf[j]; k >= 0 {
			sf.c[k] = m.cost[j]
		}
	}

	slack := nS
	for _, r := range m.rows {
		row := make([]float64, nCols)
		rhs := r.RHS
		for _, t := range r.Terms {
			rhs -= t.Coef * sf.base[t.Var]
			if k := sf.colOf[t.Var]; k >= 0 {
				row[k] += t.Coef
			}
		}
		switch r.Sense {
		case LessEq:
			row[slack] = 1
			slack++
		case GreaterEq:
			row[slack] = -1
			slack++
		}
		sf.a = append(sf.a, row)
		sf.b = append(sf.b, rhs)
	}
	for k, j := range sf.colVar {
		if math.IsInf(ub[j], 1) {
			continue
		}
		row := make([]float64, nCols)
		row[k] = 1
		row[slack] = 1
		slack++
		sf.a = append(sf.a, row)
		sf.b = append(sf.b, ub[j]-lb[j])
	}

	return sf, nil
}

// reduceRows performs stages 3-4 in place and returns the kept rows.
func reduceRows(a [][]float64, b []float64, tol float64) ([][]float64, []float64, error) {
	var scale float64
	for _, row := range a {
		for _, v := range row {
			scale = math.Max(scale, math.Abs(v))
		}
	}
	scale = math.Max(scale, 1)

	// Stage 3: zero rows.
	keptA := a[:0:0]
	keptB := b[:0:0]
	for i, row := range a {
		if floats.Norm(row, math.Inf(1)) <= snapTol*scale {
			if math.Abs(b[i]) > tol {
				return nil, nil, fmt.Errorf("empty row %d with rhs %g: %w", i, b[i], ErrInfeasible)
			}
			continue
		}
		keptA = append(keptA, append([]float64(nil), row...))
		keptB = append(keptB, b[i])
	}
	a, b = keptA, keptB
	if len(a) == 0 {
		return a, b, nil
	}

	// Stage 4: echelon reduction of [A|b].
	rows, cols := len(a), len(a[0])
	rank := 0
	for col := 0; col < cols && rank < rows; col++ {
		p, best := rank, math.Abs(a[rank][col])
		for i := rank + 1; i < rows; i++ {
			if v := math.Abs(a[i][col]); v > best {
				p, best = i, v
			}
		}
		if best <= pivotTol*scale {
			continue
		}
		a[rank], a[p] = a[p], a[rank]
		b[rank], b[p] = b[p], b[rank]
		piv := a[rank][col]
		for i := rank + 1; i < rows; i++ {
			f := a[i][col] / piv
			if f == 0 {
				continue
			}
			for k := col; k < cols; k++ {
				a[i][k] -= f * a[rank][k]
			}
			a[i][col] = 0
			b[i] -= f * b[rank]
		}
		rank++
	}
	for i := rank; i < rows; i++ {
		if math.Abs(b[i]) > tol*(1+floats.Norm(b, math.Inf(1))) {
			return nil, nil, fmt.Errorf("dependent row %d inconsistent (residual %g): %w", i, b[i], ErrInfeasible)
		}
	}
	a, b = a[:rank], b[:rank]

	// snap round-off and normalize each row to unit max-norm
	for i, row := range a {
		for k, v := range row {
			if math.Abs(v) <= snapTol*scale {
				row[k] = 0
			}
		}
		if nrm := floats.Norm(row, math.Inf(1)); nrm > 0 {
			floats.Scale(1/nrm, row)
			b[i] /= nrm
		}
	}

	return a, b, nil
}

// solveStandard runs stages 5-6 and returns y over all columns of sf.
func solveStandard(a [][]float64, b, c []float64, tol float64) ([]float64, error) {
	nCols := len(c)
	y := make([]float64, nCols)

	// Stage 5: zero columns.
	var live []int
	unboundedRay := false
	for k := 0; k < nCols; k++ {
		zero := true
		for _, row := range a {
			if row[k] != 0 {
				zero = false
				break
			}
		}
		if !zero {
			live = append(live, k)
			continue
		}
		if c[k] < -tol {
			unboundedRay = true
		}
	}

	m, n := len(a), len(live)
	var (
		sol []float64
		err error
	)
	switch {
	case m == 0:
		sol = make([]float64, n)
	case m == n:
		sol, err = solveSquare(a, b, live, tol)
	default:
		sol, err = perturbedSimplex(a, b, c, live, tol)
	}
	if err != nil {
		return nil, err
	}
	if unboundedRay {
		return nil, fmt.Errorf("free column with negative cost: %w", ErrUnbounded)
	}
	for i, k := range live {
		y[k] = math.Max(sol[i], 0)
	}

	return y, nil
}

// solveSquare handles the exactly determined case; lp.Simplex would reject
// tiny negative round-off as infeasible there.
func solveSquare(a [][]float64, b []float64, live []int, tol float64) ([]float64, error) {
	n := len(live)
	sq := matrix.Zeros(n, n)
	for i := 0; i < n; i++ {
		row := sq.RowView(i)
		for jj, k := range live {
			row[jj] = a[i][k]
		}
	}
	x, err := ops.Solve(sq, b)
	if err != nil {
		return nil, fmt.Errorf("square system: %v: %w", err, ErrSolver)
	}
	for _, v := range x {
		if v < -tol*(1+floats.Norm(x, math.Inf(1))) {
			return nil, fmt.Errorf("square system has negative component %g: %w", v, ErrInfeasible)
		}
	}

	return x, nil
}

// perturbedSimplex solves min cᵀy, Ay = b, y ≥ 0 over the live columns.
//
// lp.Simplex can cycle forever on degenerate vertices, and the big-M
// complementarity encodings are full of them. It is therefore run on
// b' = b + A·w with a small positive w whose entries are pairwise distinct:
// every basic solution of b' is nondegenerate, and b' stays feasible whenever
// b is (y + w solves it). The basis found for b' is optimal for b as well;
// polish re-solves it against b so the shift does not leak into the result.
func perturbedSimplex(a [][]float64, b, c []float64, live []int, tol float64) ([]float64, error) {
	scale := 1 + floats.Norm(b, math.Inf(1))
	bp := append([]float64(nil), b...)
	for jj, k := range live {
		w := perturbation * scale * (1 + math.Mod(float64(jj+1)*golden, 1))
		for i, row := range a {
			bp[i] += row[k] * w
		}
	}
	x, err := simplex(a, bp, c, live)
	if err != nil {
		return nil, err
	}
	if y, ok := polish(a, b, live, x, tol); ok {
		return y, nil
	}

	// degenerate despite the shift: keep the perturbed point, Stage 7
	// decides whether it is close enough.
	return x, nil
}

// polish solves the basis of x (its non-zero entries, positions in live)
// against b. It fails when the basis is not square or not feasible for b.
func polish(a [][]float64, b []float64, live []int, x []float64, tol float64) ([]float64, bool) {
	var basis []int
	for jj, v := range x {
		if v != 0 {
			basis = append(basis, jj)
		}
	}
	if len(basis) != len(a) {
		return nil, false
	}
	cols := make([]int, len(basis))
	for i, jj := range basis {
		cols[i] = live[jj]
	}
	xb, err := solveSquare(a, b, cols, tol)
	if err != nil {
		return nil, false
	}
	y := make([]float64, len(live))
	for i, jj := range basis {
		y[jj] = math.Max(xb[i], 0)
	}

	return y, true
}

// simplex calls lp.Simplex on the live columns, turning panics and backend
// errors into package sentinels.
func simplex(a [][]float64, b, c []float64, live []int) (x []float64, err error) {
	m, n := len(a), len(live)
	data := make([]float64, 0, m*n)
	for _, row := range a {
		for _, k := range live {
			data = append(data, row[k])
		}
	}
	cc := make([]float64, n)
	for i, k := range live {
		cc[i] = c[k]
	}
	bb := append([]float64(nil), b...)

	defer func() {
		if r := recover(); r != nil {
			x, err = nil, fmt.Errorf("lp.Simplex panic: %v: %w", r, ErrSolver)
		}
	}()
	_, x, err = lp.Simplex(cc, mat.NewDense(m, n, data), bb, simplexTol, nil)
	switch {
	case err == nil:
		return x, nil
	case errors.Is(err, lp.ErrInfeasible):
		return nil, fmt.Errorf("%v: %w", err, ErrInfeasible)
	case errors.Is(err, lp.ErrUnbounded):
		return nil, fmt.Errorf("%v: %w", err, ErrUnbounded)
	default:
		return nil, fmt.Errorf("%v: %w", err, ErrSolver)
	}
}

// solveLP solves the LP relaxation of m under the bounds (lb, ub);
// binary flags are ignored here.
func solveLP(m *Model, lb, ub []float64, tol float64) (Result, error) {
	sf, err := buildStandardForm(m, lb, ub, tol)
	if err != nil {
		return Result{}, err
	}
	a, b, err := reduceRows(sf.a, sf.b, tol)
	if err != nil {
		return Result{}, err
	}
	y, err := solveStandard(a, b, sf.c, tol)
	if err != nil {
		return Result{}, err
	}

	// Stage 7: back to model space.
	x := append([]float64(nil), sf.base...)
	for k, j := range sf.colVar {
		x[j] += y[k]
		if x[j] > ub[j] {
			x[j] = ub[j] // bound-row round-off
		}
	}
	if v := m.scaledViolation(x, lb, ub); v > tol*10 {
		return Result{}, fmt.Errorf("solution violates model by %g: %w", v, ErrSolver)
	}

	return Result{X: x, Objective: m.Objective(x)}, nil
}
