// SPDX-License-Identifier: MIT

package lcp

import (
	"context"
	"fmt"
	"math"

	"github.com/katalvlaran/epec/matrix"
	"github.com/katalvlaran/epec/solver"
)

// zeroSnap: decoded z entries below this magnitude are set to exactly 0.
const zeroSnap = 1e-9

// rowTerms returns the nonzero coefficients of row i of M.
func (l *LCP) rowTerms(i int, extra int) []solver.Term {
	row := l.m.RowView(i)
	terms := make([]solver.Term, 0, len(row)+extra)
	for j, v := range row {
		if v != 0 {
			terms = append(terms, solver.Term{Var: j, Coef: v})
		}
	}

	return terms
}

// buildModel encodes the feasible set of l under fix. Columns 0..nVar-1
// of the model are z. With disjunctions set, every pair left open by fix
// gets one binary u and the rows
//
//	M_i z - bigM·u ≤ -q_i   (w_i ≤ bigM·u)
//	z_j + bigM·u ≤ bigM     (z_j ≤ bigM·(1-u))
func (l *LCP) buildModel(fix Fixing, disjunctions bool) *solver.Model {
	nEq, nVar := l.m.Shape()
	fixedEq := make([]bool, nEq)
	fixedVar := make([]bool, nVar)
	for _, i := range fix.Eqs {
		fixedEq[i] = true
	}
	for _, j := range fix.Vars {
		fixedVar[j] = true
	}

	md := solver.NewModel()
	md.AddVars(nVar, 0, math.Inf(1))
	for j, f := range fixedVar {
		if f {
			md.SetBounds(j, 0, 0)
		}
	}

	bigM := l.opts.bigM
	for i := 0; i < nEq; i++ {
		terms := l.rowTerms(i, 1)
		if fixedEq[i] {
			md.AddRow(terms, solver.Equal, -l.q[i])
			continue
		}
		md.AddRow(terms, solver.GreaterEq, -l.q[i])
		j := l.pairs[l.eqPair[i]].Var
		if !disjunctions || fixedVar[j] {
			continue
		}
		u := md.AddBinary()
		md.AddRow(append(terms, solver.Term{Var: u, Coef: -bigM}), solver.LessEq, -l.q[i])
		md.AddRow([]solver.Term{{Var: j, Coef: 1}, {Var: u, Coef: bigM}}, solver.LessEq, bigM)
	}

	if a := l.opts.cutA; a != nil {
		for r := 0; r < a.Rows(); r++ {
			var terms []solver.Term
			for j, v := range a.RowView(r) {
				if v != 0 {
					terms = append(terms, solver.Term{Var: j, Coef: v})
				}
			}
			md.AddRow(terms, solver.LessEq, l.opts.cutB[r])
		}
	}

	return md
}

// decode turns the z block of a solver point into a Solution.
func (l *LCP) decode(x []float64, fix Fixing) Solution {
	z := make([]float64, l.NumVar())
	for j := range z {
		v := x[j]
		if v < 0 || math.Abs(v) < zeroSnap {
			v = 0
		}
		z[j] = v
	}
	for _, j := range fix.Vars {
		z[j] = 0
	}
	w, _ := matrix.AXPY(l.q, l.m, z)

	return Solution{Z: z, W: w}
}

// solveMIP minimizes costᵀz (cost may be nil) over the complementary
// solutions compatible with fix and re-validates the result.
func (l *LCP) solveMIP(ctx context.Context, fix Fixing, cost []float64) (Solution, float64, error) {
	if err := l.validateFixing(fix); err != nil {
		return Solution{}, 0, err
	}
	md := l.buildModel(fix, true)
	for j, c := range cost {
		md.SetCost(j, c)
	}
	res, err := l.opts.env.SolveMILP(ctx, md)
	if err != nil {
		return Solution{}, 0, err
	}

	sol := l.decode(res.X, fix)
	if ok, viol := l.ErrorCheck(sol); !ok {
		return Solution{}, 0, fmt.Errorf("complementarity violation %g > eps %g: %w", viol, l.opts.eps, ErrSolver)
	}
	var obj float64
	for j, c := range cost {
		obj += c * sol.Z[j]
	}

	return sol, obj, nil
}

// SolveAsMIP returns a complementary solution compatible with fix.
// Pairs with a fixed side are encoded as equalities (rows) or zero upper
// bounds (columns); every other pair costs one binary.
//
// Errors: ErrDimensionMismatch (bad fixing), ErrInfeasible, ErrUnbounded,
// ErrSolver (solver failure or a point failing ErrorCheck), ctx errors.
func (l *LCP) SolveAsMIP(ctx context.Context, fix Fixing) (Solution, error) {
	sol, _, err := l.solveMIP(ctx, fix, nil)
	if err != nil {
		return Solution{}, fmt.Errorf("lcp.SolveAsMIP: %w", err)
	}

	return sol, nil
}

// SolveMPEC minimizes (c + C·xOthers)ᵀz over the complementary solutions
// compatible with fix and returns the solution and its objective value.
// C may be nil, in which case xOthers is ignored.
func (l *LCP) SolveMPEC(ctx context.Context, c []float64, C *matrix.Dense, xOthers []float64, fix Fixing) (Solution, float64, error) {
	cost := c
	if C != nil {
		var err error
		if cost, err = matrix.AXPY(c, C, xOthers); err != nil {
			return Solution{}, 0, fmt.Errorf("lcp.SolveMPEC: %w: %v", ErrDimensionMismatch, err)
		}
	}
	if len(cost) != l.NumVar() {
		return Solution{}, 0, fmt.Errorf("lcp.SolveMPEC: len(c)=%d, want %d: %w", len(cost), l.NumVar(), ErrDimensionMismatch)
	}
	if err := matrix.ValidateFinite(cost); err != nil {
		return Solution{}, 0, fmt.Errorf("lcp.SolveMPEC: %w: %v", ErrDimensionMismatch, err)
	}

	sol, obj, err := l.solveMIP(ctx, fix, cost)
	if err != nil {
		return Solution{}, 0, fmt.Errorf("lcp.SolveMPEC: %w", err)
	}

	return sol, obj, nil
}
