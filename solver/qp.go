// SPDX-License-Identifier: MIT

// Package solver - QP backend (SLSQP).
//
// The model maps one-to-one onto slsqp.Problem:
//   - objective ½xᵀHx + cᵀx + k with analytic gradient Hx + c,
//   - Equal rows -> EqCons, LessEq/GreaterEq rows -> NeqCons (c(x) ≥ 0),
//   - [lb, ub] -> Bounds (+Inf upper bounds are open).
//
// SLSQP is a local method. For convex H it returns the global optimum; for
// indefinite H (the relaxed complementarity QP) it returns a KKT point only.
package solver

import (
	"fmt"
	"math"

	"github.com/curioloop/optimizer/slsqp"

	"github.com/katalvlaran/epec/matrix"
)

// linearEval builds the slsqp evaluation of sign*(Σ terms - rhs).
func linearEval(r Row, sign float64) slsqp.Evaluation {
	terms := append([]Term(nil), r.Terms...)
	rhs := r.RHS

	return func(x, g []float64) float64 {
		if g == nil {
			v := -rhs
			for _, t := range terms {
				v += t.Coef * x[t.Var]
			}
			return sign * v
		}
		for i := range g {
			g[i] = 0
		}
		for _, t := range terms {
			g[t.Var] += sign * t.Coef
		}
		return 0
	}
}

func solveQP(m *Model, x0 []float64, o Options) (Result, error) {
	n := m.NumVars()
	for j, isBin := range m.binary {
		if isBin {
			return Result{}, fmt.Errorf("var %d is binary: %w", j, ErrInvalidModel)
		}
	}
	if n == 0 {
		return Result{X: []float64{}, Objective: m.constant}, nil
	}
	if x0 != nil && len(x0) != n {
		return Result{}, fmt.Errorf("start point has %d entries, want %d: %w", len(x0), n, ErrInvalidModel)
	}

	h := m.quad
	if h == nil {
		h = matrix.Zeros(n, n)
	}
	cost := append([]float64(nil), m.cost...)
	object := func(x, g []float64) float64 {
		hx, _ := matrix.MatVec(h, x)
		if g == nil {
			f := m.constant
			for j := 0; j < n; j++ {
				f += x[j] * (0.5*hx[j] + cost[j])
			}
			return f
		}
		for j := 0; j < n; j++ {
			g[j] = hx[j] + cost[j]
		}
		return 0
	}

	var eq, neq []slsqp.Evaluation
	for _, r := range m.rows {
		switch r.Sense {
		case Equal:
			eq = append(eq, linearEval(r, 1))
		case GreaterEq:
			neq = append(neq, linearEval(r, 1))
		case LessEq:
			neq = append(neq, linearEval(r, -1))
		}
	}
	bounds := make([]slsqp.Bound, n)
	start := make([]float64, n)
	for j := 0; j < n; j++ {
		bounds[j] = slsqp.Bound{Lower: m.lb[j], Upper: m.ub[j]}
		if x0 != nil {
			start[j] = x0[j]
		}
		start[j] = math.Max(start[j], m.lb[j])
		start[j] = math.Min(start[j], m.ub[j])
	}

	p := slsqp.Problem{
		N:       n,
		Object:  object,
		EqCons:  eq,
		NeqCons: neq,
		Bounds:  bounds,
		Stop: slsqp.Termination{
			Accuracy:      o.qpAccuracy,
			MaxIterations: o.qpMaxIter,
		},
	}
	opt, err := p.New()
	if err != nil {
		return Result{}, fmt.Errorf("slsqp: %v: %w", err, ErrSolver)
	}
	r := opt.Fit(start, opt.Init())
	x := append([]float64(nil), r.X...)
	for j := range x {
		// SLSQP keeps bounds up to round-off
		x[j] = math.Min(math.Max(x[j], m.lb[j]), m.ub[j])
	}
	if v := m.scaledViolation(x, m.lb, m.ub); v > o.feasTol*100 {
		return Result{}, fmt.Errorf("slsqp status %d ended %g infeasible: %w", r.Status, v, ErrSolver)
	}

	return Result{X: x, Objective: m.Objective(x), Converged: r.OK, Iterations: r.NumIter}, nil
}
