// SPDX-License-Identifier: MIT

package lcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/katalvlaran/epec/matrix"
)

// SolveAsRelaxedQP is Relaxed with no fixing.
func (l *LCP) SolveAsRelaxedQP(ctx context.Context) (Solution, float64, error) {
	return l.Relaxed(ctx, Fixing{})
}

// Relaxed drops the disjunctions and searches the feasible set under fix
// for a nearly complementary point.
//
//	Stage 1: LP minimizing Σ (w_i + z_j) over the linear feasible set.
//	         Infeasible here means no complementary solution exists under fix.
//	Stage 2: SLSQP minimizing Σ z_j·w_i from the stage 1 point.
//
// The returned violation is the ErrorCheck value of the better of the two
// points; a value above eps means the candidate is not complementary.
// Relaxed never certifies a solution.
//
// Errors: ErrDimensionMismatch, ErrInfeasible, ErrSolver from stage 1, ctx errors.
func (l *LCP) Relaxed(ctx context.Context, fix Fixing) (Solution, float64, error) {
	if err := l.validateFixing(fix); err != nil {
		return Solution{}, 0, fmt.Errorf("lcp.Relaxed: %w", err)
	}
	nEq, nVar := l.m.Shape()
	md := l.buildModel(fix, false)

	// Stage 1
	cost := make([]float64, nVar)
	var k float64
	for i := 0; i < nEq; i++ {
		for j, v := range l.m.RowView(i) {
			cost[j] += v
		}
		k += l.q[i]
	}
	for _, p := range l.pairs {
		cost[p.Var]++
	}
	for j, c := range cost {
		md.SetCost(j, c)
	}
	md.SetConstant(k)
	lp, err := l.opts.env.SolveLP(ctx, md)
	if errors.Is(err, ErrUnbounded) {
		// leader columns can make the sum unbounded below; feasibility is enough
		for j := 0; j < nVar; j++ {
			md.SetCost(j, 0)
		}
		md.SetConstant(0)
		lp, err = l.opts.env.SolveLP(ctx, md)
	}
	if err != nil {
		return Solution{}, 0, fmt.Errorf("lcp.Relaxed: %w", err)
	}
	best := l.decode(lp.X, fix)
	_, bestViol := l.ErrorCheck(best)
	if bestViol <= l.opts.eps {
		return best, bestViol, nil
	}

	// Stage 2: Σ z_j (M_i z + q_i) = ½ zᵀ(S + Sᵀ)z + fᵀz with S[j] = M[i], f_j = q_i.
	h := matrix.Zeros(nVar, nVar)
	for j := 0; j < nVar; j++ {
		md.SetCost(j, 0)
	}
	for _, p := range l.pairs {
		for c, v := range l.m.RowView(p.Eq) {
			if v == 0 {
				continue
			}
			a, _ := h.At(p.Var, c)
			_ = h.Set(p.Var, c, a+v)
			b, _ := h.At(c, p.Var)
			_ = h.Set(c, p.Var, b+v)
		}
		md.SetCost(p.Var, l.q[p.Eq])
	}
	md.SetConstant(0)
	md.SetQuadratic(h)

	qp, err := l.opts.env.SolveQP(ctx, md, lp.X)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Solution{}, 0, fmt.Errorf("lcp.Relaxed: %w", ctxErr)
		}
		l.opts.logger.Debug("relaxed qp stage failed, keeping lp point", "err", err)

		return best, bestViol, nil
	}
	cand := l.decode(qp.X, fix)
	if _, viol := l.ErrorCheck(cand); viol < bestViol {
		best, bestViol = cand, viol
	}

	return best, bestViol, nil
}

// feasible returns nil when the linear feasible set under fix is nonempty.
// It costs a single zero-cost LP; enumeration prunes on it.
//
// Errors: ErrInfeasible, ErrSolver, ctx errors.
func (l *LCP) feasible(ctx context.Context, fix Fixing) error {
	_, err := l.opts.env.SolveLP(ctx, l.buildModel(fix, false))

	return err
}
