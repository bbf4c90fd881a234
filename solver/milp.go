// SPDX-License-Identifier: MIT

// Package solver - MILP backend (depth-first branch-and-bound).
//
// Each node carries its own bounds for the binary variables; branching fixes
// one binary to 0 or 1 (ub = 0 / lb = 1), which the LP presolve substitutes
// away, so deeper nodes solve smaller LPs.
//
//	Incumbent: best integral point so far (objective bestObj).
//	Prune:     infeasible relaxation, or relaxation objective ≥ bestObj - gap.
//	Branch:    most fractional binary (lowest index on ties); the child on the
//	           side the relaxation leans to is explored first.
//	Feasibility models (zero objective) stop at the first integral point.
//	Node solver errors prune that node; if the search ends without an
//	incumbent after such errors, ErrSolver is returned instead of ErrInfeasible.
package solver

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// bbNode is one pending subproblem.
type bbNode struct {
	lb, ub []float64
	depth  int
}

// bbEngine holds all search data and policies.
type bbEngine struct {
	m        *Model
	bins     []int
	feasOnly bool
	feasTol  float64
	intTol   float64
	maxNodes int

	nodes     int
	nodeErrs  int
	firstErr  error
	incumbent *Result
	bestObj   float64
}

func newBBEngine(m *Model, o Options) *bbEngine {
	e := &bbEngine{
		m:        m,
		feasOnly: true,
		feasTol:  o.feasTol,
		intTol:   o.intTol,
		maxNodes: o.maxNodes,
		bestObj:  math.Inf(1),
	}
	for j, isBin := range m.binary {
		if isBin {
			e.bins = append(e.bins, j)
		}
	}
	for _, c := range m.cost {
		if c != 0 {
			e.feasOnly = false
			break
		}
	}

	return e
}

// branchVar returns the most fractional binary of x, or -1 when x is integral.
func (e *bbEngine) branchVar(x []float64) int {
	best, bestFrac := -1, e.intTol
	for _, j := range e.bins {
		frac := math.Abs(x[j] - math.Round(x[j]))
		if frac > bestFrac {
			best, bestFrac = j, frac
		}
	}

	return best
}

// pruneGap is the objective margin under which a node cannot improve.
func (e *bbEngine) pruneGap() float64 {
	return e.feasTol * (1 + math.Abs(e.bestObj))
}

func (e *bbEngine) run(ctx context.Context) (Result, error) {
	root := bbNode{
		lb: append([]float64(nil), e.m.lb...),
		ub: append([]float64(nil), e.m.ub...),
	}
	stack := []bbNode{root}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		e.nodes++
		if e.nodes > e.maxNodes {
			if e.incumbent != nil {
				break
			}

			return Result{}, fmt.Errorf("%w after %d nodes: %w", ErrNodeLimit, e.maxNodes, ErrSolver)
		}

		res, err := solveLP(e.m, node.lb, node.ub, e.feasTol)
		switch {
		case err == nil:
		case errors.Is(err, ErrInfeasible):
			continue
		case errors.Is(err, ErrUnbounded):
			// a node region is contained in the root region
			return Result{}, err
		default:
			e.nodeErrs++
			if e.firstErr == nil {
				e.firstErr = err
			}
			continue
		}

		if e.incumbent != nil && res.Objective >= e.bestObj-e.pruneGap() {
			continue
		}

		j := e.branchVar(res.X)
		if j < 0 {
			for _, b := range e.bins {
				res.X[b] = math.Round(res.X[b])
			}
			res.Objective = e.m.Objective(res.X)
			e.incumbent, e.bestObj = &res, res.Objective
			if e.feasOnly {
				break
			}
			continue
		}

		down := bbNode{lb: node.lb, ub: append([]float64(nil), node.ub...), depth: node.depth + 1}
		down.ub[j] = 0
		up := bbNode{lb: append([]float64(nil), node.lb...), ub: node.ub, depth: node.depth + 1}
		up.lb[j] = 1
		// LIFO: the last pushed child is explored first
		if res.X[j] >= 0.5 {
			stack = append(stack, down, up)
		} else {
			stack = append(stack, up, down)
		}
	}

	if e.incumbent != nil {
		e.incumbent.Nodes = e.nodes
		return *e.incumbent, nil
	}
	if e.nodeErrs > 0 {
		return Result{}, fmt.Errorf("no incumbent, %d node failures, first: %w", e.nodeErrs, e.firstErr)
	}

	return Result{}, fmt.Errorf("branch-and-bound exhausted after %d nodes: %w", e.nodes, ErrInfeasible)
}
