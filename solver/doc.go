// SPDX-License-Identifier: MIT

// Package solver is the numerical capability used by the complementarity
// layer: it accepts a linear, mixed-binary or quadratic program described by
// a Model and returns an optimal point, or reports infeasibility,
// unboundedness or an internal failure.
//
// Backends:
//   - LP:   gonum.org/v1/gonum/optimize/convex/lp.Simplex on a presolved
//     standard form (slacks, bound rows, zero rows/columns and dependent rows
//     removed, since Simplex requires full row rank and no zero lines).
//   - MILP: depth-first branch-and-bound over the LP backend with an incumbent,
//     bound pruning and most-fractional branching on binary variables.
//   - QP:   github.com/curioloop/optimizer/slsqp (local SQP).
//
// Sessions:
//
//	env := solver.NewEnv(solver.WithLogger(log))
//	s := env.Acquire()
//	defer s.Close()
//	res, err := s.SolveMILP(ctx, model)
//
// A Session serves exactly one solve and must not be shared across goroutines;
// Env is safe for concurrent use and hands out one Session per worker.
package solver
