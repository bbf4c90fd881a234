// SPDX-License-Identifier: MIT

// Package lcp builds and solves linear complementarity problems
//
//	w = Mz + q,  w ≥ 0,  z ≥ 0,  w_i · z_pair(i) = 0,  A z ≤ b (optional cuts)
//
// as they arise from KKT systems of parametrized quadratic programs.
//
// M is nEq×nVar. Every row i belongs to exactly one Pair{Eq: i, Var: j};
// columns that appear in no pair are leader columns: non-negative, free of
// complementarity, typically pinned down by the cuts.
//
// Solving paths:
//   - SolveAsMIP: one binary per unfixed pair with big-M implications
//     (w_i ≤ M·u, z_j ≤ M·(1-u)), pre-fixed pairs become equalities.
//   - SolveMPEC: the same feasible set with a linear objective (a leader's
//     best response over its followers' equilibria).
//   - SolveAsRelaxedQP: LP feasibility, then a local minimization of Σ z_j·w_i.
//     A pruning heuristic only; it never certifies a solution.
//   - EnumerateAll: depth-first branch-and-bound over sign patterns, one
//     complementary solution per feasible leaf, deduplicated within eps.
//
// Every accepted solution is re-validated with ErrorCheck before it is
// returned. LCP values are immutable; WithQ derives a shifted copy.
package lcp
