// SPDX-License-Identifier: MIT

// Package qp holds a follower's convex quadratic program parametrized by x:
//
//	min_y  ½ yᵀQy + (c + Cx)ᵀy
//	s.t.   Ax + By ≤ b,  y ≥ 0
//
// and converts it to KKT form. With λ the duals of the constraints,
//
//	[Qy + Bᵀλ + c + Cx]       [ Q  Bᵀ] [y]   [ C]     [c]
//	[b - Ax - By      ]   =   [-B  0 ] [λ] + [-A] x + [b]   ⟂  (y, λ) ≥ 0
//
// i.e. M·(y, λ) + N·x + q. KKT returns (M, N, q); SolveFixed substitutes a
// concrete x and returns the resulting lcp.LCP with identity pairs.
// Nothing in this package solves anything.
package qp
