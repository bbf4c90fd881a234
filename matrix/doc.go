// SPDX-License-Identifier: MIT

// Package matrix provides the dense row-major storage used to describe
// quadratic programs and complementarity systems.
//
// What & Why:
//
//	Program data (Q, C, A, B), KKT blocks and joint LCP matrices are small,
//	dense and assembled block by block. Dense keeps them in one flat buffer
//	with bounds-checked accessors, and the free functions in this package
//	(MatVec, Mul, Transpose, Block, ...) never mutate their operands.
//
// Zero-sized shapes (0×n, n×0) are legal: a follower without constraints has
// an empty B, and a program without parameters has an empty C.
//
// Factorizations (pivoted LU, semidefinite test) live in matrix/ops.
package matrix
