// SPDX-License-Identifier: MIT

package lcp

import (
	"errors"

	"github.com/katalvlaran/epec/solver"
)

var (
	// ErrDimensionMismatch reports inconsistent M, q, pairs, cuts or vectors.
	ErrDimensionMismatch = errors.New("lcp: dimension mismatch")

	// ErrInvalidPairs reports a row or column used by more than one pair,
	// or a pair index out of range.
	ErrInvalidPairs = errors.New("lcp: invalid complementary pairs")

	// ErrNotComplementary is returned by Encode when some pair has both
	// members away from zero.
	ErrNotComplementary = errors.New("lcp: solution is not complementary")
)

// Solve outcomes shared with the solver capability, so errors.Is works
// across both packages.
var (
	ErrInfeasible = solver.ErrInfeasible
	ErrUnbounded  = solver.ErrUnbounded
	ErrSolver     = solver.ErrSolver
)
