// SPDX-License-Identifier: MIT
// Package solver: sentinel errors. Callers match with errors.Is.

package solver

import "errors"

var (
	// ErrInfeasible reports a proven infeasible model.
	ErrInfeasible = errors.New("solver: problem is infeasible")

	// ErrUnbounded reports an objective unbounded below on the feasible set.
	ErrUnbounded = errors.New("solver: problem is unbounded")

	// ErrSolver reports a backend failure (numerical breakdown, node limit,
	// non-convergence). The wrapped message carries the backend detail.
	ErrSolver = errors.New("solver: internal failure")

	// ErrInvalidModel reports a malformed Model (bad index, infinite lower bound,
	// wrong quadratic shape, binaries in a QP).
	ErrInvalidModel = errors.New("solver: invalid model")

	// ErrSessionClosed is returned when a closed Session is used.
	ErrSessionClosed = errors.New("solver: session closed")

	// ErrSessionSpent is returned on a second solve through the same Session.
	ErrSessionSpent = errors.New("solver: session already used")

	// ErrNodeLimit is wrapped together with ErrSolver when branch-and-bound
	// stops at the node budget without an incumbent.
	ErrNodeLimit = errors.New("solver: node limit reached")
)
