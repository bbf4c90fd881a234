// SPDX-License-Identifier: MIT

package qp

import "errors"

var (
	// ErrDimensionMismatch indicates inconsistent matrix or vector shapes.
	ErrDimensionMismatch = errors.New("qp: dimension mismatch")

	// ErrNonConvex indicates Q failed the semi-definiteness test.
	ErrNonConvex = errors.New("qp: quadratic term is not positive semi-definite")
)
