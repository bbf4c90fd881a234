// SPDX-License-Identifier: MIT

package qp

import "math"

// DefaultPSDTolerance is the base tolerance of the convexity check
// (scaled by max|Q| and n inside the check).
const DefaultPSDTolerance = 1e-9

// Option configures a Program.
type Option func(*Options)

// Options is the resolved configuration of a Program.
type Options struct {
	psdTol float64
}

// WithPSDTolerance sets the convexity check tolerance.
// Panics on a negative or non-finite value.
func WithPSDTolerance(tol float64) Option {
	if math.IsNaN(tol) || math.IsInf(tol, 0) || tol < 0 {
		panic("qp: WithPSDTolerance: tol must be finite, non-negative")
	}

	return func(o *Options) { o.psdTol = tol }
}
