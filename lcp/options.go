// SPDX-License-Identifier: MIT

package lcp

import (
	"io"
	"log/slog"
	"math"

	"github.com/katalvlaran/epec/matrix"
	"github.com/katalvlaran/epec/solver"
)

// Defaults.
const (
	// DefaultEps: |v| < eps counts as zero in complementarity checks.
	DefaultEps = 1e-6

	// DefaultEpsInt: binaries within EpsInt of 0 or 1 are integral.
	DefaultEpsInt = 1e-8

	// DefaultBigM bounds both members of every unfixed pair in the MIP encoding.
	DefaultBigM = 1e5

	// DefaultWorkers is the EnumerateAll parallelism.
	DefaultWorkers = 1
)

const (
	panicEpsInvalid     = "lcp: eps must be finite and > 0"
	panicBigMInvalid    = "lcp: big-M must be finite and > 0"
	panicWorkersInvalid = "lcp: workers must be >= 1"
)

// Option configures an LCP at construction.
type Option func(*Options)

// Options is the resolved configuration of an LCP.
type Options struct {
	eps     float64
	epsInt  float64
	bigM    float64
	cutA    *matrix.Dense
	cutB    []float64
	env     *solver.Env
	workers int
	logger  *slog.Logger
}

func positive(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0 }

// WithEps sets the zero tolerance.
func WithEps(eps float64) Option {
	if !positive(eps) {
		panic(panicEpsInvalid)
	}

	return func(o *Options) { o.eps = eps }
}

// WithEpsInt sets the integrality tolerance used by the default solver Env.
func WithEpsInt(eps float64) Option {
	if !positive(eps) {
		panic(panicEpsInvalid)
	}

	return func(o *Options) { o.epsInt = eps }
}

// WithBigM sets the big-M constant of the MIP encoding.
func WithBigM(m float64) Option {
	if !positive(m) {
		panic(panicBigMInvalid)
	}

	return func(o *Options) { o.bigM = m }
}

// WithCuts restricts solutions to A z ≤ b. Shapes are checked by New.
func WithCuts(a *matrix.Dense, b []float64) Option {
	return func(o *Options) {
		o.cutA = a
		o.cutB = append([]float64(nil), b...)
	}
}

// WithEnv uses env for every solve instead of a private one.
func WithEnv(env *solver.Env) Option {
	return func(o *Options) { o.env = env }
}

// WithWorkers sets the EnumerateAll parallelism.
func WithWorkers(n int) Option {
	if n < 1 {
		panic(panicWorkersInvalid)
	}

	return func(o *Options) { o.workers = n }
}

// WithLogger routes diagnostics to l.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.logger = l
		}
	}
}

func gatherOptions(opts []Option) Options {
	o := Options{
		eps:     DefaultEps,
		epsInt:  DefaultEpsInt,
		bigM:    DefaultBigM,
		workers: DefaultWorkers,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, fn := range opts {
		if fn != nil {
			fn(&o)
		}
	}
	if o.env == nil {
		o.env = solver.NewEnv(solver.WithIntTolerance(o.epsInt), solver.WithLogger(o.logger))
	}

	return o
}
