// SPDX-License-Identifier: MIT

package solver

import (
	"io"
	"log/slog"
	"math"

	"github.com/katalvlaran/epec/metrics"
)

// Defaults (single source of truth).
const (
	// DefaultFeasibilityTolerance bounds the residual accepted when a backend
	// solution is checked against the original model rows.
	DefaultFeasibilityTolerance = 1e-7

	// DefaultIntTolerance is the distance to 0/1 under which a binary is integral.
	DefaultIntTolerance = 1e-8

	// DefaultMaxNodes caps branch-and-bound nodes per MILP solve.
	DefaultMaxNodes = 200000

	// DefaultQPAccuracy and DefaultQPMaxIterations drive SLSQP termination.
	DefaultQPAccuracy      = 1e-10
	DefaultQPMaxIterations = 500
)

const (
	panicTolInvalid   = "solver: tolerance must be finite and > 0"
	panicLimitInvalid = "solver: limit must be > 0"
)

// Option configures an Env.
type Option func(*Options)

// Options is the resolved Env configuration.
type Options struct {
	feasTol    float64
	intTol     float64
	maxNodes   int
	qpAccuracy float64
	qpMaxIter  int
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

func defaultOptions() Options {
	return Options{
		feasTol:    DefaultFeasibilityTolerance,
		intTol:     DefaultIntTolerance,
		maxNodes:   DefaultMaxNodes,
		qpAccuracy: DefaultQPAccuracy,
		qpMaxIter:  DefaultQPMaxIterations,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func checkTol(v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		panic(panicTolInvalid)
	}
}

// WithFeasibilityTolerance sets the residual tolerance for solution checks.
func WithFeasibilityTolerance(tol float64) Option {
	checkTol(tol)

	return func(o *Options) { o.feasTol = tol }
}

// WithIntTolerance sets the integrality tolerance of the MILP backend.
func WithIntTolerance(tol float64) Option {
	checkTol(tol)

	return func(o *Options) { o.intTol = tol }
}

// WithMaxNodes caps branch-and-bound nodes per MILP solve.
func WithMaxNodes(n int) Option {
	if n <= 0 {
		panic(panicLimitInvalid)
	}

	return func(o *Options) { o.maxNodes = n }
}

// WithQPTermination sets SLSQP accuracy and iteration cap.
func WithQPTermination(accuracy float64, maxIter int) Option {
	checkTol(accuracy)
	if maxIter <= 0 {
		panic(panicLimitInvalid)
	}

	return func(o *Options) {
		o.qpAccuracy = accuracy
		o.qpMaxIter = maxIter
	}
}

// WithLogger routes solver diagnostics to l. Nil keeps the discard logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics records solve counts and latencies on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Options) { o.metrics = m }
}
