// SPDX-License-Identifier: MIT

package epec

import (
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/katalvlaran/epec/lcp"
	"github.com/katalvlaran/epec/metrics"
	"github.com/katalvlaran/epec/solver"
)

// Defaults.
const (
	DefaultWorkers       = 1
	DefaultMaxIterations = 1000
	DefaultRetryBudget   = 3
	DefaultTolerance     = 1e-6
)

const (
	panicWorkers    = "epec: WithWorkers: n must be >= 1"
	panicTimeLimit  = "epec: WithTimeLimit: d must be >= 0"
	panicIterations = "epec: WithMaxIterations: n must be >= 1"
	panicRetry      = "epec: WithRetryBudget: n must be >= 0"
	panicTolerance  = "epec: WithTolerance: tol must be finite and > 0"
)

// Option configures a Coordinator.
type Option func(*Options)

// Options is the resolved configuration of a Coordinator.
type Options struct {
	workers     int
	timeLimit   time.Duration
	maxIter     int
	policy      AddPolicy
	recovery    Recovery
	retryBudget int
	tol         float64
	enumerate   bool
	algorithm   Algorithm
	logger      *slog.Logger
	metrics     *metrics.Metrics
	env         *solver.Env
	lcpOpts     []lcp.Option
}

// WithWorkers bounds the number of leaders solved concurrently.
func WithWorkers(n int) Option {
	if n < 1 {
		panic(panicWorkers)
	}

	return func(o *Options) { o.workers = n }
}

// WithTimeLimit sets the wall-clock budget, checked at pass boundaries.
// Zero means no limit.
func WithTimeLimit(d time.Duration) Option {
	if d < 0 {
		panic(panicTimeLimit)
	}

	return func(o *Options) { o.timeLimit = d }
}

// WithMaxIterations caps the number of passes.
func WithMaxIterations(n int) Option {
	if n < 1 {
		panic(panicIterations)
	}

	return func(o *Options) { o.maxIter = n }
}

// WithAddPolicy sets the polyhedron-addition policy.
func WithAddPolicy(p AddPolicy) Option {
	return func(o *Options) { o.policy = p }
}

// WithRecovery sets the reaction to a leader solve failure.
func WithRecovery(r Recovery) Option {
	return func(o *Options) { o.recovery = r }
}

// WithRetryBudget caps the number of recoveries per run.
func WithRetryBudget(n int) Option {
	if n < 0 {
		panic(panicRetry)
	}

	return func(o *Options) { o.retryBudget = n }
}

// WithTolerance sets the consistency tolerance: f_i ≤ v_i* + tol·(1+|v_i*|).
func WithTolerance(tol float64) Option {
	if math.IsNaN(tol) || math.IsInf(tol, 0) || tol <= 0 {
		panic(panicTolerance)
	}

	return func(o *Options) { o.tol = tol }
}

// WithEnumeration adds every leader's enumerated LCP vertices (at the zero
// profile) to the report.
func WithEnumeration(on bool) Option {
	return func(o *Options) { o.enumerate = on }
}

// WithAlgorithm selects the seeding algorithm.
func WithAlgorithm(a Algorithm) Option {
	return func(o *Options) { o.algorithm = a }
}

// WithLogger routes run logs to l.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics records passes, additions and outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Options) { o.metrics = m }
}

// WithSolverEnv shares env across all leader solves.
func WithSolverEnv(env *solver.Env) Option {
	return func(o *Options) { o.env = env }
}

// WithLCPOptions appends options to every leader LCP (tolerances, big-M).
func WithLCPOptions(opts ...lcp.Option) Option {
	return func(o *Options) { o.lcpOpts = append(o.lcpOpts, opts...) }
}

func gatherOptions(opts []Option) Options {
	o := Options{
		workers:     DefaultWorkers,
		maxIter:     DefaultMaxIterations,
		policy:      MostViolatedFirst,
		recovery:    DiscardLastAndRetry,
		retryBudget: DefaultRetryBudget,
		tol:         DefaultTolerance,
		algorithm:   InnerApproximation,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, fn := range opts {
		if fn != nil {
			fn(&o)
		}
	}
	if o.env == nil {
		o.env = solver.NewEnv(solver.WithLogger(o.logger), solver.WithMetrics(o.metrics))
	}

	return o
}
