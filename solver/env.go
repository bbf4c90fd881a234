// SPDX-License-Identifier: MIT

package solver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/katalvlaran/epec/metrics"
)

// Result is an optimal (or, for QP, locally optimal) point.
type Result struct {
	X         []float64
	Objective float64

	// Nodes is the branch-and-bound node count (MILP only).
	Nodes int

	// Converged and Iterations report SLSQP status (QP only).
	Converged  bool
	Iterations int
}

// Kind names a backend for logs and metrics.
type Kind string

const (
	KindLP   Kind = "lp"
	KindMILP Kind = "milp"
	KindQP   Kind = "qp"
)

// Env is a shared solver environment. It is safe for concurrent use;
// all solving happens through Sessions acquired from it.
type Env struct {
	opts   Options
	active atomic.Int64
	solves atomic.Int64
}

// NewEnv returns an Env configured by opts.
func NewEnv(opts ...Option) *Env {
	o := defaultOptions()
	for _, fn := range opts {
		if fn != nil {
			fn(&o)
		}
	}

	return &Env{opts: o}
}

// Active returns the number of sessions acquired and not yet closed.
func (e *Env) Active() int64 { return e.active.Load() }

// Solves returns the number of solves started through this Env.
func (e *Env) Solves() int64 { return e.solves.Load() }

// IntTolerance returns the configured integrality tolerance.
func (e *Env) IntTolerance() float64 { return e.opts.intTol }

// Logger returns the configured logger.
func (e *Env) Logger() *slog.Logger { return e.opts.logger }

// Acquire opens a Session. The caller must Close it, typically with defer.
func (e *Env) Acquire() *Session {
	e.active.Add(1)

	return &Session{env: e}
}

// Session is a scoped, single-use handle: one model, one solve, one result.
// It is not safe for concurrent use.
type Session struct {
	env    *Env
	closed bool
	spent  bool
}

// Close releases the session. It is idempotent.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.env.active.Add(-1)

	return nil
}

// SolveLP solves the continuous relaxation of m (binary flags ignored).
func (s *Session) SolveLP(ctx context.Context, m *Model) (Result, error) {
	return s.run(ctx, KindLP, m, func() (Result, error) {
		return solveLP(m, m.lb, m.ub, s.env.opts.feasTol)
	})
}

// SolveMILP solves m with its binary variables enforced.
func (s *Session) SolveMILP(ctx context.Context, m *Model) (Result, error) {
	return s.run(ctx, KindMILP, m, func() (Result, error) {
		e := newBBEngine(m, s.env.opts)
		res, err := e.run(ctx)
		s.env.opts.metrics.AddNodes(e.nodes)
		return res, err
	})
}

// SolveQP solves the quadratic model m locally from x0 (nil means the
// projection of 0 onto the bounds).
func (s *Session) SolveQP(ctx context.Context, m *Model, x0 []float64) (Result, error) {
	return s.run(ctx, KindQP, m, func() (Result, error) {
		return solveQP(m, x0, s.env.opts)
	})
}

// run enforces the session contract, validates the model, recovers backend
// panics and records logs and metrics.
func (s *Session) run(ctx context.Context, kind Kind, m *Model, solve func() (Result, error)) (res Result, err error) {
	if s.closed {
		return Result{}, ErrSessionClosed
	}
	if s.spent {
		return Result{}, ErrSessionSpent
	}
	s.spent = true
	if err = ctx.Err(); err != nil {
		return Result{}, err
	}
	if err = m.validate(); err != nil {
		return Result{}, err
	}
	s.env.solves.Add(1)

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res, err = Result{}, fmt.Errorf("%s backend panic: %v: %w", kind, r, ErrSolver)
		}
		d := time.Since(start)
		s.env.opts.metrics.ObserveSolve(string(kind), outcome(err), d)
		s.env.opts.logger.Debug("solve",
			slog.String("kind", string(kind)),
			slog.Int("vars", m.NumVars()),
			slog.Int("rows", m.NumRows()),
			slog.Int("binaries", m.NumBinaries()),
			slog.String("outcome", outcome(err)),
			slog.Duration("elapsed", d))
	}()

	return solve()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOptimal
	case errors.Is(err, ErrInfeasible):
		return metrics.OutcomeInfeasible
	case errors.Is(err, ErrUnbounded):
		return metrics.OutcomeUnbounded
	default:
		return metrics.OutcomeError
	}
}

// SolveLP is Acquire + SolveLP + Close.
func (e *Env) SolveLP(ctx context.Context, m *Model) (Result, error) {
	s := e.Acquire()
	defer s.Close()

	return s.SolveLP(ctx, m)
}

// SolveMILP is Acquire + SolveMILP + Close.
func (e *Env) SolveMILP(ctx context.Context, m *Model) (Result, error) {
	s := e.Acquire()
	defer s.Close()

	return s.SolveMILP(ctx, m)
}

// SolveQP is Acquire + SolveQP + Close.
func (e *Env) SolveQP(ctx context.Context, m *Model, x0 []float64) (Result, error) {
	s := e.Acquire()
	defer s.Close()

	return s.SolveQP(ctx, m, x0)
}
