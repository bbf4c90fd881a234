// SPDX-License-Identifier: MIT

package epec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/katalvlaran/epec/lcp"
	"github.com/katalvlaran/epec/matrix"
	"github.com/katalvlaran/epec/nash"
)

// Coordinator runs the inner-approximation algorithm over a fixed set of
// leaders. Solve calls are serialized; the statistics of the latest run are
// kept on the coordinator.
type Coordinator struct {
	mu sync.Mutex

	leaders []Leader
	layouts []nash.Layout
	widths  []int
	opts    Options

	runID    uuid.UUID
	status   Status
	stats    Stats
	states   []*leaderState
	vertices [][][]float64
	rrNext   int
	log      *slog.Logger

	incumbent       [][]float64
	incumbentRegret float64
	lastRegret      float64

	// mpec solves one leader MPEC; tests swap it to inject failures.
	mpec func(ctx context.Context, i int, l *lcp.LCP, x []float64, fix lcp.Fixing) (lcp.Solution, float64, error)
}

// New validates leaders against their games.
//
// Errors: ErrNoLeaders, ErrNilGame, nash.ErrInconsistentCoupling,
// nash.ErrDimensionMismatch.
func New(leaders []Leader, opts ...Option) (*Coordinator, error) {
	layouts, widths, err := validateLeaders(leaders)
	if err != nil {
		return nil, fmt.Errorf("epec.New: %w", err)
	}
	ls := append([]Leader(nil), leaders...)
	for i := range ls {
		if ls[i].Name == "" {
			ls[i].Name = "leader-" + strconv.Itoa(i)
		}
	}

	c := &Coordinator{
		leaders: ls,
		layouts: layouts,
		widths:  widths,
		opts:    gatherOptions(opts),
	}
	c.mpec = c.solveMPEC

	return c, nil
}

func (c *Coordinator) solveMPEC(ctx context.Context, i int, l *lcp.LCP, x []float64, fix lcp.Fixing) (lcp.Solution, float64, error) {
	ld := c.leaders[i]

	return l.SolveMPEC(ctx, ld.Cost, ld.Interaction, x, fix)
}

// Status returns the state of the latest run.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.status
}

// errTerminal carries a terminal status out of a phase.
type errTerminal struct {
	status Status
	cause  error
}

func (e *errTerminal) Error() string { return fmt.Sprintf("%s: %v", e.status, e.cause) }
func (e *errTerminal) Unwrap() error { return e.cause }

// errLeaderFailure marks a recoverable solver failure of one leader.
type errLeaderFailure struct {
	leader int
	cause  error
}

func (e *errLeaderFailure) Error() string {
	return fmt.Sprintf("leader %d: %v", e.leader, e.cause)
}
func (e *errLeaderFailure) Unwrap() error { return e.cause }

// Solve runs the algorithm until a terminal status. Only a cancelled ctx
// or an LCP construction failure is returned as an error; every other
// outcome is a Status in the report. The time limit bounds every phase,
// enumeration included; when it expires the report carries the profile
// with the lowest regret seen so far.
func (c *Coordinator) Solve(ctx context.Context) (*Report, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	c.reset()
	c.log.Info("epec run started",
		"leaders", len(c.leaders), "algorithm", c.opts.algorithm.String(),
		"policy", c.opts.policy.String(), "workers", c.opts.workers)

	if err := c.build(); err != nil {
		return nil, fmt.Errorf("epec.Solve: %w", err)
	}
	runCtx := ctx
	if c.opts.timeLimit > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithDeadline(ctx, start.Add(c.opts.timeLimit))
		defer cancel()
	}
	err := c.initialize(runCtx)
	if err == nil {
		c.status = Iterating
		if c.opts.algorithm == CombinatorialPNE {
			err = c.combinatorial(runCtx, start)
		} else {
			err = c.iterate(runCtx, start)
		}
	}
	// our own deadline, not the caller's
	if err != nil && ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
		err = &errTerminal{status: TimeLimitReached, cause: err}
	}
	var term *errTerminal
	switch {
	case err == nil:
		c.status = EquilibriumFound
	case errors.As(err, &term):
		c.status = term.status
		c.log.Warn("epec run stopped", "status", term.status.String(), "cause", term.cause)
	default:
		return nil, fmt.Errorf("epec.Solve: %w", err)
	}

	c.stats.WallTime = time.Since(start)
	c.opts.metrics.IncStatus(c.status.String())
	rep := c.report()
	c.log.Info("epec run finished",
		"status", c.status.String(), "passes", c.stats.Passes,
		"max_regret", rep.MaxRegret, "wall_time", c.stats.WallTime)

	return rep, nil
}

func (c *Coordinator) reset() {
	c.runID = uuid.New()
	c.log = c.opts.logger.With("run_id", c.runID.String())
	c.status = Initialized
	c.stats = Stats{PolyhedraAdded: make([]int, len(c.leaders))}
	c.states = make([]*leaderState, len(c.leaders))
	c.vertices = nil
	c.rrNext = 0
	c.incumbent = nil
	c.incumbentRegret = math.Inf(1)
	c.lastRegret = math.NaN()
}

// build formulates every leader's LCP once.
func (c *Coordinator) build() error {
	opts := append([]lcp.Option{
		lcp.WithEnv(c.opts.env),
		lcp.WithLogger(c.opts.logger),
		lcp.WithWorkers(c.opts.workers),
	}, c.opts.lcpOpts...)
	for i, ld := range c.leaders {
		base, err := ld.Game.FormulateLCP(opts...)
		if err != nil {
			return fmt.Errorf("leader %d: %w", i, err)
		}
		c.states[i] = &leaderState{base: base, keys: make(map[string]struct{})}
	}

	return nil
}

// others concatenates the leader blocks of every leader but i.
func (c *Coordinator) others(i int, decisions [][]float64) []float64 {
	x := make([]float64, 0, c.widths[i])
	for k, d := range decisions {
		if k == i {
			continue
		}
		if d == nil {
			x = append(x, make([]float64, c.layouts[k].NumLeaderVars)...)
			continue
		}
		x = append(x, c.layouts[k].Leader(d)...)
	}

	return x
}

// shifted returns leader i's LCP with q + D_i·x.
func (c *Coordinator) shifted(i int, x []float64) (*lcp.LCP, error) {
	base := c.states[i].base
	if c.leaders[i].Coupling == nil {
		return base, nil
	}
	q, err := matrix.AXPY(base.Q(), c.leaders[i].Coupling, x)
	if err != nil {
		return nil, err
	}

	return base.WithQ(q)
}

// objective returns (c_i + C_i·x)ᵀz.
func (c *Coordinator) objective(i int, z, x []float64) float64 {
	cost := c.leaders[i].Cost
	if m := c.leaders[i].Interaction; m != nil {
		cost, _ = matrix.AXPY(cost, m, x)
	}
	var f float64
	for j, v := range z {
		f += cost[j] * v
	}

	return f
}

// fullResponse solves leader i's unrestricted best response against x.
func (c *Coordinator) fullResponse(ctx context.Context, i int, x []float64) (lcp.Solution, float64, error) {
	l, err := c.shifted(i, x)
	if err != nil {
		return lcp.Solution{}, 0, err
	}

	return c.mpec(ctx, i, l, x, lcp.Fixing{})
}

// restrictedResponse solves leader i's best response over Π_i.
func (c *Coordinator) restrictedResponse(ctx context.Context, i int, x []float64) (lcp.Solution, float64, bool, error) {
	return c.respondWithin(ctx, i, x, c.states[i].patterns)
}

// respondWithin solves one LP per pattern; the lowest value wins, the first
// pattern wins ties. found is false when every polyhedron is empty at x.
func (c *Coordinator) respondWithin(ctx context.Context, i int, x []float64, patterns []lcp.Pattern) (lcp.Solution, float64, bool, error) {
	l, err := c.shifted(i, x)
	if err != nil {
		return lcp.Solution{}, 0, false, err
	}
	var (
		best    lcp.Solution
		bestVal float64
		found   bool
	)
	for _, p := range patterns {
		fix, err := l.Fixing(p)
		if err != nil {
			return lcp.Solution{}, 0, false, err
		}
		sol, val, err := c.mpec(ctx, i, l, x, fix)
		switch {
		case err == nil:
			if !found || val < bestVal-c.opts.tol*(1+math.Abs(bestVal)) {
				best, bestVal, found = sol, val, true
			}
		case errors.Is(err, lcp.ErrInfeasible):
		default:
			return lcp.Solution{}, 0, false, err
		}
	}

	return best, bestVal, found, nil
}

// classify turns a leader solve error into a terminal status, a
// recoverable failure or a context error.
func (c *Coordinator) classify(ctx context.Context, i int, err error) error {
	switch {
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, lcp.ErrInfeasible), errors.Is(err, lcp.ErrUnbounded):
		return &errTerminal{status: NoEquilibrium, cause: fmt.Errorf("leader %d: %w", i, err)}
	default:
		return &errLeaderFailure{leader: i, cause: err}
	}
}

// forEachLeader runs fn for every leader on at most workers goroutines and
// returns the first error in leader order.
func (c *Coordinator) forEachLeader(ctx context.Context, fn func(ctx context.Context, i int) error) error {
	errs := make([]error, len(c.leaders))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.workers)
	for i := range c.leaders {
		g.Go(func() error {
			errs[i] = fn(gctx, i)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return err
	}

	return firstNonNil(errs)
}

func firstNonNil(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}

	return nil
}

// initialize seeds Π_i with the pattern of the full best response to the
// zero profile, plus every enumerated vertex pattern under FullEnumeration
// or every feasible sign pattern under CombinatorialPNE.
func (c *Coordinator) initialize(ctx context.Context) error {
	zero := make([][]float64, len(c.leaders))
	enumerate := c.opts.enumerate || c.opts.algorithm == FullEnumeration
	verts := make([][][]float64, len(c.leaders))

	err := c.forEachLeader(ctx, func(ctx context.Context, i int) error {
		x := c.others(i, zero)
		sol, val, err := c.fullResponse(ctx, i, x)
		if err != nil {
			return c.classify(ctx, i, err)
		}
		st := c.states[i]
		st.decision, st.value = sol.Z, val
		if p, err := st.base.Encode(sol); err == nil {
			st.addPattern(p.Resolve())
		}
		l, err := c.shifted(i, x)
		if err != nil {
			return err
		}
		if c.opts.algorithm == CombinatorialPNE {
			pats, err := l.EnumeratePatterns(ctx)
			if err != nil {
				return c.classify(ctx, i, err)
			}
			for _, p := range pats {
				st.addPattern(p)
			}
		}
		if !enumerate {
			return nil
		}
		sols, err := l.EnumerateAll(ctx)
		if err != nil {
			return c.classify(ctx, i, err)
		}
		for _, s := range sols {
			verts[i] = append(verts[i], s.Z)
			if c.opts.algorithm != FullEnumeration {
				continue
			}
			if p, err := l.Encode(s); err == nil {
				st.addPattern(p.Resolve())
			}
		}

		return nil
	})
	var fail *errLeaderFailure
	if errors.As(err, &fail) {
		c.stats.SolverErrors++
		return &errTerminal{status: NumericalFailure, cause: err}
	}
	if err != nil {
		return err
	}

	for i, st := range c.states {
		c.stats.PolyhedraAdded[i] += len(st.patterns)
		for range st.patterns {
			c.opts.metrics.IncPolyhedra(c.leaders[i].Name)
		}
	}
	if c.opts.enumerate {
		c.vertices = verts
	}
	c.log.Debug("approximations seeded", "sizes", c.sizes())

	return nil
}

func (c *Coordinator) sizes() []int {
	out := make([]int, len(c.states))
	for i, st := range c.states {
		out[i] = len(st.patterns)
	}

	return out
}

func (c *Coordinator) decisions() [][]float64 {
	out := make([][]float64, len(c.states))
	for i, st := range c.states {
		out[i] = st.decision
	}

	return out
}

// check is the outcome of phase (b) for one leader.
type check struct {
	deviation  lcp.Solution
	value      float64 // f_i at the profile
	best       float64 // v_i*
	regret     float64
	consistent bool
}

// iterate runs passes until a terminal status.
func (c *Coordinator) iterate(ctx context.Context, start time.Time) error {
	n := len(c.leaders)
	for {
		if err := c.guard(ctx, start); err != nil {
			return err
		}
		c.stats.Passes++
		c.opts.metrics.IncPass()

		prev := c.decisions()
		next := make([][]float64, n)
		nextVal := make([]float64, n)
		fallback := make([]lcp.Pattern, n)

		// (a) restricted best responses against the previous profile
		err := c.forEachLeader(ctx, func(ctx context.Context, i int) error {
			x := c.others(i, prev)
			sol, val, found, err := c.restrictedResponse(ctx, i, x)
			if err != nil {
				return c.classify(ctx, i, err)
			}
			if !found {
				sol, val, err = c.fullResponse(ctx, i, x)
				if err != nil {
					return c.classify(ctx, i, err)
				}
				if p, err := c.states[i].base.Encode(sol); err == nil {
					fallback[i] = p.Resolve()
				}
			}
			next[i], nextVal[i] = sol.Z, val

			return nil
		})
		if retry, err := c.recover(err); err != nil {
			return err
		} else if retry {
			continue
		}

		var added int
		for i, st := range c.states {
			st.decision, st.value = next[i], nextVal[i]
			if fallback[i] != nil && st.addPattern(fallback[i]) {
				added++
				c.countAdded(i)
			}
		}

		// (b) consistency against the new profile
		cur := c.decisions()
		checks, err := c.consistency(ctx, cur)
		if retry, err := c.recover(err); err != nil {
			return err
		} else if retry {
			continue
		}

		maxRegret, allConsistent := c.score(cur, checks)
		if allConsistent {
			c.endPass(maxRegret)
			return nil
		}

		// (c) grow the approximations
		for _, i := range c.selectLeaders(checks) {
			p, err := c.states[i].base.Encode(checks[i].deviation)
			if err != nil {
				continue
			}
			if c.states[i].addPattern(p.Resolve()) {
				added++
				c.countAdded(i)
				if c.opts.policy != AllLeaders {
					break
				}
			}
		}
		c.endPass(maxRegret)

		if added == 0 && c.stationary(prev, cur) {
			return &errTerminal{status: NumericalFailure,
				cause: fmt.Errorf("pass %d: no new pattern and the profile did not move", c.stats.Passes)}
		}
	}
}

// guard ends the run before a pass on cancellation, the time limit or
// the pass budget.
func (c *Coordinator) guard(ctx context.Context, start time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.opts.timeLimit > 0 && time.Since(start) >= c.opts.timeLimit {
		return &errTerminal{status: TimeLimitReached, cause: fmt.Errorf("after %d passes", c.stats.Passes)}
	}
	if c.stats.Passes >= c.opts.maxIter {
		return &errTerminal{status: IterationLimitReached, cause: fmt.Errorf("after %d passes", c.stats.Passes)}
	}

	return nil
}

// consistency solves every leader's full best response against cur and
// compares it with the value cur already gives.
func (c *Coordinator) consistency(ctx context.Context, cur [][]float64) ([]check, error) {
	checks := make([]check, len(c.leaders))
	err := c.forEachLeader(ctx, func(ctx context.Context, i int) error {
		x := c.others(i, cur)
		dev, best, err := c.fullResponse(ctx, i, x)
		if err != nil {
			return c.classify(ctx, i, err)
		}
		ck := check{deviation: dev, best: best, value: c.objective(i, cur[i], x)}
		ck.regret = math.Max(0, ck.value-best)
		if !c.feasibleAt(i, cur[i], x) {
			ck.regret = math.Inf(1)
		}
		ck.consistent = !math.IsInf(ck.regret, 1) && ck.value <= best+c.opts.tol*(1+math.Abs(best))
		checks[i] = ck

		return nil
	})

	return checks, err
}

// score records the regret of cur and keeps the incumbent.
func (c *Coordinator) score(cur [][]float64, checks []check) (float64, bool) {
	maxRegret, allConsistent := 0.0, true
	for _, ck := range checks {
		maxRegret = math.Max(maxRegret, ck.regret)
		allConsistent = allConsistent && ck.consistent
	}
	c.lastRegret = maxRegret
	if maxRegret < c.incumbentRegret {
		c.incumbentRegret = maxRegret
		c.incumbent = cloneRows(cur)
	}

	return maxRegret, allConsistent
}

func (c *Coordinator) endPass(maxRegret float64) {
	c.stats.History = append(c.stats.History, c.sizes())
	c.log.Debug("pass done", "pass", c.stats.Passes, "max_regret", maxRegret, "sizes", c.sizes())
}

func (c *Coordinator) countAdded(i int) {
	c.stats.PolyhedraAdded[i]++
	c.opts.metrics.IncPolyhedra(c.leaders[i].Name)
}

// recover applies the recovery strategy to a phase error. It returns
// retry=true when the pass should be repeated.
func (c *Coordinator) recover(err error) (bool, error) {
	if err == nil {
		return false, nil
	}
	var fail *errLeaderFailure
	if !errors.As(err, &fail) {
		return false, err
	}
	c.stats.SolverErrors++
	c.log.Warn("leader solve failed", "leader", c.leaders[fail.leader].Name, "err", fail.cause)
	if c.opts.recovery == Abort || c.stats.Recoveries >= c.opts.retryBudget {
		return false, &errTerminal{status: NumericalFailure, cause: err}
	}
	c.stats.Recoveries++
	popped := c.states[fail.leader].popPattern()
	c.log.Info("recovering", "leader", c.leaders[fail.leader].Name,
		"discarded_pattern", popped, "recoveries", c.stats.Recoveries)
	c.stats.History = append(c.stats.History, c.sizes())

	return true, nil
}

// selectLeaders orders the inconsistent leaders by policy. Phase (c) takes
// the first one whose deviation pattern is new, or all of them.
func (c *Coordinator) selectLeaders(checks []check) []int {
	var bad []int
	for i, ck := range checks {
		if !ck.consistent {
			bad = append(bad, i)
		}
	}
	switch c.opts.policy {
	case MostViolatedFirst:
		sort.SliceStable(bad, func(a, b int) bool { return checks[bad[a]].regret > checks[bad[b]].regret })
	case RoundRobin:
		n := len(c.leaders)
		sort.SliceStable(bad, func(a, b int) bool {
			return (bad[a]-c.rrNext+n)%n < (bad[b]-c.rrNext+n)%n
		})
		if len(bad) > 0 {
			c.rrNext = (bad[0] + 1) % n
		}
	}

	return bad
}

// feasibleAt reports whether z is a complementary solution of leader i's
// LCP shifted by x.
func (c *Coordinator) feasibleAt(i int, z, x []float64) bool {
	l, err := c.shifted(i, x)
	if err != nil {
		return false
	}
	w, err := l.W(z)
	if err != nil {
		return false
	}
	ok, _ := l.ErrorCheck(lcp.Solution{Z: z, W: w})

	return ok
}

func (c *Coordinator) stationary(prev, cur [][]float64) bool {
	for i := range cur {
		if !c.near(prev[i], cur[i]) {
			return false
		}
	}

	return true
}

// near compares two decisions entrywise within tol.
func (c *Coordinator) near(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for j := range a {
		if math.Abs(a[j]-b[j]) > c.opts.tol {
			return false
		}
	}

	return true
}

func cloneRows(rows [][]float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, r := range rows {
		out[i] = append([]float64(nil), r...)
	}

	return out
}

// report assembles the outcome of the run.
func (c *Coordinator) report() *Report {
	rep := &Report{
		RunID:     c.runID.String(),
		Status:    c.status,
		MaxRegret: math.NaN(),
		Vertices:  c.vertices,
		Stats:     c.stats,
	}
	for _, ld := range c.leaders {
		rep.Names = append(rep.Names, ld.Name)
	}
	profile := c.decisions()
	if c.status == TimeLimitReached && c.incumbent != nil {
		profile = c.incumbent
		rep.MaxRegret = c.incumbentRegret
	} else {
		rep.MaxRegret = c.lastRegret
	}
	for _, d := range profile {
		if d == nil {
			return rep
		}
	}
	rep.Decisions = cloneRows(profile)
	rep.LeaderVars = make([][]float64, len(profile))
	rep.Values = make([]float64, len(profile))
	for i, d := range profile {
		rep.LeaderVars[i] = c.layouts[i].Leader(d)
		rep.Values[i] = c.objective(i, d, c.others(i, profile))
	}

	return rep
}
