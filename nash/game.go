// SPDX-License-Identifier: MIT

package nash

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/katalvlaran/epec/lcp"
	"github.com/katalvlaran/epec/matrix"
	"github.com/katalvlaran/epec/qp"
)

// Game is a set of followers playing Nash against each other, parametrized
// by leader variables. Safe for concurrent use.
type Game struct {
	mu      sync.RWMutex
	players []*qp.Program
	opts    Options
}

// New builds a game over players.
//
// Errors: ErrNoPlayers, ErrInconsistentCoupling, ErrDimensionMismatch.
func New(players []*qp.Program, opts ...Option) (*Game, error) {
	if len(players) == 0 {
		return nil, fmt.Errorf("nash.New: %w", ErrNoPlayers)
	}
	for j, p := range players {
		if p == nil {
			return nil, fmt.Errorf("nash.New: player %d is nil: %w", j, ErrNoPlayers)
		}
	}
	g := &Game{
		players: append([]*qp.Program(nil), players...),
		opts:    gatherOptions(opts),
	}
	if _, err := g.validate(g.opts); err != nil {
		return nil, fmt.Errorf("nash.New: %w", err)
	}

	return g, nil
}

// NumPlayers returns the follower count.
func (g *Game) NumPlayers() int { return len(g.players) }

// Player returns follower j's program.
func (g *Game) Player(j int) *qp.Program { return g.players[j] }

// SetPositions declares nLeaderVars leader-controlled columns and
// revalidates the coupling. On error the game is unchanged.
func (g *Game) SetPositions(nLeaderVars int) error {
	if nLeaderVars < 0 {
		return fmt.Errorf("nash.SetPositions: %d: %w", nLeaderVars, ErrDimensionMismatch)
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	next := g.opts
	next.nLead = nLeaderVars
	if _, err := g.validate(next); err != nil {
		return fmt.Errorf("nash.SetPositions: %w", err)
	}
	g.opts = next

	return nil
}

// Layout returns the current block positions.
func (g *Game) Layout() Layout {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return computeLayout(g.players, g.numMC(g.opts), g.opts.nLead)
}

func (g *Game) numMC(o Options) int {
	if o.mcA == nil {
		return 0
	}

	return o.mcA.Rows()
}

// validate checks every player's parameter dimension and the shared
// constraint shapes against the layout implied by o.
func (g *Game) validate(o Options) (Layout, error) {
	lay := computeLayout(g.players, g.numMC(o), o.nLead)
	for j, p := range g.players {
		if _, nx, _ := p.Size(); nx != lay.ParamLen[j] {
			return Layout{}, fmt.Errorf("player %d has %d parameters, layout needs %d: %w",
				j, nx, lay.ParamLen[j], ErrInconsistentCoupling)
		}
	}
	for _, sc := range []struct {
		name string
		a    *matrix.Dense
		b    []float64
	}{
		{"market clearing", o.mcA, o.mcB},
		{"leader constraints", o.leadA, o.leadB},
	} {
		if sc.a == nil {
			if len(sc.b) > 0 {
				return Layout{}, fmt.Errorf("%s: rhs without matrix: %w", sc.name, ErrDimensionMismatch)
			}
			continue
		}
		if sc.a.Cols() != lay.sharedWidth() {
			return Layout{}, fmt.Errorf("%s has %d columns, want %d: %w",
				sc.name, sc.a.Cols(), lay.sharedWidth(), ErrInconsistentCoupling)
		}
		if sc.a.Rows() != len(sc.b) {
			return Layout{}, fmt.Errorf("%s: %d rows, len(b)=%d: %w",
				sc.name, sc.a.Rows(), len(sc.b), ErrDimensionMismatch)
		}
		if err := matrix.ValidateFinite(sc.b); err != nil {
			return Layout{}, fmt.Errorf("%s: %w: %v", sc.name, ErrDimensionMismatch, err)
		}
	}

	return lay, nil
}

// addAt accumulates v into m[r, c].
func addAt(m *matrix.Dense, r, c int, v float64) {
	if v == 0 {
		return
	}
	old, _ := m.At(r, c)
	_ = m.Set(r, c, old+v)
}

// FormulateLCP assembles the joint KKT-LCP. Market-clearing ≤ rows and
// leader constraints are passed as cuts ahead of opts.
//
// Errors: ErrInconsistentCoupling, ErrDimensionMismatch (programs changed
// shape since construction), lcp.New errors.
func (g *Game) FormulateLCP(opts ...lcp.Option) (*lcp.LCP, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	lay, err := g.validate(g.opts)
	if err != nil {
		return nil, fmt.Errorf("nash.FormulateLCP: %w", err)
	}
	M := matrix.Zeros(lay.NumEq, lay.NumVar)
	q := make([]float64, lay.NumEq)

	for j, p := range g.players {
		Mj, Nj, qj := p.KKT()
		ny := lay.PrimalLen[j]
		row := func(li int) int {
			if li < ny {
				return lay.PrimalPos[j] + li
			}
			return lay.FeasRow[j] + li - ny
		}
		col := func(lk int) int {
			if lk < ny {
				return lay.PrimalPos[j] + lk
			}
			return lay.DualPos[j] + lk - ny
		}
		for li := 0; li < len(qj); li++ {
			r := row(li)
			for lk, v := range Mj.RowView(li) {
				addAt(M, r, col(lk), v)
			}
			for k, v := range Nj.RowView(li) {
				addAt(M, r, lay.ParamColumn(j, k), v)
			}
			q[r] = qj[li]
		}
	}

	nCuts := 0
	if g.opts.leadA != nil {
		nCuts += g.opts.leadA.Rows()
	}
	nCuts += lay.NumMC
	cutA := matrix.Zeros(nCuts, lay.NumVar)
	cutB := make([]float64, 0, nCuts)
	cr := 0
	if a := g.opts.leadA; a != nil {
		for r := 0; r < a.Rows(); r++ {
			for c, v := range a.RowView(r) {
				addAt(cutA, cr, lay.sharedColumn(c), v)
			}
			cutB = append(cutB, g.opts.leadB[r])
			cr++
		}
	}
	for k := 0; k < lay.NumMC; k++ {
		r := lay.MCPos + k
		for c, v := range g.opts.mcA.RowView(k) {
			addAt(M, r, lay.sharedColumn(c), v)
			addAt(cutA, cr, lay.sharedColumn(c), v)
		}
		q[r] = -g.opts.mcB[k]
		cutB = append(cutB, g.opts.mcB[k])
		cr++
	}

	pairs := make([]lcp.Pair, lay.NumEq)
	for r := range pairs {
		c := r
		if r >= lay.TotalPrimals+lay.NumMC {
			c += lay.NumLeaderVars
		}
		pairs[r] = lcp.Pair{Eq: r, Var: c}
	}

	all := make([]lcp.Option, 0, len(opts)+1)
	if nCuts > 0 {
		all = append(all, lcp.WithCuts(cutA, cutB))
	}
	all = append(all, opts...)
	l, err := lcp.New(M, q, pairs, all...)
	if err != nil {
		return nil, fmt.Errorf("nash.FormulateLCP: %w", err)
	}
	g.opts.logger.Debug("joint lcp formulated",
		"players", len(g.players), "rows", lay.NumEq, "cols", lay.NumVar,
		"leader_vars", lay.NumLeaderVars, "cuts", nCuts)

	return l, nil
}

// Respond returns follower j's best response to the other columns of z,
// a full column vector of the joint LCP.
func (g *Game) Respond(ctx context.Context, j int, z []float64, opts ...lcp.Option) ([]float64, error) {
	lay := g.Layout()
	if j < 0 || j >= len(g.players) {
		return nil, fmt.Errorf("nash.Respond: %d: %w", j, ErrPlayerOutOfRange)
	}
	if len(z) != lay.NumVar {
		return nil, fmt.Errorf("nash.Respond: len(z)=%d, want %d: %w", len(z), lay.NumVar, ErrDimensionMismatch)
	}
	l, err := g.players[j].SolveFixed(lay.Params(j, z), opts...)
	if err != nil {
		return nil, fmt.Errorf("nash.Respond: %w", err)
	}
	sol, err := l.SolveAsMIP(ctx, lcp.Fixing{})
	if err != nil {
		return nil, fmt.Errorf("nash.Respond: player %d: %w", j, err)
	}

	return sol.Z[:lay.PrimalLen[j]], nil
}

// IsSolved reports whether every follower's block of z is feasible and
// within tol·(1+|f*|) of its best-response value f*.
func (g *Game) IsSolved(ctx context.Context, z []float64, tol float64, opts ...lcp.Option) (bool, error) {
	lay := g.Layout()
	if len(z) != lay.NumVar {
		return false, fmt.Errorf("nash.IsSolved: len(z)=%d, want %d: %w", len(z), lay.NumVar, ErrDimensionMismatch)
	}
	for j, p := range g.players {
		x := lay.Params(j, z)
		y := lay.Primal(j, z)
		if !p.Feasible(y, x, tol) {
			g.opts.logger.Debug("follower infeasible", "player", j)
			return false, nil
		}
		best, err := g.Respond(ctx, j, z, opts...)
		if err != nil {
			return false, fmt.Errorf("nash.IsSolved: %w", err)
		}
		cur, _ := p.Objective(y, x)
		opt, _ := p.Objective(best, x)
		if cur > opt+tol*(1+math.Abs(opt)) {
			g.opts.logger.Debug("follower can improve", "player", j, "value", cur, "best", opt)
			return false, nil
		}
	}

	return true, nil
}
