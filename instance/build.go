// SPDX-License-Identifier: MIT

package instance

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/katalvlaran/epec/epec"
	"github.com/katalvlaran/epec/lcp"
	"github.com/katalvlaran/epec/matrix"
	"github.com/katalvlaran/epec/nash"
	"github.com/katalvlaran/epec/qp"
)

// denseOr builds a matrix from rows, or a zero r×c block when rows is empty.
func denseOr(rows [][]float64, r, c int) (*matrix.Dense, error) {
	if len(rows) == 0 {
		return matrix.Zeros(r, c), nil
	}

	return matrix.NewDenseFrom(rows)
}

// Build turns f into coordinator leaders. logger may be nil.
func Build(f *File, logger *slog.Logger) ([]epec.Leader, error) {
	leaders := make([]epec.Leader, 0, len(f.Leaders))
	for i, l := range f.Leaders {
		ld, err := buildLeader(l, logger)
		if err != nil {
			return nil, fmt.Errorf("%w: leader %d (%s): %v", ErrInvalid, i, l.Name, err)
		}
		leaders = append(leaders, ld)
	}

	return leaders, nil
}

func buildLeader(l Leader, logger *slog.Logger) (epec.Leader, error) {
	nMC := 0
	if l.MarketClearing != nil {
		nMC = len(l.MarketClearing.A)
	}
	totalPrimals := 0
	for _, fw := range l.Followers {
		totalPrimals += len(fw.Linear)
	}

	players := make([]*qp.Program, len(l.Followers))
	for j, fw := range l.Followers {
		ny, m := len(fw.Linear), len(fw.RHS)
		nx := totalPrimals - ny + nMC + l.LeaderVars
		var mats [4]*matrix.Dense
		for k, blk := range []struct {
			rows [][]float64
			r, c int
		}{{fw.Q, ny, ny}, {fw.C, ny, nx}, {fw.A, m, nx}, {fw.B, m, ny}} {
			d, err := denseOr(blk.rows, blk.r, blk.c)
			if err != nil {
				return epec.Leader{}, fmt.Errorf("follower %d %s: %w", j, "QCAB"[k:k+1], err)
			}
			mats[k] = d
		}
		p := qp.New()
		if err := p.Set(mats[0], mats[1], mats[2], mats[3], fw.Linear, fw.RHS); err != nil {
			return epec.Leader{}, fmt.Errorf("follower %d: %w", j, err)
		}
		players[j] = p
	}

	opts := []nash.Option{nash.WithLeaderVars(l.LeaderVars), nash.WithLogger(logger)}
	if c := l.MarketClearing; c != nil {
		a, err := matrix.NewDenseFrom(c.A)
		if err != nil {
			return epec.Leader{}, fmt.Errorf("market clearing: %w", err)
		}
		opts = append(opts, nash.WithMarketClearing(a, c.RHS))
	}
	if c := l.LeaderConstraints; c != nil {
		a, err := matrix.NewDenseFrom(c.A)
		if err != nil {
			return epec.Leader{}, fmt.Errorf("leader constraints: %w", err)
		}
		opts = append(opts, nash.WithLeaderConstraints(a, c.RHS))
	}
	g, err := nash.New(players, opts...)
	if err != nil {
		return epec.Leader{}, err
	}

	ld := epec.Leader{Name: l.Name, Game: g, Cost: l.Cost}
	if len(l.Interaction) > 0 {
		if ld.Interaction, err = matrix.NewDenseFrom(l.Interaction); err != nil {
			return epec.Leader{}, fmt.Errorf("interaction: %w", err)
		}
	}
	if len(l.Coupling) > 0 {
		if ld.Coupling, err = matrix.NewDenseFrom(l.Coupling); err != nil {
			return epec.Leader{}, fmt.Errorf("coupling: %w", err)
		}
	}

	return ld, nil
}

// Options translates the solver settings. Validation already guaranteed
// the enumerations and the duration parse.
func (s Settings) Options() ([]epec.Option, error) {
	var opts []epec.Option
	if s.Algorithm != "" {
		a, err := epec.ParseAlgorithm(s.Algorithm)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		opts = append(opts, epec.WithAlgorithm(a))
	}
	if s.Policy != "" {
		p, err := epec.ParseAddPolicy(s.Policy)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		opts = append(opts, epec.WithAddPolicy(p))
	}
	if s.Recovery != "" {
		r, err := epec.ParseRecovery(s.Recovery)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		opts = append(opts, epec.WithRecovery(r))
	}
	if s.RetryBudget != nil {
		opts = append(opts, epec.WithRetryBudget(*s.RetryBudget))
	}
	if s.Workers > 0 {
		opts = append(opts, epec.WithWorkers(s.Workers))
	}
	if s.TimeLimit != "" {
		d, err := time.ParseDuration(s.TimeLimit)
		if err != nil {
			return nil, fmt.Errorf("%w: time_limit: %v", ErrInvalid, err)
		}
		opts = append(opts, epec.WithTimeLimit(d))
	}
	if s.MaxIterations > 0 {
		opts = append(opts, epec.WithMaxIterations(s.MaxIterations))
	}
	if s.Tolerance > 0 {
		opts = append(opts, epec.WithTolerance(s.Tolerance))
	}
	if s.Enumerate {
		opts = append(opts, epec.WithEnumeration(true))
	}
	if lcpOpts := s.LCPOptions(); len(lcpOpts) > 0 {
		opts = append(opts, epec.WithLCPOptions(lcpOpts...))
	}

	return opts, nil
}

// LCPOptions returns the complementarity tolerances set in s.
func (s Settings) LCPOptions() []lcp.Option {
	var opts []lcp.Option
	if s.Eps > 0 {
		opts = append(opts, lcp.WithEps(s.Eps))
	}
	if s.BigM > 0 {
		opts = append(opts, lcp.WithBigM(s.BigM))
	}

	return opts
}
