// SPDX-License-Identifier: MIT

package epec

import (
	"fmt"

	"github.com/katalvlaran/epec/lcp"
	"github.com/katalvlaran/epec/matrix"
	"github.com/katalvlaran/epec/nash"
)

// Leader is one upper-level player.
//
// Cost has one entry per column of the game's joint LCP. Interaction (C_i)
// is NumVar × W and Coupling (D_i) is NumEq × W, where W is the total
// leader-variable count of the other leaders. Both may be nil.
type Leader struct {
	Name        string
	Game        *nash.Game
	Cost        []float64
	Interaction *matrix.Dense
	Coupling    *matrix.Dense
}

// leaderState is the mutable per-run state of one leader.
type leaderState struct {
	base     *lcp.LCP
	patterns []lcp.Pattern
	keys     map[string]struct{}
	decision []float64
	value    float64
}

// addPattern appends p to Π_i unless present and reports whether it did.
func (s *leaderState) addPattern(p lcp.Pattern) bool {
	k := p.Key()
	if _, ok := s.keys[k]; ok {
		return false
	}
	s.keys[k] = struct{}{}
	s.patterns = append(s.patterns, p)

	return true
}

// popPattern removes the newest pattern while at least one remains.
func (s *leaderState) popPattern() bool {
	if len(s.patterns) <= 1 {
		return false
	}
	last := s.patterns[len(s.patterns)-1]
	delete(s.keys, last.Key())
	s.patterns = s.patterns[:len(s.patterns)-1]

	return true
}

// validateLeaders checks every leader against its game layout and returns
// the layouts and the width of each x_{-i}.
func validateLeaders(leaders []Leader) ([]nash.Layout, []int, error) {
	if len(leaders) == 0 {
		return nil, nil, ErrNoLeaders
	}
	layouts := make([]nash.Layout, len(leaders))
	var total int
	for i, ld := range leaders {
		if ld.Game == nil {
			return nil, nil, fmt.Errorf("leader %d: %w", i, ErrNilGame)
		}
		layouts[i] = ld.Game.Layout()
		total += layouts[i].NumLeaderVars
	}
	widths := make([]int, len(leaders))
	for i, ld := range leaders {
		lay := layouts[i]
		widths[i] = total - lay.NumLeaderVars
		if len(ld.Cost) != lay.NumVar {
			return nil, nil, fmt.Errorf("leader %d: len(cost)=%d, want %d: %w",
				i, len(ld.Cost), lay.NumVar, nash.ErrInconsistentCoupling)
		}
		if err := matrix.ValidateFinite(ld.Cost); err != nil {
			return nil, nil, fmt.Errorf("leader %d: cost: %w: %v", i, nash.ErrDimensionMismatch, err)
		}
		if m := ld.Interaction; m != nil && (m.Rows() != lay.NumVar || m.Cols() != widths[i]) {
			return nil, nil, fmt.Errorf("leader %d: interaction %dx%d, want %dx%d: %w",
				i, m.Rows(), m.Cols(), lay.NumVar, widths[i], nash.ErrInconsistentCoupling)
		}
		if m := ld.Coupling; m != nil && (m.Rows() != lay.NumEq || m.Cols() != widths[i]) {
			return nil, nil, fmt.Errorf("leader %d: coupling %dx%d, want %dx%d: %w",
				i, m.Rows(), m.Cols(), lay.NumEq, widths[i], nash.ErrInconsistentCoupling)
		}
	}

	return layouts, widths, nil
}
