// SPDX-License-Identifier: MIT

package nash

import "github.com/katalvlaran/epec/qp"

// Layout gives the position of every block of the joint LCP.
type Layout struct {
	PrimalPos []int // first primal column of each player
	PrimalLen []int
	DualPos   []int // first constraint-dual column of each player
	DualLen   []int
	FeasRow   []int // first primal feasibility row of each player
	ParamLen  []int // required parameter dimension of each player

	TotalPrimals  int
	MCPos         int
	NumMC         int
	LeaderPos     int
	NumLeaderVars int

	NumEq  int
	NumVar int
}

func computeLayout(players []*qp.Program, nMC, nLead int) Layout {
	n := len(players)
	lay := Layout{
		PrimalPos:     make([]int, n),
		PrimalLen:     make([]int, n),
		DualPos:       make([]int, n),
		DualLen:       make([]int, n),
		FeasRow:       make([]int, n),
		ParamLen:      make([]int, n),
		NumMC:         nMC,
		NumLeaderVars: nLead,
	}
	var totalDuals int
	for j, p := range players {
		ny, _, m := p.Size()
		lay.PrimalPos[j] = lay.TotalPrimals
		lay.PrimalLen[j] = ny
		lay.DualLen[j] = m
		lay.TotalPrimals += ny
		totalDuals += m
	}
	lay.MCPos = lay.TotalPrimals
	lay.LeaderPos = lay.MCPos + nMC
	dualBase := lay.LeaderPos + nLead
	rowBase := lay.TotalPrimals + nMC
	var off int
	for j := range players {
		lay.DualPos[j] = dualBase + off
		lay.FeasRow[j] = rowBase + off
		lay.ParamLen[j] = lay.TotalPrimals - lay.PrimalLen[j] + nMC + nLead
		off += lay.DualLen[j]
	}
	lay.NumEq = lay.TotalPrimals + nMC + totalDuals
	lay.NumVar = lay.NumEq + nLead

	return lay
}

// ParamColumn maps parameter p of player j to its global column.
func (l Layout) ParamColumn(j, p int) int {
	if p < l.PrimalPos[j] {
		return p
	}

	return p + l.PrimalLen[j]
}

// Params extracts player j's parameter vector from a full column vector.
func (l Layout) Params(j int, z []float64) []float64 {
	x := make([]float64, l.ParamLen[j])
	for p := range x {
		x[p] = z[l.ParamColumn(j, p)]
	}

	return x
}

// Primal returns a copy of player j's primal block of z.
func (l Layout) Primal(j int, z []float64) []float64 {
	return append([]float64(nil), z[l.PrimalPos[j]:l.PrimalPos[j]+l.PrimalLen[j]]...)
}

// Leader returns a copy of the leader block of z.
func (l Layout) Leader(z []float64) []float64 {
	return append([]float64(nil), z[l.LeaderPos:l.LeaderPos+l.NumLeaderVars]...)
}

// sharedColumn maps a column of a shared constraint matrix
// ([primals | leader vars]) to its global column.
func (l Layout) sharedColumn(c int) int {
	if c < l.TotalPrimals {
		return c
	}

	return c + l.NumMC
}

// sharedWidth is the column count of shared constraint matrices.
func (l Layout) sharedWidth() int { return l.TotalPrimals + l.NumLeaderVars }
