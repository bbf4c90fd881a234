// SPDX-License-Identifier: MIT

package epec

import "time"

// Stats are the counters of one run.
type Stats struct {
	Passes         int
	PolyhedraAdded []int   // per leader, seeding included
	History        [][]int // |Π_i| per leader after each pass
	Recoveries     int
	SolverErrors   int
	WallTime       time.Duration
}

// Report is the outcome of Solve.
type Report struct {
	RunID  string
	Status Status
	Names  []string // leader names, in leader order

	// Decisions holds each leader's full LCP column vector; LeaderVars the
	// leader-variable block of it. Both are nil when no profile exists.
	Decisions  [][]float64
	LeaderVars [][]float64

	// Values are the leader objectives at the reported profile, MaxRegret
	// the largest gap to an unrestricted best response (NaN if unchecked).
	Values    []float64
	MaxRegret float64

	// Vertices lists the enumerated LCP solutions (z) per leader at the zero
	// profile, when enumeration was requested.
	Vertices [][][]float64

	Stats Stats
}
