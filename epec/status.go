// SPDX-License-Identifier: MIT

package epec

import "fmt"

// Status is the coordinator state. It only moves forward:
// Initialized → Iterating → one terminal value.
type Status uint8

const (
	Initialized Status = iota
	Iterating
	EquilibriumFound
	NoEquilibrium
	TimeLimitReached
	NumericalFailure
	IterationLimitReached
)

var statusNames = [...]string{
	Initialized:           "Initialized",
	Iterating:             "Iterating",
	EquilibriumFound:      "EquilibriumFound",
	NoEquilibrium:         "NoEquilibrium",
	TimeLimitReached:      "TimeLimitReached",
	NumericalFailure:      "NumericalFailure",
	IterationLimitReached: "IterationLimitReached",
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}

	return fmt.Sprintf("Status(%d)", uint8(s))
}

// Terminal reports whether s ends a run.
func (s Status) Terminal() bool { return s >= EquilibriumFound && int(s) < len(statusNames) }

// AddPolicy selects which inconsistent leaders get a new pattern in a pass.
type AddPolicy uint8

const (
	// MostViolatedFirst adds for the leader with the largest regret.
	MostViolatedFirst AddPolicy = iota
	// RoundRobin adds for the next inconsistent leader after the last one served.
	RoundRobin
	// AllLeaders adds for every inconsistent leader.
	AllLeaders
)

func (p AddPolicy) String() string {
	switch p {
	case MostViolatedFirst:
		return "most-violated-first"
	case RoundRobin:
		return "round-robin"
	case AllLeaders:
		return "all-leaders"
	default:
		return fmt.Sprintf("AddPolicy(%d)", uint8(p))
	}
}

// ParseAddPolicy is the inverse of AddPolicy.String.
func ParseAddPolicy(s string) (AddPolicy, error) {
	for _, p := range []AddPolicy{MostViolatedFirst, RoundRobin, AllLeaders} {
		if p.String() == s {
			return p, nil
		}
	}

	return 0, fmt.Errorf("epec: unknown add policy %q", s)
}

// Recovery selects the reaction to a leader solve failure.
type Recovery uint8

const (
	// DiscardLastAndRetry pops the failing leader's newest pattern and
	// repeats the pass, within the retry budget.
	DiscardLastAndRetry Recovery = iota
	// Abort ends the run with NumericalFailure.
	Abort
)

func (r Recovery) String() string {
	switch r {
	case DiscardLastAndRetry:
		return "discard-last-and-retry"
	case Abort:
		return "abort"
	default:
		return fmt.Sprintf("Recovery(%d)", uint8(r))
	}
}

// ParseRecovery is the inverse of Recovery.String.
func ParseRecovery(s string) (Recovery, error) {
	for _, r := range []Recovery{DiscardLastAndRetry, Abort} {
		if r.String() == s {
			return r, nil
		}
	}

	return 0, fmt.Errorf("epec: unknown recovery %q", s)
}

// Algorithm selects how the approximations are seeded.
type Algorithm uint8

const (
	// InnerApproximation seeds Π_i with one pattern and grows it.
	InnerApproximation Algorithm = iota
	// FullEnumeration seeds Π_i with every enumerated vertex pattern.
	FullEnumeration
	// CombinatorialPNE seeds Π_i with every feasible sign pattern, fixes
	// one pattern per leader at a time and searches each combination for a
	// pure equilibrium.
	CombinatorialPNE
)

func (a Algorithm) String() string {
	switch a {
	case InnerApproximation:
		return "inner-approximation"
	case FullEnumeration:
		return "full-enumeration"
	case CombinatorialPNE:
		return "combinatorial-pne"
	default:
		return fmt.Sprintf("Algorithm(%d)", uint8(a))
	}
}

// ParseAlgorithm is the inverse of Algorithm.String.
func ParseAlgorithm(s string) (Algorithm, error) {
	for _, a := range []Algorithm{InnerApproximation, FullEnumeration, CombinatorialPNE} {
		if a.String() == s {
			return a, nil
		}
	}

	return 0, fmt.Errorf("epec: unknown algorithm %q", s)
}
