// SPDX-License-Identifier: MIT

package lcp

import (
	"fmt"
	"math"
	"strings"
)

// Pattern sign values, one per pair.
const (
	// SideEq: the row slack w_i is zero.
	SideEq int8 = 1
	// SideVar: the column z_j is zero.
	SideVar int8 = -1
	// SideBoth: both are zero (degenerate).
	SideBoth int8 = 0
)

// Pattern is a complementarity sign pattern indexed like Pairs().
// Each pattern selects one polyhedron of the LCP feasible set.
type Pattern []int8

// Key returns a compact string usable as a map key.
func (p Pattern) Key() string {
	var sb strings.Builder
	sb.Grow(len(p))
	for _, s := range p {
		switch s {
		case SideEq:
			sb.WriteByte('+')
		case SideVar:
			sb.WriteByte('-')
		default:
			sb.WriteByte('0')
		}
	}

	return sb.String()
}

// Equal reports whether p and o are the same pattern.
func (p Pattern) Equal(o Pattern) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}

	return true
}

// Encode returns the sign pattern of sol: SideEq where w is zero, SideVar
// where z is zero, SideBoth where both are (within eps).
func (l *LCP) Encode(sol Solution) (Pattern, error) {
	if len(sol.Z) != l.NumVar() || len(sol.W) != l.NumEq() {
		return nil, fmt.Errorf("lcp.Encode: %w", ErrDimensionMismatch)
	}
	eps := l.opts.eps
	pat := make(Pattern, len(l.pairs))
	for k, pr := range l.pairs {
		wz := math.Abs(sol.W[pr.Eq]) <= eps
		zz := math.Abs(sol.Z[pr.Var]) <= eps
		switch {
		case wz && zz:
			pat[k] = SideBoth
		case wz:
			pat[k] = SideEq
		case zz:
			pat[k] = SideVar
		default:
			return nil, fmt.Errorf("lcp.Encode: pair %d w=%g z=%g: %w",
				k, sol.W[pr.Eq], sol.Z[pr.Var], ErrNotComplementary)
		}
	}

	return pat, nil
}

// Fixing translates p into a Fixing. SideBoth is resolved to the row side.
func (l *LCP) Fixing(p Pattern) (Fixing, error) {
	if len(p) > len(l.pairs) {
		return Fixing{}, fmt.Errorf("lcp.Fixing: pattern length %d > %d pairs: %w",
			len(p), len(l.pairs), ErrDimensionMismatch)
	}
	var fix Fixing
	for k, s := range p {
		if s == SideVar {
			fix.Vars = append(fix.Vars, l.pairs[k].Var)
		} else {
			fix.Eqs = append(fix.Eqs, l.pairs[k].Eq)
		}
	}

	return fix, nil
}

// Resolve returns a copy of p with SideBoth replaced by SideEq.
func (p Pattern) Resolve() Pattern {
	out := make(Pattern, len(p))
	for i, s := range p {
		if s == SideBoth {
			s = SideEq
		}
		out[i] = s
	}

	return out
}
