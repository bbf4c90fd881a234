// SPDX-License-Identifier: MIT

package lcp

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/bits"

	"golang.org/x/sync/errgroup"
)

// enumNode is one pending partial fixing. The pattern of a node is read
// by walking parent links; node at depth d fixes pair d-1 to side.
type enumNode struct {
	parent int32
	depth  int32
	side   int8
}

// subtreeResult is the write-once output slot of one subtree. pats[k] is
// the leaf pattern sols[k] was solved under.
type subtreeResult struct {
	sols     []Solution
	pats     []Pattern
	failures int
}

// EnumerateAll returns every distinct complementary solution reachable by
// fixing one side of each pair, one per feasible sign pattern, deduplicated
// within eps. Inner nodes cost one LP and are pruned when their linear
// feasible set is empty; leaves are solved with full fixing.
//
// With more than one worker the subtrees rooted at depth ⌈log₂ workers⌉
// run concurrently; the output order does not depend on the worker count.
//
// Errors: ErrSolver when no solution was found and some leaves failed,
// ctx errors.
func (l *LCP) EnumerateAll(ctx context.Context) ([]Solution, error) {
	results, err := l.enumerate(ctx)
	if err != nil {
		return nil, fmt.Errorf("lcp.EnumerateAll: %w", err)
	}

	var (
		out      []Solution
		failures int
	)
	for _, r := range results {
		failures += r.failures
		for _, s := range r.sols {
			if !l.containsSolution(out, s) {
				out = append(out, s)
			}
		}
	}
	l.opts.logger.Debug("lcp enumeration done",
		"pairs", l.NumEq(), "subtrees", len(results), "solutions", len(out), "failures", failures)
	if len(out) == 0 && failures > 0 {
		return nil, fmt.Errorf("lcp.EnumerateAll: %d leaves failed: %w", failures, ErrSolver)
	}

	return out, nil
}

// EnumeratePatterns returns the full sign pattern of every leaf of the
// EnumerateAll search that has a complementary solution, in search order.
// Unlike the solutions, patterns are not deduplicated by point: two
// polyhedra meeting at a degenerate vertex are both reported.
//
// Errors: as EnumerateAll.
func (l *LCP) EnumeratePatterns(ctx context.Context) ([]Pattern, error) {
	results, err := l.enumerate(ctx)
	if err != nil {
		return nil, fmt.Errorf("lcp.EnumeratePatterns: %w", err)
	}
	var (
		out      []Pattern
		failures int
	)
	for _, r := range results {
		failures += r.failures
		out = append(out, r.pats...)
	}
	if len(out) == 0 && failures > 0 {
		return nil, fmt.Errorf("lcp.EnumeratePatterns: %d leaves failed: %w", failures, ErrSolver)
	}

	return out, nil
}

// enumerate runs the search and returns the per-subtree results in
// subtree order.
func (l *LCP) enumerate(ctx context.Context) ([]subtreeResult, error) {
	nEq := l.NumEq()
	d0 := 0
	if w := l.opts.workers; w > 1 {
		d0 = bits.Len(uint(w - 1))
	}
	d0 = min(d0, nEq)

	prefixes := make([]Pattern, 1<<d0)
	for i := range prefixes {
		p := make(Pattern, d0)
		for b := 0; b < d0; b++ {
			p[b] = SideEq
			if i&(1<<(d0-1-b)) != 0 {
				p[b] = SideVar
			}
		}
		prefixes[i] = p
	}

	results := make([]subtreeResult, len(prefixes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.opts.workers)
	for i, p := range prefixes {
		g.Go(func() error {
			var err error
			results[i], err = l.enumerateFrom(gctx, p)

			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// enumerateFrom runs the depth-first search below prefix on an explicit stack.
func (l *LCP) enumerateFrom(ctx context.Context, prefix Pattern) (subtreeResult, error) {
	nEq := l.NumEq()
	pat := make(Pattern, nEq)
	copy(pat, prefix)

	arena := []enumNode{{parent: -1, depth: int32(len(prefix))}}
	stack := []int32{0}
	var out subtreeResult
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return subtreeResult{}, err
		}
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nd := arena[id]
		for cur := id; arena[cur].parent >= 0; cur = arena[cur].parent {
			pat[arena[cur].depth-1] = arena[cur].side
		}
		fix, _ := l.Fixing(pat[:nd.depth])

		if int(nd.depth) == nEq {
			sol, err := l.SolveAsMIP(ctx, fix)
			switch {
			case err == nil:
				out.sols = append(out.sols, sol)
				out.pats = append(out.pats, append(Pattern(nil), pat...))
			case errors.Is(err, ErrInfeasible), errors.Is(err, ErrUnbounded):
			case ctx.Err() != nil:
				return subtreeResult{}, ctx.Err()
			default:
				out.failures++
				l.opts.logger.Debug("lcp enumeration: leaf failed", "pattern", pat.Key(), "err", err)
			}
			continue
		}

		if err := l.feasible(ctx, fix); err != nil {
			if errors.Is(err, ErrInfeasible) {
				continue
			}
			if ctx.Err() != nil {
				return subtreeResult{}, ctx.Err()
			}
		}
		// var side below eq side on the stack: eq side is explored first
		arena = append(arena,
			enumNode{parent: id, depth: nd.depth + 1, side: SideVar},
			enumNode{parent: id, depth: nd.depth + 1, side: SideEq})
		stack = append(stack, int32(len(arena)-2), int32(len(arena)-1))
	}

	return out, nil
}

// containsSolution reports whether some s in set has every z within eps of sol.
func (l *LCP) containsSolution(set []Solution, sol Solution) bool {
	for _, s := range set {
		same := true
		for j := range s.Z {
			if math.Abs(s.Z[j]-sol.Z[j]) > l.opts.eps {
				same = false
				break
			}
		}
		if same {
			return true
		}
	}

	return false
}
