// SPDX-License-Identifier: MIT

package epec

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/katalvlaran/epec/lcp"
)

// combinationRounds caps the best-response rounds inside one combination.
const combinationRounds = 50

// combinatorial walks the combinations of one pattern per leader in
// lexicographic order, the last leader fastest. Inside a combination the
// leaders best-respond in turn, each within its single polyhedron, until
// the profile stops moving; a fixed point that passes the consistency
// check ends the run. Every combination tried is one pass.
//
// A polyhedron that is empty for a leader without coupling is empty at
// every profile, so the combinations containing it are skipped.
func (c *Coordinator) combinatorial(ctx context.Context, start time.Time) error {
	n := len(c.leaders)
	sizes := c.sizes()
	for i, k := range sizes {
		if k == 0 {
			return &errTerminal{status: NumericalFailure,
				cause: fmt.Errorf("leader %d: no sign pattern to combine", i)}
		}
	}
	seed := cloneRows(c.decisions())
	excluded := make([]map[int]bool, n)
	for i := range excluded {
		excluded[i] = make(map[int]bool)
	}

	pick := make([]int, n)
	for {
		if !isExcluded(pick, excluded) {
			if err := c.guard(ctx, start); err != nil {
				return err
			}
			c.stats.Passes++
			c.opts.metrics.IncPass()

			found, err := c.tryCombination(ctx, pick, seed, excluded)
			retry, err := c.retryCombination(err)
			if err != nil {
				return err
			}
			c.endPass(c.lastRegret)
			if found {
				return nil
			}
			if retry {
				continue
			}
		}
		if !nextCombination(pick, sizes) {
			break
		}
	}
	for _, st := range c.states {
		st.decision = nil
	}

	return &errTerminal{status: NoEquilibrium,
		cause: fmt.Errorf("no pure equilibrium after %d combinations", c.stats.Passes)}
}

// tryCombination runs Gauss-Seidel best responses restricted to pick from
// seed and checks the fixed point, if one is reached.
func (c *Coordinator) tryCombination(ctx context.Context, pick []int, seed [][]float64, excluded []map[int]bool) (bool, error) {
	n := len(c.leaders)
	profile := cloneRows(seed)
	values := make([]float64, n)

	settled := false
	for round := 0; round < combinationRounds && !settled; round++ {
		settled = true
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return false, err
			}
			x := c.others(i, profile)
			only := []lcp.Pattern{c.states[i].patterns[pick[i]]}
			sol, val, found, err := c.respondWithin(ctx, i, x, only)
			if err != nil {
				return false, c.classify(ctx, i, err)
			}
			if !found {
				if c.leaders[i].Coupling == nil {
					excluded[i][pick[i]] = true
				}
				c.log.Debug("combination empty", "pick", pick, "leader", c.leaders[i].Name)
				return false, nil
			}
			if !c.near(profile[i], sol.Z) {
				settled = false
			}
			profile[i], values[i] = sol.Z, val
		}
	}
	if !settled {
		c.log.Debug("combination did not settle", "pick", pick, "rounds", combinationRounds)
		return false, nil
	}

	checks, err := c.consistency(ctx, profile)
	if err != nil {
		return false, err
	}
	if _, ok := c.score(profile, checks); !ok {
		return false, nil
	}
	for i, st := range c.states {
		st.decision, st.value = profile[i], values[i]
	}

	return true, nil
}

// retryCombination applies the recovery strategy to a combination error.
// A leader failure repeats the combination and counts against the retry
// budget.
func (c *Coordinator) retryCombination(err error) (bool, error) {
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
	c.log.Info("repeating combination", "recoveries", c.stats.Recoveries)

	return true, nil
}

func isExcluded(pick []int, excluded []map[int]bool) bool {
	for i, k := range pick {
		if excluded[i][k] {
			return true
		}
	}

	return false
}

// nextCombination advances pick like an odometer and reports false after
// the last combination.
func nextCombination(pick, sizes []int) bool {
	for i := len(pick) - 1; i >= 0; i-- {
		pick[i]++
		if pick[i] < sizes[i] {
			return true
		}
		pick[i] = 0
	}

	return false
}
