// SPDX-License-Identifier: MIT

package nash

import (
	"io"
	"log/slog"

	"github.com/katalvlaran/epec/matrix"
)

// Option configures a Game.
type Option func(*Options)

// Options is the resolved configuration of a Game.
type Options struct {
	mcA    *matrix.Dense
	mcB    []float64
	leadA  *matrix.Dense
	leadB  []float64
	nLead  int
	logger *slog.Logger
}

// WithMarketClearing adds rows A·(y, x_L) = b with a dual (price) column
// per row. A has columns [all primals | leader vars].
func WithMarketClearing(a *matrix.Dense, b []float64) Option {
	return func(o *Options) {
		o.mcA = a
		o.mcB = append([]float64(nil), b...)
	}
}

// WithLeaderVars declares n leader-controlled columns.
// Panics on a negative n.
func WithLeaderVars(n int) Option {
	if n < 0 {
		panic("nash: WithLeaderVars: n must be >= 0")
	}

	return func(o *Options) { o.nLead = n }
}

// WithLeaderConstraints adds cuts A·(y, x_L) ≤ b. A has columns
// [all primals | leader vars].
func WithLeaderConstraints(a *matrix.Dense, b []float64) Option {
	return func(o *Options) {
		o.leadA = a
		o.leadB = append([]float64(nil), b...)
	}
}

// WithLogger routes diagnostics to l.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.logger = l
		}
	}
}

func gatherOptions(opts []Option) Options {
	o := Options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, fn := range opts {
		if fn != nil {
			fn(&o)
		}
	}

	return o
}
