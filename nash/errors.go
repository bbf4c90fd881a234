// SPDX-License-Identifier: MIT

package nash

import "errors"

var (
	// ErrInconsistentCoupling: a follower's parameter dimension or a shared
	// constraint width does not match the layout.
	ErrInconsistentCoupling = errors.New("nash: inconsistent coupling")

	// ErrDimensionMismatch: bad right-hand side or vector lengths.
	ErrDimensionMismatch = errors.New("nash: dimension mismatch")

	// ErrNoPlayers: a game needs at least one follower.
	ErrNoPlayers = errors.New("nash: no players")

	// ErrPlayerOutOfRange: player index outside [0, players).
	ErrPlayerOutOfRange = errors.New("nash: player index out of range")
)
