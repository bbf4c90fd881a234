// SPDX-License-Identifier: MIT

package epec

import "errors"

var (
	// ErrNoLeaders: a coordinator needs at least one leader.
	ErrNoLeaders = errors.New("epec: no leaders")

	// ErrNilGame: a leader has no follower game.
	ErrNilGame = errors.New("epec: leader without game")
)
