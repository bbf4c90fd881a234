// SPDX-License-Identifier: MIT

// Package instance reads EPEC instances from YAML and writes run reports.
//
// A file lists leaders; each leader owns a follower game (followers with
// Q, C, A, B, c, b), optional market-clearing and leader constraints, and
// its cost, interaction and coupling data. Omitted follower matrices are
// zero blocks of the shape implied by the game layout, so a follower with
// no constraints needs only Q and c.
//
//	name: duopoly
//	solver:
//	  workers: 2
//	  time_limit: 30s
//	leaders:
//	  - name: north
//	    leader_vars: 1
//	    leader_constraints: {A: [[0, 1]], b: [5]}
//	    cost: [1, -1]
//	    followers:
//	      - {Q: [[2]], C: [[1]], c: [-10]}
package instance
