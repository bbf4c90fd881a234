// SPDX-License-Identifier: MIT

// Package epec computes equilibria among leaders, each of whom optimizes a
// linear objective over the equilibria of its own follower game (nash.Game).
//
// Every leader i controls the full column vector z_i of its follower LCP.
// Its objective is (c_i + C_i·x_{-i})ᵀz_i and its followers see
// q_i + D_i·x_{-i}, where x_{-i} concatenates the leader-variable blocks of
// the other leaders in leader order.
//
// The Coordinator runs an inner-approximation algorithm. Each leader keeps
// an ordered set Π_i of complementarity sign patterns; the union of their
// polyhedra approximates the leader's feasible set from inside. A pass
//
//	(a) computes every leader's best response restricted to Π_i,
//	(b) checks each decision against the leader's unrestricted best response,
//	(c) adds the pattern of a profitable deviation to Π_i, by policy.
//
// Leaders are solved in parallel within a phase (Jacobi); every phase is a
// barrier. The run ends with one Status; solver trouble is reported as a
// status, not an error.
package epec
