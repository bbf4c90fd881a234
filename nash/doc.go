// SPDX-License-Identifier: MIT

// Package nash assembles the KKT systems of several followers (qp.Program)
// plus shared constraints into one joint LCP.
//
// Column layout:
//
//	[ primals y_0..y_{P-1} | market-clearing duals | leader vars | constraint duals λ_0..λ_{P-1} ]
//
// Row layout:
//
//	[ stationarity_0..P-1 | market-clearing rows | primal feasibility_0..P-1 ]
//
// Rows before the leader block pair with the column of the same index,
// feasibility rows pair with column row+nLeaderVars. Leader columns are in
// no pair.
//
// Follower j is parametrized by every column of the prefix
// [primals | market-clearing duals | leader vars] except its own primals,
// in column order, so its parameter dimension must be
// totalPrimals - ny_j + nMC + nLeaderVars.
//
// Market clearing A_mc·(y, x_L) ≥ b_mc enters as complementary rows against
// its duals (prices); the ≤ side and leader constraints become lcp cuts, so
// market clearing holds with equality.
package nash
