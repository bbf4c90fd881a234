// Package epec computes pure equilibria of EPECs: games in which several
// leaders each anticipate the Nash equilibrium of their own follower game.
//
// What is in the box?
//
//	A pure-Go stack from dense algebra up to the outer coordinator:
//		• matrix/  dense matrices, validators, LU solve and a PSD test
//		• solver/  LP, MILP (branch and bound) and convex QP capability
//		• lcp/     linear complementarity problems: MIP reformulation,
//		           MPEC objectives, relaxed probing, full enumeration
//		• qp/      parametrized convex follower programs and their KKT data
//		• nash/    joint LCP of a follower game with market clearing
//		• epec/    the inner-approximation coordinator
//		• instance/ YAML instances and run reports
//		• metrics/ optional Prometheus collectors
//
// The coordinator keeps, for every leader, a union of polyhedra Π_i of
// follower equilibria. Each pass solves the restricted best responses over
// Π_i, checks every leader against its unrestricted MPEC, and grows Π_i
// with the pattern of a profitable deviation until no leader can improve.
//
// Quick start:
//
//	c, err := epec.New(leaders, epec.WithWorkers(4))
//	rep, err := c.Solve(ctx)
//	fmt.Println(rep.Status, rep.Decisions)
//
// The epecsolve command under cmd/ drives the same flow from a YAML file.
//
//	go install github.com/katalvlaran/epec/cmd/epecsolve@latest
package epec
