// SPDX-License-Identifier: MIT
package lcp_test

import (
	"context"
	"fmt"

	"github.com/katalvlaran/epec/lcp"
	"github.com/katalvlaran/epec/matrix"
)

// ExampleLCP_EnumerateAll lists the three complementary solutions of
// w = [[1,2],[2,1]]z - 1.
func ExampleLCP_EnumerateAll() {
	m, _ := matrix.NewDenseFrom([][]float64{{1, 2}, {2, 1}})
	l, _ := lcp.New(m, []float64{-1, -1}, []lcp.Pair{{Eq: 0, Var: 0}, {Eq: 1, Var: 1}})

	sols, err := l.EnumerateAll(context.Background())
	if err != nil {
		fmt.Println(err)
		return
	}
	for _, s := range sols {
		p, _ := l.Encode(s)
		fmt.Printf("%s z=(%.3f, %.3f)\n", p.Key(), s.Z[0], s.Z[1])
	}
	// Output:
	// ++ z=(0.333, 0.333)
	// +- z=(1.000, 0.000)
	// -+ z=(0.000, 1.000)
}
