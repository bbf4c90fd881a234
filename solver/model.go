// SPDX-License-Identifier: MIT

package solver

import (
	"fmt"
	"math"

	"github.com/katalvlaran/epec/matrix"
)

// Sense is the relation of a linear row to its right-hand side.
type Sense int8

const (
	LessEq Sense = iota
	GreaterEq
	Equal
)

// String implements fmt.Stringer.
func (s Sense) String() string {
	switch s {
	case LessEq:
		return "<="
	case GreaterEq:
		return ">="
	case Equal:
		return "="
	default:
		return fmt.Sprintf("Sense(%d)", int8(s))
	}
}

// Term is one coefficient of a linear row.
type Term struct {
	Var  int
	Coef float64
}

// Row is Σ Terms (Sense) RHS.
type Row struct {
	Terms []Term
	Sense Sense
	RHS   float64
}

// Model is a minimization problem
//
//	min ½xᵀHx + cᵀx + k   s.t. rows, lb ≤ x ≤ ub, x_j ∈ {0,1} for binaries.
//
// Lower bounds must be finite; upper bounds may be +Inf.
type Model struct {
	lb, ub   []float64
	binary   []bool
	cost     []float64
	rows     []Row
	quad     *matrix.Dense
	constant float64
}

// NewModel returns an empty model.
func NewModel() *Model { return &Model{} }

// AddVar appends a continuous variable with bounds [lb, ub] and returns its index.
func (m *Model) AddVar(lb, ub float64) int {
	m.lb = append(m.lb, lb)
	m.ub = append(m.ub, ub)
	m.binary = append(m.binary, false)
	m.cost = append(m.cost, 0)

	return len(m.lb) - 1
}

// AddVars appends n variables with identical bounds and returns the first index.
func (m *Model) AddVars(n int, lb, ub float64) int {
	first := len(m.lb)
	for i := 0; i < n; i++ {
		m.AddVar(lb, ub)
	}

	return first
}

// AddBinary appends a {0,1} variable and returns its index.
func (m *Model) AddBinary() int {
	j := m.AddVar(0, 1)
	m.binary[j] = true

	return j
}

// AddRow appends Σ terms (sense) rhs and returns the row index.
// Terms are copied.
func (m *Model) AddRow(terms []Term, sense Sense, rhs float64) int {
	m.rows = append(m.rows, Row{Terms: append([]Term(nil), terms...), Sense: sense, RHS: rhs})

	return len(m.rows) - 1
}

// SetCost sets the linear objective coefficient of variable j.
func (m *Model) SetCost(j int, c float64) { m.cost[j] = c }

// SetConstant sets the objective constant k.
func (m *Model) SetConstant(k float64) { m.constant = k }

// SetBounds overrides the bounds of variable j.
func (m *Model) SetBounds(j int, lb, ub float64) {
	m.lb[j] = lb
	m.ub[j] = ub
}

// SetQuadratic sets H in ½xᵀHx. H must be NumVars×NumVars when the model is
// solved; it is validated then, not here, so variables may still be added.
func (m *Model) SetQuadratic(h *matrix.Dense) { m.quad = h }

// NumVars returns the variable count.
func (m *Model) NumVars() int { return len(m.lb) }

// NumRows returns the row count.
func (m *Model) NumRows() int { return len(m.rows) }

// NumBinaries returns the count of binary variables.
func (m *Model) NumBinaries() int {
	var k int
	for _, b := range m.binary {
		if b {
			k++
		}
	}

	return k
}

// Objective evaluates the objective at x (len(x) == NumVars).
func (m *Model) Objective(x []float64) float64 {
	f := m.constant
	for j, c := range m.cost {
		f += c * x[j]
	}
	if m.quad != nil {
		hx, err := matrix.MatVec(m.quad, x)
		if err == nil {
			for j := range x {
				f += 0.5 * x[j] * hx[j]
			}
		}
	}

	return f
}

// Violation returns the largest row or bound violation of x.
func (m *Model) Violation(x []float64) float64 {
	var worst float64
	for j := range m.lb {
		worst = math.Max(worst, m.lb[j]-x[j])
		if !math.IsInf(m.ub[j], 1) {
			worst = math.Max(worst, x[j]-m.ub[j])
		}
	}
	for _, r := range m.rows {
		var lhs float64
		for _, t := range r.Terms {
			lhs += t.Coef * x[t.Var]
		}
		switch r.Sense {
		case LessEq:
			worst = math.Max(worst, lhs-r.RHS)
		case GreaterEq:
			worst = math.Max(worst, r.RHS-lhs)
		case Equal:
			worst = math.Max(worst, math.Abs(lhs-r.RHS))
		}
	}

	return worst
}

// rowScale is 1 + the largest magnitude involved in row r at x, used to make
// residual checks relative.
func rowScale(r Row, x []float64) float64 {
	s := math.Abs(r.RHS)
	for _, t := range r.Terms {
		s = math.Max(s, math.Abs(t.Coef*x[t.Var]))
	}

	return 1 + s
}

// scaledViolation is Violation under the bounds (lb, ub) with each row
// residual divided by its rowScale.
func (m *Model) scaledViolation(x, lb, ub []float64) float64 {
	var worst float64
	for j := range lb {
		worst = math.Max(worst, (lb[j]-x[j])/(1+math.Abs(lb[j])))
		if !math.IsInf(ub[j], 1) {
			worst = math.Max(worst, (x[j]-ub[j])/(1+math.Abs(ub[j])))
		}
	}
	for _, r := range m.rows {
		var lhs float64
		for _, t := range r.Terms {
			lhs += t.Coef * x[t.Var]
		}
		var v float64
		switch r.Sense {
		case LessEq:
			v = lhs - r.RHS
		case GreaterEq:
			v = r.RHS - lhs
		case Equal:
			v = math.Abs(lhs - r.RHS)
		}
		worst = math.Max(worst, v/rowScale(r, x))
	}

	return worst
}

// validate checks indices, bounds and the quadratic shape.
func (m *Model) validate() error {
	n := m.NumVars()
	for j := 0; j < n; j++ {
		if math.IsNaN(m.lb[j]) || math.IsInf(m.lb[j], 0) {
			return fmt.Errorf("var %d: lower bound %g: %w", j, m.lb[j], ErrInvalidModel)
		}
		if math.IsNaN(m.ub[j]) || math.IsInf(m.ub[j], -1) {
			return fmt.Errorf("var %d: upper bound %g: %w", j, m.ub[j], ErrInvalidModel)
		}
		if math.IsNaN(m.cost[j]) || math.IsInf(m.cost[j], 0) {
			return fmt.Errorf("var %d: cost: %w", j, ErrInvalidModel)
		}
	}
	for i, r := range m.rows {
		if r.Sense != LessEq && r.Sense != GreaterEq && r.Sense != Equal {
			return fmt.Errorf("row %d: sense %v: %w", i, r.Sense, ErrInvalidModel)
		}
		if math.IsNaN(r.RHS) || math.IsInf(r.RHS, 0) {
			return fmt.Errorf("row %d: rhs: %w", i, ErrInvalidModel)
		}
		for _, t := range r.Terms {
			if t.Var < 0 || t.Var >= n {
				return fmt.Errorf("row %d: variable %d out of range: %w", i, t.Var, ErrInvalidModel)
			}
			if math.IsNaN(t.Coef) || math.IsInf(t.Coef, 0) {
				return fmt.Errorf("row %d: coefficient: %w", i, ErrInvalidModel)
			}
		}
	}
	if m.quad != nil {
		if err := matrix.ValidateShape(m.quad, n, n); err != nil {
			return fmt.Errorf("quadratic term: %w: %w", err, ErrInvalidModel)
		}
	}

	return nil
}
