package ops

import (
	"errors"
	"fmt"
	"math"

	"github.com/katalvlaran/epec/matrix"
)

// ErrNotSemidefinite is returned by ValidatePSD when the Cholesky pass finds a
// negative pivot (or a zero pivot with a non-zero column below it).
var ErrNotSemidefinite = errors.New("ops: matrix is not positive semi-definite")

// ValidatePSD checks whether the symmetric part S = (A + Aᵀ)/2 is positive
// semi-definite with a non-pivoted Cholesky pass.
//
// Stage 1: form S.
// Stage 2: for each k, d = S[k,k] - Σ L[k,j]²; d < -eps fails; |d| <= eps
// zeroes the column, which is only valid if the remaining column is ~0 too.
//
// This is a pivot test, not an eigen-decomposition: eps is scaled by max|S|.
// Complexity: O(n³).
func ValidatePSD(m *matrix.Dense, opts ...matrix.Option) error {
	if err := matrix.ValidateSquare(m); err != nil {
		return fmt.Errorf("ValidatePSD: %w", err)
	}
	n := m.Rows()
	if n == 0 {
		return nil
	}
	// Stage 1: symmetric part and scale
	s := make([]float64, n*n)
	var scale float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			a, _ := m.At(i, j)
			b, _ := m.At(j, i)
			s[i*n+j] = 0.5 * (a + b)
			scale = math.Max(scale, math.Abs(s[i*n+j]))
		}
	}
	eps := matrix.NewOptions(opts...).Eps() * math.Max(scale, 1) * float64(n)

	// Stage 2: Cholesky with semidefinite pivots
	l := make([]float64, n*n)
	for k := 0; k < n; k++ {
		d := s[k*n+k]
		for j := 0; j < k; j++ {
			d -= l[k*n+j] * l[k*n+j]
		}
		if d < -eps {
			return fmt.Errorf("ValidatePSD: pivot %d = %g: %w", k, d, ErrNotSemidefinite)
		}
		if d <= eps {
			// zero pivot: every remaining entry in column k must vanish
			for i := k + 1; i < n; i++ {
				v := s[i*n+k]
				for j := 0; j < k; j++ {
					v -= l[i*n+j] * l[k*n+j]
				}
				if math.Abs(v) > math.Sqrt(eps) {
					return fmt.Errorf("ValidatePSD: column %d: %w", k, ErrNotSemidefinite)
				}
			}
			continue // L[:,k] stays zero
		}
		dk := math.Sqrt(d)
		l[k*n+k] = dk
		for i := k + 1; i < n; i++ {
			v := s[i*n+k]
			for j := 0; j < k; j++ {
				v -= l[i*n+j] * l[k*n+j]
			}
			l[i*n+k] = v / dk
		}
	}

	return nil
}
