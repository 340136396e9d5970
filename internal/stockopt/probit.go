// backend-go/internal/stockopt/probit.go
package stockopt

import "math"

// normInv is the inverse standard-normal CDF (probit). Valid for p strictly
// inside (0, 1); parameter validation keeps callers away from the tails where
// the function diverges.
func normInv(p float64) float64 {
	return math.Sqrt2 * math.Erfinv(2*p-1)
}
