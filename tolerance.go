// Package batched tolerance-based verification for floating-point comparisons
package batched

import (
	"fmt"
	"math"
	"reflect"
)

// Epsilon returns the machine epsilon of T.
func Epsilon[T Scalar]() float64 {
	if reflect.TypeFor[T]().Kind() == reflect.Float32 {
		return float64(math.Nextafter32(1, 2) - 1)
	}
	return math.Nextafter(1, 2) - 1
}

// GemmTolerance returns the worst-case rounding error of an inner product
// of length k whose factors are bounded by magnitude in absolute value:
// eps*k times the largest possible sum k*magnitude^2.
func GemmTolerance[T Scalar](k int, magnitude float64) float64 {
	k = max(k, 1)
	return 2 * Epsilon[T]() * float64(k) * max(float64(k)*magnitude*magnitude, 1)
}

// VerificationResult summarizes an element-wise comparison
type VerificationResult struct {
	MaxAbsError float64
	MaxRelError float64
	NumErrors   int
	TotalItems  int
	FirstError  int // Index of first error, -1 if none
}

// Verify compares actual against expected. Elements differing by more than
// tol in absolute value are errors; NaN matches only NaN.
func Verify[T Scalar](expected, actual []T, tol float64) VerificationResult {
	result := VerificationResult{
		TotalItems: len(expected),
		FirstError: -1,
	}
	if len(expected) != len(actual) {
		result.NumErrors = max(len(expected), len(actual))
		result.FirstError = min(len(expected), len(actual))
		return result
	}

	for i := range expected {
		e, a := float64(expected[i]), float64(actual[i])
		if math.IsNaN(e) || math.IsNaN(a) {
			if math.IsNaN(e) != math.IsNaN(a) {
				result.NumErrors++
				if result.FirstError < 0 {
					result.FirstError = i
				}
			}
			continue
		}

		diff := math.Abs(e - a)
		if diff > result.MaxAbsError {
			result.MaxAbsError = diff
		}
		if larger := math.Max(math.Abs(e), math.Abs(a)); larger > 0 {
			result.MaxRelError = math.Max(result.MaxRelError, diff/larger)
		}
		if diff > tol {
			result.NumErrors++
			if result.FirstError < 0 {
				result.FirstError = i
			}
		}
	}
	return result
}

// OK reports whether no element exceeded the tolerance.
func (r VerificationResult) OK() bool {
	return r.NumErrors == 0
}

// String returns a human-readable summary
func (r VerificationResult) String() string {
	if r.OK() {
		return fmt.Sprintf("PASS: %d items, max abs error %.3g, max rel error %.3g",
			r.TotalItems, r.MaxAbsError, r.MaxRelError)
	}
	return fmt.Sprintf("FAIL: %d/%d items out of tolerance (first at %d), max abs error %.3g, max rel error %.3g",
		r.NumErrors, r.TotalItems, r.FirstError, r.MaxAbsError, r.MaxRelError)
}
