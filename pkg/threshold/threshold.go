// Package threshold decides whether a map expectation passed,
// given how many evaluated elements succeeded and an optional
// "mostly" fraction.
package threshold

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

// ErrInvalidMostly is returned when a mostly value lies outside
// [0, 1] or is not a finite number.
var ErrInvalidMostly = errors.New("invalid mostly value")

// Of returns a pointer to v, for passing a mostly value inline.
func Of(v float64) *float64 {
	return &v
}

// ValidateMostly checks that m is a usable threshold.
func ValidateMostly(m float64) error {
	if math.IsNaN(m) || math.IsInf(m, 0) {
		return fmt.Errorf("%w: %v is not a finite number", ErrInvalidMostly, m)
	}
	if m < 0 || m > 1 {
		return fmt.Errorf("%w: %v is not between 0 and 1", ErrInvalidMostly, m)
	}
	return nil
}

// Evaluate reports whether successCount out of totalCount
// evaluated elements satisfies mostly, together with the
// observed success ratio.
//
// With no evaluated elements the ratio is nil and the
// expectation passes only when mostly is unset or zero. Without
// a mostly value every evaluated element must succeed.
func Evaluate(
	successCount, totalCount int,
	mostly *float64,
) (bool, *float64) {
	if totalCount == 0 {
		return mostly == nil || *mostly == 0, nil
	}

	ratio := float64(successCount) / float64(totalCount)
	if mostly == nil {
		return successCount == totalCount, &ratio
	}
	return ratio >= *mostly, &ratio
}

// EvaluateDecimal is Evaluate for callers counting in
// arbitrary-precision decimals. The ratio stays a decimal, and
// the comparison against mostly uses the exact binary value of
// the float, so 80/100 does not reach a mostly of 0.8.
func EvaluateDecimal(
	successCount, totalCount decimal.Decimal,
	mostly *float64,
) (bool, *decimal.Decimal) {
	if totalCount.IsZero() {
		return mostly == nil || *mostly == 0, nil
	}

	ratio := successCount.Div(totalCount)
	if mostly == nil {
		return successCount.Equal(totalCount), &ratio
	}

	limit := new(big.Rat)
	if limit.SetFloat64(*mostly) == nil {
		return false, &ratio
	}
	return ratio.Rat().Cmp(limit) >= 0, &ratio
}
