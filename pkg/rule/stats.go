package rule

import (
	"fmt"
	"math"
	"sort"

	"digital.vasic.expectations/pkg/value"
)

// Floats converts column values to float64. Any non-numeric
// value is an error.
func Floats(values []any) ([]float64, error) {
	out := make([]float64, len(values))
	for i, v := range values {
		f, ok := value.ToFloat(v)
		if !ok {
			return nil, fmt.Errorf(
				"column values must be numeric, got %v (%T)", v, v,
			)
		}
		out[i] = f
	}
	return out, nil
}

// Mean returns the arithmetic mean. ok is false for no values.
func Mean(nums []float64) (float64, bool) {
	if len(nums) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, n := range nums {
		sum += n
	}
	return sum / float64(len(nums)), true
}

// Median returns the middle value, averaging the two middle
// values of an even-length input.
func Median(nums []float64) (float64, bool) {
	if len(nums) == 0 {
		return 0, false
	}
	sorted := append([]float64{}, nums...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid], true
	}
	return (sorted[mid-1] + sorted[mid]) / 2, true
}

// Stdev returns the sample standard deviation (n-1 in the
// denominator). ok is false for fewer than two values.
func Stdev(nums []float64) (float64, bool) {
	if len(nums) < 2 {
		return 0, false
	}
	mean, _ := Mean(nums)
	ss := 0.0
	for _, n := range nums {
		d := n - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(nums)-1)), true
}
