// Package value holds the element-level helpers shared by the
// evaluation packages: missing-value detection, numeric
// conversion and a total ordering over heterogeneous column
// values.
package value

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// IsMissing reports whether v counts as a missing element. nil
// and floating-point NaN are missing; everything else,
// including empty strings, is a real value.
func IsMissing(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(x)
	case float32:
		return math.IsNaN(float64(x))
	}
	return false
}

// ToFloat converts numeric values of any Go kind to float64.
// The second result is false for non-numeric input.
func ToFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case decimal.Decimal:
		return x.InexactFloat64(), true
	}
	return 0, false
}

// ToDecimal converts v to an exact decimal. The second result is
// false for non-numeric input and for NaN or infinite floats.
func ToDecimal(v any) (decimal.Decimal, bool) {
	switch x := v.(type) {
	case int:
		return decimal.NewFromInt(int64(x)), true
	case int8:
		return decimal.NewFromInt(int64(x)), true
	case int16:
		return decimal.NewFromInt(int64(x)), true
	case int32:
		return decimal.NewFromInt(int64(x)), true
	case int64:
		return decimal.NewFromInt(x), true
	case uint:
		return decimal.NewFromUint64(uint64(x)), true
	case uint8:
		return decimal.NewFromUint64(uint64(x)), true
	case uint16:
		return decimal.NewFromUint64(uint64(x)), true
	case uint32:
		return decimal.NewFromUint64(uint64(x)), true
	case uint64:
		return decimal.NewFromUint64(x), true
	case float32:
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromFloat32(x), true
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromFloat(x), true
	case json.Number:
		d, err := decimal.NewFromString(x.String())
		return d, err == nil
	case decimal.Decimal:
		return x, true
	}
	return decimal.Decimal{}, false
}

// IsNumeric reports whether v is a number (see ToFloat).
func IsNumeric(v any) bool {
	_, ok := ToFloat(v)
	return ok
}

// rank orders the broad value families.
func rank(v any) int {
	if v == nil {
		return 0
	}
	if _, ok := v.(bool); ok {
		return 1
	}
	if IsNumeric(v) {
		return 2
	}
	if _, ok := v.(string); ok {
		return 3
	}
	return 4
}

// Compare returns -1, 0 or +1 ordering a before, equal to, or
// after b. nil sorts first, then booleans (false < true), then
// numbers compared numerically regardless of Go kind, then
// strings, then anything else by its fmt rendering.
func Compare(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return cmpInt(ra, rb)
	}

	switch ra {
	case 0:
		return 0
	case 1:
		ab, bb := a.(bool), b.(bool)
		switch {
		case ab == bb:
			return 0
		case !ab:
			return -1
		default:
			return 1
		}
	case 2:
		return compareNumbers(a, b)
	case 3:
		return cmpString(a.(string), b.(string))
	}
	return cmpString(fmt.Sprint(a), fmt.Sprint(b))
}

// Equal reports whether a and b compare equal.
func Equal(a, b any) bool {
	return Compare(a, b) == 0
}

// Key returns a string identity for v suitable as a map key.
// Numbers of different Go kinds with the same exact value share
// a key, so 7, int64(7) and 7.0 are counted together while
// 2^53 and 2^53+1 stay apart.
func Key(v any) string {
	switch rank(v) {
	case 0:
		return "n:"
	case 1:
		return "b:" + strconv.FormatBool(v.(bool))
	case 2:
		if d, ok := ToDecimal(v); ok {
			return "d:" + d.String()
		}
		f, _ := ToFloat(v)
		return "f:" + strconv.FormatFloat(f, 'g', -1, 64)
	case 3:
		return "s:" + v.(string)
	}
	return "o:" + fmt.Sprintf("%#v", v)
}

// compareNumbers orders two numbers exactly. Float pairs and
// int64 pairs take a direct path; mixed kinds go through
// decimal, and infinities fall back to float comparison.
func compareNumbers(a, b any) int {
	if af, ok := a.(float64); ok {
		if bf, ok := b.(float64); ok {
			return cmpFloat(af, bf)
		}
	}
	if ai, ok := a.(int64); ok {
		if bi, ok := b.(int64); ok {
			return cmpInt64(ai, bi)
		}
	}
	ad, aok := ToDecimal(a)
	bd, bok := ToDecimal(b)
	if aok && bok {
		return ad.Cmp(bd)
	}
	af, _ := ToFloat(a)
	bf, _ := ToFloat(b)
	return cmpFloat(af, bf)
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
