package value

import (
	"encoding/json"
	"math"
	"sort"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestIsMissing(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  bool
	}{
		{"nil", nil, true},
		{"nan64", math.NaN(), true},
		{"nan32", float32(math.NaN()), true},
		{"zero", 0, false},
		{"empty string", "", false},
		{"false", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsMissing(tt.value))
		})
	}
}

func TestToFloat(t *testing.T) {
	f, ok := ToFloat(int64(7))
	assert.True(t, ok)
	assert.Equal(t, 7.0, f)

	f, ok = ToFloat(json.Number("2.5"))
	assert.True(t, ok)
	assert.Equal(t, 2.5, f)

	f, ok = ToFloat(decimal.NewFromInt(3))
	assert.True(t, ok)
	assert.Equal(t, 3.0, f)

	_, ok = ToFloat("7")
	assert.False(t, ok)
}

func TestCompare_CrossKindNumbers(t *testing.T) {
	assert.Equal(t, 0, Compare(7, 7.0))
	assert.Equal(t, -1, Compare(int8(1), 2.5))
	assert.Equal(t, 1, Compare(uint(9), int64(3)))
}

func TestCompare_FamilyOrder(t *testing.T) {
	values := []any{"b", 3, nil, true, "a", 1.5, false}
	sort.SliceStable(values, func(i, j int) bool {
		return Compare(values[i], values[j]) < 0
	})

	assert.Equal(t,
		[]any{nil, false, true, 1.5, 3, "a", "b"},
		values,
	)
}

func TestKey_NumbersShareIdentity(t *testing.T) {
	assert.Equal(t, Key(7), Key(7.0))
	assert.Equal(t, Key(int64(7)), Key(uint8(7)))
	assert.NotEqual(t, Key(7), Key("7"))
	assert.NotEqual(t, Key(true), Key(1))
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal("x", "x"))
	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(1, "1"))
}

func TestCompare_LargeIntegersAreExact(t *testing.T) {
	const big = int64(1) << 53
	tests := []struct {
		name string
		a, b any
		want int
	}{
		{"int64 neighbours", big, big + 1, -1},
		{"int64 vs json number", json.Number("9007199254740993"), big, 1},
		{"uint64 vs int64", uint64(big + 1), big + 1, 0},
		{"float vs int above 2^53", float64(big), big + 1, -1},
		{"max uint64", uint64(math.MaxUint64), int64(math.MaxInt64), 1},
		{"decimal vs float", decimal.RequireFromString("0.1"), 0.1, 0},
		{"infinity", math.Inf(1), big, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compare(tt.a, tt.b))
			assert.Equal(t, -tt.want, Compare(tt.b, tt.a))
		})
	}
}

func TestKey_LargeIntegersStayApart(t *testing.T) {
	const big = int64(1) << 53
	assert.NotEqual(t, Key(big), Key(big+1))
	assert.Equal(t, Key(big+1), Key(json.Number("9007199254740993")))
	assert.Equal(t, Key(json.Number("4")), Key(4.0))
	assert.Equal(t, Key(math.Inf(-1)), Key(math.Inf(-1)))
}

func TestToDecimal(t *testing.T) {
	d, ok := ToDecimal(uint64(math.MaxUint64))
	assert.True(t, ok)
	assert.Equal(t, "18446744073709551615", d.String())

	_, ok = ToDecimal(math.NaN())
	assert.False(t, ok)

	_, ok = ToDecimal("1")
	assert.False(t, ok)
}
