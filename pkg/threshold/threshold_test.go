package threshold

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name      string
		success   int
		total     int
		mostly    *float64
		wantPass  bool
		wantRatio *float64
	}{
		{"all pass no mostly", 10, 10, nil, true, Of(1.0)},
		{"mostly met exactly", 90, 100, Of(0.9), true, Of(0.9)},
		{"mostly exceeded", 90, 100, Of(0.8), true, Of(0.9)},
		{"mostly missed", 80, 100, Of(0.9), false, Of(0.8)},
		{"no data no mostly", 0, 0, nil, true, nil},
		{"no data zero mostly", 0, 0, Of(0), true, nil},
		{"no data with mostly", 0, 0, Of(0.5), false, nil},
		{"none pass no mostly", 0, 100, nil, false, Of(0.0)},
		{"mostly zero all pass", 100, 100, Of(0), true, Of(1.0)},
		{"mostly zero half pass", 50, 100, Of(0), true, Of(0.5)},
		{"mostly zero none pass", 0, 100, Of(0), true, Of(0.0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pass, ratio := Evaluate(tt.success, tt.total, tt.mostly)
			assert.Equal(t, tt.wantPass, pass)
			if tt.wantRatio == nil {
				assert.Nil(t, ratio)
				return
			}
			require.NotNil(t, ratio)
			assert.Equal(t, *tt.wantRatio, *ratio)
		})
	}
}

func TestEvaluate_SpotChecks(t *testing.T) {
	pass, ratio := Evaluate(2, 5, Of(0.5))
	assert.False(t, pass)
	assert.InDelta(t, 0.4, *ratio, 1e-12)

	pass, _ = Evaluate(2, 5, Of(0.3))
	assert.True(t, pass)
}

func TestEvaluateDecimal_KeepsDecimalDomain(t *testing.T) {
	pass, ratio := EvaluateDecimal(
		decimal.NewFromInt(80), decimal.NewFromInt(100), Of(0.8),
	)

	assert.False(t, pass, "0.8 as a float is slightly above 4/5")
	require.NotNil(t, ratio)
	assert.True(t, ratio.Equal(decimal.RequireFromString("0.8")))
}

func TestEvaluateDecimal_Cases(t *testing.T) {
	pass, ratio := EvaluateDecimal(
		decimal.NewFromInt(90), decimal.NewFromInt(100), Of(0.5),
	)
	assert.True(t, pass)
	assert.Equal(t, "0.9", ratio.String())

	pass, ratio = EvaluateDecimal(
		decimal.NewFromInt(3), decimal.NewFromInt(3), nil,
	)
	assert.True(t, pass)
	assert.Equal(t, "1", ratio.String())

	pass, ratio = EvaluateDecimal(decimal.Zero, decimal.Zero, nil)
	assert.True(t, pass)
	assert.Nil(t, ratio)
}

func TestValidateMostly(t *testing.T) {
	assert.NoError(t, ValidateMostly(0))
	assert.NoError(t, ValidateMostly(1))
	assert.NoError(t, ValidateMostly(0.75))

	for _, bad := range []float64{-0.1, 1.01, math.NaN(), math.Inf(1)} {
		err := ValidateMostly(bad)
		assert.ErrorIs(t, err, ErrInvalidMostly)
	}
}
