package result

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pct(v float64) *float64 { return &v }

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"BOOLEAN_ONLY", BooleanOnly, false},
		{"BASIC", Basic, false},
		{"SUMMARY", Summary, false},
		{"COMPLETE", Complete, false},
		{"basic", 0, true},
		{"VERBOSE", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in, got.String())
		})
	}
}

func TestFormat_TextRoundTrip(t *testing.T) {
	data, err := json.Marshal(map[string]Format{"f": Summary})
	require.NoError(t, err)
	assert.JSONEq(t, `{"f":"SUMMARY"}`, string(data))

	var decoded map[string]Format
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, Summary, decoded["f"])

	err = json.Unmarshal([]byte(`{"f":"NOPE"}`), &decoded)
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestFormatMap_UnknownLevel(t *testing.T) {
	_, err := FormatMap(Format(9), true, 1, 1, 0, nil, nil)
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestFormatMap_InvalidCounts(t *testing.T) {
	_, err := FormatMap(Basic, true, 1, 2, 0, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidCounts)

	_, err = FormatMap(Basic, true, 2, 2, 1, []any{1}, nil)
	assert.ErrorIs(t, err, ErrInvalidCounts)
}

func TestFormatMap_BooleanOnly(t *testing.T) {
	rec, err := FormatMap(BooleanOnly, false, 10, 5, 3,
		[]any{1, 2, 3}, []int{0, 1, 2})
	require.NoError(t, err)

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false}`, string(data))
}

func TestFormatMap_TenElementScenario(t *testing.T) {
	rec, err := FormatMap(Basic, false, 10, 5, 3,
		[]any{"a", "b", "c"}, []int{1, 4, 8})
	require.NoError(t, err)

	require.NotNil(t, rec.Result)
	assert.False(t, rec.Success)
	assert.Equal(t, 5, rec.Result.MissingCount)
	assert.Equal(t, 50.0, *rec.Result.MissingPercent)
	assert.Equal(t, 3, rec.Result.UnexpectedCount)
	assert.Equal(t, 30.0, *rec.Result.UnexpectedPercent)
	assert.Equal(t, 60.0, *rec.Result.UnexpectedPercentNonmissing)
}

func TestFormatMap_AllLevelsNoUnexpected(t *testing.T) {
	basic := `{
		"element_count": 20,
		"missing_count": 5,
		"missing_percent": 25.0,
		"partial_unexpected_list": [],
		"unexpected_count": 0,
		"unexpected_percent": 0.0,
		"unexpected_percent_nonmissing": 0.0`
	summary := basic + `,
		"partial_unexpected_index_list": [],
		"partial_unexpected_counts": []`
	complete := summary + `,
		"unexpected_list": [],
		"unexpected_index_list": []`

	tests := []struct {
		level Format
		want  string
	}{
		{BooleanOnly, `{"success": true}`},
		{Basic, `{"success": true, "result": ` + basic + `}}`},
		{Summary, `{"success": true, "result": ` + summary + `}}`},
		{Complete, `{"success": true, "result": ` + complete + `}}`},
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			rec, err := FormatMap(tt.level, true, 20, 15, 0, nil, nil)
			require.NoError(t, err)
			data, err := json.Marshal(rec)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))
		})
	}
}

func TestFormatMap_AllMissing(t *testing.T) {
	rec, err := FormatMap(Summary, true, 20, 0, 0, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 100.0, *rec.Result.MissingPercent)
	assert.Equal(t, 0.0, *rec.Result.UnexpectedPercent)
	assert.Nil(t, rec.Result.UnexpectedPercentNonmissing)

	data, err := json.Marshal(rec.Result)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"unexpected_percent_nonmissing":null`)
}

func TestFormatMap_EmptyColumnHasNullPercentages(t *testing.T) {
	for _, level := range []Format{Basic, Summary, Complete} {
		rec, err := FormatMap(level, true, 0, 0, 0, nil, nil)
		require.NoError(t, err)

		assert.Nil(t, rec.Result.MissingPercent)
		assert.Nil(t, rec.Result.UnexpectedPercent)
		assert.Nil(t, rec.Result.UnexpectedPercentNonmissing)

		v, ok := rec.Result.Get(KeyMissingPercent)
		assert.True(t, ok)
		assert.Nil(t, v.(*float64))
	}
}

func TestFormatMap_PartialListsTruncate(t *testing.T) {
	values := make([]any, 0, 30)
	indices := make([]int, 0, 30)
	for i := 0; i < 30; i++ {
		values = append(values, i)
		indices = append(indices, i*2)
	}

	rec, err := FormatMap(Complete, false, 30, 30, 30, values, indices)
	require.NoError(t, err)

	r := rec.Result
	assert.Len(t, r.PartialUnexpectedList, PartialUnexpectedCount)
	assert.Len(t, r.PartialUnexpectedIndexList, PartialUnexpectedCount)
	assert.Len(t, r.PartialUnexpectedCounts, PartialUnexpectedCount)
	assert.Len(t, r.UnexpectedList, 30)
	assert.Len(t, r.UnexpectedIndexList, 30)
	assert.Equal(t, 0, r.PartialUnexpectedList[0])
	assert.Equal(t, 38, r.PartialUnexpectedIndexList[19])
}

func TestFormatMap_PartialCountsOrdering(t *testing.T) {
	values := []any{"b", "a", "c", "a", "b", "a", 7, 7.0}
	indices := []int{0, 1, 2, 3, 4, 5, 6, 7}

	rec, err := FormatMap(Summary, false, 8, 8, 8, values, indices)
	require.NoError(t, err)

	assert.Equal(t, []ValueCount{
		{Value: "a", Count: 3},
		{Value: 7, Count: 2},
		{Value: "b", Count: 2},
		{Value: "c", Count: 1},
	}, rec.Result.PartialUnexpectedCounts)
}

func TestFormatMap_LevelsAreMonotonic(t *testing.T) {
	values := []any{1, 2, 2, 3}
	indices := []int{0, 3, 5, 9}

	var prev map[string]any
	for _, level := range []Format{Basic, Summary, Complete} {
		rec, err := FormatMap(level, false, 12, 10, 4, values, indices)
		require.NoError(t, err)
		cur := rec.Result.Map()

		for key, v := range prev {
			got, ok := cur[key]
			require.True(t, ok, "key %s dropped at %s", key, level)
			assert.Equal(t, v, got, "key %s changed at %s", key, level)
		}
		assert.Greater(t, len(cur), len(prev))
		prev = cur
	}
}

func TestFormatMap_PercentagesInRange(t *testing.T) {
	for elements := 1; elements <= 40; elements++ {
		for nonnull := 0; nonnull <= elements; nonnull++ {
			rec, err := FormatMap(Basic, true, elements, nonnull, 0, nil, nil)
			require.NoError(t, err)

			mp := *rec.Result.MissingPercent
			want := 100 * float64(elements-nonnull) / float64(elements)
			assert.Equal(t, want, mp)
			assert.GreaterOrEqual(t, mp, 0.0)
			assert.LessOrEqual(t, mp, 100.0)
		}
	}
}

func TestFormatAggregate(t *testing.T) {
	rec, err := FormatAggregate(Basic, true, 2.5, 4, 3)
	require.NoError(t, err)

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"success": true,
		"result": {
			"observed_value": 2.5,
			"element_count": 4,
			"missing_count": 1,
			"missing_percent": 25.0
		}
	}`, string(data))

	rec, err = FormatAggregate(BooleanOnly, false, 2.5, 4, 3)
	require.NoError(t, err)
	assert.Nil(t, rec.Result)

	rec, err = FormatAggregate(Complete, false, nil, 0, 0)
	require.NoError(t, err)
	assert.Nil(t, rec.Result.MissingPercent)
	assert.Equal(t, []string{
		KeyObservedValue, KeyElementCount, KeyMissingCount, KeyMissingPercent,
	}, rec.Result.Keys())
}

func TestFormatTable(t *testing.T) {
	rec, err := FormatTable(Basic, true, 12)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{KeyObservedValue: 12}, rec.Result.Map())

	rec, err = FormatTable(Summary, false, nil)
	require.NoError(t, err)
	assert.Empty(t, rec.Result.Keys())

	_, err = FormatTable(Format(-1), true, nil)
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestException(t *testing.T) {
	cause := fmt.Errorf("rule failed: %w", errors.New("bad type"))
	rec := Exception(cause, "goroutine 1 [running]:")

	assert.False(t, rec.Success)
	assert.Nil(t, rec.Result)
	require.NotNil(t, rec.ExceptionInfo)
	assert.True(t, rec.ExceptionInfo.RaisedException)
	assert.Equal(t, "rule failed: bad type", rec.ExceptionInfo.ExceptionMessage)
	assert.Equal(t, "goroutine 1 [running]:", rec.ExceptionInfo.ExceptionTraceback)
}

func TestValues_JSONRoundTrip(t *testing.T) {
	rec, err := FormatMap(Summary, false, 6, 5, 2,
		[]any{"x", "y"}, []int{1, 3})
	require.NoError(t, err)

	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var decoded Record
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, rec.Result.Keys(), decoded.Result.Keys())
	assert.Equal(t, 2, decoded.Result.UnexpectedCount)
	assert.Equal(t, []int{1, 3}, decoded.Result.PartialUnexpectedIndexList)

	again, err := json.Marshal(&decoded)
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(again))
}

func TestValues_UnmarshalRejectsUnknownKey(t *testing.T) {
	var v Values
	err := json.Unmarshal([]byte(`{"bogus": 1}`), &v)
	assert.Error(t, err)
}
