package validator

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digital.vasic.expectations/pkg/dataset"
	"digital.vasic.expectations/pkg/expectation"
	"digital.vasic.expectations/pkg/monitor"
	"digital.vasic.expectations/pkg/result"
	"digital.vasic.expectations/pkg/rule"
	"digital.vasic.expectations/pkg/suite"
	"digital.vasic.expectations/pkg/threshold"
)

func TestExpect_TenElementScenario(t *testing.T) {
	tests := []struct {
		name    string
		opts    []CallOption
		success bool
	}{
		{name: "every element must pass", success: false},
		{name: "mostly above ratio", opts: []CallOption{WithMostly(0.5)}, success: false},
		{name: "mostly below ratio", opts: []CallOption{WithMostly(0.3)}, success: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New(tenElements(t))
			rec, err := v.Expect(inSet, map[string]any{
				"column": "x", "value_set": []any{1, 2},
			}, tt.opts...)
			require.NoError(t, err)

			assert.Equal(t, tt.success, rec.Success)
			require.NotNil(t, rec.Result)
			assert.Equal(t, 10, rec.Result.ElementCount)
			assert.Equal(t, 5, rec.Result.MissingCount)
			require.NotNil(t, rec.Result.MissingPercent)
			assert.InDelta(t, 50.0, *rec.Result.MissingPercent, 1e-9)
			assert.Equal(t, 3, rec.Result.UnexpectedCount)
			assert.Equal(t, []any{5, 6, 7}, rec.Result.PartialUnexpectedList)
			assert.Nil(t, rec.ExpectationConfig)
		})
	}
}

func TestExpect_CompleteReportsRowIndices(t *testing.T) {
	v := New(tenElements(t))
	rec, err := v.Expect(inSet, map[string]any{
		"column": "x", "value_set": []any{1, 2},
	}, WithResultFormat(result.Complete))
	require.NoError(t, err)
	assert.Equal(t, []int{4, 6, 8}, rec.Result.UnexpectedIndexList)
	assert.Equal(t, []any{5, 6, 7}, rec.Result.UnexpectedList)
}

func TestExpect_ResultFormatKwarg(t *testing.T) {
	v := New(tenElements(t))
	rec, err := v.Expect(inSet, map[string]any{
		"column": "x", "value_set": []any{1, 2}, "result_format": "BOOLEAN_ONLY",
	})
	require.NoError(t, err)
	assert.False(t, rec.Success)
	assert.Nil(t, rec.Result)

	_, err = v.Expect(inSet, map[string]any{
		"column": "x", "value_set": []any{1, 2}, "result_format": "VERBOSE",
	})
	assert.ErrorIs(t, err, result.ErrUnknownFormat)
}

func TestExpect_AggregateAndTableRules(t *testing.T) {
	v := New(tenElements(t))

	rec, err := v.Expect(mean, map[string]any{
		"column": "y", "min_value": 5, "max_value": 6,
	})
	require.NoError(t, err)
	assert.True(t, rec.Success)
	assert.Equal(t, 5.5, rec.Result.ObservedValue)
	assert.Equal(t, 10, rec.Result.ElementCount)

	rec, err = v.Expect(rule.TableRowCountToBeBetween, map[string]any{
		"min_value": 11,
	})
	require.NoError(t, err)
	assert.False(t, rec.Success)
	assert.EqualValues(t, 10, rec.Result.ObservedValue)
}

func TestExpect_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name    string
		typ     string
		kwargs  map[string]any
		opts    []CallOption
		wantErr error
	}{
		{
			name:    "unknown type",
			typ:     "expect_the_unexpected",
			kwargs:  map[string]any{"column": "x"},
			wantErr: ErrUnknownExpectation,
		},
		{
			name:    "missing column",
			typ:     inSet,
			kwargs:  map[string]any{"value_set": []any{1}},
			wantErr: ErrMissingArgument,
		},
		{
			name:    "missing required kwarg",
			typ:     inSet,
			kwargs:  map[string]any{"column": "x"},
			wantErr: ErrMissingArgument,
		},
		{
			name:    "mostly on aggregate",
			typ:     mean,
			kwargs:  map[string]any{"column": "y", "min_value": 0},
			opts:    []CallOption{WithMostly(0.5)},
			wantErr: ErrMostlyNotSupported,
		},
		{
			name:    "mostly out of range",
			typ:     inSet,
			kwargs:  map[string]any{"column": "x", "value_set": []any{1}, "mostly": 1.5},
			wantErr: threshold.ErrInvalidMostly,
		},
		{
			name:    "bounds rule without bounds",
			typ:     between,
			kwargs:  map[string]any{"column": "y"},
			wantErr: rule.ErrMissingBound,
		},
		{
			name:    "non boolean flag",
			typ:     inSet,
			kwargs:  map[string]any{"column": "x", "value_set": []any{1}, "catch_exceptions": "yes"},
			wantErr: expectation.ErrInvalidConfiguration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New(tenElements(t), WithDefaults(Defaults{
				ResultFormat:    result.Basic,
				CatchExceptions: true,
			}))
			_, err := v.Expect(tt.typ, tt.kwargs, tt.opts...)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 0, v.Suite().Len())
		})
	}
}

func TestExpect_RuleErrorUncaught(t *testing.T) {
	v := New(tenElements(t))
	_, err := v.Expect(mean, map[string]any{"column": "z", "min_value": 0})
	require.Error(t, err)

	var re *RuleError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, mean, re.Type)
	assert.Contains(t, re.Err.Error(), "must be numeric")
	assert.NotEmpty(t, re.Stack)
	assert.Contains(t, err.Error(), "expectation "+mean+" raised")
}

func TestExpect_RuleErrorCaught(t *testing.T) {
	v := New(tenElements(t))
	rec, err := v.Expect(mean, map[string]any{"column": "z", "min_value": 0},
		WithCatchExceptions(true))
	require.NoError(t, err)

	assert.False(t, rec.Success)
	assert.Nil(t, rec.Result)
	require.NotNil(t, rec.ExceptionInfo)
	assert.True(t, rec.ExceptionInfo.RaisedException)
	assert.Contains(t, rec.ExceptionInfo.ExceptionMessage, "must be numeric")
	assert.NotEmpty(t, rec.ExceptionInfo.ExceptionTraceback)

	stored := v.Suite().Expectations()
	require.Len(t, stored, 1)
	assert.Equal(t, true, stored[0].Kwargs[KeyCatchExceptions])
	success, ran := stored[0].LastRun()
	assert.True(t, ran)
	assert.False(t, success)
}

func TestExpect_MissingColumnIsRuleError(t *testing.T) {
	v := New(tenElements(t))

	_, err := v.Expect(inSet, map[string]any{"column": "nope", "value_set": []any{1}})
	assert.ErrorIs(t, err, dataset.ErrColumnNotFound)

	rec, err := v.Expect(inSet, map[string]any{"column": "nope", "value_set": []any{1}},
		WithCatchExceptions(true))
	require.NoError(t, err)
	require.NotNil(t, rec.ExceptionInfo)
	assert.Contains(t, rec.ExceptionInfo.ExceptionMessage, "nope")
}

func TestExpect_RecordsAndReplaces(t *testing.T) {
	v := New(tenElements(t))
	_, err := v.Expect(inSet, map[string]any{"column": "x", "value_set": []any{1, 2}})
	require.NoError(t, err)
	rec, err := v.Expect(inSet, map[string]any{"column": "x", "value_set": []any{1, 2, 5, 6, 7}})
	require.NoError(t, err)
	assert.True(t, rec.Success)

	stored := v.Suite().Expectations()
	require.Len(t, stored, 1)
	assert.Equal(t, []any{
		json.Number("1"), json.Number("2"), json.Number("5"),
		json.Number("6"), json.Number("7"),
	}, stored[0].Kwargs["value_set"])
	assert.NotContains(t, stored[0].Kwargs, KeyResultFormat)
	assert.NotContains(t, stored[0].Kwargs, KeyIncludeConfig)
	assert.NotContains(t, stored[0].Kwargs, KeyCatchExceptions)

	_, err = v.Expect(inSet, map[string]any{"column": "z", "value_set": []any{"a"}})
	require.NoError(t, err)
	assert.Equal(t, 2, v.Suite().Len())
}

func TestExpect_WithoutRecording(t *testing.T) {
	v := New(tenElements(t))
	rec, err := v.Expect(inSet, map[string]any{"column": "x", "value_set": []any{1, 2}},
		WithoutRecording())
	require.NoError(t, err)
	assert.False(t, rec.Success)
	assert.Equal(t, 0, v.Suite().Len())
}

func TestExpect_IncludeConfigAndMeta(t *testing.T) {
	v := New(tenElements(t))
	rec, err := v.Expect(inSet, map[string]any{"column": "x", "value_set": []any{1, 2}},
		WithIncludeConfig(true), WithMeta(map[string]any{"owner": "ops"}))
	require.NoError(t, err)

	require.NotNil(t, rec.ExpectationConfig)
	assert.Equal(t, inSet, rec.ExpectationConfig.Type)
	assert.Equal(t, true, rec.ExpectationConfig.Kwargs[KeyIncludeConfig])
	assert.Equal(t, "ops", rec.Meta["owner"])

	stored := v.Suite().Expectations()
	require.Len(t, stored, 1)
	assert.Equal(t, "ops", stored[0].Meta["owner"])
}

func TestExpect_MetaKwarg(t *testing.T) {
	v := New(tenElements(t))
	rec, err := v.Expect(inSet, map[string]any{
		"column": "x", "value_set": []any{1, 2, 5, 6, 7},
		"meta": map[string]any{"ticket": "DQ-7"},
	})
	require.NoError(t, err)
	assert.Equal(t, "DQ-7", rec.Meta["ticket"])
	assert.NotContains(t, v.Suite().Expectations()[0].Kwargs, KeyMeta)

	_, err = v.Expect(inSet, map[string]any{
		"column": "x", "value_set": []any{1}, "meta": "nope",
	})
	assert.ErrorIs(t, err, expectation.ErrInvalidConfiguration)
}

func TestExpectArgs(t *testing.T) {
	v := New(tenElements(t))

	rec, err := v.ExpectArgs(inSet, []any{"x", []any{1, 2, 5, 6, 7}}, nil)
	require.NoError(t, err)
	assert.True(t, rec.Success)
	assert.Equal(t, "x", v.Suite().Expectations()[0].Kwargs["column"])

	_, err = v.ExpectArgs(inSet, []any{"x"}, map[string]any{"column": "y"})
	assert.ErrorIs(t, err, suite.ErrConflictingArguments)

	_, err = v.ExpectArgs(inSet, []any{"x", []any{1}, "extra"}, nil)
	assert.ErrorIs(t, err, suite.ErrTooManyArguments)
}

func TestExpect_Defaults(t *testing.T) {
	v := New(tenElements(t))
	require.NoError(t, v.SetDefault(KeyResultFormat, "BOOLEAN_ONLY"))
	require.NoError(t, v.SetDefault(KeyCatchExceptions, true))

	rec, err := v.Expect(inSet, map[string]any{"column": "x", "value_set": []any{1, 2}})
	require.NoError(t, err)
	assert.Nil(t, rec.Result)
	assert.NotContains(t, v.Suite().Expectations()[0].Kwargs, KeyResultFormat)

	rec, err = v.Expect(mean, map[string]any{"column": "z", "min_value": 0})
	require.NoError(t, err)
	assert.NotNil(t, rec.ExceptionInfo)

	v.ResetDefaults()
	assert.Equal(t, InitialDefaults(), v.Defaults())
}

func TestEvaluateRule(t *testing.T) {
	even := rule.Definition{
		Type: "expect_column_values_to_be_even",
		Kind: rule.KindMap,
		Func: rule.Elementwise(func(v any, _ expectation.Kwargs) (bool, error) {
			n, ok := v.(int)
			return ok && n%2 == 0, nil
		}),
	}

	v := New(tenElements(t))
	rec, err := v.EvaluateRule(even, map[string]any{"column": "x"},
		WithResultFormat(result.Complete))
	require.NoError(t, err)
	assert.False(t, rec.Success)
	assert.Equal(t, []any{1, 5, 7}, rec.Result.UnexpectedList)
	assert.Equal(t, []int{0, 4, 8}, rec.Result.UnexpectedIndexList)
	assert.Equal(t, 0, v.Suite().Len())

	rec, err = v.EvaluateRule(even, map[string]any{"column": "x"}, WithMostly(0.4))
	require.NoError(t, err)
	assert.True(t, rec.Success)

	_, err = v.EvaluateRule(rule.Definition{Type: "broken"}, nil)
	assert.ErrorIs(t, err, expectation.ErrInvalidConfiguration)
}

func TestEvaluateRule_Panic(t *testing.T) {
	boom := rule.Definition{
		Type: "expect_boom",
		Kind: rule.KindTable,
		Func: func(rule.Input) (rule.Outcome, error) { panic("boom") },
	}
	v := New(tenElements(t))

	_, err := v.EvaluateRule(boom, nil)
	var re *RuleError
	require.True(t, errors.As(err, &re))
	assert.EqualError(t, re.Err, "panic: boom")

	rec, err := v.EvaluateRule(boom, nil, WithCatchExceptions(true))
	require.NoError(t, err)
	assert.Equal(t, "panic: boom", rec.ExceptionInfo.ExceptionMessage)
}

func TestEvaluateRule_WrongOutcome(t *testing.T) {
	bad := rule.Definition{
		Type: "expect_confused",
		Kind: rule.KindMap,
		Func: func(rule.Input) (rule.Outcome, error) {
			return rule.AggregateOutcome{Success: true}, nil
		},
	}
	v := New(tenElements(t))
	_, err := v.EvaluateRule(bad, map[string]any{"column": "x"})
	var re *RuleError
	require.True(t, errors.As(err, &re))
	assert.Contains(t, re.Err.Error(), "map rule returned")
}

func TestExpect_Observability(t *testing.T) {
	m := &recordingMetrics{}
	collector := monitor.NewEventCollector()
	v := New(tenElements(t), WithMetrics(m), WithCollector(collector))

	_, err := v.Expect(inSet, map[string]any{"column": "x", "value_set": []any{1, 2}})
	require.NoError(t, err)
	_, err = v.Expect(mean, map[string]any{"column": "z", "min_value": 0},
		WithCatchExceptions(true))
	require.NoError(t, err)

	require.Len(t, m.evaluations, 2)
	assert.Equal(t, evaluation{inSet, "map", false}, m.evaluations[0])
	assert.Equal(t, evaluation{mean, "aggregate", false}, m.evaluations[1])
	assert.Equal(t, []string{mean}, m.exceptions)

	stats := collector.Stats()
	assert.Equal(t, 2, stats.Evaluations)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.Exceptions)

	events := collector.Events()
	require.Len(t, events, 2)
	assert.Equal(t, monitor.EventFailed, events[0].Type)
	assert.Equal(t, 3, events[0].UnexpectedCount)
	assert.Equal(t, monitor.EventException, events[1].Type)
}

func completeValidator(
	t *testing.T,
	columns []string,
	data map[string][]any,
) *Validator {
	t.Helper()
	f, err := dataset.NewFrame(columns, data)
	require.NoError(t, err)
	v := New(f)
	require.NoError(t, v.SetDefault(KeyResultFormat, "COMPLETE"))
	return v
}

func TestExpect_NotBeNull(t *testing.T) {
	v := completeValidator(t, []string{"x", "y", "n", "z", "b", "all"}, map[string][]any{
		"x":   {2, nil},
		"y":   {2, math.NaN()},
		"n":   {nil, math.NaN()},
		"z":   {2, 5},
		"b":   {1, 2, 3, 4, 5, 6, 7, 8, 9, nil},
		"all": {nil, nil, nil, nil},
	})

	tests := []struct {
		name    string
		kwargs  map[string]any
		success bool
		indices []int
		values  []any
	}{
		{"nan", map[string]any{"column": "y"}, false, []int{1}, []any{nil}},
		{"none and nan", map[string]any{"column": "n"}, false, []int{0, 1}, []any{nil, nil}},
		{"none", map[string]any{"column": "x"}, false, []int{1}, []any{nil}},
		{"complete", map[string]any{"column": "z"}, true, []int{}, []any{}},
		{"mostly too strict", map[string]any{"column": "b", "mostly": 0.95}, false, []int{9}, []any{nil}},
		{"mostly met", map[string]any{"column": "b", "mostly": 0.9}, true, []int{9}, []any{nil}},
		{"all missing", map[string]any{"column": "all", "mostly": 0.95}, false,
			[]int{0, 1, 2, 3}, []any{nil, nil, nil, nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := v.Expect(rule.ColumnValuesToNotBeNull, tt.kwargs)
			require.NoError(t, err)
			assert.Equal(t, tt.success, rec.Success)
			assert.Equal(t, tt.indices, rec.Result.UnexpectedIndexList)
			assert.Equal(t, tt.values, rec.Result.UnexpectedList)
			assert.Equal(t, 0, rec.Result.MissingCount)
		})
	}
}

func TestExpect_BeNull(t *testing.T) {
	v := completeValidator(t, []string{"x", "y", "z", "a"}, map[string][]any{
		"x": {2, nil, 2},
		"y": {2, math.NaN(), 2},
		"z": {2, 5, 7},
		"a": {nil, math.NaN(), nil},
	})

	tests := []struct {
		name    string
		kwargs  map[string]any
		success bool
		indices []int
		values  []any
	}{
		{"one missing", map[string]any{"column": "x"}, false, []int{0, 2}, []any{2, 2}},
		{"one nan", map[string]any{"column": "y"}, false, []int{0, 2}, []any{2, 2}},
		{"none missing", map[string]any{"column": "z"}, false, []int{0, 1, 2}, []any{2, 5, 7}},
		{"all missing", map[string]any{"column": "a"}, true, []int{}, []any{}},
		{"mostly met", map[string]any{"column": "x", "mostly": 0.2}, true, []int{0, 2}, []any{2, 2}},
		{"mostly missed", map[string]any{"column": "x", "mostly": 0.8}, false, []int{0, 2}, []any{2, 2}},
		{"all missing with mostly", map[string]any{"column": "a", "mostly": 0.5}, true, []int{}, []any{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := v.Expect(rule.ColumnValuesToBeNull, tt.kwargs)
			require.NoError(t, err)
			assert.Equal(t, tt.success, rec.Success)
			assert.Equal(t, tt.indices, rec.Result.UnexpectedIndexList)
			assert.Equal(t, tt.values, rec.Result.UnexpectedList)
			assert.Equal(t, 3, rec.Result.ElementCount)
		})
	}
}

func TestExpect_NullChecksOnSlicedFrame(t *testing.T) {
	f, err := dataset.NewFrame([]string{"x"}, map[string][]any{
		"x": {nil, 1, nil, 2},
	})
	require.NoError(t, err)
	tail, err := f.Slice(2, 4)
	require.NoError(t, err)
	v := New(tail)
	require.NoError(t, v.SetDefault(KeyResultFormat, "COMPLETE"))

	rec, err := v.Expect(rule.ColumnValuesToNotBeNull, map[string]any{"column": "x"})
	require.NoError(t, err)
	assert.False(t, rec.Success)
	assert.Equal(t, []int{2}, rec.Result.UnexpectedIndexList)
}
