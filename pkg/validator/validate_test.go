package validator

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digital.vasic.expectations/pkg/expectation"
	"digital.vasic.expectations/pkg/monitor"
	"digital.vasic.expectations/pkg/result"
	"digital.vasic.expectations/pkg/suite"
)

// mixed records a failing, a passing and a raising expectation.
func mixed(t *testing.T, opts ...Option) *Validator {
	t.Helper()
	v := New(tenElements(t), opts...)
	_, err := v.Expect(inSet, map[string]any{"column": "x", "value_set": []any{1, 2}})
	require.NoError(t, err)
	_, err = v.Expect(exists, map[string]any{"column": "x"})
	require.NoError(t, err)
	_, err = v.Expect(mean, map[string]any{"column": "z", "min_value": 0},
		WithCatchExceptions(true))
	require.NoError(t, err)
	return v
}

func TestValidate_Statistics(t *testing.T) {
	v := mixed(t)
	report, err := v.Validate(ValidateOptions{})
	require.NoError(t, err)

	assert.False(t, report.Success)
	assert.NotEmpty(t, report.RunID)
	assert.Empty(t, report.Warnings)
	assert.Equal(t, 3, report.Statistics.EvaluatedExpectations)
	assert.Equal(t, 1, report.Statistics.SuccessfulExpectations)
	assert.Equal(t, 2, report.Statistics.UnsuccessfulExpectations)
	require.NotNil(t, report.Statistics.SuccessPercent)
	assert.InDelta(t, 100.0/3, *report.Statistics.SuccessPercent, 1e-9)

	require.Len(t, report.Results, 3)
	stored := v.Suite().Expectations()
	for i, rec := range report.Results {
		require.NotNil(t, rec.ExpectationConfig)
		assert.True(t, rec.ExpectationConfig.Equal(stored[i]))
	}
	assert.False(t, report.Results[0].Success)
	assert.True(t, report.Results[1].Success)
	assert.True(t, report.Results[2].ExceptionInfo.RaisedException)

	assert.Equal(t, DefaultSuiteName, report.Meta.SuiteName)
	assert.Equal(t, suite.EngineVersion, report.Meta.EngineVersion)
}

func TestValidate_EmptySuite(t *testing.T) {
	v := New(tenElements(t))
	report, err := v.Validate(ValidateOptions{})
	require.NoError(t, err)
	assert.True(t, report.Success)
	assert.Equal(t, 0, report.Statistics.EvaluatedExpectations)
	assert.Nil(t, report.Statistics.SuccessPercent)
	assert.Empty(t, report.Results)
}

func TestValidate_OnlyReturnFailures(t *testing.T) {
	v := mixed(t)
	report, err := v.Validate(ValidateOptions{OnlyReturnFailures: true})
	require.NoError(t, err)
	assert.Len(t, report.Results, 2)
	assert.Equal(t, 3, report.Statistics.EvaluatedExpectations)
	for _, rec := range report.Results {
		assert.False(t, rec.Success)
	}
}

func TestValidate_CatchExceptionsOff(t *testing.T) {
	v := mixed(t)
	catch := false
	_, err := v.Validate(ValidateOptions{CatchExceptions: &catch})

	var re *RuleError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, mean, re.Type)
}

func TestValidate_ResultFormatOverride(t *testing.T) {
	v := mixed(t)
	format := result.BooleanOnly
	report, err := v.Validate(ValidateOptions{ResultFormat: &format})
	require.NoError(t, err)
	for _, rec := range report.Results {
		assert.Nil(t, rec.Result)
	}
	assert.NotContains(t, v.Suite().Expectations()[0].Kwargs, KeyResultFormat)
}

func TestValidate_FollowsCurrentDefaults(t *testing.T) {
	v := New(tenElements(t))
	_, err := v.Expect(inSet, map[string]any{"column": "x", "value_set": []any{1, 2}})
	require.NoError(t, err)
	_, err = v.Expect(exists, map[string]any{"column": "y"}, WithResultFormat(result.Summary))
	require.NoError(t, err)
	require.NoError(t, v.SetDefault(KeyResultFormat, "BOOLEAN_ONLY"))

	report, err := v.Validate(ValidateOptions{})
	require.NoError(t, err)
	require.Len(t, report.Results, 2)
	assert.Nil(t, report.Results[0].Result)
	assert.NotNil(t, report.Results[1].Result)

	data, err := json.Marshal(v.Suite())
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), KeyResultFormat))
}

func TestValidate_UnknownExpectationInSuite(t *testing.T) {
	v := New(tenElements(t))
	unicorn, err := expectation.New("expect_unicorns", map[string]any{"column": "x"}, nil)
	require.NoError(t, err)
	require.NoError(t, v.Suite().Add(unicorn))

	report, err := v.Validate(ValidateOptions{})
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Contains(t, report.Results[0].ExceptionInfo.ExceptionMessage, "unknown expectation type")
	assert.Equal(t, "expect_unicorns", report.Results[0].ExpectationConfig.Type)

	catch := false
	_, err = v.Validate(ValidateOptions{CatchExceptions: &catch})
	assert.ErrorIs(t, err, ErrUnknownExpectation)
}

func TestValidate_VersionWarnings(t *testing.T) {
	tests := []struct {
		name string
		meta map[string]any
		want string
	}{
		{
			name: "older version",
			meta: map[string]any{suite.VersionKey: "0.1.0"},
			want: "built using version 0.1.0",
		},
		{
			name: "no version",
			want: "No expectations version found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := suite.New("legacy", suite.WithMeta(tt.meta))
			if tt.meta == nil {
				delete(s.Meta, suite.VersionKey)
			}
			v := New(tenElements(t), WithSuite(s))
			_, err := v.Expect(exists, map[string]any{"column": "y"})
			require.NoError(t, err)

			report, err := v.Validate(ValidateOptions{})
			require.NoError(t, err)
			assert.True(t, report.Success)
			require.Len(t, report.Warnings, 1)
			assert.Contains(t, report.Warnings[0], tt.want)
		})
	}
}

func TestValidate_OtherSuite(t *testing.T) {
	v := New(tenElements(t))
	other := suite.New("other")
	c, err := expectation.New(inSet, map[string]any{"column": "x", "value_set": []any{1, 2}}, nil)
	require.NoError(t, err)
	require.NoError(t, other.Add(c))

	report, err := v.Validate(ValidateOptions{Suite: other})
	require.NoError(t, err)
	assert.Equal(t, "other", report.Meta.SuiteName)
	assert.False(t, report.Success)

	success, ran := other.Expectations()[0].LastRun()
	assert.True(t, ran)
	assert.False(t, success)
	assert.Equal(t, 0, v.Suite().Len())
}

func TestValidate_Observability(t *testing.T) {
	m := &recordingMetrics{}
	collector := monitor.NewEventCollector()
	v := mixed(t, WithMetrics(m), WithCollector(collector))
	collector.Reset()

	_, err := v.Validate(ValidateOptions{RunID: "run-1"})
	require.NoError(t, err)

	assert.Equal(t, []bool{false}, m.validations)
	assert.Equal(t, 3, m.suiteSize)

	events := collector.Events()
	require.Len(t, events, 5)
	assert.Equal(t, monitor.EventValidationStarted, events[0].Type)
	assert.Equal(t, monitor.EventValidationCompleted, events[4].Type)
	for _, e := range events {
		assert.Equal(t, "run-1", e.RunID)
	}
	assert.Equal(t, 1, collector.Stats().Validations)
}

func TestReport_JSON(t *testing.T) {
	v := mixed(t)
	report, err := v.Validate(ValidateOptions{RunID: "run-1"})
	require.NoError(t, err)

	data, err := json.Marshal(report)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "run-1", doc["run_id"])
	assert.Equal(t, false, doc["success"])

	stats := doc["statistics"].(map[string]any)
	assert.Equal(t, 3.0, stats["evaluated_expectations"])
	assert.InDelta(t, 100.0/3, stats["success_percent"], 1e-9)

	meta := doc["meta"].(map[string]any)
	assert.Equal(t, DefaultSuiteName, meta["expectation_suite_name"])
	assert.Nil(t, meta["data_asset_name"])
	assert.Len(t, doc["results"], 3)
}
