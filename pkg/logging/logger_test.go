package logging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogLevel_String(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{LogLevel(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.level.String())
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    LogLevel
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{" Warning ", LevelWarn, false},
		{"warn", LevelWarn, false},
		{"error", LevelError, false},
		{"trace", LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "unknown log level")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFieldConstructors(t *testing.T) {
	tests := []struct {
		name  string
		field Field
		key   string
		value any
	}{
		{"log", LogField("key", "value"), "key", "value"},
		{"string", StringField("column", "age"), "column", "age"},
		{"int", IntField("element_count", 42), "element_count", 42},
		{"float", Float64Field("mostly", 0.5), "mostly", 0.5},
		{"bool", BoolField("success", true), "success", true},
		{"duration", DurationField("elapsed", 1500*time.Microsecond), "elapsed", 1.5},
		{
			"expectation",
			ExpectationField("expect_column_to_exist"),
			"expectation_type", "expect_column_to_exist",
		},
		{"error", ErrorField(assert.AnError), "error", assert.AnError.Error()},
		{"nil error", ErrorField(nil), "error", "<nil>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.key, tt.field.Key)
			assert.Equal(t, tt.value, tt.field.Value)
		})
	}
}

func TestNullLogger_AllMethodsSucceed(t *testing.T) {
	l := NullLogger{}
	l.Info("test")
	l.Warn("test")
	l.Error("test")
	l.Debug("test")
	l.LogEvaluation(EvaluationLog{ExpectationType: "expect_column_to_exist"})

	assert.Equal(t, NullLogger{}, l.WithFields(LogField("k", "v")))
	assert.NoError(t, l.Close())
}

func TestLoggers_ImplementInterface(t *testing.T) {
	var _ Logger = NullLogger{}
	var _ Logger = &MultiLogger{}
	var _ Logger = &ConsoleLogger{}
	var _ Logger = &JSONLogger{}
}
