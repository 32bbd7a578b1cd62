package logging

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// testMockLogger records the calls MultiLogger forwards.
type testMockLogger struct {
	mock.Mock
}

func (m *testMockLogger) Info(msg string, fields ...Field)  { m.Called(msg, fields) }
func (m *testMockLogger) Warn(msg string, fields ...Field)  { m.Called(msg, fields) }
func (m *testMockLogger) Error(msg string, fields ...Field) { m.Called(msg, fields) }
func (m *testMockLogger) Debug(msg string, fields ...Field) { m.Called(msg, fields) }

func (m *testMockLogger) WithFields(fields ...Field) Logger {
	args := m.Called(fields)
	return args.Get(0).(Logger)
}

func (m *testMockLogger) LogEvaluation(evaluation EvaluationLog) {
	m.Called(evaluation)
}

func (m *testMockLogger) Close() error {
	args := m.Called()
	return args.Error(0)
}

func mocks(n int) ([]*testMockLogger, []Logger) {
	ms := make([]*testMockLogger, n)
	ls := make([]Logger, n)
	for i := range ms {
		ms[i] = new(testMockLogger)
		ls[i] = ms[i]
	}
	return ms, ls
}

func TestNewMultiLogger_SkipsNil(t *testing.T) {
	ml := NewMultiLogger(NullLogger{}, nil, NullLogger{})
	assert.Len(t, ml.loggers, 2)
}

func TestMultiLogger_LevelsDelegate(t *testing.T) {
	fields := []Field{StringField("column", "x"), IntField("rows", 10)}

	tests := []struct {
		method string
		call   func(Logger)
	}{
		{"Info", func(l Logger) { l.Info("msg", fields...) }},
		{"Warn", func(l Logger) { l.Warn("msg", fields...) }},
		{"Error", func(l Logger) { l.Error("msg", fields...) }},
		{"Debug", func(l Logger) { l.Debug("msg", fields...) }},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			ms, ls := mocks(3)
			for _, m := range ms {
				m.On(tt.method, "msg", fields).Return()
			}

			tt.call(NewMultiLogger(ls...))

			for _, m := range ms {
				m.AssertExpectations(t)
				m.AssertNumberOfCalls(t, tt.method, 1)
			}
		})
	}
}

func TestMultiLogger_WithFields(t *testing.T) {
	fields := []Field{StringField("run_id", "abc")}
	ms, ls := mocks(2)
	children := make([]*testMockLogger, 2)
	for i, m := range ms {
		children[i] = new(testMockLogger)
		children[i].On("Info", "child", []Field(nil)).Return()
		m.On("WithFields", fields).Return(children[i])
	}

	child := NewMultiLogger(ls...).WithFields(fields...)
	child.Info("child")

	for i := range ms {
		ms[i].AssertExpectations(t)
		children[i].AssertExpectations(t)
	}
}

func TestMultiLogger_LogEvaluation(t *testing.T) {
	evaluation := EvaluationLog{
		RunID:           "run-1",
		ExpectationType: "expect_column_values_to_be_in_set",
		Column:          "x",
		Kind:            "map",
		ElementCount:    10,
		UnexpectedCount: 3,
	}

	ms, ls := mocks(3)
	for _, m := range ms {
		m.On("LogEvaluation", evaluation).Return()
	}

	NewMultiLogger(ls...).LogEvaluation(evaluation)

	for _, m := range ms {
		m.AssertExpectations(t)
	}
}

func TestMultiLogger_CloseJoinsErrors(t *testing.T) {
	first := errors.New("first")
	second := errors.New("second")

	tests := []struct {
		name   string
		errors []error
		want   []error
	}{
		{"all succeed", []error{nil, nil}, nil},
		{"one fails", []error{nil, second}, []error{second}},
		{"both fail", []error{first, second}, []error{first, second}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ms, ls := mocks(len(tt.errors))
			for i, m := range ms {
				m.On("Close").Return(tt.errors[i])
			}

			err := NewMultiLogger(ls...).Close()
			if tt.want == nil {
				assert.NoError(t, err)
			}
			for _, w := range tt.want {
				assert.ErrorIs(t, err, w)
			}
			for _, m := range ms {
				m.AssertExpectations(t)
			}
		})
	}
}

func TestMultiLogger_Empty(t *testing.T) {
	ml := NewMultiLogger()

	ml.Info("test")
	ml.Warn("test")
	ml.Error("test")
	ml.Debug("test")
	ml.LogEvaluation(EvaluationLog{})

	require.NotNil(t, ml.WithFields(LogField("k", "v")))
	assert.NoError(t, ml.Close())
}
