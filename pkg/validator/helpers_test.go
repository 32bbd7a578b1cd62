package validator

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"digital.vasic.expectations/pkg/dataset"
)

const (
	inSet   = "expect_column_values_to_be_in_set"
	mean    = "expect_column_mean_to_be_between"
	exists  = "expect_column_to_exist"
	between = "expect_column_values_to_be_between"
)

// tenElements has five missing values in x and three values
// outside {1, 2} at rows 4, 6 and 8.
func tenElements(t *testing.T) *dataset.Frame {
	t.Helper()
	f, err := dataset.NewFrame(
		[]string{"x", "y", "z"},
		map[string][]any{
			"x": {1, nil, 2, nil, 5, nil, 6, nil, 7, nil},
			"y": {1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
			"z": {"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"},
		},
	)
	require.NoError(t, err)
	return f
}

type evaluation struct {
	expectationType string
	kind            string
	success         bool
}

// recordingMetrics captures what the validator reports.
type recordingMetrics struct {
	mu          sync.Mutex
	evaluations []evaluation
	exceptions  []string
	validations []bool
	suiteSize   int
}

func (m *recordingMetrics) RecordEvaluation(typ, kind string, success bool, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evaluations = append(m.evaluations, evaluation{typ, kind, success})
}

func (m *recordingMetrics) RecordException(typ string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exceptions = append(m.exceptions, typ)
}

func (m *recordingMetrics) RecordValidation(success bool, _ int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.validations = append(m.validations, success)
}

func (m *recordingMetrics) SetSuiteSize(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suiteSize = count
}
