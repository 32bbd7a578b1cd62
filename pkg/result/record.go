package result

import (
	"errors"
	"fmt"
	"sort"

	"digital.vasic.expectations/pkg/expectation"
	"digital.vasic.expectations/pkg/value"
)

// ErrInvalidCounts is returned when the counts handed to a
// formatter contradict each other.
var ErrInvalidCounts = errors.New("invalid result counts")

// ExceptionInfo describes an error raised while evaluating a
// rule.
type ExceptionInfo struct {
	RaisedException    bool   `json:"raised_exception"`
	ExceptionMessage   string `json:"exception_message"`
	ExceptionTraceback string `json:"exception_traceback"`
}

// Record is the outcome of one expectation evaluation.
type Record struct {
	// Success is the pass/fail verdict.
	Success bool `json:"success"`

	// Result carries the statistics for levels above
	// BOOLEAN_ONLY. It is nil at BOOLEAN_ONLY and for caught
	// exceptions.
	Result *Values `json:"result,omitempty"`

	// ExceptionInfo is set when a rule error was caught.
	ExceptionInfo *ExceptionInfo `json:"exception_info,omitempty"`

	// ExpectationConfig echoes the evaluated configuration when
	// include_config was requested.
	ExpectationConfig *expectation.Configuration `json:"expectation_config,omitempty"`

	// Meta echoes the caller's annotations.
	Meta map[string]any `json:"meta,omitempty"`
}

// FormatMap builds the record of a per-element evaluation.
// unexpectedValues and unexpectedIndices list the failing
// non-missing elements in their original order.
func FormatMap(
	level Format,
	success bool,
	elementCount, nonnullCount, unexpectedCount int,
	unexpectedValues []any,
	unexpectedIndices []int,
) (*Record, error) {
	if err := checkLevel(level); err != nil {
		return nil, err
	}
	if elementCount < 0 || nonnullCount < 0 || unexpectedCount < 0 {
		return nil, fmt.Errorf("%w: counts must not be negative",
			ErrInvalidCounts)
	}
	if nonnullCount > elementCount {
		return nil, fmt.Errorf(
			"%w: nonnull count %d exceeds element count %d",
			ErrInvalidCounts, nonnullCount, elementCount,
		)
	}
	if len(unexpectedIndices) != len(unexpectedValues) {
		return nil, fmt.Errorf(
			"%w: %d unexpected values but %d indices",
			ErrInvalidCounts, len(unexpectedValues), len(unexpectedIndices),
		)
	}

	rec := &Record{Success: success}
	if level == BooleanOnly {
		return rec, nil
	}

	missingCount := elementCount - nonnullCount
	partial := headValues(unexpectedValues, PartialUnexpectedCount)
	v := &Values{
		kind:                        kindMap,
		level:                       level,
		ElementCount:                elementCount,
		MissingCount:                missingCount,
		MissingPercent:              percent(missingCount, elementCount),
		UnexpectedCount:             unexpectedCount,
		UnexpectedPercent:           percent(unexpectedCount, elementCount),
		UnexpectedPercentNonmissing: percent(unexpectedCount, nonnullCount),
		PartialUnexpectedList:       partial,
	}

	if level >= Summary {
		v.PartialUnexpectedIndexList = headIndices(unexpectedIndices,
			PartialUnexpectedCount)
		v.PartialUnexpectedCounts = countValues(partial,
			PartialUnexpectedCount)
	}
	if level >= Complete {
		v.UnexpectedList = append([]any{}, unexpectedValues...)
		v.UnexpectedIndexList = append([]int{}, unexpectedIndices...)
	}

	rec.Result = v
	return rec, nil
}

// FormatAggregate builds the record of a whole-column
// evaluation that observed a single statistic.
func FormatAggregate(
	level Format,
	success bool,
	observed any,
	elementCount, nonnullCount int,
) (*Record, error) {
	if err := checkLevel(level); err != nil {
		return nil, err
	}
	if nonnullCount > elementCount || nonnullCount < 0 {
		return nil, fmt.Errorf(
			"%w: nonnull count %d with element count %d",
			ErrInvalidCounts, nonnullCount, elementCount,
		)
	}

	rec := &Record{Success: success}
	if level == BooleanOnly {
		return rec, nil
	}

	missingCount := elementCount - nonnullCount
	rec.Result = &Values{
		kind:           kindAggregate,
		level:          level,
		hasObserved:    true,
		ObservedValue:  observed,
		ElementCount:   elementCount,
		MissingCount:   missingCount,
		MissingPercent: percent(missingCount, elementCount),
	}
	return rec, nil
}

// FormatTable builds the record of a table-level evaluation.
// observed_value is reported only when observed is non-nil.
func FormatTable(
	level Format,
	success bool,
	observed any,
) (*Record, error) {
	if err := checkLevel(level); err != nil {
		return nil, err
	}

	rec := &Record{Success: success}
	if level == BooleanOnly {
		return rec, nil
	}
	rec.Result = &Values{
		kind:          kindTable,
		level:         level,
		hasObserved:   observed != nil,
		ObservedValue: observed,
	}
	return rec, nil
}

// Exception builds the failed record of a rule that raised err.
func Exception(err error, traceback string) *Record {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &Record{
		Success: false,
		ExceptionInfo: &ExceptionInfo{
			RaisedException:    true,
			ExceptionMessage:   msg,
			ExceptionTraceback: traceback,
		},
	}
}

// percent returns 100*part/whole, or nil when whole is zero.
func percent(part, whole int) *float64 {
	if whole == 0 {
		return nil
	}
	p := 100 * float64(part) / float64(whole)
	return &p
}

func headValues(values []any, n int) []any {
	if len(values) > n {
		values = values[:n]
	}
	return append([]any{}, values...)
}

func headIndices(indices []int, n int) []int {
	if len(indices) > n {
		indices = indices[:n]
	}
	return append([]int{}, indices...)
}

// countValues builds a histogram of values, most frequent first,
// ties broken by value order, truncated to n entries.
func countValues(values []any, n int) []ValueCount {
	counts := make([]ValueCount, 0, len(values))
	pos := make(map[string]int, len(values))
	for _, v := range values {
		key := value.Key(v)
		if i, ok := pos[key]; ok {
			counts[i].Count++
			continue
		}
		pos[key] = len(counts)
		counts = append(counts, ValueCount{Value: v, Count: 1})
	}

	sort.SliceStable(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return value.Compare(counts[i].Value, counts[j].Value) < 0
	})

	if len(counts) > n {
		counts = counts[:n]
	}
	return counts
}
